package statuscheck

import (
    "context"
    "errors"
    "time"
)

// Pinger models the minimal capability we need from a backend for status checks.
type Pinger interface {
    Ping(ctx context.Context) error
}

// Checker aggregates health checks for the job store, blob storage and the
// PDF engine.
type Checker struct {
    store          Pinger
    storeBackend   string
    blobs          Pinger
    blobBackend    string
    mupdfAvailable func() bool
    queueDepth     func() int
}

// Options configures the Checker.
type Options struct {
    Store          Pinger
    StoreBackend   string
    Blobs          Pinger
    BlobBackend    string
    MuPDFAvailable func() bool
    QueueDepth     func() int
}

// Status represents the readiness of a subsystem.
type Status struct {
    OK      bool   `json:"ok"`
    Message string `json:"message"`
}

// Summary bundles all subsystem statuses.
type Summary struct {
    Store   Status `json:"store"`
    Storage Status `json:"storage"`
    MuPDF   Status `json:"mupdf"`
    Runner  Status `json:"runner"`
}

// Healthy reports whether every subsystem is OK.
func (s Summary) Healthy() bool {
    return s.Store.OK && s.Storage.OK && s.MuPDF.OK && s.Runner.OK
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
    return &Checker{
        store:          opts.Store,
        storeBackend:   opts.StoreBackend,
        blobs:          opts.Blobs,
        blobBackend:    opts.BlobBackend,
        mupdfAvailable: opts.MuPDFAvailable,
        queueDepth:     opts.QueueDepth,
    }
}

// Summary returns the current status snapshot.
func (c *Checker) Summary(ctx context.Context) Summary {
    return Summary{
        Store:   c.ping(ctx, c.store, c.storeBackend, 2*time.Second),
        Storage: c.ping(ctx, c.blobs, c.blobBackend, 5*time.Second),
        MuPDF:   c.checkMuPDF(),
        Runner:  c.checkRunner(),
    }
}

func (c *Checker) ping(ctx context.Context, p Pinger, backend string, timeout time.Duration) Status {
    if p == nil {
        return Status{OK: false, Message: "client unavailable"}
    }
    ctx, cancel := context.WithTimeout(ctx, timeout)
    defer cancel()
    if err := p.Ping(ctx); err != nil {
        return Status{OK: false, Message: trimError(err)}
    }
    if backend == "" { backend = "backend" }
    return Status{OK: true, Message: "Connected (" + backend + ")"}
}

func (c *Checker) checkMuPDF() Status {
    if c.mupdfAvailable == nil || !c.mupdfAvailable() {
        return Status{OK: false, Message: "Renderer not available"}
    }
    return Status{OK: true, Message: "Available"}
}

func (c *Checker) checkRunner() Status {
    if c.queueDepth == nil {
        return Status{OK: false, Message: "Runner not started"}
    }
    if n := c.queueDepth(); n > 0 {
        return Status{OK: true, Message: "Busy"}
    }
    return Status{OK: true, Message: "Idle"}
}

func trimError(err error) string {
    if err == nil {
        return ""
    }
    var netErr interface{ Timeout() bool }
    if errors.As(err, &netErr) && netErr.Timeout() {
        return "timeout"
    }
    if errors.Is(err, context.DeadlineExceeded) {
        return "timeout"
    }
    msg := err.Error()
    if len(msg) > 120 {
        return msg[:120]
    }
    return msg
}
