package orchestrator

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "github.com/local/filemend/internal/compress"
    "github.com/local/filemend/internal/metrics"
    "github.com/local/filemend/internal/storage"
    "github.com/local/filemend/internal/store"
)

// ErrQueueFull is returned by Submit when no more batches can be queued.
var ErrQueueFull = errors.New("runner queue is full")

// BatchStatus is the lifecycle state of a queued batch.
type BatchStatus string

const (
    BatchQueued  BatchStatus = "queued"
    BatchRunning BatchStatus = "running"
    BatchDone    BatchStatus = "done"
)

// Batch reports the progress of one Submit call.
type Batch struct {
    ID         string               `json:"id"`
    JobIDs     []string             `json:"job_ids"`
    Status     BatchStatus          `json:"status"`
    Completed  int                  `json:"completed"`
    Total      int                  `json:"total"`
    Percent    int                  `json:"percent"`
    Result     compress.BatchResult `json:"result"`
    CreatedAt  time.Time            `json:"created_at"`
    FinishedAt time.Time            `json:"finished_at,omitzero"`
}

// Runner owns the only goroutine that compresses. Batches are drained in
// submission order and their jobs run one at a time.
type Runner struct {
    store      store.JobStore
    blobs      storage.Blobs
    compressor compress.JobCompressor
    notices    *Notices

    queue chan string
    stop  chan struct{}
    done  chan struct{}
    once  sync.Once

    mu        sync.Mutex
    batches   map[string]*Batch
    running   bool
    current   string
    discarded map[string]bool
}

func NewRunner(st store.JobStore, blobs storage.Blobs, c compress.JobCompressor, notices *Notices, queueSize int) *Runner {
    if queueSize <= 0 { queueSize = 64 }
    if notices == nil { notices = NewNotices(0) }
    return &Runner{
        store:      st,
        blobs:      blobs,
        compressor: c,
        notices:    notices,
        queue:      make(chan string, queueSize),
        stop:       make(chan struct{}),
        done:       make(chan struct{}),
        batches:    map[string]*Batch{},
        discarded:  map[string]bool{},
    }
}

func (r *Runner) Start() { go r.loop() }

// Stop lets the current job finish and returns when the loop has exited or
// ctx is done. Queued batches are dropped.
func (r *Runner) Stop(ctx context.Context) error {
    r.once.Do(func() { close(r.stop) })
    select {
    case <-r.done:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}

// Submit queues jobIDs as one batch.
func (r *Runner) Submit(jobIDs []string) (Batch, error) {
    b := &Batch{
        ID:        uuid.NewString(),
        JobIDs:    append([]string(nil), jobIDs...),
        Status:    BatchQueued,
        Total:     len(jobIDs),
        CreatedAt: time.Now().UTC(),
    }
    r.mu.Lock()
    defer r.mu.Unlock()
    select {
    case r.queue <- b.ID:
    default:
        return Batch{}, ErrQueueFull
    }
    r.batches[b.ID] = b
    metrics.SetQueueDepth(len(r.queue))
    log.Info().Str("batch_id", b.ID).Int("jobs", b.Total).Msg("batch queued")
    return r.snapshot(b), nil
}

// Batch returns a copy of the batch state.
func (r *Runner) Batch(id string) (Batch, bool) {
    r.mu.Lock()
    defer r.mu.Unlock()
    b, ok := r.batches[id]
    if !ok { return Batch{}, false }
    return r.snapshot(b), true
}

func (r *Runner) snapshot(b *Batch) Batch {
    c := *b
    c.JobIDs = append([]string(nil), b.JobIDs...)
    return c
}

// Depth is the number of batches waiting or running.
func (r *Runner) Depth() int {
    r.mu.Lock()
    defer r.mu.Unlock()
    n := len(r.queue)
    if r.running { n++ }
    return n
}

// PruneBatches forgets finished batches older than maxAge.
func (r *Runner) PruneBatches(maxAge time.Duration) int {
    cutoff := time.Now().Add(-maxAge)
    r.mu.Lock()
    defer r.mu.Unlock()
    n := 0
    for id, b := range r.batches {
        if b.Status == BatchDone && b.FinishedAt.Before(cutoff) {
            delete(r.batches, id)
            n++
        }
    }
    return n
}

// Delete removes a job record and its blobs. A job being compressed keeps
// running but its result is discarded.
func (r *Runner) Delete(ctx context.Context, id string) (bool, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.current == id { r.discarded[id] = true }
    ok, err := r.store.Delete(ctx, id)
    if err != nil { return false, err }
    for _, key := range []string{storage.SourceKey(id), storage.ResultKey(id)} {
        if err := r.blobs.Delete(ctx, key); err != nil {
            log.Warn().Err(err).Str("job_id", id).Str("key", key).Msg("blob delete failed")
        }
    }
    return ok, nil
}

func (r *Runner) loop() {
    defer close(r.done)
    log.Info().Msg("compression runner started")
    for {
        select {
        case <-r.stop:
            log.Info().Msg("compression runner stopped")
            return
        case id := <-r.queue:
            metrics.SetQueueDepth(len(r.queue))
            r.run(id)
        }
    }
}

func (r *Runner) run(batchID string) {
    r.mu.Lock()
    b := r.batches[batchID]
    if b == nil { r.mu.Unlock(); return }
    b.Status = BatchRunning
    r.running = true
    jobs := make([]*compress.FileJob, len(b.JobIDs))
    for i, id := range b.JobIDs { jobs[i] = &compress.FileJob{ID: id} }
    r.mu.Unlock()

    start := time.Now()
    res := compress.RunBatch(context.Background(), (*loader)(r), jobs, r.record, func(completed, total, percent int) {
        r.mu.Lock()
        b.Completed, b.Percent = completed, percent
        r.mu.Unlock()
    })

    r.mu.Lock()
    b.Result = res
    b.Status = BatchDone
    b.Percent = 100
    b.FinishedAt = time.Now().UTC()
    r.running = false
    r.mu.Unlock()
    log.Info().Str("batch_id", batchID).Int("done", res.Done).Int("failed", res.Failed).Int("skipped", res.Skipped).
        Dur("elapsed", time.Since(start)).Msg("batch finished")
}

// record persists intermediate snapshots. The terminal Done snapshot is
// written by the loader once the result blob is stored.
func (r *Runner) record(j compress.FileJob) {
    if j.Status == compress.StatusDone { return }
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.discarded[j.ID] { return }
    if err := r.store.Put(context.Background(), j); err != nil {
        log.Warn().Err(err).Str("job_id", j.ID).Msg("job snapshot not saved")
    }
}

// loader adapts the Runner to compress.JobCompressor: it loads the job record
// and source before compressing, and stores the outcome after.
type loader Runner

func (l *loader) Compress(ctx context.Context, job *compress.FileJob, observe compress.Observer) error {
    r := (*Runner)(l)
    id := job.ID
    // current is claimed before the record is read so a Delete from here on
    // marks the job discarded.
    r.mu.Lock()
    r.current = id
    r.mu.Unlock()
    defer func() {
        r.mu.Lock()
        r.current = ""
        delete(r.discarded, id)
        r.mu.Unlock()
    }()

    rec, err := r.store.Get(ctx, id)
    if errors.Is(err, store.ErrNotFound) {
        return fmt.Errorf("%w: %s was deleted", compress.ErrNotPending, id)
    }
    if err != nil {
        log.Error().Err(err).Str("job_id", id).Msg("job record unavailable")
        return err
    }
    if rec.Status != compress.StatusPending {
        return fmt.Errorf("%w: %s is %s", compress.ErrNotPending, rec.ID, rec.Status)
    }

    *job = rec
    src, err := r.blobs.Get(ctx, storage.SourceKey(rec.ID))
    if err != nil {
        err = fmt.Errorf("load source: %w", err)
        job.Status = compress.StatusFailed
        job.ErrorMessage = err.Error()
        job.FinishedAt = time.Now().UTC()
        r.finish(ctx, job, err, 0)
        return err
    }
    job.Source = src

    start := time.Now()
    err = r.compressor.Compress(ctx, job, observe)
    job.Source = nil
    r.finish(ctx, job, err, time.Since(start))
    return err
}

// finish stores the result blob and the terminal record, then reports the
// outcome. A failed result upload turns the job into Failed.
func (r *Runner) finish(ctx context.Context, job *compress.FileJob, jobErr error, dur time.Duration) {
    r.mu.Lock()
    defer r.mu.Unlock()
    if r.discarded[job.ID] {
        log.Info().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("job deleted while running; result discarded")
        job.Result = nil
        return
    }
    if job.Status == compress.StatusDone {
        if err := r.blobs.Put(ctx, storage.ResultKey(job.ID), job.Result); err != nil {
            log.Error().Err(err).Str("job_id", job.ID).Msg("result upload failed")
            job.Status = compress.StatusFailed
            job.Result = nil
            job.ResultSize = 0
            job.CompressionRatio = 0
            job.ErrorMessage = fmt.Sprintf("store result: %v", err)
            jobErr = err
        }
    }
    if err := r.store.Put(ctx, *job); err != nil {
        log.Error().Err(err).Str("job_id", job.ID).Msg("job record not saved")
    }
    job.Result = nil

    metrics.ObserveJob(string(job.Status), string(job.Mode), dur, job.CompressionRatio)
    if job.Status == compress.StatusDone {
        metrics.AddPages(job.PagesCopied, job.PagesRasterized)
        r.notices.Push(NoticeSuccess, job.ID, fmt.Sprintf("%s compressed (%.1f%% smaller)", job.Name, job.CompressionRatio))
        return
    }
    log.Warn().Str("job_id", job.ID).Str("kind", compress.Kind(jobErr)).Str("error", job.ErrorMessage).Msg("job failed")
    r.notices.Push(NoticeError, job.ID, fmt.Sprintf("%s failed: %s", job.Name, job.ErrorMessage))
}

// Expire deletes jobs created more than maxAge ago, matching the record TTL of
// the Redis store. Jobs being compressed are left alone.
func (r *Runner) Expire(ctx context.Context, maxAge time.Duration) int {
    jobs, err := r.store.List(ctx)
    if err != nil {
        log.Warn().Err(err).Msg("expire: list jobs failed")
        return 0
    }
    cutoff := time.Now().Add(-maxAge)
    n := 0
    for _, j := range jobs {
        if j.Status == compress.StatusProcessing || !j.CreatedAt.Before(cutoff) { continue }
        if ok, err := r.Delete(ctx, j.ID); err == nil && ok { n++ }
    }
    return n
}
