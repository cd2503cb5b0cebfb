package limiter

import (
    "net"
    "net/http"
    "strings"
    "sync"
    "time"

    "golang.org/x/time/rate"
)

// Limiter combines a per-client token bucket with a per-key cap on requests
// in flight.
type Limiter struct {
    rps         rate.Limit
    burst       int
    maxInflight int
    idle        time.Duration
    now         func() time.Time

    mu      sync.Mutex
    clients map[string]*client
    sem     map[string]chan struct{}
}

type client struct {
    lim  *rate.Limiter
    seen time.Time
}

type Options struct {
    RPS         float64
    Burst       int
    MaxInflight int
    // Idle is how long a client bucket is kept without traffic.
    Idle        time.Duration
}

func New(opts Options) *Limiter {
    if opts.RPS <= 0 { opts.RPS = 5 }
    if opts.Burst <= 0 { opts.Burst = 20 }
    if opts.MaxInflight <= 0 { opts.MaxInflight = 2 }
    if opts.Idle <= 0 { opts.Idle = 10 * time.Minute }
    return &Limiter{
        rps:         rate.Limit(opts.RPS),
        burst:       opts.Burst,
        maxInflight: opts.MaxInflight,
        idle:        opts.Idle,
        now:         time.Now,
        clients:     map[string]*client{},
        sem:         map[string]chan struct{}{},
    }
}

// Permit consumes one token from key's bucket.
func (l *Limiter) Permit(key string) bool {
    now := l.now()
    l.mu.Lock()
    c, ok := l.clients[key]
    if !ok {
        c = &client{lim: rate.NewLimiter(l.rps, l.burst)}
        l.clients[key] = c
    }
    c.seen = now
    l.mu.Unlock()
    return c.lim.AllowN(now, 1)
}

// Allow tries to reserve an in-flight slot for key.
// Returns a release function and true if allowed; otherwise a no-op and false.
func (l *Limiter) Allow(key string) (func(), bool) {
    key = strings.ToLower(key)
    l.mu.Lock()
    ch, ok := l.sem[key]
    if !ok {
        ch = make(chan struct{}, l.maxInflight)
        l.sem[key] = ch
    }
    l.mu.Unlock()
    select {
    case ch <- struct{}{}:
        return func() { <-ch }, true
    default:
        return func(){}, false
    }
}

// Prune forgets client buckets idle for longer than the configured window and
// returns how many were dropped.
func (l *Limiter) Prune() int {
    cutoff := l.now().Add(-l.idle)
    l.mu.Lock()
    defer l.mu.Unlock()
    n := 0
    for k, c := range l.clients {
        if c.seen.Before(cutoff) {
            delete(l.clients, k)
            n++
        }
    }
    return n
}

// Middleware rejects requests over the client's rate with 429.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !l.Permit(ClientKey(r)) {
            w.Header().Set("Retry-After", "1")
            http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// ClientKey identifies the caller by the first X-Forwarded-For hop or the
// remote address.
func ClientKey(r *http.Request) string {
    if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
        if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" { return first }
    }
    host, _, err := net.SplitHostPort(r.RemoteAddr)
    if err != nil { return r.RemoteAddr }
    return host
}
