package orchestrator

import (
    "context"
    "time"

    "github.com/rs/zerolog/log"
)

// Sweeper removes expired objects below a key prefix. storage.Local
// implements it; object stores expire through bucket lifecycle rules instead.
type Sweeper interface {
    Sweep(prefix string, maxAge time.Duration) int
}

// Pruner drops idle rate limit buckets.
type Pruner interface {
    Prune() int
}

// JanitorOptions configures RunJanitor. Nil collaborators are skipped.
type JanitorOptions struct {
    Interval time.Duration
    Sweeper  Sweeper
    Limiter  Pruner
    Runner   *Runner
    // PartTTL bounds how long split parts stay downloadable.
    PartTTL time.Duration
    // MaxAge bounds jobs and any blob left behind by them.
    MaxAge time.Duration
}

// RunJanitor cleans up on every tick until ctx is done.
func RunJanitor(ctx context.Context, opts JanitorOptions) {
    if opts.Interval <= 0 { opts.Interval = 10 * time.Minute }
    t := time.NewTicker(opts.Interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            Cleanup(ctx, opts)
        }
    }
}

// Cleanup runs one janitor pass.
func Cleanup(ctx context.Context, opts JanitorOptions) {
    if opts.Runner != nil && opts.MaxAge > 0 {
        if n := opts.Runner.Expire(ctx, opts.MaxAge); n > 0 {
            log.Info().Int("jobs", n).Msg("expired finished jobs")
        }
        opts.Runner.PruneBatches(opts.MaxAge)
    }
    if opts.Sweeper != nil {
        if opts.PartTTL > 0 { opts.Sweeper.Sweep(splitPrefix, opts.PartTTL) }
        if opts.MaxAge > 0 { opts.Sweeper.Sweep("", opts.MaxAge) }
    }
    if opts.Limiter != nil {
        if n := opts.Limiter.Prune(); n > 0 { log.Debug().Int("clients", n).Msg("pruned idle rate limit buckets") }
    }
}
