package metrics

import (
    "net/http"
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
    jobsTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "filemend",
            Name:      "jobs_total",
            Help:      "Compression jobs finished, by result and mode",
        },
        []string{"result", "mode"},
    )

    jobDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "filemend",
            Name:      "job_duration_seconds",
            Help:      "Duration of compression jobs by mode",
            Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
        },
        []string{"mode"},
    )

    compressionRatio = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "filemend",
            Name:      "compression_ratio_percent",
            Help:      "Size reduction of finished jobs in percent, by mode",
            Buckets:   []float64{-50, -10, 0, 10, 20, 30, 40, 50, 60, 70, 80, 90},
        },
        []string{"mode"},
    )

    pagesTotal = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "filemend",
            Name:      "pages_total",
            Help:      "Pages written by action (copied, rasterized)",
        },
        []string{"action"},
    )

    intakeRejected = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "filemend",
            Name:      "intake_rejected_total",
            Help:      "Uploaded files not accepted, by reason",
        },
        []string{"reason"},
    )

    splitParts = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "filemend",
            Name:      "split_parts_total",
            Help:      "Split output files, by strategy",
        },
        []string{"mode"},
    )

    notices = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "filemend",
            Name:      "notices_total",
            Help:      "Notices emitted, by kind",
        },
        []string{"kind"},
    )

    breakerEvents = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "filemend",
            Name:      "breaker_events_total",
            Help:      "Circuit breaker transitions by breaker and state",
        },
        []string{"breaker", "state"},
    )

    queueDepth = prometheus.NewGauge(
        prometheus.GaugeOpts{
            Namespace: "filemend",
            Name:      "queue_depth",
            Help:      "Batches waiting for the runner",
        },
    )

    registerOnce sync.Once
)

// Init registers collectors. Calling it more than once is a no-op.
func Init() {
    registerOnce.Do(func() {
        prometheus.MustRegister(jobsTotal, jobDuration, compressionRatio, pagesTotal, intakeRejected, splitParts, notices, breakerEvents, queueDepth)
    })
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

// ObserveJob records a finished job. ratio is only observed for successes.
func ObserveJob(result, mode string, dur time.Duration, ratio float64) {
    jobsTotal.WithLabelValues(result, mode).Inc()
    jobDuration.WithLabelValues(mode).Observe(dur.Seconds())
    if result == "done" { compressionRatio.WithLabelValues(mode).Observe(ratio) }
}

func AddPages(copied, rasterized int) {
    if copied > 0 { pagesTotal.WithLabelValues("copied").Add(float64(copied)) }
    if rasterized > 0 { pagesTotal.WithLabelValues("rasterized").Add(float64(rasterized)) }
}

func IncRejected(reason string)      { intakeRejected.WithLabelValues(reason).Inc() }
func AddSplitParts(mode string, n int) { splitParts.WithLabelValues(mode).Add(float64(n)) }
func IncNotice(kind string)          { notices.WithLabelValues(kind).Inc() }
func BreakerState(name, state string) { breakerEvents.WithLabelValues(name, state).Inc() }
func SetQueueDepth(v int)            { queueDepth.Set(float64(v)) }
