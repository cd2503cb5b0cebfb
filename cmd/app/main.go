package main

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/rs/zerolog/log"

    "github.com/local/filemend/internal/assembly"
    "github.com/local/filemend/internal/compress"
    cfgpkg "github.com/local/filemend/internal/config"
    "github.com/local/filemend/internal/filetype"
    "github.com/local/filemend/internal/intake"
    "github.com/local/filemend/internal/limiter"
    logpkg "github.com/local/filemend/internal/logger"
    "github.com/local/filemend/internal/metrics"
    "github.com/local/filemend/internal/mupdf"
    "github.com/local/filemend/internal/orchestrator"
    "github.com/local/filemend/internal/pdftext"
    "github.com/local/filemend/internal/split"
    "github.com/local/filemend/internal/statuscheck"
    "github.com/local/filemend/internal/storage"
    "github.com/local/filemend/internal/store"
)

func main() {
    _ = godotenv.Load()
    cfg := cfgpkg.FromEnv()

    // Init logging
    logOpts := logpkg.Options{
        Level: cfg.Logging.Level,
        Pretty: cfg.Logging.Pretty,
        File: cfg.Logging.File,
        Rotate: logpkg.Rotation{
            MaxSizeMB: cfg.Logging.MaxSizeMB,
            MaxBackups: cfg.Logging.MaxBackups,
            MaxAgeDays: cfg.Logging.MaxAgeDays,
            Compress: cfg.Logging.Compress,
        },
    }
    if cfg.Axiom.Send && cfg.Axiom.APIKey != "" {
        logOpts.Axiom = &logpkg.AxiomOptions{
            APIKey: cfg.Axiom.APIKey,
            OrgID: cfg.Axiom.OrgID,
            Dataset: cfg.Axiom.Dataset,
            Drain: cfg.Axiom.DrainTimeout,
        }
    }
    if err := logpkg.Init(logOpts); err != nil {
        fmt.Fprintf(os.Stderr, "logging: %v\n", err)
    }
    defer logpkg.Close()
    metrics.Init()

    ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stopSignals()

    // Job store
    var jobs store.JobStore
    switch cfg.Store.Backend {
    case "redis":
        rs, err := store.NewRedis(ctx, cfg.Store.RedisURL, cfg.Store.Prefix, cfg.Store.TTL)
        if err != nil { log.Fatal().Err(err).Msg("failed to init redis job store") }
        jobs = rs
    default:
        jobs = store.NewMemory()
    }
    defer jobs.Close()

    // Blob storage
    var (
        blobs   storage.Blobs
        sweeper orchestrator.Sweeper
    )
    switch cfg.Storage.Backend {
    case "s3":
        s3c, err := storage.NewS3Client(ctx, storage.S3Options{
            Bucket:          cfg.Storage.S3.Bucket,
            Prefix:          cfg.Storage.S3.Prefix,
            Region:          cfg.Storage.S3.Region,
            Endpoint:        cfg.Storage.S3.Endpoint,
            AccessKeyID:     cfg.Storage.S3.AccessKeyID,
            SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
            PathStyle:       cfg.Storage.S3.PathStyle,
            BreakerFailures: cfg.Storage.S3.BreakerFailures,
            BreakerTimeout:  cfg.Storage.S3.BreakerTimeout,
        })
        if err != nil { log.Fatal().Err(err).Msg("failed to init s3 storage") }
        blobs = s3c
    default:
        local, err := storage.NewLocal(cfg.Storage.Dir)
        if err != nil { log.Fatal().Err(err).Str("dir", cfg.Storage.Dir).Msg("failed to init local storage") }
        blobs, sweeper = local, local
    }

    // PDF engines
    render := mupdf.NewOpener()
    asm := assembly.New()
    compressor := compress.New(compress.Options{
        Analysis:           pdftext.NewOpener(),
        Render:             render,
        Assembler:          asm,
        AreaRatioThreshold: cfg.Compress.AreaRatioThreshold,
    })

    notices := orchestrator.NewNotices(cfg.Compress.NoticeCapacity)
    runner := orchestrator.NewRunner(jobs, blobs, compressor, notices, cfg.Compress.QueueSize)
    runner.Start()

    lim := limiter.New(limiter.Options{RPS: cfg.HTTP.RateLimitRPS, Burst: cfg.HTTP.RateLimitBurst})
    checker := statuscheck.New(statuscheck.Options{
        Store:          jobs,
        StoreBackend:   cfg.Store.Backend,
        Blobs:          blobs,
        BlobBackend:    cfg.Storage.Backend,
        MuPDFAvailable: render.IsAvailable,
        QueueDepth:     runner.Depth,
    })

    orch := orchestrator.New(orchestrator.Dependencies{
        Store:    jobs,
        Blobs:    blobs,
        Runner:   runner,
        Notices:  notices,
        Screener: intake.NewScreener(filetype.New()),
        Planner:  split.NewPlanner(render, cfg.Split.BlankThreshold),
        Splitter: split.NewSplitter(asm),
        Limiter:  lim,
        Status:   checker,
    }, orchestrator.Config{
        DownloadPrefix: cfg.Compress.DownloadPrefix,
        ZipPrefix:      cfg.Compress.ZipPrefix,
        MaxUploadBytes: int64(cfg.HTTP.MaxUploadMB) << 20,
    })
    mux := http.NewServeMux()
    orch.RegisterRoutes(mux)

    go orchestrator.RunJanitor(ctx, orchestrator.JanitorOptions{
        Interval: cfg.Storage.SweepInterval,
        Sweeper:  sweeper,
        Limiter:  lim,
        Runner:   runner,
        PartTTL:  cfg.Split.PartTTL,
        MaxAge:   cfg.Storage.MaxAge,
    })

    srv := &http.Server{Addr: ":"+cfg.HTTP.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
    go func(){
        log.Info().Str("port", cfg.HTTP.Port).Str("store", cfg.Store.Backend).Str("storage", cfg.Storage.Backend).Msg("HTTP server listening")
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Fatal().Err(err).Msg("http server error")
        }
    }()

    // Graceful shutdown
    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
    defer cancel()
    _ = srv.Shutdown(shutdownCtx)
    if err := runner.Stop(shutdownCtx); err != nil {
        log.Warn().Err(err).Msg("runner did not stop in time")
    }
    log.Info().Msg("shutdown complete")
}
