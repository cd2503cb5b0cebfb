package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
    Level        string
    Pretty       bool
    File         string
    MaxSizeMB    int
    MaxBackups   int
    MaxAgeDays   int
    Compress     bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
    Send          bool
    APIKey        string
    OrgID         string
    Dataset       string
    // DrainTimeout bounds the final flush on shutdown.
    DrainTimeout  time.Duration
}

// HTTPConfig defines the API listener and request limits.
type HTTPConfig struct {
    Port            string
    MaxUploadMB     int
    RateLimitRPS    float64
    RateLimitBurst  int
    ShutdownTimeout time.Duration
}

// CompressConfig tunes classification and output naming.
type CompressConfig struct {
    AreaRatioThreshold float64
    DownloadPrefix     string
    ZipPrefix          string
    NoticeCapacity     int
    QueueSize          int
}

// SplitConfig tunes page grouping.
type SplitConfig struct {
    BlankThreshold int
    PartTTL        time.Duration
}

// StoreConfig selects where job records live.
type StoreConfig struct {
    Backend  string // "memory"|"redis"
    RedisURL string
    Prefix   string
    TTL      time.Duration
}

// S3Config defines the S3 blob backend.
type S3Config struct {
    Bucket          string
    Prefix          string
    Region          string
    Endpoint        string
    AccessKeyID     string
    SecretAccessKey string
    PathStyle       bool
    BreakerFailures int
    BreakerTimeout  time.Duration
}

// StorageConfig selects where source and result bytes live.
type StorageConfig struct {
    Backend       string // "local"|"s3"
    Dir           string
    SweepInterval time.Duration
    MaxAge        time.Duration
    S3            S3Config
}

// Config is the top-level configuration.
type Config struct {
    Environment string
    Logging     LoggingConfig
    Axiom       AxiomConfig
    HTTP        HTTPConfig
    Compress    CompressConfig
    Split       SplitConfig
    Store       StoreConfig
    Storage     StorageConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
    cfg := Config{Environment: getEnv("ENVIRONMENT", "production")}

    // Logging defaults
    cfg.Logging = LoggingConfig{
        Level:      getEnv("LOG_LEVEL", "info"),
        Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
        File:       getEnv("LOG_FILE", "logs/filemend.log"),
        MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
        MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
        MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
        Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
    }

    // Axiom defaults
    baseDataset := getEnv("AXIOM_DATASET", "dev")
    cfg.Axiom = AxiomConfig{
        Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
        APIKey:        getEnv("AXIOM_API_KEY", ""),
        OrgID:         getEnv("AXIOM_ORG_ID", ""),
        Dataset:       baseDataset + "_filemend",
        DrainTimeout:  parseDuration(getEnv("AXIOM_DRAIN_TIMEOUT", "10s"), 10*time.Second),
    }

    cfg.HTTP = HTTPConfig{
        Port:            getEnv("PORT", "8080"),
        MaxUploadMB:     parseInt(getEnv("HTTP_MAX_UPLOAD_MB", "64"), 64),
        RateLimitRPS:    parseFloat(getEnv("HTTP_RATE_LIMIT_RPS", "5"), 5),
        RateLimitBurst:  parseInt(getEnv("HTTP_RATE_LIMIT_BURST", "20"), 20),
        ShutdownTimeout: parseDuration(getEnv("HTTP_SHUTDOWN_TIMEOUT", "15s"), 15*time.Second),
    }

    cfg.Compress = CompressConfig{
        AreaRatioThreshold: parseFloat(getEnv("COMPRESS_AREA_RATIO_THRESHOLD", "0.15"), 0.15),
        DownloadPrefix:     getEnv("DOWNLOAD_PREFIX", "compressed_"),
        ZipPrefix:          getEnv("ZIP_PREFIX", "compressed_pdfs_"),
        NoticeCapacity:     parseInt(getEnv("NOTICE_CAPACITY", "100"), 100),
        QueueSize:          parseInt(getEnv("RUNNER_QUEUE_SIZE", "64"), 64),
    }
    if cfg.Compress.AreaRatioThreshold <= 0 || cfg.Compress.AreaRatioThreshold > 1 { cfg.Compress.AreaRatioThreshold = 0.15 }

    cfg.Split = SplitConfig{
        BlankThreshold: parseInt(getEnv("SPLIT_BLANK_THRESHOLD", "50"), 50),
        PartTTL:        parseDuration(getEnv("SPLIT_PART_TTL", "1h"), time.Hour),
    }

    cfg.Store = StoreConfig{
        Backend:  strings.ToLower(getEnv("STORE_BACKEND", "memory")),
        RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
        Prefix:   getEnv("STORE_PREFIX", "filemend"),
        TTL:      parseDuration(getEnv("STORE_TTL", "24h"), 24*time.Hour),
    }

    cfg.Storage = StorageConfig{
        Backend:       strings.ToLower(getEnv("RESULT_BACKEND", "local")),
        Dir:           getEnv("RESULT_DIR", "data/files"),
        SweepInterval: parseDuration(getEnv("RESULT_SWEEP_INTERVAL", "10m"), 10*time.Minute),
        MaxAge:        parseDuration(getEnv("RESULT_MAX_AGE", "24h"), 24*time.Hour),
        S3: S3Config{
            Bucket:          getEnv("AWS_S3_BUCKET", ""),
            Prefix:          strings.Trim(getEnv("AWS_S3_PREFIX", "filemend"), "/"),
            Region:          getEnv("AWS_REGION", ""),
            Endpoint:        getEnv("AWS_S3_ENDPOINT", ""),
            AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
            SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
            PathStyle:       parseBool(getEnv("AWS_S3_PATH_STYLE", "false")),
            BreakerFailures: parseInt(getEnv("S3_BREAKER_FAILURES", "5"), 5),
            BreakerTimeout:  parseDuration(getEnv("S3_BREAKER_TIMEOUT", "30s"), 30*time.Second),
        },
    }

    return cfg
}

// Helpers
func getEnv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseInt(s string, def int) int {
    if s == "" { return def }
    if n, err := strconv.Atoi(s); err == nil { return n }
    return def
}

func parseFloat(s string, def float64) float64 {
    if s == "" { return def }
    if f, err := strconv.ParseFloat(s, 64); err == nil { return f }
    return def
}

func parseBool(s string) bool {
    v := strings.ToLower(strings.TrimSpace(s))
    return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
    if s == "" { return def }
    if d, err := time.ParseDuration(s); err == nil { return d }
    return def
}

func devDefaultPretty() string {
    env := strings.ToLower(os.Getenv("ENVIRONMENT"))
    if env == "dev" || env == "development" || env == "local" { return "true" }
    return "false"
}
