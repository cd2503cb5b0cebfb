package storage

import (
    "context"
    "errors"
    "fmt"
    "io/fs"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/rs/zerolog/log"
)

// Local stores objects as files below a root directory.
type Local struct {
    root string
}

func NewLocal(dir string) (*Local, error) {
    if dir == "" { dir = filepath.Join("data", "files") }
    if err := os.MkdirAll(dir, 0o755); err != nil { return nil, fmt.Errorf("create storage dir: %w", err) }
    return &Local{root: dir}, nil
}

func (l *Local) path(key string) (string, error) {
    k, err := cleanKey(key)
    if err != nil { return "", err }
    return filepath.Join(l.root, filepath.FromSlash(k)), nil
}

// Put writes through a temp file and renames it into place.
func (l *Local) Put(_ context.Context, key string, data []byte) error {
    p, err := l.path(key)
    if err != nil { return err }
    if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil { return err }
    tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
    if err != nil { return err }
    if _, err := tmp.Write(data); err != nil {
        tmp.Close()
        os.Remove(tmp.Name())
        return err
    }
    if err := tmp.Close(); err != nil {
        os.Remove(tmp.Name())
        return err
    }
    return os.Rename(tmp.Name(), p)
}

func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
    p, err := l.path(key)
    if err != nil { return nil, err }
    b, err := os.ReadFile(p)
    if errors.Is(err, fs.ErrNotExist) { return nil, fmt.Errorf("%s: %w", key, ErrNotFound) }
    return b, err
}

func (l *Local) Delete(_ context.Context, key string) error {
    p, err := l.path(key)
    if err != nil { return err }
    if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) { return err }
    return nil
}

// Ping checks that the root is a writable directory.
func (l *Local) Ping(context.Context) error {
    f, err := os.CreateTemp(l.root, ".ping-*")
    if err != nil { return err }
    name := f.Name()
    f.Close()
    return os.Remove(name)
}

// Sweep removes objects below prefix older than maxAge and returns how many
// were removed. An empty prefix sweeps everything, including stale temp files.
func (l *Local) Sweep(prefix string, maxAge time.Duration) int {
    root := l.root
    if prefix != "" {
        k, err := cleanKey(prefix)
        if err != nil { return 0 }
        root = filepath.Join(l.root, filepath.FromSlash(k))
    }
    now := time.Now()
    removed := 0
    _ = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
        if err != nil || info == nil || info.IsDir() { return nil }
        if strings.HasPrefix(info.Name(), ".ping-") { return nil }
        if now.Sub(info.ModTime()) >= maxAge {
            if os.Remove(p) == nil { removed++ }
        }
        return nil
    })
    if removed > 0 { log.Info().Str("prefix", prefix).Int("removed", removed).Msg("swept expired objects") }
    return removed
}
