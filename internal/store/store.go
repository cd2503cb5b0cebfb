package store

import (
    "context"
    "errors"
    "sort"
    "sync"

    "github.com/local/filemend/internal/compress"
)

// ErrNotFound is returned when a job id is unknown.
var ErrNotFound = errors.New("job not found")

// JobStore keeps job records without their byte payloads. Implementations
// are safe for concurrent use.
type JobStore interface {
    Put(ctx context.Context, job compress.FileJob) error
    Get(ctx context.Context, id string) (compress.FileJob, error)
    // List returns every job in creation order.
    List(ctx context.Context) ([]compress.FileJob, error)
    // Delete reports whether the job existed.
    Delete(ctx context.Context, id string) (bool, error)
    Ping(ctx context.Context) error
    Close() error
}

// strip drops the byte payloads that live in blob storage.
func strip(j compress.FileJob) compress.FileJob {
    j.Source = nil
    j.Result = nil
    return j
}

// Memory is an in-process JobStore.
type Memory struct {
    mu   sync.RWMutex
    jobs map[string]compress.FileJob
}

func NewMemory() *Memory { return &Memory{jobs: make(map[string]compress.FileJob)} }

func (m *Memory) Put(_ context.Context, job compress.FileJob) error {
    if job.ID == "" { return errors.New("job id is required") }
    m.mu.Lock()
    m.jobs[job.ID] = strip(job)
    m.mu.Unlock()
    return nil
}

func (m *Memory) Get(_ context.Context, id string) (compress.FileJob, error) {
    m.mu.RLock()
    defer m.mu.RUnlock()
    j, ok := m.jobs[id]
    if !ok { return compress.FileJob{}, ErrNotFound }
    return j, nil
}

func (m *Memory) List(_ context.Context) ([]compress.FileJob, error) {
    m.mu.RLock()
    out := make([]compress.FileJob, 0, len(m.jobs))
    for _, j := range m.jobs {
        out = append(out, j)
    }
    m.mu.RUnlock()
    sortByCreation(out)
    return out, nil
}

func (m *Memory) Delete(_ context.Context, id string) (bool, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    _, ok := m.jobs[id]
    delete(m.jobs, id)
    return ok, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error               { return nil }

func sortByCreation(jobs []compress.FileJob) {
    sort.SliceStable(jobs, func(a, b int) bool {
        if !jobs[a].CreatedAt.Equal(jobs[b].CreatedAt) { return jobs[a].CreatedAt.Before(jobs[b].CreatedAt) }
        return jobs[a].ID < jobs[b].ID
    })
}
