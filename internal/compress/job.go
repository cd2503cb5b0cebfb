package compress

import "time"

// Status is the FileJob lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Terminal reports whether s is Done or Failed.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusFailed }

// FileJob tracks one accepted file through compression. Only the Compressor
// mutates a job once it is handed over; observers receive copies.
type FileJob struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Source       []byte    `json:"-"`
	OriginalSize int64     `json:"original_size"`
	Status       Status    `json:"status"`
	Progress     int       `json:"progress"`
	CreatedAt    time.Time `json:"created_at"`

	Result           []byte    `json:"-"`
	ResultSize       int64     `json:"result_size,omitempty"`
	CompressionRatio float64   `json:"compression_ratio"`
	Mode             Mode      `json:"mode,omitempty"`
	AnalysisDegraded bool      `json:"analysis_degraded,omitempty"`
	PagesCopied      int       `json:"pages_copied,omitempty"`
	PagesRasterized  int       `json:"pages_rasterized,omitempty"`
	ErrorMessage     string    `json:"error,omitempty"`
	StartedAt        time.Time `json:"started_at,omitzero"`
	FinishedAt       time.Time `json:"finished_at,omitzero"`
}

// NewFileJob creates a Pending job owning data.
func NewFileJob(id, name string, data []byte) *FileJob {
	return &FileJob{
		ID:           id,
		Name:         name,
		Source:       data,
		OriginalSize: int64(len(data)),
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
}

// Snapshot returns a copy without the source buffer. Result is shared; it is
// never modified after the job is Done.
func (j *FileJob) Snapshot() FileJob {
	c := *j
	c.Source = nil
	return c
}

// Observer is called after every job state or progress change with a Snapshot.
// It runs on the compressing goroutine.
type Observer func(j FileJob)

// Ratio returns (orig-result)/orig*100. It is negative when the output grew.
func Ratio(original, result int64) float64 {
	if original <= 0 {
		return 0
	}
	return float64(original-result) / float64(original) * 100
}
