package orchestrator

import (
	"sync"
	"time"

	"github.com/local/filemend/internal/metrics"
)

// NoticeKind classifies a notice.
type NoticeKind string

const (
	NoticeSuccess   NoticeKind = "success"
	NoticeError     NoticeKind = "error"
	NoticeDuplicate NoticeKind = "duplicate"
	NoticeRejected  NoticeKind = "rejected"
	NoticeInfo      NoticeKind = "info"
)

// Notice is a transient message for clients polling /notices.
type Notice struct {
	Seq     int64      `json:"seq"`
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	JobID   string     `json:"job_id,omitempty"`
	Time    time.Time  `json:"time"`
}

// Notices is a fixed-size ring of recent notices.
type Notices struct {
	mu   sync.Mutex
	buf  []Notice
	next int
	full bool
	seq  int64
}

func NewNotices(capacity int) *Notices {
	if capacity <= 0 {
		capacity = 100
	}
	return &Notices{buf: make([]Notice, capacity)}
}

// Push records a notice, overwriting the oldest when the ring is full.
func (n *Notices) Push(kind NoticeKind, jobID, msg string) Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	nt := Notice{Seq: n.seq, Kind: kind, Message: msg, JobID: jobID, Time: time.Now().UTC()}
	n.buf[n.next] = nt
	n.next = (n.next + 1) % len(n.buf)
	if n.next == 0 {
		n.full = true
	}
	metrics.IncNotice(string(kind))
	return nt
}

// Since returns retained notices with Seq greater than seq, oldest first.
func (n *Notices) Since(seq int64) []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	start, count := 0, n.next
	if n.full {
		start, count = n.next, len(n.buf)
	}
	out := make([]Notice, 0, count)
	for i := 0; i < count; i++ {
		nt := n.buf[(start+i)%len(n.buf)]
		if nt.Seq > seq {
			out = append(out, nt)
		}
	}
	return out
}
