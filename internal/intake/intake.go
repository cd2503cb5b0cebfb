// Package intake decides which uploaded files become compression jobs.
package intake

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/filemend/internal/compress"
	"github.com/local/filemend/internal/filetype"
)

// File is one uploaded file.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func (f File) key() Key { return Key{Name: f.Name, Size: int64(len(f.Data))} }

// Key identifies a file for duplicate detection.
type Key struct {
	Name string
	Size int64
}

// Rejection explains why a file was not accepted. Err wraps
// compress.ErrInvalidInput or compress.ErrDuplicate.
type Rejection struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (r Rejection) Duplicate() bool { return errors.Is(r.Err, compress.ErrDuplicate) }

// Result splits a batch into accepted files, non-PDF rejections and skipped
// duplicates. Accepted keeps upload order.
type Result struct {
	Accepted   []File      `json:"-"`
	Rejected   []Rejection `json:"rejected"`
	Duplicates []Rejection `json:"duplicates"`
}

// Screener applies the intake rules.
type Screener struct {
	detector *filetype.Detector
}

func NewScreener(detector *filetype.Detector) *Screener {
	if detector == nil {
		detector = filetype.New()
	}
	return &Screener{detector: detector}
}

// Screen checks files against each other and against existing, the keys of
// files already held. A rejected file never blocks the others.
func (s *Screener) Screen(files []File, existing []Key) Result {
	seen := make(map[Key]struct{}, len(existing)+len(files))
	for _, k := range existing {
		seen[k] = struct{}{}
	}

	var res Result
	for _, f := range files {
		k := f.key()
		if len(f.Data) == 0 {
			res.Rejected = append(res.Rejected, reject(k, "file is empty", compress.ErrInvalidInput))
			continue
		}
		info := s.detector.Detect(f.Name, f.ContentType, f.Data)
		if !info.IsPDF {
			res.Rejected = append(res.Rejected, reject(k, "not a PDF ("+info.MIMEType+")", compress.ErrInvalidInput))
			continue
		}
		if _, dup := seen[k]; dup {
			res.Duplicates = append(res.Duplicates, reject(k, "duplicate skipped", compress.ErrDuplicate))
			continue
		}
		seen[k] = struct{}{}
		res.Accepted = append(res.Accepted, f)
	}

	log.Info().
		Int("accepted", len(res.Accepted)).
		Int("rejected", len(res.Rejected)).
		Int("duplicates", len(res.Duplicates)).
		Msg("intake screened")
	return res
}

func reject(k Key, reason string, kind error) Rejection {
	return Rejection{
		Name:   k.Name,
		Size:   k.Size,
		Reason: reason,
		Err:    fmt.Errorf("%w: %s: %s", kind, k.Name, strings.TrimSpace(reason)),
	}
}
