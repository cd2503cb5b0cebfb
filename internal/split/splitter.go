package split

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/filemend/internal/archive"
)

// ArchiveThreshold is the part count above which parts are zipped together.
const ArchiveThreshold = 3

// ArchivePrefix starts the name of a split archive.
const ArchivePrefix = "PDF_Split_"

// PageExtractor writes the given 0-based pages of src into a new document.
type PageExtractor interface {
	ExtractPages(ctx context.Context, src []byte, pages []int) ([]byte, error)
}

// Progress reports the percentage of groups written so far.
type Progress func(percent int)

// Part is one written group.
type Part struct {
	Name  string `json:"name"`
	Group string `json:"group"`
	Pages int    `json:"pages"`
	Size  int    `json:"size"`
	Data  []byte `json:"-"`
}

// Result holds the written parts and, past ArchiveThreshold parts, the ZIP
// bundling them.
type Result struct {
	Parts       []Part `json:"parts"`
	ArchiveName string `json:"archive_name,omitempty"`
	Archive     []byte `json:"-"`
}

// Splitter extracts planned groups into separate documents.
type Splitter struct {
	extractor PageExtractor
	now       func() time.Time
}

func NewSplitter(extractor PageExtractor) *Splitter {
	return &Splitter{extractor: extractor, now: time.Now}
}

// Split writes one document per group, in group order.
func (s *Splitter) Split(ctx context.Context, src []byte, groups []Group, progress Progress) (Result, error) {
	if len(groups) == 0 {
		return Result{}, ErrNoGroups
	}
	files := make([]string, len(groups))
	for i, g := range groups {
		files[i] = FileName(g.Name)
	}
	names := archive.UniqueNames(files)

	var res Result
	for i, g := range groups {
		if len(g.Pages) == 0 {
			return Result{}, fmt.Errorf("group %q: %w", g.Name, ErrEmptySelection)
		}
		data, err := s.extractor.ExtractPages(ctx, src, g.Pages)
		if err != nil {
			return Result{}, fmt.Errorf("group %q: %w", g.Name, err)
		}
		name := names[i]
		res.Parts = append(res.Parts, Part{Name: name, Group: g.ID, Pages: len(g.Pages), Size: len(data), Data: data})
		log.Debug().Str("part", name).Int("pages", len(g.Pages)).Int("bytes", len(data)).Msg("split part written")
		if progress != nil {
			progress(int(math.Round(float64(i+1) / float64(len(groups)) * 100)))
		}
	}

	if len(res.Parts) > ArchiveThreshold {
		entries := make([]archive.Entry, len(res.Parts))
		for i, p := range res.Parts {
			entries[i] = archive.Entry{Name: p.Name, Data: p.Data}
		}
		zipped, err := archive.Bundle(entries)
		if err != nil {
			return Result{}, err
		}
		res.Archive = zipped
		res.ArchiveName = archive.Name(ArchivePrefix, s.now())
	}
	return res, nil
}

var unsafeName = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_", `"`, "_", "<", "_", ">", "_", "|", "_",
)

// FileName turns a group name into a file name ending in ".pdf".
func FileName(name string) string {
	name = unsafeName.Replace(name)
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}
