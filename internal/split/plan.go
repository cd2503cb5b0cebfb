package split

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/filemend/internal/compress"
)

// Mode selects a grouping strategy.
type Mode string

const (
	ModeEveryN    Mode = "every_n"
	ModeBySize    Mode = "by_size"
	ModeBookmarks Mode = "by_bookmarks"
	ModeBlank     Mode = "by_blank"
	ModePattern   Mode = "by_pattern"
	ModeRanges    Mode = "by_ranges"
	ModeManual    Mode = "manual"
)

// Request carries the parameters of one planning call. Only the fields the
// mode uses are read.
type Request struct {
	Mode           Mode    `json:"mode"`
	N              int     `json:"n,omitempty"`
	TargetMB       float64 `json:"target_mb,omitempty"`
	Pattern        string  `json:"pattern,omitempty"`
	Ranges         string  `json:"ranges,omitempty"`
	Pages          []int   `json:"pages,omitempty"`
	Name           string  `json:"name,omitempty"`
	BlankThreshold int     `json:"blank_threshold,omitempty"`
}

func (r Request) needsText() bool { return r.Mode == ModeBlank || r.Mode == ModePattern }

// Source is what an Inspector learned about a document. Texts and Bookmarks
// are only filled when asked for.
type Source struct {
	Pages     int
	Texts     []string
	Bookmarks []Bookmark
}

// Inspector reads page count, per-page text and the outline of a PDF.
type Inspector interface {
	Inspect(data []byte, text, outline bool) (Source, error)
}

// Plan is the outcome of a planning call.
type Plan struct {
	Mode       Mode       `json:"mode"`
	TotalPages int        `json:"total_pages"`
	Groups     []Group    `json:"groups"`
	Scans      []PageScan `json:"scans,omitempty"`
}

// Planner computes groups for a document.
type Planner struct {
	inspector      Inspector
	blankThreshold int
}

// NewPlanner returns a Planner. A non-positive blankThreshold means
// DefaultBlankThreshold.
func NewPlanner(inspector Inspector, blankThreshold int) *Planner {
	if blankThreshold <= 0 {
		blankThreshold = DefaultBlankThreshold
	}
	return &Planner{inspector: inspector, blankThreshold: blankThreshold}
}

// Plan inspects data and applies the strategy named by req.Mode.
func (p *Planner) Plan(_ context.Context, data []byte, req Request) (Plan, error) {
	switch req.Mode {
	case ModeEveryN, ModeBySize, ModeBookmarks, ModeBlank, ModePattern, ModeRanges, ModeManual:
	default:
		return Plan{}, fmt.Errorf("%w: unknown split mode %q", compress.ErrInvalidInput, req.Mode)
	}
	src, err := p.inspector.Inspect(data, req.needsText(), req.Mode == ModeBookmarks)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %w", compress.ErrInvalidInput, err)
	}
	if src.Pages <= 0 {
		return Plan{}, ErrEmptyDocument
	}

	in := Info{FileSize: int64(len(data)), TotalPages: src.Pages}
	plan := Plan{Mode: req.Mode, TotalPages: src.Pages}

	threshold := p.blankThreshold
	if req.BlankThreshold > 0 {
		threshold = req.BlankThreshold
	}
	if req.needsText() {
		plan.Scans = ScanPages(src.Texts, threshold)
	}

	switch req.Mode {
	case ModeEveryN:
		plan.Groups, err = EveryN(in, req.N)
	case ModeBySize:
		plan.Groups, err = BySize(in, req.TargetMB)
	case ModeBookmarks:
		plan.Groups, err = ByBookmarks(in, src.Bookmarks)
	case ModeBlank:
		plan.Groups, err = ByBlank(in, plan.Scans)
	case ModePattern:
		plan.Groups, err = ByPattern(in, plan.Scans, req.Pattern)
	case ModeRanges:
		plan.Groups, err = ByRanges(in, req.Ranges)
	case ModeManual:
		plan.Groups, err = Manual(in, req.Pages, req.Name)
	}
	if err != nil {
		return Plan{}, err
	}

	log.Debug().
		Str("mode", string(req.Mode)).
		Int("total_pages", src.Pages).
		Int("groups", len(plan.Groups)).
		Msg("split plan ready")
	return plan, nil
}

// Normalize checks client supplied groups against the document: pages are
// clamped, de-duplicated and sorted. Groups left empty are dropped and empty
// names become "Section N".
func Normalize(in Info, groups []Group) ([]Group, error) {
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		pages := normalizePages(g.Pages, in.TotalPages)
		if len(pages) == 0 {
			continue
		}
		name := strings.TrimSpace(g.Name)
		if name == "" {
			name = sectionName(len(out) + 1)
		}
		id := g.ID
		if id == "" {
			id = fmt.Sprintf("group-%d", len(out))
		}
		out = append(out, in.group(id, name, g.Reason, pages))
	}
	if len(out) == 0 {
		return nil, ErrNoGroups
	}
	return out, nil
}

// Describe returns the size and page count of data, for checking client
// supplied groups with Normalize.
func (p *Planner) Describe(data []byte) (Info, error) {
	src, err := p.inspector.Inspect(data, false, false)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %w", compress.ErrInvalidInput, err)
	}
	if src.Pages <= 0 {
		return Info{}, ErrEmptyDocument
	}
	return Info{FileSize: int64(len(data)), TotalPages: src.Pages}, nil
}
