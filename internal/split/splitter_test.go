package split

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

type fakeExtractor struct {
	calls [][]int
	fail  bool
}

func (f *fakeExtractor) ExtractPages(_ context.Context, _ []byte, pages []int) ([]byte, error) {
	if f.fail {
		return nil, errors.New("boom")
	}
	f.calls = append(f.calls, pages)
	return []byte(fmt.Sprintf("%%PDF pages=%v", pages)), nil
}

func TestFileName(t *testing.T) {
	cases := map[string]string{
		`a/b\c:d*e?f"g<h>i|j`: "a_b_c_d_e_f_g_h_i_j.pdf",
		"Report.PDF":          "Report.PDF",
		"Section 1":           "Section 1.pdf",
	}
	for in, want := range cases {
		if got := FileName(in); got != want {
			t.Fatalf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSplitLooseParts(t *testing.T) {
	ext := &fakeExtractor{}
	s := NewSplitter(ext)
	var progress []int
	groups := []Group{
		{ID: "a", Name: "Intro", Pages: []int{0, 1}},
		{ID: "b", Name: "intro", Pages: []int{2}},
		{ID: "c", Name: "Intro", Pages: []int{3}},
	}
	res, err := s.Split(context.Background(), []byte("src"), groups, func(p int) { progress = append(progress, p) })
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if res.Archive != nil || res.ArchiveName != "" {
		t.Fatalf("three parts must not be zipped")
	}
	var names []string
	for _, p := range res.Parts {
		names = append(names, p.Name)
	}
	if want := []string{"Intro.pdf", "intro (2).pdf", "Intro (3).pdf"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	if want := []int{33, 67, 100}; !reflect.DeepEqual(progress, want) {
		t.Fatalf("expected progress %v, got %v", want, progress)
	}
	if len(ext.calls) != 3 || res.Parts[0].Pages != 2 {
		t.Fatalf("unexpected extraction calls %v", ext.calls)
	}
}

func TestSplitZipsMoreThanThreeParts(t *testing.T) {
	s := NewSplitter(&fakeExtractor{})
	s.now = func() time.Time { return time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC) }
	groups, _ := EveryN(Info{TotalPages: 4}, 1)

	res, err := s.Split(context.Background(), []byte("src"), groups, nil)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if res.ArchiveName != "PDF_Split_2025-01-02.zip" {
		t.Fatalf("unexpected archive name %q", res.ArchiveName)
	}
	zr, err := zip.NewReader(bytes.NewReader(res.Archive), int64(len(res.Archive)))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	if len(zr.File) != 4 || zr.File[3].Name != "Section 4.pdf" {
		t.Fatalf("unexpected archive entries")
	}
}

func TestSplitErrors(t *testing.T) {
	if _, err := NewSplitter(&fakeExtractor{}).Split(context.Background(), nil, nil, nil); !errors.Is(err, ErrNoGroups) {
		t.Fatalf("expected ErrNoGroups, got %v", err)
	}
	_, err := NewSplitter(&fakeExtractor{fail: true}).Split(context.Background(), nil, []Group{{Name: "x", Pages: []int{0}}}, nil)
	if err == nil {
		t.Fatalf("expected extraction error")
	}
}

type fakeInspector struct {
	src  Source
	err  error
	text bool
}

func (f *fakeInspector) Inspect(_ []byte, text, _ bool) (Source, error) {
	f.text = text
	return f.src, f.err
}

func TestPlannerDispatch(t *testing.T) {
	insp := &fakeInspector{src: Source{Pages: 4, Texts: []string{"a", "Chapter 2", "b", "chapter 3"}}}
	p := NewPlanner(insp, 0)

	plan, err := p.Plan(context.Background(), make([]byte, 4096), Request{Mode: ModePattern, Pattern: "chapter"})
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if !insp.text || len(plan.Groups) != 3 || len(plan.Scans) != 4 {
		t.Fatalf("unexpected plan %+v", plan)
	}

	plan, err = p.Plan(context.Background(), nil, Request{Mode: ModeEveryN, N: 2})
	if err != nil || insp.text || len(plan.Groups) != 2 {
		t.Fatalf("every n plan: %+v %v", plan, err)
	}

	if _, err := p.Plan(context.Background(), nil, Request{Mode: "sideways"}); err == nil {
		t.Fatalf("expected unknown mode error")
	}

	empty := NewPlanner(&fakeInspector{}, 0)
	if _, err := empty.Plan(context.Background(), nil, Request{Mode: ModeEveryN, N: 1}); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestDescribeFeedsNormalize(t *testing.T) {
	p := NewPlanner(&fakeInspector{src: Source{Pages: 3}}, 0)
	in, err := p.Describe(make([]byte, 3<<20))
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	groups, err := Normalize(in, []Group{{Pages: []int{2, 9, 0, 2}}, {Name: "empty", Pages: []int{7}}})
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(groups) != 1 || groups[0].Name != "Section 1" || len(groups[0].Pages) != 2 || groups[0].EstimatedSizeMB != 2 {
		t.Fatalf("unexpected groups %+v", groups)
	}
	if _, err := NewPlanner(&fakeInspector{}, 0).Describe(nil); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}
