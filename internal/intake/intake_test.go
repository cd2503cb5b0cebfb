package intake

import (
	"errors"
	"testing"

	"github.com/local/filemend/internal/compress"
)

var pdfBytes = []byte("%PDF-1.4\n%fake\n")

func TestScreenRejectsNonPDF(t *testing.T) {
	res := NewScreener(nil).Screen([]File{
		{Name: "a.pdf", Data: pdfBytes},
		{Name: "photo.png", ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n")},
		{Name: "empty.pdf"},
	}, nil)

	if len(res.Accepted) != 1 || res.Accepted[0].Name != "a.pdf" {
		t.Fatalf("unexpected accepted %+v", res.Accepted)
	}
	if len(res.Rejected) != 2 {
		t.Fatalf("expected 2 rejections, got %+v", res.Rejected)
	}
	for _, r := range res.Rejected {
		if !errors.Is(r.Err, compress.ErrInvalidInput) || r.Duplicate() {
			t.Fatalf("unexpected rejection error %v", r.Err)
		}
	}
}

func TestScreenDuplicatesWithinBatch(t *testing.T) {
	res := NewScreener(nil).Screen([]File{
		{Name: "a.pdf", Data: pdfBytes},
		{Name: "a.pdf", Data: pdfBytes},
		{Name: "a.pdf", Data: append([]byte{}, append(pdfBytes, '\n')...)},
		{Name: "b.pdf", Data: pdfBytes},
	}, nil)

	if len(res.Accepted) != 3 {
		t.Fatalf("same name with another size is not a duplicate, got %d accepted", len(res.Accepted))
	}
	if len(res.Duplicates) != 1 || !res.Duplicates[0].Duplicate() {
		t.Fatalf("expected one duplicate, got %+v", res.Duplicates)
	}
	if !errors.Is(res.Duplicates[0].Err, compress.ErrInvalidInput) {
		t.Fatalf("duplicates are a kind of invalid input")
	}
}

func TestScreenDuplicatesAgainstExisting(t *testing.T) {
	existing := []Key{{Name: "a.pdf", Size: int64(len(pdfBytes))}}
	res := NewScreener(nil).Screen([]File{{Name: "a.pdf", Data: pdfBytes}, {Name: "c.pdf", Data: pdfBytes}}, existing)
	if len(res.Accepted) != 1 || res.Accepted[0].Name != "c.pdf" || len(res.Duplicates) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
}
