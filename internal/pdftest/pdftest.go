// Package pdftest builds small, valid PDF documents for tests. Pages carry
// Courier text with an explicit /Widths array so every parser reports glyph
// geometry.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Letter is the US Letter page size in points.
var Letter = [2]float64{612, 792}

// Page describes one generated page.
type Page struct {
	Width    float64
	Height   float64
	FontSize float64
	Lines    []string
}

// Bookmark is a top-level outline entry pointing at a 1-based page.
type Bookmark struct {
	Title string
	Page  int
}

// Doc describes a generated document.
type Doc struct {
	Pages     []Page
	Bookmarks []Bookmark
}

// TextPage returns a Letter page densely filled with text.
func TextPage(label string) Page {
	lines := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		lines = append(lines, fmt.Sprintf("%s line %02d lorem ipsum dolor sit amet consectetur adipiscing elit sed do", label, i))
	}
	return Page{Width: Letter[0], Height: Letter[1], FontSize: 12, Lines: lines}
}

// BlankPage returns an empty Letter page.
func BlankPage() Page {
	return Page{Width: Letter[0], Height: Letter[1]}
}

// HeadingPage returns a Letter page with a single short line.
func HeadingPage(text string) Page {
	return Page{Width: Letter[0], Height: Letter[1], FontSize: 18, Lines: []string{text}}
}

// Pages builds a document from pages only.
func Pages(pages ...Page) []byte {
	return Build(Doc{Pages: pages})
}

// Build serializes d with a correct cross-reference table.
func Build(d Doc) []byte {
	w := &writer{}
	n := len(d.Pages)

	// Object layout: 1 catalog, 2 pages, 3 font, then page/content pairs, then outlines.
	pageObj := func(i int) int { return 4 + 2*i }
	contentObj := func(i int) int { return 5 + 2*i }
	outlinesObj := 4 + 2*n
	itemObj := func(i int) int { return outlinesObj + 1 + i }

	w.header()

	catalog := "<< /Type /Catalog /Pages 2 0 R"
	if len(d.Bookmarks) > 0 {
		catalog += fmt.Sprintf(" /Outlines %d 0 R /PageMode /UseOutlines", outlinesObj)
	}
	w.object(1, catalog+" >>")

	kids := make([]string, n)
	for i := range d.Pages {
		kids[i] = fmt.Sprintf("%d 0 R", pageObj(i))
	}
	w.object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))

	widths := strings.TrimSpace(strings.Repeat("600 ", 95))
	w.object(3, fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Courier /FirstChar 32 /LastChar 126 /Widths [%s] >>", widths))

	for i, p := range d.Pages {
		if p.Width == 0 || p.Height == 0 {
			p.Width, p.Height = Letter[0], Letter[1]
		}
		w.object(pageObj(i), fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %s %s] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>",
			num(p.Width), num(p.Height), contentObj(i)))
		w.stream(contentObj(i), content(p))
	}

	if len(d.Bookmarks) > 0 {
		last := len(d.Bookmarks) - 1
		w.object(outlinesObj, fmt.Sprintf("<< /Type /Outlines /First %d 0 R /Last %d 0 R /Count %d >>",
			itemObj(0), itemObj(last), len(d.Bookmarks)))
		for i, b := range d.Bookmarks {
			entry := fmt.Sprintf("<< /Title (%s) /Parent %d 0 R /Dest [%d 0 R /Fit]",
				escape(b.Title), outlinesObj, pageObj(b.Page-1))
			if i > 0 {
				entry += fmt.Sprintf(" /Prev %d 0 R", itemObj(i-1))
			}
			if i < last {
				entry += fmt.Sprintf(" /Next %d 0 R", itemObj(i+1))
			}
			w.object(itemObj(i), entry+" >>")
		}
	}

	return w.finish(1)
}

func content(p Page) string {
	if len(p.Lines) == 0 {
		return ""
	}
	size := p.FontSize
	if size <= 0 {
		size = 12
	}
	var b strings.Builder
	fmt.Fprintf(&b, "BT\n/F1 %s Tf\n%s TL\n36 %s Td\n", num(size), num(size*1.2), num(p.Height-36-size))
	for i, line := range p.Lines {
		if i > 0 {
			b.WriteString("T*\n")
		}
		fmt.Fprintf(&b, "(%s) Tj\n", escape(line))
	}
	b.WriteString("ET\n")
	return b.String()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

func num(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

type writer struct {
	buf     bytes.Buffer
	offsets map[int]int
	max     int
}

func (w *writer) header() {
	w.offsets = map[int]int{}
	w.buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
}

func (w *writer) object(id int, body string) {
	w.offsets[id] = w.buf.Len()
	if id > w.max {
		w.max = id
	}
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (w *writer) stream(id int, data string) {
	w.object(id, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(data), data))
}

func (w *writer) finish(root int) []byte {
	xref := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n0000000000 65535 f \n", w.max+1)
	for id := 1; id <= w.max; id++ {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", w.offsets[id])
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", w.max+1, root, xref)
	return w.buf.Bytes()
}
