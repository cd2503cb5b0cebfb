package filetype

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

const PDFMIME = "application/pdf"

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	Declared    string
	IsPDF       bool
	Description string
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect classifies an uploaded file. A file counts as PDF when the declared
// content type says so, when the name ends in .pdf, or when the magic bytes
// are those of a PDF.
func (d *Detector) Detect(name, declared string, data []byte) *FileTypeInfo {
	mtype := mimetype.Detect(data)
	info := &FileTypeInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
		Declared:  declared,
	}

	byMagic := mtype.Is(PDFMIME)
	byDeclared := strings.EqualFold(baseType(declared), PDFMIME)
	byName := strings.EqualFold(filepath.Ext(name), ".pdf")

	log.Debug().
		Str("file", name).
		Str("mime", info.MIMEType).
		Str("declared", declared).
		Bool("magic", byMagic).
		Msg("detected file type")

	info.IsPDF = byMagic || byDeclared || byName
	switch {
	case byMagic:
		info.Description = "PDF document"
	case info.IsPDF:
		// Accepted on name or declared type alone; parsing decides later.
		info.Description = "PDF document (unverified)"
		info.MIMEType = PDFMIME
		info.Extension = ".pdf"
	default:
		info.Description = "Unsupported file type: " + info.MIMEType
	}
	return info
}

// baseType strips parameters such as "; charset=binary".
func baseType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
