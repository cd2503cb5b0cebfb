// Package archive bundles output files into ZIP archives.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// Entry is one file inside an archive.
type Entry struct {
	Name string
	Data []byte
}

// Bundle writes entries, in order, into a deflated ZIP archive.
func Bundle(entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, errors.New("archive: no entries")
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	now := time.Now()
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return nil, fmt.Errorf("archive: create %q: %w", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("archive: write %q: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("archive: close: %w", err)
	}
	return buf.Bytes(), nil
}

// Name returns prefix followed by the UTC calendar date of t and ".zip".
func Name(prefix string, t time.Time) string {
	return prefix + t.UTC().Format("2006-01-02") + ".zip"
}

// UniqueNames returns names with later repeats renamed "base (n).ext", n
// starting at 2. Comparison ignores case.
func UniqueNames(names []string) []string {
	seen := make(map[string]int, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		key := strings.ToLower(name)
		n := seen[key]
		seen[key] = n + 1
		if n == 0 {
			out[i] = name
			continue
		}
		ext := path.Ext(name)
		base := strings.TrimSuffix(name, ext)
		for {
			n++
			candidate := fmt.Sprintf("%s (%d)%s", base, n, ext)
			if ck := strings.ToLower(candidate); seen[ck] == 0 {
				seen[ck] = 1
				out[i] = candidate
				break
			}
		}
	}
	return out
}
