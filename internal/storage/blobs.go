// Package storage keeps source and result bytes outside the job records.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrNotFound is returned when a key holds no object.
var ErrNotFound = errors.New("object not found")

// Blobs stores opaque byte objects under slash-separated keys.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete succeeds when the key is already absent.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// SourceKey, ResultKey and PartKey name the objects of a job or split run.
func SourceKey(jobID string) string { return "source/" + jobID }
func ResultKey(jobID string) string { return "result/" + jobID }
func PartKey(splitID, name string) string {
	return "split/" + splitID + "/" + name
}

// cleanKey rejects keys that would escape the storage root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	c := path.Clean(key)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return c, nil
}
