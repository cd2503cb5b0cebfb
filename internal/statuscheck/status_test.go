package statuscheck

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestSummaryHealthy(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	c := New(Options{
		Store:          ok,
		StoreBackend:   "redis",
		Blobs:          ok,
		BlobBackend:    "local",
		MuPDFAvailable: func() bool { return true },
		QueueDepth:     func() int { return 2 },
	})
	s := c.Summary(context.Background())
	if !s.Healthy() {
		t.Fatalf("expected healthy summary, got %+v", s)
	}
	if s.Store.Message != "Connected (redis)" || s.Runner.Message != "Busy" {
		t.Fatalf("unexpected messages %+v", s)
	}
}

func TestSummaryFailures(t *testing.T) {
	long := strings.Repeat("x", 300)
	c := New(Options{
		Store: pingFunc(func(context.Context) error { return errors.New(long) }),
		Blobs: pingFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := c.Summary(ctx)
	if s.Healthy() {
		t.Fatalf("expected unhealthy summary")
	}
	if len(s.Store.Message) != 120 {
		t.Fatalf("error messages should be trimmed, got %d chars", len(s.Store.Message))
	}
	if s.MuPDF.OK || s.Runner.OK {
		t.Fatalf("missing checks must report not OK: %+v", s)
	}
	if s.Storage.OK || s.Storage.Message == "" {
		t.Fatalf("cancelled ping should fail: %+v", s.Storage)
	}
}
