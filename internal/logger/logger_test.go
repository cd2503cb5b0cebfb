package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog/log"
)

func TestInitWritesFileAndConsole(t *testing.T) {
	var console bytes.Buffer
	file := filepath.Join(t.TempDir(), "logs", "app.log")
	if err := Init(Options{Level: "info", File: file, Console: &console, Service: "filemend-test"}); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(Close)

	log.Debug().Msg("hidden")
	log.Info().Str("job_id", "j1").Msg("job queued")

	var ev map[string]any
	line := strings.TrimSpace(console.String())
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", line, err)
	}
	if ev["service"] != "filemend-test" || ev["job_id"] != "j1" || ev["message"] != "job queued" {
		t.Fatalf("unexpected event %v", ev)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "job queued") {
		t.Fatalf("log file missing entry")
	}
}

func TestShipperDropsDebugAndTagsService(t *testing.T) {
	s := &axiomShipper{service: "filemend", events: make(chan axiom.Event, 4)}

	_, _ = s.Write([]byte(`{"level":"debug","message":"noise"}`))
	_, _ = s.Write([]byte(`{"level":"info","message":"kept","time":"2025-06-30T08:00:00Z"}`))
	_, _ = s.Write([]byte(`not json`))

	if got := len(s.events); got != 2 {
		t.Fatalf("expected 2 shipped events, got %d", got)
	}
	ev := <-s.events
	if ev["message"] != "kept" || ev["service"] != "filemend" {
		t.Fatalf("unexpected event %v", ev)
	}
	if ev[ingest.TimestampField] != "2025-06-30T08:00:00Z" || ev["time"] != nil {
		t.Fatalf("line time should become the event timestamp, got %v", ev)
	}
	ev = <-s.events
	if ev["message"] != "not json" || ev["level"] != "info" {
		t.Fatalf("raw lines should ship as info messages, got %v", ev)
	}
}

func TestShipperCloseDrainsAndStopsAccepting(t *testing.T) {
	s := &axiomShipper{
		service: "filemend",
		drain:   time.Second,
		cancel:  func() {},
		done:    make(chan struct{}),
		events:  make(chan axiom.Event, 4),
	}
	var shipped []axiom.Event
	go func() {
		defer close(s.done)
		for ev := range s.events {
			shipped = append(shipped, ev)
		}
	}()

	_, _ = s.Write([]byte(`{"level":"warn","message":"last words"}`))
	s.Close()
	if n, err := s.Write([]byte(`{"level":"error","message":"late"}`)); n == 0 || err != nil {
		t.Fatalf("write after close should be ignored, got %d %v", n, err)
	}
	s.Close()

	if len(shipped) != 1 || shipped[0]["message"] != "last words" {
		t.Fatalf("expected buffered event to be drained, got %v", shipped)
	}
}
