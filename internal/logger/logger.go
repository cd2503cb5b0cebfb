// Package logger configures the global zerolog logger: JSON or console lines,
// a rotated log file, and optional shipping to an Axiom dataset.
package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultService = "filemend"
	// shipBuffer is the number of events held for Axiom; the client sends a
	// batch once it fills or after a second.
	shipBuffer = 512
)

// Rotation limits the size and age of rotated log files.
type Rotation struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomOptions selects the dataset log events are shipped to.
type AxiomOptions struct {
	APIKey  string
	OrgID   string
	Dataset string
	// Drain bounds how long Close waits for buffered events.
	Drain time.Duration
}

type Options struct {
	Service string
	Level   string
	Pretty  bool
	// Console receives every line; nil means stdout.
	Console io.Writer
	// File is the log file path; empty disables file output.
	File   string
	Rotate Rotation
	// Axiom is nil when logs stay local.
	Axiom *AxiomOptions
}

var shipper *axiomShipper

// Init replaces the global logger. A failing Axiom setup is reported on
// stderr and logging continues locally.
func Init(opts Options) error {
	if opts.Service == "" {
		opts.Service = defaultService
	}
	writers, err := localWriters(opts)
	if err != nil {
		return err
	}
	if opts.Axiom != nil && opts.Axiom.APIKey != "" {
		s, err := startShipper(opts.Service, *opts.Axiom)
		if err != nil {
			fmt.Fprintf(os.Stderr, "axiom logging disabled: %v\n", err)
		} else {
			shipper = s
			writers = append(writers, s)
		}
	}

	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().Timestamp().Str("service", opts.Service).
		Logger()
	return nil
}

func localWriters(opts Options) ([]io.Writer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	if opts.Pretty {
		console = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}
	}
	writers := []io.Writer{console}
	if opts.File == "" {
		return writers, nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return append(writers, &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.Rotate.MaxSizeMB,
		MaxBackups: opts.Rotate.MaxBackups,
		MaxAge:     opts.Rotate.MaxAgeDays,
		Compress:   opts.Rotate.Compress,
	}), nil
}

// Close flushes events still buffered for Axiom.
func Close() {
	if shipper != nil {
		shipper.Close()
		shipper = nil
	}
}

// axiomShipper is an io.Writer feeding log lines into the client's channel
// ingestion. Lines are dropped while the buffer is full or after Close.
type axiomShipper struct {
	service string
	drain   time.Duration
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
	events chan axiom.Event
}

func startShipper(service string, opts AxiomOptions) (*axiomShipper, error) {
	clientOpts := []axiom.Option{axiom.SetToken(opts.APIKey)}
	if opts.OrgID != "" {
		clientOpts = append(clientOpts, axiom.SetOrganizationID(opts.OrgID))
	}
	client, err := axiom.NewClient(clientOpts...)
	if err != nil {
		return nil, err
	}
	dataset := opts.Dataset
	if dataset == "" {
		dataset = "dev_" + service
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &axiomShipper{
		service: service,
		drain:   opts.Drain,
		cancel:  cancel,
		done:    make(chan struct{}),
		events:  make(chan axiom.Event, shipBuffer),
	}
	go func() {
		defer close(s.done)
		if _, err := client.IngestChannel(ctx, dataset, s.events); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "axiom ingest stopped: %v\n", err)
		}
	}()
	return s, nil
}

func (s *axiomShipper) Write(p []byte) (int, error) {
	ev := toEvent(p, s.service)
	if ev == nil {
		return len(p), nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return len(p), nil
	}
	select {
	case s.events <- ev:
	default:
	}
	return len(p), nil
}

// Close stops accepting lines and waits up to the drain timeout for the
// buffered ones to be sent.
func (s *axiomShipper) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	drain := s.drain
	if drain <= 0 {
		drain = 10 * time.Second
	}
	timer := time.NewTimer(drain)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		s.cancel()
		<-s.done
	}
	s.cancel()
}

// toEvent decodes one zerolog line. Debug lines are not shipped and yield nil.
// Lines that are not JSON are shipped as info messages.
func toEvent(line []byte, service string) axiom.Event {
	ev := axiom.Event{}
	if err := json.Unmarshal(line, &ev); err != nil {
		ev = axiom.Event{"level": "info", "message": string(line)}
	}
	if ev["level"] == zerolog.LevelDebugValue || ev["level"] == zerolog.LevelTraceValue {
		return nil
	}
	if _, ok := ev["service"]; !ok {
		ev["service"] = service
	}
	if ts, ok := ev[zerolog.TimestampFieldName]; ok {
		ev[ingest.TimestampField] = ts
		delete(ev, zerolog.TimestampFieldName)
	} else {
		ev[ingest.TimestampField] = time.Now().UTC()
	}
	return ev
}
