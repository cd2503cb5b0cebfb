package compress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	progressAnalyzed = 5
	progressLoaded   = 50
	progressPages    = 90
	progressDone     = 100
)

// Options wires the compressor to its PDF backends.
type Options struct {
	Analysis   AnalysisOpener
	Render     RenderOpener
	Assembler  Assembler
	Rasterizer *Rasterizer
	// AreaRatioThreshold defaults to DefaultAreaRatioThreshold.
	AreaRatioThreshold float64
}

// Compressor runs the per-document pipeline: analyze, pick a mode, copy or
// rasterize each page, reassemble.
type Compressor struct {
	analyzer  *Analyzer
	render    RenderOpener
	assembler Assembler
	raster    *Rasterizer
	now       func() time.Time
}

func New(opts Options) *Compressor {
	r := opts.Rasterizer
	if r == nil {
		r = NewRasterizer(nil)
	}
	return &Compressor{
		analyzer:  NewAnalyzer(opts.Analysis, opts.AreaRatioThreshold),
		render:    opts.Render,
		assembler: opts.Assembler,
		raster:    r,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Compress drives job from Pending to Done or Failed. The returned error is the
// job's failure cause; the job itself already carries it in ErrorMessage.
// A panic in a backend fails the job with ErrAssemblyFailed.
func (c *Compressor) Compress(ctx context.Context, job *FileJob, observe Observer) (err error) {
	if job.Status != StatusPending {
		return fmt.Errorf("%w: %s is %s", ErrNotPending, job.ID, job.Status)
	}
	if observe == nil {
		observe = func(FileJob) {}
	}
	notify := func() { observe(job.Snapshot()) }

	// Each backend may retain or invalidate the buffer it is given.
	analysisSrc := bytes.Clone(job.Source)
	renderSrc := bytes.Clone(job.Source)
	assemblySrc := bytes.Clone(job.Source)

	job.Status = StatusProcessing
	job.StartedAt = c.now()
	notify()

	logger := log.With().Str("job_id", job.ID).Str("file", job.Name).Logger()

	defer func() {
		if r := recover(); r != nil {
			err = stageErr("compress", 0, ErrAssemblyFailed, fmt.Errorf("panic: %v", r))
			c.fail(job, err)
			notify()
			logger.Error().Err(err).Msg("compression panicked")
		}
	}()

	analysis, err := c.analyzer.Analyze(ctx, analysisSrc)
	if err != nil {
		logger.Warn().Err(err).Msg("analysis degraded; using lossless")
		job.AnalysisDegraded = true
		analysis = Analysis{Mode: ModeLossless}
	}
	job.Mode = analysis.Mode
	job.Progress = progressAnalyzed
	notify()

	logger.Info().
		Str("mode", string(analysis.Mode)).
		Int("pages", len(analysis.Pages)).
		Int("text_heavy", analysis.TextHeavy).
		Msg("compression mode selected")

	var out []byte
	switch analysis.Mode {
	case ModeImage, ModeHybrid:
		out, err = c.rebuild(ctx, job, analysis, renderSrc, assemblySrc, notify)
	default:
		out, err = c.lossless(ctx, job, assemblySrc, notify)
	}
	if err != nil {
		c.fail(job, err)
		notify()
		logger.Error().Err(err).Msg("compression failed")
		return err
	}

	job.Result = out
	job.ResultSize = int64(len(out))
	job.CompressionRatio = Ratio(job.OriginalSize, job.ResultSize)
	job.Status = StatusDone
	job.Progress = progressDone
	job.FinishedAt = c.now()
	notify()

	logger.Info().
		Int64("original_size", job.OriginalSize).
		Int64("result_size", job.ResultSize).
		Float64("ratio", job.CompressionRatio).
		Int("copied", job.PagesCopied).
		Int("rasterized", job.PagesRasterized).
		Dur("elapsed", job.FinishedAt.Sub(job.StartedAt)).
		Msg("compression done")
	return nil
}

func (c *Compressor) lossless(ctx context.Context, job *FileJob, src []byte, notify func()) ([]byte, error) {
	job.Progress = progressLoaded
	notify()
	out, err := c.assembler.Optimize(ctx, src)
	if err != nil {
		return nil, stageErr("optimize", 0, ErrAssemblyFailed, err)
	}
	n, err := c.assembler.PageCount(ctx, out)
	if err != nil {
		return nil, stageErr("verify", 0, ErrAssemblyFailed, err)
	}
	job.PagesCopied = n
	return out, nil
}

func (c *Compressor) rebuild(ctx context.Context, job *FileJob, analysis Analysis, renderSrc, assemblySrc []byte, notify func()) ([]byte, error) {
	settings := SettingsFor(analysis.Mode)

	doc, err := c.render.Open(renderSrc)
	if err != nil {
		return nil, stageErr("open", 0, ErrRenderSurfaceUnavailable, err)
	}
	defer doc.Close()

	n := doc.NumPages()
	if n == 0 {
		return c.lossless(ctx, job, assemblySrc, notify)
	}

	builder, err := c.assembler.NewDocument(ctx, assemblySrc)
	if err != nil {
		return nil, stageErr("assemble", 0, ErrAssemblyFailed, err)
	}

	for i := 0; i < n; i++ {
		class := ImageHeavy
		if analysis.Mode == ModeHybrid {
			class = analysis.PageClass(i)
		}
		if class == TextHeavy {
			if err := builder.CopyPage(i); err != nil {
				return nil, stageErr("copy", i+1, ErrAssemblyFailed, err)
			}
			job.PagesCopied++
		} else {
			r, err := c.raster.Rasterize(doc, i, settings)
			if err != nil {
				return nil, stageErr("rasterize", i+1, nil, err)
			}
			if err := builder.AddImagePage(r.JPEG, analysis.PageSize(i, r.Size)); err != nil {
				return nil, stageErr("embed", i+1, ErrAssemblyFailed, err)
			}
			job.PagesRasterized++
		}
		job.Progress = progressAnalyzed + int(math.Round(float64(i+1)/float64(n)*progressPages))
		notify()
	}

	out, err := builder.Save(ctx)
	if err != nil {
		return nil, stageErr("save", 0, ErrAssemblyFailed, err)
	}
	return out, nil
}

// fail moves job to Failed and drops any partial output. Progress keeps its
// last value so it never decreases.
func (c *Compressor) fail(job *FileJob, err error) {
	job.Status = StatusFailed
	job.Result = nil
	job.ResultSize = 0
	job.CompressionRatio = 0
	job.ErrorMessage = err.Error()
	job.FinishedAt = c.now()
}

// Kind names the taxonomy bucket of a job error, for metrics and notices.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrRenderSurfaceUnavailable):
		return "render_surface_unavailable"
	case errors.Is(err, ErrEncodeFailed):
		return "encode_failed"
	case errors.Is(err, ErrAssemblyFailed):
		return "assembly_failed"
	case errors.Is(err, ErrAnalysisDegraded):
		return "analysis_degraded"
	default:
		return "internal"
	}
}
