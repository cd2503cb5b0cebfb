package compress

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func TestRasterizeCompositesOverWhite(t *testing.T) {
	enc := &recordingEncoder{}
	r := NewRasterizer(enc.encode)

	out, err := r.Rasterize(&fakeRenderer{pages: 1}, 0, Settings{Scale: 1, Quality: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Size != (Size{Width: 612, Height: 792}) {
		t.Fatalf("unexpected size: %+v", out.Size)
	}
	if out.PixelWidth != 8 || out.PixelHeight != 10 {
		t.Fatalf("unexpected pixels: %dx%d", out.PixelWidth, out.PixelHeight)
	}
	if enc.qualities[0] != 50 {
		t.Fatalf("expected quality 50, got %d", enc.qualities[0])
	}
	bg := color.RGBAModel.Convert(enc.last.At(5, 5)).(color.RGBA)
	if bg != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("expected opaque white background, got %+v", bg)
	}
	fg := color.RGBAModel.Convert(enc.last.At(1, 1)).(color.RGBA)
	if fg != (color.RGBA{R: 255, A: 255}) {
		t.Fatalf("expected page content kept, got %+v", fg)
	}
}

func TestRasterizeDefaultEncoderProducesJPEG(t *testing.T) {
	out, err := NewRasterizer(nil).Rasterize(&fakeRenderer{pages: 1}, 0, Settings{Scale: 1, Quality: 0.6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.JPEG))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 10 {
		t.Fatalf("unexpected jpeg size %dx%d", cfg.Width, cfg.Height)
	}
}

func TestRasterizeErrors(t *testing.T) {
	renderFail := &fakeRenderer{pages: 1, renderErr: map[int]error{0: errors.New("no surface")}}
	if _, err := NewRasterizer(nil).Rasterize(renderFail, 0, Settings{Scale: 1, Quality: 0.5}); !errors.Is(err, ErrRenderSurfaceUnavailable) {
		t.Fatalf("expected ErrRenderSurfaceUnavailable, got %v", err)
	}

	enc := &recordingEncoder{failOn: 1}
	if _, err := NewRasterizer(enc.encode).Rasterize(&fakeRenderer{pages: 1}, 0, Settings{Scale: 1, Quality: 0.5}); !errors.Is(err, ErrEncodeFailed) {
		t.Fatalf("expected ErrEncodeFailed, got %v", err)
	}
}

func TestRasterizeRejectsInvalidSettings(t *testing.T) {
	for _, s := range []Settings{{Scale: 1, Quality: 0}, {Scale: 1, Quality: 1.2}, {Scale: 0, Quality: 0.5}, {Scale: -1, Quality: 0.5}} {
		if _, err := NewRasterizer(nil).Rasterize(&fakeRenderer{pages: 1}, 0, s); !errors.Is(err, ErrInvalidSettings) {
			t.Fatalf("%+v: expected ErrInvalidSettings, got %v", s, err)
		}
	}
}

type emptyRenderer struct{ *fakeRenderer }

func (emptyRenderer) Render(int, float64) (image.Image, error) {
	return image.NewRGBA(image.Rectangle{}), nil
}

func TestRasterizeEmptySurface(t *testing.T) {
	_, err := NewRasterizer(nil).Rasterize(emptyRenderer{&fakeRenderer{pages: 1}}, 0, Settings{Scale: 1, Quality: 0.5})
	if !errors.Is(err, ErrRenderSurfaceUnavailable) {
		t.Fatalf("expected ErrRenderSurfaceUnavailable, got %v", err)
	}
}

func TestSettingsTable(t *testing.T) {
	if s := SettingsFor(ModeImage); s != (Settings{Scale: 1, Quality: 0.5}) {
		t.Fatalf("image: %+v", s)
	}
	if s := SettingsFor(ModeHybrid); s != (Settings{Scale: 1, Quality: 0.6}) {
		t.Fatalf("hybrid: %+v", s)
	}
	if s := SettingsFor(ModeLossless); s != (Settings{Scale: 1, Quality: 0.6}) {
		t.Fatalf("lossless: %+v", s)
	}
}
