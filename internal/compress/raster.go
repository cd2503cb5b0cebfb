package compress

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"io"
	"math"

	"github.com/rs/zerolog/log"
)

// Raster is one encoded page image plus the physical size it must cover.
type Raster struct {
	JPEG        []byte
	Size        Size
	PixelWidth  int
	PixelHeight int
}

// EncodeFunc writes img as a lossy image at quality 1..100.
type EncodeFunc func(w io.Writer, img image.Image, quality int) error

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}

// Rasterizer renders pages to JPEG.
type Rasterizer struct {
	encode EncodeFunc
}

// NewRasterizer returns a JPEG rasterizer. A nil encode selects image/jpeg.
func NewRasterizer(encode EncodeFunc) *Rasterizer {
	if encode == nil {
		encode = encodeJPEG
	}
	return &Rasterizer{encode: encode}
}

// Rasterize renders page index of doc at s.Scale over an opaque white
// background and encodes it at s.Quality.
func (r *Rasterizer) Rasterize(doc PageRenderer, index int, s Settings) (Raster, error) {
	if err := s.Validate(); err != nil {
		return Raster{}, fmt.Errorf("%w: scale=%v quality=%v", err, s.Scale, s.Quality)
	}
	size, err := doc.PageSize(index)
	if err != nil {
		return Raster{}, fmt.Errorf("%w: page size: %w", ErrRenderSurfaceUnavailable, err)
	}
	src, err := doc.Render(index, s.Scale)
	if err != nil {
		return Raster{}, fmt.Errorf("%w: %w", ErrRenderSurfaceUnavailable, err)
	}
	if src == nil || src.Bounds().Empty() {
		return Raster{}, fmt.Errorf("%w: empty surface", ErrRenderSurfaceUnavailable)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := r.encode(&buf, canvas, jpegQuality(s.Quality)); err != nil {
		return Raster{}, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}

	log.Debug().
		Int("page", index+1).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Int("jpeg_size", buf.Len()).
		Float64("quality", s.Quality).
		Msg("rasterized page")

	return Raster{
		JPEG:        buf.Bytes(),
		Size:        size,
		PixelWidth:  bounds.Dx(),
		PixelHeight: bounds.Dy(),
	}, nil
}

func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}
