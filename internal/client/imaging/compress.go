// Package imaging shrinks large image payloads before they are stored.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultThreshold    = 1 << 20
	DefaultMaxDimension = 1024
	DefaultQuality      = 80
	DefaultMaxPixels    = 40_000_000
)

// ErrTooManyPixels is returned for images whose header declares more pixels
// than Options.MaxPixels. Nothing is decoded in that case.
var ErrTooManyPixels = errors.New("image exceeds pixel limit")

// Options controls when and how payloads are recompressed.
type Options struct {
	// Threshold is the payload size in bytes above which compression runs.
	Threshold int
	// MaxDimension bounds the longer side of the output.
	MaxDimension int
	// Quality is the JPEG quality, 1..100.
	Quality int
	// MaxPixels bounds width*height of an image that will be decoded.
	MaxPixels int64
}

func DefaultOptions() Options {
	return Options{
		Threshold:    DefaultThreshold,
		MaxDimension: DefaultMaxDimension,
		Quality:      DefaultQuality,
		MaxPixels:    DefaultMaxPixels,
	}
}

// Result is a payload after Compress.
type Result struct {
	Data         []byte
	MimeType     string
	Width        int
	Height       int
	Compressed   bool
	OriginalSize int64
}

// Compressor recompresses oversized payloads to JPEG.
type Compressor struct {
	opts Options
}

// NewCompressor fills zero options with defaults.
func NewCompressor(opts Options) *Compressor {
	def := DefaultOptions()
	if opts.Threshold <= 0 {
		opts.Threshold = def.Threshold
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = def.MaxDimension
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = def.Quality
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = def.MaxPixels
	}
	return &Compressor{opts: opts}
}

// Compress returns data unchanged when it is within the threshold. Larger
// payloads are decoded, scaled so the longer side is at most MaxDimension and
// re-encoded as JPEG.
func (c *Compressor) Compress(data []byte, mimeType string, width, height int) (Result, error) {
	res := Result{
		Data:         data,
		MimeType:     mimeType,
		Width:        width,
		Height:       height,
		OriginalSize: int64(len(data)),
	}
	if len(data) <= c.opts.Threshold {
		return res, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decode image header: %w", err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > c.opts.MaxPixels {
		return Result{}, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), c.opts.MaxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.opts.Quality}); err != nil {
		return Result{}, fmt.Errorf("encode jpeg: %w", err)
	}

	res.Data = buf.Bytes()
	res.MimeType = "image/jpeg"
	res.Width, res.Height = w, h
	res.Compressed = true
	return res, nil
}

// FitWithin scales w×h so that neither side exceeds max, keeping the aspect
// ratio. Images already small enough are returned as is.
func FitWithin(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		nh := h * max / w
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := w * max / h
	if nw < 1 {
		nw = 1
	}
	return nw, max
}
