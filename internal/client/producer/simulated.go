package producer

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/jpeg"
)

const (
	SimulatedModel = "offline-sd-lite"
	SimulatedSize  = 512
)

// Simulated renders a deterministic gradient for each prompt and seed. It
// needs no network and backs generation while the device is offline.
type Simulated struct {
	Size    int
	Quality int
}

func NewSimulated() *Simulated {
	return &Simulated{Size: SimulatedSize, Quality: 85}
}

func (s *Simulated) Produce(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	size := s.Size
	if size <= 0 {
		size = SimulatedSize
	}
	from, to := palette(req)

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			t := float64(x+y) / float64(2*(size-1))
			img.SetRGBA(x, y, color.RGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.quality()}); err != nil {
		return Result{}, fmt.Errorf("%w: encode: %v", ErrEmptyResult, err)
	}

	return Result{
		Data:     buf.Bytes(),
		MimeType: "image/jpeg",
		Width:    size,
		Height:   size,
		Model:    SimulatedModel,
	}, nil
}

func (s *Simulated) quality() int {
	if s.Quality <= 0 || s.Quality > 100 {
		return 85
	}
	return s.Quality
}

func palette(req Request) (color.RGBA, color.RGBA) {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s|%s|%d", req.Prompt, req.Style, req.Seed)
	sum := h.Sum64()

	from := color.RGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 255}
	to := color.RGBA{R: uint8(sum >> 24), G: uint8(sum >> 32), B: uint8(sum >> 40), A: 255}
	return from, to
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}
