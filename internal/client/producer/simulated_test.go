package producer

import (
	"bytes"
	"context"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulated_Produce(t *testing.T) {
	p := NewSimulated()

	res, err := p.Produce(context.Background(), Request{Prompt: "a lighthouse at dusk", Style: "realistic"})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", res.MimeType)
	assert.Equal(t, SimulatedModel, res.Model)
	assert.Equal(t, SimulatedSize, res.Width)
	assert.Equal(t, SimulatedSize, res.Height)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(res.Data))
	require.NoError(t, err)
	assert.Equal(t, SimulatedSize, cfg.Width)
	assert.Equal(t, SimulatedSize, cfg.Height)
}

func TestSimulated_Deterministic(t *testing.T) {
	p := &Simulated{Size: 16}
	req := Request{Prompt: "same", Seed: 7}

	a, err := p.Produce(context.Background(), req)
	require.NoError(t, err)
	b, err := p.Produce(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.Data, b.Data)

	req.Seed = 8
	c, err := p.Produce(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, a.Data, c.Data)
}

func TestSimulated_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulated().Produce(ctx, Request{Prompt: "x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestFunc(t *testing.T) {
	var got Request
	p := Func(func(_ context.Context, req Request) (Result, error) {
		got = req
		return Result{}, ErrRateLimited
	})

	_, err := p.Produce(context.Background(), Request{Prompt: "p"})
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, "p", got.Prompt)
}
