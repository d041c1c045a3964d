// Package producer generates image payloads from prompts.
package producer

import (
	"context"
	"errors"
)

var (
	// ErrModelLoading means the model is warming up; the call can be retried.
	ErrModelLoading      = errors.New("model is loading")
	ErrRateLimited       = errors.New("rate limited")
	ErrInvalidCredential = errors.New("invalid producer credential")
	ErrEmptyResult       = errors.New("producer returned no image")
	ErrTransient         = errors.New("transient producer failure")
)

// Request describes one image to generate.
type Request struct {
	Prompt         string
	NegativePrompt string
	Style          string
	Seed           int64
}

// Result is a generated image.
type Result struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
	Model    string
}

// Producer turns a request into an image.
type Producer interface {
	Produce(ctx context.Context, req Request) (Result, error)
}

// Func adapts a function to Producer.
type Func func(ctx context.Context, req Request) (Result, error)

func (f Func) Produce(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
