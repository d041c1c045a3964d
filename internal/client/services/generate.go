package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/client/models"
	"github.com/dmitrijs2005/gophgallery/internal/client/producer"
	"github.com/dmitrijs2005/gophgallery/internal/common"
	"github.com/dmitrijs2005/gophgallery/internal/logging"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultStyle          = "realistic"
	DefaultNegativePrompt = "blurry, low quality, distorted, deformed, ugly, bad anatomy"
	DefaultPromptPrefix   = "high quality, detailed, beautiful"

	MinPromptLength = 3
	MaxPromptLength = 500
)

// StyleModifiers maps a style name to the suffix appended to prompts.
var StyleModifiers = map[string]string{
	"realistic": ", photorealistic, high quality, detailed",
	"artistic":  ", artistic, creative, beautiful art style",
	"cartoon":   ", cartoon style, animated, colorful",
	"anime":     ", anime style, manga, japanese animation",
}

// GenerateRequest is a user's generation request.
type GenerateRequest struct {
	Prompt         string
	NegativePrompt string
	Style          string
	FolderID       string
	Seed           int64
}

// GenerationService produces an image and hands it to storage.
type GenerationService interface {
	Generate(ctx context.Context, ownerID string, req GenerateRequest) (*models.ImageRecord, error)
}

// GenerationOptions controls retries while the model is loading.
type GenerationOptions struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      logging.Logger
}

type generationService struct {
	producer producer.Producer
	storage  StorageService
	opts     GenerationOptions
	log      logging.Logger
}

func NewGenerationService(p producer.Producer, storage StorageService, opts GenerationOptions) GenerationService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = common.DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &generationService{
		producer: p,
		storage:  storage,
		opts:     opts,
		log:      log.With("component", "generation"),
	}
}

func (s *generationService) Generate(ctx context.Context, ownerID string, req GenerateRequest) (*models.ImageRecord, error) {
	original := strings.TrimSpace(req.Prompt)
	if n := len([]rune(original)); n < MinPromptLength || n > MaxPromptLength {
		return nil, fmt.Errorf("%w: prompt must be %d to %d characters", common.ErrInvalidRecord, MinPromptLength, MaxPromptLength)
	}
	style := req.Style
	if style == "" {
		style = DefaultStyle
	}
	if _, ok := StyleModifiers[style]; !ok {
		return nil, fmt.Errorf("%w: unknown style %q", common.ErrInvalidRecord, style)
	}

	preq := ProcessPrompt(original, style, req.NegativePrompt)
	preq.Seed = req.Seed

	var res producer.Result
	attempt := 0
	b := retry.WithMaxRetries(uint64(s.opts.MaxAttempts-1), retry.NewConstant(s.opts.RetryDelay))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		var err error
		res, err = s.producer.Produce(ctx, preq)
		if errors.Is(err, producer.ErrModelLoading) {
			s.log.Info(ctx, "model loading, retrying", "attempt", attempt)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}
	if len(res.Data) == 0 {
		return nil, producer.ErrEmptyResult
	}

	return s.storage.SaveImage(ctx, models.ImageInput{
		Data:     res.Data,
		MimeType: res.MimeType,
		Width:    res.Width,
		Height:   res.Height,
		Model:    res.Model,
		Prompt:   original,
		Style:    style,
	}, ownerID, req.FolderID)
}

// ProcessPrompt adds the quality prefix and style suffix to prompt and fills
// in the default negative prompt.
func ProcessPrompt(prompt, style, negative string) producer.Request {
	p := strings.TrimSpace(prompt)
	if !strings.Contains(strings.ToLower(p), "high quality") {
		p = DefaultPromptPrefix + ", " + p
	}
	p += StyleModifiers[style]
	if negative == "" {
		negative = DefaultNegativePrompt
	}
	return producer.Request{Prompt: p, NegativePrompt: negative, Style: style}
}
