package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/autoposter/pkg/domain"
	"github.com/umputun/autoposter/pkg/image"
	"github.com/umputun/autoposter/pkg/llm"
)

//go:generate moq -out mocks/source.go -pkg mocks -skip-ensure -fmt goimports . Source
//go:generate moq -out mocks/text_generator.go -pkg mocks -skip-ensure -fmt goimports . TextGenerator
//go:generate moq -out mocks/image_generator.go -pkg mocks -skip-ensure -fmt goimports . ImageGenerator
//go:generate moq -out mocks/formatter.go -pkg mocks -skip-ensure -fmt goimports . Formatter

const resampleHint = "A previous draft repeated a recent post. Make this one substantially different " +
	"in structure, headline and examples."

// Source provides content seeds
type Source interface {
	Next(ctx context.Context, s domain.Settings) (*domain.Seed, error)
}

// TextGenerator drafts posts and image prompts
type TextGenerator interface {
	GeneratePost(ctx context.Context, req llm.PostRequest) (string, error)
	GenerateImagePrompt(ctx context.Context, ep llm.Endpoint, text string) (string, error)
}

// ImageGenerator makes illustrations
type ImageGenerator interface {
	Generate(ctx context.Context, req image.Request) (*domain.Image, error)
}

// Formatter turns drafts into captions
type Formatter interface {
	Format(raw, tone, topic, mood string) string
	ToneDescription(tone string) string
}

// PostBuilder runs the content pipeline: seed, draft, dedup, format, image
type PostBuilder struct {
	sources   []Source
	text      TextGenerator
	images    ImageGenerator
	formatter Formatter
	attempts  int
}

// PostBuilderParams contains dependencies for PostBuilder
type PostBuilderParams struct {
	Sources          []Source // tried in order, the first seed wins
	Text             TextGenerator
	Images           ImageGenerator
	Formatter        Formatter
	ResampleAttempts int
}

// NewPostBuilder makes content pipeline
func NewPostBuilder(params PostBuilderParams) *PostBuilder {
	attempts := params.ResampleAttempts
	if attempts < 1 {
		attempts = 3
	}
	return &PostBuilder{
		sources:   params.Sources,
		text:      params.Text,
		images:    params.Images,
		formatter: params.Formatter,
		attempts:  attempts,
	}
}

// BuildPost composes a post for current settings. Returns nil without error if there is nothing to post
// (no seed, empty draft or incomplete provider config). If every draft collides with a recent post and
// force is false, returns domain.ErrDuplicate.
func (b *PostBuilder) BuildPost(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
	if s.OpenAIKey == "" {
		lgr.Printf("[WARN] openai key is not set, nothing to post")
		return nil, nil
	}

	seed, err := b.seed(ctx, s)
	if err != nil {
		return nil, err
	}
	if seed == nil {
		lgr.Printf("[INFO] no content seed, nothing to post")
		return nil, nil
	}

	req := llm.PostRequest{
		Endpoint: TextEndpoint(s),
		Seed:     *seed,
		Topic:    s.Topic,
		Tone:     b.formatter.ToneDescription(s.Tone),
		Mood:     s.Mood,
	}

	var draft, hash string
	for attempt := 1; attempt <= b.attempts; attempt++ {
		req.Hint = ""
		if attempt > 1 {
			req.Hint = resampleHint
		}
		draft, err = b.text.GeneratePost(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("generate draft: %w", err)
		}
		if draft == "" {
			lgr.Printf("[WARN] empty draft for %q", seed.Title)
			return nil, nil
		}
		hash = ContentHash(seed.ID, draft)
		if force || !s.HasHash(hash) {
			break
		}
		lgr.Printf("[INFO] draft %d/%d repeats a recent post", attempt, b.attempts)
		if attempt == b.attempts {
			return nil, fmt.Errorf("no unique draft after %d attempts: %w", b.attempts, domain.ErrDuplicate)
		}
	}

	post := &domain.PostPackage{
		Text: b.formatter.Format(draft, s.Tone, s.Topic, s.Mood),
		Seed: *seed,
		Hash: hash,
	}
	post.Image = b.illustrate(ctx, s, seed, draft)
	return post, nil
}

// seed asks sources in order, errors are fatal only if no source returned a seed
func (b *PostBuilder) seed(ctx context.Context, s domain.Settings) (*domain.Seed, error) {
	var errs []error
	for _, src := range b.sources {
		seed, err := src.Next(ctx, s)
		if err != nil {
			lgr.Printf("[WARN] content source failed: %v", err)
			errs = append(errs, err)
			continue
		}
		if seed != nil {
			return seed, nil
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("get content seed: %w", errors.Join(errs...))
	}
	return nil, nil
}

// illustrate makes image for the post, any failure leaves the post text-only
func (b *PostBuilder) illustrate(ctx context.Context, s domain.Settings, seed *domain.Seed, draft string) *domain.Image {
	if b.images == nil {
		return nil
	}
	prompt, err := b.text.GenerateImagePrompt(ctx, PromptEndpoint(s), draft)
	if err != nil || prompt == "" {
		lgr.Printf("[WARN] image prompt failed, using title: %v", err)
		prompt = seed.Title
	}

	img, err := b.images.Generate(ctx, image.Request{
		Endpoint: ImageEndpoint(s),
		Prompt:   prompt,
		Style:    s.ImageStyle,
		Width:    s.ImageWidth,
		Height:   s.ImageHeight,
	})
	if err != nil {
		lgr.Printf("[WARN] image generation failed, posting text only: %v", err)
		return nil
	}
	if img.Empty() {
		return nil
	}
	return img
}

// ContentHash identifies a draft made from a seed
func ContentHash(seedID, draft string) string {
	sum := sha256.Sum256([]byte(seedID + "\n" + draft))
	return hex.EncodeToString(sum[:])
}

// TextEndpoint is the provider used for post drafts
func TextEndpoint(s domain.Settings) llm.Endpoint {
	return llm.Endpoint{URL: s.OpenAIURL, Key: s.OpenAIKey, Model: s.TextModel}
}

// PromptEndpoint is the provider used for image prompts, falls back to the text model
func PromptEndpoint(s domain.Settings) llm.Endpoint {
	ep := TextEndpoint(s)
	if s.PromptModel != "" {
		ep.Model = s.PromptModel
	}
	return ep
}

// ImageEndpoint is the image provider, url and key fall back to the text provider
func ImageEndpoint(s domain.Settings) llm.Endpoint {
	ep := llm.Endpoint{URL: s.ImageAPIURL, Key: s.ImageAPIKey, Model: s.ImageModel}
	if ep.URL == "" {
		ep.URL = s.OpenAIURL
	}
	if ep.Key == "" {
		ep.Key = s.OpenAIKey
	}
	return ep
}
