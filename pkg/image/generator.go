// Package image generates post illustrations through an OpenAI-compatible images API
package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-pkgz/lgr"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sashabaranov/go-openai"

	"github.com/umputun/autoposter/pkg/config"
	"github.com/umputun/autoposter/pkg/domain"
	"github.com/umputun/autoposter/pkg/llm"
	"github.com/umputun/autoposter/pkg/retry"
)

var allowedTypes = map[string]struct{}{"jpg": {}, "png": {}, "webp": {}, "gif": {}}

// Request describes a single image to generate
type Request struct {
	Endpoint llm.Endpoint
	Prompt   string
	Style    string
	Width    int
	Height   int
}

// Generator requests images and stores decoded ones locally
type Generator struct {
	config config.ImageConfig
	retry  retry.Func

	mu      sync.Mutex
	clients map[llm.Endpoint]*openai.Client
}

// NewGenerator makes image generator, rf is applied to every API call
func NewGenerator(cfg config.ImageConfig, rf retry.Func) *Generator {
	return &Generator{config: cfg, retry: rf, clients: map[llm.Endpoint]*openai.Client{}}
}

// Generate makes an image for the prompt. Remote results are returned as URL,
// base64 results are validated and saved into the image directory.
func (g *Generator) Generate(ctx context.Context, req Request) (*domain.Image, error) {
	if g.config.Disabled {
		return nil, nil
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("empty image prompt")
	}
	if req.Endpoint.Key == "" {
		return nil, errors.New("image api key is not set")
	}

	imgReq := openai.ImageRequest{
		Prompt:         g.stylePrompt(req.Prompt, req.Style),
		Model:          req.Endpoint.Model,
		N:              1,
		Quality:        g.config.Quality,
		Size:           fmt.Sprintf("%dx%d", req.Width, req.Height),
		ResponseFormat: g.config.ResponseFormat,
	}
	client := g.client(req.Endpoint)

	var resp openai.ImageResponse
	err := g.retry(ctx, "generate image", func() error {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if g.config.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		}
		defer cancel()

		var e error
		resp, e = client.CreateImage(callCtx, imgReq)
		if e != nil {
			return llm.ClassifyError(fmt.Errorf("image request failed: %w", e))
		}
		if len(resp.Data) == 0 {
			return errors.New("no image in response")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	data := resp.Data[0]
	switch {
	case data.URL != "":
		lgr.Printf("[DEBUG] image generated, url %s", data.URL)
		return &domain.Image{URL: data.URL}, nil
	case data.B64JSON != "":
		path, err := g.save(data.B64JSON)
		if err != nil {
			return nil, err
		}
		lgr.Printf("[DEBUG] image generated, saved to %s", path)
		return &domain.Image{Path: path}, nil
	}
	return nil, errors.New("image response has neither url nor data")
}

// Remove deletes a locally stored image, remote images are left alone
func (g *Generator) Remove(img *domain.Image) {
	if img == nil || img.Path == "" {
		return
	}
	if err := os.Remove(img.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		lgr.Printf("[WARN] failed to remove image %s: %v", img.Path, err)
	}
}

// stylePrompt appends style suffix configured for the style
func (g *Generator) stylePrompt(prompt, style string) string {
	suffix := g.config.Styles[strings.ToUpper(style)]
	if suffix == "" {
		return prompt
	}
	return strings.TrimRight(strings.TrimSpace(prompt), ".") + ", " + suffix
}

// save decodes base64 image, checks its type and writes it with a random name
func (g *Generator) save(b64 string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	kind, err := filetype.Match(raw)
	if err != nil {
		return "", fmt.Errorf("match image type: %w", err)
	}
	if kind == types.Unknown {
		return "", errors.New("unsupported image type")
	}
	if _, ok := allowedTypes[kind.Extension]; !ok || !filetype.IsImage(raw) {
		return "", fmt.Errorf("image type %s is not allowed", kind.Extension)
	}

	if err = os.MkdirAll(g.config.Dir, 0o750); err != nil {
		return "", fmt.Errorf("make image dir: %w", err)
	}
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("make image name: %w", err)
	}
	path := filepath.Join(g.config.Dir, "post_"+id+"."+kind.Extension)
	if err = os.WriteFile(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}

// client returns cached client for endpoint url and key
func (g *Generator) client(ep llm.Endpoint) *openai.Client {
	key := llm.Endpoint{URL: ep.URL, Key: ep.Key}
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[key]; ok {
		return c
	}
	c := llm.NewClient(ep.URL, ep.Key)
	g.clients[key] = c
	return c
}
