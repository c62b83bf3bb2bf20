// Package llm drafts posts and image prompts through OpenAI-compatible chat completions
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"text/template"

	"github.com/sashabaranov/go-openai"

	"github.com/umputun/autoposter/pkg/config"
	"github.com/umputun/autoposter/pkg/domain"
	"github.com/umputun/autoposter/pkg/retry"
)

// maxImagePromptLen is the cap on image prompt length, in characters
const maxImagePromptLen = 300

// Endpoint describes an OpenAI-compatible provider and the model to call
type Endpoint struct {
	URL   string
	Key   string
	Model string
}

// PostRequest contains everything needed to draft a post
type PostRequest struct {
	Endpoint Endpoint
	Seed     domain.Seed
	Topic    string
	Tone     string // tone instruction, not the preset name
	Mood     string
	Hint     string // extra instruction, used to push the model away from a repeated draft
}

// Generator drafts posts and image prompts through chat completion API.
// Endpoint and key are per call because admins can change them at runtime.
type Generator struct {
	config    config.LLMConfig
	retry     retry.Func
	systemTpl *template.Template

	mu      sync.Mutex
	clients map[Endpoint]*openai.Client
}

// default system prompt for post drafts
const defaultSystemPrompt = `You are a professional copywriter for a Telegram channel about {{.Topic}}.
Your style: {{.Tone}}. Additional mood of the post: {{.Mood}}.
Write in a conversational but literate manner.
Use emoji for accents, do not overdo it.
Structure: a catchy headline on the first line, a short introduction, the main part in short paragraphs,
a list with "- " items where it helps, a conclusion or a question to engage readers.
Avoid cliches and boilerplate phrases. The text must be unique, lively and practical.
Keep the whole post under 900 characters. Do not use markdown headings or tables.`

// default system prompt for image prompts
const defaultImagePromptSystem = `Based on the post text, craft a detailed prompt in English for an image generation model,
up to 300 characters. Mention composition, lighting and style. Do not include any text or letters in the image.
Respond with the prompt only.`

// NewGenerator creates a new text generator, rf is applied to every API call
func NewGenerator(cfg config.LLMConfig, rf retry.Func) (*Generator, error) {
	systemMsg := cfg.SystemPrompt
	if systemMsg == "" {
		systemMsg = defaultSystemPrompt
	}
	tpl, err := template.New("system").Parse(systemMsg)
	if err != nil {
		return nil, fmt.Errorf("parse system prompt template: %w", err)
	}
	if cfg.ImagePromptSystem == "" {
		cfg.ImagePromptSystem = defaultImagePromptSystem
	}
	return &Generator{config: cfg, retry: rf, systemTpl: tpl, clients: map[Endpoint]*openai.Client{}}, nil
}

// GeneratePost drafts a post for the seed, returns trimmed text which may be empty
func (g *Generator) GeneratePost(ctx context.Context, req PostRequest) (string, error) {
	var sb strings.Builder
	if err := g.systemTpl.Execute(&sb, req); err != nil {
		return "", fmt.Errorf("render system prompt: %w", err)
	}

	return g.complete(ctx, "generate post", req.Endpoint, openai.ChatCompletionRequest{
		Model:       req.Endpoint.Model,
		Temperature: float32(g.config.Temperature),
		MaxTokens:   g.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: sb.String()},
			{Role: openai.ChatMessageRoleUser, Content: g.buildPostPrompt(req)},
		},
	})
}

// GenerateImagePrompt makes a short English prompt for the image model from the post text
func (g *Generator) GenerateImagePrompt(ctx context.Context, ep Endpoint, text string) (string, error) {
	resp, err := g.complete(ctx, "generate image prompt", ep, openai.ChatCompletionRequest{
		Model:       ep.Model,
		Temperature: 0.7,
		MaxTokens:   g.config.ImagePromptTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: g.config.ImagePromptSystem},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", err
	}
	if r := []rune(resp); len(r) > maxImagePromptLen {
		resp = string(r[:maxImagePromptLen])
	}
	return resp, nil
}

// buildPostPrompt creates the user prompt for a post draft
func (g *Generator) buildPostPrompt(req PostRequest) string {
	var sb strings.Builder
	if req.Seed.Source == "" || req.Seed.Source == domain.SourceTopic {
		sb.WriteString(fmt.Sprintf("Create a unique post on the topic: %s.\n", req.Topic))
	} else {
		sb.WriteString(fmt.Sprintf("Create a unique post for a channel about %s based on this news item.\n", req.Topic))
		sb.WriteString(fmt.Sprintf("Title: %s\n", req.Seed.Title))
		if req.Seed.Description != "" {
			sb.WriteString(fmt.Sprintf("Description: %s\n", req.Seed.Description))
		}
		if req.Seed.Content != "" {
			// limit content to first 1500 chars
			content := []rune(req.Seed.Content)
			if len(content) > 1500 {
				content = append(content[:1500], []rune("...")...)
			}
			sb.WriteString(fmt.Sprintf("Content: %s\n", string(content)))
		}
		if req.Seed.URL != "" {
			sb.WriteString(fmt.Sprintf("Link: %s\n", req.Seed.URL))
		}
	}
	if req.Hint != "" {
		sb.WriteString(req.Hint)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// complete runs chat completion with retries, client errors other than 429 are not retried
func (g *Generator) complete(ctx context.Context, name string, ep Endpoint, req openai.ChatCompletionRequest) (string, error) {
	if ep.Key == "" {
		return "", fmt.Errorf("%s: api key is not set", name)
	}
	client := g.client(ep)

	var content string
	err := g.retry(ctx, name, func() error {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if g.config.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		}
		defer cancel()

		resp, err := client.CreateChatCompletion(callCtx, req)
		if err != nil {
			return ClassifyError(fmt.Errorf("llm request failed: %w", err))
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no response from llm")
		}
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return content, nil
}

// client returns cached client for endpoint url and key
func (g *Generator) client(ep Endpoint) *openai.Client {
	key := Endpoint{URL: ep.URL, Key: ep.Key}
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[key]; ok {
		return c
	}
	c := NewClient(ep.URL, ep.Key)
	g.clients[key] = c
	return c
}

// NewClient makes OpenAI client for the given base url, empty url means the default OpenAI endpoint
func NewClient(url, key string) *openai.Client {
	clientConfig := openai.DefaultConfig(key)
	if url != "" {
		clientConfig.BaseURL = strings.TrimSuffix(url, "/")
	}
	return openai.NewClientWithConfig(clientConfig)
}

// ClassifyError marks client-side API errors as permanent, except rate limits
func ClassifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && isClientError(apiErr.HTTPStatusCode) {
		return retry.Permanent(err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && isClientError(reqErr.HTTPStatusCode) {
		return retry.Permanent(err)
	}
	return err
}

func isClientError(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}
