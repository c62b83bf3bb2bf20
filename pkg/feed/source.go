// Package feed provides content seeds for posts: bare topic or fresh items from RSS/Atom feeds
package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-pkgz/lgr"
	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/autoposter/pkg/config"
	"github.com/umputun/autoposter/pkg/domain"
	"github.com/umputun/autoposter/pkg/retry"
)

//go:generate moq -out mocks/extractor.go -pkg mocks -skip-ensure -fmt goimports . Extractor

// Extractor fetches full article text for a link
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// TopicSource makes a seed from the channel topic alone
type TopicSource struct{}

// Next returns the topic seed, nil if topic is not set. Topic seeds are never exhausted.
func (TopicSource) Next(_ context.Context, s domain.Settings) (*domain.Seed, error) {
	topic := strings.TrimSpace(s.Topic)
	if topic == "" {
		return nil, nil
	}
	return &domain.Seed{ID: domain.SourceTopic + ":" + topic, Title: topic, Source: domain.SourceTopic}, nil
}

// Source picks the first unseen item matching keywords from configured feeds
type Source struct {
	feeds     []config.FeedConfig
	parser    *Parser
	extractor Extractor
	retry     retry.Func
	policy    *bluemonday.Policy
	maxItems  int
}

// SourceParams contains dependencies for Source
type SourceParams struct {
	Config    config.SourcesConfig
	Extractor Extractor // optional, enriches seeds with article text
	Retry     retry.Func
}

// NewSource makes feed source
func NewSource(params SourceParams) *Source {
	maxItems := params.Config.MaxItems
	if maxItems <= 0 {
		maxItems = 20
	}
	return &Source{
		feeds:     params.Config.Feeds,
		parser:    NewParser(params.Config.Timeout, params.Config.UserAgent),
		extractor: params.Extractor,
		retry:     params.Retry,
		policy:    bluemonday.StrictPolicy(),
		maxItems:  maxItems,
	}
}

// Next walks feeds in order and returns the first fresh item as a seed.
// Returns nil without error if nothing new is found, error only if every feed failed.
func (s *Source) Next(ctx context.Context, settings domain.Settings) (*domain.Seed, error) {
	keywords := make([]string, 0, len(settings.SourceKeywords))
	for _, kw := range settings.SourceKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	var errs []error
	for _, f := range s.feeds {
		var items []Item
		err := s.retry(ctx, "fetch feed "+f.Name, func() error {
			var e error
			items, e = s.parser.Parse(ctx, f.URL)
			return e
		})
		if err != nil {
			lgr.Printf("[WARN] feed %s failed: %v", f.Name, err)
			errs = append(errs, fmt.Errorf("feed %s: %w", f.Name, err))
			continue
		}

		for i, item := range items {
			if i >= s.maxItems {
				break
			}
			seed := s.makeSeed(f.Name, item)
			if seed.Title == "" || settings.HasSeed(seed.ID) {
				continue
			}
			if !matchKeywords(seed, keywords) {
				continue
			}
			s.enrich(ctx, &seed)
			lgr.Printf("[INFO] picked seed %q from %s", seed.Title, f.Name)
			return &seed, nil
		}
	}

	if len(errs) > 0 && len(errs) == len(s.feeds) {
		return nil, fmt.Errorf("all feeds failed: %w", errors.Join(errs...))
	}
	lgr.Printf("[INFO] no fresh items in %d feeds", len(s.feeds))
	return nil, nil
}

func (s *Source) makeSeed(feedName string, item Item) domain.Seed {
	title := s.plain(item.Title)
	return domain.Seed{
		ID:          Fingerprint(title, item.Link),
		Title:       title,
		Description: s.plain(item.Description),
		Content:     s.plain(item.Content),
		URL:         item.Link,
		Source:      feedName,
		Published:   item.Published,
	}
}

// enrich replaces feed content with extracted article text if it is longer
func (s *Source) enrich(ctx context.Context, seed *domain.Seed) {
	if s.extractor == nil || seed.URL == "" {
		return
	}
	text, err := s.extractor.Extract(ctx, seed.URL)
	if err != nil {
		lgr.Printf("[WARN] failed to extract content from %s: %v", seed.URL, err)
		return
	}
	if len(text) > len(seed.Content) {
		seed.Content = text
	}
}

// plain strips markup and decodes entities
func (s *Source) plain(v string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s.policy.Sanitize(v))), " ")
}

func matchKeywords(seed domain.Seed, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	combined := strings.ToLower(seed.Title + " " + seed.Description)
	for _, kw := range keywords {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	return false
}

// Fingerprint returns stable seed id for title and link
func Fingerprint(title, link string) string {
	sum := sha256.Sum256([]byte(title + ":" + link))
	return hex.EncodeToString(sum[:])
}
