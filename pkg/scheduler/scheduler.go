// Package scheduler builds posts and publishes them on a daily cron schedule
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"

	"github.com/umputun/autoposter/pkg/domain"
)

//go:generate moq -out mocks/settings_store.go -pkg mocks -skip-ensure -fmt goimports . SettingsStore
//go:generate moq -out mocks/builder.go -pkg mocks -skip-ensure -fmt goimports . Builder
//go:generate moq -out mocks/publisher.go -pkg mocks -skip-ensure -fmt goimports . Publisher
//go:generate moq -out mocks/image_cleaner.go -pkg mocks -skip-ensure -fmt goimports . ImageCleaner

// SettingsStore reads and persists runtime settings
type SettingsStore interface {
	Get() domain.Settings
	Update(fn func(s *domain.Settings) error) (domain.Settings, error)
}

// Builder composes posts
type Builder interface {
	BuildPost(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error)
}

// Publisher delivers posts to a channel
type Publisher interface {
	Publish(ctx context.Context, channel string, post domain.PostPackage) (int, error)
}

// ImageCleaner removes local image files once they are delivered
type ImageCleaner interface {
	Remove(img *domain.Image)
}

// Status is the outcome of a publish run
type Status string

// publish run outcomes
const (
	StatusPublished Status = "published"
	StatusSkipped   Status = "skipped"   // nothing to post or not configured
	StatusDuplicate Status = "duplicate" // every draft repeated a recent post
)

// PublishResult describes a finished publish run
type PublishResult struct {
	Status    Status
	MessageID int
	Post      *domain.PostPackage
}

// Job is a scheduled daily posting time
type Job struct {
	Time string    `json:"time"`
	Next time.Time `json:"next"`
}

// Scheduler keeps one cron entry per posting time and runs the publish flow
type Scheduler struct {
	store     SettingsStore
	builder   Builder
	publisher Publisher
	cleaner   ImageCleaner
	cron      *cron.Cron
	location  *time.Location
	now       func() time.Time

	mu      sync.Mutex // guards entries, runCtx and tripped
	entries map[cron.EntryID]string
	runCtx  context.Context
	tripped string // channel with revoked rights while the disabled flag is not persisted

	publishMu sync.Mutex // one publish run at a time
}

// Params contains dependencies for Scheduler
type Params struct {
	Store     SettingsStore
	Builder   Builder
	Publisher Publisher
	Cleaner   ImageCleaner // optional
	Location  *time.Location
}

// NewScheduler makes scheduler in stopped state
func NewScheduler(params Params) *Scheduler {
	loc := params.Location
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	runner := cron.New(cron.WithLocation(loc), cron.WithLogger(logger), cron.WithChain(cron.Recover(logger)))
	return &Scheduler{
		store:     params.Store,
		builder:   params.Builder,
		publisher: params.Publisher,
		cleaner:   params.Cleaner,
		cron:      runner,
		location:  loc,
		now:       time.Now,
		entries:   map[cron.EntryID]string{},
		runCtx:    context.Background(),
	}
}

// Start rebuilds jobs and starts dispatching. Scheduled runs use ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()
	n := s.ReloadJobs()
	s.cron.Start()
	lgr.Printf("[INFO] scheduler started with %d jobs", n)
}

// Shutdown stops dispatching new runs, in-flight runs are not awaited
func (s *Scheduler) Shutdown() {
	s.cron.Stop()
	lgr.Printf("[INFO] scheduler stopped")
}

// ReloadJobs drops all entries and adds one per distinct valid posting time if autoposting
// is enabled and channel is set. Returns number of scheduled entries.
func (s *Scheduler) ReloadJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.entries {
		s.cron.Remove(id)
	}
	clear(s.entries)

	settings := s.store.Get()
	if s.tripped != "" && (!settings.AutopostEnabled || settings.Channel != s.tripped) {
		s.tripped = "" // store caught up or channel changed
	}
	if s.tripped != "" {
		lgr.Printf("[WARN] no rights to post into %s, no jobs scheduled", s.tripped)
		return 0
	}
	if !settings.AutopostEnabled {
		lgr.Printf("[INFO] autoposting disabled, no jobs scheduled")
		return 0
	}
	if settings.Channel == "" {
		lgr.Printf("[WARN] channel is not set, no jobs scheduled")
		return 0
	}

	seen := map[string]bool{}
	for _, t := range settings.PostingTimes {
		hour, minute, err := domain.ParsePostingTime(t)
		if err != nil {
			lgr.Printf("[WARN] skip posting time: %v", err)
			continue
		}
		key := fmt.Sprintf("%02d:%02d", hour, minute)
		if seen[key] {
			continue
		}
		seen[key] = true
		id, err := s.cron.AddFunc(fmt.Sprintf("%d %d * * *", minute, hour), s.scheduledRun)
		if err != nil {
			lgr.Printf("[WARN] failed to schedule %s: %v", key, err)
			continue
		}
		s.entries[id] = key
		lgr.Printf("[INFO] scheduled posting at %s", key)
	}
	return len(s.entries)
}

// Jobs returns scheduled entries ordered by next run
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().In(s.location) // specs have no CRON_TZ and follow the time they get
	res := make([]Job, 0, len(s.entries))
	for id, t := range s.entries {
		entry := s.cron.Entry(id)
		if !entry.Valid() {
			continue
		}
		res = append(res, Job{Time: t, Next: entry.Schedule.Next(now)})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Next.Before(res[j].Next) })
	return res
}

// NextRun returns the nearest scheduled run, false if nothing is scheduled
func (s *Scheduler) NextRun() (time.Time, bool) {
	jobs := s.Jobs()
	if len(jobs) == 0 {
		return time.Time{}, false
	}
	return jobs[0].Next, true
}

// PublishPost builds and delivers a post now. Manual runs need only a channel.
// A permission error disables autoposting and drops all jobs.
func (s *Scheduler) PublishPost(ctx context.Context, force bool) (PublishResult, error) {
	return s.publish(ctx, force, false)
}

func (s *Scheduler) scheduledRun() {
	s.mu.Lock()
	ctx := s.runCtx
	s.mu.Unlock()

	res, err := s.publish(ctx, false, true)
	if err != nil {
		lgr.Printf("[WARN] scheduled publish failed: %v", err)
		return
	}
	lgr.Printf("[INFO] scheduled publish finished: %s", res.Status)
}

func (s *Scheduler) publish(ctx context.Context, force, scheduled bool) (PublishResult, error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	settings := s.store.Get()
	s.mu.Lock()
	tripped := s.tripped != "" && s.tripped == settings.Channel
	s.mu.Unlock()
	if scheduled && (!settings.AutopostEnabled || tripped) {
		lgr.Printf("[INFO] autoposting was disabled, scheduled run skipped")
		return PublishResult{Status: StatusSkipped}, nil
	}
	if settings.Channel == "" {
		lgr.Printf("[WARN] channel is not set, nothing published")
		return PublishResult{Status: StatusSkipped}, nil
	}

	post, err := s.builder.BuildPost(ctx, settings, force)
	if errors.Is(err, domain.ErrDuplicate) {
		lgr.Printf("[INFO] publish skipped: %v", err)
		return PublishResult{Status: StatusDuplicate}, nil
	}
	if err != nil {
		return PublishResult{}, fmt.Errorf("build post: %w", err)
	}
	if post == nil {
		return PublishResult{Status: StatusSkipped}, nil
	}
	if s.cleaner != nil {
		defer s.cleaner.Remove(post.Image)
	}

	msgID, err := s.publisher.Publish(ctx, settings.Channel, *post)
	if err != nil {
		if errors.Is(err, domain.ErrPermission) {
			s.disable(settings.Channel, err)
		}
		return PublishResult{}, fmt.Errorf("publish to %s: %w", settings.Channel, err)
	}
	lgr.Printf("[INFO] published message %d to %s", msgID, settings.Channel)

	seedID := post.Seed.ID
	if post.Seed.Source == domain.SourceTopic {
		seedID = "" // topic seeds are never exhausted
	}
	res := PublishResult{Status: StatusPublished, MessageID: msgID, Post: post}
	if _, err = s.store.Update(func(st *domain.Settings) error {
		st.RecordPublish(post.Hash, seedID, s.now())
		return nil
	}); err != nil {
		return res, fmt.Errorf("record publish: %w", err)
	}
	return res, nil
}

// disable is the circuit breaker for permission failures. If the disabled flag can't be persisted
// the scheduler keeps the channel tripped, so jobs stay dropped until the flag is off or channel changes.
func (s *Scheduler) disable(channel string, cause error) {
	lgr.Printf("[WARN] no rights to post into %s, autoposting disabled: %v", channel, cause)
	if _, err := s.store.Update(func(st *domain.Settings) error {
		st.AutopostEnabled = false
		return nil
	}); err != nil {
		lgr.Printf("[ERROR] failed to persist disabled autoposting: %v", err)
		s.mu.Lock()
		s.tripped = channel
		s.mu.Unlock()
	}
	s.ReloadJobs()
}

// cronLogger routes cron messages to lgr
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	lgr.Printf("[DEBUG] cron %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	lgr.Printf("[WARN] cron %s: %v %v", msg, err, keysAndValues)
}
