package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/autoposter/pkg/domain"
	"github.com/umputun/autoposter/pkg/scheduler/mocks"
)

// memStore returns settings store mock keeping state in memory
func memStore(s domain.Settings) *mocks.SettingsStoreMock {
	var mu sync.Mutex
	return &mocks.SettingsStoreMock{
		GetFunc: func() domain.Settings {
			mu.Lock()
			defer mu.Unlock()
			return s.Clone()
		},
		UpdateFunc: func(fn func(s *domain.Settings) error) (domain.Settings, error) {
			mu.Lock()
			defer mu.Unlock()
			upd := s.Clone()
			if err := fn(&upd); err != nil {
				return s.Clone(), err
			}
			s = upd
			return s.Clone(), nil
		},
	}
}

func enabledSettings(times ...string) domain.Settings {
	return domain.Settings{AutopostEnabled: true, Channel: "@channel", PostingTimes: times}
}

func testPost() *domain.PostPackage {
	return &domain.PostPackage{Text: "hello", Hash: "hash-1", Seed: domain.Seed{ID: "seed-1", Source: "news"}}
}

func TestScheduler_ReloadJobs(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tbl := []struct {
		name     string
		settings domain.Settings
		want     []string
	}{
		{name: "two times", settings: enabledSettings("09:00", "15:30"), want: []string{"09:00", "15:30"}},
		{name: "disabled", settings: domain.Settings{Channel: "@c", PostingTimes: []string{"09:00"}}, want: []string{}},
		{name: "no channel", settings: domain.Settings{AutopostEnabled: true, PostingTimes: []string{"09:00"}}, want: []string{}},
		{name: "duplicates and invalid skipped", settings: enabledSettings("9:00", "09:00", "25:00", "bad", "23:59"),
			want: []string{"09:00", "23:59"}},
		{name: "no times", settings: enabledSettings(), want: []string{}},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(Params{Store: memStore(tt.settings), Location: loc})
			n := s.ReloadJobs()
			assert.Equal(t, len(tt.want), n)

			jobs := s.Jobs()
			got := make([]string, 0, len(jobs))
			for _, j := range jobs {
				got = append(got, j.Time)
				next := j.Next.In(loc)
				assert.Equal(t, j.Time, fmt.Sprintf("%02d:%02d", next.Hour(), next.Minute()))
				assert.Zero(t, next.Second())
			}
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestScheduler_ReloadJobsReplacesEntries(t *testing.T) {
	store := memStore(enabledSettings("09:00", "15:30"))
	s := NewScheduler(Params{Store: store, Location: time.UTC})
	require.Equal(t, 2, s.ReloadJobs())
	require.Equal(t, 2, s.ReloadJobs(), "reload does not accumulate entries")

	_, err := store.Update(func(st *domain.Settings) error {
		st.PostingTimes = []string{"10:00"}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.ReloadJobs())
	assert.Len(t, s.cron.Entries(), 1)

	next, ok := s.NextRun()
	require.True(t, ok)
	assert.Equal(t, 10, next.Hour())

	_, err = store.Update(func(st *domain.Settings) error {
		st.AutopostEnabled = false
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.ReloadJobs())
	assert.Empty(t, s.cron.Entries())
	_, ok = s.NextRun()
	assert.False(t, ok)
}

func TestScheduler_PublishPost(t *testing.T) {
	store := memStore(enabledSettings("09:00"))
	builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
		return testPost(), nil
	}}
	publisher := &mocks.PublisherMock{PublishFunc: func(ctx context.Context, channel string, post domain.PostPackage) (int, error) {
		return 42, nil
	}}
	cleaner := &mocks.ImageCleanerMock{RemoveFunc: func(img *domain.Image) {}}
	s := NewScheduler(Params{Store: store, Builder: builder, Publisher: publisher, Cleaner: cleaner, Location: time.UTC})
	ts := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return ts }

	res, err := s.PublishPost(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, res.Status)
	assert.Equal(t, 42, res.MessageID)

	require.Len(t, builder.BuildPostCalls(), 1)
	assert.True(t, builder.BuildPostCalls()[0].Force)
	require.Len(t, publisher.PublishCalls(), 1)
	assert.Equal(t, "@channel", publisher.PublishCalls()[0].Channel)
	assert.Len(t, cleaner.RemoveCalls(), 1)

	saved := store.Get()
	assert.Equal(t, []string{"hash-1"}, saved.RecentHashes)
	assert.Equal(t, []string{"seed-1"}, saved.RecentSeeds)
	assert.Equal(t, 1, saved.Stats.TotalPosts)
	require.NotNil(t, saved.Stats.LastPostAt)
	assert.Equal(t, ts, *saved.Stats.LastPostAt)
}

func TestScheduler_PublishPostRecentHashesCapped(t *testing.T) {
	store := memStore(enabledSettings("09:00"))
	i := 0
	builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
		i++
		return &domain.PostPackage{Text: "t", Hash: fmt.Sprintf("h%d", i), Seed: domain.Seed{ID: "topic:x", Source: domain.SourceTopic}}, nil
	}}
	publisher := &mocks.PublisherMock{PublishFunc: func(ctx context.Context, channel string, post domain.PostPackage) (int, error) {
		return 1, nil
	}}
	s := NewScheduler(Params{Store: store, Builder: builder, Publisher: publisher})
	for range 15 {
		_, err := s.PublishPost(context.Background(), false)
		require.NoError(t, err)
	}
	saved := store.Get()
	assert.Len(t, saved.RecentHashes, domain.MaxRecentHashes)
	assert.Equal(t, "h15", saved.RecentHashes[0])
	assert.Empty(t, saved.RecentSeeds, "topic seeds are not remembered")
	assert.Equal(t, 15, saved.Stats.TotalPosts)
}

func TestScheduler_PublishPostPermissionDenied(t *testing.T) {
	store := memStore(enabledSettings("09:00", "15:30"))
	builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
		return testPost(), nil
	}}
	publisher := &mocks.PublisherMock{PublishFunc: func(ctx context.Context, channel string, post domain.PostPackage) (int, error) {
		return 0, fmt.Errorf("send message: %w", domain.ErrPermission)
	}}
	s := NewScheduler(Params{Store: store, Builder: builder, Publisher: publisher})
	require.Equal(t, 2, s.ReloadJobs())

	_, err := s.PublishPost(context.Background(), false)
	require.ErrorIs(t, err, domain.ErrPermission)

	saved := store.Get()
	assert.False(t, saved.AutopostEnabled)
	assert.Empty(t, saved.RecentHashes)
	assert.Empty(t, s.Jobs())
	assert.Equal(t, 0, s.ReloadJobs())
}

func TestScheduler_PublishPostPermissionDeniedStoreFailure(t *testing.T) {
	store := memStore(enabledSettings("09:00", "15:30"))
	inner := store.UpdateFunc
	failing := true
	store.UpdateFunc = func(fn func(s *domain.Settings) error) (domain.Settings, error) {
		if failing {
			return store.GetFunc(), errors.New("disk full")
		}
		return inner(fn)
	}
	builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
		return testPost(), nil
	}}
	publisher := &mocks.PublisherMock{PublishFunc: func(ctx context.Context, channel string, post domain.PostPackage) (int, error) {
		return 0, fmt.Errorf("send message: %w", domain.ErrPermission)
	}}
	s := NewScheduler(Params{Store: store, Builder: builder, Publisher: publisher})
	require.Equal(t, 2, s.ReloadJobs())

	_, err := s.PublishPost(context.Background(), false)
	require.ErrorIs(t, err, domain.ErrPermission)
	assert.True(t, store.Get().AutopostEnabled, "flag not persisted")
	assert.Empty(t, s.Jobs(), "jobs dropped anyway")
	assert.Equal(t, 0, s.ReloadJobs(), "reload keeps channel tripped")

	res, err := s.publish(context.Background(), false, true)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, res.Status, "scheduled run refused for tripped channel")
	assert.Len(t, builder.BuildPostCalls(), 1)

	// admin moves to another channel, schedule comes back
	failing = false
	_, err = store.Update(func(st *domain.Settings) error {
		st.Channel = "@other"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, s.ReloadJobs())
}

func TestScheduler_TrippedClearedWhenDisabled(t *testing.T) {
	store := memStore(enabledSettings("09:00"))
	s := NewScheduler(Params{Store: store})
	s.tripped = "@channel"
	assert.Equal(t, 0, s.ReloadJobs())

	_, err := store.Update(func(st *domain.Settings) error {
		st.AutopostEnabled = false
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, s.ReloadJobs())
	assert.Empty(t, s.tripped)

	_, err = store.Update(func(st *domain.Settings) error {
		st.AutopostEnabled = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.ReloadJobs(), "enabled again after the store caught up")
}

func TestScheduler_PublishPostOtherFailure(t *testing.T) {
	store := memStore(enabledSettings("09:00"))
	builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
		return testPost(), nil
	}}
	publisher := &mocks.PublisherMock{PublishFunc: func(ctx context.Context, channel string, post domain.PostPackage) (int, error) {
		return 0, errors.New("network down")
	}}
	s := NewScheduler(Params{Store: store, Builder: builder, Publisher: publisher})
	require.Equal(t, 1, s.ReloadJobs())

	_, err := s.PublishPost(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
	assert.True(t, store.Get().AutopostEnabled)
	assert.Len(t, s.Jobs(), 1)
	assert.Empty(t, store.UpdateCalls())
}

func TestScheduler_PublishPostNoop(t *testing.T) {
	publisher := &mocks.PublisherMock{}

	t.Run("duplicate", func(t *testing.T) {
		builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
			return nil, fmt.Errorf("no unique draft: %w", domain.ErrDuplicate)
		}}
		s := NewScheduler(Params{Store: memStore(enabledSettings("09:00")), Builder: builder, Publisher: publisher})
		res, err := s.PublishPost(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, StatusDuplicate, res.Status)
	})

	t.Run("nothing built", func(t *testing.T) {
		builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
			return nil, nil
		}}
		s := NewScheduler(Params{Store: memStore(enabledSettings("09:00")), Builder: builder, Publisher: publisher})
		res, err := s.PublishPost(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, StatusSkipped, res.Status)
	})

	t.Run("no channel", func(t *testing.T) {
		builder := &mocks.BuilderMock{}
		s := NewScheduler(Params{Store: memStore(domain.Settings{}), Builder: builder, Publisher: publisher})
		res, err := s.PublishPost(context.Background(), false)
		require.NoError(t, err)
		assert.Equal(t, StatusSkipped, res.Status)
		assert.Empty(t, builder.BuildPostCalls())
	})

	t.Run("manual run ignores disabled autopost", func(t *testing.T) {
		builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
			return nil, nil
		}}
		s := NewScheduler(Params{Store: memStore(domain.Settings{Channel: "@c"}), Builder: builder, Publisher: publisher})
		_, err := s.PublishPost(context.Background(), false)
		require.NoError(t, err)
		assert.Len(t, builder.BuildPostCalls(), 1)
	})

	t.Run("build error", func(t *testing.T) {
		builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
			return nil, errors.New("llm down")
		}}
		s := NewScheduler(Params{Store: memStore(enabledSettings("09:00")), Builder: builder, Publisher: publisher})
		_, err := s.PublishPost(context.Background(), false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "build post")
	})
	assert.Empty(t, publisher.PublishCalls())
}

func TestScheduler_ScheduledRunRespectsDisabled(t *testing.T) {
	builder := &mocks.BuilderMock{}
	s := NewScheduler(Params{Store: memStore(domain.Settings{Channel: "@c"}), Builder: builder})
	s.scheduledRun()
	assert.Empty(t, builder.BuildPostCalls())
}

func TestScheduler_ScheduledRun(t *testing.T) {
	builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
		return testPost(), nil
	}}
	publisher := &mocks.PublisherMock{PublishFunc: func(ctx context.Context, channel string, post domain.PostPackage) (int, error) {
		return 7, nil
	}}
	s := NewScheduler(Params{Store: memStore(enabledSettings("09:00")), Builder: builder, Publisher: publisher})
	s.scheduledRun()
	require.Len(t, builder.BuildPostCalls(), 1)
	assert.False(t, builder.BuildPostCalls()[0].Force, "scheduled runs never force")
	assert.Len(t, publisher.PublishCalls(), 1)
}

func TestScheduler_PublishRunsSerialized(t *testing.T) {
	var active, maxActive int
	var mu sync.Mutex
	builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
		mu.Lock()
		active++
		maxActive = max(maxActive, active)
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		active--
		mu.Unlock()
		return nil, nil
	}}
	s := NewScheduler(Params{Store: memStore(enabledSettings("09:00")), Builder: builder})

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.PublishPost(context.Background(), false)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxActive)
	assert.Len(t, builder.BuildPostCalls(), 5)
}

func TestScheduler_StartShutdown(t *testing.T) {
	s := NewScheduler(Params{Store: memStore(enabledSettings("09:00", "21:00")), Location: time.UTC})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.True(t, jobs[0].Next.Before(jobs[1].Next) || jobs[0].Next.Equal(jobs[1].Next))
	s.Shutdown()
}

func TestScheduler_RecoversPanic(t *testing.T) {
	builder := &mocks.BuilderMock{BuildPostFunc: func(ctx context.Context, s domain.Settings, force bool) (*domain.PostPackage, error) {
		panic("boom")
	}}
	s := NewScheduler(Params{Store: memStore(enabledSettings("09:00")), Builder: builder})
	job := s.cron.Entries()
	assert.Empty(t, job)

	id, err := s.cron.AddFunc("@every 1h", s.scheduledRun)
	require.NoError(t, err)
	assert.NotPanics(t, func() { s.cron.Entry(id).WrappedJob.Run() })
}
