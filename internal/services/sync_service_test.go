package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prskeet/prskeet/internal/domain/models"
	"github.com/prskeet/prskeet/internal/i18n"
)

var watermark = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newEngine(vcs *MockVCSClient, announcer *MockAnnouncer, opts SyncOptions) *SyncService {
	if opts.StartOverride == nil {
		start := watermark
		opts.StartOverride = &start
	}
	return NewSyncService(vcs, announcer, opts)
}

func mergedPR(number int, login string, at time.Time) models.PullRequest {
	return models.PullRequest{
		Number:      number,
		Title:       "change something",
		URL:         "https://github.com/o/r/pull/1",
		State:       models.StateMerged,
		EventTime:   at,
		AuthorLogin: login,
	}
}

func plainAuthor(login string) *models.Author {
	return &models.Author{Login: login, ProfileURL: "https://github.com/" + login}
}

func TestSyncService_Run(t *testing.T) {
	t.Run("watermark only moves forward", func(t *testing.T) {
		vcs := &MockVCSClient{}
		announcer := &MockAnnouncer{}
		engine := newEngine(vcs, announcer, SyncOptions{})

		vcs.On("FetchPullRequestsSince", mock.Anything, mock.Anything).
			Return([]models.PullRequest{}, nil)

		var previous time.Time
		for i := 0; i < 3; i++ {
			require.NoError(t, engine.Run(context.Background()))
			current := engine.Watermark()
			assert.False(t, current.Before(previous), "watermark moved backward on run %d", i)
			previous = current
		}
	})

	t.Run("fetch failure leaves the watermark exactly unchanged", func(t *testing.T) {
		vcs := &MockVCSClient{}
		announcer := &MockAnnouncer{}
		engine := newEngine(vcs, announcer, SyncOptions{})

		before := engine.Watermark()
		vcs.On("FetchPullRequestsSince", mock.Anything, mock.Anything).
			Return(nil, errors.New("rate limited")).Once()

		err := engine.Run(context.Background())

		assert.Error(t, err)
		assert.Equal(t, before, engine.Watermark())
		announcer.AssertNotCalled(t, "Announce")
	})

	t.Run("author resolution failure aborts the cycle and keeps the watermark", func(t *testing.T) {
		vcs := &MockVCSClient{}
		announcer := &MockAnnouncer{}
		engine := newEngine(vcs, announcer, SyncOptions{})

		before := engine.Watermark()
		vcs.On("FetchPullRequestsSince", mock.Anything, mock.Anything).
			Return([]models.PullRequest{mergedPR(1, "alice", watermark.Add(time.Hour))}, nil).Once()
		vcs.On("ResolveAuthor", mock.Anything, "alice").
			Return(nil, errors.New("boom")).Once()

		err := engine.Run(context.Background())

		assert.Error(t, err)
		assert.Equal(t, before, engine.Watermark())
		announcer.AssertNotCalled(t, "Announce")
	})

	t.Run("ignored users are excluded regardless of timestamp", func(t *testing.T) {
		vcs := &MockVCSClient{}
		announcer := &MockAnnouncer{}
		engine := newEngine(vcs, announcer, SyncOptions{IgnoreUsers: []string{"dependabot[bot]"}})

		vcs.On("FetchPullRequestsSince", mock.Anything, mock.Anything).
			Return([]models.PullRequest{
				mergedPR(1, "dependabot[bot]", watermark.Add(48*time.Hour)),
				mergedPR(2, "alice", watermark.Add(time.Hour)),
			}, nil).Once()
		vcs.On("ResolveAuthor", mock.Anything, "alice").
			Return(plainAuthor("alice"), nil).Once()

		var batch models.NotificationBatch
		announcer.On("Announce", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				batch = args.Get(1).(models.NotificationBatch)
			}).Return(nil).Once()

		require.NoError(t, engine.Run(context.Background()))

		require.Len(t, batch, 1)
		assert.Equal(t, 2, batch[0].Number)
		vcs.AssertNotCalled(t, "ResolveAuthor", mock.Anything, "dependabot[bot]")
	})

	t.Run("items older than the pre-call watermark are dropped", func(t *testing.T) {
		vcs := &MockVCSClient{}
		announcer := &MockAnnouncer{}
		engine := newEngine(vcs, announcer, SyncOptions{})

		vcs.On("FetchPullRequestsSince", mock.Anything, mock.Anything).
			Return([]models.PullRequest{
				mergedPR(1, "alice", watermark.Add(-time.Hour)),
				mergedPR(2, "alice", watermark.Add(time.Hour)),
			}, nil).Once()
		vcs.On("ResolveAuthor", mock.Anything, "alice").
			Return(plainAuthor("alice"), nil).Once()

		var batch models.NotificationBatch
		announcer.On("Announce", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				batch = args.Get(1).(models.NotificationBatch)
			}).Return(nil).Once()

		require.NoError(t, engine.Run(context.Background()))

		require.Len(t, batch, 1)
		assert.Equal(t, 2, batch[0].Number)
	})

	t.Run("authors are resolved once per cycle", func(t *testing.T) {
		vcs := &MockVCSClient{}
		announcer := &MockAnnouncer{}
		engine := newEngine(vcs, announcer, SyncOptions{})

		vcs.On("FetchPullRequestsSince", mock.Anything, mock.Anything).
			Return([]models.PullRequest{
				mergedPR(1, "alice", watermark.Add(time.Hour)),
				mergedPR(2, "alice", watermark.Add(2*time.Hour)),
			}, nil).Once()
		vcs.On("ResolveAuthor", mock.Anything, "alice").
			Return(plainAuthor("alice"), nil).Once()
		announcer.On("Announce", mock.Anything, mock.Anything).Return(nil).Once()

		require.NoError(t, engine.Run(context.Background()))

		vcs.AssertNumberOfCalls(t, "ResolveAuthor", 1)
	})

	t.Run("watermark advances on an empty cycle and before publishing", func(t *testing.T) {
		vcs := &MockVCSClient{}
		announcer := &MockAnnouncer{}
		engine := newEngine(vcs, announcer, SyncOptions{})

		before := engine.Watermark()
		vcs.On("FetchPullRequestsSince", mock.Anything, mock.Anything).
			Return([]models.PullRequest{mergedPR(1, "alice", watermark.Add(time.Hour))}, nil).Once()
		vcs.On("ResolveAuthor", mock.Anything, "alice").
			Return(plainAuthor("alice"), nil).Once()
		announcer.On("Announce", mock.Anything, mock.Anything).
			Return(errors.New("publish blew up")).Once()

		err := engine.Run(context.Background())

		assert.Error(t, err)
		assert.True(t, engine.Watermark().After(before),
			"a publish failure must not roll the watermark back")
	})

	t.Run("a tick during a running cycle is dropped", func(t *testing.T) {
		vcs := &MockVCSClient{}
		announcer := &MockAnnouncer{}
		engine := newEngine(vcs, announcer, SyncOptions{})

		entered := make(chan struct{})
		release := make(chan struct{})

		vcs.On("FetchPullRequestsSince", mock.Anything, mock.Anything).
			Return([]models.PullRequest{mergedPR(1, "alice", watermark.Add(time.Hour))}, nil).Once()
		vcs.On("ResolveAuthor", mock.Anything, "alice").
			Return(plainAuthor("alice"), nil).Once()
		announcer.On("Announce", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) {
				close(entered)
				<-release
			}).Return(nil).Once()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = engine.Run(context.Background())
		}()

		<-entered
		require.NoError(t, engine.Run(context.Background()), "overlapping tick must be a no-op")
		close(release)
		wg.Wait()

		vcs.AssertNumberOfCalls(t, "FetchPullRequestsSince", 1)
		announcer.AssertNumberOfCalls(t, "Announce", 1)
	})
}

// End-to-end scenario through the real announcer: one merged PR with a
// resolvable Bluesky handle becomes a single post with a mention facet.
func TestSyncService_MergedScenario(t *testing.T) {
	translations, err := i18n.NewTranslations("en")
	require.NoError(t, err)

	mergedAt := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	vcs := &MockVCSClient{}
	publisher := &MockPublisher{}
	announcer := NewAnnouncer(publisher, nil, translations, "o", "r")
	announcer.SetPostDelay(0)

	start := watermark
	engine := NewSyncService(vcs, announcer, SyncOptions{StartOverride: &start})

	pr := models.PullRequest{
		Number:      42,
		Title:       "Fix race in watcher",
		URL:         "https://github.com/o/r/pull/42",
		State:       models.StateMerged,
		EventTime:   mergedAt,
		AuthorLogin: "alice",
	}
	author := plainAuthor("alice")
	author.Bluesky = &models.SocialAccount{
		Handle: "alice.example.social",
		URL:    "https://bsky.app/profile/alice.example.social",
	}

	vcs.On("FetchPullRequestsSince", mock.Anything, start).
		Return([]models.PullRequest{pr}, nil).Once()
	vcs.On("ResolveAuthor", mock.Anything, "alice").
		Return(author, nil).Once()
	publisher.On("ResolveHandle", mock.Anything, "alice.example.social").
		Return("did:plc:abc", nil).Once()

	var posted models.Post
	publisher.On("Publish", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			posted = args.Get(1).(models.Post)
		}).Return(nil).Once()

	require.NoError(t, engine.Run(context.Background()))

	assert.Contains(t, posted.Text, "🚀")
	assert.Contains(t, posted.Text, "Fix race in watcher")
	assert.Contains(t, posted.Text, "@alice.example.social")

	var mention *models.Facet
	for i := range posted.Facets {
		if posted.Facets[i].Type == models.FacetMention {
			mention = &posted.Facets[i]
		}
	}
	require.NotNil(t, mention, "expected a mention facet")
	assert.Equal(t, "did:plc:abc", mention.Value)
	assert.Equal(t, "@alice.example.social",
		posted.Text[mention.ByteStart:mention.ByteEnd])

	assert.False(t, engine.Watermark().Before(mergedAt))
	publisher.AssertExpectations(t)
}

func TestFileWatermarkStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store := NewFileWatermarkStore(path)

	t.Run("missing file means no watermark", func(t *testing.T) {
		_, ok, err := store.Load()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("round trip", func(t *testing.T) {
		saved := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		require.NoError(t, store.Save(saved))

		loaded, ok, err := store.Load()
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, loaded.Equal(saved))
	})

	t.Run("a persisted watermark seeds the engine", func(t *testing.T) {
		vcs := &MockVCSClient{}
		engine := NewSyncService(vcs, &MockAnnouncer{}, SyncOptions{Store: store})

		assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), engine.Watermark().UTC())
	})
}
