package services

import (
	"context"
	"time"

	"github.com/prskeet/prskeet/internal/domain/models"
	"github.com/prskeet/prskeet/internal/domain/ports"
	"github.com/prskeet/prskeet/internal/logger"
)

// SyncService is the synchronization engine: it walks the pull request
// feed, enriches authors, filters, advances the watermark, and hands the
// batch to the announcer. It is the single writer of its SyncState.
type SyncService struct {
	vcs           ports.VCSClient
	announcer     ports.Announcer
	state         *SyncState
	store         WatermarkStore
	ignored       map[string]struct{}
	startOverride *time.Time
	now           func() time.Time
}

type SyncOptions struct {
	// StartOverride widens the fetch window to a fixed lower bound instead
	// of the current watermark. The watermark filter still applies.
	StartOverride *time.Time
	IgnoreUsers   []string
	// Store, when set, persists the watermark across restarts.
	Store WatermarkStore
}

func NewSyncService(vcs ports.VCSClient, announcer ports.Announcer, opts SyncOptions) *SyncService {
	s := &SyncService{
		vcs:           vcs,
		announcer:     announcer,
		store:         opts.Store,
		ignored:       make(map[string]struct{}, len(opts.IgnoreUsers)),
		startOverride: opts.StartOverride,
		now:           time.Now,
	}
	for _, login := range opts.IgnoreUsers {
		s.ignored[login] = struct{}{}
	}

	initial := s.now()
	if opts.StartOverride != nil {
		initial = *opts.StartOverride
	}
	if opts.Store != nil {
		if persisted, ok, err := opts.Store.Load(); err == nil && ok {
			initial = persisted
		}
	}
	s.state = NewSyncState(initial)

	return s
}

// Watermark exposes the current lower bound of "already notified".
func (s *SyncService) Watermark() time.Time {
	return s.state.Watermark()
}

// Run executes one sync cycle. A tick arriving while a cycle is in flight
// is dropped, never queued. On fetch failure the watermark is untouched so
// the next tick retries the same window; once the batch is assembled the
// watermark advances even if publishing later fails, so a mid-batch publish
// error skips the unsent items rather than replaying the sent ones.
func (s *SyncService) Run(ctx context.Context) error {
	if !s.state.TryBegin() {
		logger.Warn(ctx, "sync already in flight, skipping tick")
		return nil
	}
	defer s.state.End()

	preWatermark := s.state.Watermark()
	since := preWatermark
	if s.startOverride != nil {
		since = *s.startOverride
	}

	logger.Debug(ctx, "sync cycle started", "since", since, "watermark", preWatermark)

	prs, err := s.vcs.FetchPullRequestsSince(ctx, since)
	if err != nil {
		logger.Error(ctx, "fetch failed, watermark kept for retry", err, "watermark", preWatermark)
		return err
	}

	authors := make(map[string]*models.Author)
	batch := make(models.NotificationBatch, 0, len(prs))

	for _, pr := range prs {
		if _, skip := s.ignored[pr.AuthorLogin]; skip {
			logger.Debug(ctx, "ignoring pull request by ignored user",
				"pr_number", pr.Number,
				"login", pr.AuthorLogin)
			continue
		}

		// The host's update ordering is approximate; re-check against the
		// watermark in effect before this cycle.
		if pr.EventTime.Before(preWatermark) {
			continue
		}

		author, ok := authors[pr.AuthorLogin]
		if !ok {
			author, err = s.vcs.ResolveAuthor(ctx, pr.AuthorLogin)
			if err != nil {
				logger.Error(ctx, "author resolution failed, watermark kept for retry", err,
					"login", pr.AuthorLogin)
				return err
			}
			authors[pr.AuthorLogin] = author
		}

		pr.Author = author
		batch = append(batch, pr)
	}

	s.state.Advance(s.now())
	s.persistWatermark(ctx)

	if len(batch) == 0 {
		logger.Info(ctx, "no new pull requests", "watermark", s.state.Watermark())
		return nil
	}

	logger.Info(ctx, "publishing batch", "count", len(batch))
	if err := s.announcer.Announce(ctx, batch); err != nil {
		logger.Error(ctx, "publishing aborted mid-batch, remaining items skipped", err)
		return err
	}

	return nil
}

func (s *SyncService) persistWatermark(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.state.Watermark()); err != nil {
		logger.Warn(ctx, "failed to persist watermark", "error", err)
	}
}
