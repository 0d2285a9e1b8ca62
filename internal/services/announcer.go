package services

import (
	"context"
	"fmt"
	"time"

	"github.com/prskeet/prskeet/internal/domain/models"
	"github.com/prskeet/prskeet/internal/domain/ports"
	"github.com/prskeet/prskeet/internal/i18n"
	"github.com/prskeet/prskeet/internal/logger"
)

var _ ports.Announcer = (*AnnouncerService)(nil)

const defaultPostDelay = 3 * time.Second

// AnnouncerService turns a notification batch into posts: one templated
// message per pull request, with a mention or link facet for the author and
// a best-effort page-preview embed.
type AnnouncerService struct {
	publisher ports.Publisher
	preview   ports.PreviewFetcher
	t         *i18n.Translations
	owner     string
	repo      string
	postDelay time.Duration
	now       func() time.Time
}

func NewAnnouncer(publisher ports.Publisher, preview ports.PreviewFetcher, t *i18n.Translations, owner, repo string) *AnnouncerService {
	return &AnnouncerService{
		publisher: publisher,
		preview:   preview,
		t:         t,
		owner:     owner,
		repo:      repo,
		postDelay: defaultPostDelay,
		now:       time.Now,
	}
}

// SetPostDelay overrides the inter-post wait. Tests zero it.
func (a *AnnouncerService) SetPostDelay(d time.Duration) {
	a.postDelay = d
}

// Announce publishes one post per pull request, in order. Drafts are
// suppressed. The first publish error aborts the remainder of the batch.
func (a *AnnouncerService) Announce(ctx context.Context, batch models.NotificationBatch) error {
	published := false

	for _, pr := range batch {
		desc := pr.State.Template()
		if desc.Suppressed {
			logger.Debug(ctx, "draft pull request suppressed", "pr_number", pr.Number)
			continue
		}

		if published {
			if err := waitBetweenPosts(ctx, a.postDelay); err != nil {
				return err
			}
		}

		post := a.compose(ctx, pr, desc)
		if err := a.publisher.Publish(ctx, post); err != nil {
			return fmt.Errorf("failed to publish update for PR #%d: %w", pr.Number, err)
		}

		logger.Info(ctx, "pull request update published",
			"pr_number", pr.Number,
			"state", string(pr.State))
		published = true
	}

	return nil
}

func (a *AnnouncerService) compose(ctx context.Context, pr models.PullRequest, desc models.TemplateDescriptor) models.Post {
	b := newPostBuilder()

	b.writeText(a.t.GetMessage(desc.TitleID, 0, map[string]interface{}{"Title": pr.Title}))
	b.writeText("\n")
	b.writeLink(fmt.Sprintf("%s/%s#%d", a.owner, a.repo, pr.Number), pr.URL)
	b.writeText(" " + a.t.GetMessage(desc.VerbID, 0, nil) + " ")
	a.writeAuthorRef(ctx, b, pr)
	if desc.SuffixID != "" {
		b.writeText(", " + a.t.GetMessage(desc.SuffixID, 0, nil))
	}

	post := b.build(a.now())
	post.Embed = a.buildEmbed(ctx, pr)
	return post
}

// writeAuthorRef renders the author as an at-mention when their Bluesky
// handle resolves to a DID, otherwise as a link through the social handle
// fallback chain.
func (a *AnnouncerService) writeAuthorRef(ctx context.Context, b *postBuilder, pr models.PullRequest) {
	author := pr.Author
	if author == nil {
		b.writeText("@" + pr.AuthorLogin)
		return
	}

	if author.Bluesky != nil {
		did, err := a.publisher.ResolveHandle(ctx, author.Bluesky.Handle)
		if err != nil {
			logger.Warn(ctx, "handle resolution failed, falling back to link",
				"handle", author.Bluesky.Handle,
				"error", err)
		} else if did != "" {
			b.writeMention("@"+author.Bluesky.Handle, did)
			return
		}
	}

	target := author.SocialHandle()
	if author.Bluesky != nil && target == author.Bluesky.Handle {
		target = author.Bluesky.URL
	}
	b.writeLink("@"+author.Login, target)
}

// buildEmbed scrapes the PR page for an OpenGraph preview and uploads the
// image as a blob. Every failure here degrades to a text-only post.
func (a *AnnouncerService) buildEmbed(ctx context.Context, pr models.PullRequest) *models.LinkEmbed {
	if a.preview == nil {
		return nil
	}

	page, err := a.preview.Fetch(ctx, pr.URL)
	if err != nil {
		logger.Warn(ctx, "page preview unavailable, posting text only",
			"pr_number", pr.Number,
			"url", pr.URL,
			"error", err)
		return nil
	}

	embed := &models.LinkEmbed{
		URI:         pr.URL,
		Title:       page.Title,
		Description: page.Description,
	}
	if embed.Title == "" {
		embed.Title = pr.Title
	}

	if page.ImageURL != "" {
		data, contentType, err := a.preview.DownloadImage(ctx, page.ImageURL)
		if err != nil {
			logger.Warn(ctx, "preview image download failed",
				"image_url", page.ImageURL,
				"error", err)
			return embed
		}

		blob, err := a.publisher.UploadBlob(ctx, data, contentType)
		if err != nil {
			logger.Warn(ctx, "preview image upload failed",
				"image_url", page.ImageURL,
				"error", err)
			return embed
		}
		embed.Thumb = blob
	}

	return embed
}

func waitBetweenPosts(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
