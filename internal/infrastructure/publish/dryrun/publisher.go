package dryrun

import (
	"context"

	"github.com/prskeet/prskeet/internal/domain/models"
	"github.com/prskeet/prskeet/internal/domain/ports"
	"github.com/prskeet/prskeet/internal/logger"
)

var _ ports.Publisher = (*Publisher)(nil)

// Publisher logs composed posts instead of sending them. Used outside
// production mode so a full cycle can run without touching the network
// account.
type Publisher struct{}

func New() *Publisher {
	return &Publisher{}
}

func (p *Publisher) ResolveHandle(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (p *Publisher) UploadBlob(ctx context.Context, data []byte, contentType string) (*models.BlobRef, error) {
	logger.Debug(ctx, "dry run, blob not uploaded", "content_type", contentType, "size", len(data))
	return nil, nil
}

func (p *Publisher) Publish(ctx context.Context, post models.Post) error {
	logger.Info(ctx, "dry run, post not sent",
		"text", post.Text,
		"facets", len(post.Facets),
		"has_embed", post.Embed != nil)
	return nil
}
