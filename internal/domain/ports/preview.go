package ports

import (
	"context"

	"github.com/prskeet/prskeet/internal/domain/models"
)

// PreviewFetcher scrapes page metadata for link-preview embeds.
type PreviewFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*models.PagePreview, error)
	DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error)
}
