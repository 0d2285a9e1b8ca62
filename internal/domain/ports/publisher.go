package ports

import (
	"context"

	"github.com/prskeet/prskeet/internal/domain/models"
)

// Publisher is the outbound social network surface.
type Publisher interface {
	// ResolveHandle resolves a handle to a stable identity id (DID).
	// An empty id with a nil error means the handle could not be resolved
	// and the caller should fall back to a plain link.
	ResolveHandle(ctx context.Context, handle string) (string, error)

	// UploadBlob stores a binary and returns a reference usable in an embed.
	UploadBlob(ctx context.Context, data []byte, contentType string) (*models.BlobRef, error)

	// Publish creates one post record.
	Publish(ctx context.Context, post models.Post) error
}

// Announcer consumes one notification batch, in order, exactly once.
type Announcer interface {
	Announce(ctx context.Context, batch models.NotificationBatch) error
}
