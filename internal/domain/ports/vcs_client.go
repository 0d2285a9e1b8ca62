package ports

import (
	"context"
	"time"

	"github.com/prskeet/prskeet/internal/domain/models"
)

// VCSClient is the hosting-platform surface the sync engine depends on.
type VCSClient interface {
	// FetchPullRequestsSince walks the paginated pull request feed in
	// most-recently-updated order and returns the flat, deduplicated batch
	// of lifecycle changes at or after since. All-or-nothing: any request
	// error aborts the walk.
	FetchPullRequestsSince(ctx context.Context, since time.Time) ([]models.PullRequest, error)

	// ResolveAuthor fetches the user profile and linked social accounts
	// for a login. Idempotent; callers cache per sync cycle.
	ResolveAuthor(ctx context.Context, login string) (*models.Author, error)
}
