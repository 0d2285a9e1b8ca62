package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/prskeet/prskeet/internal/domain/models"
)

type (
	MockVCSClient struct {
		mock.Mock
	}

	MockPublisher struct {
		mock.Mock
	}

	MockPreviewFetcher struct {
		mock.Mock
	}

	MockAnnouncer struct {
		mock.Mock
	}
)

func (m *MockVCSClient) FetchPullRequestsSince(ctx context.Context, since time.Time) ([]models.PullRequest, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PullRequest), args.Error(1)
}

func (m *MockVCSClient) ResolveAuthor(ctx context.Context, login string) (*models.Author, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Author), args.Error(1)
}

func (m *MockPublisher) ResolveHandle(ctx context.Context, handle string) (string, error) {
	args := m.Called(ctx, handle)
	return args.String(0), args.Error(1)
}

func (m *MockPublisher) UploadBlob(ctx context.Context, data []byte, contentType string) (*models.BlobRef, error) {
	args := m.Called(ctx, data, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlobRef), args.Error(1)
}

func (m *MockPublisher) Publish(ctx context.Context, post models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPreviewFetcher) Fetch(ctx context.Context, pageURL string) (*models.PagePreview, error) {
	args := m.Called(ctx, pageURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PagePreview), args.Error(1)
}

func (m *MockPreviewFetcher) DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	args := m.Called(ctx, imageURL)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockAnnouncer) Announce(ctx context.Context, batch models.NotificationBatch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}
