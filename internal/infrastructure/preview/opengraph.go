package preview

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dyatlov/go-opengraph/opengraph"

	"github.com/prskeet/prskeet/internal/domain/models"
	"github.com/prskeet/prskeet/internal/domain/ports"
	"github.com/prskeet/prskeet/internal/infrastructure/httpclient"
	"github.com/prskeet/prskeet/internal/logger"
)

var _ ports.PreviewFetcher = (*OpenGraphFetcher)(nil)

// maxImageSize caps preview image downloads; the publishing network rejects
// blobs near 1 MB anyway.
const maxImageSize = 1_000_000

// OpenGraphFetcher scrapes og: meta tags from a page for link previews.
type OpenGraphFetcher struct {
	client httpclient.HTTPClient
}

func NewOpenGraphFetcher(client httpclient.HTTPClient) *OpenGraphFetcher {
	if client == nil {
		client = httpclient.Default()
	}
	return &OpenGraphFetcher{client: client}
}

func (f *OpenGraphFetcher) Fetch(ctx context.Context, pageURL string) (*models.PagePreview, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build preview request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %s: %w", pageURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn(ctx, "error closing response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching page %s", resp.StatusCode, pageURL)
	}

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to parse opengraph tags for %s: %w", pageURL, err)
	}

	preview := &models.PagePreview{
		Title:       og.Title,
		Description: og.Description,
	}
	if len(og.Images) > 0 && og.Images[0] != nil {
		preview.ImageURL = og.Images[0].URL
	}

	return preview, nil
}

func (f *OpenGraphFetcher) DownloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image %s: %w", imageURL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn(ctx, "error closing response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d downloading image %s", resp.StatusCode, imageURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image %s: %w", imageURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return data, contentType, nil
}
