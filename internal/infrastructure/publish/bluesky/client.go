package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prskeet/prskeet/internal/domain/models"
	"github.com/prskeet/prskeet/internal/domain/ports"
	domainErrors "github.com/prskeet/prskeet/internal/errors"
	"github.com/prskeet/prskeet/internal/infrastructure/httpclient"
	"github.com/prskeet/prskeet/internal/logger"
)

var _ ports.Publisher = (*Client)(nil)

const postCollection = "app.bsky.feed.post"

// Client talks XRPC to a Bluesky PDS. Construct it with Connect; a Client
// always holds a live session.
type Client struct {
	host    string
	http    httpclient.HTTPClient
	session session
}

type session struct {
	AccessJwt string `json:"accessJwt"`
	Did       string `json:"did"`
	Handle    string `json:"handle"`
}

// Connect authenticates against the PDS and returns a ready client, or
// fails fast. There is no lazy re-initialization.
func Connect(ctx context.Context, host, identifier, password string, hc httpclient.HTTPClient) (*Client, error) {
	if hc == nil {
		hc = httpclient.Default()
	}

	c := &Client{
		host: strings.TrimSuffix(host, "/"),
		http: hc,
	}

	body, err := json.Marshal(map[string]string{
		"identifier": identifier,
		"password":   password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/xrpc/com.atproto.server.createSession", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domainErrors.ErrBlueskyAuth.WithError(err).WithContext("host", c.host)
	}
	defer closeBody(ctx, resp)

	if resp.StatusCode != http.StatusOK {
		return nil, domainErrors.ErrBlueskyAuth.
			WithContext("host", c.host).
			WithContext("status_code", resp.StatusCode).
			WithContext("identifier", identifier)
	}

	if err := json.NewDecoder(resp.Body).Decode(&c.session); err != nil {
		return nil, domainErrors.ErrBlueskyAuth.WithError(err).WithContext("host", c.host)
	}

	logger.Info(ctx, "bluesky session created",
		"host", c.host,
		"handle", c.session.Handle,
		"did", c.session.Did)

	return c, nil
}

// ResolveHandle resolves a handle to its DID. A handle the PDS does not
// know yields an empty DID with no error so callers can fall back to a
// plain link.
func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	endpoint := c.host + "/xrpc/com.atproto.identity.resolveHandle?handle=" + url.QueryEscape(handle)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build resolve request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", domainErrors.ErrResolveHandle.WithError(err).WithContext("handle", handle)
	}
	defer closeBody(ctx, resp)

	if resp.StatusCode == http.StatusBadRequest {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", domainErrors.ErrResolveHandle.
			WithContext("handle", handle).
			WithContext("status_code", resp.StatusCode)
	}

	var out struct {
		Did string `json:"did"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", domainErrors.ErrResolveHandle.WithError(err).WithContext("handle", handle)
	}

	return out.Did, nil
}

type blobRef struct {
	Type string `json:"$type"`
	Ref  struct {
		Link string `json:"$link"`
	} `json:"ref"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// UploadBlob stores a binary on the PDS and returns the reference to embed.
func (c *Client) UploadBlob(ctx context.Context, data []byte, contentType string) (*models.BlobRef, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/xrpc/com.atproto.repo.uploadBlob", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.session.AccessJwt)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domainErrors.ErrUploadBlob.WithError(err)
	}
	defer closeBody(ctx, resp)

	if resp.StatusCode != http.StatusOK {
		return nil, domainErrors.ErrUploadBlob.
			WithContext("status_code", resp.StatusCode).
			WithContext("content_type", contentType).
			WithContext("size", len(data))
	}

	var out struct {
		Blob blobRef `json:"blob"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domainErrors.ErrUploadBlob.WithError(err)
	}

	return &models.BlobRef{
		Link:     out.Blob.Ref.Link,
		MimeType: out.Blob.MimeType,
		Size:     out.Blob.Size,
	}, nil
}

// Publish creates one app.bsky.feed.post record in the session repo.
func (c *Client) Publish(ctx context.Context, post models.Post) error {
	record := buildRecord(post)

	body, err := json.Marshal(map[string]interface{}{
		"repo":       c.session.Did,
		"collection": postCollection,
		"record":     record,
	})
	if err != nil {
		return fmt.Errorf("failed to encode post record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/xrpc/com.atproto.repo.createRecord", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build create record request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.session.AccessJwt)

	resp, err := c.http.Do(req)
	if err != nil {
		return domainErrors.ErrCreatePost.WithError(err)
	}
	defer closeBody(ctx, resp)

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return domainErrors.ErrCreatePost.
			WithContext("status_code", resp.StatusCode).
			WithContext("response", string(detail)).
			WithContext("text", post.Text)
	}

	logger.Debug(ctx, "post created", "text", post.Text, "facets", len(post.Facets))
	return nil
}

func buildRecord(post models.Post) map[string]interface{} {
	record := map[string]interface{}{
		"$type":     postCollection,
		"text":      post.Text,
		"createdAt": post.CreatedAt.UTC().Format(time.RFC3339),
	}

	if len(post.Facets) > 0 {
		facets := make([]map[string]interface{}, 0, len(post.Facets))
		for _, f := range post.Facets {
			var feature map[string]interface{}
			switch f.Type {
			case models.FacetMention:
				feature = map[string]interface{}{
					"$type": "app.bsky.richtext.facet#mention",
					"did":   f.Value,
				}
			case models.FacetLink:
				feature = map[string]interface{}{
					"$type": "app.bsky.richtext.facet#link",
					"uri":   f.Value,
				}
			default:
				continue
			}
			facets = append(facets, map[string]interface{}{
				"index": map[string]int{
					"byteStart": f.ByteStart,
					"byteEnd":   f.ByteEnd,
				},
				"features": []map[string]interface{}{feature},
			})
		}
		record["facets"] = facets
	}

	if post.Embed != nil {
		external := map[string]interface{}{
			"uri":         post.Embed.URI,
			"title":       post.Embed.Title,
			"description": post.Embed.Description,
		}
		if post.Embed.Thumb != nil {
			thumb := blobRef{Type: "blob", MimeType: post.Embed.Thumb.MimeType, Size: post.Embed.Thumb.Size}
			thumb.Ref.Link = post.Embed.Thumb.Link
			external["thumb"] = thumb
		}
		record["embed"] = map[string]interface{}{
			"$type":    "app.bsky.embed.external",
			"external": external,
		}
	}

	return record
}

func closeBody(ctx context.Context, resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		logger.Warn(ctx, "error closing response body", "error", err)
	}
}
