package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v80/github"

	"github.com/prskeet/prskeet/internal/domain/models"
	domainErrors "github.com/prskeet/prskeet/internal/errors"
	"github.com/prskeet/prskeet/internal/logger"
)

// blueskyHost is the only host accepted for bluesky profile links.
const blueskyHost = "bsky.app"

const (
	providerBluesky  = "bluesky"
	providerMastodon = "mastodon"
	providerTwitter  = "twitter"
	providerReddit   = "reddit"
)

// ResolveAuthor fetches the user profile and linked social accounts for a
// login. A malformed account URL only leaves that provider unset; the other
// providers still resolve. Request errors propagate.
func (ghc *GitHubClient) ResolveAuthor(ctx context.Context, login string) (*models.Author, error) {
	log := logger.FromContext(ctx)

	user, resp, err := ghc.usersService.Get(ctx, login)
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusNotFound:
				return nil, domainErrors.ErrUserNotFound.WithError(err).
					WithContext("login", login)
			case http.StatusUnauthorized:
				return nil, domainErrors.ErrGitHubTokenInvalid.WithError(err).
					WithContext("operation", "get user")
			case http.StatusTooManyRequests, http.StatusForbidden:
				return nil, domainErrors.ErrGitHubRateLimit.WithError(err).
					WithContext("retry_after", resp.Header.Get("Retry-After")).
					WithContext("operation", "get user")
			}
		}
		return nil, fmt.Errorf("failed to get user %s: %w", login, err)
	}

	author := &models.Author{
		Login:      user.GetLogin(),
		ProfileURL: user.GetHTMLURL(),
	}

	accounts, _, err := ghc.usersService.ListUserSocialAccounts(ctx, login, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("failed to list social accounts for %s: %w", login, err)
	}

	for _, account := range accounts {
		rawURL := account.GetURL()

		switch strings.ToLower(account.GetProvider()) {
		case providerBluesky:
			handle, err := parseBlueskyHandle(rawURL)
			if err != nil {
				log.Warn("skipping malformed bluesky account",
					"login", login,
					"url", rawURL,
					"error", err)
				continue
			}
			if author.Bluesky == nil {
				author.Bluesky = &models.SocialAccount{Handle: handle, URL: rawURL}
			}

		case providerMastodon:
			handle, err := parseMastodonHandle(rawURL)
			if err != nil {
				log.Warn("skipping malformed mastodon account",
					"login", login,
					"url", rawURL,
					"error", err)
				continue
			}
			if author.Mastodon == nil {
				author.Mastodon = &models.SocialAccount{Handle: handle, URL: rawURL}
			}

		case providerTwitter:
			if handle := trailingSegment(rawURL); handle != "" && author.Twitter == nil {
				author.Twitter = &models.SocialAccount{Handle: handle, URL: rawURL}
			}

		case providerReddit:
			if handle := trailingSegment(rawURL); handle != "" && author.Reddit == nil {
				author.Reddit = &models.SocialAccount{Handle: handle, URL: rawURL}
			}
		}
	}

	return author, nil
}

// parseBlueskyHandle extracts the handle from https://bsky.app/profile/<handle>.
func parseBlueskyHandle(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", domainErrors.ErrMalformedSocialURL.WithError(err).WithContext("url", rawURL)
	}
	if u.Host != blueskyHost {
		return "", domainErrors.ErrMalformedSocialURL.
			WithContext("url", rawURL).
			WithContext("reason", "unexpected host")
	}
	handle := trailingSegment(rawURL)
	if handle == "" || !strings.HasPrefix(u.Path, "/profile/") {
		return "", domainErrors.ErrMalformedSocialURL.
			WithContext("url", rawURL).
			WithContext("reason", "missing profile segment")
	}
	return handle, nil
}

// parseMastodonHandle turns https://<domain>/@<handle> into <handle>@<domain>.
func parseMastodonHandle(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", domainErrors.ErrMalformedSocialURL.WithError(err).WithContext("url", rawURL)
	}
	segment := trailingSegment(rawURL)
	if u.Host == "" || !strings.HasPrefix(segment, "@") || len(segment) < 2 {
		return "", domainErrors.ErrMalformedSocialURL.
			WithContext("url", rawURL).
			WithContext("reason", "expected /@handle path")
	}
	return strings.TrimPrefix(segment, "@") + "@" + u.Host, nil
}

// trailingSegment returns the last path segment of a URL, or "" when the
// URL does not parse or has an empty path.
func trailingSegment(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}
