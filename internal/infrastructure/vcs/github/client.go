package github

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/prskeet/prskeet/internal/domain/models"
	"github.com/prskeet/prskeet/internal/domain/ports"
	domainErrors "github.com/prskeet/prskeet/internal/errors"
	"github.com/prskeet/prskeet/internal/logger"
)

var _ ports.VCSClient = (*GitHubClient)(nil)

// The narrow service interfaces must stay assignable from the real client,
// not only from the mocks.
var (
	_ PullRequestsService = (*github.PullRequestsService)(nil)
	_ UsersService        = (*github.UsersService)(nil)
)

const (
	pullRequestPageSize = 10
	defaultPageDelay    = 5 * time.Second
)

type PullRequestsService interface {
	List(ctx context.Context, owner, repo string, opts *github.PullRequestListOptions) ([]*github.PullRequest, *github.Response, error)
}

type UsersService interface {
	Get(ctx context.Context, user string) (*github.User, *github.Response, error)
	ListUserSocialAccounts(ctx context.Context, user string, opts *github.ListOptions) ([]*github.SocialAccount, *github.Response, error)
}

type GitHubClient struct {
	prService    PullRequestsService
	usersService UsersService
	owner        string
	repo         string
	pageDelay    time.Duration
}

func NewGitHubClient(owner, repo, token string) *GitHubClient {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	client := github.NewClient(httpClient)
	return &GitHubClient{
		prService:    client.PullRequests,
		usersService: client.Users,
		owner:        owner,
		repo:         repo,
		pageDelay:    defaultPageDelay,
	}
}

func NewGitHubClientWithServices(prService PullRequestsService, usersService UsersService, owner, repo string) *GitHubClient {
	return &GitHubClient{
		prService:    prService,
		usersService: usersService,
		owner:        owner,
		repo:         repo,
		pageDelay:    defaultPageDelay,
	}
}

// SetPageDelay overrides the inter-page wait. Tests zero it.
func (ghc *GitHubClient) SetPageDelay(d time.Duration) {
	ghc.pageDelay = d
}

// FetchPullRequestsSince pages through the repository's pull requests in
// most-recently-updated order. It stops on an empty page or once the oldest
// item of a page predates since: no earlier page can contain anything newer.
// The batch is deduplicated by number, first occurrence wins, and the walk
// is all-or-nothing.
func (ghc *GitHubClient) FetchPullRequestsSince(ctx context.Context, since time.Time) ([]models.PullRequest, error) {
	log := logger.FromContext(ctx)

	opts := &github.PullRequestListOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: pullRequestPageSize,
			Page:    1,
		},
	}

	seen := make(map[int]struct{})
	var batch []models.PullRequest

	for {
		log.Debug("fetching pull request page",
			"owner", ghc.owner,
			"repo", ghc.repo,
			"page", opts.Page,
			"since", since)

		prs, resp, err := ghc.prService.List(ctx, ghc.owner, ghc.repo, opts)
		if err != nil {
			return nil, ghc.mapListError(resp, err)
		}

		if len(prs) == 0 {
			break
		}

		for _, pr := range prs {
			if _, ok := seen[pr.GetNumber()]; ok {
				continue
			}
			seen[pr.GetNumber()] = struct{}{}

			converted, err := convertPullRequest(pr)
			if err != nil {
				return nil, err
			}
			batch = append(batch, converted)
		}

		oldest := prs[len(prs)-1].GetUpdatedAt().Time
		if oldest.Before(since) {
			break
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage

		if err := sleepContext(ctx, ghc.pageDelay); err != nil {
			return nil, err
		}
	}

	log.Debug("pull request walk finished",
		"owner", ghc.owner,
		"repo", ghc.repo,
		"count", len(batch))

	return batch, nil
}

func (ghc *GitHubClient) mapListError(resp *github.Response, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusForbidden:
			return domainErrors.ErrGitHubRateLimit.WithError(err).
				WithContext("retry_after", resp.Header.Get("Retry-After")).
				WithContext("operation", "list pull requests")
		case http.StatusUnauthorized:
			return domainErrors.ErrGitHubTokenInvalid.WithError(err).
				WithContext("operation", "list pull requests")
		case http.StatusNotFound:
			return domainErrors.ErrRepositoryNotFound.WithError(err).
				WithContext("repo", fmt.Sprintf("%s/%s", ghc.owner, ghc.repo))
		}
	}
	return fmt.Errorf("failed to list pull requests for %s/%s: %w", ghc.owner, ghc.repo, err)
}

// convertPullRequest maps the API object to the domain model, deriving the
// lifecycle state and its timestamp. A reported state without its timestamp
// is malformed input, never coerced to another time.
func convertPullRequest(pr *github.PullRequest) (models.PullRequest, error) {
	out := models.PullRequest{
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		URL:         pr.GetHTMLURL(),
		AuthorLogin: pr.GetUser().GetLogin(),
	}

	switch {
	case pr.GetState() == "closed" && pr.MergedAt != nil:
		out.State = models.StateMerged
		out.EventTime = pr.GetMergedAt().Time
	case pr.GetState() == "closed":
		if pr.ClosedAt == nil {
			return models.PullRequest{}, domainErrors.ErrMissingStateTime.
				WithContext("pr_number", pr.GetNumber()).
				WithContext("state", "closed")
		}
		out.State = models.StateClosed
		out.EventTime = pr.GetClosedAt().Time
	case pr.GetDraft():
		out.State = models.StateDraft
		out.EventTime = pr.GetCreatedAt().Time
	default:
		out.State = models.StateOpen
		out.EventTime = pr.GetCreatedAt().Time
	}

	if out.EventTime.IsZero() {
		return models.PullRequest{}, domainErrors.ErrMissingStateTime.
			WithContext("pr_number", pr.GetNumber()).
			WithContext("state", string(out.State))
	}

	return out, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
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
