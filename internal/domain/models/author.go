package models

// SocialAccount is one verified identity on an external network.
type SocialAccount struct {
	Handle string
	URL    string
}

// Author is a GitHub user enriched with their linked social accounts.
// Instances are cached per sync cycle and shared between pull requests by
// the same author within a batch.
type Author struct {
	Login      string
	ProfileURL string
	Bluesky    *SocialAccount
	Mastodon   *SocialAccount
	Twitter    *SocialAccount
	Reddit     *SocialAccount
}

// SocialHandle returns the best reference for this author: the Bluesky
// handle when present, otherwise the first linked profile URL in priority
// order, otherwise the GitHub profile. The order is fixed policy.
func (a *Author) SocialHandle() string {
	switch {
	case a.Bluesky != nil:
		return a.Bluesky.Handle
	case a.Mastodon != nil:
		return a.Mastodon.URL
	case a.Twitter != nil:
		return a.Twitter.URL
	case a.Reddit != nil:
		return a.Reddit.URL
	}
	return a.ProfileURL
}
