package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPRState_Template(t *testing.T) {
	t.Run("should cover every lifecycle state", func(t *testing.T) {
		for _, state := range []PRState{StateOpen, StateClosed, StateMerged, StateDraft} {
			assert.NotPanics(t, func() { state.Template() }, "state %s", state)
		}
	})

	t.Run("should suppress drafts only", func(t *testing.T) {
		assert.True(t, StateDraft.Template().Suppressed)
		assert.False(t, StateOpen.Template().Suppressed)
		assert.False(t, StateClosed.Template().Suppressed)
		assert.False(t, StateMerged.Template().Suppressed)
	})

	t.Run("should attach the closing suffixes", func(t *testing.T) {
		assert.Equal(t, "closed_without_merging", StateClosed.Template().SuffixID)
		assert.Equal(t, "merged", StateMerged.Template().SuffixID)
		assert.Empty(t, StateOpen.Template().SuffixID)
	})

	t.Run("should panic on an unknown state", func(t *testing.T) {
		assert.Panics(t, func() { PRState("reopened").Template() })
	})
}

func TestAuthor_SocialHandle(t *testing.T) {
	base := Author{Login: "alice", ProfileURL: "https://github.com/alice"}

	t.Run("should prefer the bluesky handle", func(t *testing.T) {
		a := base
		a.Bluesky = &SocialAccount{Handle: "alice.example.social", URL: "https://bsky.app/profile/alice.example.social"}
		a.Mastodon = &SocialAccount{Handle: "alice@hachyderm.io", URL: "https://hachyderm.io/@alice"}

		assert.Equal(t, "alice.example.social", a.SocialHandle())
	})

	t.Run("should fall back to the mastodon profile before the platform profile", func(t *testing.T) {
		a := base
		a.Mastodon = &SocialAccount{Handle: "alice@hachyderm.io", URL: "https://hachyderm.io/@alice"}

		assert.Equal(t, "https://hachyderm.io/@alice", a.SocialHandle())
	})

	t.Run("should walk the full chain", func(t *testing.T) {
		a := base
		a.Reddit = &SocialAccount{Handle: "alice", URL: "https://reddit.com/user/alice"}
		assert.Equal(t, "https://reddit.com/user/alice", a.SocialHandle())

		a.Twitter = &SocialAccount{Handle: "alice", URL: "https://twitter.com/alice"}
		assert.Equal(t, "https://twitter.com/alice", a.SocialHandle())
	})

	t.Run("should use the github profile when nothing is linked", func(t *testing.T) {
		a := base
		assert.Equal(t, "https://github.com/alice", a.SocialHandle())
	})
}
