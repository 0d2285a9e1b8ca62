package models

import (
	"fmt"
	"time"
)

// PRState is the closed set of pull request lifecycle states.
type PRState string

const (
	StateOpen   PRState = "open"
	StateClosed PRState = "closed"
	StateMerged PRState = "merged"
	StateDraft  PRState = "draft"
)

// TemplateDescriptor tells the announcer how to render one state.
// Suppressed states produce no post at all.
type TemplateDescriptor struct {
	TitleID    string
	VerbID     string
	SuffixID   string
	Suppressed bool
}

// Template maps a state to its descriptor. The switch is exhaustive over
// the four states; an unknown value is a programming error.
func (s PRState) Template() TemplateDescriptor {
	switch s {
	case StateOpen:
		return TemplateDescriptor{TitleID: "post_opened", VerbID: "opened_by"}
	case StateClosed:
		return TemplateDescriptor{TitleID: "post_closed", VerbID: "by", SuffixID: "closed_without_merging"}
	case StateMerged:
		return TemplateDescriptor{TitleID: "post_merged", VerbID: "by", SuffixID: "merged"}
	case StateDraft:
		return TemplateDescriptor{Suppressed: true}
	}
	panic(fmt.Sprintf("unhandled pull request state %q", s))
}

// PullRequest is one lifecycle change discovered by the walker. EventTime is
// the moment the reported state was reached: creation for open/draft, close
// time for closed, merge time for merged. Immutable once constructed.
type PullRequest struct {
	Number      int
	Title       string
	URL         string
	State       PRState
	EventTime   time.Time
	AuthorLogin string
	Author      *Author
}

// NotificationBatch is the ordered, filtered, deduplicated output of one
// sync cycle, consumed exactly once by the announcer.
type NotificationBatch []PullRequest
