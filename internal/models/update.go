package models

import "time"

// Update is an authority comment attached to an issue's history. Once
// written it is never modified.
type Update struct {
	ID          string    `json:"id"`
	IssueID     string    `json:"issue_id"`
	AuthorityID string    `json:"updated_by"`
	Text        string    `json:"update_text"`
	CreatedAt   time.Time `json:"timestamp"`
}

// TransitionRequest is what the store needs to record one status change:
// the update to append and the status to set after it.
type TransitionRequest struct {
	Update           Update
	Target           Status
	ResolvedImageURL *string
}

// TransitionGuard inspects the current issue under the store's lock and
// returns an error to abort the transition.
type TransitionGuard func(current *Issue) error
