package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/common"
)

// Status is the resolution state of an issue.
type Status string

const (
	Pending    Status = "Pending"
	InProgress Status = "In Progress"
	Resolved   Status = "Resolved"
)

// ParseStatus accepts the display form ("In Progress") as well as the
// compact form used on command lines ("InProgress", "in_progress").
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s))
	switch norm {
	case "pending":
		return Pending, nil
	case "inprogress":
		return InProgress, nil
	case "resolved":
		return Resolved, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", common.ErrorValidation, s)
}

// Rank orders statuses along Pending < InProgress < Resolved. Unknown
// statuses rank -1.
func (s Status) Rank() int {
	switch s {
	case Pending:
		return 0
	case InProgress:
		return 1
	case Resolved:
		return 2
	}
	return -1
}

func (s Status) Valid() bool { return s.Rank() >= 0 }

func (s Status) Terminal() bool { return s == Resolved }

// Issue is a citizen report. Status only moves forward; counters are never
// negative.
type Issue struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Tags             []string      `json:"tags"`
	ImageURL         string        `json:"image_url"`
	Lat              float64       `json:"lat"`
	Lng              float64       `json:"lng"`
	Status           Status        `json:"status"`
	AuthorID         string        `json:"author_id"`
	CreatedAt        time.Time     `json:"created_at"`
	Upvotes          int64         `json:"upvotes"`
	Reposts          int64         `json:"reposts"`
	ResolvedImageURL *string       `json:"resolved_image_url,omitempty"`
	Author           AuthorSummary `json:"author"`
	Updates          []Update      `json:"updates,omitempty"`
}

// NewIssue carries the fields of a citizen report. The image bytes travel
// separately.
type NewIssue struct {
	Title       string
	Description string
	Tags        []string
	Lat         float64
	Lng         float64
	AuthorID    string
}

func (n *NewIssue) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", common.ErrorValidation)
	}
	if strings.TrimSpace(n.Description) == "" {
		return fmt.Errorf("%w: description is required", common.ErrorValidation)
	}
	// negated so NaN fails too
	if !(n.Lat >= -90 && n.Lat <= 90) {
		return fmt.Errorf("%w: latitude %v out of range", common.ErrorValidation, n.Lat)
	}
	if !(n.Lng >= -180 && n.Lng <= 180) {
		return fmt.Errorf("%w: longitude %v out of range", common.ErrorValidation, n.Lng)
	}
	if n.AuthorID == "" {
		return fmt.Errorf("%w: author is required", common.ErrorValidation)
	}
	return nil
}

// NormalizeTags splits comma separated tag input, trims it and prefixes
// every tag with '#'. Empty and repeated tags are dropped; the order of
// first appearance is kept.
func NormalizeTags(raw []string) []string {
	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		for _, t := range strings.Split(r, ",") {
			t = strings.TrimLeft(strings.TrimSpace(t), "#")
			if t == "" {
				continue
			}
			t = "#" + t
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	return tags
}

// CounterKind names one of the two per-issue counters.
type CounterKind string

const (
	Upvotes CounterKind = "upvotes"
	Reposts CounterKind = "reposts"
)

func (k CounterKind) Valid() bool { return k == Upvotes || k == Reposts }
