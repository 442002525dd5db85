package models

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/common"
)

// AccountKind distinguishes citizens from authority accounts.
type AccountKind string

const (
	Citizen   AccountKind = "citizen"
	Authority AccountKind = "authority"
)

func (k AccountKind) Valid() bool {
	return k == Citizen || k == Authority
}

// User is a registered account. Username and Email are unique across users;
// Verified only ever goes from false to true.
type User struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	Mobile       string      `json:"mobile"`
	NationalID   string      `json:"national_id"`
	Kind         AccountKind `json:"type"`
	AvatarURL    string      `json:"avatar_url,omitempty"`
	Bio          *string     `json:"bio,omitempty"`
	Verified     bool        `json:"verified"`
	CreatedAt    time.Time   `json:"created_at"`
	PasswordHash string      `json:"-"`
}

// IsAuthority reports whether u may change issue status.
func (u *User) IsAuthority() bool {
	return u != nil && u.Kind == Authority
}

// Summary is the denormalized author view embedded in issue listings.
func (u *User) Summary() AuthorSummary {
	return AuthorSummary{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL, Kind: u.Kind}
}

// AuthorSummary is the subset of a User carried by listed issues.
type AuthorSummary struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	AvatarURL string      `json:"avatar_url,omitempty"`
	Kind      AccountKind `json:"type"`
}

// NewUser carries registration data. PasswordHash is already hashed.
type NewUser struct {
	Username     string
	Email        string
	Mobile       string
	NationalID   string
	Kind         AccountKind
	AvatarURL    string
	Bio          *string
	PasswordHash string
}

func (n *NewUser) Validate() error {
	if strings.TrimSpace(n.Username) == "" {
		return fmt.Errorf("%w: username is required", common.ErrorValidation)
	}
	// usernames and emails share one lookup
	if strings.ContainsAny(n.Username, "@ ") {
		return fmt.Errorf("%w: username may not contain '@' or spaces", common.ErrorValidation)
	}
	if _, err := mail.ParseAddress(n.Email); err != nil {
		return fmt.Errorf("%w: invalid email %q", common.ErrorValidation, n.Email)
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("%w: invalid account type %q", common.ErrorValidation, n.Kind)
	}
	return nil
}

// ProfileUpdate holds optional profile edits; nil fields are left untouched.
type ProfileUpdate struct {
	AvatarURL *string
	Bio       *string
	Mobile    *string
}

// Apply writes the non-nil fields of p onto u.
func (p ProfileUpdate) Apply(u *User) {
	if p.AvatarURL != nil {
		u.AvatarURL = *p.AvatarURL
	}
	if p.Bio != nil {
		bio := *p.Bio
		u.Bio = &bio
	}
	if p.Mobile != nil {
		u.Mobile = *p.Mobile
	}
}
