package models

import "time"

// Session is what an identity provider hands out on sign-in. A nil User
// means nobody is signed in.
type Session struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
