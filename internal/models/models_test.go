package models

import (
	"math"
	"testing"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_RankOrdering(t *testing.T) {
	assert.Less(t, Pending.Rank(), InProgress.Rank())
	assert.Less(t, InProgress.Rank(), Resolved.Rank())
	assert.Equal(t, -1, Status("Closed").Rank())
	assert.False(t, Status("Closed").Valid())
	assert.True(t, Resolved.Terminal())
	assert.False(t, InProgress.Terminal())
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"Pending", Pending},
		{"In Progress", InProgress},
		{"InProgress", InProgress},
		{"in_progress", InProgress},
		{"RESOLVED", Resolved},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseStatus("closed")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"pothole, road ,", "#water", " "})
	assert.Equal(t, []string{"#pothole", "#road", "#water"}, got)
	assert.Empty(t, NormalizeTags(nil))

	dup := NormalizeTags([]string{"a, #b", "a,#a", "b"})
	assert.Equal(t, []string{"#a", "#b"}, dup)
}

func TestNewIssue_Validate(t *testing.T) {
	valid := NewIssue{Title: "Pothole", Description: "Deep", Lat: 12.9, Lng: 77.5, AuthorID: "u1"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(n *NewIssue)
	}{
		{"empty title", func(n *NewIssue) { n.Title = " " }},
		{"empty description", func(n *NewIssue) { n.Description = "" }},
		{"lat too high", func(n *NewIssue) { n.Lat = 90.1 }},
		{"lat too low", func(n *NewIssue) { n.Lat = -91 }},
		{"lng out of range", func(n *NewIssue) { n.Lng = 180.5 }},
		{"lat NaN", func(n *NewIssue) { n.Lat = math.NaN() }},
		{"lng NaN", func(n *NewIssue) { n.Lng = math.NaN() }},
		{"lat +Inf", func(n *NewIssue) { n.Lat = math.Inf(1) }},
		{"lng -Inf", func(n *NewIssue) { n.Lng = math.Inf(-1) }},
		{"no author", func(n *NewIssue) { n.AuthorID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := valid
			tt.mutate(&n)
			assert.ErrorIs(t, n.Validate(), common.ErrorValidation)
		})
	}

	edge := NewIssue{Title: "t", Description: "d", Lat: -90, Lng: 180, AuthorID: "u"}
	assert.NoError(t, edge.Validate())
}

func TestNewUser_Validate(t *testing.T) {
	n := NewUser{Username: "alice", Email: "alice@example.com", Kind: Citizen}
	require.NoError(t, n.Validate())

	bad := n
	bad.Email = "not-an-email"
	assert.ErrorIs(t, bad.Validate(), common.ErrorValidation)

	bad = n
	bad.Kind = "mayor"
	assert.ErrorIs(t, bad.Validate(), common.ErrorValidation)

	bad = n
	bad.Username = ""
	assert.ErrorIs(t, bad.Validate(), common.ErrorValidation)

	bad = n
	bad.Username = "alice@home"
	assert.ErrorIs(t, bad.Validate(), common.ErrorValidation)
}

func TestProfileUpdate_Apply(t *testing.T) {
	u := &User{Mobile: "1", AvatarURL: "a"}
	bio := "hello"
	mobile := "2"
	ProfileUpdate{Bio: &bio, Mobile: &mobile}.Apply(u)

	assert.Equal(t, "a", u.AvatarURL)
	assert.Equal(t, "2", u.Mobile)
	require.NotNil(t, u.Bio)
	assert.Equal(t, "hello", *u.Bio)

	bio = "changed"
	assert.Equal(t, "hello", *u.Bio, "Apply must copy the bio")
}

func TestUser_IsAuthority(t *testing.T) {
	var nilUser *User
	assert.False(t, nilUser.IsAuthority())
	assert.True(t, (&User{Kind: Authority}).IsAuthority())
	assert.False(t, (&User{Kind: Citizen}).IsAuthority())
}
