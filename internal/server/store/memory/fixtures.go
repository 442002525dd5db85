package memory

import (
	"strconv"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// FixturePassword is the password of every seeded account.
const FixturePassword = "civicsync"

// FixtureNationalIDs are the identifiers the demo verification registry
// accepts: the seeded users' own plus a few unclaimed ones for new
// registrations.
var FixtureNationalIDs = []string{
	"234567890123", "345678901234", "456789012345", "567890123456",
	"678901234567", "789012345678", "890123456789",
}

type fixtureUser struct {
	id       string
	user     models.NewUser
	verified bool
	age      time.Duration
}

type fixtureIssue struct {
	issue   models.Issue
	age     time.Duration
	updates []fixtureUpdate
}

type fixtureUpdate struct {
	authorityID string
	text        string
	age         time.Duration
}

func bio(s string) *string { return &s }

var fixtureUsers = []fixtureUser{
	{id: "u1", verified: true, age: 90 * 24 * time.Hour, user: models.NewUser{
		Username: "alice", Email: "alice@example.com", Mobile: "9800000001", NationalID: "234567890123",
		Kind: models.Citizen, AvatarURL: "https://i.pravatar.cc/150?u=alice", Bio: bio("Cyclist. Reports every pothole on the way to work."),
	}},
	{id: "u2", verified: true, age: 60 * 24 * time.Hour, user: models.NewUser{
		Username: "ravi", Email: "ravi@example.com", Mobile: "9800000002", NationalID: "345678901234",
		Kind: models.Citizen, AvatarURL: "https://i.pravatar.cc/150?u=ravi",
	}},
	{id: "u3", verified: false, age: 2 * 24 * time.Hour, user: models.NewUser{
		Username: "meera", Email: "meera@example.com", Mobile: "9800000003", NationalID: "456789012345",
		Kind: models.Citizen,
	}},
	{id: "a1", verified: true, age: 365 * 24 * time.Hour, user: models.NewUser{
		Username: "roads_dept", Email: "roads@city.example", Mobile: "1800000001",
		Kind: models.Authority, AvatarURL: "https://i.pravatar.cc/150?u=roads", Bio: bio("Municipal road maintenance."),
	}},
	{id: "a2", verified: true, age: 365 * 24 * time.Hour, user: models.NewUser{
		Username: "water_board", Email: "water@city.example", Mobile: "1800000002",
		Kind: models.Authority, AvatarURL: "https://i.pravatar.cc/150?u=water",
	}},
}

var fixtureIssues = []fixtureIssue{
	{age: 72 * time.Hour, issue: models.Issue{
		ID: "i1", Title: "Huge pothole on 5th Cross", Description: "Two-wheelers are swerving into traffic to avoid it.",
		Tags: []string{"pothole", "road"}, ImageURL: "https://picsum.photos/seed/i1/800/600",
		Lat: 12.9716, Lng: 77.5946, Status: models.InProgress, AuthorID: "u1", Upvotes: 42, Reposts: 7,
	}, updates: []fixtureUpdate{
		{authorityID: "a1", text: "Inspection scheduled.", age: 48 * time.Hour},
		{authorityID: "a1", text: "Crew assigned, work starts tomorrow.", age: 20 * time.Hour},
	}},
	{age: 48 * time.Hour, issue: models.Issue{
		ID: "i2", Title: "Burst pipe flooding the footpath", Description: "Clean water running into the drain since morning.",
		Tags: []string{"water", "leak"}, ImageURL: "https://picsum.photos/seed/i2/800/600",
		Lat: 12.9352, Lng: 77.6245, Status: models.Resolved, AuthorID: "u2", Upvotes: 15, Reposts: 3,
	}, updates: []fixtureUpdate{
		{authorityID: "a2", text: "Valve closed, repair team on site.", age: 40 * time.Hour},
		{authorityID: "a2", text: "Pipe replaced.", age: 30 * time.Hour},
	}},
	{age: 26 * time.Hour, issue: models.Issue{
		ID: "i3", Title: "Streetlight out near the bus stop", Description: "Completely dark after 7pm.",
		Tags: []string{"streetlight", "safety"}, ImageURL: "https://picsum.photos/seed/i3/800/600",
		Lat: 12.9279, Lng: 77.6271, Status: models.Pending, AuthorID: "u1", Upvotes: 8,
	}},
	{age: 5 * time.Hour, issue: models.Issue{
		ID: "i4", Title: "Garbage not collected for a week", Description: "Bins overflowing on the corner of 3rd Main.",
		Tags: []string{"garbage"}, ImageURL: "https://picsum.photos/seed/i4/800/600",
		Lat: 12.9141, Lng: 77.6101, Status: models.Pending, AuthorID: "u2", Upvotes: 3, Reposts: 1,
	}},
}

// seed loads the fixtures relative to the store clock. The resolved image
// of i2 is set so the demo data shows a before/after pair.
func (s *Store) seed() {
	hash, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range fixtureUsers {
		n := f.user
		n.PasswordHash = string(hash)
		if _, err := s.insertUser(&n, f.id, now.Add(-f.age), f.verified); err != nil {
			panic(err)
		}
	}

	for _, f := range fixtureIssues {
		e := &issueEntry{issue: f.issue}
		e.issue.Tags = models.NormalizeTags(f.issue.Tags)
		e.issue.CreatedAt = now.Add(-f.age)
		for k, u := range f.updates {
			e.updates = append(e.updates, models.Update{
				ID:          e.issue.ID + "-up" + strconv.Itoa(k+1),
				IssueID:     e.issue.ID,
				AuthorityID: u.authorityID,
				Text:        u.text,
				CreatedAt:   now.Add(-u.age),
			})
		}
		if e.issue.Status == models.Resolved {
			url := "https://picsum.photos/seed/" + e.issue.ID + "-fixed/800/600"
			e.issue.ResolvedImageURL = &url
		}
		s.issues[e.issue.ID] = e
	}
}
