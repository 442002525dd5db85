// Package storetest is the behavioral suite every store.Store backend must
// pass. Backends call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/images"
	"github.com/dmitrijs2005/civicsync/internal/server/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store that saves images into img.
type Factory func(t *testing.T, img images.Store) store.Store

func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store, img *images.MemoryStore)
	}{
		{"CreateAndFindUser", testCreateAndFindUser},
		{"IdentifierPrefersUsername", testIdentifierPrefersUsername},
		{"DuplicateUsernameConflicts", testDuplicateUsername},
		{"DuplicateEmailConflicts", testDuplicateEmail},
		{"SetVerifiedIsIdempotent", testSetVerified},
		{"UpdateProfile", testUpdateProfile},
		{"UnknownUser", testUnknownUser},
		{"CreateIssueDefaults", testCreateIssueDefaults},
		{"CreateIssueUnknownAuthor", testCreateIssueUnknownAuthor},
		{"CreateIssueImageFailure", testCreateIssueImageFailure},
		{"CreateIssueRejectsInvalid", testCreateIssueInvalid},
		{"ListIssuesPaging", testListIssuesPaging},
		{"TransitionAppendsThenSets", testTransition},
		{"TransitionGuardAborts", testTransitionGuard},
		{"TransitionObservedInOrder", testTransitionObserved},
		{"TransitionUnknownIssue", testTransitionUnknown},
		{"ConcurrentIncrements", testConcurrentIncrements},
		{"IncrementUnknownIssue", testIncrementUnknown},
		{"ListByAuthor", testListByAuthor},
		{"ManagedByDeduplicates", testManagedBy},
		{"CanceledContext", testCanceledContext},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := images.NewMemoryStore()
			s := newStore(t, img)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s, img)
		})
	}
}

func mustUser(t *testing.T, s store.Store, username string, kind models.AccountKind) *models.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &models.NewUser{
		Username:     username,
		Email:        username + "@example.com",
		Kind:         kind,
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	return u
}

func mustIssue(t *testing.T, s store.Store, authorID, title string) *models.Issue {
	t.Helper()
	i, err := s.CreateIssue(context.Background(), &models.NewIssue{
		Title: title, Description: "d", Tags: []string{"road"}, Lat: 1, Lng: 2, AuthorID: authorID,
	}, []byte("img"))
	require.NoError(t, err)
	return i
}

func advance(t *testing.T, s store.Store, issueID, authorityID string, target models.Status, text string) *models.Issue {
	t.Helper()
	i, err := s.Transition(context.Background(), issueID, models.TransitionRequest{
		Update: models.Update{AuthorityID: authorityID, Text: text},
		Target: target,
	}, nil)
	require.NoError(t, err)
	return i
}

func testCreateAndFindUser(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	created := mustUser(t, s, "Alice", models.Citizen)

	assert.NotEmpty(t, created.ID)
	assert.False(t, created.Verified)
	assert.Equal(t, "hash", created.PasswordHash)

	got, err := s.FindUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Username)

	byName, err := s.FindUserByUsernameOrEmail(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byEmail, err := s.FindUserByUsernameOrEmail(ctx, "Alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = s.FindUserByUsernameOrEmail(ctx, "ALICE@EXAMPLE.COM")
	assert.ErrorIs(t, err, common.ErrorNotFound, "email matching is exact")
}

func testIdentifierPrefersUsername(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	byEmail, err := s.CreateUser(ctx, &models.NewUser{
		Username: "bob", Email: "bob@example.com", Kind: models.Citizen, PasswordHash: "hash",
	})
	require.NoError(t, err)
	byName, err := s.CreateUser(ctx, &models.NewUser{
		Username: "Bob@Example.com", Email: "other@example.com", Kind: models.Citizen, PasswordHash: "hash",
	})
	require.NoError(t, err)

	got, err := s.FindUserByUsernameOrEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, byName.ID, got.ID)

	got, err = s.FindUserByUsernameOrEmail(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, byEmail.ID, got.ID)
}

func testDuplicateUsername(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	mustUser(t, s, "alice", models.Citizen)

	_, err := s.CreateUser(ctx, &models.NewUser{Username: "ALICE", Email: "other@example.com", Kind: models.Citizen})
	assert.ErrorIs(t, err, common.ErrorConflict)

	_, err = s.FindUserByUsernameOrEmail(ctx, "other@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound, "nothing is created on conflict")
}

func testDuplicateEmail(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	mustUser(t, s, "alice", models.Citizen)

	_, err := s.CreateUser(ctx, &models.NewUser{Username: "alicia", Email: "alice@example.com", Kind: models.Citizen})
	assert.ErrorIs(t, err, common.ErrorConflict)

	_, err = s.FindUserByUsernameOrEmail(ctx, "alicia")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func testSetVerified(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	u := mustUser(t, s, "bob", models.Citizen)

	for range 2 {
		got, err := s.SetVerified(ctx, u.ID)
		require.NoError(t, err)
		assert.True(t, got.Verified)
	}

	_, err := s.SetVerified(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func testUpdateProfile(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	u := mustUser(t, s, "carol", models.Citizen)

	bio := "hello"
	got, err := s.UpdateProfile(ctx, u.ID, models.ProfileUpdate{Bio: &bio})
	require.NoError(t, err)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "hello", *got.Bio)

	mobile := "123"
	got, err = s.UpdateProfile(ctx, u.ID, models.ProfileUpdate{Mobile: &mobile})
	require.NoError(t, err)
	assert.Equal(t, "123", got.Mobile)
	require.NotNil(t, got.Bio, "unset fields are kept")
	assert.Equal(t, "hello", *got.Bio)
}

func testUnknownUser(t *testing.T, s store.Store, _ *images.MemoryStore) {
	_, err := s.FindUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func testCreateIssueDefaults(t *testing.T, s store.Store, img *images.MemoryStore) {
	ctx := context.Background()
	author := mustUser(t, s, "dave", models.Citizen)

	i, err := s.CreateIssue(ctx, &models.NewIssue{
		Title: "Pothole", Description: "Deep", Tags: []string{"road, #water", ""},
		Lat: 12.5, Lng: -77.25, AuthorID: author.ID,
	}, []byte("photo"))
	require.NoError(t, err)

	assert.NotEmpty(t, i.ID)
	assert.Equal(t, models.Pending, i.Status)
	assert.Zero(t, i.Upvotes)
	assert.Zero(t, i.Reposts)
	assert.Equal(t, []string{"#road", "#water"}, i.Tags)
	assert.Equal(t, author.ID, i.Author.ID)
	assert.Equal(t, "dave", i.Author.Username)
	assert.Nil(t, i.ResolvedImageURL)
	assert.Empty(t, i.Updates)

	stored, ok := img.Get(i.ImageURL)
	require.True(t, ok, "image is stored under the returned URL")
	assert.Equal(t, []byte("photo"), stored)

	got, err := s.FindIssueByID(ctx, i.ID)
	require.NoError(t, err)
	assert.Equal(t, i.Title, got.Title)
	assert.InDelta(t, 12.5, got.Lat, 1e-9)
	assert.InDelta(t, -77.25, got.Lng, 1e-9)
}

func testCreateIssueUnknownAuthor(t *testing.T, s store.Store, img *images.MemoryStore) {
	_, err := s.CreateIssue(context.Background(), &models.NewIssue{
		Title: "t", Description: "d", AuthorID: "ghost",
	}, []byte("img"))
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, 0, img.Len())
}

func testCreateIssueInvalid(t *testing.T, s store.Store, img *images.MemoryStore) {
	ctx := context.Background()
	author := mustUser(t, s, "gina", models.Citizen)

	tests := []struct {
		name  string
		lat   float64
		lng   float64
		title string
	}{
		{"lat out of range", 91, 0, "t"},
		{"lng out of range", 0, -181, "t"},
		{"lat NaN", math.NaN(), 0, "t"},
		{"lng Inf", 0, math.Inf(1), "t"},
		{"empty title", 0, 0, " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateIssue(ctx, &models.NewIssue{
				Title: tt.title, Description: "d", Lat: tt.lat, Lng: tt.lng, AuthorID: author.ID,
			}, []byte("img"))
			assert.ErrorIs(t, err, common.ErrorValidation)
		})
	}

	assert.Equal(t, 0, img.Len(), "no image stored for a rejected issue")
	list, err := s.ListIssuesByAuthor(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testCreateIssueImageFailure(t *testing.T, s store.Store, img *images.MemoryStore) {
	ctx := context.Background()
	author := mustUser(t, s, "erin", models.Citizen)
	img.FailWith(errors.New("bucket gone"))

	_, err := s.CreateIssue(ctx, &models.NewIssue{
		Title: "t", Description: "d", AuthorID: author.ID,
	}, []byte("img"))
	assert.ErrorIs(t, err, common.ErrorBackendUnavailable)

	list, err := s.ListIssuesByAuthor(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, list, "no issue without its image")
}

func testListIssuesPaging(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	author := mustUser(t, s, "frank", models.Citizen)

	total := common.PageSize + 2
	for n := range total {
		mustIssue(t, s, author.ID, fmt.Sprintf("issue %02d", n))
		time.Sleep(time.Millisecond)
	}

	page1, err := s.ListIssues(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page1, common.PageSize)
	assert.Equal(t, "issue 11", page1[0].Title)
	assert.Equal(t, "issue 02", page1[common.PageSize-1].Title)
	for _, i := range page1 {
		assert.Empty(t, i.Updates)
		assert.Equal(t, "frank", i.Author.Username)
	}

	page2, err := s.ListIssues(ctx, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "issue 01", page2[0].Title)
	assert.Equal(t, "issue 00", page2[1].Title)

	page3, err := s.ListIssues(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, page3)
	assert.Empty(t, page3)

	page0, err := s.ListIssues(ctx, 0)
	require.NoError(t, err)
	require.Len(t, page0, common.PageSize)
	assert.Equal(t, page1[0].ID, page0[0].ID)
}

func testTransition(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	author := mustUser(t, s, "gina", models.Citizen)
	authority := mustUser(t, s, "roads", models.Authority)
	issue := mustIssue(t, s, author.ID, "lamp")

	after := advance(t, s, issue.ID, authority.ID, models.InProgress, "on it")
	assert.Equal(t, models.InProgress, after.Status)
	require.Len(t, after.Updates, 1)
	assert.Equal(t, "on it", after.Updates[0].Text)
	assert.Equal(t, authority.ID, after.Updates[0].AuthorityID)
	assert.Equal(t, issue.ID, after.Updates[0].IssueID)
	assert.NotEmpty(t, after.Updates[0].ID)

	url := "memory://images/fixed"
	done, err := s.Transition(ctx, issue.ID, models.TransitionRequest{
		Update:           models.Update{AuthorityID: authority.ID, Text: "fixed"},
		Target:           models.Resolved,
		ResolvedImageURL: &url,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.Resolved, done.Status)
	require.NotNil(t, done.ResolvedImageURL)
	assert.Equal(t, url, *done.ResolvedImageURL)

	got, err := s.FindIssueByID(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, got.Updates, 2)
	assert.Equal(t, "fixed", got.Updates[0].Text, "newest update first")
	assert.Equal(t, "on it", got.Updates[1].Text)
	assert.False(t, got.Updates[0].CreatedAt.Before(got.Updates[1].CreatedAt))
}

// testTransitionObserved polls an issue while it moves to Resolved. Every
// snapshot must show a status no lower than the previous one, and any
// status past Pending must come with the update that explains it.
func testTransitionObserved(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	author := mustUser(t, s, "ivan", models.Citizen)
	authority := mustUser(t, s, "lights", models.Authority)
	issue := mustIssue(t, s, author.ID, "dark street")

	note := func(st models.Status) string { return "now " + string(st) }
	steps := []models.Status{models.InProgress, models.InProgress, models.Resolved}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		for n, target := range steps {
			text := note(target)
			if n == 1 {
				text = "still " + string(target)
			}
			_, err := s.Transition(ctx, issue.ID, models.TransitionRequest{
				Update: models.Update{AuthorityID: authority.ID, Text: text},
				Target: target,
			}, nil)
			if err != nil {
				done <- err
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	last := models.Pending
	observed := 0
	check := func(got *models.Issue) {
		assert.GreaterOrEqual(t, got.Status.Rank(), last.Rank(), "status went from %s to %s", last, got.Status)
		last = got.Status
		if got.Status == models.Pending {
			return
		}
		want := note(got.Status)
		found := false
		for _, u := range got.Updates {
			if u.Text == want {
				found = true
				break
			}
		}
		assert.True(t, found, "status %s visible without update %q", got.Status, want)
	}

	for running := true; running; {
		select {
		case err, ok := <-done:
			require.False(t, ok && err != nil, "writer failed: %v", err)
			running = false
		default:
		}
		got, err := s.FindIssueByID(ctx, issue.ID)
		require.NoError(t, err)
		check(got)
		observed++
	}

	assert.Equal(t, models.Resolved, last)
	assert.Positive(t, observed)
}

func testTransitionGuard(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	author := mustUser(t, s, "hank", models.Citizen)
	authority := mustUser(t, s, "parks", models.Authority)
	issue := mustIssue(t, s, author.ID, "bench")

	var seen models.Status
	_, err := s.Transition(ctx, issue.ID, models.TransitionRequest{
		Update: models.Update{AuthorityID: authority.ID, Text: "nope"},
		Target: models.Resolved,
	}, func(current *models.Issue) error {
		seen = current.Status
		return common.ErrorIllegalTransition
	})
	assert.ErrorIs(t, err, common.ErrorIllegalTransition)
	assert.Equal(t, models.Pending, seen)

	got, err := s.FindIssueByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Pending, got.Status)
	assert.Empty(t, got.Updates)
}

func testTransitionUnknown(t *testing.T, s store.Store, _ *images.MemoryStore) {
	authority := mustUser(t, s, "lights", models.Authority)
	_, err := s.Transition(context.Background(), "missing", models.TransitionRequest{
		Update: models.Update{AuthorityID: authority.ID, Text: "x"},
		Target: models.InProgress,
	}, nil)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func testConcurrentIncrements(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	author := mustUser(t, s, "ivan", models.Citizen)
	issue := mustIssue(t, s, author.ID, "crowd")

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.IncrementCounter(ctx, issue.ID, models.Upvotes)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := s.IncrementCounter(ctx, issue.ID, models.Reposts)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.FindIssueByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.Upvotes)
	assert.Equal(t, int64(n), got.Reposts)

	v, err := s.IncrementCounter(ctx, issue.ID, models.Upvotes)
	require.NoError(t, err)
	assert.Equal(t, int64(n+1), v)
}

func testIncrementUnknown(t *testing.T, s store.Store, _ *images.MemoryStore) {
	_, err := s.IncrementCounter(context.Background(), "missing", models.Upvotes)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func testListByAuthor(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	a := mustUser(t, s, "jane", models.Citizen)
	b := mustUser(t, s, "kyle", models.Citizen)
	first := mustIssue(t, s, a.ID, "first")
	time.Sleep(time.Millisecond)
	mustIssue(t, s, b.ID, "other")
	time.Sleep(time.Millisecond)
	second := mustIssue(t, s, a.ID, "second")

	got, err := s.ListIssuesByAuthor(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)

	none, err := s.ListIssuesByAuthor(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testManagedBy(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx := context.Background()
	author := mustUser(t, s, "lena", models.Citizen)
	roads := mustUser(t, s, "roads_dept", models.Authority)
	water := mustUser(t, s, "water_board", models.Authority)

	older := mustIssue(t, s, author.ID, "older")
	time.Sleep(time.Millisecond)
	newer := mustIssue(t, s, author.ID, "newer")
	mustIssue(t, s, author.ID, "untouched")

	advance(t, s, older.ID, roads.ID, models.InProgress, "one")
	advance(t, s, older.ID, roads.ID, models.InProgress, "two")
	advance(t, s, newer.ID, roads.ID, models.InProgress, "three")
	advance(t, s, newer.ID, water.ID, models.Resolved, "four")

	got, err := s.ListIssuesManagedByAuthority(ctx, roads.ID)
	require.NoError(t, err)
	require.Len(t, got, 2, "each issue once")
	assert.Equal(t, newer.ID, got[0].ID)
	assert.Equal(t, older.ID, got[1].ID)

	got, err = s.ListIssuesManagedByAuthority(ctx, water.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, newer.ID, got[0].ID)

	none, err := s.ListIssuesManagedByAuthority(ctx, author.ID)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testCanceledContext(t *testing.T, s store.Store, _ *images.MemoryStore) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FindUser(ctx, "x")
	assert.Error(t, err)
	_, err = s.ListIssues(ctx, 1)
	assert.Error(t, err)
	_, err = s.IncrementCounter(ctx, "x", models.Upvotes)
	assert.Error(t, err)
}
