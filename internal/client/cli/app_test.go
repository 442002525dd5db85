package cli

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dmitrijs2005/civicsync/internal/client/config"
	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/server/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, input string) *App {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.LogLevel = "error"

	app, err := NewApp(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	app.reader = rdr(input)
	app.out = io.Discard

	origPw := getPassword
	getPassword = func(io.Writer) ([]byte, error) { return []byte(memory.FixturePassword), nil }
	t.Cleanup(func() { getPassword = origPw })

	app.session.Init(context.Background())
	return app
}

func TestApp_LoginLogout(t *testing.T) {
	out := capturePrints(t)
	app := newTestApp(t, "roads_dept\n")
	ctx := context.Background()

	require.NoError(t, app.Login(ctx))
	assert.True(t, app.isLoggedIn())
	assert.Equal(t, "(roads_dept authority)", app.getStatus())
	assert.Contains(t, *out, "Signed in as roads_dept (authority)")

	require.NoError(t, app.WhoAmI(ctx))
	assert.Contains(t, *out, "roads_dept <roads@city.example> authority, verified: true")

	require.NoError(t, app.Logout(ctx))
	assert.False(t, app.isLoggedIn())
	assert.Empty(t, app.getStatus())
}

func TestApp_LoginRejected(t *testing.T) {
	capturePrints(t)
	app := newTestApp(t, "meera\n")

	err := app.Login(context.Background())
	assert.ErrorIs(t, err, errLoginFailed)
	assert.False(t, app.isLoggedIn())
}

func TestApp_ListAndShow(t *testing.T) {
	out := capturePrints(t)
	app := newTestApp(t, "")
	ctx := context.Background()

	require.NoError(t, app.List(ctx, nil))
	require.Len(t, *out, 4)
	assert.True(t, strings.HasPrefix((*out)[0], "i4 "))

	require.NoError(t, app.List(ctx, []string{"9"}))
	assert.Equal(t, "No issues", (*out)[len(*out)-1])

	assert.ErrorIs(t, app.List(ctx, []string{"x"}), errUsage)

	require.NoError(t, app.Show(ctx, []string{"i1"}))
	shown := (*out)[len(*out)-1]
	assert.Contains(t, shown, "Huge pothole on 5th Cross")
	assert.Contains(t, shown, "Crew assigned")

	assert.ErrorIs(t, app.Show(ctx, []string{"nope"}), common.ErrorNotFound)
	assert.ErrorIs(t, app.Show(ctx, nil), errUsage)
}

func TestApp_ReportNeedsSession(t *testing.T) {
	capturePrints(t)
	app := newTestApp(t, "Title\nDesc\n\ntag\n1\n2\n\n")

	err := app.Report(context.Background())
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestApp_Report(t *testing.T) {
	out := capturePrints(t)
	app := newTestApp(t, strings.Join([]string{
		"alice",
		"Flooded underpass",
		"Water knee deep",
		"after the rain",
		"",
		"flood, monsoon",
		"12.95",
		"77.61",
		"/tmp/photo.png",
	}, "\n")+"\n")
	ctx := context.Background()

	origRead := readFile
	readFile = func(name string) ([]byte, error) {
		if name != "/tmp/photo.png" {
			return nil, errors.New("unexpected path " + name)
		}
		return []byte("\x89PNG\r\n\x1a\nphoto"), nil
	}
	t.Cleanup(func() { readFile = origRead })

	require.NoError(t, app.Login(ctx))
	require.NoError(t, app.Report(ctx))

	last := (*out)[len(*out)-1]
	require.True(t, strings.HasPrefix(last, "Reported "), last)
	id := strings.TrimPrefix(last, "Reported ")

	issue, err := app.core.GetIssue(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "u1", issue.AuthorID)
	assert.Equal(t, "Water knee deep\nafter the rain", issue.Description)
	assert.Equal(t, []string{"#flood", "#monsoon"}, issue.Tags)
	assert.NotEmpty(t, issue.ImageURL)
}

func TestApp_ReportPhotoURL(t *testing.T) {
	out := capturePrints(t)
	app := newTestApp(t, strings.Join([]string{
		"alice",
		"Broken streetlight",
		"Dark since Monday",
		"",
		"lights",
		"12.9",
		"77.6",
		"https://photos.example/lamp.jpg",
	}, "\n")+"\n")
	ctx := context.Background()

	origFetch := fetchFile
	fetchFile = func(_ context.Context, url string, limit int64) ([]byte, error) {
		if url != "https://photos.example/lamp.jpg" || limit != maxPhotoSize {
			return nil, errors.New("unexpected fetch " + url)
		}
		return []byte("\xff\xd8\xff\xe0photo"), nil
	}
	t.Cleanup(func() { fetchFile = origFetch })

	require.NoError(t, app.Login(ctx))
	require.NoError(t, app.Report(ctx))

	last := (*out)[len(*out)-1]
	require.True(t, strings.HasPrefix(last, "Reported "), last)
	issue, err := app.core.GetIssue(ctx, strings.TrimPrefix(last, "Reported "))
	require.NoError(t, err)
	assert.NotEmpty(t, issue.ImageURL)
}

func TestApp_ReportBadCoordinate(t *testing.T) {
	capturePrints(t)
	app := newTestApp(t, "Title\nDesc\n\ntag\nnorth\n")

	err := app.Report(context.Background())
	assert.ErrorContains(t, err, "latitude")
}

func TestApp_AdvanceAndWatch(t *testing.T) {
	out := capturePrints(t)
	app := newTestApp(t, "roads_dept\nCrew on the way\nAll done\n")
	ctx := context.Background()

	require.NoError(t, app.Watch(ctx, []string{"i3"}))
	require.NoError(t, app.Watch(ctx, []string{"i3"}))
	assert.Contains(t, *out, "Already watching i3")

	require.NoError(t, app.Login(ctx))
	require.NoError(t, app.Advance(ctx, []string{"i3", "In", "Progress"}))
	assert.Contains(t, *out, "i3 is now In Progress")

	var watched []string
	for _, line := range *out {
		if strings.HasPrefix(line, "[watch] i3") {
			watched = append(watched, line)
		}
	}
	require.Len(t, watched, 1)
	assert.Contains(t, watched[0], "In Progress")
	assert.Contains(t, watched[0], "Crew on the way")

	require.NoError(t, app.Unwatch(ctx, []string{"i3"}))
	require.NoError(t, app.Unwatch(ctx, []string{"i3"}))
	assert.Contains(t, *out, "Not watching i3")

	before := len(*out)
	require.NoError(t, app.Advance(ctx, []string{"i3", "Resolved"}))
	for _, line := range (*out)[before:] {
		assert.False(t, strings.HasPrefix(line, "[watch]"), line)
	}

	issue, err := app.core.GetIssue(ctx, "i3")
	require.NoError(t, err)
	assert.Equal(t, models.Resolved, issue.Status)
}

func TestApp_AdvanceErrors(t *testing.T) {
	capturePrints(t)
	app := newTestApp(t, "alice\nplease\n")
	ctx := context.Background()

	assert.ErrorIs(t, app.Advance(ctx, []string{"i3"}), errUsage)

	require.NoError(t, app.Login(ctx))
	err := app.Advance(ctx, []string{"i3", "Resolved"})
	assert.ErrorIs(t, err, common.ErrorPermission)
}

func TestApp_Counters(t *testing.T) {
	out := capturePrints(t)
	app := newTestApp(t, "ravi\n")
	ctx := context.Background()

	assert.ErrorIs(t, app.Upvote(ctx, []string{"i1"}), common.ErrorUnauthorized)

	require.NoError(t, app.Login(ctx))
	require.NoError(t, app.Upvote(ctx, []string{"i1"}))
	assert.Contains(t, *out, "i1 has 43 upvotes")
	require.NoError(t, app.Repost(ctx, []string{"i1"}))
	assert.Contains(t, *out, "i1 has 8 reposts")

	assert.ErrorIs(t, app.Repost(ctx, nil), errUsage)
	assert.ErrorIs(t, app.Upvote(ctx, []string{"nope"}), common.ErrorNotFound)
}

func TestApp_WatchUnknownIssue(t *testing.T) {
	capturePrints(t)
	app := newTestApp(t, "")

	assert.ErrorIs(t, app.Watch(context.Background(), []string{"nope"}), common.ErrorNotFound)
	assert.ErrorIs(t, app.Unwatch(context.Background(), nil), errUsage)
}

func TestApp_RunSession(t *testing.T) {
	out := capturePrints(t)
	app := newTestApp(t, "login\nalice\nupvote i4\nlogout\nexit\n")

	app.Run(context.Background())

	assert.Contains(t, *out, "Welcome to CivicSync CLI (type 'help' for commands)")
	assert.Contains(t, *out, "i4 has 4 upvotes")
	assert.Contains(t, *out, "civic (alice citizen)> ")
	assert.Equal(t, "Bye!", (*out)[len(*out)-1])
}
