package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/civicsync/internal/models"
	"github.com/dmitrijs2005/civicsync/internal/netx"
)

var errUsage = errors.New("usage")

// maxPhotoSize caps photos downloaded from a URL.
const maxPhotoSize = 10 << 20

// Test seams.
var (
	readFile  = os.ReadFile
	fetchFile = netx.Fetch
)

func usage(s string) error {
	return fmt.Errorf("%w: %s", errUsage, s)
}

func (a *App) List(ctx context.Context, args []string) error {
	page := 1
	if len(args) > 0 {
		p, err := strconv.Atoi(args[0])
		if err != nil {
			return usage("list [page]")
		}
		page = p
	}

	issues, err := a.core.ListIssues(ctx, page)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		printlnFn("No issues")
		return nil
	}
	for _, i := range issues {
		printlnFn(formatIssueLine(i))
	}
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("show <id>")
	}
	issue, err := a.core.GetIssue(ctx, args[0])
	if err != nil {
		return err
	}
	printlnFn(formatIssue(issue))
	return nil
}

// Report asks for the issue fields one by one and files the issue as the
// signed-in user.
func (a *App) Report(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	description, err := GetMultiline(a.reader, "Description", a.out)
	if err != nil {
		return err
	}
	tags, err := getSimpleText(a.reader, "Tags (comma separated)", a.out)
	if err != nil {
		return err
	}
	lat, err := a.readFloat("Latitude")
	if err != nil {
		return err
	}
	lng, err := a.readFloat("Longitude")
	if err != nil {
		return err
	}
	path, err := getSimpleText(a.reader, "Photo file or URL (optional)", a.out)
	if err != nil {
		return err
	}

	var image []byte
	switch {
	case path == "":
	case netx.IsURL(path):
		if image, err = fetchFile(ctx, path, maxPhotoSize); err != nil {
			return err
		}
	default:
		if image, err = readFile(path); err != nil {
			return err
		}
	}

	issue, err := a.core.ReportIssue(ctx, models.NewIssue{
		Title:       title,
		Description: description,
		Tags:        []string{tags},
		Lat:         lat,
		Lng:         lng,
	}, image)
	if err != nil {
		return err
	}

	printlnFn("Reported", issue.ID)
	return nil
}

func (a *App) readFloat(prompt string) (float64, error) {
	s, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", strings.ToLower(prompt), s)
	}
	return f, nil
}

// Advance moves an issue as the signed-in authority. The status may
// contain spaces ("advance i1 In Progress").
func (a *App) Advance(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("advance <id> <Pending|In Progress|Resolved>")
	}
	comment, err := getSimpleText(a.reader, "Update text", a.out)
	if err != nil {
		return err
	}

	issue, err := a.core.AdvanceStatus(ctx, args[0], strings.Join(args[1:], " "), comment, "")
	if err != nil {
		return err
	}

	printlnFn(fmt.Sprintf("%s is now %s", issue.ID, issue.Status))
	return nil
}

func (a *App) Upvote(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("upvote <id>")
	}
	n, err := a.core.IncrementUpvotes(ctx, args[0])
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("%s has %d upvotes", args[0], n))
	return nil
}

func (a *App) Repost(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("repost <id>")
	}
	n, err := a.core.IncrementReposts(ctx, args[0])
	if err != nil {
		return err
	}
	printlnFn(fmt.Sprintf("%s has %d reposts", args[0], n))
	return nil
}
