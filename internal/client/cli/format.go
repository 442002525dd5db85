package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/civicsync/internal/models"
)

const timeLayout = "2006-01-02 15:04"

func formatIssueLine(i *models.Issue) string {
	return fmt.Sprintf("%-26s  %-11s  %s  (by %s, %d up, %d reposts)",
		i.ID, i.Status, i.Title, i.Author.Username, i.Upvotes, i.Reposts)
}

func formatIssue(i *models.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", i.Title)
	fmt.Fprintf(&b, "  id:       %s\n", i.ID)
	fmt.Fprintf(&b, "  status:   %s\n", i.Status)
	fmt.Fprintf(&b, "  author:   %s\n", i.Author.Username)
	fmt.Fprintf(&b, "  reported: %s\n", i.CreatedAt.Local().Format(timeLayout))
	fmt.Fprintf(&b, "  location: %.5f, %.5f\n", i.Lat, i.Lng)
	if len(i.Tags) > 0 {
		fmt.Fprintf(&b, "  tags:     %s\n", strings.Join(i.Tags, " "))
	}
	if i.ImageURL != "" {
		fmt.Fprintf(&b, "  photo:    %s\n", i.ImageURL)
	}
	if i.ResolvedImageURL != nil {
		fmt.Fprintf(&b, "  fixed:    %s\n", *i.ResolvedImageURL)
	}
	fmt.Fprintf(&b, "  upvotes:  %d  reposts: %d\n", i.Upvotes, i.Reposts)
	fmt.Fprintf(&b, "\n%s\n", i.Description)
	if len(i.Updates) > 0 {
		b.WriteString("\nUpdates:\n")
		for _, u := range i.Updates {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", u.CreatedAt.Local().Format(timeLayout), u.AuthorityID, orDash(u.Text))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func since(t time.Time) string {
	return time.Since(t).Round(time.Second).String()
}
