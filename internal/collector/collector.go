package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v60/github"

	"github.com/prlens/prlens/internal/source"
)

// ErrInvalidRange is returned before any network call when the date
// window is missing or inverted.
var ErrInvalidRange = errors.New("collector: invalid date range")

// SourceClient is the slice of the provider client the collector needs.
type SourceClient interface {
	FetchMergeRequests(ctx context.Context, repo source.Repo, author string, since, until time.Time) ([]*github.PullRequest, error)
}

// Collector retrieves and normalizes the merge requests of one author
// inside a date window.
type Collector struct {
	client SourceClient
}

// New creates a collector over the given provider client.
func New(client SourceClient) *Collector {
	return &Collector{client: client}
}

// Collect returns the author's merge requests created inside the
// inclusive [start, end] calendar-date window, de-duplicated and in
// provider order. An empty result is not an error.
func (c *Collector) Collect(ctx context.Context, repo source.Repo, author string, start, end time.Time) ([]source.MergeRequest, error) {
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates are required", ErrInvalidRange)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s",
			ErrInvalidRange, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	raw, err := c.client.FetchMergeRequests(ctx, repo, author, start, end)
	if err != nil {
		return nil, err
	}

	// The end date is inclusive: anything created before the next
	// midnight belongs to the window.
	windowEnd := end.AddDate(0, 0, 1)

	seen := make(map[int]bool, len(raw))
	result := make([]source.MergeRequest, 0, len(raw))
	for _, pr := range raw {
		if pr.GetUser().GetLogin() != author {
			continue
		}
		created := pr.GetCreatedAt().Time
		if created.Before(start) || !created.Before(windowEnd) {
			continue
		}
		number := pr.GetNumber()
		if seen[number] {
			// Overlapping pages can repeat records.
			continue
		}
		seen[number] = true
		result = append(result, normalize(pr))
	}
	return result, nil
}

func normalize(pr *github.PullRequest) source.MergeRequest {
	mr := source.MergeRequest{
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Description:  pr.GetBody(),
		Author:       pr.GetUser().GetLogin(),
		CreatedAt:    pr.GetCreatedAt().Time,
		SourceBranch: pr.GetHead().GetRef(),
		TargetBranch: pr.GetBase().GetRef(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		URL:          pr.GetHTMLURL(),
	}
	if merged := pr.MergedAt; merged != nil {
		t := merged.Time
		mr.MergedAt = &t
	}
	return mr
}
