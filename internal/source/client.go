package source

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/go-github/v60/github"
	"golang.org/x/oauth2"
)

const (
	// DefaultMaxRetries bounds transient retries per API call.
	DefaultMaxRetries = 3
	// DefaultMaxRateLimitWaits bounds wait-and-resume cycles per API call.
	DefaultMaxRateLimitWaits = 2
	// DefaultBackoff is the base delay for exponential backoff.
	DefaultBackoff = 500 * time.Millisecond

	perPage = 100
)

// Client wraps the GitHub API with pagination, rate-limit backoff and a
// bounded transient-retry policy. Safe for concurrent use; rate-limit
// waits are serialized across all callers so the whole pipeline honors
// one global backoff.
type Client struct {
	gh *github.Client

	maxRetries        int
	maxRateLimitWaits int
	backoff           time.Duration

	rateMu sync.Mutex
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at a custom API endpoint (for testing).
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		u, _ := url.Parse(raw + "/")
		c.gh.BaseURL = u
	}
}

// WithRetries sets the transient-retry ceiling.
func WithRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBackoff sets the base backoff delay.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) { c.backoff = d }
}

// NewClient creates an authenticated GitHub client.
func NewClient(token string, opts ...Option) *Client {
	httpClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	))

	c := &Client{
		gh:                github.NewClient(httpClient),
		maxRetries:        DefaultMaxRetries,
		maxRateLimitWaits: DefaultMaxRateLimitWaits,
		backoff:           DefaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMergeRequests returns the raw pull-request records authored by
// author in repo, created inside the inclusive date window. Pages are
// followed to exhaustion and merged preserving the provider's
// reverse-chronological order.
func (c *Client) FetchMergeRequests(ctx context.Context, repo Repo, author string, since, until time.Time) ([]*github.PullRequest, error) {
	query := fmt.Sprintf("is:pr repo:%s author:%s created:%s..%s",
		repo, author, since.Format("2006-01-02"), until.Format("2006-01-02"))

	opts := &github.SearchOptions{
		Sort:        "created",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var pulls []*github.PullRequest
	for {
		var result *github.IssuesSearchResult
		var resp *github.Response
		err := c.call(ctx, "searching pull requests", func() error {
			var err error
			result, resp, err = c.gh.Search.Issues(ctx, query, opts)
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, issue := range result.Issues {
			pr, err := c.fetchPull(ctx, repo, issue.GetNumber())
			if err != nil {
				return nil, err
			}
			pulls = append(pulls, pr)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return pulls, nil
}

func (c *Client) fetchPull(ctx context.Context, repo Repo, number int) (*github.PullRequest, error) {
	var pr *github.PullRequest
	err := c.call(ctx, fmt.Sprintf("fetching pull request #%d", number), func() error {
		var err error
		pr, _, err = c.gh.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
		return err
	})
	return pr, err
}

// FetchFiles returns the changed files of one pull request, including
// per-file patch text, in provider order.
func (c *Client) FetchFiles(ctx context.Context, repo Repo, number int) ([]*github.CommitFile, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var files []*github.CommitFile
	for {
		var page []*github.CommitFile
		var resp *github.Response
		err := c.call(ctx, fmt.Sprintf("listing files of #%d", number), func() error {
			var err error
			page, resp, err = c.gh.PullRequests.ListFiles(ctx, repo.Owner, repo.Name, number, opts)
			return err
		})
		if err != nil {
			return nil, err
		}
		files = append(files, page...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return files, nil
}

// FetchCommitMessages returns the commit messages of one pull request.
func (c *Client) FetchCommitMessages(ctx context.Context, repo Repo, number int) ([]string, error) {
	opts := &github.ListOptions{PerPage: perPage}

	var messages []string
	for {
		var page []*github.RepositoryCommit
		var resp *github.Response
		err := c.call(ctx, fmt.Sprintf("listing commits of #%d", number), func() error {
			var err error
			page, resp, err = c.gh.PullRequests.ListCommits(ctx, repo.Owner, repo.Name, number, opts)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, commit := range page {
			messages = append(messages, commit.GetCommit().GetMessage())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return messages, nil
}

// FetchComments returns the review-comment bodies of one pull request,
// in provider order.
func (c *Client) FetchComments(ctx context.Context, repo Repo, number int) ([]string, error) {
	opts := &github.PullRequestListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	var comments []string
	for {
		var page []*github.PullRequestComment
		var resp *github.Response
		err := c.call(ctx, fmt.Sprintf("listing comments of #%d", number), func() error {
			var err error
			page, resp, err = c.gh.PullRequests.ListComments(ctx, repo.Owner, repo.Name, number, opts)
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, comment := range page {
			comments = append(comments, comment.GetBody())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return comments, nil
}

// call runs one API request under the retry policy: authentication
// failures return immediately, rate limits wait until the provider's
// reset time, transient failures back off exponentially.
func (c *Client) call(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	rateLimitWaits := 0

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}

		switch e := err.(type) {
		case *github.RateLimitError:
			if rateLimitWaits >= c.maxRateLimitWaits {
				return fmt.Errorf("%s: %w", op, ErrRateLimitExceeded)
			}
			rateLimitWaits++
			attempt-- // waits do not consume transient retries
			if werr := c.waitUntil(ctx, e.Rate.Reset.Time); werr != nil {
				return werr
			}
			continue
		case *github.AbuseRateLimitError:
			if rateLimitWaits >= c.maxRateLimitWaits {
				return fmt.Errorf("%s: %w", op, ErrRateLimitExceeded)
			}
			rateLimitWaits++
			attempt--
			if werr := c.waitUntil(ctx, time.Now().Add(e.GetRetryAfter())); werr != nil {
				return werr
			}
			continue
		case *github.ErrorResponse:
			code := e.Response.StatusCode
			if code == 401 || code == 403 {
				return fmt.Errorf("%s: %w: %s", op, ErrAuthentication, e.Message)
			}
			if code >= 500 {
				lastErr = err
				if werr := c.sleep(ctx, c.backoff<<attempt); werr != nil {
					return werr
				}
				continue
			}
			return fmt.Errorf("%s: %w", op, err)
		default:
			// Network-level failure (timeout, connection reset).
			lastErr = err
			if werr := c.sleep(ctx, c.backoff<<attempt); werr != nil {
				return werr
			}
			continue
		}
	}

	return fmt.Errorf("%s: %w: %v", op, ErrSourceUnavailable, lastErr)
}

// waitUntil blocks until the provider's reported reset time. The mutex
// queues concurrent callers behind one shared wait.
func (c *Client) waitUntil(ctx context.Context, reset time.Time) error {
	c.rateMu.Lock()
	defer c.rateMu.Unlock()
	return sleepCtx(ctx, time.Until(reset))
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
