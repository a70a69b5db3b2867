package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-github/v60/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prlens/prlens/internal/analyzer"
	"github.com/prlens/prlens/internal/collector"
	"github.com/prlens/prlens/internal/extractor"
	"github.com/prlens/prlens/internal/progress"
	"github.com/prlens/prlens/internal/report"
	"github.com/prlens/prlens/internal/source"
)

// fakeProvider serves both the collector and the extractor.
type fakeProvider struct {
	mu       sync.Mutex
	pulls    []*github.PullRequest
	pullsErr error
	filesErr error
	calls    int
}

func (f *fakeProvider) FetchMergeRequests(_ context.Context, _ source.Repo, _ string, _, _ time.Time) ([]*github.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.pulls, f.pullsErr
}

func (f *fakeProvider) FetchFiles(_ context.Context, _ source.Repo, number int) ([]*github.CommitFile, error) {
	if f.filesErr != nil {
		return nil, f.filesErr
	}
	return []*github.CommitFile{{
		Filename: github.String(fmt.Sprintf("file%d.go", number)),
		Status:   github.String("modified"),
		Patch:    github.String("@@ -1 +1 @@"),
	}}, nil
}

func (f *fakeProvider) FetchCommitMessages(_ context.Context, _ source.Repo, number int) ([]string, error) {
	return []string{fmt.Sprintf("commit for #%d", number)}, nil
}

func (f *fakeProvider) FetchComments(_ context.Context, _ source.Repo, number int) ([]string, error) {
	return []string{fmt.Sprintf("review note on #%d", number)}, nil
}

// chatFunc scores each request off the title embedded in the prompt.
type chatFunc func(user string) (string, error)

func (f chatFunc) Complete(_ context.Context, _, user string) (string, error) {
	return f(user)
}

func reply(score int) string {
	return fmt.Sprintf(`{"score": %d, "issues": ["missing tests"], "good_practices": [], "patterns": [], "anti_patterns": [], "rationale": "ok"}`, score)
}

func scoreByTitle(scores map[string]int, failTitles ...string) chatFunc {
	return func(user string) (string, error) {
		for _, title := range failTitles {
			if strings.Contains(user, title) {
				return "", errors.New("model unavailable")
			}
		}
		for title, score := range scores {
			if strings.Contains(user, title) {
				return reply(score), nil
			}
		}
		return "", errors.New("unexpected prompt")
	}
}

func pull(number int, title string) *github.PullRequest {
	return &github.PullRequest{
		Number:    github.Int(number),
		Title:     github.String(title),
		User:      &github.User{Login: github.String("grace")},
		CreatedAt: &github.Timestamp{Time: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)},
	}
}

func options() Options {
	return Options{
		Repo:   source.Repo{Owner: "acme", Name: "widgets"},
		Author: "grace",
		Start:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		End:    time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func newPipeline(provider *fakeProvider, chat chatFunc) *Pipeline {
	return New(
		collector.New(provider),
		extractor.New(provider, 0),
		analyzer.New(chat, 1),
	)
}

func TestRun_EndToEnd(t *testing.T) {
	provider := &fakeProvider{pulls: []*github.PullRequest{
		pull(1, "pr-one"), pull(2, "pr-two"), pull(3, "pr-three"),
	}}
	chat := scoreByTitle(map[string]int{"pr-one": 80, "pr-two": 60, "pr-three": 100})

	r, err := newPipeline(provider, chat).Run(context.Background(), options())
	require.NoError(t, err)

	require.NotNil(t, r.OverallScore)
	assert.Equal(t, 80.0, *r.OverallScore)
	assert.Equal(t, "acme/widgets", r.Repository)
	assert.Equal(t, "grace", r.Author)

	require.Len(t, r.Breakdown, 3)
	for i, want := range []int{1, 2, 3} {
		assert.Equal(t, want, r.Breakdown[i].MergeRequest.Number)
		assert.Equal(t, want, r.Breakdown[i].Assessment.Number)
	}
	assert.Equal(t, []string{"file1.go"}, r.Breakdown[0].MergeRequest.ChangedFiles)
	assert.Equal(t, []report.FrequencyItem{{Name: "missing tests", Count: 3}}, r.Issues)
}

func TestRun_PartialFailureDegradesOneEntry(t *testing.T) {
	provider := &fakeProvider{pulls: []*github.PullRequest{
		pull(1, "pr-one"), pull(2, "pr-two"),
	}}
	chat := scoreByTitle(map[string]int{"pr-one": 90}, "pr-two")

	r, err := newPipeline(provider, chat).Run(context.Background(), options())
	require.NoError(t, err, "one failing analysis must not abort the run")

	require.NotNil(t, r.OverallScore)
	assert.Equal(t, 90.0, *r.OverallScore)
	assert.Equal(t, 1, r.Degraded)
	require.Len(t, r.Breakdown, 2)
	assert.False(t, r.Breakdown[0].Assessment.Degraded)
	assert.True(t, r.Breakdown[1].Assessment.Degraded)
}

func TestRun_CollectErrorAborts(t *testing.T) {
	wantErr := errors.New("boom")
	provider := &fakeProvider{pullsErr: wantErr}

	_, err := newPipeline(provider, scoreByTitle(nil)).Run(context.Background(), options())
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Contains(t, err.Error(), "collection failed")
}

func TestRun_InvalidRangeBeforeNetwork(t *testing.T) {
	provider := &fakeProvider{}
	opts := options()
	opts.Start, opts.End = opts.End, opts.Start

	_, err := newPipeline(provider, scoreByTitle(nil)).Run(context.Background(), opts)
	assert.ErrorIs(t, err, collector.ErrInvalidRange)
	assert.Zero(t, provider.calls)
}

func TestRun_ExtractionErrorAborts(t *testing.T) {
	wantErr := errors.New("files unavailable")
	provider := &fakeProvider{
		pulls:    []*github.PullRequest{pull(1, "pr-one")},
		filesErr: wantErr,
	}

	_, err := newPipeline(provider, scoreByTitle(nil)).Run(context.Background(), options())
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestRun_EmptyWindow(t *testing.T) {
	r, err := newPipeline(&fakeProvider{}, scoreByTitle(nil)).Run(context.Background(), options())
	require.NoError(t, err)

	assert.Nil(t, r.OverallScore)
	assert.Zero(t, r.Analyzed)
	assert.Empty(t, r.Breakdown)
}

func TestRun_AbortKeepsCompletedAssessments(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider := &fakeProvider{pulls: []*github.PullRequest{
		pull(1, "pr-one"), pull(2, "pr-two"),
	}}
	var chat chatFunc = func(user string) (string, error) {
		if strings.Contains(user, "pr-one") {
			return reply(90), nil
		}
		// An external abort arriving mid-run.
		cancel()
		return "", ctx.Err()
	}

	opts := options()
	opts.Concurrency = 1

	r, err := newPipeline(provider, chat).Run(ctx, opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	require.NotNil(t, r, "completed assessments survive the abort")
	require.NotNil(t, r.OverallScore)
	assert.Equal(t, 90.0, *r.OverallScore)
	require.Len(t, r.Breakdown, 1)
	assert.Equal(t, 1, r.Breakdown[0].MergeRequest.Number)
	assert.False(t, r.Breakdown[0].Assessment.Degraded)
}

func TestRun_AnalysisErrorWithoutAbortReturnsNoReport(t *testing.T) {
	provider := &fakeProvider{
		pulls:    []*github.PullRequest{pull(1, "pr-one")},
		filesErr: errors.New("files unavailable"),
	}

	r, err := newPipeline(provider, scoreByTitle(nil)).Run(context.Background(), options())
	require.Error(t, err)
	assert.Nil(t, r, "source failures abort without a partial report")
}

func TestRun_EmitsProgressEvents(t *testing.T) {
	provider := &fakeProvider{pulls: []*github.PullRequest{pull(1, "pr-one")}}
	chat := scoreByTitle(map[string]int{"pr-one": 75})

	var mu sync.Mutex
	var stages []progress.Stage
	opts := options()
	opts.OnEvent = func(e progress.Event) {
		mu.Lock()
		stages = append(stages, e.Stage)
		mu.Unlock()
	}

	_, err := newPipeline(provider, chat).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, progress.StageCollect, stages[0])
	assert.Equal(t, progress.StageAggregate, stages[len(stages)-1])
	assert.Contains(t, stages, progress.StageExtract)
	assert.Contains(t, stages, progress.StageAnalyze)
}
