package analyzer

import (
	"context"
	"fmt"

	"github.com/prlens/prlens/internal/llm"
	"github.com/prlens/prlens/internal/source"
)

// DefaultMaxAttempts bounds completion attempts per merge request,
// counting timeouts and malformed replies alike.
const DefaultMaxAttempts = 3

// Analyzer drives the per-merge-request quality assessment.
type Analyzer struct {
	chat        llm.Chat
	maxAttempts int
}

// New creates an analyzer over the given completion client.
// maxAttempts <= 0 selects the default.
func New(chat llm.Chat, maxAttempts int) *Analyzer {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Analyzer{chat: chat, maxAttempts: maxAttempts}
}

// Analyze assesses one merge request. Failed or malformed completions
// are retried with a stricter instruction; once attempts are exhausted
// a degraded assessment is returned instead of an error, so one bad
// response never invalidates the batch. The error return is reserved
// for context cancellation.
func (a *Analyzer) Analyze(ctx context.Context, mr source.MergeRequest, cs source.ChangeSet) (Assessment, error) {
	var lastErr error

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Assessment{}, err
		}

		prompt := buildPrompt(mr, cs, attempt > 0)
		reply, err := a.chat.Complete(ctx, systemPrompt, prompt)
		if err != nil {
			lastErr = err
			continue
		}

		resp, err := parseResponse(reply)
		if err != nil {
			lastErr = err
			continue
		}

		return Assessment{
			Number:        mr.Number,
			Score:         *resp.Score,
			Issues:        emptyIfNil(resp.Issues),
			GoodPractices: emptyIfNil(resp.GoodPractices),
			Patterns:      emptyIfNil(resp.Patterns),
			AntiPatterns:  emptyIfNil(resp.AntiPatterns),
			Rationale:     resp.Rationale,
		}, nil
	}

	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}

	return Assessment{
		Number:        mr.Number,
		Issues:        []string{},
		GoodPractices: []string{},
		Patterns:      []string{},
		AntiPatterns:  []string{},
		Rationale:     fmt.Sprintf("analysis failed: %v", lastErr),
		Degraded:      true,
	}, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
