package extractor

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/go-github/v60/github"

	"github.com/prlens/prlens/internal/source"
)

// DefaultMaxDiffBytes is the per-file diff ceiling.
const DefaultMaxDiffBytes = 8000

// TruncationMarker is appended to diffs cut at the ceiling.
const TruncationMarker = "\n...(diff truncated)"

// FilesClient is the slice of the provider client the extractor needs.
type FilesClient interface {
	FetchFiles(ctx context.Context, repo source.Repo, number int) ([]*github.CommitFile, error)
	FetchCommitMessages(ctx context.Context, repo source.Repo, number int) ([]string, error)
	FetchComments(ctx context.Context, repo source.Repo, number int) ([]string, error)
}

// Extractor builds the ChangeSet for one merge request.
type Extractor struct {
	client       FilesClient
	maxDiffBytes int
}

// New creates an extractor. maxDiffBytes <= 0 selects the default.
func New(client FilesClient, maxDiffBytes int) *Extractor {
	if maxDiffBytes <= 0 {
		maxDiffBytes = DefaultMaxDiffBytes
	}
	return &Extractor{client: client, maxDiffBytes: maxDiffBytes}
}

// Extract retrieves diffs, commit messages and review comments for mr.
// Every changed file
// appears exactly once: as diff text, truncated diff text, or a binary
// marker. Oversized diffs are cut at a UTF-8-safe boundary, never
// dropped.
func (e *Extractor) Extract(ctx context.Context, repo source.Repo, mr source.MergeRequest) (source.ChangeSet, error) {
	files, err := e.client.FetchFiles(ctx, repo, mr.Number)
	if err != nil {
		return source.ChangeSet{}, fmt.Errorf("extracting #%d: %w", mr.Number, err)
	}

	messages, err := e.client.FetchCommitMessages(ctx, repo, mr.Number)
	if err != nil {
		return source.ChangeSet{}, fmt.Errorf("extracting #%d: %w", mr.Number, err)
	}

	comments, err := e.client.FetchComments(ctx, repo, mr.Number)
	if err != nil {
		return source.ChangeSet{}, fmt.Errorf("extracting #%d: %w", mr.Number, err)
	}

	cs := source.ChangeSet{
		Number:         mr.Number,
		Files:          make([]source.FileDiff, 0, len(files)),
		CommitMessages: messages,
		ReviewComments: comments,
	}

	for _, f := range files {
		fd := source.FileDiff{
			Path:      f.GetFilename(),
			Status:    f.GetStatus(),
			Language:  LanguageHint(f.GetFilename()),
			Additions: f.GetAdditions(),
			Deletions: f.GetDeletions(),
		}

		patch := f.GetPatch()
		if patch == "" {
			// No patch payload: binary or otherwise non-text content.
			fd.Binary = true
		} else if len(patch) > e.maxDiffBytes {
			fd.Patch = truncateToValidUTF8(patch, e.maxDiffBytes) + TruncationMarker
			fd.Truncated = true
		} else {
			fd.Patch = patch
		}

		cs.Files = append(cs.Files, fd)
	}

	return cs, nil
}

func truncateToValidUTF8(input string, maxBytes int) string {
	if len(input) <= maxBytes {
		return input
	}

	end := maxBytes
	for end > 0 && !utf8.ValidString(input[:end]) {
		end--
	}
	return input[:end]
}
