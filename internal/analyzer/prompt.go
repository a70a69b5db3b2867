package analyzer

import (
	"fmt"
	"strings"

	"github.com/prlens/prlens/internal/source"
)

const systemPrompt = "You are a code review expert providing detailed analysis of code changes."

const responseSchema = `Respond with a single JSON object and nothing else:
{
  "score": <integer 0-100, overall quality of this change>,
  "issues": [<strings, each one code quality issue, empty if none>],
  "good_practices": [<strings, each one good practice observed>],
  "patterns": [<strings, names of design patterns applied>],
  "anti_patterns": [<strings, names of anti-patterns present>],
  "rationale": <string, short justification of the score>
}`

const correctiveInstruction = "\n\nIMPORTANT: your previous reply was not valid. " +
	"Reply with ONLY the JSON object described above: no markdown fences, " +
	"no commentary, every field present, score an integer between 0 and 100."

// buildPrompt embeds the merge-request metadata and diff excerpts into
// the analysis request. strict appends the corrective instruction used
// after a malformed reply.
func buildPrompt(mr source.MergeRequest, cs source.ChangeSet, strict bool) string {
	var b strings.Builder

	b.WriteString("Analyze the quality of this pull request.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", mr.Title)
	if mr.Description != "" {
		fmt.Fprintf(&b, "Description:\n%s\n", mr.Description)
	}

	if len(cs.CommitMessages) > 0 {
		b.WriteString("\nCommit messages:\n")
		for _, msg := range cs.CommitMessages {
			fmt.Fprintf(&b, "- %s\n", firstLine(msg))
		}
	}

	if len(cs.ReviewComments) > 0 {
		b.WriteString("\nReview comments (weigh reviewer feedback and whether it was addressed):\n")
		for _, comment := range cs.ReviewComments {
			fmt.Fprintf(&b, "- %s\n", comment)
		}
	}

	b.WriteString("\nChanged files:\n")
	for _, f := range cs.Files {
		fmt.Fprintf(&b, "- %s (%s, %s, +%d/-%d)\n", f.Path, f.Status, f.Language, f.Additions, f.Deletions)
	}

	b.WriteString("\nDiffs:\n")
	for _, f := range cs.Files {
		if f.Binary {
			fmt.Fprintf(&b, "--- %s: binary file, diff omitted ---\n", f.Path)
			continue
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n", f.Path, f.Patch)
	}

	b.WriteString("\n")
	b.WriteString(responseSchema)
	if strict {
		b.WriteString(correctiveInstruction)
	}

	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
