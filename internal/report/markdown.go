package report

import (
	"fmt"
	"strings"
)

const scoreBarWidth = 20

// RenderMarkdown produces the human-readable report summary.
func RenderMarkdown(r *Report) string {
	var b strings.Builder

	b.WriteString("# Merge Request Quality Report\n\n")
	fmt.Fprintf(&b, "- Repository: %s\n", r.Repository)
	fmt.Fprintf(&b, "- Author: %s\n", r.Author)
	fmt.Fprintf(&b, "- Window: %s .. %s\n",
		r.WindowStart.Format("2006-01-02"), r.WindowEnd.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Merge requests analyzed: %d", r.Analyzed)
	if r.Degraded > 0 {
		fmt.Fprintf(&b, " (%d degraded)", r.Degraded)
	}
	b.WriteString("\n\n")

	if r.OverallScore != nil {
		fmt.Fprintf(&b, "**Overall score: %.1f/100** %s\n\n", *r.OverallScore, scoreBar(*r.OverallScore))
	} else {
		b.WriteString("**Overall score: unavailable**\n\n")
	}

	writeFrequencyTable(&b, "Issues", r.Issues)
	writeFrequencyTable(&b, "Good practices", r.GoodPractices)
	writeFrequencyTable(&b, "Design patterns", r.Patterns)
	writeFrequencyTable(&b, "Anti-patterns", r.AntiPatterns)

	if len(r.Breakdown) > 0 {
		b.WriteString("## Breakdown\n\n")
		for _, entry := range r.Breakdown {
			mr := entry.MergeRequest
			a := entry.Assessment
			fmt.Fprintf(&b, "### #%d %s\n\n", mr.Number, mr.Title)
			if a.Degraded {
				fmt.Fprintf(&b, "- Score: degraded (%s)\n", a.Rationale)
			} else {
				fmt.Fprintf(&b, "- Score: %.0f/100 %s\n", a.Score, scoreBar(a.Score))
				if a.Rationale != "" {
					fmt.Fprintf(&b, "- Rationale: %s\n", a.Rationale)
				}
				writeList(&b, "Issues", a.Issues)
				writeList(&b, "Good practices", a.GoodPractices)
				writeList(&b, "Anti-patterns", a.AntiPatterns)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func writeFrequencyTable(b *strings.Builder, title string, items []FrequencyItem) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	b.WriteString("| Finding | Count |\n|---|---|\n")
	for _, item := range items {
		fmt.Fprintf(b, "| %s | %d |\n", item.Name, item.Count)
	}
	b.WriteString("\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "- %s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

func scoreBar(score float64) string {
	filled := int(score * scoreBarWidth / 100)
	if filled < 0 {
		filled = 0
	}
	if filled > scoreBarWidth {
		filled = scoreBarWidth
	}
	return "`" + strings.Repeat("█", filled) + strings.Repeat("░", scoreBarWidth-filled) + "`"
}
