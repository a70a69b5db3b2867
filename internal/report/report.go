package report

import (
	"sort"
	"time"

	"github.com/prlens/prlens/internal/analyzer"
	"github.com/prlens/prlens/internal/source"
)

// Entry pairs one merge request with its assessment.
type Entry struct {
	MergeRequest source.MergeRequest `json:"merge_request"`
	Assessment   analyzer.Assessment `json:"assessment"`
}

// FrequencyItem is one row of a merged finding table.
type FrequencyItem struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Meta describes the run that produced a report.
type Meta struct {
	Repository  string
	Author      string
	WindowStart time.Time
	WindowEnd   time.Time
}

// Report is the aggregate over all assessments of one run: the terminal
// artifact handed to the rendering layer.
type Report struct {
	Repository  string    `json:"repository"`
	Author      string    `json:"author"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	GeneratedAt time.Time `json:"generated_at"`

	Analyzed int `json:"analyzed"`
	Degraded int `json:"degraded"`

	// OverallScore is nil when no merge request produced a valid score.
	// It is never reported as zero in that case.
	OverallScore *float64 `json:"overall_score"`

	Issues        []FrequencyItem `json:"issues"`
	GoodPractices []FrequencyItem `json:"good_practices"`
	Patterns      []FrequencyItem `json:"patterns"`
	AntiPatterns  []FrequencyItem `json:"anti_patterns"`

	Breakdown []Entry `json:"breakdown"`
}

// Aggregate combines per-request assessments into one report. mrs and
// assessments are positionally paired and the breakdown preserves their
// order. Degraded assessments are counted but excluded from the mean.
func Aggregate(mrs []source.MergeRequest, assessments []analyzer.Assessment, meta Meta) *Report {
	r := &Report{
		Repository:  meta.Repository,
		Author:      meta.Author,
		WindowStart: meta.WindowStart,
		WindowEnd:   meta.WindowEnd,
		GeneratedAt: time.Now().UTC(),
		Analyzed:    len(mrs),
		Breakdown:   make([]Entry, 0, len(mrs)),
	}

	issues := newFreqCounter()
	practices := newFreqCounter()
	patterns := newFreqCounter()
	antiPatterns := newFreqCounter()

	var sum float64
	var scored int
	for i, mr := range mrs {
		a := assessments[i]
		r.Breakdown = append(r.Breakdown, Entry{MergeRequest: mr, Assessment: a})

		if a.Degraded {
			r.Degraded++
			continue
		}
		sum += a.Score
		scored++

		issues.addAll(a.Issues)
		practices.addAll(a.GoodPractices)
		patterns.addAll(a.Patterns)
		antiPatterns.addAll(a.AntiPatterns)
	}

	if scored > 0 {
		mean := sum / float64(scored)
		r.OverallScore = &mean
	}

	r.Issues = issues.items()
	r.GoodPractices = practices.items()
	r.Patterns = patterns.items()
	r.AntiPatterns = antiPatterns.items()

	return r
}

// freqCounter counts findings while remembering first-seen order, so
// equal counts sort reproducibly.
type freqCounter struct {
	counts map[string]int
	order  []string
}

func newFreqCounter() *freqCounter {
	return &freqCounter{counts: make(map[string]int)}
}

func (f *freqCounter) addAll(names []string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := f.counts[name]; !ok {
			f.order = append(f.order, name)
		}
		f.counts[name]++
	}
}

func (f *freqCounter) items() []FrequencyItem {
	items := make([]FrequencyItem, 0, len(f.order))
	for _, name := range f.order {
		items = append(items, FrequencyItem{Name: name, Count: f.counts[name]})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Count > items[j].Count
	})
	return items
}
