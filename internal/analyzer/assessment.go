package analyzer

// Assessment is the validated quality judgment for one merge request.
// Never mutated after creation. A degraded assessment carries no valid
// score and is excluded from aggregate averaging.
type Assessment struct {
	Number        int      `json:"number"`
	Score         float64  `json:"score"` // 0-100, meaningless when Degraded
	Issues        []string `json:"issues"`
	GoodPractices []string `json:"good_practices"`
	Patterns      []string `json:"patterns"`
	AntiPatterns  []string `json:"anti_patterns"`
	Rationale     string   `json:"rationale"`
	Degraded      bool     `json:"degraded,omitempty"`
}
