package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

type assessmentResponse struct {
	Score         *float64 `json:"score"`
	Issues        []string `json:"issues"`
	GoodPractices []string `json:"good_practices"`
	Patterns      []string `json:"patterns"`
	AntiPatterns  []string `json:"anti_patterns"`
	Rationale     string   `json:"rationale"`
}

// parseResponse validates one model reply against the expected schema.
// Plain unmarshal is tried first; malformed JSON goes through repair
// before giving up.
func parseResponse(raw string) (assessmentResponse, error) {
	payload := extractJSON(raw)
	if payload == "" {
		return assessmentResponse{}, errors.New("no JSON object in response")
	}

	var resp assessmentResponse
	if err := json.Unmarshal([]byte(payload), &resp); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(payload)
		if repairErr != nil {
			return assessmentResponse{}, fmt.Errorf("malformed response: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &resp); err != nil {
			return assessmentResponse{}, fmt.Errorf("malformed response after repair: %w", err)
		}
	}

	if resp.Score == nil {
		return assessmentResponse{}, errors.New("response missing score")
	}
	if *resp.Score < 0 || *resp.Score > 100 {
		return assessmentResponse{}, fmt.Errorf("score %v out of range [0,100]", *resp.Score)
	}

	return resp, nil
}

// extractJSON cuts the first top-level JSON object out of a reply that
// may wrap it in markdown fences or prose.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
