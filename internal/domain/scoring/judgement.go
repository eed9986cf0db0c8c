package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Score bounds.
const (
	MinScore = 0.0
	MaxScore = 5.0
)

type judgement struct {
	Score     *float64 `json:"score"`
	Rationale string   `json:"rationale"`
}

// ParseJudgement decodes a judge reply of the form {"score": n, "rationale": "..."}.
// Markdown fences and prose around the object are tolerated.
func ParseJudgement(text string) (float64, string, error) {
	raw := extractJSON(text)
	if raw == "" {
		return 0, "", fmt.Errorf("%w: no JSON object in reply", ErrMalformedJudgement)
	}
	var j judgement
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&j); err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrMalformedJudgement, err)
	}
	if j.Score == nil {
		return 0, "", fmt.Errorf("%w: missing score", ErrMalformedJudgement)
	}
	s := *j.Score
	if math.IsNaN(s) || math.IsInf(s, 0) || s < MinScore || s > MaxScore {
		return 0, "", fmt.Errorf("%w: %v", ErrScoreOutOfRange, s)
	}
	return s, strings.TrimSpace(j.Rationale), nil
}

// extractJSON returns the JSON object inside a ```json fence, or the outermost
// {...} span of text.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	if _, after, ok := strings.Cut(text, "```json"); ok {
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
