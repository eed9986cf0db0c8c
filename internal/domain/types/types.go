// Package types contains the closed category taxonomy shared by every layer.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCategory is returned when a label is outside the taxonomy.
var ErrUnknownCategory = errors.New("unknown category")

// Category is a topical label used to select a routing target.
type Category string

// The fixed taxonomy.
const (
	Code      Category = "code"
	Math      Category = "math"
	Creative  Category = "creative"
	Analysis  Category = "analysis"
	Knowledge Category = "knowledge"
	Business  Category = "business"
)

var all = []Category{Code, Math, Creative, Analysis, Knowledge, Business}

var descriptions = map[Category]string{
	Code:      "programming, debugging, algorithms, software design",
	Math:      "arithmetic, algebra, calculus, statistics, numeric puzzles",
	Creative:  "stories, poems, lyrics, brainstorming, fiction",
	Analysis:  "comparisons, evaluations, reasoning about trade-offs",
	Knowledge: "facts, science, history, definitions, explanations",
	Business:  "strategy, markets, sales, finance, operations",
}

// All returns the taxonomy in its canonical order.
func All() []Category {
	out := make([]Category, len(all))
	copy(out, all)
	return out
}

// ParseCategory normalizes s and maps it onto the taxonomy.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Valid reports whether c belongs to the taxonomy.
func (c Category) Valid() bool {
	_, ok := descriptions[c]
	return ok
}

// Description returns the short definition used in classifier prompts.
func (c Category) Description() string {
	return descriptions[c]
}

func (c Category) String() string { return string(c) }
