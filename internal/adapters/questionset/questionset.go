// Package questionset loads evaluation question sets from YAML.
package questionset

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
)

//go:embed default.yaml
var defaultSet []byte

type file struct {
	Questions []model.Question `yaml:"questions"`
}

// Default returns the built-in question set, which covers every category.
func Default() []model.Question {
	qs, err := Parse(defaultSet)
	if err != nil {
		panic(fmt.Sprintf("built-in question set: %v", err))
	}
	return qs
}

// Load reads and validates the question set at path. An empty path returns Default.
func Load(path string) ([]model.Question, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question set: %w", err)
	}
	qs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return qs, nil
}

// Parse decodes a {questions: [...]} document. Categories are normalised and
// question IDs must be unique.
func Parse(data []byte) ([]model.Question, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSet, err)
	}
	if len(f.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrInvalidSet)
	}
	seen := make(map[string]struct{}, len(f.Questions))
	for i := range f.Questions {
		q := &f.Questions[i]
		q.ID = strings.TrimSpace(q.ID)
		q.Text = strings.TrimSpace(q.Text)
		if q.ID == "" {
			return nil, fmt.Errorf("%w: question %d has no id", ErrInvalidSet, i)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidSet, q.ID)
		}
		seen[q.ID] = struct{}{}
		if q.Text == "" {
			return nil, fmt.Errorf("%w: question %s has no text", ErrInvalidSet, q.ID)
		}
		c, err := types.ParseCategory(string(q.Category))
		if err != nil {
			return nil, fmt.Errorf("%w: question %s: %w", ErrInvalidSet, q.ID, err)
		}
		q.Category = c
	}
	return f.Questions, nil
}

// Categories returns the distinct categories of qs in first-seen order.
func Categories(qs []model.Question) []types.Category {
	var out []types.Category
	seen := map[types.Category]bool{}
	for _, q := range qs {
		if !seen[q.Category] {
			seen[q.Category] = true
			out = append(out, q.Category)
		}
	}
	return out
}
