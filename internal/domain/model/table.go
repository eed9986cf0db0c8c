package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
)

// ErrInvalidTable is returned when rankings violate table invariants.
var ErrInvalidTable = errors.New("invalid performance table")

// PerformanceTable maps each category to its ranked model statistics.
// Values are immutable; accessors hand out copies.
type PerformanceTable struct {
	version     uint64
	runID       string
	publishedAt time.Time
	categories  map[types.Category][]CategoryStat
}

// NewPerformanceTable validates and copies rankings into an unversioned table.
// Every key must be in the taxonomy and every entry must carry samples.
func NewPerformanceTable(runID string, publishedAt time.Time, rankings map[types.Category][]CategoryStat) (*PerformanceTable, error) {
	t := &PerformanceTable{
		runID:       runID,
		publishedAt: publishedAt.UTC(),
		categories:  make(map[types.Category][]CategoryStat, len(rankings)),
	}
	for c, stats := range rankings {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %w: %q", ErrInvalidTable, types.ErrUnknownCategory, c)
		}
		if len(stats) == 0 {
			continue
		}
		seen := make(map[string]struct{}, len(stats))
		cp := make([]CategoryStat, len(stats))
		for i, s := range stats {
			if s.Category != c {
				return nil, fmt.Errorf("%w: stat for %s filed under %s", ErrInvalidTable, s.Category, c)
			}
			if s.SampleCount <= 0 {
				return nil, fmt.Errorf("%w: %s/%s has no samples", ErrInvalidTable, c, s.ModelID)
			}
			if _, dup := seen[s.ModelID]; dup {
				return nil, fmt.Errorf("%w: %s/%s ranked twice", ErrInvalidTable, c, s.ModelID)
			}
			seen[s.ModelID] = struct{}{}
			cp[i] = s
		}
		t.categories[c] = cp
	}
	return t, nil
}

// WithVersion returns a copy stamped with version.
func (t *PerformanceTable) WithVersion(version uint64) *PerformanceTable {
	cp := *t
	cp.version = version
	return &cp
}

// Version is the monotonically increasing publication number; 0 means unpublished.
func (t *PerformanceTable) Version() uint64 { return t.version }

// RunID identifies the evaluation run that produced the table.
func (t *PerformanceTable) RunID() string { return t.runID }

// PublishedAt is the build time of the table.
func (t *PerformanceTable) PublishedAt() time.Time { return t.publishedAt }

// Ranking returns a copy of the ranked list for c, or nil.
func (t *PerformanceTable) Ranking(c types.Category) []CategoryStat {
	if t == nil {
		return nil
	}
	stats := t.categories[c]
	if len(stats) == 0 {
		return nil
	}
	out := make([]CategoryStat, len(stats))
	copy(out, stats)
	return out
}

// Best returns the category winner.
func (t *PerformanceTable) Best(c types.Category) (CategoryStat, bool) {
	if t == nil || len(t.categories[c]) == 0 {
		return CategoryStat{}, false
	}
	return t.categories[c][0], true
}

// Categories lists ranked categories in taxonomy order.
func (t *PerformanceTable) Categories() []types.Category {
	if t == nil {
		return nil
	}
	var out []types.Category
	for _, c := range types.All() {
		if len(t.categories[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Entries counts ranked entries across all categories.
func (t *PerformanceTable) Entries() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, stats := range t.categories {
		n += len(stats)
	}
	return n
}

type tableJSON struct {
	Version     uint64                            `json:"version"`
	RunID       string                            `json:"run_id"`
	PublishedAt time.Time                         `json:"published_at"`
	Categories  map[types.Category][]CategoryStat `json:"categories"`
}

// MarshalJSON implements json.Marshaler.
func (t *PerformanceTable) MarshalJSON() ([]byte, error) {
	cats := t.categories
	if cats == nil {
		cats = map[types.Category][]CategoryStat{}
	}
	return json.Marshal(tableJSON{Version: t.version, RunID: t.runID, PublishedAt: t.publishedAt, Categories: cats})
}

// UnmarshalJSON implements json.Unmarshaler and re-validates invariants.
func (t *PerformanceTable) UnmarshalJSON(b []byte) error {
	var raw tableJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := NewPerformanceTable(raw.RunID, raw.PublishedAt, raw.Categories)
	if err != nil {
		return err
	}
	*t = *parsed.WithVersion(raw.Version)
	return nil
}
