// Package ranking reduces aggregated answer scores to per-category model rankings.
package ranking

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
)

// ErrNoSamples is returned when there is nothing to rank.
var ErrNoSamples = errors.New("no samples to rank")

// Sample is one judged answer together with the question it answered.
type Sample struct {
	Question   model.Question
	Answer     model.Answer
	Aggregated model.AggregatedScore
}

type groupKey struct {
	category types.Category
	modelID  string
}

type accumulator struct {
	score, cost, latency float64
	n                    int
}

// Rank groups samples by (category, model), averages score, cost and latency,
// and orders every category by score desc, cost asc, latency asc, model ID asc.
// Only pairs with at least one sample appear. The table is unversioned.
func Rank(runID string, at time.Time, samples []Sample) (*model.PerformanceTable, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	groups := make(map[groupKey]*accumulator)
	for _, s := range samples {
		if s.Answer.QuestionID != s.Question.ID || s.Aggregated.AnswerID != s.Answer.ID {
			return nil, fmt.Errorf("sample for answer %s does not line up with its question or score", s.Answer.ID)
		}
		k := groupKey{category: s.Question.Category, modelID: s.Answer.ModelID}
		acc, ok := groups[k]
		if !ok {
			acc = &accumulator{}
			groups[k] = acc
		}
		acc.score += s.Aggregated.FinalScore
		acc.cost += s.Answer.Cost
		acc.latency += float64(s.Answer.LatencyMS)
		acc.n++
	}

	rankings := make(map[types.Category][]model.CategoryStat)
	for k, acc := range groups {
		n := float64(acc.n)
		rankings[k.category] = append(rankings[k.category], model.CategoryStat{
			Category:         k.category,
			ModelID:          k.modelID,
			AverageScore:     acc.score / n,
			AverageCost:      acc.cost / n,
			AverageLatencyMS: acc.latency / n,
			SampleCount:      acc.n,
		})
	}
	for _, stats := range rankings {
		Sort(stats)
	}
	return model.NewPerformanceTable(runID, at, rankings)
}

// Sort orders stats in place by score desc, cost asc, latency asc, model ID asc.
func Sort(stats []model.CategoryStat) {
	slices.SortFunc(stats, Compare)
}

// Compare is the ranking order used by Sort.
func Compare(a, b model.CategoryStat) int {
	return cmp.Or(
		cmp.Compare(b.AverageScore, a.AverageScore),
		cmp.Compare(a.AverageCost, b.AverageCost),
		cmp.Compare(a.AverageLatencyMS, b.AverageLatencyMS),
		cmp.Compare(a.ModelID, b.ModelID),
	)
}
