package routing

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/ranking"
)

// Strategy chooses how ranked candidates are ordered before primary and
// fallback are picked.
type Strategy string

// Routing strategies.
const (
	BestQuality Strategy = "best_quality"
	BestValue   Strategy = "best_value"
	LowestCost  Strategy = "lowest_cost"
	Fastest     Strategy = "fastest"
)

// ParseStrategy maps s onto a known strategy. Empty input is BestQuality.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return BestQuality, nil
	case BestQuality, BestValue, LowestCost, Fastest:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

// Order returns a reordered copy of a ranked list. Ties fall back to the
// ranking order.
func (s Strategy) Order(stats []model.CategoryStat) []model.CategoryStat {
	out := slices.Clone(stats)
	switch s {
	case BestValue:
		slices.SortStableFunc(out, func(a, b model.CategoryStat) int {
			return cmp.Or(cmp.Compare(value(b), value(a)), ranking.Compare(a, b))
		})
	case LowestCost:
		slices.SortStableFunc(out, func(a, b model.CategoryStat) int {
			return cmp.Or(cmp.Compare(a.AverageCost, b.AverageCost), ranking.Compare(a, b))
		})
	case Fastest:
		slices.SortStableFunc(out, func(a, b model.CategoryStat) int {
			return cmp.Or(cmp.Compare(a.AverageLatencyMS, b.AverageLatencyMS), ranking.Compare(a, b))
		})
	default:
		ranking.Sort(out)
	}
	return out
}

// value is quality per dollar; free models rank first.
func value(s model.CategoryStat) float64 {
	if s.AverageCost <= 0 {
		return math.Inf(1)
	}
	return s.AverageScore / s.AverageCost
}
