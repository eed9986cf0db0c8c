package ranking

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
)

// Recommendation kinds.
const (
	KindBestValue          = "best_value"
	KindHighestQuality     = "highest_quality"
	KindMostCostEffective  = "most_cost_effective"
	KindFastest            = "fastest"
	KindCheaperAlternative = "cheaper_alternative"
)

const (
	defaultBudget         = 10.0
	defaultQualityFloor   = 4.0
	defaultCheapShare     = 0.7
	defaultShiftTolerance = 0.25
	minCost               = 1e-6
)

// Recommendation names one model for one trade-off.
type Recommendation struct {
	Kind    string `json:"kind"`
	ModelID string `json:"model_id"`
	// From is the current leader a cheaper alternative would replace.
	From   string             `json:"from,omitempty"`
	Reason string             `json:"reason"`
	Stat   model.CategoryStat `json:"stat"`
}

// BudgetOption is how much quality a model buys within a fixed budget.
type BudgetOption struct {
	ModelID       string  `json:"model_id"`
	Unlimited     bool    `json:"unlimited,omitempty"`
	MaxQuestions  int64   `json:"max_questions"`
	QualityPoints float64 `json:"quality_points"`
}

// FloorOption is a model meeting the quality floor, with its projected cost.
type FloorOption struct {
	ModelID      string  `json:"model_id"`
	AverageScore float64 `json:"average_score"`
	AverageCost  float64 `json:"average_cost"`
	CostPer1000  float64 `json:"cost_per_1000"`
}

// Hybrid splits traffic between the cheapest and the best model.
type Hybrid struct {
	CheapModel     string  `json:"cheap_model"`
	QualityModel   string  `json:"quality_model"`
	CheapShare     float64 `json:"cheap_share"`
	AverageCost    float64 `json:"average_cost"`
	AverageScore   float64 `json:"average_score"`
	SavingsPercent float64 `json:"savings_percent"`
}

// Report is the trade-off analysis of one category's ranking.
type Report struct {
	Category types.Category `json:"category"`
	// Frontier holds the models no other model beats on score, cost and
	// latency at once, in ranking order.
	Frontier        []model.CategoryStat `json:"frontier"`
	Recommendations []Recommendation     `json:"recommendations"`
	Budget          float64              `json:"budget"`
	WithinBudget    []BudgetOption       `json:"within_budget"`
	QualityFloor    float64              `json:"quality_floor"`
	AboveFloor      []FloorOption        `json:"above_floor"`
	Hybrid          *Hybrid              `json:"hybrid,omitempty"`
}

type recommendConfig struct {
	budget         float64
	qualityFloor   float64
	cheapShare     float64
	shiftTolerance float64
}

// RecommendOption configures Recommend.
type RecommendOption func(*recommendConfig)

// WithBudget sets the spend used for the budget scenario.
func WithBudget(usd float64) RecommendOption {
	return func(c *recommendConfig) {
		if usd > 0 {
			c.budget = usd
		}
	}
}

// WithQualityFloor sets the minimum average score for the floor scenario.
func WithQualityFloor(score float64) RecommendOption {
	return func(c *recommendConfig) {
		if score >= 0 {
			c.qualityFloor = score
		}
	}
}

// WithCheapShare sets the fraction of traffic the hybrid sends to the cheap model.
func WithCheapShare(share float64) RecommendOption {
	return func(c *recommendConfig) {
		if share > 0 && share < 1 {
			c.cheapShare = share
		}
	}
}

// WithShiftTolerance sets how far below the leader's score a cheaper
// alternative may fall.
func WithShiftTolerance(d float64) RecommendOption {
	return func(c *recommendConfig) {
		if d >= 0 {
			c.shiftTolerance = d
		}
	}
}

// Recommend analyses the cost, quality and latency trade-offs of stats.
// Ties resolve by the ranking order.
func Recommend(c types.Category, stats []model.CategoryStat, opts ...RecommendOption) (Report, error) {
	if len(stats) == 0 {
		return Report{}, fmt.Errorf("category %s: %w", c, ErrNoSamples)
	}
	cfg := recommendConfig{
		budget:         defaultBudget,
		qualityFloor:   defaultQualityFloor,
		cheapShare:     defaultCheapShare,
		shiftTolerance: defaultShiftTolerance,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	sorted := slices.Clone(stats)
	Sort(sorted)

	r := Report{
		Category:     c,
		Frontier:     Frontier(sorted),
		Budget:       cfg.budget,
		QualityFloor: cfg.qualityFloor,
	}
	r.Recommendations = recommendations(sorted, cfg)
	r.WithinBudget = withinBudget(sorted, cfg.budget)
	r.AboveFloor = aboveFloor(sorted, cfg.qualityFloor)
	r.Hybrid = hybrid(sorted, cfg.cheapShare)
	return r, nil
}

// Frontier returns the stats not dominated by any other: none is at least as
// good on score, cost and latency and strictly better on one. Input order is kept.
func Frontier(stats []model.CategoryStat) []model.CategoryStat {
	out := make([]model.CategoryStat, 0, len(stats))
	for _, a := range stats {
		dominated := slices.ContainsFunc(stats, func(b model.CategoryStat) bool { return dominates(b, a) })
		if !dominated {
			out = append(out, a)
		}
	}
	return out
}

func dominates(b, a model.CategoryStat) bool {
	noWorse := b.AverageScore >= a.AverageScore &&
		b.AverageCost <= a.AverageCost &&
		b.AverageLatencyMS <= a.AverageLatencyMS
	better := b.AverageScore > a.AverageScore ||
		b.AverageCost < a.AverageCost ||
		b.AverageLatencyMS < a.AverageLatencyMS
	return noWorse && better
}

func value(s model.CategoryStat) float64 {
	return s.AverageScore / max(s.AverageCost, minCost)
}

// pick returns the minimum of sorted under cmpFn; earlier elements win ties.
func pick(sorted []model.CategoryStat, cmpFn func(a, b model.CategoryStat) int) model.CategoryStat {
	best := sorted[0]
	for _, s := range sorted[1:] {
		if cmpFn(s, best) < 0 {
			best = s
		}
	}
	return best
}

func recommendations(sorted []model.CategoryStat, cfg recommendConfig) []Recommendation {
	leader := sorted[0]
	bestValue := pick(sorted, func(a, b model.CategoryStat) int { return cmp.Compare(value(b), value(a)) })
	cheapest := pick(sorted, func(a, b model.CategoryStat) int { return cmp.Compare(a.AverageCost, b.AverageCost) })
	fastest := pick(sorted, func(a, b model.CategoryStat) int { return cmp.Compare(a.AverageLatencyMS, b.AverageLatencyMS) })

	out := []Recommendation{
		{Kind: KindHighestQuality, ModelID: leader.ModelID, Stat: leader,
			Reason: fmt.Sprintf("top score %.2f/5", leader.AverageScore)},
		{Kind: KindBestValue, ModelID: bestValue.ModelID, Stat: bestValue,
			Reason: fmt.Sprintf("highest score per dollar: %.0f", value(bestValue))},
		{Kind: KindMostCostEffective, ModelID: cheapest.ModelID, Stat: cheapest,
			Reason: fmt.Sprintf("lowest cost $%.6f per answer", cheapest.AverageCost)},
		{Kind: KindFastest, ModelID: fastest.ModelID, Stat: fastest,
			Reason: fmt.Sprintf("lowest latency %.0f ms", fastest.AverageLatencyMS)},
	}

	var alt *model.CategoryStat
	for i, s := range sorted[1:] {
		if s.AverageCost >= leader.AverageCost || s.AverageScore < leader.AverageScore-cfg.shiftTolerance {
			continue
		}
		if alt == nil || s.AverageCost < alt.AverageCost {
			alt = &sorted[i+1]
		}
	}
	if alt != nil {
		saving := (leader.AverageCost - alt.AverageCost) / leader.AverageCost * 100
		out = append(out, Recommendation{
			Kind: KindCheaperAlternative, ModelID: alt.ModelID, From: leader.ModelID, Stat: *alt,
			Reason: fmt.Sprintf("%.0f%% cheaper than %s for %.2f less score", saving, leader.ModelID, leader.AverageScore-alt.AverageScore),
		})
	}
	return out
}

func withinBudget(sorted []model.CategoryStat, budget float64) []BudgetOption {
	out := make([]BudgetOption, 0, len(sorted))
	for _, s := range sorted {
		if s.AverageCost <= 0 {
			out = append(out, BudgetOption{ModelID: s.ModelID, Unlimited: true})
			continue
		}
		n := int64(budget / s.AverageCost)
		out = append(out, BudgetOption{ModelID: s.ModelID, MaxQuestions: n, QualityPoints: float64(n) * s.AverageScore})
	}
	// Stable keeps the ranking order among unlimited or equal options.
	slices.SortStableFunc(out, func(a, b BudgetOption) int {
		if a.Unlimited != b.Unlimited {
			if a.Unlimited {
				return -1
			}
			return 1
		}
		return cmp.Compare(b.QualityPoints, a.QualityPoints)
	})
	return out
}

func aboveFloor(sorted []model.CategoryStat, floor float64) []FloorOption {
	out := []FloorOption{}
	for _, s := range sorted {
		if s.AverageScore >= floor {
			out = append(out, FloorOption{
				ModelID:      s.ModelID,
				AverageScore: s.AverageScore,
				AverageCost:  s.AverageCost,
				CostPer1000:  s.AverageCost * 1000,
			})
		}
	}
	slices.SortStableFunc(out, func(a, b FloorOption) int { return cmp.Compare(a.AverageCost, b.AverageCost) })
	return out
}

func hybrid(sorted []model.CategoryStat, share float64) *Hybrid {
	leader := sorted[0]
	cheap := pick(sorted, func(a, b model.CategoryStat) int { return cmp.Compare(a.AverageCost, b.AverageCost) })
	if len(sorted) < 2 || cheap.ModelID == leader.ModelID {
		return nil
	}
	h := &Hybrid{
		CheapModel:   cheap.ModelID,
		QualityModel: leader.ModelID,
		CheapShare:   share,
		AverageCost:  share*cheap.AverageCost + (1-share)*leader.AverageCost,
		AverageScore: share*cheap.AverageScore + (1-share)*leader.AverageScore,
	}
	if leader.AverageCost > 0 {
		h.SavingsPercent = (leader.AverageCost - h.AverageCost) / leader.AverageCost * 100
	}
	return h
}
