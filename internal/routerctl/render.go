package routerctl

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/http/api"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/orchestrator"
)

// newTable creates a markdown-style table with left aligned cells.
func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{Left: tw.On, Top: tw.Off, Right: tw.On, Bottom: tw.Off},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func score(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func cost(v float64) string { return "$" + strconv.FormatFloat(v, 'f', 6, 64) }

func latency(ms float64) string { return strconv.FormatFloat(ms, 'f', 0, 64) + "ms" }

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}

func renderRanking(w io.Writer, stats []model.CategoryStat) error {
	table := newTable(w, "Category", "Rank", "Model", "Score", "Avg cost", "Avg latency", "Samples")
	for i, s := range stats {
		_ = table.Append([]string{
			string(s.Category), strconv.Itoa(i + 1), s.ModelID, score(s.AverageScore),
			cost(s.AverageCost), latency(s.AverageLatencyMS), strconv.Itoa(s.SampleCount),
		})
	}
	return table.Render()
}

func renderTable(w io.Writer, t *model.PerformanceTable) error {
	fmt.Fprintf(w, "version %d  run %s  published %s\n\n", t.Version(), t.RunID(), when(t.PublishedAt()))
	var rows []model.CategoryStat
	for _, c := range t.Categories() {
		rows = append(rows, t.Ranking(c)...)
	}
	return renderRanking(w, rows)
}

func renderRecommendations(w io.Writer, r api.RecommendationsResponse) error {
	fmt.Fprintf(w, "%s  version %d  run %s\n\n", r.Category, r.Version, r.RunID)
	recs := newTable(w, "Recommendation", "Model", "Reason")
	for _, rec := range r.Recommendations {
		_ = recs.Append([]string{rec.Kind, rec.ModelID, rec.Reason})
	}
	if err := recs.Render(); err != nil {
		return err
	}
	fmt.Fprintln(w, "\nPareto frontier")
	if err := renderRanking(w, r.Frontier); err != nil {
		return err
	}
	if h := r.Hybrid; h != nil {
		fmt.Fprintf(w, "\nhybrid: %.0f%% %s / %.0f%% %s  cost %s  score %s  saves %.1f%%\n",
			h.CheapShare*100, h.CheapModel, (1-h.CheapShare)*100, h.QualityModel, cost(h.AverageCost), score(h.AverageScore), h.SavingsPercent)
	}
	return nil
}

func renderRuns(w io.Writer, runs []orchestrator.RunResult) error {
	table := newTable(w, "Run", "Status", "Started", "Finished", "Failed pairs", "Stage", "Reason")
	for _, r := range runs {
		fs := r.FailureSummary
		_ = table.Append([]string{
			r.RunID, string(r.Status), when(r.StartedAt), when(r.FinishedAt),
			fmt.Sprintf("%d/%d", fs.FailedPairs, fs.TotalPairs), string(fs.Stage), fs.Reason,
		})
	}
	return table.Render()
}

func renderLoad(w io.Writer, s LoadStats) error {
	table := newTable(w, "Sent", "Succeeded", "Switched", "Failed", "Duration", "p50", "p95")
	_ = table.Append([]string{
		strconv.Itoa(s.Sent), strconv.Itoa(s.Succeeded), strconv.Itoa(s.Switched), strconv.Itoa(s.Failed),
		s.Duration.Round(time.Millisecond).String(), s.P50.Round(time.Millisecond).String(), s.P95.Round(time.Millisecond).String(),
	})
	if err := table.Render(); err != nil {
		return err
	}
	if len(s.ModelsUsed) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	models := make([]string, 0, len(s.ModelsUsed))
	for id := range s.ModelsUsed {
		models = append(models, id)
	}
	slices.Sort(models)
	used := newTable(w, "Model", "Requests")
	for _, id := range models {
		_ = used.Append([]string{id, strconv.Itoa(s.ModelsUsed[id])})
	}
	return used.Render()
}
