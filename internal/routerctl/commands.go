package routerctl

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/questionset"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/orchestrator"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
)

// Default flag values.
const (
	DefaultURL     = "http://localhost:9080"
	defaultTimeout = 90 * time.Second
	defaultPoll    = 2 * time.Second
	defaultRuns    = 20
)

type globalFlags struct {
	url     string
	timeout time.Duration
	json    bool
	debug   bool
}

// NewRootCommand builds the routerctl command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "routerctl",
		Short: "Client for the model router service",
		Long: `routerctl talks to a running router service.

It routes and classifies prompts, inspects the published performance table,
and triggers and follows evaluation runs.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if g.debug {
				level = "debug"
			}
			if err := logger.InitWithOptions(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
				return err
			}
			return logger.SetLevelString(level)
		},
	}
	cmd.PersistentFlags().StringVar(&g.url, "url", envOr("ROUTER_URL", DefaultURL), "Base URL of the router service")
	cmd.PersistentFlags().DurationVar(&g.timeout, "timeout", defaultTimeout, "HTTP request timeout")
	cmd.PersistentFlags().BoolVar(&g.json, "json", false, "Print raw JSON instead of tables")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		newChatCommand(g),
		newClassifyCommand(g),
		newTableCommand(g),
		newBestCommand(g),
		newRecommendCommand(g),
		newRunCommand(g),
		newStatusCommand(g),
		newRunsCommand(g),
		newStatsCommand(g),
		newLoadCommand(g),
	)
	return cmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (g *globalFlags) client() *Client {
	return NewClient(g.url, g.timeout, logger.Named("routerctl"))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newChatCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <prompt...>",
		Short: "Route a prompt to the best model and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := g.client().Chat(cmd.Context(), strings.Join(args, " "), nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if g.json {
				return writeJSON(out, res)
			}
			fmt.Fprintln(out, res.ResponseText)
			fmt.Fprintln(out)
			table := newTable(out, "Category", "Model", "Switched", "Cost", "Tokens", "Latency")
			_ = table.Append([]string{
				string(res.Category), res.ModelUsed, fmt.Sprint(res.Switched),
				cost(res.Metrics.Cost), fmt.Sprint(res.Metrics.Tokens), fmt.Sprintf("%dms", res.Metrics.LatencyMS),
			})
			if err := table.Render(); err != nil {
				return err
			}
			if res.SwitchReason != nil {
				fmt.Fprintf(out, "\nswitch reason: %s\n", *res.SwitchReason)
			}
			return nil
		},
	}
}

func newClassifyCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <prompt...>",
		Short: "Print the category a prompt would be routed under",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := g.client().Classify(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if g.json {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			table := newTable(cmd.OutOrStdout(), "Category", "Method", "Confidence")
			_ = table.Append([]string{string(res.Category), string(res.Method), score(res.Confidence)})
			return table.Render()
		},
	}
}

func newTableCommand(g *globalFlags) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Show the published performance table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := g.client()
			out := cmd.OutOrStdout()
			if category != "" {
				cat, err := types.ParseCategory(category)
				if err != nil {
					return err
				}
				r, err := c.Ranking(cmd.Context(), cat)
				if err != nil {
					return err
				}
				if g.json {
					return writeJSON(out, r)
				}
				fmt.Fprintf(out, "version %d  run %s\n\n", r.Version, r.RunID)
				return renderRanking(out, r.Ranking)
			}
			t, err := c.Table(cmd.Context())
			if err != nil {
				return err
			}
			if g.json {
				return writeJSON(out, t)
			}
			return renderTable(out, t)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only show one category")
	return cmd
}

func newBestCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "best <category>",
		Short: "Show the primary and fallback model for a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := types.ParseCategory(args[0])
			if err != nil {
				return err
			}
			res, err := g.client().BestModel(cmd.Context(), cat)
			if err != nil {
				return err
			}
			if g.json {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			table := newTable(cmd.OutOrStdout(), "Category", "Primary", "Fallback", "Source", "Score", "Table version")
			s := "-"
			if res.Stat != nil {
				s = score(res.Stat.AverageScore)
			}
			_ = table.Append([]string{string(res.Category), res.Model, res.Fallback, res.Source, s, fmt.Sprint(res.Version)})
			return table.Render()
		},
	}
}

func newRecommendCommand(g *globalFlags) *cobra.Command {
	var budget, floor float64
	cmd := &cobra.Command{
		Use:   "recommend <category>",
		Short: "Show the cost and quality trade-offs for a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := types.ParseCategory(args[0])
			if err != nil {
				return err
			}
			res, err := g.client().Recommendations(cmd.Context(), cat, budget, floor)
			if err != nil {
				return err
			}
			if g.json {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return renderRecommendations(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Float64Var(&budget, "budget", 0, "spend in USD for the budget scenario (server default when 0)")
	cmd.Flags().Float64Var(&floor, "floor", 0, "minimum average score for the quality scenario (server default when 0)")
	return cmd
}

func newRunCommand(g *globalFlags) *cobra.Command {
	var (
		wait bool
		key  string
		poll time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Trigger an evaluation run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := g.client()
			out := cmd.OutOrStdout()
			ack, err := c.Trigger(cmd.Context(), key)
			if err != nil {
				return err
			}
			if !wait {
				if g.json {
					return writeJSON(out, ack)
				}
				fmt.Fprintf(out, "run %s accepted (existing: %v)\n", ack.RunID, ack.Existing)
				return nil
			}
			run, err := c.WaitRun(cmd.Context(), ack.RunID, poll)
			if err != nil {
				return err
			}
			if g.json {
				return writeJSON(out, run)
			}
			if err := renderRuns(out, []orchestrator.RunResult{run}); err != nil {
				return err
			}
			if run.Status == orchestrator.StatusFailed {
				return fmt.Errorf("run %s failed: %s", run.RunID, run.FailureSummary.Reason)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the run to finish")
	cmd.Flags().StringVar(&key, "key", "", "Idempotency key")
	cmd.Flags().DurationVar(&poll, "poll", defaultPoll, "Polling interval with --wait")
	return cmd
}

func newStatusCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show one evaluation run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := g.client().Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if g.json {
				return writeJSON(cmd.OutOrStdout(), run)
			}
			return renderRuns(cmd.OutOrStdout(), []orchestrator.RunResult{run})
		},
	}
}

func newRunsCommand(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent evaluation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := g.client().Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if g.json {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			return renderRuns(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultRuns, "Maximum number of runs")
	return cmd
}

func newStatsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print service statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.client().Stats(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s)
		},
	}
}

func newLoadCommand(g *globalFlags) *cobra.Command {
	var (
		requests int
		workers  int
		file     string
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Send a burst of routed prompts and summarize the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			prompts, err := questionset.Load(file)
			if err != nil {
				return err
			}
			stats := RunLoad(cmd.Context(), g.client(), LoadConfig{Requests: requests, Workers: workers, Prompts: prompts})
			if g.json {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			return renderLoad(cmd.OutOrStdout(), stats)
		},
	}
	cmd.Flags().IntVar(&requests, "requests", 50, "Number of prompts to send")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent workers")
	cmd.Flags().StringVar(&file, "questions", "", "Question set YAML used as prompts (built-in set when empty)")
	return cmd
}
