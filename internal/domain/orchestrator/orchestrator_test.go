package orchestrator_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/gateway"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/repository"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/orchestrator"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeGateway answers candidate prompts with "answer from <model>" and judge
// prompts with a score looked up by the candidate model.
type fakeGateway struct {
	mu       sync.Mutex
	failing  map[string]bool
	scores   map[string]string // candidate model -> blind-round JSON
	debated  map[string]string // candidate model -> debate-round JSON
	calls    atomic.Int32
	gate     chan struct{}
	delay    time.Duration
	answered atomic.Int32
	killed   atomic.Int32
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		failing: map[string]bool{},
		scores:  map[string]string{},
		debated: map[string]string{},
	}
}

func (f *fakeGateway) Invoke(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return gateway.Response{}, &gateway.Error{Kind: gateway.ErrTransport, Model: req.ModelID, Err: ctx.Err()}
		}
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			f.killed.Add(1)
			return gateway.Response{}, &gateway.Error{Kind: gateway.ErrTransport, Model: req.ModelID, Err: ctx.Err()}
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[req.ModelID] {
		return gateway.Response{}, &gateway.Error{Kind: gateway.ErrProvider, Model: req.ModelID, Status: 500, Err: errors.New("boom")}
	}
	if !strings.HasPrefix(req.ModelID, "judge") {
		f.answered.Add(1)
		return gateway.Response{ModelID: req.ModelID, Text: "answer from " + req.ModelID, TokensInput: 10, TokensOutput: 10, Cost: 0.001}, nil
	}
	for candidate, blind := range f.scores {
		if !strings.Contains(req.Prompt, "CANDIDATE ANSWER:\nanswer from "+candidate+"\n") {
			continue
		}
		if strings.Contains(req.Prompt, "review panel disagreed") {
			if d, ok := f.debated[candidate+"/"+req.ModelID]; ok {
				return gateway.Response{ModelID: req.ModelID, Text: d}, nil
			}
		}
		if s, ok := f.scores[candidate+"/"+req.ModelID]; ok {
			return gateway.Response{ModelID: req.ModelID, Text: s}, nil
		}
		return gateway.Response{ModelID: req.ModelID, Text: blind}, nil
	}
	return gateway.Response{ModelID: req.ModelID, Text: `{"score": 2, "rationale": "unknown"}`}, nil
}

type recordingArchiver struct {
	mu     sync.Mutex
	tables int
	runs   []orchestrator.RunResult
	err    error
}

func (a *recordingArchiver) SaveTable(context.Context, *model.PerformanceTable) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tables++
	return a.err
}

func (a *recordingArchiver) SaveRun(_ context.Context, r orchestrator.RunResult) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs = append(a.runs, r)
	return a.err
}

func mustRegistry(ids ...string) *model.Registry {
	models := make([]model.Model, len(ids))
	for i, id := range ids {
		models[i] = model.Model{ID: id}
	}
	reg, err := model.NewRegistry(models...)
	if err != nil {
		panic(err)
	}
	return reg
}

var mathQuestions = []model.Question{
	{ID: "m1", Category: types.Math, Text: "What is 17 * 23?"},
	{ID: "m2", Category: types.Math, Text: "What is 2 + 2?"},
}

func baseConfig() orchestrator.RunConfig {
	return orchestrator.RunConfig{
		Judges:                []string{"judge-1", "judge-2"},
		DisagreementThreshold: 1.5,
		MaxFailureFraction:    0.25,
		CallTimeout:           time.Second,
	}
}

func TestRunEvaluation(t *testing.T) {
	ctx := context.Background()
	candidates := mustRegistry("model-a", "model-b")
	judges := mustRegistry("model-a", "model-b", "judge-1", "judge-2")

	Convey("Given an orchestrator with two candidates and two judges", t, func() {
		gw := newFakeGateway()
		gw.scores["model-a"] = `{"score": 5, "rationale": "right"}`
		gw.scores["model-b"] = `{"score": 3, "rationale": "partly"}`
		store := repository.NewTableStore(repository.WithLogger(logger.Nop()))
		archive := &recordingArchiver{}
		var mu sync.Mutex
		var states []orchestrator.State
		orch := orchestrator.New(gw, store,
			orchestrator.WithJudgeRegistry(judges),
			orchestrator.WithArchiver(archive),
			orchestrator.WithWorkers(2),
			orchestrator.WithObserver(func(_ string, s orchestrator.State) {
				mu.Lock()
				defer mu.Unlock()
				states = append(states, s)
			}),
			orchestrator.WithLogger(logger.Nop()),
		)

		Convey("When every pair succeeds", func() {
			res, err := orch.RunEvaluation(ctx, mathQuestions, candidates, baseConfig())

			Convey("Then the ranked table is published as version 1", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, orchestrator.StatusPublished)
				So(res.Table.Version(), ShouldEqual, 1)
				So(store.Current().RunID(), ShouldEqual, res.RunID)

				ranked := res.Table.Ranking(types.Math)
				So(len(ranked), ShouldEqual, 2)
				So(ranked[0].ModelID, ShouldEqual, "model-a")
				So(ranked[0].AverageScore, ShouldEqual, 5.0)
				So(ranked[0].SampleCount, ShouldEqual, 2)
				So(ranked[1].ModelID, ShouldEqual, "model-b")
				So(ranked[1].AverageScore, ShouldEqual, 3.0)
				So(ranked[1].SampleCount, ShouldEqual, 2)
			})

			Convey("Then every stage was visited in order and the run is archived", func() {
				So(states, ShouldResemble, []orchestrator.State{
					orchestrator.Loading, orchestrator.Evaluating, orchestrator.Judging,
					orchestrator.Ranking, orchestrator.Published, orchestrator.Idle,
				})
				state, runID := orch.State()
				So(state, ShouldEqual, orchestrator.Idle)
				So(runID, ShouldBeEmpty)
				So(archive.tables, ShouldEqual, 1)
				So(len(archive.runs), ShouldEqual, 1)
				So(res.FailureSummary.TotalPairs, ShouldEqual, 4)
				So(res.FinishedAt, ShouldHappenOnOrAfter, res.StartedAt)
			})
		})

		Convey("When the judges disagree beyond the threshold", func() {
			gw.scores["model-a/judge-1"] = `{"score": 5, "rationale": "perfect"}`
			gw.scores["model-a/judge-2"] = `{"score": 1, "rationale": "wrong format"}`
			gw.debated["model-a/judge-1"] = `{"score": 4, "rationale": "fair point"}`
			gw.debated["model-a/judge-2"] = `{"score": 4, "rationale": "convinced"}`
			res, err := orch.RunEvaluation(ctx, mathQuestions, candidates, baseConfig())

			Convey("Then the debate round decides the final score", func() {
				So(err, ShouldBeNil)
				best, _ := res.Table.Best(types.Math)
				So(best.ModelID, ShouldEqual, "model-a")
				So(best.AverageScore, ShouldEqual, 4.0)
			})
		})

		Convey("When one candidate fails beyond the tolerated fraction", func() {
			_, err := orch.RunEvaluation(ctx, mathQuestions, candidates, baseConfig())
			So(err, ShouldBeNil)
			before := store.Current()

			gw.failing["model-b"] = true
			res, err := orch.RunEvaluation(ctx, mathQuestions, candidates, baseConfig())

			Convey("Then the run fails and the live table is unchanged", func() {
				So(errors.Is(err, orchestrator.ErrInsufficientData), ShouldBeTrue)
				So(res.Status, ShouldEqual, orchestrator.StatusFailed)
				So(res.Table, ShouldBeNil)
				So(res.FailureSummary.Stage, ShouldEqual, orchestrator.Evaluating)
				So(res.FailureSummary.FailedPairs, ShouldEqual, 2)
				So(res.FailureSummary.Fraction, ShouldEqual, 0.5)
				So(len(res.FailureSummary.Pairs), ShouldEqual, 2)
				So(store.Current(), ShouldEqual, before)
				So(store.Version(), ShouldEqual, 1)
				So(states[len(states)-2], ShouldEqual, orchestrator.Failed)
			})
		})

		Convey("When failures stay within tolerance", func() {
			cfg := baseConfig()
			cfg.MaxFailureFraction = 0.5
			gw.failing["model-b"] = true
			res, err := orch.RunEvaluation(ctx, mathQuestions, candidates, cfg)

			Convey("Then the table is built from the surviving pairs", func() {
				So(err, ShouldBeNil)
				So(res.Table.Ranking(types.Math), ShouldHaveLength, 1)
				So(res.FailureSummary.FailedPairs, ShouldEqual, 2)
			})
		})

		Convey("When every judge fails", func() {
			gw.failing["judge-1"] = true
			gw.failing["judge-2"] = true
			res, err := orch.RunEvaluation(ctx, mathQuestions, candidates, baseConfig())

			Convey("Then judging failures count towards the fraction", func() {
				So(errors.Is(err, orchestrator.ErrInsufficientData), ShouldBeTrue)
				So(res.FailureSummary.Stage, ShouldEqual, orchestrator.Judging)
				So(res.FailureSummary.FailedPairs, ShouldEqual, 4)
				So(store.Current(), ShouldBeNil)
			})
		})

		Convey("When a judge is not a registered model", func() {
			cfg := baseConfig()
			cfg.Judges = []string{"judge-9"}
			res, err := orch.RunEvaluation(ctx, mathQuestions, candidates, cfg)

			Convey("Then loading fails before any gateway call", func() {
				So(errors.Is(err, orchestrator.ErrConfiguration), ShouldBeTrue)
				So(res.FailureSummary.Stage, ShouldEqual, orchestrator.Loading)
				So(gw.calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the question set is invalid", func() {
			bad := []model.Question{{ID: "x", Category: "sports", Text: "?"}}
			_, err := orch.RunEvaluation(ctx, bad, candidates, baseConfig())
			So(errors.Is(err, orchestrator.ErrConfiguration), ShouldBeTrue)

			dup := []model.Question{mathQuestions[0], mathQuestions[0]}
			_, err = orch.RunEvaluation(ctx, dup, candidates, baseConfig())
			So(errors.Is(err, orchestrator.ErrConfiguration), ShouldBeTrue)

			_, err = orch.RunEvaluation(ctx, nil, candidates, baseConfig())
			So(errors.Is(err, orchestrator.ErrConfiguration), ShouldBeTrue)
			So(gw.calls.Load(), ShouldEqual, 0)
		})

		Convey("When archiving fails", func() {
			archive.err = errors.New("disk full")
			res, err := orch.RunEvaluation(ctx, mathQuestions, candidates, baseConfig())

			Convey("Then the table stays published", func() {
				So(err, ShouldBeNil)
				So(res.Status, ShouldEqual, orchestrator.StatusPublished)
				So(store.Version(), ShouldEqual, 1)
			})
		})
	})
}

func TestConcurrentRuns(t *testing.T) {
	Convey("Given a run blocked on the gateway", t, func() {
		gw := newFakeGateway()
		gw.gate = make(chan struct{})
		gw.scores["model-a"] = `{"score": 4}`
		store := repository.NewTableStore(repository.WithLogger(logger.Nop()))
		orch := orchestrator.New(gw, store, orchestrator.WithLogger(logger.Nop()))
		candidates := mustRegistry("model-a", "judge-1")
		cfg := baseConfig()
		cfg.Judges = []string{"judge-1"}

		finished := make(chan orchestrator.RunResult, 1)
		runID, err := orch.StartEvaluation(context.Background(), mathQuestions[:1], candidates, cfg, func(r orchestrator.RunResult, _ error) {
			finished <- r
		})
		So(err, ShouldBeNil)
		So(runID, ShouldNotBeEmpty)

		Convey("When another run is triggered", func() {
			_, err := orch.RunEvaluation(context.Background(), mathQuestions, candidates, cfg)
			_, startErr := orch.StartEvaluation(context.Background(), mathQuestions, candidates, cfg, nil)
			close(gw.gate)
			res := <-finished

			Convey("Then it is refused and the first run completes", func() {
				So(errors.Is(err, orchestrator.ErrRunInProgress), ShouldBeTrue)
				So(errors.Is(startErr, orchestrator.ErrRunInProgress), ShouldBeTrue)
				So(res.RunID, ShouldEqual, runID)
				So(res.Status, ShouldEqual, orchestrator.StatusPublished)
			})
		})
	})

	Convey("Given a run whose context is cancelled mid-evaluation", t, func() {
		gw := newFakeGateway()
		gw.gate = make(chan struct{})
		store := repository.NewTableStore(repository.WithLogger(logger.Nop()))
		orch := orchestrator.New(gw, store, orchestrator.WithWorkers(1), orchestrator.WithLogger(logger.Nop()))
		candidates := mustRegistry("model-a", "judge-1")
		cfg := baseConfig()
		cfg.Judges = []string{"judge-1"}

		ctx, cancel := context.WithCancel(context.Background())
		finished := make(chan orchestrator.RunResult, 1)
		_, err := orch.StartEvaluation(ctx, mathQuestions, candidates, cfg, func(r orchestrator.RunResult, _ error) {
			finished <- r
		})
		So(err, ShouldBeNil)
		for gw.calls.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
		close(gw.gate)
		res := <-finished

		Convey("Then the run fails without publishing", func() {
			So(res.Status, ShouldEqual, orchestrator.StatusFailed)
			So(res.FailureSummary.Stage, ShouldEqual, orchestrator.Evaluating)
			So(res.FailureSummary.Reason, ShouldContainSubstring, "cancel")
			So(store.Current(), ShouldBeNil)
			state, _ := orch.State()
			So(state, ShouldEqual, orchestrator.Idle)
		})
	})
}

func TestCancelDrainsInflightCalls(t *testing.T) {
	Convey("Given a run with two slow calls in flight", t, func() {
		gw := newFakeGateway()
		gw.delay = 100 * time.Millisecond
		store := repository.NewTableStore(repository.WithLogger(logger.Nop()))
		orch := orchestrator.New(gw, store, orchestrator.WithWorkers(2), orchestrator.WithLogger(logger.Nop()))
		candidates := mustRegistry("model-a", "model-b", "judge-1")
		cfg := baseConfig()
		cfg.Judges = []string{"judge-1"}

		ctx, cancel := context.WithCancel(context.Background())
		finished := make(chan orchestrator.RunResult, 1)
		_, err := orch.StartEvaluation(ctx, mathQuestions, candidates, cfg, func(r orchestrator.RunResult, _ error) {
			finished <- r
		})
		So(err, ShouldBeNil)
		for gw.calls.Load() < 2 {
			time.Sleep(time.Millisecond)
		}

		Convey("When the run is cancelled mid-call", func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
			res := <-finished

			Convey("Then started calls complete and no new calls begin", func() {
				So(gw.killed.Load(), ShouldEqual, 0)
				So(gw.answered.Load(), ShouldEqual, 2)
				So(gw.calls.Load(), ShouldEqual, 2)
				So(res.Status, ShouldEqual, orchestrator.StatusFailed)
				So(res.FailureSummary.Reason, ShouldContainSubstring, "cancel")
				So(store.Current(), ShouldBeNil)
			})
		})
	})
}

func TestRunConfigValidate(t *testing.T) {
	cases := []orchestrator.RunConfig{
		{},
		{Judges: []string{"j"}, DisagreementThreshold: -1},
		{Judges: []string{"j"}, MaxFailureFraction: 1.5},
		{Judges: []string{"j"}, CallTimeout: -time.Second},
	}
	for i, c := range cases {
		if err := c.Validate(); !errors.Is(err, orchestrator.ErrConfiguration) {
			t.Errorf("case %d: err = %v", i, err)
		}
	}
	if err := baseConfig().Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}
