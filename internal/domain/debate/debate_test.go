package debate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/debate"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/scoring"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type rejudger struct {
	calls  int
	scores []model.JudgeScore
	err    error
	peers  []model.JudgeScore
}

func (r *rejudger) Rejudge(_ context.Context, _ model.Question, _ model.Answer, peers []model.JudgeScore) ([]model.JudgeScore, error) {
	r.calls++
	r.peers = peers
	return r.scores, r.err
}

func scores(round int, vals ...float64) []model.JudgeScore {
	out := make([]model.JudgeScore, len(vals))
	for i, v := range vals {
		out[i] = model.JudgeScore{AnswerID: "a1", JudgeModelID: string(rune('a' + i)), Score: v, Round: round}
	}
	return out
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	q := model.Question{ID: "q1"}
	a := model.Answer{ID: "a1"}

	Convey("Given an aggregator with threshold 1.5", t, func() {
		r := &rejudger{scores: scores(model.RoundDebate, 3, 4)}
		agg := debate.New(r, debate.WithThreshold(1.5), debate.WithLogger(logger.Nop()))

		Convey("When judges roughly agree", func() {
			out, err := agg.Aggregate(ctx, q, a, scores(model.RoundBlind, 4, 5, 4.5))

			Convey("Then the final score is the mean of one round", func() {
				So(err, ShouldBeNil)
				So(out.FinalScore, ShouldAlmostEqual, 4.5)
				So(out.DisagreementSpread, ShouldEqual, 1.0)
				So(out.Debated, ShouldBeFalse)
				So(len(out.Rounds), ShouldEqual, 1)
				So(r.calls, ShouldEqual, 0)
			})
		})

		Convey("When the spread equals the threshold", func() {
			out, err := agg.Aggregate(ctx, q, a, scores(model.RoundBlind, 3, 4.5))

			Convey("Then no debate runs", func() {
				So(err, ShouldBeNil)
				So(out.Debated, ShouldBeFalse)
				So(r.calls, ShouldEqual, 0)
			})
		})

		Convey("When the spread exceeds the threshold", func() {
			round1 := scores(model.RoundBlind, 1, 5)
			out, err := agg.Aggregate(ctx, q, a, round1)

			Convey("Then exactly one debate round decides the final score", func() {
				So(err, ShouldBeNil)
				So(r.calls, ShouldEqual, 1)
				So(r.peers, ShouldResemble, round1)
				So(out.Debated, ShouldBeTrue)
				So(out.FinalScore, ShouldEqual, 3.5)
				So(out.DisagreementSpread, ShouldEqual, 1.0)
				So(len(out.Rounds), ShouldEqual, 2)
			})
		})

		Convey("When the debate round yields no valid scores", func() {
			r.scores, r.err = nil, scoring.ErrNoValidJudges
			out, err := agg.Aggregate(ctx, q, a, scores(model.RoundBlind, 1, 5))

			Convey("Then round one stands and the answer is marked debated", func() {
				So(err, ShouldBeNil)
				So(out.Debated, ShouldBeTrue)
				So(out.FinalScore, ShouldEqual, 3.0)
				So(out.DisagreementSpread, ShouldEqual, 4.0)
				So(len(out.Rounds), ShouldEqual, 1)
			})
		})

		Convey("When there are no valid round-one scores", func() {
			_, err := agg.Aggregate(ctx, q, a, nil)

			Convey("Then it fails with no valid judges", func() {
				So(errors.Is(err, scoring.ErrNoValidJudges), ShouldBeTrue)
			})
		})
	})
}

func TestMeanSpread(t *testing.T) {
	if got := debate.Mean(nil); got != 0 {
		t.Errorf("Mean(nil) = %v", got)
	}
	if got := debate.Spread(scores(1, 2)); got != 0 {
		t.Errorf("Spread(single) = %v", got)
	}
	if got := debate.Mean(scores(1, 1, 2, 3)); got != 2 {
		t.Errorf("Mean = %v, want 2", got)
	}
}
