package scoring_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/gateway"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/scoring"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// judges replies per judge model; a missing entry is a transport failure.
type judges struct {
	mu      sync.Mutex
	replies map[string]string
	prompts map[string]string
	delay   time.Duration
}

func (j *judges) Invoke(ctx context.Context, req gateway.Request) (gateway.Response, error) {
	if j.delay > 0 {
		select {
		case <-time.After(j.delay):
		case <-ctx.Done():
			return gateway.Response{}, &gateway.Error{Kind: gateway.ErrTransport, Model: req.ModelID, Err: ctx.Err()}
		}
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.prompts == nil {
		j.prompts = map[string]string{}
	}
	j.prompts[req.ModelID] = req.Prompt
	text, ok := j.replies[req.ModelID]
	if !ok {
		return gateway.Response{}, &gateway.Error{Kind: gateway.ErrTransport, Model: req.ModelID, Err: errors.New("down")}
	}
	return gateway.Response{ModelID: req.ModelID, Text: text}, nil
}

var (
	question = model.Question{ID: "q1", Category: types.Math, Text: "What is 17 * 23?", ReferenceAnswer: "391"}
	answer   = model.Answer{ID: "a1", QuestionID: "q1", ModelID: "gpt-4o", Text: "391"}
)

func TestPanelScore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a panel of three judges", t, func() {
		gw := &judges{replies: map[string]string{
			"judge-a": `{"score": 5, "rationale": "correct"}`,
			"judge-b": "```json\n{\"score\": 4.5, \"rationale\": \"terse\"}\n```",
			"judge-c": `Sure! {"score": 4, "rationale": "fine"} Hope that helps.`,
		}}
		panel := scoring.NewPanel(gw, []string{"judge-a", "judge-b", "judge-c"}, scoring.WithLogger(logger.Nop()))

		Convey("When every judge replies", func() {
			scores, err := panel.Score(ctx, question, answer)

			Convey("Then every score is kept in judge order", func() {
				So(err, ShouldBeNil)
				So(len(scores), ShouldEqual, 3)
				So(scores[0].JudgeModelID, ShouldEqual, "judge-a")
				So(scores[1].Score, ShouldEqual, 4.5)
				So(scores[2].Rationale, ShouldEqual, "fine")
				for _, s := range scores {
					So(s.AnswerID, ShouldEqual, "a1")
					So(s.Round, ShouldEqual, model.RoundBlind)
				}
			})

			Convey("Then judges saw the question, reference and answer", func() {
				p := gw.prompts["judge-a"]
				So(p, ShouldContainSubstring, "What is 17 * 23?")
				So(p, ShouldContainSubstring, "REFERENCE ANSWER")
				So(p, ShouldContainSubstring, `"score"`)
			})
		})

		Convey("When one judge is down and one is out of range", func() {
			delete(gw.replies, "judge-a")
			gw.replies["judge-b"] = `{"score": 9, "rationale": "great"}`
			scores, err := panel.Score(ctx, question, answer)

			Convey("Then both are excluded rather than counted as zero", func() {
				So(err, ShouldBeNil)
				So(len(scores), ShouldEqual, 1)
				So(scores[0].JudgeModelID, ShouldEqual, "judge-c")
			})
		})

		Convey("When every judge fails", func() {
			gw.replies = map[string]string{"judge-a": "no idea", "judge-b": `{"score": -1}`}
			_, err := panel.Score(ctx, question, answer)

			Convey("Then no valid judges is reported with each cause", func() {
				So(errors.Is(err, scoring.ErrNoValidJudges), ShouldBeTrue)
				So(errors.Is(err, scoring.ErrMalformedJudgement), ShouldBeTrue)
				So(errors.Is(err, scoring.ErrScoreOutOfRange), ShouldBeTrue)
				So(errors.Is(err, gateway.ErrTransport), ShouldBeTrue)
			})
		})
	})

	Convey("Given a panel where judges skip their own model", t, func() {
		gw := &judges{replies: map[string]string{
			"gpt-4o":  `{"score": 5, "rationale": "mine is perfect"}`,
			"judge-b": `{"score": 3, "rationale": "ok"}`,
		}}
		panel := scoring.NewPanel(gw, []string{"gpt-4o", "judge-b"},
			scoring.WithSelfReviewExcluded(true), scoring.WithLogger(logger.Nop()))

		Convey("Then the author model does not score its own answer", func() {
			scores, err := panel.Score(ctx, question, answer)
			So(err, ShouldBeNil)
			So(len(scores), ShouldEqual, 1)
			So(scores[0].JudgeModelID, ShouldEqual, "judge-b")
		})
	})

	Convey("Given slow judges and a short call timeout", t, func() {
		gw := &judges{delay: 200 * time.Millisecond, replies: map[string]string{"judge-a": `{"score": 5}`}}
		panel := scoring.NewPanel(gw, []string{"judge-a"},
			scoring.WithCallTimeout(10*time.Millisecond), scoring.WithLogger(logger.Nop()))

		Convey("Then the judge is excluded", func() {
			_, err := panel.Score(ctx, question, answer)
			So(errors.Is(err, scoring.ErrNoValidJudges), ShouldBeTrue)
		})
	})
}

func TestPanelRejudge(t *testing.T) {
	Convey("Given first-round reviews that disagree", t, func() {
		gw := &judges{replies: map[string]string{
			"judge-a": `{"score": 4, "rationale": "revised down"}`,
			"judge-b": `{"score": 4, "rationale": "revised up"}`,
		}}
		panel := scoring.NewPanel(gw, []string{"judge-a", "judge-b"}, scoring.WithConcurrency(1), scoring.WithLogger(logger.Nop()))
		peers := []model.JudgeScore{
			{AnswerID: "a1", JudgeModelID: "judge-a", Score: 5, Rationale: "flawless", Round: model.RoundBlind},
			{AnswerID: "a1", JudgeModelID: "judge-b", Score: 1, Rationale: "missing working", Round: model.RoundBlind},
		}

		Convey("When rejudging", func() {
			scores, err := panel.Rejudge(context.Background(), question, answer, peers)

			Convey("Then round-two scores are returned", func() {
				So(err, ShouldBeNil)
				So(len(scores), ShouldEqual, 2)
				So(scores[0].Round, ShouldEqual, model.RoundDebate)
			})

			Convey("Then each judge saw the other reviews", func() {
				p := gw.prompts["judge-a"]
				So(p, ShouldContainSubstring, "missing working")
				So(p, ShouldContainSubstring, "judge-a (you)")
				So(strings.Contains(p, "judge-b (another reviewer)"), ShouldBeTrue)
			})
		})
	})
}

func TestParseJudgement(t *testing.T) {
	cases := []struct {
		name    string
		text    string
		score   float64
		wantErr error
	}{
		{"plain", `{"score": 3, "rationale": "ok"}`, 3, nil},
		{"fenced", "```json\n{\"score\": 0}\n```", 0, nil},
		{"upper bound", `{"score": 5.0}`, 5, nil},
		{"above range", `{"score": 5.5}`, 0, scoring.ErrScoreOutOfRange},
		{"negative", `{"score": -0.1}`, 0, scoring.ErrScoreOutOfRange},
		{"string score", `{"score": "4"}`, 0, scoring.ErrMalformedJudgement},
		{"missing score", `{"rationale": "?"}`, 0, scoring.ErrMalformedJudgement},
		{"no json", `four out of five`, 0, scoring.ErrMalformedJudgement},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := scoring.ParseJudgement(tc.text)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil || got != tc.score {
				t.Fatalf("got %v, %v; want %v", got, err, tc.score)
			}
		})
	}
}
