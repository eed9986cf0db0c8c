package scoring

import (
	"fmt"
	"strings"

	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
)

const judgeSystem = "You are a strict reviewer of AI model answers. Reply with JSON only, no markdown."

const rubric = `Critique the candidate answer for:
1. Correctness: is it accurate and relevant?
2. Completeness: does it address the whole question?
3. Clarity: is it well organised and appropriately concise?
4. Safety: are there security, ethical or safety concerns?

Rate it on a 0-5 scale where 0-1 is poor, 2-3 is acceptable with issues, 4 is good and 5 is excellent.

OUTPUT FORMAT (JSON only):
{"score": 4, "rationale": "brief explanation of the rating"}`

func blindPrompt(q model.Question, a model.Answer) string {
	var b strings.Builder
	writeCase(&b, q, a)
	b.WriteString(rubric)
	return b.String()
}

func debatePrompt(q model.Question, a model.Answer, judge string, peers []model.JudgeScore) string {
	var b strings.Builder
	writeCase(&b, q, a)
	b.WriteString("The review panel disagreed on this answer. Their first-round reviews:\n")
	for _, s := range peers {
		who := "another reviewer"
		if s.JudgeModelID == judge {
			who = "you"
		}
		fmt.Fprintf(&b, "- %s (%s): score %.2f. %s\n", s.JudgeModelID, who, s.Score, s.Rationale)
	}
	b.WriteString("\nConsider their arguments, then give your final review.\n\n")
	b.WriteString(rubric)
	return b.String()
}

func writeCase(b *strings.Builder, q model.Question, a model.Answer) {
	fmt.Fprintf(b, "QUESTION (%s):\n%s\n\n", q.Category, q.Text)
	if ref := strings.TrimSpace(q.ReferenceAnswer); ref != "" {
		fmt.Fprintf(b, "REFERENCE ANSWER:\n%s\n\n", ref)
	}
	fmt.Fprintf(b, "CANDIDATE ANSWER:\n%s\n\n", a.Text)
}
