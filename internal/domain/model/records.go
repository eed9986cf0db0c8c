package model

import (
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
)

// Conversation roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Question is an evaluation prompt. It is immutable once loaded into a run.
type Question struct {
	ID              string         `json:"id" yaml:"id"`
	Category        types.Category `json:"category" yaml:"category"`
	Text            string         `json:"text" yaml:"text"`
	ReferenceAnswer string         `json:"reference_answer,omitempty" yaml:"reference_answer"`
}

// Answer is produced once per (model, question) pair per run and never mutated.
type Answer struct {
	ID           string  `json:"id"`
	QuestionID   string  `json:"question_id"`
	ModelID      string  `json:"model_id"`
	Text         string  `json:"text"`
	TokensInput  int     `json:"tokens_input"`
	TokensOutput int     `json:"tokens_output"`
	Cost         float64 `json:"cost"`
	LatencyMS    int64   `json:"latency_ms"`
}

// Tokens returns total token usage.
func (a Answer) Tokens() int { return a.TokensInput + a.TokensOutput }

// Judging rounds.
const (
	RoundBlind  = 1
	RoundDebate = 2
)

// JudgeScore is one judge's verdict on one answer.
type JudgeScore struct {
	AnswerID     string  `json:"answer_id"`
	JudgeModelID string  `json:"judge_model_id"`
	Score        float64 `json:"score"`
	Rationale    string  `json:"rationale"`
	Round        int     `json:"round"`
}

// AggregatedScore is derived deterministically from an answer's judge scores.
type AggregatedScore struct {
	AnswerID           string         `json:"answer_id"`
	FinalScore         float64        `json:"final_score"`
	DisagreementSpread float64        `json:"disagreement_spread"`
	Debated            bool           `json:"debated"`
	Rounds             [][]JudgeScore `json:"rounds"`
}

// CategoryStat summarizes one model's results within one category.
type CategoryStat struct {
	Category         types.Category `json:"category"`
	ModelID          string         `json:"model_id"`
	AverageScore     float64        `json:"average_score"`
	AverageCost      float64        `json:"average_cost"`
	AverageLatencyMS float64        `json:"average_latency_ms"`
	SampleCount      int            `json:"sample_count"`
}

// RoutingDecision is produced per request and never persisted.
type RoutingDecision struct {
	Category     types.Category `json:"category"`
	ModelID      string         `json:"model_id"`
	Switched     bool           `json:"switched"`
	SwitchReason *string        `json:"switch_reason"`
}
