package scoring

import "errors"

var (
	// ErrNoValidJudges is returned when every judge failed or was excluded.
	ErrNoValidJudges = errors.New("no valid judge scores")
	// ErrScoreOutOfRange marks a judgement whose score is outside [0, 5].
	ErrScoreOutOfRange = errors.New("judge score out of range")
	// ErrMalformedJudgement marks a judge reply that is not the expected JSON object.
	ErrMalformedJudgement = errors.New("malformed judgement")
)
