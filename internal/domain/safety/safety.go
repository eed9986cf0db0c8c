// Package safety detects refusals, guardrail violations and leaks in model
// responses before they are returned to a caller.
package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// Verdict is the outcome of a check. Reason is empty when Safe is true.
type Verdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason,omitempty"`
}

// Err returns nil for a safe verdict and an ErrSafetyRejection wrap otherwise.
func (v Verdict) Err() error {
	if v.Safe {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSafetyRejection, v.Reason)
}

type rule struct {
	name string
	re   *regexp.Regexp
}

var refusalRules = []rule{
	{"refusal", regexp.MustCompile(`(?i)\bI (?:cannot|can't|can not|am unable to|won't|will not) (?:help (?:you|with)|assist|provide|comply)`)},
	{"refusal", regexp.MustCompile(`(?i)\bI(?:'m| am) sorry,? (?:but )?I (?:cannot|can't|am unable to)`)},
	{"refusal", regexp.MustCompile(`(?i)\bI apologi[sz]e,? (?:but )?I (?:cannot|can't)`)},
	{"refusal", regexp.MustCompile(`(?i)(?:against|violates?|conflicts? with) (?:my|our) (?:guidelines|policies|programming)`)},
	{"refusal", regexp.MustCompile(`(?i)\bI must decline\b`)},
	{"refusal", regexp.MustCompile(`(?i)\bI(?:'m| am) not (?:able|allowed|permitted) to\b`)},
	{"refusal", regexp.MustCompile(`(?i)\bas an AI(?: language model)?,? I (?:cannot|can't)`)},
}

var guardrailRules = []rule{
	{"weapons instructions", regexp.MustCompile(`(?i)\b(?:how to|steps to|instructions (?:for|to)) (?:make|build|create|assemble) (?:a )?(?:bomb|explosive|weapon|pipe bomb)`)},
	{"evading law enforcement", regexp.MustCompile(`(?i)\b(?:avoid|evade|escape) (?:detection by |the )?(?:police|law enforcement|authorities)\b`)},
	{"intrusion instructions", regexp.MustCompile(`(?i)\bhow to (?:hack|exploit|break) into\b`)},
}

var piiRules = []rule{
	{"email address", regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{"social security number", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"credit card number", regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`)},
}

// Checker applies the rule sets in order: refusals, guardrails, deny patterns,
// then optionally PII.
type Checker struct {
	blockPII bool
	deny     []rule
}

// NewChecker creates a checker. It fails only if a deny pattern does not compile.
func NewChecker(opts ...Option) (*Checker, error) {
	c := &Checker{}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Check inspects text. A nil checker applies the built-in rules only.
func (c *Checker) Check(text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{Reason: "empty response"}
	}
	if c == nil {
		c = &Checker{}
	}
	for _, set := range [][]rule{refusalRules, guardrailRules, c.deny} {
		if v, hit := match(set, text); hit {
			return v
		}
	}
	if c.blockPII {
		if v, hit := match(piiRules, text); hit {
			return v
		}
	}
	return Verdict{Safe: true}
}

func match(rules []rule, text string) (Verdict, bool) {
	for _, r := range rules {
		if m := r.re.FindString(text); m != "" {
			return Verdict{Reason: fmt.Sprintf("%s: %q", r.name, m)}, true
		}
	}
	return Verdict{}, false
}
