package safety

import (
	"fmt"
	"regexp"
)

// Option applies a configuration option to the Checker.
type Option func(*Checker) error

// WithBlockPII rejects responses that leak emails, SSNs or card numbers.
func WithBlockPII(block bool) Option {
	return func(c *Checker) error {
		c.blockPII = block
		return nil
	}
}

// WithDenyPatterns adds case-insensitive patterns that reject a response.
func WithDenyPatterns(patterns ...string) Option {
	return func(c *Checker) error {
		for _, p := range patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return fmt.Errorf("%w %q: %w", ErrInvalidPattern, p, err)
			}
			c.deny = append(c.deny, rule{name: "deny pattern", re: re})
		}
		return nil
	}
}
