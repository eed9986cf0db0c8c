package classifier

import (
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/types"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
)

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithModel sets the model asked to label prompts. An empty ID disables the LLM step.
func WithModel(id string) Option {
	return func(c *Classifier) {
		c.model = id
	}
}

// WithDefaultCategory sets the category used when nothing else matches.
func WithDefaultCategory(cat types.Category) Option {
	return func(c *Classifier) {
		if cat.Valid() {
			c.defaultCategory = cat
		}
	}
}

// WithLogger sets a custom logger for the classifier.
func WithLogger(l logger.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}
