package repository

import "github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"

// Option applies a configuration option to the TableStore.
type Option func(*TableStore)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *TableStore) {
		if l != nil {
			s.logger = l
		}
	}
}
