package archive

import "github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"

// Option applies a configuration option to the Archive.
type Option func(*Archive)

// WithLogger sets a custom logger for the archive.
func WithLogger(l logger.Logger) Option {
	return func(a *Archive) {
		if l != nil {
			a.logger = l
		}
	}
}
