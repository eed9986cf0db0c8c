package service

import (
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/adapters/gateway"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/internal/domain/model"
	"github.com/bhaveshbillionaier19/portkeyHAckathon/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithGateway replaces the upstream client built from configuration.
func WithGateway(gw gateway.Gateway) Option {
	return func(s *Service) {
		if gw != nil {
			s.gw = gw
		}
	}
}

// WithQuestions replaces the configured question set.
func WithQuestions(qs []model.Question) Option {
	return func(s *Service) {
		if len(qs) > 0 {
			s.questions = append([]model.Question(nil), qs...)
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
