package service

import (
	"time"

	"github.com/MikeRez0/storefront/internal/core/domain"
)

type Clock func() time.Time

type OrderNumberGenerator func(now time.Time) (domain.OrderNumber, error)

type settings struct {
	now       Clock
	newNumber OrderNumberGenerator
}

func defaultSettings() settings {
	return settings{
		now:       time.Now,
		newNumber: domain.NewOrderNumber,
	}
}

type Option func(*settings)

func WithClock(clock Clock) Option {
	return func(s *settings) {
		s.now = clock
	}
}

func WithOrderNumberGenerator(gen OrderNumberGenerator) Option {
	return func(s *settings) {
		s.newNumber = gen
	}
}

func applyOptions(opts []Option) settings {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
