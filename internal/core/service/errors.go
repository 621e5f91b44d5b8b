package service

import (
	"errors"

	"github.com/MikeRez0/storefront/internal/core/domain"
)

var businessErrors = []error{
	domain.ErrValidation,
	domain.ErrBadRequest,
	domain.ErrItemUnavailable,
	domain.ErrInsufficientStock,
	domain.ErrPriceChanged,
	domain.ErrCouponInvalid,
	domain.ErrDataNotFound,
	domain.ErrForbidden,
	domain.ErrConflictingData,
	domain.ErrInvalidTransition,
	domain.ErrPaymentSettled,
}

// isBusinessError reports whether err belongs to a category the caller can act on.
func isBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
