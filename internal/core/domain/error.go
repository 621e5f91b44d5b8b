package domain

import (
	"errors"
	"fmt"

	"github.com/govalues/decimal"
)

var (
	ErrInternal = errors.New("internal error")

	// * Data errors.
	ErrDataNotFound    = errors.New("data not found")
	ErrNoUpdatedData   = errors.New("no data to update")
	ErrConflictingData = errors.New("data conflicts with existing data in unique column")

	// * Communication errors.
	ErrBadRequest = errors.New("error parsing request")
	ErrValidation = errors.New("validation error")

	// * Authority errors.
	ErrTokenCreation              = errors.New("error creating token")
	ErrExpiredToken               = errors.New("access token has expired")
	ErrInvalidToken               = errors.New("access token is invalid")
	ErrEmptyAuthorizationHeader   = errors.New("authorization header is not provided")
	ErrInvalidAuthorizationHeader = errors.New("authorization header format is invalid")
	ErrInvalidAuthorizationType   = errors.New("authorization type is not supported")
	ErrUnauthorized               = errors.New("user is unauthorized to access the resource")
	ErrForbidden                  = errors.New("user is forbidden to access the resource")

	// * Business errors.
	ErrEmptyOrder        = fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	ErrItemUnavailable   = errors.New("item is not available")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrPriceChanged      = errors.New("product price has changed")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrPaymentSettled    = errors.New("order payment is already settled")
	ErrOrderNumberTaken  = fmt.Errorf("%w: order number already taken", ErrConflictingData)
	ErrAccessDenied      = fmt.Errorf("%w: access denied", ErrForbidden)

	// * Coupon errors. All of them are ErrCouponInvalid.
	ErrCouponInvalid     = errors.New("coupon is invalid")
	ErrCouponNotFound    = fmt.Errorf("%w: coupon not found", ErrCouponInvalid)
	ErrCouponExpired     = fmt.Errorf("%w: coupon is expired or not active yet", ErrCouponInvalid)
	ErrCouponExhausted   = fmt.Errorf("%w: coupon usage limit reached", ErrCouponInvalid)
	ErrCouponMinSubtotal = fmt.Errorf("%w: minimum subtotal not met", ErrCouponInvalid)
)

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

type ItemUnavailableError struct {
	ProductID string
}

func (e *ItemUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available", e.ProductID)
}

func (e *ItemUnavailableError) Unwrap() error { return ErrItemUnavailable }

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// PriceChangedError reports a catalog price that moved after the order was priced.
type PriceChangedError struct {
	ProductID string
	Quoted    decimal.Decimal
	Current   decimal.Decimal
}

func (e *PriceChangedError) Error() string {
	return fmt.Sprintf("price of product %s changed from %s to %s", e.ProductID, e.Quoted, e.Current)
}

func (e *PriceChangedError) Unwrap() error { return ErrPriceChanged }

type CurrencyMismatchError struct {
	ProductID string
	Expected  Currency
	Actual    Currency
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("product %s is priced in %s, order currency is %s", e.ProductID, e.Actual, e.Expected)
}

func (e *CurrencyMismatchError) Unwrap() error { return ErrValidation }

type MinSubtotalNotMetError struct {
	Required decimal.Decimal
}

func (e *MinSubtotalNotMetError) Error() string {
	return fmt.Sprintf("minimum order amount of %s required", e.Required)
}

func (e *MinSubtotalNotMetError) Unwrap() error { return ErrCouponMinSubtotal }

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change order status from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }
