package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

const orderCreatedNote = "Order created"

// happyPath lists the forward states in order; the index is the rank.
var happyPath = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
}

func (s OrderStatus) rank() int {
	for i, st := range happyPath {
		if st == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) IsValid() bool {
	return s.rank() >= 0 || s == OrderStatusCancelled || s == OrderStatusRefunded
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CanTransitionTo allows strictly forward moves along the happy path and an
// override to cancelled or refunded from any non-terminal state.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	if s.IsTerminal() || !to.IsValid() {
		return false
	}
	if to == OrderStatusCancelled || to == OrderStatusRefunded {
		return true
	}
	return to.rank() > s.rank()
}

type HistoryEntry struct {
	At     time.Time
	Status OrderStatus
	Note   string
}

type Totals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	ShippingFee   decimal.Decimal
	GrandTotal    decimal.Decimal
}

// Validate checks grandTotal = subtotal - discountTotal + shippingFee and grandTotal >= 0.
func (t Totals) Validate() error {
	if t.Subtotal.IsNeg() || t.DiscountTotal.IsNeg() || t.ShippingFee.IsNeg() || t.GrandTotal.IsNeg() {
		return NewValidationError("totals", "amounts must not be negative")
	}
	expected, err := t.Subtotal.Sub(t.DiscountTotal)
	if err != nil {
		return fmt.Errorf("math error:%w", err)
	}
	expected, err = expected.Add(t.ShippingFee)
	if err != nil {
		return fmt.Errorf("math error:%w", err)
	}
	if expected.Cmp(t.GrandTotal) != 0 {
		return NewValidationError("grandTotal", "does not match subtotal - discount + shipping")
	}
	return nil
}

// AppliedCoupon is the coupon reference kept on an order for audit.
type AppliedCoupon struct {
	CouponID string
	Code     string
}

type Order struct {
	ID       string
	Number   OrderNumber
	Customer Customer
	Items    []OrderItem
	Totals
	Currency  Currency
	Address   Address
	Status    OrderStatus
	Payment   Payment
	History   []HistoryEntry
	Coupon    *AppliedCoupon
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderDraft carries everything the checkout has computed before the order exists.
type OrderDraft struct {
	Number   OrderNumber
	Customer Customer
	Items    []OrderItem
	Totals   Totals
	Currency Currency
	Address  Address
	Payment  Payment
	Coupon   *AppliedCoupon
	Notes    string
}

// NewOrder builds a pending order with its first history entry.
func NewOrder(draft OrderDraft, now time.Time) (*Order, error) {
	if len(draft.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	if !draft.Number.IsValid() {
		return nil, NewValidationError("orderNumber", "has invalid format")
	}
	if err := draft.Customer.Validate(); err != nil {
		return nil, err
	}
	if err := draft.Address.Validate(); err != nil {
		return nil, err
	}
	if !draft.Currency.IsValid() {
		return nil, NewValidationError("currency", "is not supported")
	}
	if !draft.Payment.Provider.IsValid() {
		return nil, NewValidationError("paymentProvider", "must be one of stripe, sslcommerz, cod")
	}
	if draft.Payment.Status == "" {
		draft.Payment.Status = PaymentStatusPending
	}

	subtotal := decimal.Zero
	for _, item := range draft.Items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
		if item.Currency != draft.Currency {
			return nil, &CurrencyMismatchError{ProductID: item.ProductID, Expected: draft.Currency, Actual: item.Currency}
		}
		var err error
		subtotal, err = subtotal.Add(item.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("math error:%w", err)
		}
	}
	if subtotal.Cmp(draft.Totals.Subtotal) != 0 {
		return nil, NewValidationError("subtotal", "does not match the sum of line totals")
	}
	if err := draft.Totals.Validate(); err != nil {
		return nil, err
	}

	items := make([]OrderItem, len(draft.Items))
	copy(items, draft.Items)

	return &Order{
		ID:        uuid.NewString(),
		Number:    draft.Number,
		Customer:  draft.Customer,
		Items:     items,
		Totals:    draft.Totals,
		Currency:  draft.Currency,
		Address:   draft.Address,
		Status:    OrderStatusPending,
		Payment:   draft.Payment,
		History:   []HistoryEntry{{At: now, Status: OrderStatusPending, Note: orderCreatedNote}},
		Coupon:    draft.Coupon,
		Notes:     draft.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Renumber replaces the order number after a uniqueness conflict. Only
// allowed before the order is persisted, which the caller guarantees.
func (o *Order) Renumber(number OrderNumber) error {
	if !number.IsValid() {
		return NewValidationError("orderNumber", "has invalid format")
	}
	o.Number = number
	return nil
}

// TransitionTo moves the order to status and appends exactly one history entry.
func (o *Order) TransitionTo(status OrderStatus, note string, now time.Time) error {
	if !status.IsValid() {
		return NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	if !o.Status.CanTransitionTo(status) {
		return &InvalidTransitionError{From: o.Status, To: status}
	}
	if note == "" {
		note = fmt.Sprintf("Order status updated to %s", status)
	}

	o.Status = status
	o.History = append(o.History, HistoryEntry{At: now, Status: status, Note: note})
	o.UpdatedAt = now
	return nil
}

// ApplyPayment records the outcome of the payment intent. The payment status
// leaves pending exactly once.
func (o *Order) ApplyPayment(status PaymentStatus, transactionID, intentID string, now time.Time) error {
	if !status.IsValid() || status == PaymentStatusPending {
		return NewValidationError("payment.status", "must be one of paid, failed, refunded")
	}
	if o.Payment.Status != PaymentStatusPending {
		return ErrPaymentSettled
	}

	o.Payment.Status = status
	if transactionID != "" {
		o.Payment.TransactionID = transactionID
	}
	if intentID != "" {
		o.Payment.IntentID = intentID
	}
	o.UpdatedAt = now
	return nil
}

// OwnedBy reports whether a registered user placed the order.
func (o *Order) OwnedBy(userID string) bool {
	return !o.Customer.IsGuest && o.Customer.UserID == userID
}

type Pagination struct {
	Page  int
	Limit int
	Total int
	Pages int
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type OrderPage struct {
	Orders     []*Order
	Pagination Pagination
}
