package domain

import (
	"fmt"

	"github.com/govalues/decimal"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyBDT Currency = "BDT"
)

func (c Currency) IsValid() bool {
	return c == CurrencyUSD || c == CurrencyBDT
}

// ProductSnapshot is the catalog view of a product at lookup time.
type ProductSnapshot struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	Currency  Currency
	Thumbnail string
	Stock     int
	IsActive  bool
}

// LineItem is a requested product and quantity before validation.
type LineItem struct {
	ProductID string
	Qty       int
}

func (li LineItem) Validate() error {
	if li.ProductID == "" {
		return NewValidationError("productId", "is required")
	}
	if li.Qty < 1 {
		return NewValidationError("qty", "must be at least 1")
	}
	return nil
}

// OrderItem is a price snapshot of a validated line item.
type OrderItem struct {
	ProductID string
	Name      string
	Thumbnail string
	UnitPrice decimal.Decimal
	Currency  Currency
	Qty       int
	LineTotal decimal.Decimal
}

func NewOrderItem(product *ProductSnapshot, qty int) (OrderItem, error) {
	if qty < 1 {
		return OrderItem{}, NewValidationError("qty", "must be at least 1")
	}
	if product.UnitPrice.IsNeg() {
		return OrderItem{}, NewValidationError("unitPrice", "must not be negative")
	}
	q, err := decimal.New(int64(qty), 0)
	if err != nil {
		return OrderItem{}, fmt.Errorf("math error:%w", err)
	}
	total, err := product.UnitPrice.Mul(q)
	if err != nil {
		return OrderItem{}, fmt.Errorf("math error:%w", err)
	}

	return OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		Thumbnail: product.Thumbnail,
		UnitPrice: product.UnitPrice,
		Currency:  product.Currency,
		Qty:       qty,
		LineTotal: total,
	}, nil
}

// Validate checks qty >= 1, unitPrice >= 0 and lineTotal == unitPrice * qty.
func (oi OrderItem) Validate() error {
	if oi.Qty < 1 {
		return NewValidationError("qty", "must be at least 1")
	}
	if oi.UnitPrice.IsNeg() {
		return NewValidationError("unitPrice", "must not be negative")
	}
	q, err := decimal.New(int64(oi.Qty), 0)
	if err != nil {
		return fmt.Errorf("math error:%w", err)
	}
	expected, err := oi.UnitPrice.Mul(q)
	if err != nil {
		return fmt.Errorf("math error:%w", err)
	}
	if expected.Cmp(oi.LineTotal) != 0 {
		return NewValidationError("lineTotal", "does not match unit price times quantity")
	}
	return nil
}
