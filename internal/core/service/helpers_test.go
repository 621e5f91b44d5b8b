package service_test

import (
	"testing"
	"time"

	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/service"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func dec(s string) decimal.Decimal {
	return decimal.MustParse(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.MustParse(s)
	return &d
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Zero(t, dec(expected).Cmp(actual), append([]interface{}{"expected %s, got %s", expected, actual}, msgAndArgs...)...)
}

func testPricingConfig() service.PricingConfig {
	return service.PricingConfig{
		FreeShippingThreshold: dec("50"),
		FlatShippingFee:       dec("5"),
		Currency:              domain.CurrencyUSD,
		CatalogConcurrency:    4,
	}
}

func product(id string, price string, stock int) *domain.ProductSnapshot {
	return &domain.ProductSnapshot{
		ID:        id,
		Name:      "Product " + id,
		UnitPrice: dec(price),
		Currency:  domain.CurrencyUSD,
		Thumbnail: "https://cdn.example.com/" + id + ".jpg",
		Stock:     stock,
		IsActive:  true,
	}
}

func testAddress() domain.Address {
	return domain.Address{
		Kind:       domain.AddressKindHome,
		Name:       "Rahim Uddin",
		Phone:      "+8801700000000",
		Line:       "House 12, Road 5",
		City:       "Dhaka",
		State:      "Dhaka",
		PostalCode: "1207",
		Country:    "Bangladesh",
	}
}

func testGuest() domain.GuestContact {
	return domain.GuestContact{Name: "Rahim Uddin", Email: "rahim@example.com", Phone: "+8801700000000"}
}

func sequenceNumbers(numbers ...domain.OrderNumber) service.OrderNumberGenerator {
	i := 0
	return func(time.Time) (domain.OrderNumber, error) {
		n := numbers[i%len(numbers)]
		i++
		return n, nil
	}
}
