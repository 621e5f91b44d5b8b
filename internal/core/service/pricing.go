package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/govalues/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type PricingConfig struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	Currency              domain.Currency
	CatalogConcurrency    int
}

type PricingEngine struct {
	catalog port.CatalogReader
	conf    PricingConfig
	logger  *zap.Logger
}

type PricedItems struct {
	Items    []domain.OrderItem
	Subtotal decimal.Decimal
}

func NewPricingEngine(catalog port.CatalogReader, conf PricingConfig, logger *zap.Logger) (*PricingEngine, error) {
	if conf.FreeShippingThreshold.IsNeg() || conf.FlatShippingFee.IsNeg() {
		return nil, errors.New("shipping amounts must not be negative")
	}
	if !conf.Currency.IsValid() {
		return nil, fmt.Errorf("unsupported order currency %q", conf.Currency)
	}
	if conf.CatalogConcurrency < 1 {
		conf.CatalogConcurrency = 1
	}

	return &PricingEngine{
		catalog: catalog,
		conf:    conf,
		logger:  logger,
	}, nil
}

func (p *PricingEngine) Currency() domain.Currency {
	return p.conf.Currency
}

// PriceLineItems validates requests against the catalog and snapshots their prices.
// It fails on the first invalid item in request order.
func (p *PricingEngine) PriceLineItems(ctx context.Context, requests []domain.LineItem) (*PricedItems, error) {
	if len(requests) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	for _, r := range requests {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	products, err := p.lookupProducts(ctx, requests)
	if err != nil {
		return nil, err
	}

	requested := make(map[string]int, len(requests))
	items := make([]domain.OrderItem, 0, len(requests))
	subtotal := decimal.Zero
	for i, r := range requests {
		product := products[i]
		if product == nil || !product.IsActive {
			return nil, &domain.ItemUnavailableError{ProductID: r.ProductID}
		}
		if product.Currency != p.conf.Currency {
			return nil, &domain.CurrencyMismatchError{
				ProductID: r.ProductID,
				Expected:  p.conf.Currency,
				Actual:    product.Currency,
			}
		}

		// the same product may appear in several lines
		already := requested[r.ProductID]
		if r.Qty > product.Stock-already {
			return nil, &domain.InsufficientStockError{
				ProductID: r.ProductID,
				Requested: addQty(already, r.Qty),
				Available: product.Stock,
			}
		}
		requested[r.ProductID] = already + r.Qty

		item, err := domain.NewOrderItem(product, r.Qty)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return nil, err
			}
			p.logger.Error("Price line item", zap.String("product", r.ProductID), zap.Error(err))
			return nil, domain.ErrInternal
		}
		subtotal, err = subtotal.Add(item.LineTotal)
		if err != nil {
			p.logger.Error("Sum line items", zap.Error(fmt.Errorf("math error:%w", err)))
			return nil, domain.ErrInternal
		}
		items = append(items, item)
	}

	return &PricedItems{Items: items, Subtotal: subtotal}, nil
}

// addQty saturates at math.MaxInt.
func addQty(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

func (p *PricingEngine) lookupProducts(ctx context.Context, requests []domain.LineItem) ([]*domain.ProductSnapshot, error) {
	products := make([]*domain.ProductSnapshot, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.conf.CatalogConcurrency)
	for i, r := range requests {
		g.Go(func() error {
			product, err := p.catalog.GetProduct(gctx, r.ProductID)
			if err != nil {
				if errors.Is(err, domain.ErrDataNotFound) {
					return nil
				}
				return fmt.Errorf("get product %s: %w", r.ProductID, err)
			}
			products[i] = product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.logger.Error("Catalog lookup", zap.Error(err))
		return nil, domain.ErrInternal
	}

	return products, nil
}

// ShippingFee is free from the threshold up, flat below it.
func (p *PricingEngine) ShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.Cmp(p.conf.FreeShippingThreshold) >= 0 {
		return decimal.Zero
	}
	return p.conf.FlatShippingFee
}

// GrandTotal is subtotal - discount + shipping, clamped at zero.
func (p *PricingEngine) GrandTotal(subtotal, discount, shipping decimal.Decimal) (decimal.Decimal, error) {
	total, err := subtotal.Sub(discount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("math error:%w", err)
	}
	total, err = total.Add(shipping)
	if err != nil {
		return decimal.Zero, fmt.Errorf("math error:%w", err)
	}
	if total.IsNeg() {
		return decimal.Zero, nil
	}
	return total, nil
}

// Totals clamps the discount to the subtotal and derives shipping and grand total.
func (p *PricingEngine) Totals(subtotal, discount decimal.Decimal) (domain.Totals, error) {
	if discount.Cmp(subtotal) > 0 {
		discount = subtotal
	}
	if discount.IsNeg() {
		discount = decimal.Zero
	}
	shipping := p.ShippingFee(subtotal)
	grand, err := p.GrandTotal(subtotal, discount, shipping)
	if err != nil {
		return domain.Totals{}, err
	}

	return domain.Totals{
		Subtotal:      subtotal,
		DiscountTotal: discount,
		ShippingFee:   shipping,
		GrandTotal:    grand,
	}, nil
}
