package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/govalues/decimal"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "storefront:product:"

type productEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice string `json:"unitPrice"`
	Currency  string `json:"currency"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Stock     int    `json:"stock"`
	IsActive  bool   `json:"isActive"`
}

// CatalogCache is a read-through cache in front of a CatalogReader. Redis
// failures are logged and the inner reader answers instead.
type CatalogCache struct {
	client *redis.Client
	next   port.CatalogReader
	ttl    time.Duration
	logger *zap.Logger
}

func NewCatalogCache(client *redis.Client, next port.CatalogReader, ttl time.Duration, logger *zap.Logger) *CatalogCache {
	return &CatalogCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

var _ port.CatalogReader = (*CatalogCache)(nil)

func key(productID string) string {
	return keyPrefix + productID
}

func (c *CatalogCache) GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	cached, err := c.client.Get(ctx, key(productID)).Bytes()
	switch {
	case err == nil:
		product, err := decode(cached)
		if err == nil {
			return product, nil
		}
		c.logger.Warn("Drop malformed cache entry", zap.String("product", productID), zap.Error(err))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("Cache read failed", zap.String("product", productID), zap.Error(err))
	}

	product, err := c.next.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if data, err := encode(product); err == nil {
		if err := c.client.Set(ctx, key(productID), data, c.ttl).Err(); err != nil {
			c.logger.Warn("Cache write failed", zap.String("product", productID), zap.Error(err))
		}
	}
	return product, nil
}

func encode(p *domain.ProductSnapshot) ([]byte, error) {
	return json.Marshal(productEntry{
		ID:        p.ID,
		Name:      p.Name,
		UnitPrice: p.UnitPrice.String(),
		Currency:  string(p.Currency),
		Thumbnail: p.Thumbnail,
		Stock:     p.Stock,
		IsActive:  p.IsActive,
	})
}

func decode(data []byte) (*domain.ProductSnapshot, error) {
	var e productEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	price, err := decimal.Parse(e.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("unit price: %w", err)
	}
	return &domain.ProductSnapshot{
		ID:        e.ID,
		Name:      e.Name,
		UnitPrice: price,
		Currency:  domain.Currency(e.Currency),
		Thumbnail: e.Thumbnail,
		Stock:     e.Stock,
		IsActive:  e.IsActive,
	}, nil
}
