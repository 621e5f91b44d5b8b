package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/storefront/internal/adapter/storage"
	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/govalues/decimal"
)

// Catalog reads product snapshots from the products table. The catalog CRUD
// lives elsewhere; this side only reads.
type Catalog struct {
	db *storage.DB
}

func NewCatalog(db *storage.DB) (*Catalog, error) {
	return &Catalog{db: db}, nil
}

var _ port.CatalogReader = (*Catalog)(nil)

func (c *Catalog) GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	sql, args, err := c.db.QueryBuilder.
		Select("id", "name", "price", "currency", "thumbnail", "stock", "is_active").
		From("products").
		Where(sq.Eq{"id": productID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var currency string
	var price decimal.Decimal
	p := domain.ProductSnapshot{}
	err = c.db.QueryRow(ctx, sql, args...).Scan(
		&p.ID, &p.Name, &price, &currency, &p.Thumbnail, &p.Stock, &p.IsActive,
	)
	if err != nil {
		return nil, translateError(err)
	}
	p.UnitPrice = price
	p.Currency = domain.Currency(currency)

	return &p, nil
}
