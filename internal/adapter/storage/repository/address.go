package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/storefront/internal/core/domain"
)

func (or *Repository) GetUserAddress(ctx context.Context, userID, addressID string) (*domain.Address, error) {
	sql, args, err := or.db.QueryBuilder.
		Select("type", "name", "phone", "address", "city", "state", "postal_code", "country", "is_default").
		From("user_addresses").
		Where(sq.Eq{"id": addressID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var kind string
	a := domain.Address{}
	err = or.db.QueryRow(ctx, sql, args...).Scan(
		&kind, &a.Name, &a.Phone, &a.Line, &a.City, &a.State, &a.PostalCode, &a.Country, &a.IsDefault,
	)
	if err != nil {
		return nil, translateError(err)
	}
	a.Kind = domain.AddressKind(kind)

	return &a, nil
}
