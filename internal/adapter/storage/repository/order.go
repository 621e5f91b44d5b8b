package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
)

var orderColumns = []string{
	"id", "order_number", "user_id", "is_guest", "guest_name", "guest_email", "guest_phone",
	"items", "subtotal", "discount_total", "shipping_fee", "grand_total", "currency",
	"address", "status", "payment", "history", "coupon_id", "coupon_code", "notes",
	"created_at", "updated_at",
}

// CreateOrder runs the stock decrements, the coupon redemption and the insert
// in one transaction. Conditional updates guard against concurrent checkouts.
func (or *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	err := pgx.BeginFunc(ctx, or.db, func(tx pgx.Tx) error {
		for _, item := range order.Items {
			if err := or.reserveStock(ctx, tx, item); err != nil {
				return err
			}
		}

		if order.Coupon != nil {
			if err := or.redeemCoupon(ctx, tx, order.Coupon.CouponID); err != nil {
				return err
			}
		}

		return or.insertOrder(ctx, tx, order)
	})
	if err != nil {
		return translateError(err)
	}
	return nil
}

// reserveStock decrements stock only while the product is active, priced as
// quoted and has enough units left.
func (or *Repository) reserveStock(ctx context.Context, tx pgx.Tx, item domain.OrderItem) error {
	sql, args, err := or.db.QueryBuilder.
		Update("products").
		Set("stock", sq.Expr("stock - ?", item.Qty)).
		Where(sq.Eq{"id": item.ProductID, "is_active": true, "price": item.UnitPrice}).
		Where(sq.GtOrEq{"stock": item.Qty}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// lost the race: report what changed
	sql, args, err = or.db.QueryBuilder.
		Select("stock", "is_active", "price").
		From("products").
		Where(sq.Eq{"id": item.ProductID}).
		ToSql()
	if err != nil {
		return err
	}

	var stock int
	var active bool
	var price decimal.Decimal
	err = tx.QueryRow(ctx, sql, args...).Scan(&stock, &active, &price)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.ItemUnavailableError{ProductID: item.ProductID}
		}
		return err
	}
	if !active {
		return &domain.ItemUnavailableError{ProductID: item.ProductID}
	}
	if price.Cmp(item.UnitPrice) != 0 {
		return &domain.PriceChangedError{ProductID: item.ProductID, Quoted: item.UnitPrice, Current: price}
	}
	return &domain.InsufficientStockError{ProductID: item.ProductID, Requested: item.Qty, Available: stock}
}

func (or *Repository) redeemCoupon(ctx context.Context, tx pgx.Tx, couponID string) error {
	sql, args, err := or.db.QueryBuilder.
		Update("coupons").
		Set("used_count", sq.Expr("used_count + 1")).
		Where(sq.Eq{"id": couponID, "is_active": true}).
		Where(sq.Or{sq.Eq{"usage_limit": nil}, sq.Expr("used_count < usage_limit")}).
		ToSql()
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	sql, args, err = or.db.QueryBuilder.
		Select("is_active").
		From("coupons").
		Where(sq.Eq{"id": couponID}).
		ToSql()
	if err != nil {
		return err
	}

	var active bool
	err = tx.QueryRow(ctx, sql, args...).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrCouponNotFound
		}
		return err
	}
	if !active {
		return domain.ErrCouponNotFound
	}
	return domain.ErrCouponExhausted
}

func (or *Repository) insertOrder(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	items, err := marshalItems(order.Items)
	if err != nil {
		return err
	}
	address, err := json.Marshal(toAddressDocument(order.Address))
	if err != nil {
		return err
	}
	payment, err := json.Marshal(toPaymentDocument(order.Payment))
	if err != nil {
		return err
	}
	history, err := marshalHistory(order.History)
	if err != nil {
		return err
	}

	var userID, guestName, guestEmail, guestPhone *string
	if order.Customer.IsGuest {
		guestName = &order.Customer.Guest.Name
		guestEmail = &order.Customer.Guest.Email
		guestPhone = &order.Customer.Guest.Phone
	} else {
		userID = &order.Customer.UserID
	}

	var couponID, couponCode *string
	if order.Coupon != nil {
		couponID = &order.Coupon.CouponID
		couponCode = &order.Coupon.Code
	}

	sql, args, err := or.db.QueryBuilder.
		Insert("orders").
		Columns(orderColumns...).
		Values(
			order.ID, string(order.Number), userID, order.Customer.IsGuest, guestName, guestEmail, guestPhone,
			items, order.Subtotal, order.DiscountTotal, order.ShippingFee, order.GrandTotal, string(order.Currency),
			address, string(order.Status), payment, history, couponID, couponCode, order.Notes,
			order.CreatedAt, order.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, sql, args...)
	return err
}

func (or *Repository) ReadOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return or.readOrderWhere(ctx, or.db, sq.Eq{"id": orderID}, "")
}

func (or *Repository) ReadOrderByNumber(ctx context.Context, number domain.OrderNumber) (*domain.Order, error) {
	return or.readOrderWhere(ctx, or.db, sq.Eq{"order_number": string(number)}, "")
}

// UpdateOrder locks the row, applies updateFn and appends only the new
// history entries to the stored ledger.
func (or *Repository) UpdateOrder(ctx context.Context,
	orderID string, updateFn port.UpdateOrderFn,
) (*domain.Order, error) {
	var updated *domain.Order
	err := pgx.BeginFunc(ctx, or.db, func(tx pgx.Tx) error {
		order, err := or.readOrderWhere(ctx, tx, sq.Eq{"id": orderID}, "FOR UPDATE")
		if err != nil {
			return err
		}

		recorded := len(order.History)
		if err := updateFn(order); err != nil {
			return err
		}
		if recorded > len(order.History) {
			return fmt.Errorf("order history must only grow")
		}

		added, err := marshalHistory(order.History[recorded:])
		if err != nil {
			return err
		}
		payment, err := json.Marshal(toPaymentDocument(order.Payment))
		if err != nil {
			return err
		}

		sql, args, err := or.db.QueryBuilder.
			Update("orders").
			Set("status", string(order.Status)).
			Set("payment", payment).
			Set("history", sq.Expr("history || ?::jsonb", added)).
			Set("updated_at", order.UpdatedAt).
			Where(sq.Eq{"id": orderID}).
			ToSql()
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() != 1 {
			return domain.ErrNoUpdatedData
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, translateError(err)
	}
	return updated, nil
}

func (or *Repository) ListOrdersByUser(ctx context.Context,
	userID string, offset, limit int,
) ([]*domain.Order, int, error) {
	where := sq.Eq{"user_id": userID, "is_guest": false}

	sql, args, err := or.db.QueryBuilder.Select("COUNT(*)").From("orders").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := or.db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	statement := or.db.QueryBuilder.
		Select(orderColumns...).
		From("orders").
		Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	list, err := or.listOrders(ctx, statement)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (or *Repository) ListGuestOrders(ctx context.Context, email, phone string) ([]*domain.Order, error) {
	statement := or.db.QueryBuilder.
		Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"is_guest": true}).
		Where(sq.Or{sq.Eq{"guest_email": email}, sq.Eq{"guest_phone": phone}}).
		OrderBy("created_at DESC")

	return or.listOrders(ctx, statement)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (or *Repository) readOrderWhere(ctx context.Context, q querier, where sq.Eq, suffix string) (*domain.Order, error) {
	statement := or.db.QueryBuilder.
		Select(orderColumns...).
		From("orders").
		Where(where)
	if suffix != "" {
		statement = statement.Suffix(suffix)
	}

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	order, err := scanOrder(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, translateError(err)
	}
	return order, nil
}

func (or *Repository) listOrders(ctx context.Context, statement sq.SelectBuilder) ([]*domain.Order, error) {
	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := or.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, order)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return list, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order                                     domain.Order
		number, currency, status                  string
		userID, guestName, guestEmail, guestPhone *string
		couponID, couponCode                      *string
		items, address, payment, history          []byte
		subtotal, discount, shipping, grand       decimal.Decimal
		createdAt, updatedAt                      time.Time
	)

	err := row.Scan(
		&order.ID, &number, &userID, &order.Customer.IsGuest, &guestName, &guestEmail, &guestPhone,
		&items, &subtotal, &discount, &shipping, &grand, &currency,
		&address, &status, &payment, &history, &couponID, &couponCode, &order.Notes,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.Number = domain.OrderNumber(number)
	order.Currency = domain.Currency(currency)
	order.Status = domain.OrderStatus(status)
	order.Totals = domain.Totals{Subtotal: subtotal, DiscountTotal: discount, ShippingFee: shipping, GrandTotal: grand}
	order.CreatedAt = createdAt
	order.UpdatedAt = updatedAt

	if order.Customer.IsGuest {
		order.Customer.Guest = domain.GuestContact{Name: deref(guestName), Email: deref(guestEmail), Phone: deref(guestPhone)}
	} else {
		order.Customer.UserID = deref(userID)
	}
	if couponID != nil {
		order.Coupon = &domain.AppliedCoupon{CouponID: *couponID, Code: deref(couponCode)}
	}

	if order.Items, err = unmarshalItems(items); err != nil {
		return nil, err
	}
	if order.History, err = unmarshalHistory(history); err != nil {
		return nil, err
	}

	var addr addressDocument
	if err := json.Unmarshal(address, &addr); err != nil {
		return nil, fmt.Errorf("decode address: %w", err)
	}
	order.Address = addr.toDomain()

	var pay paymentDocument
	if err := json.Unmarshal(payment, &pay); err != nil {
		return nil, fmt.Errorf("decode payment: %w", err)
	}
	order.Payment = pay.toDomain()

	return &order, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
