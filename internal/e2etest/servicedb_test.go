package service_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/MikeRez0/storefront/internal/adapter/config"
	"github.com/MikeRez0/storefront/internal/adapter/storage"
	"github.com/MikeRez0/storefront/internal/adapter/storage/repository"
	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/MikeRez0/storefront/internal/core/port/mock"
	"github.com/MikeRez0/storefront/internal/core/service"
	"github.com/MikeRez0/storefront/internal/e2etest/testdb"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var dbtest *testdb.TestDBInstance

func setup() {
	var err error
	dbtest, err = testdb.NewTestDBInstance()
	if err != nil && !errors.Is(err, testdb.ErrNotConfigured) {
		log.Fatal(err)
	}
}
func shutdown() {
	if dbtest != nil {
		dbtest.Down()
	}
}

func TestMain(m *testing.M) {
	setup()
	code := m.Run()
	shutdown()
	os.Exit(code)
}

type deps struct {
	db       *storage.DB
	repo     *repository.Repository
	catalog  *repository.Catalog
	notifier *mock.MockNotificationDispatcher
}

func getDeps(t *testing.T) *deps {
	t.Helper()
	if dbtest == nil {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	db, err := storage.NewDBStorage(context.Background(), &config.Database{DSN: dbtest.DSN})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(db.Close)
	if err := db.RunMigrations(); err != nil {
		t.Fatal(err)
	}
	repo, err := repository.NewRepository(db)
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := repository.NewCatalog(db)
	if err != nil {
		t.Fatal(err)
	}

	mockCtrl := gomock.NewController(t)
	t.Cleanup(mockCtrl.Finish)
	notifier := mock.NewMockNotificationDispatcher(mockCtrl)
	notifier.EXPECT().Dispatch(gomock.Any()).AnyTimes()

	return &deps{db: db, repo: repo, catalog: catalog, notifier: notifier}
}

func (d *deps) services(t *testing.T, opts ...service.Option) (*service.CheckoutService, *service.OrderService) {
	t.Helper()
	return d.servicesWith(t, d.catalog, d.repo, opts...)
}

func (d *deps) servicesWith(t *testing.T, catalog port.CatalogReader, repo port.Repository,
	opts ...service.Option,
) (*service.CheckoutService, *service.OrderService) {
	t.Helper()
	logger := zap.NewNop()

	pricing, err := service.NewPricingEngine(catalog, service.PricingConfig{
		FreeShippingThreshold: decimal.MustParse("50"),
		FlatShippingFee:       decimal.MustParse("5"),
		Currency:              domain.CurrencyUSD,
		CatalogConcurrency:    4,
	}, logger)
	assert.NoError(t, err)
	coupons, err := service.NewCouponValidator(repo, logger, opts...)
	assert.NoError(t, err)
	checkout, err := service.NewCheckoutService(pricing, coupons, repo, d.notifier, 3, logger, opts...)
	assert.NoError(t, err)
	orders, err := service.NewOrderService(repo, logger, opts...)
	assert.NoError(t, err)
	return checkout, orders
}

func (d *deps) seedProduct(t *testing.T, price string, stock int) string {
	t.Helper()
	id := uuid.NewString()
	_, err := d.db.Exec(context.Background(),
		`INSERT INTO products (id, name, price, currency, stock) VALUES ($1, $2, $3, 'USD', $4)`,
		id, "Product "+id[:8], price, stock)
	assert.NoError(t, err)
	return id
}

func (d *deps) seedCoupon(t *testing.T, kind, value string, usageLimit int) string {
	t.Helper()
	code := "E2E" + uuid.NewString()[:8]
	now := time.Now()
	_, err := d.db.Exec(context.Background(),
		`INSERT INTO coupons (id, code, discount_type, value, valid_from, valid_until, usage_limit)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), code, kind, value, now.Add(-time.Hour), now.Add(24*time.Hour), usageLimit)
	assert.NoError(t, err)
	return code
}

func (d *deps) stock(t *testing.T, productID string) int {
	t.Helper()
	var stock int
	err := d.db.QueryRow(context.Background(), `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	assert.NoError(t, err)
	return stock
}

func guest() (domain.GuestContact, domain.Address) {
	email := uuid.NewString()[:8] + "@example.com"
	phone := fmt.Sprintf("+8801%09d", rand.Intn(1e9))
	return domain.GuestContact{Name: "Nadia", Email: email, Phone: phone},
		domain.Address{
			Name: "Nadia", Phone: "+8801911111111", Line: "12 Green Road",
			City: "Dhaka", State: "Dhaka", PostalCode: "1205", Country: "Bangladesh",
		}
}

func TestServiceDB_GuestCheckout(t *testing.T) {
	d := getDeps(t)
	checkout, orders := d.services(t)
	ctx := context.Background()

	productID := d.seedProduct(t, "20.00", 5)
	code := d.seedCoupon(t, "percent", "10", 1)
	contact, address := guest()

	res, err := checkout.CheckoutAsGuest(ctx, &port.GuestCheckout{
		Contact:    contact,
		Address:    address,
		Items:      []domain.LineItem{{ProductID: productID, Qty: 2}},
		CouponCode: code,
	})
	assert.NoError(t, err)
	if res == nil {
		t.FailNow()
	}

	assert.Equal(t, 3, d.stock(t, productID))

	stored, err := orders.GetByNumber(ctx, res.OrderNumber, "")
	assert.NoError(t, err)
	assert.Equal(t, res.OrderID, stored.ID)
	assert.True(t, stored.Customer.IsGuest)
	assert.Equal(t, contact, stored.Customer.Guest)
	assert.Equal(t, 0, stored.Subtotal.Cmp(decimal.MustParse("40")))
	assert.Equal(t, 0, stored.DiscountTotal.Cmp(decimal.MustParse("4")))
	assert.Equal(t, 0, stored.ShippingFee.Cmp(decimal.MustParse("5")))
	assert.Equal(t, 0, stored.GrandTotal.Cmp(decimal.MustParse("41")))
	assert.Equal(t, domain.PaymentProviderCOD, stored.Payment.Provider)
	assert.Len(t, stored.History, 1)
	if assert.NotNil(t, stored.Coupon) {
		assert.Equal(t, code, stored.Coupon.Code)
	}

	// the coupon allowed a single use
	_, err = checkout.CheckoutAsGuest(ctx, &port.GuestCheckout{
		Contact:    contact,
		Address:    address,
		Items:      []domain.LineItem{{ProductID: productID, Qty: 1}},
		CouponCode: code,
	})
	assert.ErrorIs(t, err, domain.ErrCouponExhausted)
	assert.Equal(t, 3, d.stock(t, productID))

	list, err := orders.ListForGuest(ctx, contact.Email, "+000")
	assert.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestServiceDB_InsufficientStockLeavesNoOrder(t *testing.T) {
	d := getDeps(t)
	checkout, orders := d.services(t)
	ctx := context.Background()

	plenty := d.seedProduct(t, "10.00", 10)
	scarce := d.seedProduct(t, "10.00", 1)
	contact, address := guest()

	_, err := checkout.CheckoutAsGuest(ctx, &port.GuestCheckout{
		Contact: contact,
		Address: address,
		Items: []domain.LineItem{
			{ProductID: plenty, Qty: 2},
			{ProductID: scarce, Qty: 2},
		},
	})
	var stockErr *domain.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, scarce, stockErr.ProductID)

	assert.Equal(t, 10, d.stock(t, plenty))
	assert.Equal(t, 1, d.stock(t, scarce))

	list, err := orders.ListForGuest(ctx, contact.Email, contact.Phone)
	assert.NoError(t, err)
	assert.Empty(t, list)
}

// repricingCatalog serves the current snapshot, then changes the price in the
// database the way a cached snapshot goes stale.
type repricingCatalog struct {
	port.CatalogReader
	d     *deps
	price string
}

func (c *repricingCatalog) GetProduct(ctx context.Context, productID string) (*domain.ProductSnapshot, error) {
	p, err := c.CatalogReader.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	_, err = c.d.db.Exec(ctx, `UPDATE products SET price = $1 WHERE id = $2`, c.price, productID)
	return p, err
}

func TestServiceDB_StalePriceRejectedAtCommit(t *testing.T) {
	d := getDeps(t)
	checkout, orders := d.servicesWith(t, &repricingCatalog{CatalogReader: d.catalog, d: d, price: "25.00"}, d.repo)
	ctx := context.Background()

	productID := d.seedProduct(t, "20.00", 5)
	contact, address := guest()

	_, err := checkout.CheckoutAsGuest(ctx, &port.GuestCheckout{
		Contact: contact,
		Address: address,
		Items:   []domain.LineItem{{ProductID: productID, Qty: 1}},
	})
	var priceErr *domain.PriceChangedError
	if assert.ErrorAs(t, err, &priceErr) {
		assert.Equal(t, productID, priceErr.ProductID)
		assert.Equal(t, "20.00", priceErr.Quoted.String())
		assert.Equal(t, "25.00", priceErr.Current.String())
	}

	assert.Equal(t, 5, d.stock(t, productID))
	list, err := orders.ListForGuest(ctx, contact.Email, contact.Phone)
	assert.NoError(t, err)
	assert.Empty(t, list)
}

// deactivatingRepository switches the coupon off right after it was validated.
type deactivatingRepository struct {
	*repository.Repository
	d *deps
}

func (r *deactivatingRepository) GetCouponByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c, err := r.Repository.GetCouponByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	_, err = r.d.db.Exec(ctx, `UPDATE coupons SET is_active = FALSE WHERE id = $1`, c.ID)
	return c, err
}

func TestServiceDB_CouponDeactivatedBeforeCommit(t *testing.T) {
	d := getDeps(t)
	checkout, _ := d.servicesWith(t, d.catalog, &deactivatingRepository{Repository: d.repo, d: d})
	ctx := context.Background()

	productID := d.seedProduct(t, "20.00", 5)
	code := d.seedCoupon(t, "flat", "5", 10)
	contact, address := guest()

	_, err := checkout.CheckoutAsGuest(ctx, &port.GuestCheckout{
		Contact:    contact,
		Address:    address,
		Items:      []domain.LineItem{{ProductID: productID, Qty: 1}},
		CouponCode: code,
	})
	assert.ErrorIs(t, err, domain.ErrCouponNotFound)
	assert.Equal(t, 5, d.stock(t, productID))
}

func TestServiceDB_ConcurrentCheckoutNeverOversells(t *testing.T) {
	d := getDeps(t)
	checkout, _ := d.services(t)

	productID := d.seedProduct(t, "15.00", 3)

	const buyers = 8
	var wg sync.WaitGroup
	results := make(chan error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			contact, address := guest()
			_, err := checkout.CheckoutAsGuest(context.Background(), &port.GuestCheckout{
				Contact: contact,
				Address: address,
				Items:   []domain.LineItem{{ProductID: productID, Qty: 1}},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	placed := 0
	for err := range results {
		if err == nil {
			placed++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	}
	assert.Equal(t, 3, placed)
	assert.Equal(t, 0, d.stock(t, productID))
}

func TestServiceDB_OrderNumberCollisionRetries(t *testing.T) {
	d := getDeps(t)
	checkout, _ := d.services(t)
	ctx := context.Background()

	productID := d.seedProduct(t, "60.00", 5)
	contact, address := guest()
	first, err := checkout.CheckoutAsGuest(ctx, &port.GuestCheckout{
		Contact: contact,
		Address: address,
		Items:   []domain.LineItem{{ProductID: productID, Qty: 1}},
	})
	assert.NoError(t, err)
	if first == nil {
		t.FailNow()
	}

	calls := 0
	gen := func(now time.Time) (domain.OrderNumber, error) {
		calls++
		if calls == 1 {
			return first.OrderNumber, nil
		}
		return domain.NewOrderNumber(now)
	}
	retrying, _ := d.services(t, service.WithOrderNumberGenerator(gen))

	second, err := retrying.CheckoutAsGuest(ctx, &port.GuestCheckout{
		Contact: contact,
		Address: address,
		Items:   []domain.LineItem{{ProductID: productID, Qty: 1}},
	})
	assert.NoError(t, err)
	if second == nil {
		t.FailNow()
	}
	assert.NotEqual(t, first.OrderNumber, second.OrderNumber)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 3, d.stock(t, productID))
	assert.Equal(t, 0, second.Order.ShippingFee.Cmp(decimal.Zero))
}

func TestServiceDB_UserOrders(t *testing.T) {
	d := getDeps(t)
	checkout, orders := d.services(t)
	ctx := context.Background()

	userID := uuid.NewString()
	addressID := uuid.NewString()
	_, err := d.db.Exec(ctx,
		`INSERT INTO user_addresses (id, user_id, type, name, phone, address, city, state, postal_code, country)
		 VALUES ($1, $2, 'office', 'Rafi', '+8801711111111', '7 Lake Road', 'Dhaka', 'Dhaka', '1212', 'Bangladesh')`,
		addressID, userID)
	assert.NoError(t, err)

	productID := d.seedProduct(t, "12.50", 10)
	for i := 0; i < 3; i++ {
		_, err := checkout.CheckoutAsUser(ctx, &port.UserCheckout{
			UserID:          userID,
			AddressID:       addressID,
			Items:           []domain.LineItem{{ProductID: productID, Qty: 1}},
			PaymentProvider: domain.PaymentProviderStripe,
		})
		assert.NoError(t, err)
	}

	_, err = checkout.CheckoutAsUser(ctx, &port.UserCheckout{
		UserID:          userID,
		AddressID:       uuid.NewString(),
		Items:           []domain.LineItem{{ProductID: productID, Qty: 1}},
		PaymentProvider: domain.PaymentProviderStripe,
	})
	var validationErr *domain.ValidationError
	assert.ErrorAs(t, err, &validationErr)

	page, err := orders.ListForUser(ctx, userID, 1, 2)
	assert.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.Equal(t, domain.Pagination{Page: 1, Limit: 2, Total: 3, Pages: 2}, page.Pagination)
	assert.Equal(t, domain.AddressKindOffice, page.Orders[0].Address.Kind)

	_, err = orders.GetByID(ctx, page.Orders[0].ID, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrAccessDenied)
}

func TestServiceDB_StatusAndPayment(t *testing.T) {
	d := getDeps(t)
	checkout, orders := d.services(t)
	ctx := context.Background()

	productID := d.seedProduct(t, "25.00", 2)
	contact, address := guest()
	res, err := checkout.CheckoutAsGuest(ctx, &port.GuestCheckout{
		Contact: contact,
		Address: address,
		Items:   []domain.LineItem{{ProductID: productID, Qty: 1}},
	})
	assert.NoError(t, err)
	if res == nil {
		t.FailNow()
	}

	order, err := orders.UpdateStatus(ctx, res.OrderID, domain.OrderStatusShipped, "")
	assert.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, order.Status)

	_, err = orders.UpdateStatus(ctx, res.OrderID, domain.OrderStatusPending, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	stored, err := orders.GetByID(ctx, res.OrderID, "")
	assert.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, stored.Status)
	if assert.Len(t, stored.History, 2) {
		assert.Equal(t, "Order status updated to shipped", stored.History[1].Note)
	}

	_, err = orders.UpdatePayment(ctx, res.OrderID, port.PaymentUpdate{
		Status: domain.PaymentStatusPaid, TransactionID: "tx-1",
	})
	assert.NoError(t, err)
	_, err = orders.UpdatePayment(ctx, res.OrderID, port.PaymentUpdate{Status: domain.PaymentStatusRefunded})
	assert.ErrorIs(t, err, domain.ErrPaymentSettled)

	stored, err = orders.GetByID(ctx, res.OrderID, "")
	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, stored.Payment.Status)
	assert.Equal(t, "tx-1", stored.Payment.TransactionID)

	_, err = orders.GetByID(ctx, uuid.NewString(), "")
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
}
