package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/MikeRez0/storefront/internal/core/port/mock"
	"github.com/MikeRez0/storefront/internal/core/service"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type prepareMocks func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher)

func newCheckout(t *testing.T,
	catalog port.CatalogReader,
	repo port.Repository,
	notifier port.NotificationDispatcher,
	attempts int,
	numbers service.OrderNumberGenerator,
) *service.CheckoutService {
	t.Helper()
	logger := zap.NewNop()

	pricing, err := service.NewPricingEngine(catalog, testPricingConfig(), logger)
	assert.NoError(t, err)
	coupons, err := service.NewCouponValidator(repo, logger, service.WithClock(fixedClock))
	assert.NoError(t, err)

	opts := []service.Option{service.WithClock(fixedClock)}
	if numbers != nil {
		opts = append(opts, service.WithOrderNumberGenerator(numbers))
	}
	s, err := service.NewCheckoutService(pricing, coupons, repo, notifier, attempts, logger, opts...)
	assert.NoError(t, err)
	return s
}

func TestCheckoutService_CheckoutAsGuest(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	type checkoutTest struct {
		name        string
		req         port.GuestCheckout
		mock        prepareMocks
		expError    error
		expNumber   domain.OrderNumber
		expSubtotal string
		expDiscount string
		expShipping string
		expGrand    string
	}

	capped := testCoupon("HALF", domain.DiscountPercent, "50")
	capped.MaxDiscount = decPtr("20")

	tests := []checkoutTest{
		{
			name: "No coupon, flat shipping",
			req: port.GuestCheckout{
				Contact: testGuest(),
				Address: testAddress(),
				Items:   []domain.LineItem{{ProductID: "P1", Qty: 2}},
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
				catalog.EXPECT().GetProduct(gomock.Any(), "P1").Return(product("P1", "20", 10), nil)
				repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil)
				notifier.EXPECT().Dispatch(gomock.Any())
			},
			expNumber:   "261016-AAAAAA",
			expSubtotal: "40",
			expDiscount: "0",
			expShipping: "5",
			expGrand:    "45",
		},
		{
			name: "Flat coupon",
			req: port.GuestCheckout{
				Contact:    testGuest(),
				Address:    testAddress(),
				Items:      []domain.LineItem{{ProductID: "P1", Qty: 2}},
				CouponCode: "save10",
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
				catalog.EXPECT().GetProduct(gomock.Any(), "P1").Return(product("P1", "20", 10), nil)
				repo.EXPECT().GetCouponByCode(gomock.Any(), "SAVE10").
					Return(testCoupon("SAVE10", domain.DiscountFlat, "10"), nil)
				repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil)
				notifier.EXPECT().Dispatch(gomock.Any())
			},
			expNumber:   "261016-AAAAAA",
			expSubtotal: "40",
			expDiscount: "10",
			expShipping: "5",
			expGrand:    "35",
		},
		{
			name: "Percent coupon with cap, free shipping",
			req: port.GuestCheckout{
				Contact:    testGuest(),
				Address:    testAddress(),
				Items:      []domain.LineItem{{ProductID: "P1", Qty: 3}},
				CouponCode: "HALF",
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
				catalog.EXPECT().GetProduct(gomock.Any(), "P1").Return(product("P1", "20", 10), nil)
				repo.EXPECT().GetCouponByCode(gomock.Any(), "HALF").Return(capped, nil)
				repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil)
				notifier.EXPECT().Dispatch(gomock.Any())
			},
			expNumber:   "261016-AAAAAA",
			expSubtotal: "60",
			expDiscount: "20",
			expShipping: "0",
			expGrand:    "40",
		},
		{
			name: "Out of stock creates nothing",
			req: port.GuestCheckout{
				Contact: testGuest(),
				Address: testAddress(),
				Items:   []domain.LineItem{{ProductID: "P1", Qty: 1}},
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
				catalog.EXPECT().GetProduct(gomock.Any(), "P1").Return(product("P1", "20", 0), nil)
			},
			expError: &domain.InsufficientStockError{ProductID: "P1", Requested: 1, Available: 0},
		},
		{
			name: "Invalid coupon blocks checkout",
			req: port.GuestCheckout{
				Contact:    testGuest(),
				Address:    testAddress(),
				Items:      []domain.LineItem{{ProductID: "P1", Qty: 1}},
				CouponCode: "NOPE",
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
				catalog.EXPECT().GetProduct(gomock.Any(), "P1").Return(product("P1", "20", 10), nil)
				repo.EXPECT().GetCouponByCode(gomock.Any(), "NOPE").Return(nil, domain.ErrDataNotFound)
			},
			expError: domain.ErrCouponNotFound,
		},
		{
			name: "Missing guest email",
			req: port.GuestCheckout{
				Contact: domain.GuestContact{Name: "Rahim", Phone: "+8801700000000"},
				Address: testAddress(),
				Items:   []domain.LineItem{{ProductID: "P1", Qty: 1}},
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
			},
			expError: domain.NewValidationError("email", "is required"),
		},
		{
			name: "Missing address city",
			req: port.GuestCheckout{
				Contact: testGuest(),
				Address: func() domain.Address { a := testAddress(); a.City = ""; return a }(),
				Items:   []domain.LineItem{{ProductID: "P1", Qty: 1}},
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
			},
			expError: domain.NewValidationError("address.city", "is required"),
		},
		{
			name: "Stock race lost at commit",
			req: port.GuestCheckout{
				Contact: testGuest(),
				Address: testAddress(),
				Items:   []domain.LineItem{{ProductID: "P1", Qty: 1}},
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
				catalog.EXPECT().GetProduct(gomock.Any(), "P1").Return(product("P1", "20", 1), nil)
				repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
					Return(&domain.InsufficientStockError{ProductID: "P1", Requested: 1, Available: 0})
			},
			expError: &domain.InsufficientStockError{ProductID: "P1", Requested: 1, Available: 0},
		},
		{
			name: "Price changed before commit",
			req: port.GuestCheckout{
				Contact: testGuest(),
				Address: testAddress(),
				Items:   []domain.LineItem{{ProductID: "P1", Qty: 1}},
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
				catalog.EXPECT().GetProduct(gomock.Any(), "P1").Return(product("P1", "20", 1), nil)
				repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
					Return(&domain.PriceChangedError{ProductID: "P1", Quoted: dec("20"), Current: dec("25")})
			},
			expError: &domain.PriceChangedError{ProductID: "P1", Quoted: dec("20"), Current: dec("25")},
		},
		{
			name: "Storage failure is hidden",
			req: port.GuestCheckout{
				Contact: testGuest(),
				Address: testAddress(),
				Items:   []domain.LineItem{{ProductID: "P1", Qty: 1}},
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
				catalog.EXPECT().GetProduct(gomock.Any(), "P1").Return(product("P1", "20", 1), nil)
				repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(errors.New("conn closed"))
			},
			expError: domain.ErrInternal,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			catalog := mock.NewMockCatalogReader(mockCtrl)
			repo := mock.NewMockRepository(mockCtrl)
			notifier := mock.NewMockNotificationDispatcher(mockCtrl)
			test.mock(catalog, repo, notifier)

			s := newCheckout(t, catalog, repo, notifier, 3, sequenceNumbers("261016-AAAAAA"))

			result, err := s.CheckoutAsGuest(context.Background(), &test.req)

			assert.Equal(t, test.expError, err)
			if test.expError != nil {
				assert.Nil(t, result)
				return
			}

			order := result.Order
			assert.Equal(t, test.expNumber, result.OrderNumber)
			assert.Equal(t, order.ID, result.OrderID)
			assert.True(t, order.Customer.IsGuest)
			assert.Equal(t, domain.PaymentProviderCOD, order.Payment.Provider)
			assert.Equal(t, domain.PaymentStatusPending, order.Payment.Status)
			assert.Equal(t, domain.OrderStatusPending, order.Status)
			assert.Len(t, order.History, 1)
			assertDecimal(t, test.expSubtotal, order.Subtotal)
			assertDecimal(t, test.expDiscount, order.DiscountTotal)
			assertDecimal(t, test.expShipping, order.ShippingFee)
			assertDecimal(t, test.expGrand, order.GrandTotal)
			assert.NoError(t, order.Totals.Validate())
		})
	}
}

func TestCheckoutService_CheckoutAsUser(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	addr := testAddress()

	tests := []struct {
		name     string
		req      port.UserCheckout
		mock     prepareMocks
		expError error
	}{
		{
			name: "Saved address and stripe",
			req: port.UserCheckout{
				UserID:          "u1",
				AddressID:       "a1",
				Items:           []domain.LineItem{{ProductID: "P1", Qty: 1}},
				PaymentProvider: domain.PaymentProviderStripe,
				Notes:           "ring twice",
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
				repo.EXPECT().GetUserAddress(gomock.Any(), "u1", "a1").Return(&addr, nil)
				catalog.EXPECT().GetProduct(gomock.Any(), "P1").Return(product("P1", "20", 10), nil)
				repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, o *domain.Order) error {
						assert.False(t, o.Customer.IsGuest)
						assert.Equal(t, "u1", o.Customer.UserID)
						assert.Equal(t, domain.PaymentProviderStripe, o.Payment.Provider)
						assert.Equal(t, "Dhaka", o.Address.City)
						assert.Equal(t, "ring twice", o.Notes)
						return nil
					})
				notifier.EXPECT().Dispatch(gomock.Any())
			},
		},
		{
			name: "Unknown address",
			req: port.UserCheckout{
				UserID:          "u1",
				AddressID:       "nope",
				Items:           []domain.LineItem{{ProductID: "P1", Qty: 1}},
				PaymentProvider: domain.PaymentProviderCOD,
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
				repo.EXPECT().GetUserAddress(gomock.Any(), "u1", "nope").Return(nil, domain.ErrDataNotFound)
			},
			expError: domain.NewValidationError("addressId", "does not match a saved address"),
		},
		{
			name: "Unknown payment provider",
			req: port.UserCheckout{
				UserID:          "u1",
				AddressID:       "a1",
				Items:           []domain.LineItem{{ProductID: "P1", Qty: 1}},
				PaymentProvider: "paypal",
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
			},
			expError: domain.NewValidationError("paymentProvider", "must be one of stripe, sslcommerz, cod"),
		},
		{
			name: "Empty cart",
			req: port.UserCheckout{
				UserID:          "u1",
				AddressID:       "a1",
				PaymentProvider: domain.PaymentProviderCOD,
			},
			mock: func(catalog *mock.MockCatalogReader, repo *mock.MockRepository, notifier *mock.MockNotificationDispatcher) {
				repo.EXPECT().GetUserAddress(gomock.Any(), "u1", "a1").Return(&addr, nil)
			},
			expError: domain.ErrEmptyOrder,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			catalog := mock.NewMockCatalogReader(mockCtrl)
			repo := mock.NewMockRepository(mockCtrl)
			notifier := mock.NewMockNotificationDispatcher(mockCtrl)
			test.mock(catalog, repo, notifier)

			s := newCheckout(t, catalog, repo, notifier, 3, sequenceNumbers("261016-AAAAAA"))

			_, err := s.CheckoutAsUser(context.Background(), &test.req)
			assert.Equal(t, test.expError, err)
		})
	}
}

func TestCheckoutService_OrderNumberRetry(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	catalog := mock.NewMockCatalogReader(mockCtrl)
	repo := mock.NewMockRepository(mockCtrl)
	notifier := mock.NewMockNotificationDispatcher(mockCtrl)

	catalog.EXPECT().GetProduct(gomock.Any(), "P1").Return(product("P1", "20", 10), nil)
	gomock.InOrder(
		repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(domain.ErrOrderNumberTaken),
		repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil),
	)
	notifier.EXPECT().Dispatch(gomock.Any()).Times(1)

	s := newCheckout(t, catalog, repo, notifier, 3, sequenceNumbers("261016-AAAAAA", "261016-BBBBBB"))

	result, err := s.CheckoutAsGuest(context.Background(), &port.GuestCheckout{
		Contact: testGuest(),
		Address: testAddress(),
		Items:   []domain.LineItem{{ProductID: "P1", Qty: 1}},
	})

	assert.NoError(t, err)
	assert.Equal(t, domain.OrderNumber("261016-BBBBBB"), result.OrderNumber)
}

func TestCheckoutService_OrderNumberAttemptsExhausted(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()

	catalog := mock.NewMockCatalogReader(mockCtrl)
	repo := mock.NewMockRepository(mockCtrl)
	notifier := mock.NewMockNotificationDispatcher(mockCtrl)

	catalog.EXPECT().GetProduct(gomock.Any(), "P1").Return(product("P1", "20", 10), nil)
	repo.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(domain.ErrOrderNumberTaken).Times(2)

	s := newCheckout(t, catalog, repo, notifier, 2, sequenceNumbers("261016-AAAAAA"))

	_, err := s.CheckoutAsGuest(context.Background(), &port.GuestCheckout{
		Contact: testGuest(),
		Address: testAddress(),
		Items:   []domain.LineItem{{ProductID: "P1", Qty: 1}},
	})

	assert.Equal(t, domain.ErrConflictingData, err)
}

// memoryRepository enforces order number uniqueness like the database does.
type memoryRepository struct {
	port.Repository

	mu      sync.Mutex
	numbers map[domain.OrderNumber]bool
}

func (r *memoryRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.numbers[order.Number] {
		return domain.ErrOrderNumberTaken
	}
	r.numbers[order.Number] = true
	return nil
}

type staticCatalog struct{}

func (staticCatalog) GetProduct(_ context.Context, id string) (*domain.ProductSnapshot, error) {
	return product(id, "20", 1_000_000), nil
}

func TestCheckoutService_ConcurrentOrderNumbersAreUnique(t *testing.T) {
	const n = 200

	repo := &memoryRepository{numbers: make(map[domain.OrderNumber]bool)}
	s := newCheckout(t, staticCatalog{}, repo, nil, 5, nil)

	var wg sync.WaitGroup
	results := make(chan domain.OrderNumber, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.CheckoutAsGuest(context.Background(), &port.GuestCheckout{
				Contact: testGuest(),
				Address: testAddress(),
				Items:   []domain.LineItem{{ProductID: "P1", Qty: 1}},
			})
			if err != nil {
				errs <- err
				return
			}
			results <- res.OrderNumber
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	seen := make(map[domain.OrderNumber]bool, n)
	for number := range results {
		assert.True(t, number.IsValid(), number)
		assert.False(t, seen[number], "duplicate order number %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, n)
}
