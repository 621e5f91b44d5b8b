package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/MikeRez0/storefront/internal/adapter/metrics"
	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/MikeRez0/storefront/internal/core/port"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	Handler
	checkout port.CheckoutService
	orders   port.OrderQueryService
}

func NewOrderHandler(
	checkout port.CheckoutService,
	orders port.OrderQueryService,
	handler *Handler,
) (*OrderHandler, error) {
	if checkout == nil || orders == nil {
		return nil, errors.New("order handler requires checkout and order services")
	}
	return &OrderHandler{
		Handler:  *handler,
		checkout: checkout,
		orders:   orders,
	}, nil
}

type itemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Qty       int    `json:"qty" binding:"required,min=1,max=10000"`
}

type addressRequest struct {
	Type       string `json:"type" binding:"omitempty,oneof=home office other"`
	Name       string `json:"name" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

func (r addressRequest) toDomain() domain.Address {
	return domain.Address{
		Kind:       domain.AddressKind(r.Type),
		Name:       r.Name,
		Phone:      r.Phone,
		Line:       r.Address,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
		Country:    r.Country,
	}
}

type guestCheckoutRequest struct {
	Name       string         `json:"name" binding:"required"`
	Email      string         `json:"email" binding:"required,email"`
	Phone      string         `json:"phone" binding:"required"`
	Address    addressRequest `json:"address"`
	Items      []itemRequest  `json:"items" binding:"dive"`
	CouponCode string         `json:"couponCode"`
	Notes      string         `json:"notes" binding:"max=1000"`
}

type userCheckoutRequest struct {
	AddressID       string        `json:"addressId" binding:"required"`
	Items           []itemRequest `json:"items" binding:"dive"`
	PaymentProvider string        `json:"paymentProvider" binding:"required,oneof=stripe sslcommerz cod"`
	CouponCode      string        `json:"couponCode"`
	Notes           string        `json:"notes" binding:"max=1000"`
}

func lineItems(items []itemRequest) []domain.LineItem {
	result := make([]domain.LineItem, 0, len(items))
	for _, i := range items {
		result = append(result, domain.LineItem{ProductID: i.ProductID, Qty: i.Qty})
	}
	return result
}

type checkoutResponse struct {
	OrderID     string        `json:"orderId"`
	OrderNumber string        `json:"orderNumber"`
	Order       orderResponse `json:"order"`
}

type orderItemResponse struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Thumbnail string      `json:"thumbnail,omitempty"`
	Price     jsonDecimal `json:"price"`
	Currency  string      `json:"currency"`
	Qty       int         `json:"qty"`
	Total     jsonDecimal `json:"total"`
}

type guestResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type addressResponse struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type paymentResponse struct {
	Provider      string `json:"provider"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId,omitempty"`
	IntentID      string `json:"intentId,omitempty"`
}

type historyResponse struct {
	Status    string    `json:"status"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
}

type couponResponse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	OrderNumber   string              `json:"orderNumber"`
	IsGuest       bool                `json:"isGuest"`
	User          string              `json:"user,omitempty"`
	GuestInfo     *guestResponse      `json:"guestInfo,omitempty"`
	Items         []orderItemResponse `json:"items"`
	Subtotal      jsonDecimal         `json:"subtotal"`
	DiscountTotal jsonDecimal         `json:"discountTotal"`
	ShippingFee   jsonDecimal         `json:"shippingFee"`
	GrandTotal    jsonDecimal         `json:"grandTotal"`
	Currency      string              `json:"currency"`
	Address       addressResponse     `json:"shippingAddress"`
	Status        string              `json:"status"`
	Payment       paymentResponse     `json:"payment"`
	History       []historyResponse   `json:"statusHistory"`
	Coupon        *couponResponse     `json:"coupon,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func newOrderResponse(o *domain.Order) orderResponse {
	r := orderResponse{
		ID:            o.ID,
		OrderNumber:   string(o.Number),
		IsGuest:       o.Customer.IsGuest,
		User:          o.Customer.UserID,
		Items:         make([]orderItemResponse, 0, len(o.Items)),
		Subtotal:      jsonDecimal(o.Subtotal),
		DiscountTotal: jsonDecimal(o.DiscountTotal),
		ShippingFee:   jsonDecimal(o.ShippingFee),
		GrandTotal:    jsonDecimal(o.GrandTotal),
		Currency:      string(o.Currency),
		Address: addressResponse{
			Type:       string(o.Address.Kind),
			Name:       o.Address.Name,
			Phone:      o.Address.Phone,
			Address:    o.Address.Line,
			City:       o.Address.City,
			State:      o.Address.State,
			PostalCode: o.Address.PostalCode,
			Country:    o.Address.Country,
		},
		Status: string(o.Status),
		Payment: paymentResponse{
			Provider:      string(o.Payment.Provider),
			Status:        string(o.Payment.Status),
			TransactionID: o.Payment.TransactionID,
			IntentID:      o.Payment.IntentID,
		},
		History:   make([]historyResponse, 0, len(o.History)),
		Notes:     o.Notes,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.Customer.IsGuest {
		r.GuestInfo = &guestResponse{
			Name:  o.Customer.Guest.Name,
			Email: o.Customer.Guest.Email,
			Phone: o.Customer.Guest.Phone,
		}
	}
	for _, i := range o.Items {
		r.Items = append(r.Items, orderItemResponse{
			ProductID: i.ProductID,
			Name:      i.Name,
			Thumbnail: i.Thumbnail,
			Price:     jsonDecimal(i.UnitPrice),
			Currency:  string(i.Currency),
			Qty:       i.Qty,
			Total:     jsonDecimal(i.LineTotal),
		})
	}
	for _, h := range o.History {
		r.History = append(r.History, historyResponse{
			Status:    string(h.Status),
			Note:      h.Note,
			Timestamp: h.At,
		})
	}
	if o.Coupon != nil {
		r.Coupon = &couponResponse{ID: o.Coupon.CouponID, Code: o.Coupon.Code}
	}
	return r
}

func newOrderList(list []*domain.Order) []orderResponse {
	result := make([]orderResponse, 0, len(list))
	for _, o := range list {
		result = append(result, newOrderResponse(o))
	}
	return result
}

func newCheckoutResponse(res *port.CheckoutResult) checkoutResponse {
	return checkoutResponse{
		OrderID:     res.OrderID,
		OrderNumber: string(res.OrderNumber),
		Order:       newOrderResponse(res.Order),
	}
}

// CheckoutAsGuest places a cash on delivery order without an account.
func (oh *OrderHandler) CheckoutAsGuest(ctx *gin.Context) {
	req := guestCheckoutRequest{}
	err := ctx.ShouldBindJSON(&req)
	if err != nil {
		metrics.CheckoutRejected.WithLabelValues("bad_request").Inc()
		oh.handleValidationError(ctx, err)
		return
	}

	res, err := oh.checkout.CheckoutAsGuest(ctx.Request.Context(), &port.GuestCheckout{
		Contact: domain.GuestContact{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
		},
		Address:    req.Address.toDomain(),
		Items:      lineItems(req.Items),
		CouponCode: req.CouponCode,
		Notes:      req.Notes,
	})
	if err != nil {
		metrics.CheckoutRejected.WithLabelValues(rejectReason(err)).Inc()
		oh.handleError(ctx, err)
		return
	}

	metrics.OrdersPlaced.WithLabelValues("guest").Inc()
	oh.handleSuccessWithStatus(ctx, "Order placed successfully", newCheckoutResponse(res), http.StatusCreated)
}

func (oh *OrderHandler) CheckoutAsUser(ctx *gin.Context) {
	req := userCheckoutRequest{}
	err := ctx.ShouldBindJSON(&req)
	if err != nil {
		metrics.CheckoutRejected.WithLabelValues("bad_request").Inc()
		oh.handleValidationError(ctx, err)
		return
	}

	res, err := oh.checkout.CheckoutAsUser(ctx.Request.Context(), &port.UserCheckout{
		UserID:          getAuthPayload(ctx).UserID,
		AddressID:       req.AddressID,
		Items:           lineItems(req.Items),
		PaymentProvider: domain.PaymentProvider(req.PaymentProvider),
		CouponCode:      req.CouponCode,
		Notes:           req.Notes,
	})
	if err != nil {
		metrics.CheckoutRejected.WithLabelValues(rejectReason(err)).Inc()
		oh.handleError(ctx, err)
		return
	}

	metrics.OrdersPlaced.WithLabelValues("user").Inc()
	oh.handleSuccessWithStatus(ctx, "Order placed successfully", newCheckoutResponse(res), http.StatusCreated)
}

type listQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

func (oh *OrderHandler) ListOrdersByUser(ctx *gin.Context) {
	q := listQuery{}
	if err := ctx.ShouldBindQuery(&q); err != nil {
		oh.handleValidationError(ctx, err)
		return
	}

	page, err := oh.orders.ListForUser(ctx.Request.Context(), getAuthPayload(ctx).UserID, q.Page, q.Limit)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccessPage(ctx, "Orders retrieved successfully", newOrderList(page.Orders), page.Pagination)
}

type guestQuery struct {
	Email string `form:"email" binding:"required"`
	Phone string `form:"phone" binding:"required"`
}

func (oh *OrderHandler) ListGuestOrders(ctx *gin.Context) {
	q := guestQuery{}
	if err := ctx.ShouldBindQuery(&q); err != nil {
		oh.handleValidationError(ctx, err)
		return
	}

	list, err := oh.orders.ListForGuest(ctx.Request.Context(), q.Email, q.Phone)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccess(ctx, "Orders retrieved successfully", newOrderList(list))
}

func (oh *OrderHandler) GetOrder(ctx *gin.Context) {
	order, err := oh.orders.GetByID(ctx.Request.Context(), ctx.Param("id"), requesterID(ctx))
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccess(ctx, "Order retrieved successfully", newOrderResponse(order))
}

func (oh *OrderHandler) GetOrderByNumber(ctx *gin.Context) {
	number := domain.OrderNumber(ctx.Param("number"))
	order, err := oh.orders.GetByNumber(ctx.Request.Context(), number, requesterID(ctx))
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccess(ctx, "Order retrieved successfully", newOrderResponse(order))
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

func (oh *OrderHandler) UpdateStatus(ctx *gin.Context) {
	req := statusRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		oh.handleValidationError(ctx, err)
		return
	}

	status := domain.OrderStatus(req.Status)
	order, err := oh.orders.UpdateStatus(ctx.Request.Context(), ctx.Param("id"), status, req.Note)
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	metrics.StatusTransitions.WithLabelValues(string(status)).Inc()
	oh.handleSuccess(ctx, "Order status updated successfully", newOrderResponse(order))
}

type paymentRequest struct {
	Status        string `json:"status" binding:"required,oneof=paid failed refunded"`
	TransactionID string `json:"transactionId"`
	IntentID      string `json:"intentId"`
}

func (oh *OrderHandler) UpdatePayment(ctx *gin.Context) {
	req := paymentRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		oh.handleValidationError(ctx, err)
		return
	}

	order, err := oh.orders.UpdatePayment(ctx.Request.Context(), ctx.Param("id"), port.PaymentUpdate{
		Status:        domain.PaymentStatus(req.Status),
		TransactionID: req.TransactionID,
		IntentID:      req.IntentID,
	})
	if err != nil {
		oh.handleError(ctx, err)
		return
	}

	oh.handleSuccess(ctx, "Payment status updated successfully", newOrderResponse(order))
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrItemUnavailable):
		return "unavailable"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "stock"
	case errors.Is(err, domain.ErrCouponInvalid):
		return "coupon"
	case errors.Is(err, domain.ErrConflictingData):
		return "conflict"
	}
	return "internal"
}
