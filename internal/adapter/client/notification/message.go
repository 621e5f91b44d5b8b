package notification

import (
	"fmt"
	"strings"
	"time"

	"github.com/MikeRez0/storefront/internal/core/domain"
)

type Kind string

const (
	KindOrderConfirmation Kind = "order.confirmation"
	KindAdminOrder        Kind = "order.admin"
)

const codInstructions = "Please have the exact amount ready when your order is delivered. " +
	"Our delivery team will contact you to confirm delivery."

// Message is the payload handed to the mail consumer behind the broker.
type Message struct {
	Kind         Kind          `json:"kind"`
	To           string        `json:"to"`
	Subject      string        `json:"subject"`
	OrderID      string        `json:"orderId"`
	OrderNumber  string        `json:"orderNumber"`
	IsGuest      bool          `json:"isGuest"`
	Customer     customer      `json:"customer"`
	Items        []messageItem `json:"items"`
	Subtotal     string        `json:"subtotal"`
	Discount     string        `json:"discountTotal"`
	ShippingFee  string        `json:"shippingFee"`
	GrandTotal   string        `json:"grandTotal"`
	Currency     string        `json:"currency"`
	Payment      string        `json:"paymentProvider"`
	Address      string        `json:"address"`
	Instructions string        `json:"instructions,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

type customer struct {
	UserID string `json:"userId,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

type messageItem struct {
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	UnitPrice string `json:"price"`
	LineTotal string `json:"total"`
}

// NewConfirmationMessage addresses the customer. Registered users are
// addressed by user id; the mail consumer resolves their email.
func NewConfirmationMessage(order *domain.Order) *Message {
	m := newMessage(KindOrderConfirmation, order)
	m.Subject = fmt.Sprintf("Order Received - %s", order.Number)
	if order.Customer.IsGuest {
		m.To = order.Customer.Guest.Email
	} else {
		m.To = "user:" + order.Customer.UserID
	}
	if order.Payment.Provider == domain.PaymentProviderCOD {
		m.Instructions = codInstructions
	}
	return m
}

func NewAdminMessage(order *domain.Order, adminEmail string) *Message {
	m := newMessage(KindAdminOrder, order)
	guest := ""
	if order.Customer.IsGuest {
		guest = "GUEST "
	}
	m.Subject = fmt.Sprintf("NEW %s%s Order - %s", guest, strings.ToUpper(string(order.Payment.Provider)), order.Number)
	m.To = adminEmail
	return m
}

func newMessage(kind Kind, order *domain.Order) *Message {
	items := make([]messageItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, messageItem{
			Name:      item.Name,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice.String(),
			LineTotal: item.LineTotal.String(),
		})
	}

	c := customer{UserID: order.Customer.UserID}
	if order.Customer.IsGuest {
		c = customer{Name: order.Customer.Guest.Name, Email: order.Customer.Guest.Email, Phone: order.Customer.Guest.Phone}
	}

	a := order.Address
	return &Message{
		Kind:        kind,
		OrderID:     order.ID,
		OrderNumber: string(order.Number),
		IsGuest:     order.Customer.IsGuest,
		Customer:    c,
		Items:       items,
		Subtotal:    order.Subtotal.String(),
		Discount:    order.DiscountTotal.String(),
		ShippingFee: order.ShippingFee.String(),
		GrandTotal:  order.GrandTotal.String(),
		Currency:    string(order.Currency),
		Payment:     string(order.Payment.Provider),
		Address:     fmt.Sprintf("%s, %s, %s %s, %s", a.Line, a.City, a.State, a.PostalCode, a.Country),
		CreatedAt:   order.CreatedAt,
	}
}
