package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/MikeRez0/storefront/internal/core/domain"
	"github.com/govalues/decimal"
)

// Embedded order parts are stored as JSONB documents. Amounts are kept as
// strings so no precision is lost on the way through JSON.

type itemDocument struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail,omitempty"`
	UnitPrice string `json:"unitPrice"`
	Currency  string `json:"currency"`
	Qty       int    `json:"qty"`
	LineTotal string `json:"lineTotal"`
}

type addressDocument struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	IsDefault  bool   `json:"isDefault"`
}

type paymentDocument struct {
	Provider      string `json:"provider"`
	Status        string `json:"status"`
	TransactionID string `json:"transactionId,omitempty"`
	IntentID      string `json:"intentId,omitempty"`
}

type historyDocument struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

func marshalItems(items []domain.OrderItem) ([]byte, error) {
	docs := make([]itemDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, itemDocument{
			ProductID: item.ProductID,
			Name:      item.Name,
			Thumbnail: item.Thumbnail,
			UnitPrice: item.UnitPrice.String(),
			Currency:  string(item.Currency),
			Qty:       item.Qty,
			LineTotal: item.LineTotal.String(),
		})
	}
	return json.Marshal(docs)
}

func unmarshalItems(data []byte) ([]domain.OrderItem, error) {
	var docs []itemDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}

	items := make([]domain.OrderItem, 0, len(docs))
	for _, doc := range docs {
		unitPrice, err := decimal.Parse(doc.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("decode unit price: %w", err)
		}
		lineTotal, err := decimal.Parse(doc.LineTotal)
		if err != nil {
			return nil, fmt.Errorf("decode line total: %w", err)
		}
		items = append(items, domain.OrderItem{
			ProductID: doc.ProductID,
			Name:      doc.Name,
			Thumbnail: doc.Thumbnail,
			UnitPrice: unitPrice,
			Currency:  domain.Currency(doc.Currency),
			Qty:       doc.Qty,
			LineTotal: lineTotal,
		})
	}
	return items, nil
}

func toAddressDocument(a domain.Address) addressDocument {
	return addressDocument{
		Type:       string(a.Kind),
		Name:       a.Name,
		Phone:      a.Phone,
		Address:    a.Line,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
	}
}

func (d addressDocument) toDomain() domain.Address {
	return domain.Address{
		Kind:       domain.AddressKind(d.Type),
		Name:       d.Name,
		Phone:      d.Phone,
		Line:       d.Address,
		City:       d.City,
		State:      d.State,
		PostalCode: d.PostalCode,
		Country:    d.Country,
		IsDefault:  d.IsDefault,
	}
}

func toPaymentDocument(p domain.Payment) paymentDocument {
	return paymentDocument{
		Provider:      string(p.Provider),
		Status:        string(p.Status),
		TransactionID: p.TransactionID,
		IntentID:      p.IntentID,
	}
}

func (d paymentDocument) toDomain() domain.Payment {
	return domain.Payment{
		Provider:      domain.PaymentProvider(d.Provider),
		Status:        domain.PaymentStatus(d.Status),
		TransactionID: d.TransactionID,
		IntentID:      d.IntentID,
	}
}

func marshalHistory(entries []domain.HistoryEntry) ([]byte, error) {
	docs := make([]historyDocument, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, historyDocument{Status: string(e.Status), Timestamp: e.At.UTC(), Note: e.Note})
	}
	return json.Marshal(docs)
}

func unmarshalHistory(data []byte) ([]domain.HistoryEntry, error) {
	var docs []historyDocument
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}

	entries := make([]domain.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, domain.HistoryEntry{
			At:     doc.Timestamp,
			Status: domain.OrderStatus(doc.Status),
			Note:   doc.Note,
		})
	}
	return entries, nil
}
