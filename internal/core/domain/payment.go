package domain

type PaymentProvider string

const (
	PaymentProviderStripe     PaymentProvider = "stripe"
	PaymentProviderSSLCommerz PaymentProvider = "sslcommerz"
	PaymentProviderCOD        PaymentProvider = "cod"
)

func (p PaymentProvider) IsValid() bool {
	switch p {
	case PaymentProviderStripe, PaymentProviderSSLCommerz, PaymentProviderCOD:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Payment is an opaque payment intent as seen by the order.
type Payment struct {
	Provider      PaymentProvider
	Status        PaymentStatus
	TransactionID string
	IntentID      string
}
