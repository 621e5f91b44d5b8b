package domain

import "strings"

type AddressKind string

const (
	AddressKindHome   AddressKind = "home"
	AddressKindOffice AddressKind = "office"
	AddressKindOther  AddressKind = "other"
)

// Address is copied by value into an order and never referenced afterwards.
type Address struct {
	Kind       AddressKind
	Name       string
	Phone      string
	Line       string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
}

func (a *Address) Validate() error {
	switch a.Kind {
	case "":
		a.Kind = AddressKindHome
	case AddressKindHome, AddressKindOffice, AddressKindOther:
	default:
		return NewValidationError("address.type", "must be one of home, office, other")
	}

	required := []struct {
		field string
		value string
	}{
		{"address.name", a.Name},
		{"address.phone", a.Phone},
		{"address.address", a.Line},
		{"address.city", a.City},
		{"address.state", a.State},
		{"address.postalCode", a.PostalCode},
		{"address.country", a.Country},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return NewValidationError(r.field, "is required")
		}
	}
	return nil
}

type GuestContact struct {
	Name  string
	Email string
	Phone string
}

// Customer is either a registered user reference or a guest contact snapshot.
type Customer struct {
	IsGuest bool
	UserID  string
	Guest   GuestContact
}

func RegisteredCustomer(userID string) Customer {
	return Customer{UserID: userID}
}

func GuestCustomer(contact GuestContact) Customer {
	return Customer{IsGuest: true, Guest: contact}
}

func (c Customer) Validate() error {
	if !c.IsGuest {
		if c.UserID == "" {
			return NewValidationError("user", "is required")
		}
		if c.Guest != (GuestContact{}) {
			return NewValidationError("guest", "must be empty for registered customers")
		}
		return nil
	}

	if c.UserID != "" {
		return NewValidationError("user", "must be empty for guest orders")
	}
	if strings.TrimSpace(c.Guest.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if strings.TrimSpace(c.Guest.Email) == "" {
		return NewValidationError("email", "is required")
	}
	if strings.TrimSpace(c.Guest.Phone) == "" {
		return NewValidationError("phone", "is required")
	}
	return nil
}
