package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"
)

// OrderNumber is the human-facing order identity: YYMMDD-XXXXXX.
type OrderNumber string

const (
	orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	orderNumberTokenLen = 6
)

var orderNumberPattern = regexp.MustCompile(`^\d{6}-[0-9A-Z]{6}$`)

func NewOrderNumber(now time.Time) (OrderNumber, error) {
	token := make([]byte, orderNumberTokenLen)
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	for i := range token {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("order number token: %w", err)
		}
		token[i] = orderNumberAlphabet[n.Int64()]
	}
	return OrderNumber(now.Format("060102") + "-" + string(token)), nil
}

func (n OrderNumber) IsValid() bool {
	return orderNumberPattern.MatchString(string(n))
}
