package utils

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

const orderSuffixLength = 7
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewOrderNumber formats ORD-<unix millis>-<7 uppercase base36 chars>.
func NewOrderNumber(now time.Time) (string, error) {
	b := make([]byte, orderSuffixLength)
	limit := big.NewInt(int64(len(letterBytes)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = letterBytes[n.Int64()]
	}
	return "ORD-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + string(b), nil
}

// GenerateUniqueOrderNumber retries until exists reports the candidate is unused.
func GenerateUniqueOrderNumber(now func() time.Time, exists func(string) (bool, error)) (string, error) {
	for {
		code, err := NewOrderNumber(now())
		if err != nil {
			return "", err
		}
		taken, err := exists(code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
}
