package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d+-[A-Z0-9]{7}$`)

func TestNewOrderNumberIsDistinctWithinSameMillisecond(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		code, err := NewOrderNumber(now)
		require.NoError(t, err)
		assert.Regexp(t, orderNumberPattern, code)
		_, dup := seen[code]
		require.False(t, dup, "duplicate order number %s", code)
		seen[code] = struct{}{}
	}
}

func TestGenerateUniqueOrderNumberRetriesOnCollision(t *testing.T) {
	calls := 0
	code, err := GenerateUniqueOrderNumber(time.Now, func(string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Regexp(t, orderNumberPattern, code)
}
