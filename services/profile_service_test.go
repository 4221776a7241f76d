package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultProfileName(t *testing.T) {
	assert.Equal(t, "Wang Fang", DefaultProfileName(Identity{Name: " Wang Fang ", Email: "fang@example.com"}))
	assert.Equal(t, "fang", DefaultProfileName(Identity{Email: "fang@example.com"}))
	assert.Equal(t, "Student", DefaultProfileName(Identity{}))
	assert.Equal(t, "Student", DefaultProfileName(Identity{Email: "@example.com"}))
}
