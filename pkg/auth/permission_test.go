package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionOrderingTotalOrder(t *testing.T) {
	assert.True(t, Read().Less(Write(100)))
	assert.True(t, Write(100).Less(Admin(100)))
	assert.True(t, Read().Less(Admin(1)))
}

func TestPermissionLowerPriorityNumberIsStronger(t *testing.T) {
	strong := Write(1)
	weak := Write(100)
	assert.True(t, weak.Less(strong), "a higher priority number must be the weaker permission")
}

func TestPermissionCanWriteCanAdmin(t *testing.T) {
	assert.False(t, Read().CanWrite())
	assert.False(t, Read().CanAdmin())
	assert.True(t, Write(0).CanWrite())
	assert.False(t, Write(0).CanAdmin())
	assert.True(t, Admin(0).CanWrite())
	assert.True(t, Admin(0).CanAdmin())
}

func TestPermissionPriorityValue(t *testing.T) {
	_, ok := Read().PriorityValue()
	assert.False(t, ok)

	p, ok := Write(42).PriorityValue()
	assert.True(t, ok)
	assert.Equal(t, uint32(42), p)
}
