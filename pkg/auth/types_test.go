package auth

import (
	"testing"

	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthKeyRoundTripsThroughNestedValue(t *testing.T) {
	key := AuthKey{PublicKey: "ed25519:test_key", Permissions: Write(10), Status: StatusActive}

	v := key.ToNestedValue()
	decoded, err := AuthKeyFromNestedValue(v)
	require.NoError(t, err)

	assert.Equal(t, key.PublicKey, decoded.PublicKey)
	assert.Equal(t, key.Permissions, decoded.Permissions)
	assert.Equal(t, key.Status, decoded.Status)
}

func TestAuthKeyFromNestedValueRejectsNonMap(t *testing.T) {
	_, err := AuthKeyFromNestedValue(crdt.NewStringValue("not a key"))
	assert.Error(t, err)
}
