package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByKindOnly(t *testing.T) {
	err := Wrap(KindNotFound, "entry abc123 not found", errors.New("boom"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAuthentication))
}

func TestErrorUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("underlying")
	err := Wrap(KindSerialization, "bad json", cause)

	require.ErrorIs(t, err, cause)
}

func TestNewErrorHasNilCause(t *testing.T) {
	err := NewError(KindAlreadyCommitted, "op already committed")
	require.Nil(t, err.Unwrap())
	assert.Equal(t, "already_committed: op already committed", err.Error())
}

func TestIDIsEmpty(t *testing.T) {
	var root ID
	assert.True(t, root.IsEmpty())
	assert.False(t, ID("abc").IsEmpty())
}
