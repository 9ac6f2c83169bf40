package connector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperation(t *testing.T) {
	for _, op := range AllOperations {
		got, err := ParseOperation(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}

	got, err := ParseOperation("read")
	require.NoError(t, err)
	assert.Equal(t, OperationRead, got)

	_, err = ParseOperation("PATCH")
	assert.True(t, errors.Is(err, ErrUnrecognizedRequestType))
}

func TestOperationSet(t *testing.T) {
	set := NewOperationSet(OperationDelete, OperationRead, OperationRead, Operation(0), Operation(99))

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains(OperationRead))
	assert.True(t, set.Contains(OperationDelete))
	assert.False(t, set.Contains(OperationCreate))
	assert.Equal(t, []Operation{OperationRead, OperationDelete}, set.Slice())
	assert.Equal(t, "[READ DELETE]", set.String())
}

func TestOperationSet_ZeroValue(t *testing.T) {
	var set OperationSet
	assert.Equal(t, 0, set.Len())
	assert.False(t, set.Contains(OperationCreate))
	assert.Empty(t, set.Slice())
}
