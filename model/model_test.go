package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldTypeText(t *testing.T) {
	for _, ft := range FieldTypes() {
		text, err := ft.MarshalText()
		require.NoError(t, err)

		var parsed FieldType
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, ft, parsed)
	}

	_, err := ParseFieldType("vector")
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = FieldType(0).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, "FieldType(0)", FieldType(0).String())
}

func TestFieldTypeIsChild(t *testing.T) {
	assert.True(t, FieldTypeDocument.IsChild())
	assert.True(t, FieldTypeArray.IsChild())
	assert.False(t, FieldTypeString.IsChild())
}

func TestOrdering(t *testing.T) {
	o, err := ParseFieldIndexOrdering("desc")
	require.NoError(t, err)
	assert.Equal(t, Descending, o)
	assert.Equal(t, "asc", Ascending.String())

	_, err = ParseFieldIndexOrdering("up")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestElementStateTransitions(t *testing.T) {
	tests := []struct {
		from, to ElementState
		allowed  bool
	}{
		{StateNotExistent, StateAdded, true},
		{StateNotExistent, StateRemoved, false},
		{StateNotChanged, StateModified, true},
		{StateNotChanged, StateRemoved, true},
		{StateNotChanged, StateAdded, false},
		{StateAdded, StateAdded, true},
		{StateAdded, StateRemoved, true},
		{StateAdded, StateModified, false},
		{StateModified, StateRemoved, true},
		{StateRemoved, StateAdded, false},
		{StateRemoved, StateModified, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestElementStatePredicates(t *testing.T) {
	assert.True(t, StateNotChanged.IsAlive())
	assert.False(t, StateNotChanged.HasChanged())
	assert.False(t, StateRemoved.IsAlive())
	assert.True(t, StateRemoved.HasChanged())
	assert.False(t, StateNotExistent.IsAlive())

	assert.Equal(t, StateModified, StateNotChanged.Next())
	assert.Equal(t, StateAdded, StateAdded.Next())
	assert.Equal(t, StateModified, StateModified.Next())
}
