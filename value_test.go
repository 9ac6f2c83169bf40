package connector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Accessors(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	s, ok := String("x").AsString()
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	_, ok = String("x").AsNumber()
	assert.False(t, ok)

	n, ok := Int(100).AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 100.0, n)

	got, ok := Timestamp(ts).AsTimestamp()
	assert.True(t, ok)
	assert.True(t, ts.Equal(got))

	assert.False(t, Value{}.IsValid())
	assert.Equal(t, "33.5", Number(33.5).String())
	assert.Equal(t, "true", Bool(true).String())
}

func TestValueOf(t *testing.T) {
	v, err := ValueOf(int64(7))
	require.NoError(t, err)
	assert.True(t, v.Equal(Int(7)))

	v, err = ValueOf("s")
	require.NoError(t, err)
	assert.Equal(t, KindString, v.Kind())

	_, err = ValueOf([]byte("no"))
	assert.Error(t, err)
}

func TestFields_OverlayCallerWins(t *testing.T) {
	base := Fields{"Field1": String("server"), "Field2": Int(2)}
	caller := Fields{"Field1": String("caller"), "Extra": Bool(true)}

	merged := caller.Overlay(base)

	assert.True(t, merged.Equal(Fields{
		"Field1": String("caller"),
		"Field2": Int(2),
		"Extra":  Bool(true),
	}))
	assert.True(t, base["Field1"].Equal(String("server")), "base must not be modified")
}

func TestFields_OverlayNil(t *testing.T) {
	var caller Fields
	merged := caller.Overlay(nil)
	require.NotNil(t, merged)
	assert.Empty(t, merged)
}
