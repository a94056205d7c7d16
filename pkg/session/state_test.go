package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTakeStateDeltaClears(t *testing.T) {
	s := NewState("app", "user", "sess")

	s.SetStateDelta(map[string]any{"key": "value"})
	delta := s.TakeStateDelta()
	assert.Equal(t, map[string]any{"key": "value"}, delta)

	// The delta rides on exactly one request.
	assert.Nil(t, s.TakeStateDelta())
}

func TestFunctionCallEventID(t *testing.T) {
	s := NewState("app", "user", "sess")
	assert.Equal(t, "", s.FunctionCallEventID())

	s.SetFunctionCallEventID("ev1")
	assert.Equal(t, "ev1", s.FunctionCallEventID())
}

func TestMarkBidiUsedOnce(t *testing.T) {
	s := NewState("app", "user", "sess")
	assert.False(t, s.BidiUsed())

	assert.True(t, s.MarkBidiUsed())
	assert.True(t, s.BidiUsed())
	assert.False(t, s.MarkBidiUsed(), "a session opens its bidi sub-session at most once")
}
