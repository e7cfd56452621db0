package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusIdle, StatusSending, true},
		{StatusIdle, StatusError, true},
		{StatusIdle, StatusCompleted, false},
		{StatusSending, StatusSent, true},
		{StatusSending, StatusTimeout, true},
		{StatusSent, StatusReceived, true},
		{StatusSent, StatusSending, false},
		{StatusReceived, StatusCompleted, true},
		{StatusReceived, StatusSent, false},
		{StatusCompleted, StatusSending, false},
		{StatusCompleted, StatusReceived, false},
		{StatusFailed, StatusCompleted, false},
		{StatusTimeout, StatusCompleted, false},
		{StatusError, StatusSent, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
			if tt.want {
				assert.NoError(t, Transition(tt.from, tt.to))
			} else {
				assert.ErrorIs(t, Transition(tt.from, tt.to), ErrIllegalTransition)
			}
		})
	}
}

func TestTerminalStatusesHaveNoExit(t *testing.T) {
	all := []Status{StatusIdle, StatusSending, StatusSent, StatusReceived, StatusCompleted, StatusFailed, StatusError, StatusTimeout}
	for _, from := range all {
		if !from.Terminal() {
			continue
		}
		for _, to := range all {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("received")
	assert.True(t, ok)
	assert.Equal(t, StatusReceived, st)

	_, ok = ParseStatus("exploded")
	assert.False(t, ok)
}
