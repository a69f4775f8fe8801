package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	now := time.Now()
	event := func(status InstructionStatus) StatusEvent {
		return StatusEvent{ID: "evt", InstructionID: "instr", CreatedAt: now, Status: status}
	}

	t.Run("Single Received Event", func(t *testing.T) {
		status := DeriveStatus([]StatusEvent{event(StatusReceived)})
		assert.Equal(t, StatusReceived, status)
	})

	t.Run("Sent Dominates Received", func(t *testing.T) {
		status := DeriveStatus([]StatusEvent{event(StatusReceived), event(StatusSent)})
		assert.Equal(t, StatusSent, status)
	})

	t.Run("Accepted Dominates Sent", func(t *testing.T) {
		status := DeriveStatus([]StatusEvent{event(StatusReceived), event(StatusSent), event(StatusAccepted)})
		assert.Equal(t, StatusAccepted, status)
	})

	t.Run("Failure Sticks Regardless Of Arrival Order", func(t *testing.T) {
		status := DeriveStatus([]StatusEvent{
			event(StatusReceived),
			event(StatusSent),
			event(StatusFailed),
			event(StatusAccepted),
		})
		assert.Equal(t, StatusFailed, status, "a later accepted event must not override a recorded failure")
	})

	t.Run("Rejected Dominates Accepted With Warning", func(t *testing.T) {
		status := DeriveStatus([]StatusEvent{
			event(StatusAcceptedWithWarning),
			event(StatusRejected),
		})
		assert.Equal(t, StatusRejected, status)
	})

	t.Run("Empty Event Log Falls Back To Received", func(t *testing.T) {
		assert.Equal(t, StatusReceived, DeriveStatus(nil))
	})
}

func TestStatusForSeverity(t *testing.T) {
	t.Run("Known Codes", func(t *testing.T) {
		assert.Equal(t, StatusAccepted, StatusForSeverity("00"))
		assert.Equal(t, StatusAcceptedWithWarning, StatusForSeverity("04"))
		assert.Equal(t, StatusRejected, StatusForSeverity("08"))
		assert.Equal(t, StatusFailed, StatusForSeverity("12"))
	})

	t.Run("Unknown Codes Map To Failed", func(t *testing.T) {
		assert.Equal(t, StatusFailed, StatusForSeverity("99"))
		assert.Equal(t, StatusFailed, StatusForSeverity(""))
		assert.Equal(t, StatusFailed, StatusForSeverity("banana"))
	})
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, StatusReceived.IsTerminal())
	assert.False(t, StatusSent.IsTerminal())
	assert.True(t, StatusAccepted.IsTerminal())
	assert.True(t, StatusAcceptedWithWarning.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}
