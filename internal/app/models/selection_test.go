package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func bookedInstruction(id string, createdAt time.Time, status InstructionStatus, lines ...Line) Instruction {
	return Instruction{
		ID:        id,
		CaseID:    "case-1",
		CreatedAt: createdAt,
		Lines:     lines,
		Events: []StatusEvent{
			{InstructionID: id, Status: StatusSent},
			{InstructionID: id, Status: status},
		},
	}
}

func paymentLine(lineID int64, from string, to *string, amount int64, predecessor *LineRef) Line {
	fromDate, _ := time.Parse("2006-01-02", from)
	period := Period{From: fromDate}
	if to != nil {
		toDate, _ := time.Parse("2006-01-02", *to)
		period.To = &toDate
	}
	return Line{
		ID:          lineID,
		Type:        LineTypePayment,
		CaseID:      "case-1",
		Period:      period,
		Amount:      &amount,
		Predecessor: predecessor,
	}
}

func TestLatestBooked(t *testing.T) {
	base := time.Date(2023, 2, 1, 10, 0, 0, 0, time.UTC)

	t.Run("picks newest accepted over older accepted", func(t *testing.T) {
		older := bookedInstruction("ins-1", base, StatusAccepted)
		newer := bookedInstruction("ins-2", base.Add(time.Hour), StatusAcceptedWithWarning)

		got := LatestBooked([]Instruction{older, newer})
		assert.NotNil(t, got)
		assert.Equal(t, "ins-2", got.ID)
	})

	t.Run("skips rejected and pending instructions", func(t *testing.T) {
		accepted := bookedInstruction("ins-1", base, StatusAccepted)
		rejected := bookedInstruction("ins-2", base.Add(time.Hour), StatusRejected)
		pending := Instruction{ID: "ins-3", CreatedAt: base.Add(2 * time.Hour), Events: []StatusEvent{{Status: StatusSent}}}

		got := LatestBooked([]Instruction{accepted, rejected, pending})
		assert.NotNil(t, got)
		assert.Equal(t, "ins-1", got.ID)
	})

	t.Run("nil when nothing booked", func(t *testing.T) {
		rejected := bookedInstruction("ins-1", base, StatusRejected)
		assert.Nil(t, LatestBooked([]Instruction{rejected}))
	})
}

func TestActiveBookedLines(t *testing.T) {
	base := time.Date(2023, 2, 1, 10, 0, 0, 0, time.UTC)
	referenceDate := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("replaced line drops out in favor of its successor", func(t *testing.T) {
		first := bookedInstruction("ins-1", base, StatusAccepted,
			paymentLine(1, "2023-01-01", nil, 3000, nil),
		)
		correction := bookedInstruction("ins-2", base.Add(time.Hour), StatusAccepted,
			paymentLine(2, "2023-01-01", nil, 3500, &LineRef{LineID: 1, CaseID: "case-1"}),
		)

		active := ActiveBookedLines([]Instruction{first, correction}, referenceDate)
		assert.Len(t, active, 1)
		assert.Equal(t, int64(2), active[0].ID)
		assert.Equal(t, int64(3500), *active[0].Amount)
	})

	t.Run("lines from unbooked instructions never count", func(t *testing.T) {
		rejected := bookedInstruction("ins-1", base, StatusRejected,
			paymentLine(1, "2023-01-01", nil, 3000, nil),
		)
		assert.Empty(t, ActiveBookedLines([]Instruction{rejected}, referenceDate))
	})

	t.Run("expired and future lines are filtered by reference date", func(t *testing.T) {
		expiredTo := "2023-03-31"
		booked := bookedInstruction("ins-1", base, StatusAccepted,
			paymentLine(1, "2023-01-01", &expiredTo, 1000, nil),
			paymentLine(2, "2023-04-01", nil, 2000, nil),
			paymentLine(3, "2023-09-01", nil, 4000, nil),
		)

		active := ActiveBookedLines([]Instruction{booked}, referenceDate)
		assert.Len(t, active, 1)
		assert.Equal(t, int64(2), active[0].ID)
	})

	t.Run("termination lines never appear as active", func(t *testing.T) {
		termination := Line{
			ID:          4,
			Type:        LineTypeTermination,
			CaseID:      "case-1",
			Period:      Period{From: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
			Predecessor: &LineRef{LineID: 2, CaseID: "case-1"},
		}
		booked := bookedInstruction("ins-1", base, StatusAccepted,
			paymentLine(2, "2023-01-01", nil, 2000, nil),
		)
		terminator := bookedInstruction("ins-2", base.Add(time.Hour), StatusAccepted, termination)

		active := ActiveBookedLines([]Instruction{booked, terminator}, referenceDate)
		assert.Empty(t, active)
	})
}
