package reconwire

import (
	"strings"
	"testing"
	"time"

	"disbursement-service/internal/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func periodicInstruction(decisionID string, status models.InstructionStatus, amount int64, key time.Time) models.Instruction {
	lineAmount := amount
	return models.Instruction{
		ID:            "instr-" + decisionID,
		CaseID:        "case-" + decisionID,
		DecisionID:    decisionID,
		SettlementKey: key,
		Lines: []models.Line{
			{ID: 1, Type: models.LineTypePayment, Amount: &lineAmount, ClassificationCode: "SUSTONAD", RunPlan: models.RunPlanImmediate},
		},
		Events: []models.StatusEvent{
			{ID: "e1", Status: models.StatusReceived},
			{ID: "e2", Status: status},
		},
	}
}

func dataFrames(frames []PeriodicFrame) []PeriodicFrame {
	var data []PeriodicFrame
	for _, frame := range frames {
		if frame.Frame.Type == FrameTypeData {
			data = append(data, frame)
		}
	}
	return data
}

func TestBuildPeriodicFramesChunking(t *testing.T) {
	key := time.Date(2022, 10, 3, 0, 0, 0, 0, time.UTC)
	windowFrom := time.Date(2022, 10, 3, 0, 0, 0, 0, time.UTC)
	windowTo := time.Date(2022, 10, 4, 0, 0, 0, 0, time.UTC)

	t.Run("Five Details With Chunk Size Two Yield Three Data Frames", func(t *testing.T) {
		var instructions []models.Instruction
		for _, id := range []string{"d1", "d2", "d3", "d4", "d5"} {
			instructions = append(instructions, periodicInstruction(id, models.StatusSent, 100, key))
		}

		frames, err := BuildPeriodicFrames(instructions, windowFrom, windowTo, "corr-1", 2)
		require.NoError(t, err)

		data := dataFrames(frames)
		require.Len(t, data, 3)
		assert.Len(t, data[0].Details, 2)
		assert.Len(t, data[1].Details, 2)
		assert.Len(t, data[2].Details, 1)

		assert.Equal(t, FrameTypeStart, frames[0].Frame.Type)
		assert.Equal(t, FrameTypeEnd, frames[len(frames)-1].Frame.Type)
	})

	t.Run("Aggregates Appear Only On First Data Frame", func(t *testing.T) {
		var instructions []models.Instruction
		for _, id := range []string{"d1", "d2", "d3"} {
			instructions = append(instructions, periodicInstruction(id, models.StatusSent, 100, key))
		}

		frames, err := BuildPeriodicFrames(instructions, windowFrom, windowTo, "corr-1", 1)
		require.NoError(t, err)

		data := dataFrames(frames)
		require.Len(t, data, 3)
		assert.NotNil(t, data[0].Aggregates)
		assert.Nil(t, data[1].Aggregates)
		assert.Nil(t, data[2].Aggregates)
	})

	t.Run("Empty Selection Still Yields One Data Frame", func(t *testing.T) {
		frames, err := BuildPeriodicFrames(nil, windowFrom, windowTo, "corr-1", 10)
		require.NoError(t, err)

		require.Len(t, frames, 3)
		assert.Equal(t, FrameTypeStart, frames[0].Frame.Type)
		assert.Equal(t, FrameTypeData, frames[1].Frame.Type)
		assert.Equal(t, FrameTypeEnd, frames[2].Frame.Type)

		require.NotNil(t, frames[1].Aggregates)
		assert.Equal(t, 0, frames[1].Aggregates.Total.Count)
		assert.Equal(t, int64(0), frames[1].Aggregates.Total.Amount)
		assert.Empty(t, frames[1].Details)

		assert.Equal(t, EmptyKeySentinel, frames[0].Frame.KeyFrom)
		assert.Equal(t, EmptyKeySentinel, frames[0].Frame.KeyTo)
		assert.Equal(t, EmptyKeySentinel, frames[2].Frame.KeyFrom)
	})

	t.Run("Non Positive Chunk Size Fails The Run", func(t *testing.T) {
		_, err := BuildPeriodicFrames(nil, windowFrom, windowTo, "corr-1", 0)
		assert.Error(t, err)
	})
}

func TestBuildPeriodicFramesBuckets(t *testing.T) {
	key := time.Date(2022, 10, 3, 0, 0, 0, 0, time.UTC)
	windowFrom := key
	windowTo := key.AddDate(0, 0, 1)

	instructions := []models.Instruction{
		periodicInstruction("d1", models.StatusAccepted, 100, key),
		periodicInstruction("d2", models.StatusSent, 200, key),
		periodicInstruction("d3", models.StatusRejected, 300, key),
		periodicInstruction("d4", models.StatusFailed, 400, key),
		periodicInstruction("d5", models.StatusAcceptedWithWarning, 500, key),
	}

	frames, err := BuildPeriodicFrames(instructions, windowFrom, windowTo, "corr-2", 100)
	require.NoError(t, err)

	data := dataFrames(frames)
	require.Len(t, data, 1)
	aggregates := data[0].Aggregates
	require.NotNil(t, aggregates)

	assert.Equal(t, 5, aggregates.Total.Count)
	assert.Equal(t, int64(1500), aggregates.Total.Amount)
	assert.Equal(t, SignPositive, aggregates.Total.Sign)

	assert.Equal(t, 1, aggregates.Approved.Count)
	assert.Equal(t, int64(100), aggregates.Approved.Amount)
	assert.Equal(t, 1, aggregates.Pending.Count)
	assert.Equal(t, int64(200), aggregates.Pending.Amount)
	assert.Equal(t, 2, aggregates.Rejected.Count)
	assert.Equal(t, int64(700), aggregates.Rejected.Amount)
	assert.Equal(t, 1, aggregates.Missing.Count, "accepted-with-warning falls outside the named buckets")
	assert.Equal(t, int64(500), aggregates.Missing.Amount)

	// Accepted and accepted-with-warning instructions are not detail-worthy.
	require.Len(t, data[0].Details, 3)
	ids := []string{data[0].Details[0].DecisionID, data[0].Details[1].DecisionID, data[0].Details[2].DecisionID}
	assert.Equal(t, []string{"d2", "d3", "d4"}, ids)
}

func TestPeriodicFrameKeyBounds(t *testing.T) {
	early := time.Date(2022, 10, 3, 6, 0, 0, 0, time.UTC)
	late := time.Date(2022, 10, 3, 21, 0, 0, 0, time.UTC)

	instructions := []models.Instruction{
		periodicInstruction("d1", models.StatusAccepted, 100, late),
		periodicInstruction("d2", models.StatusAccepted, 100, early),
	}

	frames, err := BuildPeriodicFrames(instructions, early, late, "corr-3", 10)
	require.NoError(t, err)

	assert.Equal(t, "2022-10-03T06:00:00Z", frames[0].Frame.KeyFrom)
	assert.Equal(t, "2022-10-03T21:00:00Z", frames[0].Frame.KeyTo)
}

func TestPeriodicFrameMarshal(t *testing.T) {
	key := time.Date(2022, 10, 3, 0, 0, 0, 0, time.UTC)
	frames, err := BuildPeriodicFrames(
		[]models.Instruction{periodicInstruction("d1", models.StatusSent, 100, key)},
		key, key.AddDate(0, 0, 1), "corr-4", 10,
	)
	require.NoError(t, err)

	payload, err := frames[1].Marshal()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(payload, "<?xml"))
	assert.Contains(t, payload, "<periodicReconciliation>")
	assert.Contains(t, payload, "<correlationId>corr-4</correlationId>")
	assert.Contains(t, payload, "<aggregationType>PERIODIC</aggregationType>")
}
