package reconwire

import (
	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/exceptions"
	"encoding/xml"
	"fmt"
	"time"
)

// PeriodicFrame is one message of the periodic (windowed) reconciliation
// protocol. Aggregates are present only on the first DATA frame; START and
// END frames carry neither aggregates nor details.
type PeriodicFrame struct {
	XMLName    xml.Name            `xml:"periodicReconciliation"`
	Frame      FrameHeader         `xml:"frame"`
	Aggregates *PeriodicAggregates `xml:"aggregates,omitempty"`
	Details    []PeriodicDetail    `xml:"detail"`
}

type PeriodicAggregates struct {
	WindowFrom string      `xml:"windowFrom"`
	WindowTo   string      `xml:"windowTo"`
	Total      AmountBlock `xml:"total"`
	Approved   AmountBlock `xml:"approved"`
	Pending    AmountBlock `xml:"pending"`
	Rejected   AmountBlock `xml:"rejected"`
	Missing    AmountBlock `xml:"missing"`
}

// PeriodicDetail identifies one instruction that needs operator attention on
// the ledger side: anything not fully accepted.
type PeriodicDetail struct {
	CaseID        string `xml:"caseId"`
	DecisionID    string `xml:"decisionId"`
	Status        string `xml:"status"`
	Severity      string `xml:"severity,omitempty"`
	MessageCode   string `xml:"messageCode,omitempty"`
	SettlementKey string `xml:"settlementKey"`
}

// BuildPeriodicFrames turns a settlement-window snapshot into the full frame
// sequence. The result always holds exactly 2 + max(1, ceil(N/chunkSize))
// frames for N detail-worthy instructions. Any aggregation problem fails the
// whole build; the run is safe to redo from the same snapshot.
func BuildPeriodicFrames(
	instructions []models.Instruction,
	windowFrom time.Time,
	windowTo time.Time,
	correlationID string,
	chunkSize int,
) ([]PeriodicFrame, error) {
	if chunkSize <= 0 {
		return nil, exceptions.ErrReconciliationRun(fmt.Errorf("chunk size must be positive, got %d", chunkSize))
	}

	keyFrom, keyTo := settlementKeyBounds(instructions)

	header := func(frameType string) FrameHeader {
		return FrameHeader{
			Type:                 frameType,
			AggregationType:      AggregationTypePeriodic,
			SourceComponent:      SourceComponent,
			DestinationComponent: DestinationComponent,
			CorrelationID:        correlationID,
			KeyFrom:              keyFrom,
			KeyTo:                keyTo,
		}
	}

	aggregates := &PeriodicAggregates{
		WindowFrom: windowFrom.UTC().Format(TimestampFormat),
		WindowTo:   windowTo.UTC().Format(TimestampFormat),
		Total:      newAmountBlock(),
		Approved:   newAmountBlock(),
		Pending:    newAmountBlock(),
		Rejected:   newAmountBlock(),
		Missing:    newAmountBlock(),
	}

	var details []PeriodicDetail
	for i := range instructions {
		instruction := &instructions[i]
		amount := instructionAmount(instruction)
		aggregates.Total.add(amount)

		status := instruction.Status()
		switch status {
		case models.StatusAccepted:
			aggregates.Approved.add(amount)
		case models.StatusSent:
			aggregates.Pending.add(amount)
		case models.StatusRejected, models.StatusFailed:
			aggregates.Rejected.add(amount)
		default:
			aggregates.Missing.add(amount)
		}

		if status == models.StatusAccepted || status == models.StatusAcceptedWithWarning {
			continue
		}
		detail := PeriodicDetail{
			CaseID:        instruction.CaseID,
			DecisionID:    instruction.DecisionID,
			Status:        string(status),
			SettlementKey: instruction.SettlementKey.UTC().Format(TimestampFormat),
		}
		if instruction.Receipt != nil {
			detail.Severity = instruction.Receipt.Severity
			detail.MessageCode = instruction.Receipt.MessageCode
		}
		details = append(details, detail)
	}

	frames := []PeriodicFrame{{Frame: header(FrameTypeStart)}}

	chunks := chunkDetails(details, chunkSize)
	for i, chunk := range chunks {
		frame := PeriodicFrame{Frame: header(FrameTypeData), Details: chunk}
		if i == 0 {
			frame.Aggregates = aggregates
		}
		frames = append(frames, frame)
	}

	frames = append(frames, PeriodicFrame{Frame: header(FrameTypeEnd)})
	return frames, nil
}

// Marshal serializes one frame to its XML document.
func (f *PeriodicFrame) Marshal() (string, error) {
	return marshalFrame(f)
}

func settlementKeyBounds(instructions []models.Instruction) (string, string) {
	if len(instructions) == 0 {
		return EmptyKeySentinel, EmptyKeySentinel
	}
	min, max := instructions[0].SettlementKey, instructions[0].SettlementKey
	for _, instruction := range instructions[1:] {
		if instruction.SettlementKey.Before(min) {
			min = instruction.SettlementKey
		}
		if instruction.SettlementKey.After(max) {
			max = instruction.SettlementKey
		}
	}
	return min.UTC().Format(TimestampFormat), max.UTC().Format(TimestampFormat)
}

func instructionAmount(instruction *models.Instruction) int64 {
	var total int64
	for _, line := range instruction.Lines {
		if line.Amount != nil {
			total += *line.Amount
		}
	}
	return total
}

// chunkDetails always yields at least one chunk, so an empty selection still
// produces a single DATA frame with zeroed aggregates.
func chunkDetails(details []PeriodicDetail, chunkSize int) [][]PeriodicDetail {
	if len(details) == 0 {
		return [][]PeriodicDetail{nil}
	}
	var chunks [][]PeriodicDetail
	for start := 0; start < len(details); start += chunkSize {
		end := start + chunkSize
		if end > len(details) {
			end = len(details)
		}
		chunks = append(chunks, details[start:end])
	}
	return chunks
}
