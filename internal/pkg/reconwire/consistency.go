package reconwire

import (
	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/exceptions"
	"encoding/xml"
	"fmt"
	"time"
)

// CaseLines is the consistency snapshot for one case: every currently
// accepted line active as of the reference date.
type CaseLines struct {
	CaseID      string
	RecipientID string
	Lines       []models.Line
}

// ConsistencyFrame is one message of the full-snapshot reconciliation
// protocol. DATA frames carry per-case blocks plus a running total covering
// everything emitted up to and including the frame.
type ConsistencyFrame struct {
	XMLName xml.Name          `xml:"consistencyReconciliation"`
	Frame   FrameHeader       `xml:"frame"`
	Total   *AmountBlock      `xml:"total,omitempty"`
	Cases   []ConsistencyCase `xml:"case"`
}

type ConsistencyCase struct {
	CaseID      string            `xml:"caseId"`
	RecipientID string            `xml:"recipientId"`
	Lines       []ConsistencyLine `xml:"line"`
}

type ConsistencyLine struct {
	LineID             int64  `xml:"lineId"`
	ClassificationCode string `xml:"classificationCode"`
	Amount             int64  `xml:"amount"`
	RunPlan            string `xml:"runPlan"`
	PeriodFrom         string `xml:"periodFrom"`
	PeriodTo           string `xml:"periodTo,omitempty"`
}

// BuildConsistencyFrames turns the active-line snapshot into the full frame
// sequence. An empty snapshot still yields START, one DATA frame with a zero
// total and END; the sequence is never skipped.
func BuildConsistencyFrames(
	cases []CaseLines,
	referenceDate time.Time,
	correlationID string,
	casesPerFrame int,
) ([]ConsistencyFrame, error) {
	if casesPerFrame <= 0 {
		return nil, exceptions.ErrReconciliationRun(fmt.Errorf("cases per frame must be positive, got %d", casesPerFrame))
	}

	refDate := referenceDate.UTC().Format(DateFormat)
	header := func(frameType string) FrameHeader {
		return FrameHeader{
			Type:                 frameType,
			AggregationType:      AggregationTypeConsistency,
			SourceComponent:      SourceComponent,
			DestinationComponent: DestinationComponent,
			CorrelationID:        correlationID,
			KeyFrom:              refDate,
			KeyTo:                refDate,
		}
	}

	frames := []ConsistencyFrame{{Frame: header(FrameTypeStart)}}

	runningTotal := newAmountBlock()
	chunks := chunkCases(cases, casesPerFrame)
	for _, chunk := range chunks {
		frame := ConsistencyFrame{Frame: header(FrameTypeData)}
		for _, caseLines := range chunk {
			caseBlock := ConsistencyCase{
				CaseID:      caseLines.CaseID,
				RecipientID: caseLines.RecipientID,
			}
			for _, line := range caseLines.Lines {
				var amount int64
				if line.Amount != nil {
					amount = *line.Amount
				}
				runningTotal.add(amount)
				consistencyLine := ConsistencyLine{
					LineID:             line.ID,
					ClassificationCode: line.ClassificationCode,
					Amount:             amount,
					RunPlan:            string(line.RunPlan),
					PeriodFrom:         line.Period.From.Format(DateFormat),
				}
				if line.Period.To != nil {
					consistencyLine.PeriodTo = line.Period.To.Format(DateFormat)
				}
				caseBlock.Lines = append(caseBlock.Lines, consistencyLine)
			}
			frame.Cases = append(frame.Cases, caseBlock)
		}
		total := runningTotal
		frame.Total = &total
		frames = append(frames, frame)
	}

	frames = append(frames, ConsistencyFrame{Frame: header(FrameTypeEnd)})
	return frames, nil
}

// Marshal serializes one frame to its XML document.
func (f *ConsistencyFrame) Marshal() (string, error) {
	return marshalFrame(f)
}

func chunkCases(cases []CaseLines, casesPerFrame int) [][]CaseLines {
	if len(cases) == 0 {
		return [][]CaseLines{nil}
	}
	var chunks [][]CaseLines
	for start := 0; start < len(cases); start += casesPerFrame {
		end := start + casesPerFrame
		if end > len(cases) {
			end = len(cases)
		}
		chunks = append(chunks, cases[start:end])
	}
	return chunks
}
