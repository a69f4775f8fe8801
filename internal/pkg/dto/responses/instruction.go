package responses

import (
	"time"

	"disbursement-service/internal/app/models"
)

type InstructionResponse struct {
	ID            string                `json:"id"`
	CaseID        string                `json:"case_id"`
	CaseType      string                `json:"case_type"`
	ProceedingID  string                `json:"proceeding_id"`
	DecisionID    string                `json:"decision_id"`
	Status        string                `json:"status"`
	SettlementKey time.Time             `json:"settlement_key"`
	RecipientID   string                `json:"recipient_id"`
	CreatedAt     time.Time             `json:"created_at"`
	Lines         []LineResponse        `json:"lines"`
	Events        []StatusEventResponse `json:"events"`
	Receipt       *ReceiptResponse      `json:"receipt,omitempty"`
}

type LineResponse struct {
	LineID             int64      `json:"line_id"`
	Type               string     `json:"type"`
	PredecessorLineID  *int64     `json:"predecessor_line_id,omitempty"`
	PredecessorCaseID  *string    `json:"predecessor_case_id,omitempty"`
	PeriodFrom         time.Time  `json:"period_from"`
	PeriodTo           *time.Time `json:"period_to,omitempty"`
	Amount             *int64     `json:"amount,omitempty"`
	ClassificationCode string     `json:"classification_code"`
	RunPlan            string     `json:"run_plan"`
}

type StatusEventResponse struct {
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type ReceiptResponse struct {
	Severity    string    `json:"severity"`
	Description string    `json:"description,omitempty"`
	MessageCode string    `json:"message_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type SubmitOutcomeResponse struct {
	Outcome            string               `json:"outcome"`
	Instruction        *InstructionResponse `json:"instruction,omitempty"`
	ConflictingLineIDs []int64              `json:"conflicting_line_ids,omitempty"`
}

type ResweepResponse struct {
	Redispatched int `json:"redispatched"`
}

type ReconciliationRunResponse struct {
	CorrelationID string `json:"correlation_id"`
	FrameCount    int    `json:"frame_count"`
	DetailCount   int    `json:"detail_count"`
	ArchiveObject string `json:"archive_object"`
}

// NewInstructionResponse flattens an instruction, its derived status and its
// attachments into the transport shape.
func NewInstructionResponse(instruction *models.Instruction) *InstructionResponse {
	response := &InstructionResponse{
		ID:            instruction.ID,
		CaseID:        instruction.CaseID,
		CaseType:      string(instruction.CaseType),
		ProceedingID:  instruction.ProceedingID,
		DecisionID:    instruction.DecisionID,
		Status:        string(instruction.Status()),
		SettlementKey: instruction.SettlementKey,
		RecipientID:   instruction.RecipientID,
		CreatedAt:     instruction.CreatedAt,
	}

	for _, line := range instruction.Lines {
		lineResponse := LineResponse{
			LineID:             line.ID,
			Type:               string(line.Type),
			PeriodFrom:         line.Period.From,
			PeriodTo:           line.Period.To,
			Amount:             line.Amount,
			ClassificationCode: line.ClassificationCode,
			RunPlan:            string(line.RunPlan),
		}
		if line.Predecessor != nil {
			lineResponse.PredecessorLineID = &line.Predecessor.LineID
			lineResponse.PredecessorCaseID = &line.Predecessor.CaseID
		}
		response.Lines = append(response.Lines, lineResponse)
	}

	for _, event := range instruction.Events {
		response.Events = append(response.Events, StatusEventResponse{
			Status:    string(event.Status),
			CreatedAt: event.CreatedAt,
		})
	}

	if instruction.Receipt != nil {
		response.Receipt = &ReceiptResponse{
			Severity:    instruction.Receipt.Severity,
			Description: instruction.Receipt.Description,
			MessageCode: instruction.Receipt.MessageCode,
			CreatedAt:   instruction.Receipt.CreatedAt,
		}
	}
	return response
}
