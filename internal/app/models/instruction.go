package models

import (
	"time"

	"github.com/goccy/go-json"
)

// StatusEvent is one append-only entry in an instruction's lifecycle log.
// Events are never updated or deleted.
type StatusEvent struct {
	ID            string
	InstructionID string
	CreatedAt     time.Time
	Status        InstructionStatus
}

// Receipt is the ledger's asynchronous acknowledgment for a dispatched
// payload, attached to exactly one instruction.
type Receipt struct {
	InstructionID string
	RawPayload    string
	Severity      string
	Description   string
	MessageCode   string
	CreatedAt     time.Time
}

// Instruction is the durable record created from one approved benefit
// decision. It is created whole (all lines plus the initial event) and only
// appended to afterwards; lines are never added or removed later.
type Instruction struct {
	ID             string
	CaseID         string
	CaseType       CaseType
	ProceedingID   string
	DecisionID     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SettlementKey  time.Time
	RecipientID    string
	CaseWorkerID   string
	CaseWorkerUnit string
	ApproverID     string
	ApproverUnit   string

	DecisionSnapshot json.RawMessage
	WirePayload      *string
	Receipt          *Receipt

	Lines  []Line
	Events []StatusEvent
}

// Status derives the current status from the event log.
func (i *Instruction) Status() InstructionStatus {
	return DeriveStatus(i.Events)
}

// LastLine returns the final line of the instruction in stored order, or nil
// when the instruction has no lines.
func (i *Instruction) LastLine() *Line {
	if len(i.Lines) == 0 {
		return nil
	}
	return &i.Lines[len(i.Lines)-1]
}

// LineIDs lists the external identifiers of all lines.
func (i *Instruction) LineIDs() []int64 {
	ids := make([]int64, 0, len(i.Lines))
	for _, line := range i.Lines {
		ids = append(ids, line.ID)
	}
	return ids
}
