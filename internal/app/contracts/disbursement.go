package contracts

import (
	"context"

	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/dto/requests"
)

type SubmitOutcomeKind string

const (
	SubmitCreated            SubmitOutcomeKind = "CREATED"
	SubmitAlreadyExists      SubmitOutcomeKind = "ALREADY_EXISTS"
	SubmitLineConflict       SubmitOutcomeKind = "LINE_CONFLICT"
	SubmitNoPriorInstruction SubmitOutcomeKind = "NO_PRIOR_INSTRUCTION"
	SubmitDispatchFailed     SubmitOutcomeKind = "DISPATCH_FAILED"
)

// SubmitOutcome is the explicit result of a submit call. Expected recoverable
// outcomes travel here as values so queue consumers can acknowledge without
// retrying; only infrastructure problems surface as errors.
type SubmitOutcome struct {
	Kind        SubmitOutcomeKind
	Instruction *models.Instruction
	// ConflictingLineIDs is set on SubmitLineConflict.
	ConflictingLineIDs []int64
	// DispatchErr is set on SubmitDispatchFailed; the instruction is
	// persisted and recoverable through the resweep.
	DispatchErr error
}

type ReceiptOutcomeKind string

const (
	ReceiptApplied         ReceiptOutcomeKind = "APPLIED"
	ReceiptNotFound        ReceiptOutcomeKind = "NOT_FOUND"
	ReceiptInvalidSequence ReceiptOutcomeKind = "INVALID_SEQUENCE"
)

type ReceiptOutcome struct {
	Kind        ReceiptOutcomeKind
	Instruction *models.Instruction
	// CurrentStatus is set on ReceiptInvalidSequence: the terminal status
	// the out-of-sequence receipt tried to overwrite.
	CurrentStatus models.InstructionStatus
	// MappedStatus is set on ReceiptApplied.
	MappedStatus models.InstructionStatus
}

type DisbursementUsecase interface {
	SubmitInstruction(ctx context.Context, decision *requests.PaymentDecision) (*SubmitOutcome, error)
	IngestReceipt(ctx context.Context, payload []byte) (*ReceiptOutcome, error)
	// ForceAccept synthesizes a success receipt for manual recovery only.
	ForceAccept(ctx context.Context, decisionID string) (*ReceiptOutcome, error)
	// ResweepUnsent re-dispatches persisted-but-unsent instructions and
	// returns how many were sent.
	ResweepUnsent(ctx context.Context) (int, error)

	GetInstruction(ctx context.Context, decisionID string) (*models.Instruction, error)
	ListCaseInstructions(ctx context.Context, caseID string) ([]models.Instruction, error)
}
