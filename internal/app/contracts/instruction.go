package contracts

import (
	"context"
	"time"

	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/reconwire"
)

// InstructionRepository is the persistence gateway for payment instructions.
// CreateInstruction persists the instruction, all its lines and the initial
// event atomically; every other write is an append. Lookups used to build a
// new chain run inside the serializable create transaction.
type InstructionRepository interface {
	CreateInstruction(ctx context.Context, instruction *models.Instruction) error
	AppendEvent(ctx context.Context, event models.StatusEvent) error
	// ApplyReceipt upserts the receipt and appends its mapped status event
	// in one transaction, so a receipt is never visible without its event.
	ApplyReceipt(ctx context.Context, receipt models.Receipt, event models.StatusEvent) error

	// FindByDecisionID returns nil without error when no instruction exists.
	FindByDecisionID(ctx context.Context, decisionID string) (*models.Instruction, error)
	FindAllForCase(ctx context.Context, caseID string) ([]models.Instruction, error)

	// LinesHeldByOtherInstruction returns the subset of candidate line ids
	// already owned by an instruction with a different decision id on the
	// same case.
	LinesHeldByOtherInstruction(ctx context.Context, caseID string, lineIDs []int64, excludeDecisionID string) ([]int64, error)

	// FindUnsent lists instructions persisted but never dispatched, for the
	// resweep.
	FindUnsent(ctx context.Context) ([]models.Instruction, error)

	FindBySettlementWindow(ctx context.Context, caseType models.CaseType, from, to time.Time) ([]models.Instruction, error)
	FindActiveAcceptedLines(ctx context.Context, caseType models.CaseType, referenceDate time.Time) ([]reconwire.CaseLines, error)
}
