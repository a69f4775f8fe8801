package contracts

import (
	"context"
	"time"

	"disbursement-service/internal/app/models"
)

type PeriodicRunInput struct {
	CaseType   models.CaseType
	WindowFrom time.Time
	WindowTo   time.Time
	ChunkSize  int
}

type ConsistencyRunInput struct {
	CaseType      models.CaseType
	ReferenceDate time.Time
}

type ReconciliationRunResult struct {
	CorrelationID string
	FrameCount    int
	DetailCount   int
	ArchiveObject string
}

// ReconciliationUsecase runs the two read-only batch protocols. A run either
// emits its complete frame sequence or nothing; reruns over the same snapshot
// are safe.
type ReconciliationUsecase interface {
	RunPeriodic(ctx context.Context, input *PeriodicRunInput) (*ReconciliationRunResult, error)
	RunConsistency(ctx context.Context, input *ConsistencyRunInput) (*ReconciliationRunResult, error)
}
