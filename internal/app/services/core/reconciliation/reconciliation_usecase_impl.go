package reconciliation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"disbursement-service/internal/app/config"
	"disbursement-service/internal/app/contracts"
	"disbursement-service/internal/pkg/constvars"
	"disbursement-service/internal/pkg/exceptions"
	"disbursement-service/internal/pkg/reconwire"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type reconciliationUsecase struct {
	InstructionRepository contracts.InstructionRepository
	DispatchService       contracts.DispatchService
	ArchiveStorage        contracts.ArchiveStorage
	InternalConfig        *config.InternalConfig
	Log                   *zap.Logger
}

var (
	reconciliationUsecaseInstance contracts.ReconciliationUsecase
	onceReconciliationUsecase     sync.Once
)

func NewReconciliationUsecase(
	instructionRepository contracts.InstructionRepository,
	dispatchService contracts.DispatchService,
	archiveStorage contracts.ArchiveStorage,
	internalConfig *config.InternalConfig,
	logger *zap.Logger,
) contracts.ReconciliationUsecase {
	onceReconciliationUsecase.Do(func() {
		instance := &reconciliationUsecase{
			InstructionRepository: instructionRepository,
			DispatchService:       dispatchService,
			ArchiveStorage:        archiveStorage,
			InternalConfig:        internalConfig,
			Log:                   logger,
		}
		reconciliationUsecaseInstance = instance
	})
	return reconciliationUsecaseInstance
}

// RunPeriodic reconciles one settlement window. The whole frame sequence is
// built and serialized before the first publish, so a snapshot or aggregation
// problem never leaves a half-sent sequence on the queue.
func (uc *reconciliationUsecase) RunPeriodic(ctx context.Context, input *contracts.PeriodicRunInput) (*contracts.ReconciliationRunResult, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	chunkSize := input.ChunkSize
	if chunkSize <= 0 {
		chunkSize = uc.InternalConfig.Reconciliation.ChunkSize
	}

	instructions, err := uc.InstructionRepository.FindBySettlementWindow(ctx, input.CaseType, input.WindowFrom, input.WindowTo)
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	frames, err := reconwire.BuildPeriodicFrames(instructions, input.WindowFrom, input.WindowTo, correlationID, chunkSize)
	if err != nil {
		return nil, err
	}

	detailCount := 0
	payloads := make([]string, 0, len(frames))
	for i := range frames {
		detailCount += len(frames[i].Details)
		payload, err := frames[i].Marshal()
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}

	uc.Log.Info("reconciliationUsecase.RunPeriodic built frame sequence",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingCorrelationIDKey, correlationID),
		zap.String(constvars.LoggingCaseTypeKey, string(input.CaseType)),
		zap.Int(constvars.LoggingFrameCountKey, len(payloads)),
		zap.Int(constvars.LoggingDetailCountKey, detailCount),
	)

	objectName := fmt.Sprintf("reconciliation/periodic/%s/%s.xml", input.CaseType, correlationID)
	return uc.emit(ctx, correlationID, objectName, payloads, detailCount)
}

// RunConsistency emits the full snapshot of booked, active lines for one case
// type as of the reference date.
func (uc *reconciliationUsecase) RunConsistency(ctx context.Context, input *contracts.ConsistencyRunInput) (*contracts.ReconciliationRunResult, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	cases, err := uc.InstructionRepository.FindActiveAcceptedLines(ctx, input.CaseType, input.ReferenceDate)
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	frames, err := reconwire.BuildConsistencyFrames(cases, input.ReferenceDate, correlationID, uc.InternalConfig.Reconciliation.CasesPerFrame)
	if err != nil {
		return nil, err
	}

	detailCount := 0
	for _, caseLines := range cases {
		detailCount += len(caseLines.Lines)
	}

	payloads := make([]string, 0, len(frames))
	for i := range frames {
		payload, err := frames[i].Marshal()
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}

	uc.Log.Info("reconciliationUsecase.RunConsistency built frame sequence",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingCorrelationIDKey, correlationID),
		zap.String(constvars.LoggingCaseTypeKey, string(input.CaseType)),
		zap.Int(constvars.LoggingFrameCountKey, len(payloads)),
		zap.Int(constvars.LoggingDetailCountKey, detailCount),
	)

	objectName := fmt.Sprintf("reconciliation/consistency/%s/%s.xml", input.CaseType, correlationID)
	return uc.emit(ctx, correlationID, objectName, payloads, detailCount)
}

// emit publishes the already-serialized frames in sequence order and archives
// the run. A publish failure mid-sequence aborts the run; the receiver drops
// incomplete sequences by correlation id, and a rerun emits a fresh one.
func (uc *reconciliationUsecase) emit(ctx context.Context, correlationID, objectName string, payloads []string, detailCount int) (*contracts.ReconciliationRunResult, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	for i, payload := range payloads {
		if err := uc.DispatchService.PublishReconciliation(ctx, payload); err != nil {
			uc.Log.Error("reconciliationUsecase.emit publish failed mid-sequence",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingCorrelationIDKey, correlationID),
				zap.Int("frame_index", i),
				zap.Error(err),
			)
			return nil, exceptions.ErrReconciliationRun(err)
		}
	}

	if err := uc.ArchiveStorage.StoreReconciliationRun(ctx, objectName, []byte(strings.Join(payloads, "\n"))); err != nil {
		return nil, err
	}

	uc.Log.Info("reconciliationUsecase.emit run complete",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingCorrelationIDKey, correlationID),
		zap.Int(constvars.LoggingFrameCountKey, len(payloads)),
	)
	return &contracts.ReconciliationRunResult{
		CorrelationID: correlationID,
		FrameCount:    len(payloads),
		DetailCount:   detailCount,
		ArchiveObject: objectName,
	}, nil
}
