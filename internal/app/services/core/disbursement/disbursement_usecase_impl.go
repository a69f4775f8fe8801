package disbursement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"disbursement-service/internal/app/config"
	"disbursement-service/internal/app/contracts"
	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/constvars"
	"disbursement-service/internal/pkg/dto/requests"
	"disbursement-service/internal/pkg/exceptions"
	"disbursement-service/internal/pkg/ledgerwire"
	"disbursement-service/internal/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	caseLockPrefix        = "disbursement:lock:case"
	instructionLockPrefix = "disbursement:lock:instruction"

	forceAcceptDescription = "manually accepted by operations"
	forceAcceptMessageCode = "MANUAL"
)

type disbursementUsecase struct {
	InstructionRepository contracts.InstructionRepository
	DispatchService       contracts.DispatchService
	LockerService         contracts.LockerService
	InternalConfig        *config.InternalConfig
	Log                   *zap.Logger
}

var (
	disbursementUsecaseInstance contracts.DisbursementUsecase
	onceDisbursementUsecase     sync.Once
)

func NewDisbursementUsecase(
	instructionRepository contracts.InstructionRepository,
	dispatchService contracts.DispatchService,
	lockerService contracts.LockerService,
	internalConfig *config.InternalConfig,
	logger *zap.Logger,
) contracts.DisbursementUsecase {
	onceDisbursementUsecase.Do(func() {
		instance := &disbursementUsecase{
			InstructionRepository: instructionRepository,
			DispatchService:       dispatchService,
			LockerService:         lockerService,
			InternalConfig:        internalConfig,
			Log:                   logger,
		}
		disbursementUsecaseInstance = instance
	})
	return disbursementUsecaseInstance
}

// SubmitInstruction processes one approved decision end to end: idempotency
// check, chain construction, atomic persistence and dispatch. The per-case
// lock serializes concurrent submissions for the same case. Redeliveries of
// an already-processed decision come back as ALREADY_EXISTS without any new
// writes, unless the instruction is still in RECEIVED: then the redelivery
// completes the dispatch that failed on the earlier attempt.
func (uc *disbursementUsecase) SubmitInstruction(ctx context.Context, decision *requests.PaymentDecision) (*contracts.SubmitOutcome, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("disbursementUsecase.SubmitInstruction called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingDecisionIDKey, decision.DecisionID),
		zap.String(constvars.LoggingCaseIDKey, decision.CaseID),
	)

	if err := utils.ValidateStruct(decision); err != nil {
		return nil, err
	}

	lockKey := fmt.Sprintf("%s:%s", caseLockPrefix, decision.CaseID)
	lockTTL := time.Duration(uc.InternalConfig.Disbursement.CaseLockTTLInSeconds) * time.Second
	acquired, lockValue, err := uc.LockerService.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("case %s is locked by a concurrent submission", decision.CaseID)
	}
	defer func() {
		if unlockErr := uc.LockerService.Unlock(ctx, lockKey, lockValue); unlockErr != nil {
			uc.Log.Error("disbursementUsecase.SubmitInstruction error releasing case lock",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingCaseIDKey, decision.CaseID),
				zap.Error(unlockErr),
			)
		}
	}()

	existing, err := uc.InstructionRepository.FindByDecisionID(ctx, decision.DecisionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status() == models.StatusReceived {
			return uc.completePendingDispatch(ctx, requestID, existing)
		}
		uc.Log.Info("disbursementUsecase.SubmitInstruction decision already processed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingDecisionIDKey, decision.DecisionID),
			zap.String(constvars.LoggingInstructionIDKey, existing.ID),
		)
		return &contracts.SubmitOutcome{Kind: contracts.SubmitAlreadyExists, Instruction: existing}, nil
	}

	priorInstructions, err := uc.InstructionRepository.FindAllForCase(ctx, decision.CaseID)
	if err != nil {
		return nil, err
	}

	if models.LatestBooked(priorInstructions) == nil && isSoleTermination(decision) {
		uc.Log.Warn("disbursementUsecase.SubmitInstruction termination without prior booked instruction",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingCaseIDKey, decision.CaseID),
		)
		return &contracts.SubmitOutcome{Kind: contracts.SubmitNoPriorInstruction}, nil
	}

	instruction, err := buildInstruction(decision, priorInstructions, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	conflicting, err := uc.InstructionRepository.LinesHeldByOtherInstruction(ctx, decision.CaseID, instruction.LineIDs(), decision.DecisionID)
	if err != nil {
		return nil, err
	}
	if len(conflicting) > 0 {
		uc.Log.Warn("disbursementUsecase.SubmitInstruction line ids held by another instruction",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingDecisionIDKey, decision.DecisionID),
			zap.Int64s(constvars.LoggingLineIDKey, conflicting),
		)
		return &contracts.SubmitOutcome{Kind: contracts.SubmitLineConflict, ConflictingLineIDs: conflicting}, nil
	}

	order, err := ledgerwire.BuildPaymentOrder(instruction)
	if err != nil {
		return nil, err
	}
	payload, err := ledgerwire.Marshal(order)
	if err != nil {
		return nil, err
	}
	instruction.WirePayload = &payload

	if err := uc.InstructionRepository.CreateInstruction(ctx, instruction); err != nil {
		return nil, err
	}

	if err := uc.DispatchService.PublishDisbursement(ctx, payload); err != nil {
		uc.Log.Error("disbursementUsecase.SubmitInstruction dispatch failed after persist",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingInstructionIDKey, instruction.ID),
			zap.Error(err),
		)
		return &contracts.SubmitOutcome{
			Kind:        contracts.SubmitDispatchFailed,
			Instruction: instruction,
			DispatchErr: err,
		}, nil
	}

	if err := uc.markSent(ctx, instruction); err != nil {
		return nil, err
	}

	uc.Log.Info("disbursementUsecase.SubmitInstruction created and dispatched",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingDecisionIDKey, decision.DecisionID),
		zap.String(constvars.LoggingInstructionIDKey, instruction.ID),
	)
	return &contracts.SubmitOutcome{Kind: contracts.SubmitCreated, Instruction: instruction}, nil
}

// IngestReceipt applies one returned payload from the ledger. Receipts for
// unknown decisions and receipts arriving after a terminal status are
// reported as outcomes, not errors, so the consumer can acknowledge them.
func (uc *disbursementUsecase) IngestReceipt(ctx context.Context, payload []byte) (*contracts.ReceiptOutcome, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	order, err := ledgerwire.Unmarshal(payload)
	if err != nil {
		return nil, err
	}
	severity, description, messageCode, ok := order.ReceiptFields()
	if !ok {
		return nil, exceptions.ErrWireUnmarshal(fmt.Errorf("returned payload for decision %s carries no result block", order.DecisionID))
	}

	instruction, err := uc.InstructionRepository.FindByDecisionID(ctx, order.DecisionID)
	if err != nil {
		return nil, err
	}
	if instruction == nil {
		uc.Log.Warn("disbursementUsecase.IngestReceipt receipt for unknown decision",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingDecisionIDKey, order.DecisionID),
		)
		return &contracts.ReceiptOutcome{Kind: contracts.ReceiptNotFound}, nil
	}

	receipt := models.Receipt{
		InstructionID: instruction.ID,
		RawPayload:    string(payload),
		Severity:      severity,
		Description:   description,
		MessageCode:   messageCode,
		CreatedAt:     time.Now().UTC(),
	}
	return uc.applyReceipt(ctx, instruction, receipt)
}

// ForceAccept synthesizes a success receipt for an instruction the ledger
// booked but never acknowledged. Manual recovery only.
func (uc *disbursementUsecase) ForceAccept(ctx context.Context, decisionID string) (*contracts.ReceiptOutcome, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("disbursementUsecase.ForceAccept called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingDecisionIDKey, decisionID),
	)

	instruction, err := uc.InstructionRepository.FindByDecisionID(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if instruction == nil {
		return nil, exceptions.ErrInstructionNotFound(fmt.Errorf("no instruction for decision %s", decisionID))
	}

	receipt := models.Receipt{
		InstructionID: instruction.ID,
		Severity:      models.SeverityOK,
		Description:   forceAcceptDescription,
		MessageCode:   forceAcceptMessageCode,
		CreatedAt:     time.Now().UTC(),
	}
	return uc.applyReceipt(ctx, instruction, receipt)
}

// applyReceipt attaches the receipt and appends the mapped status event under
// the per-instruction lock. A terminal instruction is never changed: the
// receipt is reported as out-of-sequence and nothing is written.
func (uc *disbursementUsecase) applyReceipt(ctx context.Context, instruction *models.Instruction, receipt models.Receipt) (*contracts.ReceiptOutcome, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	lockKey := fmt.Sprintf("%s:%s", instructionLockPrefix, instruction.ID)
	lockTTL := time.Duration(uc.InternalConfig.Disbursement.InstructionLockTTLInSeconds) * time.Second
	acquired, lockValue, err := uc.LockerService.TryLock(ctx, lockKey, lockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("instruction %s is locked by a concurrent receipt", instruction.ID)
	}
	defer func() {
		if unlockErr := uc.LockerService.Unlock(ctx, lockKey, lockValue); unlockErr != nil {
			uc.Log.Error("disbursementUsecase.applyReceipt error releasing instruction lock",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingInstructionIDKey, instruction.ID),
				zap.Error(unlockErr),
			)
		}
	}()

	currentStatus := instruction.Status()
	if currentStatus.IsTerminal() {
		uc.Log.Warn("disbursementUsecase.applyReceipt receipt after terminal status ignored",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingInstructionIDKey, instruction.ID),
			zap.String(constvars.LoggingStatusKey, string(currentStatus)),
			zap.String(constvars.LoggingSeverityKey, receipt.Severity),
		)
		return &contracts.ReceiptOutcome{
			Kind:          contracts.ReceiptInvalidSequence,
			Instruction:   instruction,
			CurrentStatus: currentStatus,
		}, nil
	}

	mappedStatus := models.StatusForSeverity(receipt.Severity)
	event := models.StatusEvent{
		ID:            uuid.NewString(),
		InstructionID: instruction.ID,
		CreatedAt:     time.Now().UTC(),
		Status:        mappedStatus,
	}
	if err := uc.InstructionRepository.ApplyReceipt(ctx, receipt, event); err != nil {
		return nil, err
	}
	instruction.Receipt = &receipt
	instruction.Events = append(instruction.Events, event)

	uc.Log.Info("disbursementUsecase.applyReceipt receipt applied",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingInstructionIDKey, instruction.ID),
		zap.String(constvars.LoggingSeverityKey, receipt.Severity),
		zap.String(constvars.LoggingStatusKey, string(mappedStatus)),
	)
	return &contracts.ReceiptOutcome{
		Kind:         contracts.ReceiptApplied,
		Instruction:  instruction,
		MappedStatus: mappedStatus,
	}, nil
}

// ResweepUnsent re-dispatches instructions that were persisted but never made
// it onto the outbound queue. Publishing the same payload again is harmless:
// the ledger deduplicates on decision id.
func (uc *disbursementUsecase) ResweepUnsent(ctx context.Context) (int, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)

	unsent, err := uc.InstructionRepository.FindUnsent(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range unsent {
		instruction := &unsent[i]
		if instruction.WirePayload == nil {
			uc.Log.Error("disbursementUsecase.ResweepUnsent instruction has no stored payload",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingInstructionIDKey, instruction.ID),
			)
			continue
		}

		if err := uc.DispatchService.PublishDisbursement(ctx, *instruction.WirePayload); err != nil {
			uc.Log.Error("disbursementUsecase.ResweepUnsent dispatch failed",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingInstructionIDKey, instruction.ID),
				zap.Error(err),
			)
			continue
		}
		if err := uc.markSent(ctx, instruction); err != nil {
			return sent, err
		}
		sent++
	}

	if sent > 0 {
		uc.Log.Info("disbursementUsecase.ResweepUnsent re-dispatched instructions",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Int("sent", sent),
		)
	}
	return sent, nil
}

func (uc *disbursementUsecase) GetInstruction(ctx context.Context, decisionID string) (*models.Instruction, error) {
	instruction, err := uc.InstructionRepository.FindByDecisionID(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if instruction == nil {
		return nil, exceptions.ErrInstructionNotFound(fmt.Errorf("no instruction for decision %s", decisionID))
	}
	return instruction, nil
}

func (uc *disbursementUsecase) ListCaseInstructions(ctx context.Context, caseID string) ([]models.Instruction, error) {
	return uc.InstructionRepository.FindAllForCase(ctx, caseID)
}

// isSoleTermination reports whether the decision consists of nothing but one
// TERMINATION period. A termination mixed with payment periods is fine even
// on a fresh case: it chains onto the payment line built before it.
func isSoleTermination(decision *requests.PaymentDecision) bool {
	return len(decision.Periods) == 1 && models.LineType(decision.Periods[0].Type) == models.LineTypeTermination
}

// completePendingDispatch handles a decision redelivered while its instruction
// is still in RECEIVED: the earlier attempt persisted it but the dispatch
// never went out. The stored payload is published and SENT appended, the same
// recovery the resweep performs.
func (uc *disbursementUsecase) completePendingDispatch(ctx context.Context, requestID string, instruction *models.Instruction) (*contracts.SubmitOutcome, error) {
	if instruction.WirePayload == nil {
		uc.Log.Error("disbursementUsecase.completePendingDispatch instruction has no stored payload",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingInstructionIDKey, instruction.ID),
		)
		return &contracts.SubmitOutcome{Kind: contracts.SubmitAlreadyExists, Instruction: instruction}, nil
	}

	if err := uc.DispatchService.PublishDisbursement(ctx, *instruction.WirePayload); err != nil {
		uc.Log.Error("disbursementUsecase.completePendingDispatch dispatch failed",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingInstructionIDKey, instruction.ID),
			zap.Error(err),
		)
		return &contracts.SubmitOutcome{
			Kind:        contracts.SubmitDispatchFailed,
			Instruction: instruction,
			DispatchErr: err,
		}, nil
	}

	if err := uc.markSent(ctx, instruction); err != nil {
		return nil, err
	}

	uc.Log.Info("disbursementUsecase.completePendingDispatch redelivery completed pending dispatch",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingInstructionIDKey, instruction.ID),
	)
	return &contracts.SubmitOutcome{Kind: contracts.SubmitCreated, Instruction: instruction}, nil
}

func (uc *disbursementUsecase) markSent(ctx context.Context, instruction *models.Instruction) error {
	event := models.StatusEvent{
		ID:            uuid.NewString(),
		InstructionID: instruction.ID,
		CreatedAt:     time.Now().UTC(),
		Status:        models.StatusSent,
	}
	if err := uc.InstructionRepository.AppendEvent(ctx, event); err != nil {
		return err
	}
	instruction.Events = append(instruction.Events, event)
	return nil
}
