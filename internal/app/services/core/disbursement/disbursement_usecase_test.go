package disbursement

import (
	"context"
	"errors"
	"testing"
	"time"

	"disbursement-service/internal/app/config"
	"disbursement-service/internal/app/contracts"
	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/dto/requests"
	"disbursement-service/internal/pkg/ledgerwire"
	"disbursement-service/internal/pkg/reconwire"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeInstructionRepository struct {
	byDecisionID map[string]*models.Instruction
	byCaseID     map[string][]models.Instruction
	conflicting  []int64
	unsent       []models.Instruction

	createdInstructions []*models.Instruction
	appendedEvents      []models.StatusEvent
	attachedReceipts    []models.Receipt
}

func newFakeInstructionRepository() *fakeInstructionRepository {
	return &fakeInstructionRepository{
		byDecisionID: make(map[string]*models.Instruction),
		byCaseID:     make(map[string][]models.Instruction),
	}
}

func (f *fakeInstructionRepository) CreateInstruction(_ context.Context, instruction *models.Instruction) error {
	f.createdInstructions = append(f.createdInstructions, instruction)
	f.byDecisionID[instruction.DecisionID] = instruction
	f.byCaseID[instruction.CaseID] = append(f.byCaseID[instruction.CaseID], *instruction)
	return nil
}

func (f *fakeInstructionRepository) AppendEvent(_ context.Context, event models.StatusEvent) error {
	f.appendedEvents = append(f.appendedEvents, event)
	return nil
}

func (f *fakeInstructionRepository) ApplyReceipt(_ context.Context, receipt models.Receipt, event models.StatusEvent) error {
	f.attachedReceipts = append(f.attachedReceipts, receipt)
	f.appendedEvents = append(f.appendedEvents, event)
	return nil
}

func (f *fakeInstructionRepository) FindByDecisionID(_ context.Context, decisionID string) (*models.Instruction, error) {
	return f.byDecisionID[decisionID], nil
}

func (f *fakeInstructionRepository) FindAllForCase(_ context.Context, caseID string) ([]models.Instruction, error) {
	return f.byCaseID[caseID], nil
}

func (f *fakeInstructionRepository) LinesHeldByOtherInstruction(_ context.Context, _ string, _ []int64, _ string) ([]int64, error) {
	return f.conflicting, nil
}

func (f *fakeInstructionRepository) FindUnsent(_ context.Context) ([]models.Instruction, error) {
	return f.unsent, nil
}

func (f *fakeInstructionRepository) FindBySettlementWindow(_ context.Context, _ models.CaseType, _, _ time.Time) ([]models.Instruction, error) {
	return nil, nil
}

func (f *fakeInstructionRepository) FindActiveAcceptedLines(_ context.Context, _ models.CaseType, _ time.Time) ([]reconwire.CaseLines, error) {
	return nil, nil
}

type fakeDispatchService struct {
	published  []string
	publishErr error
}

func (f *fakeDispatchService) PublishDisbursement(_ context.Context, payload string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeDispatchService) PublishReconciliation(_ context.Context, payload string) error {
	f.published = append(f.published, payload)
	return nil
}

type fakeLockerService struct {
	denied   bool
	locked   []string
	unlocked []string
}

func (f *fakeLockerService) TryLock(_ context.Context, key string, _ time.Duration) (bool, string, error) {
	if f.denied {
		return false, "", nil
	}
	f.locked = append(f.locked, key)
	return true, "lock-value", nil
}

func (f *fakeLockerService) Unlock(_ context.Context, key, _ string) error {
	f.unlocked = append(f.unlocked, key)
	return nil
}

func (f *fakeLockerService) Refresh(_ context.Context, _, _ string, _ time.Duration) error {
	return nil
}

func newTestUsecase(repo *fakeInstructionRepository, dispatch *fakeDispatchService, locker *fakeLockerService) *disbursementUsecase {
	return &disbursementUsecase{
		InstructionRepository: repo,
		DispatchService:       dispatch,
		LockerService:         locker,
		InternalConfig: &config.InternalConfig{
			Disbursement: config.Disbursement{
				CaseLockTTLInSeconds:        30,
				InstructionLockTTLInSeconds: 30,
			},
		},
		Log: zap.NewNop(),
	}
}

func validDecision() *requests.PaymentDecision {
	return testDecision(
		requests.DecisionPeriod{LineID: 1, Type: "PAYMENT", FromDate: "2023-01-15", ToDate: "2023-06-20", Amount: amountOf(3000)},
		requests.DecisionPeriod{LineID: 2, Type: "PAYMENT", FromDate: "2023-07-15", Amount: amountOf(2500)},
	)
}

func TestSubmitInstructionCreatesAndDispatches(t *testing.T) {
	repo := newFakeInstructionRepository()
	dispatch := &fakeDispatchService{}
	locker := &fakeLockerService{}
	uc := newTestUsecase(repo, dispatch, locker)

	outcome, err := uc.SubmitInstruction(context.Background(), validDecision())
	assert.NoError(t, err)
	assert.Equal(t, contracts.SubmitCreated, outcome.Kind)

	assert.Len(t, repo.createdInstructions, 1)
	created := repo.createdInstructions[0]
	assert.Len(t, created.Lines, 2)
	assert.NotNil(t, created.WirePayload)

	// Dispatch carries the payload stored on the instruction.
	assert.Len(t, dispatch.published, 1)
	assert.Equal(t, *created.WirePayload, dispatch.published[0])
	assert.Contains(t, dispatch.published[0], "decision-1")

	// Created with RECEIVED, then SENT appended after broker confirm.
	assert.Len(t, created.Events, 2)
	assert.Equal(t, models.StatusReceived, created.Events[0].Status)
	assert.Len(t, repo.appendedEvents, 1)
	assert.Equal(t, models.StatusSent, repo.appendedEvents[0].Status)
	assert.Equal(t, models.StatusSent, created.Status())

	// Case lock released.
	assert.Equal(t, locker.locked, locker.unlocked)
}

func TestSubmitInstructionDuplicateDecision(t *testing.T) {
	repo := newFakeInstructionRepository()
	dispatch := &fakeDispatchService{}
	uc := newTestUsecase(repo, dispatch, &fakeLockerService{})

	first, err := uc.SubmitInstruction(context.Background(), validDecision())
	assert.NoError(t, err)
	assert.Equal(t, contracts.SubmitCreated, first.Kind)

	second, err := uc.SubmitInstruction(context.Background(), validDecision())
	assert.NoError(t, err)
	assert.Equal(t, contracts.SubmitAlreadyExists, second.Kind)
	assert.Equal(t, first.Instruction.ID, second.Instruction.ID)

	// Redelivery causes no new writes and no second dispatch.
	assert.Len(t, repo.createdInstructions, 1)
	assert.Len(t, dispatch.published, 1)
}

func TestSubmitInstructionLineConflict(t *testing.T) {
	repo := newFakeInstructionRepository()
	repo.conflicting = []int64{2}
	uc := newTestUsecase(repo, &fakeDispatchService{}, &fakeLockerService{})

	outcome, err := uc.SubmitInstruction(context.Background(), validDecision())
	assert.NoError(t, err)
	assert.Equal(t, contracts.SubmitLineConflict, outcome.Kind)
	assert.Equal(t, []int64{2}, outcome.ConflictingLineIDs)
	assert.Empty(t, repo.createdInstructions)
}

func TestSubmitInstructionTerminationWithoutPrior(t *testing.T) {
	repo := newFakeInstructionRepository()
	uc := newTestUsecase(repo, &fakeDispatchService{}, &fakeLockerService{})

	decision := testDecision(
		requests.DecisionPeriod{LineID: 1, Type: "TERMINATION", FromDate: "2023-05-01"},
	)
	outcome, err := uc.SubmitInstruction(context.Background(), decision)
	assert.NoError(t, err)
	assert.Equal(t, contracts.SubmitNoPriorInstruction, outcome.Kind)
	assert.Empty(t, repo.createdInstructions)
}

func TestSubmitInstructionLockedCase(t *testing.T) {
	uc := newTestUsecase(newFakeInstructionRepository(), &fakeDispatchService{}, &fakeLockerService{denied: true})

	_, err := uc.SubmitInstruction(context.Background(), validDecision())
	assert.Error(t, err)
}

func TestSubmitInstructionDispatchFailure(t *testing.T) {
	repo := newFakeInstructionRepository()
	dispatch := &fakeDispatchService{publishErr: errors.New("broker unavailable")}
	uc := newTestUsecase(repo, dispatch, &fakeLockerService{})

	outcome, err := uc.SubmitInstruction(context.Background(), validDecision())
	assert.NoError(t, err)
	assert.Equal(t, contracts.SubmitDispatchFailed, outcome.Kind)
	assert.Error(t, outcome.DispatchErr)

	// Persisted, but no SENT event: the resweep picks it up.
	assert.Len(t, repo.createdInstructions, 1)
	assert.Empty(t, repo.appendedEvents)
	assert.Equal(t, models.StatusReceived, repo.createdInstructions[0].Status())
}

func TestSubmitInstructionRedeliveryCompletesDispatch(t *testing.T) {
	repo := newFakeInstructionRepository()
	dispatch := &fakeDispatchService{publishErr: errors.New("broker unavailable")}
	uc := newTestUsecase(repo, dispatch, &fakeLockerService{})

	first, err := uc.SubmitInstruction(context.Background(), validDecision())
	assert.NoError(t, err)
	assert.Equal(t, contracts.SubmitDispatchFailed, first.Kind)
	assert.Equal(t, models.StatusReceived, first.Instruction.Status())

	// Broker back: the redelivered decision finishes the pending dispatch
	// instead of being dropped as a duplicate.
	dispatch.publishErr = nil
	second, err := uc.SubmitInstruction(context.Background(), validDecision())
	assert.NoError(t, err)
	assert.Equal(t, contracts.SubmitCreated, second.Kind)
	assert.Equal(t, first.Instruction.ID, second.Instruction.ID)

	assert.Len(t, repo.createdInstructions, 1)
	assert.Len(t, dispatch.published, 1)
	assert.Equal(t, *first.Instruction.WirePayload, dispatch.published[0])
	assert.Equal(t, models.StatusSent, second.Instruction.Status())

	// Once sent, further redeliveries are plain duplicates again.
	third, err := uc.SubmitInstruction(context.Background(), validDecision())
	assert.NoError(t, err)
	assert.Equal(t, contracts.SubmitAlreadyExists, third.Kind)
	assert.Len(t, dispatch.published, 1)
}

func TestSubmitInstructionPaymentWithTerminationOnFreshCase(t *testing.T) {
	repo := newFakeInstructionRepository()
	dispatch := &fakeDispatchService{}
	uc := newTestUsecase(repo, dispatch, &fakeLockerService{})

	decision := testDecision(
		requests.DecisionPeriod{LineID: 1, Type: "PAYMENT", FromDate: "2023-01-15", ToDate: "2023-06-20", Amount: amountOf(3000)},
		requests.DecisionPeriod{LineID: 2, Type: "TERMINATION", FromDate: "2023-07-01"},
	)
	outcome, err := uc.SubmitInstruction(context.Background(), decision)
	assert.NoError(t, err)
	assert.Equal(t, contracts.SubmitCreated, outcome.Kind)

	// The termination chains onto the payment line built right before it,
	// so no prior booked instruction is needed.
	assert.Len(t, repo.createdInstructions, 1)
	created := repo.createdInstructions[0]
	assert.Len(t, created.Lines, 2)
	assert.Nil(t, created.Lines[0].Predecessor)
	assert.Equal(t, models.LineTypeTermination, created.Lines[1].Type)
	assert.Equal(t, &models.LineRef{LineID: 1, CaseID: "case-1"}, created.Lines[1].Predecessor)
	assert.Len(t, dispatch.published, 1)
}

func TestResweepUnsent(t *testing.T) {
	repo := newFakeInstructionRepository()
	dispatch := &fakeDispatchService{publishErr: errors.New("broker unavailable")}
	uc := newTestUsecase(repo, dispatch, &fakeLockerService{})

	outcome, err := uc.SubmitInstruction(context.Background(), validDecision())
	assert.NoError(t, err)
	assert.Equal(t, contracts.SubmitDispatchFailed, outcome.Kind)

	repo.unsent = []models.Instruction{*repo.createdInstructions[0]}
	dispatch.publishErr = nil

	sent, err := uc.ResweepUnsent(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Len(t, dispatch.published, 1)
	assert.Len(t, repo.appendedEvents, 1)
	assert.Equal(t, models.StatusSent, repo.appendedEvents[0].Status)
}

func returnedPayload(t *testing.T, instruction *models.Instruction, severity string) []byte {
	t.Helper()
	order, err := ledgerwire.BuildPaymentOrder(instruction)
	assert.NoError(t, err)
	order.Result = &ledgerwire.OrderResult{
		Severity:    severity,
		Description: "processed",
		MessageCode: "B100011",
	}
	payload, err := ledgerwire.Marshal(order)
	assert.NoError(t, err)
	return []byte(payload)
}

func TestIngestReceipt(t *testing.T) {
	t.Run("rejection receipt moves a sent instruction to rejected", func(t *testing.T) {
		repo := newFakeInstructionRepository()
		uc := newTestUsecase(repo, &fakeDispatchService{}, &fakeLockerService{})

		outcome, err := uc.SubmitInstruction(context.Background(), validDecision())
		assert.NoError(t, err)
		instruction := outcome.Instruction

		receiptOutcome, err := uc.IngestReceipt(context.Background(), returnedPayload(t, instruction, models.SeverityRejected))
		assert.NoError(t, err)
		assert.Equal(t, contracts.ReceiptApplied, receiptOutcome.Kind)
		assert.Equal(t, models.StatusRejected, receiptOutcome.MappedStatus)

		assert.Len(t, repo.attachedReceipts, 1)
		assert.Equal(t, models.SeverityRejected, repo.attachedReceipts[0].Severity)
		assert.Equal(t, models.StatusRejected, instruction.Status())

		// Receipt and mapped event land in the same repository write.
		mapped := repo.appendedEvents[len(repo.appendedEvents)-1]
		assert.Equal(t, models.StatusRejected, mapped.Status)
		assert.Equal(t, instruction.ID, mapped.InstructionID)
	})

	t.Run("receipt for unknown decision is reported, not retried", func(t *testing.T) {
		repo := newFakeInstructionRepository()
		uc := newTestUsecase(repo, &fakeDispatchService{}, &fakeLockerService{})

		phantom := &models.Instruction{
			ID:         "phantom",
			CaseID:     "case-9",
			CaseType:   models.CaseTypeChildPension,
			DecisionID: "decision-9",
		}
		receiptOutcome, err := uc.IngestReceipt(context.Background(), returnedPayload(t, phantom, models.SeverityOK))
		assert.NoError(t, err)
		assert.Equal(t, contracts.ReceiptNotFound, receiptOutcome.Kind)
		assert.Empty(t, repo.attachedReceipts)
	})

	t.Run("receipt after terminal status writes nothing", func(t *testing.T) {
		repo := newFakeInstructionRepository()
		uc := newTestUsecase(repo, &fakeDispatchService{}, &fakeLockerService{})

		outcome, err := uc.SubmitInstruction(context.Background(), validDecision())
		assert.NoError(t, err)
		instruction := outcome.Instruction

		first, err := uc.IngestReceipt(context.Background(), returnedPayload(t, instruction, models.SeverityOK))
		assert.NoError(t, err)
		assert.Equal(t, contracts.ReceiptApplied, first.Kind)

		late, err := uc.IngestReceipt(context.Background(), returnedPayload(t, instruction, models.SeverityError))
		assert.NoError(t, err)
		assert.Equal(t, contracts.ReceiptInvalidSequence, late.Kind)
		assert.Equal(t, models.StatusAccepted, late.CurrentStatus)

		assert.Len(t, repo.attachedReceipts, 1)
		assert.Equal(t, models.StatusAccepted, instruction.Status())
	})

	t.Run("payload without result block is a wire error", func(t *testing.T) {
		repo := newFakeInstructionRepository()
		uc := newTestUsecase(repo, &fakeDispatchService{}, &fakeLockerService{})

		outcome, err := uc.SubmitInstruction(context.Background(), validDecision())
		assert.NoError(t, err)

		_, err = uc.IngestReceipt(context.Background(), []byte(*outcome.Instruction.WirePayload))
		assert.Error(t, err)
	})
}

func TestForceAccept(t *testing.T) {
	repo := newFakeInstructionRepository()
	uc := newTestUsecase(repo, &fakeDispatchService{}, &fakeLockerService{})

	outcome, err := uc.SubmitInstruction(context.Background(), validDecision())
	assert.NoError(t, err)

	forced, err := uc.ForceAccept(context.Background(), "decision-1")
	assert.NoError(t, err)
	assert.Equal(t, contracts.ReceiptApplied, forced.Kind)
	assert.Equal(t, models.StatusAccepted, forced.MappedStatus)
	assert.Equal(t, models.StatusAccepted, outcome.Instruction.Status())

	assert.Len(t, repo.attachedReceipts, 1)
	assert.Equal(t, models.SeverityOK, repo.attachedReceipts[0].Severity)

	_, err = uc.ForceAccept(context.Background(), "decision-unknown")
	assert.Error(t, err)
}
