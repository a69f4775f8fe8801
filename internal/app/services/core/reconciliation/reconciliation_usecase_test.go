package reconciliation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"disbursement-service/internal/app/config"
	"disbursement-service/internal/app/contracts"
	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/reconwire"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeSnapshotRepository struct {
	windowInstructions []models.Instruction
	activeCases        []reconwire.CaseLines
}

func (f *fakeSnapshotRepository) CreateInstruction(_ context.Context, _ *models.Instruction) error {
	return nil
}

func (f *fakeSnapshotRepository) AppendEvent(_ context.Context, _ models.StatusEvent) error {
	return nil
}

func (f *fakeSnapshotRepository) ApplyReceipt(_ context.Context, _ models.Receipt, _ models.StatusEvent) error {
	return nil
}

func (f *fakeSnapshotRepository) FindByDecisionID(_ context.Context, _ string) (*models.Instruction, error) {
	return nil, nil
}

func (f *fakeSnapshotRepository) FindAllForCase(_ context.Context, _ string) ([]models.Instruction, error) {
	return nil, nil
}

func (f *fakeSnapshotRepository) LinesHeldByOtherInstruction(_ context.Context, _ string, _ []int64, _ string) ([]int64, error) {
	return nil, nil
}

func (f *fakeSnapshotRepository) FindUnsent(_ context.Context) ([]models.Instruction, error) {
	return nil, nil
}

func (f *fakeSnapshotRepository) FindBySettlementWindow(_ context.Context, _ models.CaseType, _, _ time.Time) ([]models.Instruction, error) {
	return f.windowInstructions, nil
}

func (f *fakeSnapshotRepository) FindActiveAcceptedLines(_ context.Context, _ models.CaseType, _ time.Time) ([]reconwire.CaseLines, error) {
	return f.activeCases, nil
}

type fakeFrameDispatch struct {
	published []string
	failAt    int
}

func (f *fakeFrameDispatch) PublishDisbursement(_ context.Context, payload string) error {
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeFrameDispatch) PublishReconciliation(_ context.Context, payload string) error {
	if f.failAt > 0 && len(f.published)+1 >= f.failAt {
		return errors.New("broker unavailable")
	}
	f.published = append(f.published, payload)
	return nil
}

type fakeArchive struct {
	objectName string
	content    []byte
}

func (f *fakeArchive) StoreReconciliationRun(_ context.Context, objectName string, content []byte) error {
	f.objectName = objectName
	f.content = content
	return nil
}

func newTestUsecase(repo *fakeSnapshotRepository, dispatch *fakeFrameDispatch, archive *fakeArchive) *reconciliationUsecase {
	return &reconciliationUsecase{
		InstructionRepository: repo,
		DispatchService:       dispatch,
		ArchiveStorage:        archive,
		InternalConfig: &config.InternalConfig{
			Reconciliation: config.Reconciliation{
				ChunkSize:     2,
				CasesPerFrame: 10,
			},
		},
		Log: zap.NewNop(),
	}
}

func windowInstruction(decisionID string, status models.InstructionStatus, amount int64) models.Instruction {
	return models.Instruction{
		ID:            "ins-" + decisionID,
		CaseID:        "case-" + decisionID,
		DecisionID:    decisionID,
		SettlementKey: time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC),
		Lines: []models.Line{
			{ID: 1, Type: models.LineTypePayment, Amount: &amount},
		},
		Events: []models.StatusEvent{
			{Status: models.StatusSent},
			{Status: status},
		},
	}
}

func TestRunPeriodic(t *testing.T) {
	windowFrom := time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)
	windowTo := time.Date(2023, 5, 11, 0, 0, 0, 0, time.UTC)

	t.Run("emits full sequence in order and archives the run", func(t *testing.T) {
		repo := &fakeSnapshotRepository{
			windowInstructions: []models.Instruction{
				windowInstruction("d1", models.StatusAccepted, 1000),
				windowInstruction("d2", models.StatusRejected, 2000),
				windowInstruction("d3", models.StatusSent, 3000),
				windowInstruction("d4", models.StatusFailed, 4000),
			},
		}
		dispatch := &fakeFrameDispatch{}
		archive := &fakeArchive{}
		uc := newTestUsecase(repo, dispatch, archive)

		result, err := uc.RunPeriodic(context.Background(), &contracts.PeriodicRunInput{
			CaseType:   models.CaseTypeSurvivorSupport,
			WindowFrom: windowFrom,
			WindowTo:   windowTo,
		})
		assert.NoError(t, err)

		// 3 detail-worthy instructions, chunk size 2: START + 2 DATA + END.
		assert.Equal(t, 4, result.FrameCount)
		assert.Equal(t, 3, result.DetailCount)
		assert.Len(t, dispatch.published, 4)
		assert.Contains(t, dispatch.published[0], "<type>START</type>")
		assert.Contains(t, dispatch.published[1], "<type>DATA</type>")
		assert.Contains(t, dispatch.published[3], "<type>END</type>")

		// Every frame carries the run correlation id.
		for _, payload := range dispatch.published {
			assert.Contains(t, payload, result.CorrelationID)
		}

		assert.Equal(t, result.ArchiveObject, archive.objectName)
		assert.Contains(t, archive.objectName, "reconciliation/periodic/SURVIVOR_SUPPORT/")
		assert.Equal(t, strings.Join(dispatch.published, "\n"), string(archive.content))
	})

	t.Run("empty window still emits the sentinel sequence", func(t *testing.T) {
		dispatch := &fakeFrameDispatch{}
		uc := newTestUsecase(&fakeSnapshotRepository{}, dispatch, &fakeArchive{})

		result, err := uc.RunPeriodic(context.Background(), &contracts.PeriodicRunInput{
			CaseType:   models.CaseTypeChildPension,
			WindowFrom: windowFrom,
			WindowTo:   windowTo,
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, result.FrameCount)
		assert.Equal(t, 0, result.DetailCount)
		assert.Contains(t, dispatch.published[0], "<keyFrom>0</keyFrom>")
	})

	t.Run("publish failure aborts the run without archiving", func(t *testing.T) {
		repo := &fakeSnapshotRepository{
			windowInstructions: []models.Instruction{
				windowInstruction("d1", models.StatusRejected, 1000),
			},
		}
		dispatch := &fakeFrameDispatch{failAt: 2}
		archive := &fakeArchive{}
		uc := newTestUsecase(repo, dispatch, archive)

		_, err := uc.RunPeriodic(context.Background(), &contracts.PeriodicRunInput{
			CaseType:   models.CaseTypeSurvivorSupport,
			WindowFrom: windowFrom,
			WindowTo:   windowTo,
		})
		assert.Error(t, err)
		assert.Empty(t, archive.objectName)
	})
}

func TestRunConsistency(t *testing.T) {
	referenceDate := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("snapshot frames carry cases and running total", func(t *testing.T) {
		amount := int64(3500)
		repo := &fakeSnapshotRepository{
			activeCases: []reconwire.CaseLines{
				{
					CaseID:      "case-1",
					RecipientID: "recipient-1",
					Lines: []models.Line{
						{ID: 1, Type: models.LineTypePayment, Amount: &amount, ClassificationCode: "SUSTONAD", RunPlan: models.RunPlanImmediate,
							Period: models.Period{From: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)}},
					},
				},
			},
		}
		dispatch := &fakeFrameDispatch{}
		archive := &fakeArchive{}
		uc := newTestUsecase(repo, dispatch, archive)

		result, err := uc.RunConsistency(context.Background(), &contracts.ConsistencyRunInput{
			CaseType:      models.CaseTypeSurvivorSupport,
			ReferenceDate: referenceDate,
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, result.FrameCount)
		assert.Equal(t, 1, result.DetailCount)
		assert.Contains(t, dispatch.published[1], "<caseId>case-1</caseId>")
		assert.Contains(t, dispatch.published[1], "<amount>3500</amount>")
		assert.Contains(t, archive.objectName, "reconciliation/consistency/SURVIVOR_SUPPORT/")
	})

	t.Run("empty snapshot emits sentinel sequence", func(t *testing.T) {
		dispatch := &fakeFrameDispatch{}
		uc := newTestUsecase(&fakeSnapshotRepository{}, dispatch, &fakeArchive{})

		result, err := uc.RunConsistency(context.Background(), &contracts.ConsistencyRunInput{
			CaseType:      models.CaseTypeChildPension,
			ReferenceDate: referenceDate,
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, result.FrameCount)
		assert.Equal(t, 0, result.DetailCount)
	})
}
