package disbursement

import (
	"sort"
	"time"

	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/dto/requests"
	"disbursement-service/internal/pkg/exceptions"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// buildInstruction turns one approved decision into a new instruction chained
// onto the case history. The first line points at the last line of the most
// recently booked prior instruction (none for a brand new case); every later
// line points at the one before it in the same instruction. Periods are
// ordered by start date before chaining so the reference order is stable no
// matter how the decision listed them.
func buildInstruction(decision *requests.PaymentDecision, priorInstructions []models.Instruction, now time.Time) (*models.Instruction, error) {
	caseType := models.CaseType(decision.CaseType)
	classificationCode, err := models.ClassificationCode(caseType)
	if err != nil {
		return nil, err
	}

	runPlan := models.RunPlanForRevisionReason(decision.RevisionReason)

	periods := make([]requests.DecisionPeriod, len(decision.Periods))
	copy(periods, decision.Periods)
	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].FromDate < periods[j].FromDate
	})

	var predecessor *models.LineRef
	if latestBooked := models.LatestBooked(priorInstructions); latestBooked != nil {
		if lastLine := latestBooked.LastLine(); lastLine != nil {
			predecessor = &models.LineRef{
				LineID: lastLine.ID,
				CaseID: lastLine.CaseID,
			}
		}
	}

	snapshot, err := json.Marshal(decision)
	if err != nil {
		return nil, exceptions.ErrCannotMarshalJSON(err)
	}

	instruction := &models.Instruction{
		ID:               uuid.NewString(),
		CaseID:           decision.CaseID,
		CaseType:         caseType,
		ProceedingID:     decision.ProceedingID,
		DecisionID:       decision.DecisionID,
		CreatedAt:        now,
		UpdatedAt:        now,
		SettlementKey:    now,
		RecipientID:      decision.RecipientID,
		CaseWorkerID:     decision.CaseWorkerID,
		CaseWorkerUnit:   decision.CaseWorkerUnit,
		ApproverID:       decision.ApproverID,
		ApproverUnit:     decision.ApproverUnit,
		DecisionSnapshot: snapshot,
	}

	for _, period := range periods {
		lineType := models.LineType(period.Type)
		if lineType == models.LineTypeTermination && predecessor == nil {
			return nil, exceptions.ErrTerminationWithoutPrior(decision.CaseID)
		}

		fromDate, err := time.Parse(requests.DateLayout, period.FromDate)
		if err != nil {
			return nil, exceptions.ErrInputValidation(err)
		}
		var toDate *time.Time
		if period.ToDate != "" {
			parsed, err := time.Parse(requests.DateLayout, period.ToDate)
			if err != nil {
				return nil, exceptions.ErrInputValidation(err)
			}
			toDate = &parsed
		}

		line := models.Line{
			ID:                 period.LineID,
			Type:               lineType,
			InstructionID:      instruction.ID,
			Predecessor:        predecessor,
			CreatedAt:          now,
			CaseID:             decision.CaseID,
			Period:             models.NormalizePeriod(fromDate, toDate),
			Amount:             period.Amount,
			ClassificationCode: classificationCode,
			RunPlan:            runPlan,
		}
		instruction.Lines = append(instruction.Lines, line)

		predecessor = &models.LineRef{
			LineID: line.ID,
			CaseID: line.CaseID,
		}
	}

	instruction.Events = []models.StatusEvent{
		{
			ID:            uuid.NewString(),
			InstructionID: instruction.ID,
			CreatedAt:     now,
			Status:        models.StatusReceived,
		},
	}
	return instruction, nil
}
