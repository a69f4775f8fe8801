package disbursement

import (
	"context"
	"database/sql"
	"time"

	"disbursement-service/internal/app/contracts"
	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/exceptions"
	"disbursement-service/internal/pkg/queries"
	"disbursement-service/internal/pkg/reconwire"

	"github.com/lib/pq"
)

type instructionPostgresRepository struct {
	DB *sql.DB
}

func NewInstructionPostgresRepository(db *sql.DB) contracts.InstructionRepository {
	return &instructionPostgresRepository{
		DB: db,
	}
}

// CreateInstruction persists the instruction, its lines and its initial
// events in one serializable transaction. Two concurrent submissions for the
// same case cannot both commit overlapping line ids: the unique constraint on
// (case_id, line_id) rejects the loser.
func (repo *instructionPostgresRepository) CreateInstruction(ctx context.Context, instruction *models.Instruction) error {
	tx, err := repo.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return exceptions.ErrPostgresDBBeginTx(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, queries.InsertInstruction,
		instruction.ID,
		instruction.CaseID,
		string(instruction.CaseType),
		instruction.ProceedingID,
		instruction.DecisionID,
		instruction.SettlementKey,
		instruction.RecipientID,
		instruction.CaseWorkerID,
		instruction.CaseWorkerUnit,
		instruction.ApproverID,
		instruction.ApproverUnit,
		[]byte(instruction.DecisionSnapshot),
		instruction.WirePayload,
	)
	if err != nil {
		return exceptions.ErrPostgresDBInsertData(err)
	}

	for _, line := range instruction.Lines {
		var predecessorLineID *int64
		var predecessorCaseID *string
		if line.Predecessor != nil {
			predecessorLineID = &line.Predecessor.LineID
			predecessorCaseID = &line.Predecessor.CaseID
		}
		_, err = tx.ExecContext(ctx, queries.InsertLine,
			instruction.ID,
			line.ID,
			string(line.Type),
			predecessorLineID,
			predecessorCaseID,
			line.CaseID,
			line.Period.From,
			line.Period.To,
			line.Amount,
			line.ClassificationCode,
			string(line.RunPlan),
		)
		if err != nil {
			return exceptions.ErrPostgresDBInsertData(err)
		}
	}

	for _, event := range instruction.Events {
		_, err = tx.ExecContext(ctx, queries.InsertStatusEvent,
			event.ID,
			instruction.ID,
			string(event.Status),
		)
		if err != nil {
			return exceptions.ErrPostgresDBInsertData(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return exceptions.ErrPostgresDBCommitTx(err)
	}
	return nil
}

func (repo *instructionPostgresRepository) AppendEvent(ctx context.Context, event models.StatusEvent) error {
	_, err := repo.DB.ExecContext(ctx, queries.InsertStatusEvent,
		event.ID,
		event.InstructionID,
		string(event.Status),
	)
	if err != nil {
		return exceptions.ErrPostgresDBInsertData(err)
	}

	_, err = repo.DB.ExecContext(ctx, queries.TouchInstruction, event.InstructionID)
	if err != nil {
		return exceptions.ErrPostgresDBUpdateData(err)
	}
	return nil
}

// ApplyReceipt writes the receipt and its mapped status event in one
// transaction. A crash between the two can never leave a receipt persisted
// with the status still SENT.
func (repo *instructionPostgresRepository) ApplyReceipt(ctx context.Context, receipt models.Receipt, event models.StatusEvent) error {
	tx, err := repo.DB.BeginTx(ctx, nil)
	if err != nil {
		return exceptions.ErrPostgresDBBeginTx(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, queries.UpsertReceipt,
		receipt.InstructionID,
		receipt.RawPayload,
		receipt.Severity,
		receipt.Description,
		receipt.MessageCode,
	)
	if err != nil {
		return exceptions.ErrPostgresDBInsertData(err)
	}

	_, err = tx.ExecContext(ctx, queries.InsertStatusEvent,
		event.ID,
		event.InstructionID,
		string(event.Status),
	)
	if err != nil {
		return exceptions.ErrPostgresDBInsertData(err)
	}

	_, err = tx.ExecContext(ctx, queries.TouchInstruction, receipt.InstructionID)
	if err != nil {
		return exceptions.ErrPostgresDBUpdateData(err)
	}

	if err := tx.Commit(); err != nil {
		return exceptions.ErrPostgresDBCommitTx(err)
	}
	return nil
}

func (repo *instructionPostgresRepository) FindByDecisionID(ctx context.Context, decisionID string) (*models.Instruction, error) {
	query := queries.GetInstructionByDecisionID
	instruction, err := repo.scanInstruction(repo.DB.QueryRowContext(ctx, query, decisionID))
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, exceptions.ErrPostgresDBFindData(err)
	}
	if err := repo.hydrate(ctx, instruction); err != nil {
		return nil, err
	}
	return instruction, nil
}

func (repo *instructionPostgresRepository) FindAllForCase(ctx context.Context, caseID string) ([]models.Instruction, error) {
	return repo.findInstructions(ctx, queries.GetInstructionsByCaseID, caseID)
}

func (repo *instructionPostgresRepository) LinesHeldByOtherInstruction(ctx context.Context, caseID string, lineIDs []int64, excludeDecisionID string) ([]int64, error) {
	rows, err := repo.DB.QueryContext(ctx, queries.GetConflictingLineIDs, caseID, pq.Array(lineIDs), excludeDecisionID)
	if err != nil {
		return nil, exceptions.ErrPostgresDBFindData(err)
	}
	defer rows.Close()

	var conflicting []int64
	for rows.Next() {
		var lineID int64
		if err := rows.Scan(&lineID); err != nil {
			return nil, exceptions.ErrPostgresDBFindData(err)
		}
		conflicting = append(conflicting, lineID)
	}
	if err := rows.Err(); err != nil {
		return nil, exceptions.ErrPostgresDBFindData(err)
	}
	return conflicting, nil
}

func (repo *instructionPostgresRepository) FindUnsent(ctx context.Context) ([]models.Instruction, error) {
	return repo.findInstructions(ctx, queries.GetUnsentInstructions)
}

func (repo *instructionPostgresRepository) FindBySettlementWindow(ctx context.Context, caseType models.CaseType, from, to time.Time) ([]models.Instruction, error) {
	return repo.findInstructions(ctx, queries.GetInstructionsBySettlementWindow, string(caseType), from, to)
}

// FindActiveAcceptedLines loads every instruction of the case type and
// reduces each case to the lines the ledger currently holds as booked and
// active on the reference date.
func (repo *instructionPostgresRepository) FindActiveAcceptedLines(ctx context.Context, caseType models.CaseType, referenceDate time.Time) ([]reconwire.CaseLines, error) {
	instructions, err := repo.findInstructions(ctx, queries.GetInstructionsByCaseType, string(caseType))
	if err != nil {
		return nil, err
	}

	byCase := make(map[string][]models.Instruction)
	caseOrder := make([]string, 0)
	for _, instruction := range instructions {
		if _, seen := byCase[instruction.CaseID]; !seen {
			caseOrder = append(caseOrder, instruction.CaseID)
		}
		byCase[instruction.CaseID] = append(byCase[instruction.CaseID], instruction)
	}

	var cases []reconwire.CaseLines
	for _, caseID := range caseOrder {
		caseInstructions := byCase[caseID]
		active := models.ActiveBookedLines(caseInstructions, referenceDate)
		if len(active) == 0 {
			continue
		}
		cases = append(cases, reconwire.CaseLines{
			CaseID:      caseID,
			RecipientID: caseInstructions[len(caseInstructions)-1].RecipientID,
			Lines:       active,
		})
	}
	return cases, nil
}

func (repo *instructionPostgresRepository) findInstructions(ctx context.Context, query string, args ...interface{}) ([]models.Instruction, error) {
	rows, err := repo.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, exceptions.ErrPostgresDBFindData(err)
	}
	defer rows.Close()

	var instructions []models.Instruction
	for rows.Next() {
		instruction, err := repo.scanInstruction(rows)
		if err != nil {
			return nil, exceptions.ErrPostgresDBFindData(err)
		}
		instructions = append(instructions, *instruction)
	}
	if err := rows.Err(); err != nil {
		return nil, exceptions.ErrPostgresDBFindData(err)
	}

	for i := range instructions {
		if err := repo.hydrate(ctx, &instructions[i]); err != nil {
			return nil, err
		}
	}
	return instructions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanInstruction reads one instruction header row. The raw scan error is
// returned unwrapped so callers can distinguish sql.ErrNoRows.
func (repo *instructionPostgresRepository) scanInstruction(scanner rowScanner) (*models.Instruction, error) {
	var instruction models.Instruction
	var caseType, snapshot []byte
	err := scanner.Scan(
		&instruction.ID,
		&instruction.CaseID,
		&caseType,
		&instruction.ProceedingID,
		&instruction.DecisionID,
		&instruction.SettlementKey,
		&instruction.RecipientID,
		&instruction.CaseWorkerID,
		&instruction.CaseWorkerUnit,
		&instruction.ApproverID,
		&instruction.ApproverUnit,
		&snapshot,
		&instruction.WirePayload,
		&instruction.CreatedAt,
		&instruction.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	instruction.CaseType = models.CaseType(caseType)
	instruction.DecisionSnapshot = snapshot
	return &instruction, nil
}

// hydrate loads the lines, events and receipt that belong to an already
// scanned instruction header.
func (repo *instructionPostgresRepository) hydrate(ctx context.Context, instruction *models.Instruction) error {
	lines, err := repo.loadLines(ctx, instruction.ID)
	if err != nil {
		return err
	}
	instruction.Lines = lines

	events, err := repo.loadEvents(ctx, instruction.ID)
	if err != nil {
		return err
	}
	instruction.Events = events

	receipt, err := repo.loadReceipt(ctx, instruction.ID)
	if err != nil {
		return err
	}
	instruction.Receipt = receipt
	return nil
}

func (repo *instructionPostgresRepository) loadLines(ctx context.Context, instructionID string) ([]models.Line, error) {
	rows, err := repo.DB.QueryContext(ctx, queries.GetLinesByInstructionID, instructionID)
	if err != nil {
		return nil, exceptions.ErrPostgresDBFindData(err)
	}
	defer rows.Close()

	var lines []models.Line
	for rows.Next() {
		var line models.Line
		var lineType, runPlan string
		var predecessorLineID *int64
		var predecessorCaseID *string
		if err := rows.Scan(
			&line.InstructionID,
			&line.ID,
			&lineType,
			&predecessorLineID,
			&predecessorCaseID,
			&line.CaseID,
			&line.Period.From,
			&line.Period.To,
			&line.Amount,
			&line.ClassificationCode,
			&runPlan,
			&line.CreatedAt,
		); err != nil {
			return nil, exceptions.ErrPostgresDBFindData(err)
		}
		line.Type = models.LineType(lineType)
		line.RunPlan = models.RunPlan(runPlan)
		if predecessorLineID != nil && predecessorCaseID != nil {
			line.Predecessor = &models.LineRef{
				LineID: *predecessorLineID,
				CaseID: *predecessorCaseID,
			}
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, exceptions.ErrPostgresDBFindData(err)
	}
	return lines, nil
}

func (repo *instructionPostgresRepository) loadEvents(ctx context.Context, instructionID string) ([]models.StatusEvent, error) {
	rows, err := repo.DB.QueryContext(ctx, queries.GetEventsByInstructionID, instructionID)
	if err != nil {
		return nil, exceptions.ErrPostgresDBFindData(err)
	}
	defer rows.Close()

	var events []models.StatusEvent
	for rows.Next() {
		var event models.StatusEvent
		var status string
		if err := rows.Scan(
			&event.ID,
			&event.InstructionID,
			&status,
			&event.CreatedAt,
		); err != nil {
			return nil, exceptions.ErrPostgresDBFindData(err)
		}
		event.Status = models.InstructionStatus(status)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, exceptions.ErrPostgresDBFindData(err)
	}
	return events, nil
}

func (repo *instructionPostgresRepository) loadReceipt(ctx context.Context, instructionID string) (*models.Receipt, error) {
	var receipt models.Receipt
	err := repo.DB.QueryRowContext(ctx, queries.GetReceiptByInstructionID, instructionID).Scan(
		&receipt.InstructionID,
		&receipt.RawPayload,
		&receipt.Severity,
		&receipt.Description,
		&receipt.MessageCode,
		&receipt.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, exceptions.ErrPostgresDBFindData(err)
	}
	return &receipt, nil
}
