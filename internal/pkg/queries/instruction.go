package queries

const (
	InsertInstruction = `
		INSERT INTO payment_instructions (
			id,
			case_id,
			case_type,
			proceeding_id,
			decision_id,
			settlement_key,
			recipient_id,
			case_worker_id,
			case_worker_unit,
			approver_id,
			approver_unit,
			decision_snapshot,
			wire_payload,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
	`

	InsertLine = `
		INSERT INTO payment_lines (
			instruction_id,
			line_id,
			line_type,
			predecessor_line_id,
			predecessor_case_id,
			case_id,
			period_from,
			period_to,
			amount,
			classification_code,
			run_plan,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`

	InsertStatusEvent = `
		INSERT INTO status_events (
			id,
			instruction_id,
			status,
			created_at
		) VALUES ($1, $2, $3, NOW())
	`

	UpsertReceipt = `
		INSERT INTO receipts (
			instruction_id,
			raw_payload,
			severity,
			description,
			message_code,
			created_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (instruction_id) DO UPDATE SET
			raw_payload = EXCLUDED.raw_payload,
			severity = EXCLUDED.severity,
			description = EXCLUDED.description,
			message_code = EXCLUDED.message_code,
			created_at = NOW()
	`

	TouchInstruction = `
		UPDATE payment_instructions
		SET updated_at = NOW()
		WHERE id = $1
	`

	GetInstructionByDecisionID = `
		SELECT
			id,
			case_id,
			case_type,
			proceeding_id,
			decision_id,
			settlement_key,
			recipient_id,
			case_worker_id,
			case_worker_unit,
			approver_id,
			approver_unit,
			decision_snapshot,
			wire_payload,
			created_at,
			updated_at
		FROM payment_instructions
		WHERE decision_id = $1
	`

	GetInstructionsByCaseID = `
		SELECT
			id,
			case_id,
			case_type,
			proceeding_id,
			decision_id,
			settlement_key,
			recipient_id,
			case_worker_id,
			case_worker_unit,
			approver_id,
			approver_unit,
			decision_snapshot,
			wire_payload,
			created_at,
			updated_at
		FROM payment_instructions
		WHERE case_id = $1
		ORDER BY created_at
	`

	GetInstructionsBySettlementWindow = `
		SELECT
			id,
			case_id,
			case_type,
			proceeding_id,
			decision_id,
			settlement_key,
			recipient_id,
			case_worker_id,
			case_worker_unit,
			approver_id,
			approver_unit,
			decision_snapshot,
			wire_payload,
			created_at,
			updated_at
		FROM payment_instructions
		WHERE case_type = $1
			AND settlement_key >= $2
			AND settlement_key < $3
		ORDER BY settlement_key, created_at
	`

	GetInstructionsByCaseType = `
		SELECT
			id,
			case_id,
			case_type,
			proceeding_id,
			decision_id,
			settlement_key,
			recipient_id,
			case_worker_id,
			case_worker_unit,
			approver_id,
			approver_unit,
			decision_snapshot,
			wire_payload,
			created_at,
			updated_at
		FROM payment_instructions
		WHERE case_type = $1
		ORDER BY case_id, created_at
	`

	GetUnsentInstructions = `
		SELECT
			id,
			case_id,
			case_type,
			proceeding_id,
			decision_id,
			settlement_key,
			recipient_id,
			case_worker_id,
			case_worker_unit,
			approver_id,
			approver_unit,
			decision_snapshot,
			wire_payload,
			created_at,
			updated_at
		FROM payment_instructions pi
		WHERE NOT EXISTS (
			SELECT 1 FROM status_events se
			WHERE se.instruction_id = pi.id
				AND se.status <> 'RECEIVED'
		)
		ORDER BY created_at
	`

	GetLinesByInstructionID = `
		SELECT
			instruction_id,
			line_id,
			line_type,
			predecessor_line_id,
			predecessor_case_id,
			case_id,
			period_from,
			period_to,
			amount,
			classification_code,
			run_plan,
			created_at
		FROM payment_lines
		WHERE instruction_id = $1
		ORDER BY period_from, line_id
	`

	GetEventsByInstructionID = `
		SELECT
			id,
			instruction_id,
			status,
			created_at
		FROM status_events
		WHERE instruction_id = $1
		ORDER BY created_at, id
	`

	GetReceiptByInstructionID = `
		SELECT
			instruction_id,
			raw_payload,
			severity,
			description,
			message_code,
			created_at
		FROM receipts
		WHERE instruction_id = $1
	`

	GetConflictingLineIDs = `
		SELECT pl.line_id
		FROM payment_lines pl
		JOIN payment_instructions pi ON pi.id = pl.instruction_id
		WHERE pl.case_id = $1
			AND pl.line_id = ANY($2)
			AND pi.decision_id <> $3
		ORDER BY pl.line_id
	`
)
