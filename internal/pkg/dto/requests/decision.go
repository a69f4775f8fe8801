package requests

// Layouts for the date fields carried in request payloads.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05Z"
)

// PaymentDecision is the finalized benefit decision handed over by the
// case-processing collaborator, either on the decision-ready queue or through
// the synchronous endpoint.
type PaymentDecision struct {
	DecisionID     string           `json:"decision_id" validate:"required"`
	ProceedingID   string           `json:"proceeding_id" validate:"required"`
	CaseID         string           `json:"case_id" validate:"required"`
	CaseType       string           `json:"case_type" validate:"required,oneof=SURVIVOR_SUPPORT CHILD_PENSION"`
	RecipientID    string           `json:"recipient_id" validate:"required"`
	CaseWorkerID   string           `json:"case_worker_id" validate:"required"`
	CaseWorkerUnit string           `json:"case_worker_unit" validate:"required"`
	ApproverID     string           `json:"approver_id" validate:"required"`
	ApproverUnit   string           `json:"approver_unit" validate:"required"`
	RevisionReason string           `json:"revision_reason,omitempty"`
	Periods        []DecisionPeriod `json:"periods" validate:"required,min=1,dive"`
}

// DecisionPeriod is one payment (or termination) period of a decision. The
// line id is the externally meaningful sequence number the ledger will know
// the line by.
type DecisionPeriod struct {
	LineID   int64  `json:"line_id" validate:"required"`
	Type     string `json:"type" validate:"required,oneof=PAYMENT TERMINATION"`
	FromDate string `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToDate   string `json:"to_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Amount   *int64 `json:"amount,omitempty"`
}
