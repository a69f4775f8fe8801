package requests

// PeriodicReconciliationRequest triggers a windowed reconciliation run.
type PeriodicReconciliationRequest struct {
	CaseType   string `json:"case_type" validate:"required,oneof=SURVIVOR_SUPPORT CHILD_PENSION"`
	WindowFrom string `json:"window_from" validate:"required,datetime=2006-01-02T15:04:05Z"`
	WindowTo   string `json:"window_to" validate:"required,datetime=2006-01-02T15:04:05Z"`
	ChunkSize  int    `json:"chunk_size,omitempty"`
}

// ConsistencyReconciliationRequest triggers a full-snapshot run.
type ConsistencyReconciliationRequest struct {
	CaseType      string `json:"case_type" validate:"required,oneof=SURVIVOR_SUPPORT CHILD_PENSION"`
	ReferenceDate string `json:"reference_date" validate:"required,datetime=2006-01-02"`
}
