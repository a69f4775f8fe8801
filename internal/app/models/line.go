package models

import (
	"time"

	"disbursement-service/internal/pkg/exceptions"
)

type CaseType string

const (
	CaseTypeSurvivorSupport CaseType = "SURVIVOR_SUPPORT"
	CaseTypeChildPension    CaseType = "CHILD_PENSION"
)

type LineType string

const (
	LineTypePayment     LineType = "PAYMENT"
	LineTypeTermination LineType = "TERMINATION"
)

type RunPlan string

const (
	// RunPlanImmediate disburses on the next immediate run.
	RunPlanImmediate RunPlan = "IMMEDIATE"
	// RunPlanScheduled waits for the next regular disbursement run.
	RunPlanScheduled RunPlan = "SCHEDULED"
)

// RevisionReasonRegulation marks decisions produced by the yearly regulation
// of benefit rates. Those are bulk revisions and ride the scheduled run.
const RevisionReasonRegulation = "REGULATION"

func RunPlanForRevisionReason(reason string) RunPlan {
	if reason == RevisionReasonRegulation {
		return RunPlanScheduled
	}
	return RunPlanImmediate
}

// ClassificationCode returns the ledger classification code fixed for the
// case type. Unknown case types fail loudly; defaulting a classification
// would book money on the wrong account.
func ClassificationCode(caseType CaseType) (string, error) {
	switch caseType {
	case CaseTypeSurvivorSupport:
		return "SUSTONAD", nil
	case CaseTypeChildPension:
		return "BARNEPE", nil
	default:
		return "", exceptions.ErrUnknownCaseType(string(caseType))
	}
}

// SchemeCode returns the ledger scheme area code for the case type, used in
// the wire payload header.
func SchemeCode(caseType CaseType) (string, error) {
	switch caseType {
	case CaseTypeSurvivorSupport:
		return "SUPSTON", nil
	case CaseTypeChildPension:
		return "BARNPEN", nil
	default:
		return "", exceptions.ErrUnknownCaseType(string(caseType))
	}
}

// Period is a month-aligned date range. To is nil for open-ended periods.
type Period struct {
	From time.Time
	To   *time.Time
}

// NormalizePeriod snaps the boundaries to calendar-month edges: From to the
// first day of its month, To to the last day of its month.
func NormalizePeriod(from time.Time, to *time.Time) Period {
	normalized := Period{
		From: time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC),
	}
	if to != nil {
		lastDay := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC).
			AddDate(0, 1, -1)
		normalized.To = &lastDay
	}
	return normalized
}

// Covers reports whether the period is active on the given date.
func (p Period) Covers(date time.Time) bool {
	if date.Before(p.From) {
		return false
	}
	if p.To == nil {
		return true
	}
	return !date.After(*p.To)
}

// LineRef points at a previously existing line by its externally meaningful
// identity.
type LineRef struct {
	LineID int64
	CaseID string
}

// Line is one period entry of a payment instruction. The ID is the external
// sequence number shared with the ledger, not a surrogate key. Predecessor,
// once set, is immutable.
type Line struct {
	ID                 int64
	Type               LineType
	InstructionID      string
	Predecessor        *LineRef
	CreatedAt          time.Time
	CaseID             string
	Period             Period
	Amount             *int64
	ClassificationCode string
	RunPlan            RunPlan
}
