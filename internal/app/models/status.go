package models

type InstructionStatus string

const (
	StatusFailed              InstructionStatus = "FAILED"
	StatusRejected            InstructionStatus = "REJECTED"
	StatusAcceptedWithWarning InstructionStatus = "ACCEPTED_WITH_WARNING"
	StatusAccepted            InstructionStatus = "ACCEPTED"
	StatusSent                InstructionStatus = "SENT"
	StatusReceived            InstructionStatus = "RECEIVED"
)

// statusRank orders statuses by dominance. The derived status of an
// instruction is the lowest rank ever recorded, not the most recent event:
// once a failure outcome is on file it sticks, regardless of what arrives
// afterwards or in which order the ledger delivers receipts.
// TODO: confirm with the ledger team that dominance ordering (rather than
// recency) is the intended semantics before ever changing this table.
var statusRank = map[InstructionStatus]int{
	StatusFailed:              0,
	StatusRejected:            1,
	StatusAcceptedWithWarning: 2,
	StatusAccepted:            3,
	StatusSent:                4,
	StatusReceived:            5,
}

func (s InstructionStatus) Rank() int {
	rank, ok := statusRank[s]
	if !ok {
		return statusRank[StatusFailed]
	}
	return rank
}

// IsTerminal reports whether a status ends the send/receipt exchange.
// Terminal instructions must never be overwritten by late receipts.
func (s InstructionStatus) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusAcceptedWithWarning, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// DeriveStatus computes the instruction status from its event log as the
// dominant (minimum rank) status among all events.
func DeriveStatus(events []StatusEvent) InstructionStatus {
	derived := StatusReceived
	for _, event := range events {
		if event.Status.Rank() < derived.Rank() {
			derived = event.Status
		}
	}
	return derived
}

// Receipt severity codes returned by the disbursement ledger.
const (
	SeverityOK       = "00"
	SeverityWarning  = "04"
	SeverityRejected = "08"
	SeverityError    = "12"
)

// StatusForSeverity maps a receipt severity code to the resulting status.
// Unknown codes are treated as failures so that nothing is silently accepted.
func StatusForSeverity(code string) InstructionStatus {
	switch code {
	case SeverityOK:
		return StatusAccepted
	case SeverityWarning:
		return StatusAcceptedWithWarning
	case SeverityRejected:
		return StatusRejected
	case SeverityError:
		return StatusFailed
	default:
		return StatusFailed
	}
}
