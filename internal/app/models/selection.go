package models

import "time"

// LatestBooked returns the most recently created instruction whose derived
// status is ACCEPTED or ACCEPTED_WITH_WARNING, or nil when the case has none.
// Booked instructions are the only valid predecessors when chaining a new
// instruction onto a case.
func LatestBooked(instructions []Instruction) *Instruction {
	var latest *Instruction
	for i := range instructions {
		status := instructions[i].Status()
		if status != StatusAccepted && status != StatusAcceptedWithWarning {
			continue
		}
		if latest == nil || instructions[i].CreatedAt.After(latest.CreatedAt) {
			latest = &instructions[i]
		}
	}
	return latest
}

// ActiveBookedLines selects the payment lines of a case that the ledger holds
// as booked and that are active on the reference date. Lines are deltas: a
// line referenced as predecessor by a later booked line has been replaced and
// is no longer active, and termination lines themselves carry no money.
func ActiveBookedLines(instructions []Instruction, referenceDate time.Time) []Line {
	var booked []Line
	replaced := make(map[LineRef]bool)
	for i := range instructions {
		status := instructions[i].Status()
		if status != StatusAccepted && status != StatusAcceptedWithWarning {
			continue
		}
		for _, line := range instructions[i].Lines {
			booked = append(booked, line)
			if line.Predecessor != nil {
				replaced[*line.Predecessor] = true
			}
		}
	}

	active := make([]Line, 0, len(booked))
	for _, line := range booked {
		if line.Type != LineTypePayment {
			continue
		}
		if replaced[LineRef{LineID: line.ID, CaseID: line.CaseID}] {
			continue
		}
		if !line.Period.Covers(referenceDate) {
			continue
		}
		active = append(active, line)
	}
	return active
}
