// Package ledgerwire translates payment instructions to and from the XML
// schema of the external disbursement ledger. Serialization is deterministic:
// the same instruction always produces a byte-identical payload.
package ledgerwire

import (
	"disbursement-service/internal/app/models"
	"disbursement-service/internal/pkg/exceptions"
	"encoding/xml"
	"fmt"
	"time"
)

const (
	DateFormat      = "2006-01-02"
	TimestampFormat = "2006-01-02T15:04:05Z"

	ChangeCodeNew    = "NEW"
	ChangeCodeChange = "CHANGE"
)

type PaymentOrder struct {
	XMLName       xml.Name     `xml:"paymentOrder"`
	ChangeCode    string       `xml:"changeCode"`
	SchemeCode    string       `xml:"schemeCode"`
	CaseID        string       `xml:"caseId"`
	DecisionID    string       `xml:"decisionId"`
	ProceedingID  string       `xml:"proceedingId"`
	RecipientID   string       `xml:"recipientId"`
	CaseWorker    Party        `xml:"caseWorker"`
	Approver      Party        `xml:"approver"`
	SettlementKey string       `xml:"settlementKey"`
	Lines         []OrderLine  `xml:"paymentLine"`
	Result        *OrderResult `xml:"result,omitempty"`
}

type Party struct {
	ID   string `xml:"id"`
	Unit string `xml:"unit"`
}

type OrderLine struct {
	LineID             int64     `xml:"lineId"`
	LineType           string    `xml:"lineType"`
	ClassificationCode string    `xml:"classificationCode"`
	VedtakFom          string    `xml:"vedtakFom"`
	VedtakTom          string    `xml:"vedtakTom,omitempty"`
	Amount             *int64    `xml:"amount,omitempty"`
	Terminated         bool      `xml:"terminated,omitempty"`
	RunPlan            string    `xml:"runPlan"`
	Predecessor        *OrderRef `xml:"predecessor,omitempty"`
}

type OrderRef struct {
	LineID int64  `xml:"lineId"`
	CaseID string `xml:"caseId"`
}

// OrderResult is the ledger's verdict block, present only on payloads the
// ledger sends back.
type OrderResult struct {
	Severity    string `xml:"severity"`
	Description string `xml:"description,omitempty"`
	MessageCode string `xml:"messageCode,omitempty"`
}

// BuildPaymentOrder maps an instruction and its lines onto the wire schema.
// The change code is NEW when the instruction opens a fresh chain at the
// ledger (no predecessor on its first line) and CHANGE otherwise.
func BuildPaymentOrder(instruction *models.Instruction) (*PaymentOrder, error) {
	schemeCode, err := models.SchemeCode(instruction.CaseType)
	if err != nil {
		return nil, err
	}

	order := &PaymentOrder{
		ChangeCode:    ChangeCodeChange,
		SchemeCode:    schemeCode,
		CaseID:        instruction.CaseID,
		DecisionID:    instruction.DecisionID,
		ProceedingID:  instruction.ProceedingID,
		RecipientID:   instruction.RecipientID,
		CaseWorker:    Party{ID: instruction.CaseWorkerID, Unit: instruction.CaseWorkerUnit},
		Approver:      Party{ID: instruction.ApproverID, Unit: instruction.ApproverUnit},
		SettlementKey: instruction.SettlementKey.UTC().Format(TimestampFormat),
	}

	if len(instruction.Lines) > 0 && instruction.Lines[0].Predecessor == nil {
		order.ChangeCode = ChangeCodeNew
	}

	for _, line := range instruction.Lines {
		orderLine := OrderLine{
			LineID:             line.ID,
			LineType:           string(line.Type),
			ClassificationCode: line.ClassificationCode,
			VedtakFom:          line.Period.From.Format(DateFormat),
			RunPlan:            string(line.RunPlan),
		}
		if line.Period.To != nil {
			orderLine.VedtakTom = line.Period.To.Format(DateFormat)
		}
		switch line.Type {
		case models.LineTypeTermination:
			orderLine.Terminated = true
		default:
			orderLine.Amount = line.Amount
		}
		if line.Predecessor != nil {
			orderLine.Predecessor = &OrderRef{
				LineID: line.Predecessor.LineID,
				CaseID: line.Predecessor.CaseID,
			}
		}
		order.Lines = append(order.Lines, orderLine)
	}

	return order, nil
}

// Marshal serializes an order. Struct field order fixes the element order, so
// the output is stable across runs.
func Marshal(order *PaymentOrder) (string, error) {
	data, err := xml.Marshal(order)
	if err != nil {
		return "", exceptions.ErrWireMarshal(err)
	}
	return xml.Header + string(data), nil
}

// Unmarshal parses a payload, including ones the ledger returns with
// non-success result blocks. Parsing succeeds independently of the business
// verdict; a missing decision id is a wire-format error because the payload
// can never be attributed to an instruction.
func Unmarshal(data []byte) (*PaymentOrder, error) {
	var order PaymentOrder
	if err := xml.Unmarshal(data, &order); err != nil {
		return nil, exceptions.ErrWireUnmarshal(err)
	}
	if order.DecisionID == "" {
		return nil, exceptions.ErrWireUnmarshal(fmt.Errorf("payload carries no decision id"))
	}
	return &order, nil
}

// ReceiptFields extracts the verdict of a returned payload. The boolean is
// false when the payload carries no result block at all.
func (o *PaymentOrder) ReceiptFields() (severity, description, messageCode string, ok bool) {
	if o.Result == nil {
		return "", "", "", false
	}
	return o.Result.Severity, o.Result.Description, o.Result.MessageCode, true
}

// ParseSettlementKey reads the settlement key timestamp back out of a payload.
func (o *PaymentOrder) ParseSettlementKey() (time.Time, error) {
	key, err := time.Parse(TimestampFormat, o.SettlementKey)
	if err != nil {
		return time.Time{}, exceptions.ErrWireUnmarshal(err)
	}
	return key, nil
}
