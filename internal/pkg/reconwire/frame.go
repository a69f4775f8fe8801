// Package reconwire builds the two reconciliation message families exchanged
// with the disbursement ledger. Both protocols emit a strictly ordered
// START, DATA(+), END sequence; every frame is a self-contained XML document.
package reconwire

import (
	"disbursement-service/internal/pkg/exceptions"
	"encoding/xml"
)

const (
	FrameTypeStart = "START"
	FrameTypeData  = "DATA"
	FrameTypeEnd   = "END"

	AggregationTypePeriodic    = "PERIODIC"
	AggregationTypeConsistency = "CONSISTENCY"

	SourceComponent      = "DISBURSEMENT"
	DestinationComponent = "LEDGER"

	// EmptyKeySentinel is carried in START/END key fields when the selection
	// holds no instructions.
	EmptyKeySentinel = "0"

	SignPositive = "+"
	SignNegative = "-"

	TimestampFormat = "2006-01-02T15:04:05Z"
	DateFormat      = "2006-01-02"
)

// FrameHeader carries the framing fields fixed per protocol.
type FrameHeader struct {
	Type                 string `xml:"type"`
	AggregationType      string `xml:"aggregationType"`
	SourceComponent      string `xml:"sourceComponent"`
	DestinationComponent string `xml:"destinationComponent"`
	CorrelationID        string `xml:"correlationId"`
	KeyFrom              string `xml:"keyFrom"`
	KeyTo                string `xml:"keyTo"`
}

// AmountBlock is a count/amount/sign aggregate.
type AmountBlock struct {
	Count  int    `xml:"count"`
	Amount int64  `xml:"amount"`
	Sign   string `xml:"sign"`
}

func newAmountBlock() AmountBlock {
	return AmountBlock{Sign: SignPositive}
}

func (b *AmountBlock) add(amount int64) {
	b.Count++
	b.Amount += amount
	if b.Amount < 0 {
		b.Sign = SignNegative
	} else {
		b.Sign = SignPositive
	}
}

func marshalFrame(frame interface{}) (string, error) {
	data, err := xml.Marshal(frame)
	if err != nil {
		return "", exceptions.ErrWireMarshal(err)
	}
	return xml.Header + string(data), nil
}
