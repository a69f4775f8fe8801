package contracts

import "context"

// DispatchService is the outbound message channel to the disbursement
// ledger. Publishing blocks until the broker confirms the message; there is
// no internal retry, recovery is the caller's resweep.
type DispatchService interface {
	PublishDisbursement(ctx context.Context, payload string) error
	PublishReconciliation(ctx context.Context, payload string) error
}
