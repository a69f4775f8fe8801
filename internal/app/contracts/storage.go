package contracts

import "context"

// ArchiveStorage keeps audit copies of emitted reconciliation runs.
type ArchiveStorage interface {
	StoreReconciliationRun(ctx context.Context, objectName string, content []byte) error
}
