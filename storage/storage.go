package storage

import (
	"context"

	"ewintr.nl/tubedigest/model"
)

// StateRepository persists the two ledgers between invocations. A missing
// ledger loads as empty, never as an error.
type StateRepository interface {
	LoadSeen() (model.SeenSet, error)
	SaveSeen(seen model.SeenSet) error
	LoadPending() (model.PendingSet, error)
	SavePending(pending model.PendingSet) error
}

// SummaryArchiver stores mailed summaries in a vector store so they can be
// searched later. Optional, a nil archiver disables archiving.
type SummaryArchiver interface {
	SaveSummary(ctx context.Context, video model.Video, summary string) error
}
