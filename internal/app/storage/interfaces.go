package storage

import (
	"context"
	"errors"
	"time"

	"github.com/salvi-network/salvi-bridge/internal/app/domain/payment"
)

// ErrNotFound is returned when a requested entity does not exist in a store.
var ErrNotFound = errors.New("not found")

// CheckpointStore persists per-channel relay progress. The relay engine is
// the only writer; it advances a channel's sequence monotonically and never
// rolls it back. GetCheckpoint returns ErrNotFound for a channel that has
// never been checkpointed.
type CheckpointStore interface {
	PutCheckpoint(ctx context.Context, channelID string, sequence uint64) error
	GetCheckpoint(ctx context.Context, channelID string) (uint64, error)
	ListCheckpoints(ctx context.Context) (map[string]uint64, error)
}

// PaymentStore caches settlement responses keyed by transaction hash.
// Entries are written exactly once at submission time and never mutated;
// PutPayment for a hash that is already present is a no-op. PrunePayments
// exists only for the opt-in retention sweeper and removes entries settled
// before the cutoff.
type PaymentStore interface {
	PutPayment(ctx context.Context, resp payment.Response) error
	GetPayment(ctx context.Context, txHash string) (payment.Response, error)
	CountPayments(ctx context.Context) (int, error)
	PrunePayments(ctx context.Context, olderThan time.Time) (int, error)
}
