package memory

import (
	"context"
	"sync"
	"time"

	"github.com/salvi-network/salvi-bridge/internal/app/domain/payment"
	"github.com/salvi-network/salvi-bridge/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is the default when no durable backend is
// configured. The payment map is insert-only, so the unbounded growth noted
// on the cache contract applies here unless the retention sweeper is enabled.
type Store struct {
	mu          sync.RWMutex
	checkpoints map[string]uint64
	payments    map[string]payment.Response
}

var _ storage.CheckpointStore = (*Store)(nil)
var _ storage.PaymentStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		checkpoints: make(map[string]uint64),
		payments:    make(map[string]payment.Response),
	}
}

// CheckpointStore implementation ----------------------------------------------

func (s *Store) PutCheckpoint(_ context.Context, channelID string, sequence uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.checkpoints[channelID] = sequence
	return nil
}

func (s *Store) GetCheckpoint(_ context.Context, channelID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seq, ok := s.checkpoints[channelID]
	if !ok {
		return 0, storage.ErrNotFound
	}
	return seq, nil
}

func (s *Store) ListCheckpoints(_ context.Context) (map[string]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]uint64, len(s.checkpoints))
	for channel, seq := range s.checkpoints {
		result[channel] = seq
	}
	return result, nil
}

// PaymentStore implementation --------------------------------------------------

func (s *Store) PutPayment(_ context.Context, resp payment.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.payments[resp.TransactionHash]; exists {
		return nil
	}
	s.payments[resp.TransactionHash] = resp
	return nil
}

func (s *Store) GetPayment(_ context.Context, txHash string) (payment.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	resp, ok := s.payments[txHash]
	if !ok {
		return payment.Response{}, storage.ErrNotFound
	}
	return resp, nil
}

func (s *Store) CountPayments(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.payments), nil
}

func (s *Store) PrunePayments(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned int
	for hash, resp := range s.payments {
		if resp.SettledAt.Before(olderThan) {
			delete(s.payments, hash)
			pruned++
		}
	}
	return pruned, nil
}
