package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/salvi-network/salvi-bridge/internal/app/domain/payment"
	"github.com/salvi-network/salvi-bridge/internal/app/storage"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis integration test")
	}

	client := goredis.NewClient(&goredis.Options{Addr: addr, DB: 9})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping redis: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush test db: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewWithClient(client)
}

func TestCheckpointRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.GetCheckpoint(ctx, "0.0.4821"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.PutCheckpoint(ctx, "0.0.4821", 5); err != nil {
		t.Fatalf("put checkpoint: %v", err)
	}
	if err := s.PutCheckpoint(ctx, "0.0.4821", 7); err != nil {
		t.Fatalf("advance checkpoint: %v", err)
	}

	seq, err := s.GetCheckpoint(ctx, "0.0.4821")
	if err != nil {
		t.Fatalf("get checkpoint: %v", err)
	}
	if seq != 7 {
		t.Fatalf("expected sequence 7, got %d", seq)
	}

	all, err := s.ListCheckpoints(ctx)
	if err != nil {
		t.Fatalf("list checkpoints: %v", err)
	}
	if all["0.0.4821"] != 7 {
		t.Fatalf("unexpected listing: %v", all)
	}
}

func TestPaymentInsertOnly(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	resp := payment.Response{
		TransactionHash: "R-HASH",
		Result:          payment.ResultSuccess,
		Success:         true,
		SettledAt:       time.Now().UTC(),
	}
	if err := s.PutPayment(ctx, resp); err != nil {
		t.Fatalf("put payment: %v", err)
	}

	mutated := resp
	mutated.Result = "tecKILLED"
	if err := s.PutPayment(ctx, mutated); err != nil {
		t.Fatalf("second put: %v", err)
	}

	got, err := s.GetPayment(ctx, "R-HASH")
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if got.Result != payment.ResultSuccess {
		t.Fatalf("cached payment was mutated: %+v", got)
	}

	pruned, err := s.PrunePayments(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned entry, got %d", pruned)
	}
}
