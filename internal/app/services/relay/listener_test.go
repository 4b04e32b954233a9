package relay

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/salvi-network/salvi-bridge/internal/app/domain/witness"
)

type stubSource struct {
	mu      sync.Mutex
	records []witness.Record
	err     error

	lastChannel string
	lastAfter   uint64
	lastLimit   int
}

func (s *stubSource) Messages(_ context.Context, channelID string, afterSequence uint64, limit int) ([]witness.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastChannel = channelID
	s.lastAfter = afterSequence
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	out := make([]witness.Record, 0, limit)
	for _, r := range s.records {
		if r.SequenceNumber <= afterSequence {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestPollPassesCheckpointAndLimit(t *testing.T) {
	src := &stubSource{records: []witness.Record{
		{SequenceNumber: 5}, {SequenceNumber: 6}, {SequenceNumber: 7}, {SequenceNumber: 8},
	}}
	l := NewListener(src, "0.0.7001")
	l.SetCheckpoint(6)

	records, err := l.Poll(context.Background(), 10)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if src.lastChannel != "0.0.7001" || src.lastAfter != 6 || src.lastLimit != 10 {
		t.Fatalf("source queried with (%q, %d, %d)", src.lastChannel, src.lastAfter, src.lastLimit)
	}
	if len(records) != 2 || records[0].SequenceNumber != 7 || records[1].SequenceNumber != 8 {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestPollWrapsSourceError(t *testing.T) {
	src := &stubSource{err: errors.New("mirror unavailable")}
	l := NewListener(src, "0.0.7001")

	if _, err := l.Poll(context.Background(), 10); err == nil {
		t.Fatal("expected error from failing source")
	}
}

func TestSetCheckpointNeverMovesBackwards(t *testing.T) {
	l := NewListener(&stubSource{}, "0.0.7001")

	l.SetCheckpoint(42)
	l.SetCheckpoint(17)
	if got := l.Checkpoint(); got != 42 {
		t.Fatalf("checkpoint regressed to %d", got)
	}

	l.SetCheckpoint(42)
	if got := l.Checkpoint(); got != 42 {
		t.Fatalf("checkpoint = %d after idempotent set", got)
	}

	l.SetCheckpoint(43)
	if got := l.Checkpoint(); got != 43 {
		t.Fatalf("checkpoint = %d, want 43", got)
	}
}
