package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/salvi-network/salvi-bridge/internal/app/domain/witness"
)

// RecordSource is the slice of the witness-ledger client the listener needs:
// ordered records for one channel, strictly after a sequence number.
type RecordSource interface {
	Messages(ctx context.Context, channelID string, afterSequence uint64, limit int) ([]witness.Record, error)
}

// Listener tracks a single witness channel. It remembers the channel
// checkpoint, the highest sequence number known to be durably relayed, and
// fetches the records past it.
type Listener struct {
	source    RecordSource
	channelID string

	mu         sync.Mutex
	checkpoint uint64
}

// NewListener constructs a listener for one witness channel.
func NewListener(source RecordSource, channelID string) *Listener {
	return &Listener{source: source, channelID: channelID}
}

// ChannelID returns the witness channel this listener follows.
func (l *Listener) ChannelID() string { return l.channelID }

// Checkpoint returns the highest sequence number relayed so far, or zero if
// nothing has been relayed.
func (l *Listener) Checkpoint() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkpoint
}

// SetCheckpoint moves the checkpoint forward. Values at or below the current
// checkpoint are ignored: the checkpoint never moves backwards, so a stale
// restore cannot cause already-relayed records to be fetched again.
func (l *Listener) SetCheckpoint(sequence uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sequence > l.checkpoint {
		l.checkpoint = sequence
	}
}

// Poll fetches up to limit records with sequence numbers strictly greater
// than the checkpoint, in ascending order.
func (l *Listener) Poll(ctx context.Context, limit int) ([]witness.Record, error) {
	records, err := l.source.Messages(ctx, l.channelID, l.Checkpoint(), limit)
	if err != nil {
		return nil, fmt.Errorf("poll channel %s: %w", l.channelID, err)
	}
	return records, nil
}
