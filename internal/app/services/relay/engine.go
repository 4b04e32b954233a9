package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/salvi-network/salvi-bridge/internal/app/domain/witness"
	"github.com/salvi-network/salvi-bridge/internal/app/metrics"
	"github.com/salvi-network/salvi-bridge/internal/app/storage"
	"github.com/salvi-network/salvi-bridge/internal/app/system"
	"github.com/salvi-network/salvi-bridge/pkg/logger"
)

// Defaults applied when the channel binding leaves the polling cadence or
// batch size unset.
const (
	DefaultPollInterval = 5 * time.Second
	DefaultBatchSize    = 10
)

const tickTimeout = 30 * time.Second

var _ system.Service = (*Engine)(nil)

// Config carries the per-channel relay settings.
type Config struct {
	ChannelID    string
	PollInterval time.Duration
	BatchSize    int
}

// Engine drives one witness channel end to end: it polls records past the
// checkpoint, verifies them, submits proofs to the destination ledger and
// advances the checkpoint. One engine runs per channel binding.
type Engine struct {
	listener  *Listener
	verifier  *Verifier
	submitter *Submitter
	store     storage.CheckpointStore
	log       *logger.Logger

	channelID string
	interval  time.Duration
	batchSize int

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewEngine constructs a lifecycle-managed relay engine for one channel.
func NewEngine(listener *Listener, submitter *Submitter, cfg Config, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewDefault("relay")
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	channelID := cfg.ChannelID
	if channelID == "" && listener != nil {
		channelID = listener.ChannelID()
	}
	return &Engine{
		listener:  listener,
		verifier:  NewVerifier(),
		submitter: submitter,
		log:       log,
		channelID: channelID,
		interval:  interval,
		batchSize: batchSize,
	}
}

// WithCheckpointStore attaches a durable checkpoint store. Without one the
// engine relays from sequence zero on every boot.
func (e *Engine) WithCheckpointStore(store storage.CheckpointStore) *Engine {
	e.store = store
	return e
}

func (e *Engine) Name() string { return "relay-" + e.channelID }

func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.listener == nil || e.submitter == nil {
		e.mu.Unlock()
		e.log.WithField("channel", e.channelID).
			Warn("relay engine missing listener or submitter; disabled")
		return nil
	}
	if e.running {
		e.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.mu.Unlock()

	e.restoreCheckpoint(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				e.tick(runCtx)
			}
		}
	}()

	e.log.WithField("channel", e.channelID).
		WithField("interval", e.interval.String()).
		WithField("batch_size", e.batchSize).
		Info("relay engine started")
	return nil
}

func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return nil
	}
	cancel := e.cancel
	e.running = false
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	e.log.WithField("channel", e.channelID).Info("relay engine stopped")
	return nil
}

// restoreCheckpoint loads the persisted checkpoint so a restarted engine
// resumes where its predecessor stopped. A missing checkpoint means the
// channel has never been relayed; any other load failure is logged and the
// engine relays from zero, which the destination application absorbs because
// recorded operations are keyed by operation ID.
func (e *Engine) restoreCheckpoint(ctx context.Context) {
	if e.store == nil {
		return
	}
	seq, err := e.store.GetCheckpoint(ctx, e.channelID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.log.WithError(err).
				WithField("channel", e.channelID).
				Warn("restore relay checkpoint failed; relaying from zero")
		}
		return
	}
	e.listener.SetCheckpoint(seq)
	metrics.SetRelayCheckpoint(e.channelID, seq)
	e.log.WithField("channel", e.channelID).
		WithField("sequence", seq).
		Info("relay checkpoint restored")
}

func (e *Engine) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()

	start := time.Now()
	records, err := e.listener.Poll(ctx, e.batchSize)
	if err != nil {
		e.log.WithError(err).WithField("channel", e.channelID).Warn("relay poll failed")
		return
	}
	if len(records) == 0 {
		return
	}

	e.processBatch(ctx, records)
	metrics.ObserveRelayBatch(e.channelID, time.Since(start))
}

// processBatch walks one batch in sequence order. Records that fail
// verification are dropped and never revisited: a later commit moves the
// checkpoint past them. A failed submission withholds the checkpoint so the
// record is fetched again on a later cycle; records after it are still
// attempted, and the duplicate submissions that causes on the retry cycle
// are deduplicated by the destination application via the operation ID.
func (e *Engine) processBatch(ctx context.Context, records []witness.Record) {
	blocked := false
	for _, rec := range records {
		if ctx.Err() != nil {
			return
		}

		outcome := e.processRecord(ctx, rec)
		e.observe(rec, outcome)

		switch outcome.Kind {
		case witness.OutcomeRetryable:
			blocked = true
		case witness.OutcomeCommitted:
			if !blocked {
				e.advance(ctx, rec.SequenceNumber)
			}
		}
	}
}

func (e *Engine) processRecord(ctx context.Context, rec witness.Record) witness.Outcome {
	if check := e.verifier.Verify(rec); !check.Valid {
		return witness.Dropped(rec.SequenceNumber, check.Reason)
	}

	proof, ok := buildProof(rec)
	if !ok {
		return witness.Dropped(rec.SequenceNumber, ReasonInvalidPayload)
	}

	sub, err := e.submitter.Submit(ctx, proof)
	if err != nil {
		return witness.Retryable(rec.SequenceNumber, err)
	}
	return witness.Committed(rec.SequenceNumber, sub.CorrelationID)
}

// buildProof extracts the relayed facts from the record payload. The payload
// must be JSON; the data hash and operation ID fields are optional and
// default to empty strings.
func buildProof(rec witness.Record) (witness.Proof, bool) {
	if !gjson.ValidBytes(rec.Contents) {
		return witness.Proof{}, false
	}
	doc := gjson.ParseBytes(rec.Contents)
	return witness.Proof{
		SourceTransactionID: rec.TransactionID,
		ConsensusTimestamp:  rec.ConsensusTimestamp,
		DataHash:            doc.Get("data_hash").String(),
		OperationID:         doc.Get("operation_id").String(),
	}, true
}

// advance moves the in-memory checkpoint and persists it. A persistence
// failure is logged and rides along until the next advance; the in-memory
// checkpoint still moves so the running engine does not resubmit.
func (e *Engine) advance(ctx context.Context, sequence uint64) {
	e.listener.SetCheckpoint(sequence)
	metrics.SetRelayCheckpoint(e.channelID, sequence)
	if e.store == nil {
		return
	}
	if err := e.store.PutCheckpoint(ctx, e.channelID, sequence); err != nil {
		e.log.WithError(err).
			WithField("channel", e.channelID).
			WithField("sequence", sequence).
			Warn("persist relay checkpoint failed")
	}
}

func (e *Engine) observe(rec witness.Record, outcome witness.Outcome) {
	metrics.RecordRelayOutcome(e.channelID, outcome.Kind.String())

	entry := e.log.WithField("channel", e.channelID).
		WithField("sequence", rec.SequenceNumber)
	switch outcome.Kind {
	case witness.OutcomeDropped:
		entry.WithField("reason", outcome.Reason).Warn("witness record dropped")
	case witness.OutcomeRetryable:
		entry.WithError(outcome.Err).Warn("destination submission failed; will retry")
	case witness.OutcomeCommitted:
		entry.WithField("correlation_id", outcome.CorrelationID).Info("witness record relayed")
	}
}
