package witness

import "time"

// Record is a single consensus-ordered message on a witness channel of the
// source ledger.
type Record struct {
	ChannelID          string
	SequenceNumber     uint64
	TransactionID      string
	ConsensusTimestamp string
	Contents           []byte
	RunningHash        string
}

// Proof is the minimal fact extracted from a verified record: content hash,
// operation identifier and provenance. Proofs are what the bridge submits to
// the destination ledger.
type Proof struct {
	SourceTransactionID string
	ConsensusTimestamp  string
	DataHash            string
	OperationID         string
}

// Submission describes one destination-ledger write attempt.
type Submission struct {
	AppID         uint64
	Method        string
	Args          []string
	CorrelationID string
	SubmittedAt   time.Time
}

// OutcomeKind classifies how the relay disposed of a single record.
type OutcomeKind int

const (
	// OutcomeDropped marks a record that failed verification. Dropped
	// records are skipped permanently and never block later records.
	OutcomeDropped OutcomeKind = iota + 1
	// OutcomeRetryable marks a record whose destination submission failed.
	// The checkpoint is withheld so the record is re-fetched and retried
	// on a later poll cycle.
	OutcomeRetryable
	// OutcomeCommitted marks a record successfully submitted to the
	// destination ledger.
	OutcomeCommitted
)

// String returns the lower-case label used in logs and metrics.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDropped:
		return "dropped"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Outcome is the per-record result of one relay pass. Exactly one of Reason,
// Err or CorrelationID is meaningful depending on Kind.
type Outcome struct {
	Kind          OutcomeKind
	Sequence      uint64
	Reason        string
	Err           error
	CorrelationID string
}

// Dropped builds the outcome for a record that failed verification.
func Dropped(seq uint64, reason string) Outcome {
	return Outcome{Kind: OutcomeDropped, Sequence: seq, Reason: reason}
}

// Retryable builds the outcome for a record whose submission failed.
func Retryable(seq uint64, err error) Outcome {
	return Outcome{Kind: OutcomeRetryable, Sequence: seq, Err: err}
}

// Committed builds the outcome for a successfully submitted record.
func Committed(seq uint64, correlationID string) Outcome {
	return Outcome{Kind: OutcomeCommitted, Sequence: seq, CorrelationID: correlationID}
}
