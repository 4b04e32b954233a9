package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/salvi-network/salvi-bridge/internal/app/domain/witness"
	"github.com/salvi-network/salvi-bridge/internal/chain/appcall"
	"github.com/salvi-network/salvi-bridge/pkg/logger"
)

// MethodRecordOperation is the destination application entry point invoked
// for every relayed proof.
const MethodRecordOperation = "record_operation"

// AppCaller is the slice of the destination gateway client the submitter
// needs.
type AppCaller interface {
	Invoke(ctx context.Context, appID uint64, method string, args []appcall.CallArg, reference string) (string, error)
}

// Submitter writes verified proofs to the destination ledger application.
type Submitter struct {
	caller AppCaller
	appID  uint64
	log    *logger.Logger
}

// NewSubmitter constructs a submitter targeting one destination application.
func NewSubmitter(caller AppCaller, appID uint64, log *logger.Logger) *Submitter {
	if log == nil {
		log = logger.NewDefault("relay-submitter")
	}
	return &Submitter{caller: caller, appID: appID, log: log}
}

// Submit records the proof on the destination ledger. The correlation ID is
// generated here and travels to the gateway as the call reference, so a
// resubmitted proof can be tied back to each individual attempt.
func (s *Submitter) Submit(ctx context.Context, proof witness.Proof) (witness.Submission, error) {
	correlationID := uuid.NewString()
	args := []appcall.CallArg{
		appcall.StringArg(proof.OperationID),
		appcall.StringArg(proof.DataHash),
		appcall.StringArg(proof.SourceTransactionID),
	}

	txID, err := s.caller.Invoke(ctx, s.appID, MethodRecordOperation, args, correlationID)
	if err != nil {
		return witness.Submission{}, fmt.Errorf("record operation %q: %w", proof.OperationID, err)
	}

	s.log.WithField("operation_id", proof.OperationID).
		WithField("correlation_id", correlationID).
		WithField("gateway_txid", txID).
		Debug("operation recorded on destination ledger")

	return witness.Submission{
		AppID:         s.appID,
		Method:        MethodRecordOperation,
		Args:          []string{proof.OperationID, proof.DataHash, proof.SourceTransactionID},
		CorrelationID: correlationID,
		SubmittedAt:   time.Now().UTC(),
	}, nil
}
