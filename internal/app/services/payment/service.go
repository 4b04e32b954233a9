package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/salvi-network/salvi-bridge/internal/app/domain/payment"
	"github.com/salvi-network/salvi-bridge/internal/app/metrics"
	"github.com/salvi-network/salvi-bridge/internal/app/storage"
	"github.com/salvi-network/salvi-bridge/internal/chain/xrpl"
	"github.com/salvi-network/salvi-bridge/pkg/logger"
)

// ErrInvalidRequest marks requests rejected before reaching the ledger.
var ErrInvalidRequest = errors.New("invalid payment request")

// Ledger is the slice of the settlement-ledger client the service needs.
type Ledger interface {
	SubmitPayment(ctx context.Context, req xrpl.SubmitRequest) (xrpl.TxOutcome, error)
	Transaction(ctx context.Context, hash string) (xrpl.TxOutcome, error)
}

// Service submits settlement payments and answers status and verification
// queries. Every submission outcome is cached by transaction hash, success
// or not, so later status queries are answered without a ledger round trip.
type Service struct {
	ledger Ledger
	store  storage.PaymentStore
	log    *logger.Logger
}

// NewService constructs the settlement payment service.
func NewService(ledger Ledger, store storage.PaymentStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("payments")
	}
	return &Service{ledger: ledger, store: store, log: log}
}

// Submit sends one settlement payment and waits for the ledger verdict.
// Success means exactly that the ledger reported the success engine result;
// any other code is a settled failure, not an error. Transport failures are
// errors: nothing reached the ledger, so nothing is cached.
func (s *Service) Submit(ctx context.Context, req domain.Request) (domain.Response, error) {
	if req.Destination == "" {
		return domain.Response{}, fmt.Errorf("%w: destination is required", ErrInvalidRequest)
	}
	if req.Amount == "" {
		return domain.Response{}, fmt.Errorf("%w: amount is required", ErrInvalidRequest)
	}

	outcome, err := s.ledger.SubmitPayment(ctx, xrpl.SubmitRequest{
		Destination: req.Destination,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Memo:        req.Memo,
	})
	if err != nil {
		return domain.Response{}, fmt.Errorf("submit payment for operation %q: %w", req.OperationID, err)
	}

	resp := domain.Response{
		Success:         outcome.Result == domain.ResultSuccess,
		OperationID:     req.OperationID,
		TransactionHash: outcome.Hash,
		Result:          outcome.Result,
		Validated:       outcome.Validated,
		LedgerIndex:     outcome.LedgerIndex,
		Fee:             outcome.Fee,
		SettledAt:       time.Now().UTC(),
	}

	if err := s.store.PutPayment(ctx, resp); err != nil {
		s.log.WithError(err).
			WithField("tx_hash", resp.TransactionHash).
			Warn("cache payment outcome failed")
	}

	metrics.RecordPaymentSubmission(resp.Result, resp.Success)
	s.log.WithField("operation_id", req.OperationID).
		WithField("tx_hash", resp.TransactionHash).
		WithField("result", resp.Result).
		WithField("validated", resp.Validated).
		Info("settlement payment submitted")

	return resp, nil
}

// Status reports a payment by transaction hash. The local cache answers
// first; a miss falls through to the ledger. A hash unknown to both is an
// answer, not an error: the status says not found.
func (s *Service) Status(ctx context.Context, txHash string) (domain.Status, error) {
	if txHash == "" {
		return domain.Status{}, fmt.Errorf("%w: transaction hash is required", ErrInvalidRequest)
	}

	cached, err := s.store.GetPayment(ctx, txHash)
	if err == nil {
		metrics.RecordPaymentLookup("cache")
		return domain.Status{
			TransactionHash: cached.TransactionHash,
			Validated:       cached.Validated,
			LedgerIndex:     cached.LedgerIndex,
			Result:          cached.Result,
			Fee:             cached.Fee,
		}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return domain.Status{}, fmt.Errorf("load cached payment %s: %w", txHash, err)
	}

	outcome, err := s.ledger.Transaction(ctx, txHash)
	if err != nil {
		if errors.Is(err, xrpl.ErrTxNotFound) {
			metrics.RecordPaymentLookup("not_found")
			return domain.Status{
				TransactionHash: txHash,
				Validated:       false,
				LedgerIndex:     0,
				Result:          domain.ResultNotFound,
			}, nil
		}
		return domain.Status{}, fmt.Errorf("query payment %s: %w", txHash, err)
	}

	metrics.RecordPaymentLookup("ledger")
	return domain.Status{
		TransactionHash: txHash,
		Validated:       outcome.Validated,
		LedgerIndex:     outcome.LedgerIndex,
		Result:          outcome.Result,
		Fee:             outcome.Fee,
	}, nil
}

// Verify reports whether the payment settled for good: validated on the
// ledger with the success result code. Unvalidated or failed payments, and
// unknown hashes, all verify false.
func (s *Service) Verify(ctx context.Context, txHash string) (domain.Verification, error) {
	status, err := s.Status(ctx, txHash)
	if err != nil {
		return domain.Verification{}, err
	}
	return domain.Verification{
		Verified:    status.Validated && status.Result == domain.ResultSuccess,
		LedgerIndex: status.LedgerIndex,
	}, nil
}
