package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/salvi-network/salvi-bridge/internal/app/domain/payment"
	"github.com/salvi-network/salvi-bridge/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.CheckpointStore = (*Store)(nil)
var _ storage.PaymentStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// --- CheckpointStore --------------------------------------------------------

func (s *Store) PutCheckpoint(ctx context.Context, channelID string, sequence uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO relay_checkpoints (channel_id, sequence_number, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id) DO UPDATE
		SET sequence_number = EXCLUDED.sequence_number, updated_at = EXCLUDED.updated_at
	`, channelID, int64(sequence), time.Now().UTC())
	return err
}

func (s *Store) GetCheckpoint(ctx context.Context, channelID string) (uint64, error) {
	var seq int64
	err := s.db.GetContext(ctx, &seq, `
		SELECT sequence_number FROM relay_checkpoints WHERE channel_id = $1
	`, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return uint64(seq), nil
}

func (s *Store) ListCheckpoints(ctx context.Context) (map[string]uint64, error) {
	var rows []checkpointRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT channel_id, sequence_number FROM relay_checkpoints ORDER BY channel_id
	`); err != nil {
		return nil, err
	}

	result := make(map[string]uint64, len(rows))
	for _, r := range rows {
		result[r.ChannelID] = uint64(r.SequenceNumber)
	}
	return result, nil
}

type checkpointRow struct {
	ChannelID      string `db:"channel_id"`
	SequenceNumber int64  `db:"sequence_number"`
}

// --- PaymentStore -----------------------------------------------------------

type paymentRow struct {
	ID              string    `db:"id"`
	TransactionHash string    `db:"tx_hash"`
	OperationID     string    `db:"operation_id"`
	Success         bool      `db:"success"`
	Result          string    `db:"result"`
	Validated       bool      `db:"validated"`
	LedgerIndex     int64     `db:"ledger_index"`
	Fee             string    `db:"fee"`
	SettledAt       time.Time `db:"settled_at"`
}

func (r paymentRow) toDomain() payment.Response {
	return payment.Response{
		TransactionHash: r.TransactionHash,
		OperationID:     r.OperationID,
		Success:         r.Success,
		Result:          r.Result,
		Validated:       r.Validated,
		LedgerIndex:     uint64(r.LedgerIndex),
		Fee:             r.Fee,
		SettledAt:       r.SettledAt,
	}
}

// PutPayment inserts the response once per transaction hash. Conflicting
// inserts are ignored so cached entries are never mutated.
func (s *Store) PutPayment(ctx context.Context, resp payment.Response) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payment_records
			(id, tx_hash, operation_id, success, result, validated, ledger_index, fee, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tx_hash) DO NOTHING
	`, uuid.NewString(), resp.TransactionHash, resp.OperationID, resp.Success,
		resp.Result, resp.Validated, int64(resp.LedgerIndex), resp.Fee, resp.SettledAt.UTC())
	return err
}

func (s *Store) GetPayment(ctx context.Context, txHash string) (payment.Response, error) {
	var row paymentRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, tx_hash, operation_id, success, result, validated, ledger_index, fee, settled_at
		FROM payment_records
		WHERE tx_hash = $1
	`, txHash)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Response{}, storage.ErrNotFound
	}
	if err != nil {
		return payment.Response{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) CountPayments(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM payment_records`); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) PrunePayments(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM payment_records WHERE settled_at < $1
	`, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}
