package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/salvi-network/salvi-bridge/internal/app/domain/payment"
	"github.com/salvi-network/salvi-bridge/internal/app/storage"
)

const (
	checkpointKeyPrefix = "bridge:checkpoint:"
	paymentKeyPrefix    = "bridge:payment:"
)

// Store implements the storage interfaces on Redis. Payment entries are
// written with SETNX so a cached response keeps its original value;
// checkpoint keys are overwritten on each advance.
type Store struct {
	client *redis.Client
}

var _ storage.CheckpointStore = (*Store)(nil)
var _ storage.PaymentStore = (*Store)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and verifies the connection before returning.
func New(opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func checkpointKey(channelID string) string { return checkpointKeyPrefix + channelID }
func paymentKey(txHash string) string       { return paymentKeyPrefix + txHash }

// CheckpointStore implementation ----------------------------------------------

func (s *Store) PutCheckpoint(ctx context.Context, channelID string, sequence uint64) error {
	return s.client.Set(ctx, checkpointKey(channelID), strconv.FormatUint(sequence, 10), 0).Err()
}

func (s *Store) GetCheckpoint(ctx context.Context, channelID string) (uint64, error) {
	val, err := s.client.Get(ctx, checkpointKey(channelID)).Result()
	if err == redis.Nil {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get checkpoint %s: %w", channelID, err)
	}

	seq, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint %s: %w", channelID, err)
	}
	return seq, nil
}

func (s *Store) ListCheckpoints(ctx context.Context) (map[string]uint64, error) {
	keys, err := s.client.Keys(ctx, checkpointKeyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoint keys: %w", err)
	}

	result := make(map[string]uint64, len(keys))
	for _, key := range keys {
		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", key, err)
		}
		seq, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}
		result[key[len(checkpointKeyPrefix):]] = seq
	}
	return result, nil
}

// PaymentStore implementation --------------------------------------------------

func (s *Store) PutPayment(ctx context.Context, resp payment.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal payment %s: %w", resp.TransactionHash, err)
	}
	return s.client.SetNX(ctx, paymentKey(resp.TransactionHash), data, 0).Err()
}

func (s *Store) GetPayment(ctx context.Context, txHash string) (payment.Response, error) {
	val, err := s.client.Get(ctx, paymentKey(txHash)).Result()
	if err == redis.Nil {
		return payment.Response{}, storage.ErrNotFound
	}
	if err != nil {
		return payment.Response{}, fmt.Errorf("get payment %s: %w", txHash, err)
	}

	var resp payment.Response
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return payment.Response{}, fmt.Errorf("unmarshal payment %s: %w", txHash, err)
	}
	return resp, nil
}

func (s *Store) CountPayments(ctx context.Context) (int, error) {
	keys, err := s.client.Keys(ctx, paymentKeyPrefix+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("list payment keys: %w", err)
	}
	return len(keys), nil
}

func (s *Store) PrunePayments(ctx context.Context, olderThan time.Time) (int, error) {
	keys, err := s.client.Keys(ctx, paymentKeyPrefix+"*").Result()
	if err != nil {
		return 0, fmt.Errorf("list payment keys: %w", err)
	}

	var pruned int
	for _, key := range keys {
		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return pruned, fmt.Errorf("get %s: %w", key, err)
		}

		var resp payment.Response
		if err := json.Unmarshal([]byte(val), &resp); err != nil {
			return pruned, fmt.Errorf("unmarshal %s: %w", key, err)
		}
		if resp.SettledAt.Before(olderThan) {
			if err := s.client.Del(ctx, key).Err(); err != nil {
				return pruned, fmt.Errorf("delete %s: %w", key, err)
			}
			pruned++
		}
	}
	return pruned, nil
}
