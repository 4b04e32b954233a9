// Package witness queries the source ledger's mirror API for sequenced
// channel messages.
package witness

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	domain "github.com/salvi-network/salvi-bridge/internal/app/domain/witness"
)

// Client reads witness channel messages from a mirror node's REST API.
// Calls are throttled client-side; public mirror endpoints rate-limit
// aggressively and a tight relay poll loop would otherwise trip them.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RequestsPerSecond caps outbound mirror calls. Zero or negative
	// disables throttling.
	RequestsPerSecond float64
}

// NewClient creates a mirror client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("mirror base URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
	}, nil
}

type messagesResponse struct {
	Messages []messageEnvelope `json:"messages"`
}

type messageEnvelope struct {
	ChannelID          string `json:"channel_id"`
	SequenceNumber     uint64 `json:"sequence_number"`
	TransactionID      string `json:"transaction_id"`
	ConsensusTimestamp string `json:"consensus_timestamp"`
	Message            string `json:"message"`
	RunningHash        string `json:"running_hash"`
}

// Messages returns up to limit messages on channelID with sequence numbers
// strictly greater than afterSeq, in ascending sequence order. An empty
// slice means the channel has nothing new.
func (c *Client) Messages(ctx context.Context, channelID string, afterSeq uint64, limit int) ([]domain.Record, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/channels/%s/messages", c.baseURL, url.PathEscape(channelID)))
	if err != nil {
		return nil, fmt.Errorf("build mirror URL: %w", err)
	}
	q := u.Query()
	q.Set("sequencenumber", "gt:"+strconv.FormatUint(afterSeq, 10))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("order", "asc")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mirror status %d for channel %s", resp.StatusCode, channelID)
	}

	var payload messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := make([]domain.Record, 0, len(payload.Messages))
	for _, msg := range payload.Messages {
		records = append(records, msg.toRecord())
	}
	return records, nil
}

func (m messageEnvelope) toRecord() domain.Record {
	// Mirror nodes serve payloads base64-encoded; anything that does not
	// decode is passed through raw so the verifier sees the bytes as sent.
	contents, err := base64.StdEncoding.DecodeString(m.Message)
	if err != nil {
		contents = []byte(m.Message)
	}
	return domain.Record{
		ChannelID:          m.ChannelID,
		SequenceNumber:     m.SequenceNumber,
		TransactionID:      m.TransactionID,
		ConsensusTimestamp: m.ConsensusTimestamp,
		Contents:           contents,
		RunningHash:        m.RunningHash,
	}
}
