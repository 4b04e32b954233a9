// Package xrpl talks to the settlement ledger over its JSON-RPC API.
// Payment submission goes through a gateway method that signs with its own
// wallet and blocks until the transaction is validated, so a successful
// response already carries the final engine result and ledger index.
package xrpl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTxNotFound is returned when the ledger has no record of a transaction.
var ErrTxNotFound = errors.New("transaction not found")

// Client provides JSON-RPC access to the settlement endpoint.
type Client struct {
	rpcURL     string
	authToken  string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	RPCURL    string
	AuthToken string
	Timeout   time.Duration
}

// NewClient creates a settlement client. The default timeout is generous
// because submit_payment blocks until ledger validation.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("settlement RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		rpcURL:    cfg.RPCURL,
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
}

type resultEnvelope struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// Call makes a JSON-RPC call and returns the raw result object. Ledger-level
// errors ride inside the result envelope, so callers get them as errors here
// rather than re-checking status themselves.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	var envelope resultEnvelope
	if err := json.Unmarshal(rpcResp.Result, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal result envelope: %w", err)
	}
	if envelope.Status == "error" {
		if envelope.Error == "txnNotFound" {
			return nil, ErrTxNotFound
		}
		if envelope.ErrorMessage != "" {
			return nil, fmt.Errorf("%s: %s", envelope.Error, envelope.ErrorMessage)
		}
		return nil, fmt.Errorf("ledger error: %s", envelope.Error)
	}

	return rpcResp.Result, nil
}

// =============================================================================
// Payment Methods
// =============================================================================

// SubmitRequest describes a transfer for the gateway to sign and submit.
type SubmitRequest struct {
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Memo        string `json:"memo,omitempty"`
}

// TxOutcome is a transaction as reported by the ledger.
type TxOutcome struct {
	Hash        string
	Result      string
	Validated   bool
	LedgerIndex uint64
	Fee         string
}

// SubmitPayment signs and submits a transfer via the gateway wallet and
// waits for validation. The returned outcome carries the raw engine result
// code; callers decide what counts as success.
func (c *Client) SubmitPayment(ctx context.Context, req SubmitRequest) (TxOutcome, error) {
	result, err := c.Call(ctx, "submit_payment", []interface{}{req})
	if err != nil {
		return TxOutcome{}, err
	}

	var response struct {
		EngineResult string `json:"engine_result"`
		Hash         string `json:"hash"`
		Validated    bool   `json:"validated"`
		LedgerIndex  uint64 `json:"ledger_index"`
		Fee          string `json:"fee"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return TxOutcome{}, fmt.Errorf("unmarshal submit response: %w", err)
	}

	return TxOutcome{
		Hash:        response.Hash,
		Result:      response.EngineResult,
		Validated:   response.Validated,
		LedgerIndex: response.LedgerIndex,
		Fee:         response.Fee,
	}, nil
}

// Transaction looks up a transaction by hash. Returns ErrTxNotFound when
// the ledger has no record of it.
func (c *Client) Transaction(ctx context.Context, txHash string) (TxOutcome, error) {
	params := []interface{}{
		map[string]interface{}{
			"transaction": txHash,
			"binary":      false,
		},
	}

	result, err := c.Call(ctx, "tx", params)
	if err != nil {
		return TxOutcome{}, err
	}

	var response struct {
		Hash        string `json:"hash"`
		Validated   bool   `json:"validated"`
		LedgerIndex uint64 `json:"ledger_index"`
		Fee         string `json:"Fee"`
		Meta        struct {
			TransactionResult string `json:"TransactionResult"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return TxOutcome{}, fmt.Errorf("unmarshal tx response: %w", err)
	}

	return TxOutcome{
		Hash:        response.Hash,
		Result:      response.Meta.TransactionResult,
		Validated:   response.Validated,
		LedgerIndex: response.LedgerIndex,
		Fee:         response.Fee,
	}, nil
}
