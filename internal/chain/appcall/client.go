// Package appcall submits application calls to the destination ledger
// through its transaction gateway. The gateway holds the signing wallet;
// this client never sees key material.
package appcall

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client provides JSON-RPC access to the destination gateway.
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

// NewClient creates a gateway client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("gateway RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		rpcURL:    cfg.RPCURL,
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// RPCRequest is a JSON-RPC 2.0 request envelope.
type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

// RPCResponse is a JSON-RPC 2.0 response envelope.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	ID      int             `json:"id"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Call makes a JSON-RPC call to the gateway.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
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

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// =============================================================================
// Application Call Methods
// =============================================================================

// CallArg is a typed argument for an application call.
type CallArg struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// StringArg builds a string argument.
func StringArg(v string) CallArg {
	return CallArg{Type: "string", Value: v}
}

// IntArg builds an integer argument.
func IntArg(v uint64) CallArg {
	return CallArg{Type: "int", Value: strconv.FormatUint(v, 10)}
}

// BytesArg builds a byte-array argument, base64 encoded on the wire.
func BytesArg(v []byte) CallArg {
	return CallArg{Type: "bytes", Value: base64.StdEncoding.EncodeToString(v)}
}

// Invoke submits an application call through the gateway's signing wallet.
// The reference travels with the transaction so attempts can be correlated
// end to end; the returned value is the gateway-assigned transaction ID.
func (c *Client) Invoke(ctx context.Context, appID uint64, method string, args []CallArg, reference string) (string, error) {
	params := []interface{}{
		map[string]interface{}{
			"app_id":    appID,
			"method":    method,
			"args":      args,
			"reference": reference,
		},
	}

	result, err := c.Call(ctx, "submitappcall", params)
	if err != nil {
		return "", err
	}

	var response struct {
		TxID string `json:"txid"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return "", fmt.Errorf("unmarshal submit response: %w", err)
	}
	return response.TxID, nil
}

// TxStatus describes a pending or confirmed application call.
type TxStatus struct {
	TxID           string `json:"txid"`
	ConfirmedRound uint64 `json:"confirmed_round"`
	PoolError      string `json:"pool_error"`
}

// Confirmed reports whether the call has been applied on ledger.
func (s *TxStatus) Confirmed() bool { return s.ConfirmedRound > 0 }

// PendingInfo returns the gateway's view of a submitted call.
func (c *Client) PendingInfo(ctx context.Context, txID string) (*TxStatus, error) {
	result, err := c.Call(ctx, "pendinginfo", []interface{}{txID})
	if err != nil {
		return nil, err
	}

	var status TxStatus
	if err := json.Unmarshal(result, &status); err != nil {
		return nil, fmt.Errorf("unmarshal pending info: %w", err)
	}
	return &status, nil
}

// WaitForConfirmation polls for a call's confirmation until it is applied
// or the context is done. An unknown transaction is treated as transient
// and retried; gateways briefly forget calls while they ride the mempool.
func (c *Client) WaitForConfirmation(ctx context.Context, txID string, pollInterval time.Duration) (*TxStatus, error) {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			status, err := c.PendingInfo(ctx, txID)
			if err != nil {
				if isNotFoundError(err) {
					continue
				}
				return nil, err
			}
			if status.PoolError != "" {
				return nil, fmt.Errorf("call %s rejected: %s", txID, status.PoolError)
			}
			if status.Confirmed() {
				return status, nil
			}
		}
	}
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
