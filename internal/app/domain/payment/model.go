package payment

import "time"

// Result codes surfaced by the settlement ledger. ResultNotFound is
// synthesised by the bridge for transactions the ledger has no knowledge of.
const (
	ResultSuccess  = "tesSUCCESS"
	ResultNotFound = "NOT_FOUND"
)

// Request describes a settlement transfer to submit.
type Request struct {
	OperationID string `json:"operation_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Destination string `json:"destination"`
	Memo        string `json:"memo,omitempty"`
}

// Response captures the outcome of a submitted transfer as returned by the
// settlement ledger, stamped with the submission completion time.
type Response struct {
	Success         bool      `json:"success"`
	OperationID     string    `json:"operation_id"`
	TransactionHash string    `json:"transaction_hash"`
	Result          string    `json:"result"`
	Validated       bool      `json:"validated"`
	LedgerIndex     uint64    `json:"ledger_index"`
	Fee             string    `json:"fee,omitempty"`
	SettledAt       time.Time `json:"settled_at"`
}

// Status describes a transfer as known to the settlement ledger (or to the
// bridge's cache of prior submissions).
type Status struct {
	TransactionHash string `json:"transaction_hash"`
	Validated       bool   `json:"validated"`
	LedgerIndex     uint64 `json:"ledger_index"`
	Result          string `json:"result"`
	Fee             string `json:"fee,omitempty"`
}

// Verification is the yes/no composition of Status: verified means the
// transfer is validated on ledger with the success result code.
type Verification struct {
	Verified    bool   `json:"verified"`
	LedgerIndex uint64 `json:"ledger_index"`
}
