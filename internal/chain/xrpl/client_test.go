package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitPayment(t *testing.T) {
	var captured rpcRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":{"status":"success","engine_result":"tesSUCCESS","hash":"E08D6E9754025BA2534A78707605E0601F03ACE063687A0CA1BDDACFCD1698C7","validated":true,"ledger_index":75443,"fee":"10"}}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RPCURL: srv.URL})
	require.NoError(t, err)

	outcome, err := client.SubmitPayment(context.Background(), SubmitRequest{
		Destination: "rN7n7otQDd6FczFgLdSqtcsAUxDkw6fzRH",
		Amount:      "1000000",
		Currency:    "XRP",
		Memo:        "op-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "submit_payment", captured.Method)
	assert.Equal(t, "tesSUCCESS", outcome.Result)
	assert.True(t, outcome.Validated)
	assert.Equal(t, uint64(75443), outcome.LedgerIndex)
	assert.Equal(t, "10", outcome.Fee)
	assert.NotEmpty(t, outcome.Hash)
}

func TestSubmitPaymentFailedEngineResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":{"status":"success","engine_result":"tecUNFUNDED_PAYMENT","hash":"AA11","validated":true,"ledger_index":75444,"fee":"10"}}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RPCURL: srv.URL})
	require.NoError(t, err)

	outcome, err := client.SubmitPayment(context.Background(), SubmitRequest{Destination: "rDest", Amount: "5", Currency: "XRP"})
	require.NoError(t, err, "a failed engine result is still a ledger answer, not a transport error")
	assert.Equal(t, "tecUNFUNDED_PAYMENT", outcome.Result)
}

func TestTransactionLookup(t *testing.T) {
	var captured rpcRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":{"status":"success","hash":"BB22","validated":true,"ledger_index":42,"Fee":"12","meta":{"TransactionResult":"tesSUCCESS"}}}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RPCURL: srv.URL})
	require.NoError(t, err)

	outcome, err := client.Transaction(context.Background(), "BB22")
	require.NoError(t, err)

	assert.Equal(t, "tx", captured.Method)
	require.Len(t, captured.Params, 1)
	paramObj, ok := captured.Params[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "BB22", paramObj["transaction"])

	assert.Equal(t, "tesSUCCESS", outcome.Result)
	assert.True(t, outcome.Validated)
	assert.Equal(t, uint64(42), outcome.LedgerIndex)
	assert.Equal(t, "12", outcome.Fee)
}

func TestTransactionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":{"status":"error","error":"txnNotFound","error_code":29,"error_message":"Transaction not found."}}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RPCURL: srv.URL})
	require.NoError(t, err)

	_, err = client.Transaction(context.Background(), "MISSING")
	require.True(t, errors.Is(err, ErrTxNotFound), "expected ErrTxNotFound, got %v", err)
}

func TestCallSurfacesLedgerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"result":{"status":"error","error":"actNotFound","error_message":"Account not found."}}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RPCURL: srv.URL})
	require.NoError(t, err)

	_, err = client.SubmitPayment(context.Background(), SubmitRequest{Destination: "rGone", Amount: "1", Currency: "XRP"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "actNotFound")
	assert.False(t, errors.Is(err, ErrTxNotFound))
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}
