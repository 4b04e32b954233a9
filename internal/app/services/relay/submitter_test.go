package relay

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/salvi-network/salvi-bridge/internal/app/domain/witness"
	"github.com/salvi-network/salvi-bridge/internal/chain/appcall"
	"github.com/salvi-network/salvi-bridge/pkg/logger"
)

type stubCaller struct {
	mu       sync.Mutex
	calls    []stubCall
	err      error
	failures int // fail this many invocations before succeeding
	txID     string
}

type stubCall struct {
	appID     uint64
	method    string
	args      []appcall.CallArg
	reference string
}

func (c *stubCaller) Invoke(_ context.Context, appID uint64, method string, args []appcall.CallArg, reference string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, stubCall{appID: appID, method: method, args: args, reference: reference})
	if c.failures > 0 {
		c.failures--
		return "", errors.New("gateway unavailable")
	}
	if c.err != nil {
		return "", c.err
	}
	if c.txID != "" {
		return c.txID, nil
	}
	return "TXABC", nil
}

func (c *stubCaller) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func quietLogger() *logger.Logger {
	return logger.New(logger.LoggingConfig{Level: "fatal"})
}

func TestSubmitRecordsOperation(t *testing.T) {
	caller := &stubCaller{txID: "TX001"}
	s := NewSubmitter(caller, 7421, quietLogger())

	proof := witness.Proof{
		SourceTransactionID: "0.0.900@1712000000.000000001",
		ConsensusTimestamp:  "1712000000.000000100",
		DataHash:            "9f86d081884c7d65",
		OperationID:         "op-42",
	}

	sub, err := s.Submit(context.Background(), proof)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(caller.calls) != 1 {
		t.Fatalf("gateway invoked %d times", len(caller.calls))
	}
	call := caller.calls[0]
	if call.appID != 7421 {
		t.Fatalf("app id = %d", call.appID)
	}
	if call.method != MethodRecordOperation {
		t.Fatalf("method = %q", call.method)
	}
	wantArgs := []string{"op-42", "9f86d081884c7d65", "0.0.900@1712000000.000000001"}
	if len(call.args) != len(wantArgs) {
		t.Fatalf("argument count = %d", len(call.args))
	}
	for i, want := range wantArgs {
		if call.args[i].Value != want {
			t.Fatalf("arg[%d] = %q, want %q", i, call.args[i].Value, want)
		}
	}

	if sub.AppID != 7421 || sub.Method != MethodRecordOperation {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if sub.SubmittedAt.IsZero() {
		t.Fatal("SubmittedAt not set")
	}
}

func TestSubmitGeneratesCorrelationID(t *testing.T) {
	caller := &stubCaller{}
	s := NewSubmitter(caller, 7421, quietLogger())

	sub, err := s.Submit(context.Background(), witness.Proof{OperationID: "op-1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := uuid.Parse(sub.CorrelationID); err != nil {
		t.Fatalf("correlation id %q is not a UUID: %v", sub.CorrelationID, err)
	}
	if caller.calls[0].reference != sub.CorrelationID {
		t.Fatalf("gateway reference %q does not match correlation id %q",
			caller.calls[0].reference, sub.CorrelationID)
	}

	again, err := s.Submit(context.Background(), witness.Proof{OperationID: "op-1"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if again.CorrelationID == sub.CorrelationID {
		t.Fatal("correlation id reused across attempts")
	}
}

func TestSubmitWrapsGatewayError(t *testing.T) {
	caller := &stubCaller{err: errors.New("gateway unavailable")}
	s := NewSubmitter(caller, 7421, quietLogger())

	if _, err := s.Submit(context.Background(), witness.Proof{OperationID: "op-1"}); err == nil {
		t.Fatal("expected error from failing gateway")
	}
}
