package relay

import (
	"testing"

	"github.com/salvi-network/salvi-bridge/internal/app/domain/witness"
)

func TestVerify(t *testing.T) {
	v := NewVerifier()

	cases := []struct {
		name       string
		record     witness.Record
		wantValid  bool
		wantReason string
	}{
		{
			name: "complete record",
			record: witness.Record{
				TransactionID:      "0.0.900@1712000000.000000001",
				ConsensusTimestamp: "1712000000.000000100",
				Contents:           []byte(`{"operation_id":"op-1"}`),
			},
			wantValid: true,
		},
		{
			name: "missing transaction id",
			record: witness.Record{
				ConsensusTimestamp: "1712000000.000000100",
				Contents:           []byte("x"),
			},
			wantReason: ReasonMissingFields,
		},
		{
			name: "missing consensus timestamp",
			record: witness.Record{
				TransactionID: "0.0.900@1712000000.000000001",
				Contents:      []byte("x"),
			},
			wantReason: ReasonMissingFields,
		},
		{
			name: "whitespace transaction id",
			record: witness.Record{
				TransactionID:      "   ",
				ConsensusTimestamp: "1712000000.000000100",
				Contents:           []byte("x"),
			},
			wantReason: ReasonMissingFields,
		},
		{
			name: "empty contents",
			record: witness.Record{
				TransactionID:      "0.0.900@1712000000.000000001",
				ConsensusTimestamp: "1712000000.000000100",
			},
			wantReason: ReasonEmptyContents,
		},
		{
			name:       "missing fields reported before empty contents",
			record:     witness.Record{},
			wantReason: ReasonMissingFields,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := v.Verify(tc.record)
			if got.Valid != tc.wantValid {
				t.Fatalf("Valid = %v, want %v", got.Valid, tc.wantValid)
			}
			if got.Reason != tc.wantReason {
				t.Fatalf("Reason = %q, want %q", got.Reason, tc.wantReason)
			}
		})
	}
}

func TestVerifyIgnoresRunningHash(t *testing.T) {
	v := NewVerifier()

	rec := witness.Record{
		TransactionID:      "0.0.900@1712000000.000000001",
		ConsensusTimestamp: "1712000000.000000100",
		Contents:           []byte(`{"operation_id":"op-1"}`),
		RunningHash:        "definitely-not-a-real-hash",
	}

	if got := v.Verify(rec); !got.Valid {
		t.Fatalf("record with bogus running hash rejected: %q", got.Reason)
	}
}

func TestVerifyChainHash(t *testing.T) {
	v := NewVerifier()

	if !v.VerifyChainHash("abc123", "abc123") {
		t.Fatal("matching hashes reported as mismatch")
	}
	if v.VerifyChainHash("abc123", "abc124") {
		t.Fatal("differing hashes reported as match")
	}
	if v.VerifyChainHash("", "abc123") {
		t.Fatal("empty computed hash reported as match")
	}
}
