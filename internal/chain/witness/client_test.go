package witness

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMessagesBuildsQueryAndDecodes(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte(`{"operation_id":"op-1"}`))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/channels/0.0.4821/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("sequencenumber"); got != "gt:5" {
			t.Errorf("expected sequencenumber gt:5, got %q", got)
		}
		if got := q.Get("limit"); got != "10" {
			t.Errorf("expected limit 10, got %q", got)
		}
		if got := q.Get("order"); got != "asc" {
			t.Errorf("expected order asc, got %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer auth, got %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"messages":[
			{"channel_id":"0.0.4821","sequence_number":6,"transaction_id":"0.0.1001@1700000000.000000001","consensus_timestamp":"1700000000.000000100","message":%q,"running_hash":"aabbcc"},
			{"channel_id":"0.0.4821","sequence_number":7,"transaction_id":"0.0.1001@1700000001.000000001","consensus_timestamp":"1700000001.000000100","message":%q,"running_hash":"ddeeff"}
		]}`, payload, payload)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	records, err := client.Messages(context.Background(), "0.0.4821", 5, 10)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].SequenceNumber != 6 || records[1].SequenceNumber != 7 {
		t.Fatalf("unexpected sequence order: %d, %d", records[0].SequenceNumber, records[1].SequenceNumber)
	}
	if string(records[0].Contents) != `{"operation_id":"op-1"}` {
		t.Fatalf("contents not decoded: %q", records[0].Contents)
	}
	if records[0].RunningHash != "aabbcc" {
		t.Fatalf("unexpected running hash %q", records[0].RunningHash)
	}
}

func TestMessagesEmptyChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"messages":[]}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	records, err := client.Messages(context.Background(), "0.0.4821", 0, 10)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

func TestMessagesSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.Messages(context.Background(), "0.0.4821", 0, 10); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestMessagesUndecodablePayloadPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"messages":[{"channel_id":"0.0.4821","sequence_number":1,"transaction_id":"tx","consensus_timestamp":"ts","message":"not-base64!!","running_hash":"aa"}]}`)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	records, err := client.Messages(context.Background(), "0.0.4821", 0, 10)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if string(records[0].Contents) != "not-base64!!" {
		t.Fatalf("expected raw passthrough, got %q", records[0].Contents)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
}
