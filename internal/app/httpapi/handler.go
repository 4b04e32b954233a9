package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	app "github.com/salvi-network/salvi-bridge/internal/app"
	domain "github.com/salvi-network/salvi-bridge/internal/app/domain/payment"
	paymentsvc "github.com/salvi-network/salvi-bridge/internal/app/services/payment"
)

// Options tunes the handler surface. A non-empty AuthToken gates every route
// except the health probe behind bearer authentication; AuditPath persists
// the request trail as JSONL. A zero RequestsPerSecond leaves rate limiting
// off; an empty CORSOrigins leaves cross-origin requests unanswered.
type Options struct {
	AuthToken         string
	AuditPath         string
	AuditLimit        int
	RequestsPerSecond float64
	Burst             int
	CORSOrigins       []string
}

// handler bundles HTTP endpoints for the bridge services.
type handler struct {
	app   *app.Application
	audit *auditLog
}

// NewHandler returns the bridge REST API.
func NewHandler(application *app.Application, opts Options) (http.Handler, error) {
	sink, err := newFileAuditSink(opts.AuditPath)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}

	h := &handler{app: application, audit: newAuditLog(opts.AuditLimit, sink)}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/v1/relay/channels", h.relayChannels)
	mux.HandleFunc("/v1/relay/channels/", h.relayChannel)
	mux.HandleFunc("/v1/payments", h.payments)
	mux.HandleFunc("/v1/payments/", h.paymentResources)
	mux.HandleFunc("/v1/audit", h.auditEntries)

	var out http.Handler = mux
	if opts.AuthToken != "" {
		out = requireBearer(opts.AuthToken, out)
	}
	if opts.RequestsPerSecond > 0 {
		out = newRateLimiter(opts.RequestsPerSecond, opts.Burst).wrap(out)
	}
	if len(opts.CORSOrigins) > 0 {
		out = newCORSPolicy(opts.CORSOrigins).wrap(out)
	}
	return h.record(out), nil
}

// record wraps the handler so every request, authorized or not, lands in the
// audit trail.
func (h *handler) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		h.audit.add(auditEntry{
			Time:       time.Now().UTC(),
			Path:       r.URL.Path,
			Method:     r.Method,
			Status:     sw.status,
			RemoteAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
		})
	})
}

func requireBearer(token string, next http.Handler) http.Handler {
	want := []byte("Bearer " + token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeError(w, http.StatusUnauthorized, fmt.Errorf("missing or invalid bearer token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) relayChannels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	channels, err := h.app.RelayChannels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, channels)
}

func (h *handler) relayChannel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	channelID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/relay/channels"), "/")
	if channelID == "" || strings.Contains(channelID, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	status, err := h.app.RelayChannel(r.Context(), channelID)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, app.ErrChannelNotBound) {
			code = http.StatusNotFound
		}
		writeError(w, code, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handler) payments(w http.ResponseWriter, r *http.Request) {
	if h.app.Payments == nil {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("payment service not configured"))
		return
	}

	switch r.Method {
	case http.MethodPost:
		var payload struct {
			OperationID string `json:"operation_id"`
			Amount      string `json:"amount"`
			Currency    string `json:"currency"`
			Destination string `json:"destination"`
			Memo        string `json:"memo"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		resp, err := h.app.Payments.Submit(r.Context(), domain.Request{
			OperationID: payload.OperationID,
			Amount:      payload.Amount,
			Currency:    payload.Currency,
			Destination: payload.Destination,
			Memo:        payload.Memo,
		})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, paymentsvc.ErrInvalidRequest) {
				status = http.StatusBadRequest
			}
			writeError(w, status, err)
			return
		}
		writeJSON(w, http.StatusCreated, resp)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) paymentResources(w http.ResponseWriter, r *http.Request) {
	if h.app.Payments == nil {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("payment service not configured"))
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/payments"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	txHash := parts[0]

	switch {
	case len(parts) == 1:
		status, err := h.app.Payments.Status(r.Context(), txHash)
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, paymentsvc.ErrInvalidRequest) {
				code = http.StatusBadRequest
			}
			writeError(w, code, err)
			return
		}
		writeJSON(w, http.StatusOK, status)

	case len(parts) == 2 && parts[1] == "verify":
		verification, err := h.app.Payments.Verify(r.Context(), txHash)
		if err != nil {
			code := http.StatusInternalServerError
			if errors.Is(err, paymentsvc.ErrInvalidRequest) {
				code = http.StatusBadRequest
			}
			writeError(w, code, err)
			return
		}
		writeJSON(w, http.StatusOK, verification)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = parsed
	}
	writeJSON(w, http.StatusOK, h.audit.listLimit(limit))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
