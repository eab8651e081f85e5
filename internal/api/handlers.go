package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/okellohq/sociapay/internal/domain"
)

// Metrics
var (
	httpReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sociapay_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sociapay_http_request_duration_seconds",
		Help:    "Request latency",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method", "endpoint"})
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// webhookEnvelope is the normalized inbound event adapters deliver. Platform
// SDK envelope decoding and signature verification happen in the adapter,
// upstream of this endpoint.
type webhookEnvelope struct {
	SenderID     string    `json:"sender_id"`
	SenderHandle string    `json:"sender_handle"`
	Text         string    `json:"text"`
	MessageID    string    `json:"message_id"`
	Timestamp    time.Time `json:"timestamp"`
}

func (a *API) handleWebhook(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpLatency.WithLabelValues("POST", "/api/webhooks"))
	defer timer.ObserveDuration()

	p := domain.Platform(mux.Vars(r)["platform"])
	if !domain.IsKnownPlatform(p) {
		a.respondError(w, http.StatusNotFound, "unknown platform", "POST", "/api/webhooks")
		return
	}

	var envelope webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body", "POST", "/api/webhooks")
		return
	}
	if envelope.SenderID == "" || envelope.Text == "" || envelope.MessageID == "" {
		a.respondError(w, http.StatusBadRequest, "sender_id, text and message_id are required", "POST", "/api/webhooks")
		return
	}
	if envelope.Timestamp.IsZero() {
		envelope.Timestamp = time.Now()
	}

	msg := domain.Message{
		Platform:     p,
		SenderID:     envelope.SenderID,
		SenderHandle: envelope.SenderHandle,
		Text:         envelope.Text,
		MessageID:    envelope.MessageID,
		Timestamp:    envelope.Timestamp,
	}

	if err := a.handler.HandleMessage(r.Context(), msg); err != nil {
		a.respondError(w, http.StatusServiceUnavailable, err.Error(), "POST", "/api/webhooks")
		return
	}

	a.respondJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"}, "POST", "/api/webhooks")
}

// Protected handlers

func (a *API) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sender := r.URL.Query().Get("sender")
	if sender == "" {
		a.respondError(w, http.StatusBadRequest, "sender query parameter is required", "GET", "/api/admin/transactions")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			a.respondError(w, http.StatusBadRequest, "invalid limit", "GET", "/api/admin/transactions")
			return
		}
		limit = parsed
	}

	txs, err := a.transactions.ListBySender(r.Context(), sender, limit)
	if err != nil {
		a.respondError(w, http.StatusInternalServerError, "failed to list transactions", "GET", "/api/admin/transactions")
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	a.respondJSON(w, http.StatusOK, txs, "GET", "/api/admin/transactions")
}

func (a *API) handlePlatformStatuses(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, a.registry.Statuses(), "GET", "/api/admin/platforms")
}

// Helpers

func (a *API) respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpReqTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func (a *API) respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	a.respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
