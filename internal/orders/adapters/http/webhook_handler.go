package http

import (
	"io"
	"net/http"

	"github.com/dejobratic/ordersync/internal/webhook"
)

const (
	// HeaderSquareSignature carries the base64 HMAC-SHA1 digest Square
	// computed over the notification URL and body.
	HeaderSquareSignature = "X-Square-Signature"

	maxWebhookBody = 1 << 20 // 1 MiB
)

// WebhookHandler adapts the webhook pipeline to HTTP. It reads the raw body
// before any decoding, because the signature covers the exact bytes sent.
type WebhookHandler struct {
	pipeline *webhook.Pipeline
}

func NewWebhookHandler(pipeline *webhook.Pipeline) *WebhookHandler {
	return &WebhookHandler{pipeline: pipeline}
}

// ServeHTTP handles POST requests on the notification URL. Every request
// gets a response: the pipeline's terminal outcome maps onto exactly one
// status code.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	notification := webhook.RawNotification{
		Body:      body,
		Signature: r.Header.Get(HeaderSquareSignature),
		Scheme:    observedScheme(r),
		Host:      observedHost(r),
	}

	outcome := h.pipeline.Handle(r.Context(), notification)

	switch outcome.Status {
	case webhook.StatusApplied, webhook.StatusSkipped:
		writeJSON(w, http.StatusOK, map[string]any{"status": string(outcome.Status)})
	case webhook.StatusRejected:
		if outcome.Reason == webhook.ReasonMalformedPayload {
			writeError(w, http.StatusBadRequest, "malformed payload")
			return
		}
		writeError(w, http.StatusUnauthorized, "unauthorized request source")
	case webhook.StatusFailed:
		writeError(w, http.StatusBadGateway, "failed to apply fulfillment update")
	default:
		// the outcome enumeration is exhaustive; this is unreachable
		writeError(w, http.StatusInternalServerError, "unknown outcome")
	}
}

func observedScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func observedHost(r *http.Request) string {
	if host := r.Header.Get("X-Forwarded-Host"); host != "" {
		return host
	}
	return r.Host
}
