package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dejobratic/ordersync/internal/webhook"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	testSignatureKey    = "k1"
	testNotificationURL = "https://host.example/api/order-fulfillment-updated"
)

const testEventBody = `{
  "merchant_id": "5S9MXCS9Y99KK",
  "type": "order.fulfillment.updated",
  "event_id": "b3adf364-4937-436e-a833-49c72b4baee8",
  "data": {
    "type": "order",
    "id": "eA3vssLHKJrv9H0IdJCM3gNqfdcZY",
    "object": {
      "order_fulfillment_updated": {
        "fulfillment_update": [
          {"fulfillment_uid": "VWJ1N9leLqjSDLvF2hvYjD", "new_state": "RESERVED", "old_state": "PROPOSED"}
        ],
        "location_id": "FPYCBCHYMXFK1",
        "order_id": "eA3vssLHKJrv9H0IdJCM3gNqfdcZY",
        "state": "OPEN",
        "version": 6
      }
    }
  }
}`

type stubApplier struct {
	err   error
	calls int
}

func (s *stubApplier) Apply(ctx context.Context, event webhook.FulfillmentEvent) error {
	s.calls++
	return s.err
}

type stubEventLog struct{}

func (stubEventLog) Seen(ctx context.Context, eventID string) (bool, error) { return false, nil }
func (stubEventLog) Record(ctx context.Context, eventID, orderID string) error { return nil }

func newWebhookHandler(t *testing.T, applier webhook.Applier) *WebhookHandler {
	t.Helper()

	verifier, err := webhook.NewVerifier(testSignatureKey, testNotificationURL, false)
	if err != nil {
		t.Fatalf("NewVerifier() failed: %v", err)
	}

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := webhook.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipeline := webhook.NewPipeline(verifier, applier, stubEventLog{}, logger, m)
	return NewWebhookHandler(pipeline)
}

func signBody(body string) string {
	mac := hmac.New(sha1.New, []byte(testSignatureKey))
	mac.Write([]byte(testNotificationURL))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postNotification(handler *WebhookHandler, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/order-fulfillment-updated", strings.NewReader(body))
	if signature != "" {
		req.Header.Set(HeaderSquareSignature, signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler(t *testing.T) {
	t.Run("returns 200 for an applied update", func(t *testing.T) {
		applier := &stubApplier{}
		handler := newWebhookHandler(t, applier)

		rec := postNotification(handler, testEventBody, signBody(testEventBody))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if applier.calls != 1 {
			t.Errorf("expected 1 apply call, got %d", applier.calls)
		}
		if !strings.Contains(rec.Body.String(), `"applied"`) {
			t.Errorf("expected applied status in body, got: %s", rec.Body.String())
		}
	})

	t.Run("returns 200 for a skipped non-order event", func(t *testing.T) {
		applier := &stubApplier{}
		handler := newWebhookHandler(t, applier)
		body := `{"type":"payment.updated","event_id":"e1","data":{"id":"p1"}}`

		rec := postNotification(handler, body, signBody(body))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if applier.calls != 0 {
			t.Errorf("expected no apply calls, got %d", applier.calls)
		}
		if !strings.Contains(rec.Body.String(), `"skipped"`) {
			t.Errorf("expected skipped status in body, got: %s", rec.Body.String())
		}
	})

	t.Run("returns 401 for a missing signature", func(t *testing.T) {
		handler := newWebhookHandler(t, &stubApplier{})

		rec := postNotification(handler, testEventBody, "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("returns 401 for a forged signature", func(t *testing.T) {
		handler := newWebhookHandler(t, &stubApplier{})

		rec := postNotification(handler, testEventBody, "bm90IGEgcmVhbCBzaWduYXR1cmU=")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("returns 400 for a malformed payload", func(t *testing.T) {
		handler := newWebhookHandler(t, &stubApplier{})
		body := `status=RESERVED`

		rec := postNotification(handler, body, signBody(body))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 502 for a storage failure", func(t *testing.T) {
		handler := newWebhookHandler(t, &stubApplier{err: errors.New("connection refused")})

		rec := postNotification(handler, testEventBody, signBody(testEventBody))

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
	})

	t.Run("rejects non-POST methods", func(t *testing.T) {
		handler := newWebhookHandler(t, &stubApplier{})

		req := httptest.NewRequest(http.MethodGet, "/api/order-fulfillment-updated", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
	})
}
