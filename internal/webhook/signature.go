// Package webhook implements the Square order-fulfillment notification
// pipeline: signature verification, envelope decoding, and idempotent
// application of the carried state transition to the local order store.
package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
)

// RawNotification carries the untouched request body together with the
// signature header and the observed scheme/host. It lives only for the
// duration of one Handle call.
type RawNotification struct {
	Body      []byte
	Signature string
	Scheme    string
	Host      string
}

// Verifier checks that a notification was signed by Square. Square computes
// base64(HMAC-SHA1(key, notificationURL + body)) and sends it in the
// X-Square-Signature header.
type Verifier struct {
	signatureKey    string
	notificationURL string
	// path of notificationURL, reused when reconstructing the signed-over
	// URL from forwarded headers
	notificationPath string
	trustForwarded   bool
}

// NewVerifier builds a Verifier for the given shared key and canonical
// notification URL. When trustForwarded is set the signed-over URL is
// reconstructed from the request's observed scheme and host instead of the
// static URL; that is only sound behind a proxy that sanitizes forwarded
// headers.
func NewVerifier(signatureKey, notificationURL string, trustForwarded bool) (*Verifier, error) {
	parsed, err := url.Parse(notificationURL)
	if err != nil {
		return nil, fmt.Errorf("parse notification url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("notification url %q must be absolute", notificationURL)
	}

	return &Verifier{
		signatureKey:     signatureKey,
		notificationURL:  notificationURL,
		notificationPath: parsed.Path,
		trustForwarded:   trustForwarded,
	}, nil
}

// Verify reports whether the notification's signature matches the expected
// HMAC. It never panics; missing signature, empty body, or an unconfigured
// key all verify as false. Failures are logged without the key material.
func (v *Verifier) Verify(n RawNotification) bool {
	if v.signatureKey == "" || n.Signature == "" || len(n.Body) == 0 {
		return false
	}

	signedURL := v.signedURL(n)

	mac := hmac.New(sha1.New, []byte(v.signatureKey))
	mac.Write([]byte(signedURL))
	mac.Write(n.Body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(n.Signature)) {
		slog.Warn("webhook signature verification failed",
			"signed_url", signedURL,
			"body_bytes", len(n.Body),
		)
		return false
	}

	return true
}

func (v *Verifier) signedURL(n RawNotification) string {
	if !v.trustForwarded {
		return v.notificationURL
	}
	return n.Scheme + "://" + n.Host + v.notificationPath
}
