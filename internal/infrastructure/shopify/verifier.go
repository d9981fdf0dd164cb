package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// WebhookVerifier checks the X-Shopify-Hmac-SHA256 header against the
// exact raw request bytes. The body must never be re-serialized before
// verification; any transformation changes the signed bytes.
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier for the shared app secret.
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Verify returns nil only when the claimed base64 signature matches
// the HMAC-SHA256 of body under the secret. Decoding failures and
// length mismatches are verification failures, not errors to surface
// upstream. The comparison is constant time.
func (v *WebhookVerifier) Verify(body []byte, claimedBase64 string) error {
	if claimedBase64 == "" {
		return fmt.Errorf("missing signature")
	}
	claimed, err := base64.StdEncoding.DecodeString(claimedBase64)
	if err != nil {
		return fmt.Errorf("signature is not valid base64")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	expected := mac.Sum(nil)

	if len(claimed) != len(expected) {
		return fmt.Errorf("signature mismatch")
	}
	if subtle.ConstantTimeCompare(claimed, expected) != 1 {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

// Sign computes the base64 HMAC for a body. Used by tests and the demo
// seeder to produce valid deliveries.
func (v *WebhookVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
