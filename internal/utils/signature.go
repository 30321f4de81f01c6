package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyWebhookSignature checks a payment provider callback signature.
// The provider signs the raw request body with HMAC-SHA256 using the
// shared webhook secret and sends the hex digest in a header; the
// callback payload may only be trusted when the digest matches.
// Comparison is constant-time.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
