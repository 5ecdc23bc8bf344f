package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// SignatureHeader is the header the gateway signs webhook deliveries with.
const SignatureHeader = "x-paystack-signature"

// ValidateSignature checks the webhook HMAC over the exact raw body bytes.
// The gateway signs with HMAC-SHA512 using the account secret key and sends
// the hex digest in the signature header.
func (c *Client) ValidateSignature(body []byte, signature string) bool {
	return ValidateSignature(c.secretKey, body, signature)
}

// ValidateSignature verifies a webhook signature against the given secret.
func ValidateSignature(secret string, body []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
