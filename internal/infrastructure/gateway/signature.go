package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// PaymentSignature is the hex HMAC-SHA256 of "orderID|paymentID" that the
// checkout widget hands back to the client after a successful payment.
func PaymentSignature(orderID, paymentID, secret string) string {
	return sign([]byte(orderID+"|"+paymentID), secret)
}

// WebhookSignature is the hex HMAC-SHA256 of the raw webhook body.
func WebhookSignature(rawBody []byte, secret string) string {
	return sign(rawBody, secret)
}

func VerifySignature(orderID, paymentID, provided, secret string) bool {
	return equal(PaymentSignature(orderID, paymentID, secret), provided)
}

// VerifyWebhookSignature must be given the body exactly as received; a
// re-serialized payload can differ byte-wise and fail the check.
func VerifyWebhookSignature(rawBody []byte, provided, secret string) bool {
	return equal(WebhookSignature(rawBody, secret), provided)
}

func sign(msg []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hex.EncodeToString(mac.Sum(nil))
}

// equal runs in time independent of where the first differing byte is.
func equal(expected, provided string) bool {
	if provided == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(provided))
}
