package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMalformedEvent = errors.New("malformed webhook event")

// WebhookEvent is the part of a gateway delivery the service acts on.
type WebhookEvent struct {
	Event            string
	PaymentID        string
	OrderID          string
	Amount           int64
	Currency         string
	Status           string
	ErrorDescription string
	Notes            map[string]string
}

type webhookWire struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string          `json:"id"`
				OrderID          string          `json:"order_id"`
				Amount           int64           `json:"amount"`
				Currency         string          `json:"currency"`
				Status           string          `json:"status"`
				ErrorDescription string          `json:"error_description"`
				Notes            json.RawMessage `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhookEvent decodes a delivery whose signature has already been
// checked against the same bytes.
func ParseWebhookEvent(raw []byte) (*WebhookEvent, error) {
	var wire webhookWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if wire.Event == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedEvent)
	}
	p := wire.Payload.Payment.Entity
	return &WebhookEvent{
		Event:            wire.Event,
		PaymentID:        p.ID,
		OrderID:          p.OrderID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           p.Status,
		ErrorDescription: p.ErrorDescription,
		Notes:            decodeNotes(p.Notes),
	}, nil
}

// EventID returns the delivery key: the gateway's event id header when sent,
// otherwise one derived from the event type and payment.
func (e *WebhookEvent) EventID(header string, raw []byte) string {
	if header != "" {
		return header
	}
	if e.PaymentID != "" {
		return e.Event + ":" + e.PaymentID
	}
	return e.Event + ":" + bodyDigest(raw)
}

// EventTypeMalformed labels deliveries whose body could not be decoded.
const EventTypeMalformed = "malformed"

// MalformedEventID keys a delivery that failed to parse, so redeliveries of
// the same bytes land on the same row.
func MalformedEventID(header string, raw []byte) string {
	if header != "" {
		return header
	}
	return EventTypeMalformed + ":" + bodyDigest(raw)
}

func bodyDigest(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}
