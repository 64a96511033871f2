package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coursehub/internal/domain"
)

var (
	ErrOrderNotFound = errors.New("gateway order not found")
	// ErrGatewayRejected is a 4xx other than an auth failure: the request
	// itself was refused and resending it unchanged will not help.
	ErrGatewayRejected = errors.New("gateway rejected request")
)

type Config struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Timeout       time.Duration
}

// Client talks to the Razorpay orders API. It holds the credentials and is
// passed explicitly to whoever needs it.
type Client struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	http          *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.razorpay.com"
	}
	return &Client{
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       base,
		http:          &http.Client{Timeout: timeout},
	}
}

type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID         string            `json:"id"`
	Amount     int64             `json:"amount"`
	AmountPaid int64             `json:"amount_paid"`
	Currency   string            `json:"currency"`
	Receipt    string            `json:"receipt"`
	Status     string            `json:"status"`
	Notes      map[string]string `json:"-"`
}

type orderWire struct {
	Order
	RawNotes json.RawMessage `json:"notes"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder is never retried here: a retry after an ambiguous failure could
// create a second order for the same purchase intent.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	if orderID == "" {
		return nil, ErrOrderNotFound
	}
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID, paymentID, signature, c.keySecret)
}

func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return VerifyWebhookSignature(rawBody, signature, c.webhookSecret)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out *Order) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return ErrOrderNotFound
	}
	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(respBody, &apiErr)
		kind := domain.ErrGatewayUnavailable
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
			kind = ErrGatewayRejected
		}
		return fmt.Errorf("%w: status=%d code=%s description=%s",
			kind, resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
	}

	var wire orderWire
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return fmt.Errorf("%w: decode order: %v", domain.ErrGatewayUnavailable, err)
	}
	*out = wire.Order
	out.Notes = decodeNotes(wire.RawNotes)
	return nil
}

// decodeNotes accepts both an object and the empty array the API returns for
// orders created without notes.
func decodeNotes(raw json.RawMessage) map[string]string {
	notes := map[string]string{}
	if len(raw) == 0 || raw[0] != '{' {
		return notes
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return notes
	}
	for k, v := range generic {
		notes[k] = fmt.Sprint(v)
	}
	return notes
}
