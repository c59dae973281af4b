package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/moonjewelry/pkg/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrDeclined means the provider answered but did not complete the payment.
	ErrDeclined = errors.New("payment declined")
	// ErrTransport covers network failures and unreadable responses.
	ErrTransport = errors.New("payment provider unreachable")
)

// Request is a single card charge.
type Request struct {
	SourceID       string
	IdempotencyKey string
	Amount         decimal.Decimal
	Currency       string
	Note           string
}

// Result is what the provider reports for an accepted payment.
type Result struct {
	PaymentID string
	Status    string
	Amount    int64
}

// Gateway charges a tokenized card.
type Gateway interface {
	CreatePayment(ctx context.Context, req Request) (*Result, error)
}

// MinorUnits converts a two-decimal currency amount to cents.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

type Client struct {
	config     *config.PaymentConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg *config.PaymentConfig, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createPaymentRequest struct {
	SourceID       string `json:"source_id"`
	IdempotencyKey string `json:"idempotency_key"`
	AmountMoney    money  `json:"amount_money"`
	LocationID     string `json:"location_id,omitempty"`
	Note           string `json:"note,omitempty"`
}

type apiError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

type createPaymentResponse struct {
	Payment *struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		AmountMoney money  `json:"amount_money"`
	} `json:"payment"`
	Errors []apiError `json:"errors"`
}

func (c *Client) CreatePayment(ctx context.Context, req Request) (*Result, error) {
	currency := req.Currency
	if currency == "" {
		currency = c.config.Currency
	}
	payload := createPaymentRequest{
		SourceID:       req.SourceID,
		IdempotencyKey: req.IdempotencyKey,
		AmountMoney:    money{Amount: MinorUnits(req.Amount), Currency: currency},
		LocationID:     c.config.LocationID,
		Note:           req.Note,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/v2/payments"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	if c.config.APIVersion != "" {
		httpReq.Header.Set("Square-Version", c.config.APIVersion)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	var out createPaymentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: status %d: %v", ErrTransport, resp.StatusCode, err)
	}

	if len(out.Errors) > 0 || resp.StatusCode >= 300 || out.Payment == nil {
		c.logger.Warn("Payment rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Any("errors", out.Errors))
		return nil, fmt.Errorf("%w: %s", ErrDeclined, describe(resp.StatusCode, out.Errors))
	}

	switch out.Payment.Status {
	case "COMPLETED", "APPROVED":
	default:
		return nil, fmt.Errorf("%w: status %s", ErrDeclined, out.Payment.Status)
	}

	return &Result{
		PaymentID: out.Payment.ID,
		Status:    out.Payment.Status,
		Amount:    out.Payment.AmountMoney.Amount,
	}, nil
}

func describe(status int, errs []apiError) string {
	if len(errs) == 0 {
		return fmt.Sprintf("http %d", status)
	}
	codes := make([]string, 0, len(errs))
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	return strings.Join(codes, ",")
}
