// Package credits is the HTTP client for the remote billing collaborator
// that holds a merchant's prepaid credits.
package credits

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

	"github.com/amadolemli/factureman-sub000/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const chargePath = "/v1/credits/charges"

var (
	// ErrUnavailable means the collaborator could not be reached or the breaker is open.
	// Callers treat it as a transport failure, never as a definitive refusal.
	ErrUnavailable = errors.New("credits service unavailable")
	// ErrRejected is a definitive refusal other than insufficient credits
	ErrRejected = errors.New("credits charge rejected")
)

// Config holds credits client settings
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration
	BreakerFailureThreshold uint32
}

// DefaultConfig returns conservative breaker settings
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:                 baseURL,
		Timeout:                 10 * time.Second,
		BreakerMaxRequests:      1,
		BreakerInterval:         time.Minute,
		BreakerTimeout:          30 * time.Second,
		BreakerFailureThreshold: 3,
	}
}

type chargeRequest struct {
	OwnerID   string `json:"owner_id"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client implements billing.CreditCharger over HTTP behind a circuit breaker
type Client struct {
	config     Config
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a credits client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("credits: base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerFailureThreshold == 0 {
		cfg.BreakerFailureThreshold = 3
	}
	logger = logger.Named("credits")

	settings := gobreaker.Settings{
		Name:        "credits",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailureThreshold
		},
		// A refusal proves the collaborator is healthy
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, billing.ErrInsufficientCredits) || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
	}, nil
}

// ChargeCredits debits amount from the owner's credits. It returns
// billing.ErrInsufficientCredits on a 402 and ErrUnavailable on transport
// failures, 5xx responses or an open breaker.
func (c *Client) ChargeCredits(ctx context.Context, ownerID uuid.UUID, amount decimal.Decimal, reference string) error {
	body, err := json.Marshal(chargeRequest{
		OwnerID:   ownerID.String(),
		Amount:    amount.String(),
		Reference: reference,
	})
	if err != nil {
		return fmt.Errorf("credits: failed to encode request: %w", err)
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.doCharge(ctx, body)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.logger.Warn("Credits charge short-circuited", zap.String("reference", reference), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case err != nil:
		return err
	}

	c.logger.Debug("Credits charged",
		zap.String("owner_id", ownerID.String()),
		zap.String("amount", amount.String()),
		zap.String("reference", reference),
	)
	return nil
}

// State returns the breaker state
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) doCharge(ctx context.Context, body []byte) error {
	url := strings.TrimRight(c.config.BaseURL, "/") + chargePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("credits: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusPaymentRequired:
		return billing.ErrInsufficientCredits
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrUnavailable, resp.StatusCode)
	}

	var errResp errorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Code != "" {
		return fmt.Errorf("%w: %s - %s", ErrRejected, errResp.Code, errResp.Message)
	}
	return fmt.Errorf("%w: HTTP %d", ErrRejected, resp.StatusCode)
}

var _ billing.CreditCharger = (*Client)(nil)
