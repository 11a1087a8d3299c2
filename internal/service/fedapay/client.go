package fedapay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rufusakande/xpaie-client-backend/internal/apperrors"
	"github.com/rufusakande/xpaie-client-backend/internal/logger"
	"github.com/rufusakande/xpaie-client-backend/internal/models"
)

// Processor side transaction statuses
const (
	RemoteStatusPending  = "pending"
	RemoteStatusApproved = "approved"
	RemoteStatusDeclined = "declined"
	RemoteStatusCanceled = "canceled"
	RemoteStatusFailed   = "failed"
)

const (
	EnvSandbox = "sandbox"
	EnvLive    = "live"

	sandboxBaseURL = "https://sandbox-api.fedapay.com"
	liveBaseURL    = "https://api.fedapay.com"

	requestTimeout = 10 * time.Second
)

// Config is passed at construction, the client holds no process wide
// mutable state
type Config struct {
	APIKey      string
	Environment string // sandbox or live

	// BaseURL overrides the environment derived address, used in tests
	BaseURL string
}

type Client struct {
	apiKey  string
	baseURL string

	client *http.Client
	logger logger.Logger
}

func NewClient(c Config, l logger.Logger) *Client {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = sandboxBaseURL
		if c.Environment == EnvLive {
			baseURL = liveBaseURL
		}
	}

	return &Client{
		apiKey:  c.APIKey,
		baseURL: baseURL,
		client:  &http.Client{},
		logger:  l,
	}
}

// RemoteTransaction is the processor view of a transaction
type RemoteTransaction struct {
	ID     string
	Status string
}

type PaymentToken struct {
	Token string
	URL   string
}

type CreateTransactionParams struct {
	Amount      int64
	Currency    string
	Description string
	CallbackURL string
	Customer    models.Customer
}

// Wire format of the transaction resource. FedaPay wraps single resources
// under a 'v1/<name>' key and uses numeric ids.
type wireTransaction struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

type wireTransactionEnvelope struct {
	Transaction wireTransaction `json:"v1/transaction"`
}

type wireTokenEnvelope struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type wireError struct {
	Message string `json:"message"`
}

// CreateTransaction creates the remote transaction and returns its
// processor assigned id together with the initial status
func (c *Client) CreateTransaction(ctx context.Context, params CreateTransactionParams) (RemoteTransaction, error) {
	body := map[string]any{
		"description":  params.Description,
		"amount":       params.Amount,
		"currency":     map[string]string{"iso": params.Currency},
		"callback_url": params.CallbackURL,
		"customer": map[string]any{
			"firstname": params.Customer.Firstname,
			"lastname":  params.Customer.Lastname,
			"email":     params.Customer.Email,
			"phone_number": map[string]string{
				"number":  params.Customer.PhoneNumber,
				"country": params.Customer.Country,
			},
		},
	}

	var envelope wireTransactionEnvelope
	err := c.do(ctx, http.MethodPost, "/v1/transactions", body, &envelope)
	if err != nil {
		return RemoteTransaction{}, err
	}

	if envelope.Transaction.ID == 0 {
		return RemoteTransaction{}, &apperrors.ProcessorError{Code: "empty-transaction", Message: "processor returned transaction without id"}
	}

	return remoteFromWire(envelope.Transaction), nil
}

// GenerateToken obtains the hosted payment page url for a remote transaction
func (c *Client) GenerateToken(ctx context.Context, remoteID string) (PaymentToken, error) {
	var envelope wireTokenEnvelope
	err := c.do(ctx, http.MethodPost, "/v1/transactions/"+remoteID+"/token", nil, &envelope)
	if err != nil {
		return PaymentToken{}, err
	}

	if envelope.URL == "" {
		return PaymentToken{}, &apperrors.ProcessorError{Code: "empty-token", Message: "processor returned token without payment url"}
	}

	return PaymentToken{Token: envelope.Token, URL: envelope.URL}, nil
}

// GetTransactionStatus fetches the current remote status by processor id
func (c *Client) GetTransactionStatus(ctx context.Context, remoteID string) (RemoteTransaction, error) {
	var envelope wireTransactionEnvelope
	err := c.do(ctx, http.MethodGet, "/v1/transactions/"+remoteID, nil, &envelope)
	if err != nil {
		return RemoteTransaction{}, err
	}

	return remoteFromWire(envelope.Transaction), nil
}

func (c *Client) do(ctx context.Context, method string, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		// Network failure and timeout are retryable, the local transaction
		// stays pending
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%s %s: %v: %w", method, path, err, apperrors.ErrProcessorUnavailable)
	}
	defer resp.Body.Close() // nolint:errcheck

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.logger.Warn("Failed to decode processor response", "error", err, "path", path)
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var we wireError
		_ = json.NewDecoder(resp.Body).Decode(&we)
		if we.Message == "" {
			we.Message = "processor rejected the request"
		}
		c.logger.Warn("Processor rejected request", "status_code", resp.StatusCode, "message", we.Message, "path", path)
		return &apperrors.ProcessorError{Code: strconv.Itoa(resp.StatusCode), Message: we.Message}

	default:
		c.logger.Warn("Processor unavailable", "status_code", resp.StatusCode, "path", path)
		return fmt.Errorf("%s %s: status %d: %w", method, path, resp.StatusCode, apperrors.ErrProcessorUnavailable)
	}
}

func remoteFromWire(t wireTransaction) RemoteTransaction {
	return RemoteTransaction{
		ID:     strconv.FormatInt(t.ID, 10),
		Status: t.Status,
	}
}
