package mt5

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apexmarkets/crm-backend/pkg/config"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

var (
	errAPIURLRequired = errors.New("mt5 api url is required")
	errLoggerRequired = errors.New("mt5 logger is required")
)

// Client wraps the trading platform manager API. Its single write operation
// credits a deposit onto an account balance.
type Client struct {
	apiURL     string
	apiToken   string
	httpClient *http.Client
	logger     *logger.Logger
}

// CreditResult is returned by the platform on a balance call.
type CreditResult struct {
	Success bool   `json:"Success"`
	Message string `json:"Message"`
}

// NewClient validates the configuration and returns a platform client.
func NewClient(cfg config.MT5Config, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	apiURL := strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if apiURL == "" {
		return nil, errAPIURLRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiURL:     apiURL,
		apiToken:   strings.TrimSpace(cfg.APIToken),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logg,
	}, nil
}

// Credit adds the amount to the account balance. Transport and 5xx failures
// come back as CodeDependency (retryable); a 2xx with Success=false comes back
// as CodeStateConflict (the platform refused the operation, retrying will not
// help). The comment travels to the platform as the operation's audit trail
// and carries the idempotency key.
func (c *Client) Credit(ctx context.Context, login int64, amount decimal.Decimal, comment string) error {
	if login <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid trading account login")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	balance, _ := amount.Float64()
	body, err := json.Marshal(map[string]any{
		"balance": balance,
		"comment": comment,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding credit request")
	}

	url := fmt.Sprintf("%s/api/Users/%s/AddClientBalance", c.apiURL, strconv.FormatInt(login, 10))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building credit request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling mt5 balance api")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading mt5 response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("mt5 balance api returned status %d", resp.StatusCode))
	}

	var result CreditResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding mt5 response")
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "mt5 balance api refused the operation"
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, msg)
	}
	return nil
}
