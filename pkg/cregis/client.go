package cregis

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

	"github.com/google/uuid"

	"github.com/apexmarkets/crm-backend/pkg/config"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

const (
	checkoutPath = "/api/v2/checkout"

	// codeOK is the gateway's success code.
	codeOK = "00000"

	minValidTimeMinutes = 10
	maxValidTimeMinutes = 60
)

var (
	errAPIKeyRequired     = errors.New("cregis api key is required")
	errGatewayURLRequired = errors.New("cregis gateway url is required")
	errProjectIDRequired  = errors.New("cregis project id is required")
	errLoggerRequired     = errors.New("cregis logger is required")
)

// Client wraps the Cregis payment engine HTTP API. The API key doubles as the
// request/callback signing secret.
type Client struct {
	projectID  int
	apiKey     string
	gatewayURL string
	httpClient *http.Client
	cfg        config.CregisConfig
	logger     *logger.Logger
}

// CheckoutParams captures the caller-supplied inputs for a payment order.
type CheckoutParams struct {
	OrderID       string
	OrderAmount   string
	OrderCurrency string
	PayerID       string
}

// PaymentInfo is a single receiving option returned by the gateway.
type PaymentInfo struct {
	Chain          string `json:"chain"`
	Token          string `json:"token"`
	PaymentAddress string `json:"payment_address"`
}

// Checkout is the parsed result of a successful checkout call.
type Checkout struct {
	CregisID    string
	OrderID     string
	CheckoutURL string
	PaymentInfo []PaymentInfo
	ExpireTime  int64
}

// NewClient initializes the Cregis wrapper and validates the credentials.
func NewClient(cfg config.CregisConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	if cfg.ProjectID <= 0 {
		return nil, errProjectIDRequired
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	gatewayURL := strings.TrimRight(strings.TrimSpace(cfg.GatewayURL), "/")
	if gatewayURL == "" {
		return nil, errGatewayURLRequired
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		projectID:  cfg.ProjectID,
		apiKey:     apiKey,
		gatewayURL: gatewayURL,
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		logger:     logg,
	}, nil
}

// SigningSecret returns the secret used to verify callback signatures.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.apiKey
}

// CreateCheckout creates a payment order with the gateway and returns the
// hosted checkout details. The valid time window is clamped to the range the
// gateway accepts.
func (c *Client) CreateCheckout(ctx context.Context, params CheckoutParams) (*Checkout, error) {
	amount := strings.TrimSpace(params.OrderAmount)
	if amount == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount is required")
	}
	currency := strings.TrimSpace(params.OrderCurrency)
	if currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order currency is required")
	}
	orderID := strings.TrimSpace(params.OrderID)
	if orderID == "" {
		orderID = uuid.NewString()
	}

	validTime := clampValidTime(c.cfg.ValidTimeMinutes)

	payload := map[string]string{
		"pid":            strconv.Itoa(c.projectID),
		"nonce":          strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		"timestamp":      strconv.FormatInt(time.Now().UnixMilli(), 10),
		"order_id":       orderID,
		"order_amount":   amount,
		"order_currency": currency,
		"callback_url":   strings.TrimSpace(c.cfg.CallbackURL),
		"success_url":    strings.TrimSpace(c.cfg.SuccessURL),
		"cancel_url":     strings.TrimSpace(c.cfg.CancelURL),
		"valid_time":     strconv.Itoa(validTime),
	}
	if payerID := strings.TrimSpace(params.PayerID); payerID != "" {
		payload["payer_id"] = payerID
	}
	payload[SignField] = Sign(payload, c.apiKey)

	body, err := json.Marshal(checkoutWireRequest(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding checkout request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL+checkoutPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building checkout request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling cregis checkout")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading cregis response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("cregis checkout returned status %d", resp.StatusCode))
	}

	var envelope struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			CregisID    string        `json:"cregis_id"`
			CheckoutURL string        `json:"checkout_url"`
			PaymentInfo []PaymentInfo `json:"payment_info"`
			ExpireTime  int64         `json:"expire_time"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding cregis response")
	}
	if envelope.Code != codeOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("cregis checkout error %s: %s", envelope.Code, envelope.Msg))
	}
	if len(envelope.Data.PaymentInfo) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cregis checkout returned no payment info")
	}

	return &Checkout{
		CregisID:    envelope.Data.CregisID,
		OrderID:     orderID,
		CheckoutURL: envelope.Data.CheckoutURL,
		PaymentInfo: envelope.Data.PaymentInfo,
		ExpireTime:  envelope.Data.ExpireTime,
	}, nil
}

// checkoutWireRequest rebuilds the typed JSON body from the signed string
// params so numeric fields go out as numbers, matching the gateway contract.
func checkoutWireRequest(params map[string]string) map[string]any {
	wire := make(map[string]any, len(params))
	for k, v := range params {
		switch k {
		case "pid", "timestamp", "valid_time":
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				wire[k] = n
				continue
			}
			wire[k] = v
		default:
			wire[k] = v
		}
	}
	return wire
}

func clampValidTime(minutes int) int {
	if minutes < minValidTimeMinutes {
		return minValidTimeMinutes
	}
	if minutes > maxValidTimeMinutes {
		return maxValidTimeMinutes
	}
	return minutes
}
