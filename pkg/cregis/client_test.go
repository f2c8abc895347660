package cregis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apexmarkets/crm-backend/pkg/config"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
}

func testConfig(gatewayURL string) config.CregisConfig {
	return config.CregisConfig{
		ProjectID:        1234,
		APIKey:           "test-api-key",
		GatewayURL:       gatewayURL,
		CallbackURL:      "https://crm.example.com/api/v1/webhooks/cregis",
		SuccessURL:       "https://crm.example.com/deposit/success",
		CancelURL:        "https://crm.example.com/deposit/cancel",
		RequestTimeout:   5 * time.Second,
		ValidTimeMinutes: 30,
	}
}

func TestCreateCheckoutSignsAndParses(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/checkout" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": "00000",
			"msg":  "success",
			"data": map[string]any{
				"cregis_id":    "cg-789",
				"checkout_url": "https://pay.example.com/cg-789",
				"payment_info": []map[string]any{
					{"chain": "TRON", "token": "USDT", "payment_address": "Txyz"},
				},
				"expire_time": 1700000000000,
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL), testLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	checkout, err := client.CreateCheckout(context.Background(), CheckoutParams{
		OrderID:       "ord-1",
		OrderAmount:   "100.00",
		OrderCurrency: "USDT",
	})
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}

	if checkout.CregisID != "cg-789" {
		t.Fatalf("unexpected cregis id %s", checkout.CregisID)
	}
	if checkout.OrderID != "ord-1" {
		t.Fatalf("unexpected order id %s", checkout.OrderID)
	}
	if len(checkout.PaymentInfo) != 1 || checkout.PaymentInfo[0].PaymentAddress != "Txyz" {
		t.Fatalf("unexpected payment info %+v", checkout.PaymentInfo)
	}

	if captured["pid"] != float64(1234) {
		t.Fatalf("pid must go out as a number, got %v", captured["pid"])
	}
	sign, _ := captured["sign"].(string)
	if sign == "" {
		t.Fatal("request must carry a signature")
	}

	// The signature must verify against the string form of the request.
	params := make(map[string]string, len(captured))
	for k, v := range captured {
		switch val := v.(type) {
		case string:
			params[k] = val
		case float64:
			params[k] = json.Number(jsonNumberString(val)).String()
		}
	}
	if !Verify(params, "test-api-key", sign) {
		t.Fatal("request signature did not verify")
	}
}

func jsonNumberString(v float64) string {
	b, _ := json.Marshal(int64(v))
	return string(b)
}

func TestCreateCheckoutGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": "40001", "msg": "ip not whitelisted"})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL), testLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.CreateCheckout(context.Background(), CheckoutParams{
		OrderAmount:   "50",
		OrderCurrency: "USDT",
	})
	if err == nil {
		t.Fatal("expected gateway error")
	}
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCreateCheckoutValidatesInput(t *testing.T) {
	client, err := NewClient(testConfig("https://gateway.example.com"), testLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.CreateCheckout(context.Background(), CheckoutParams{OrderCurrency: "USDT"}); err == nil {
		t.Fatal("expected error for missing amount")
	}
	if _, err := client.CreateCheckout(context.Background(), CheckoutParams{OrderAmount: "10"}); err == nil {
		t.Fatal("expected error for missing currency")
	}
}

func TestNewClientValidation(t *testing.T) {
	cfg := testConfig("https://gateway.example.com")
	cfg.APIKey = " "
	if _, err := NewClient(cfg, testLogger()); err == nil {
		t.Fatal("expected error for missing api key")
	}

	cfg = testConfig("https://gateway.example.com")
	cfg.ProjectID = 0
	if _, err := NewClient(cfg, testLogger()); err == nil {
		t.Fatal("expected error for missing project id")
	}

	if _, err := NewClient(testConfig("https://gateway.example.com"), nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
}

func TestClampValidTime(t *testing.T) {
	cases := map[int]int{0: 10, 9: 10, 10: 10, 30: 30, 60: 60, 120: 60}
	for in, want := range cases {
		if got := clampValidTime(in); got != want {
			t.Fatalf("clampValidTime(%d) = %d, want %d", in, got, want)
		}
	}
}
