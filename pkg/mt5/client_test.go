package mt5

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apexmarkets/crm-backend/pkg/config"
	pkgerrors "github.com/apexmarkets/crm-backend/pkg/errors"
	"github.com/apexmarkets/crm-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("error")})
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(config.MT5Config{
		APIURL:         url,
		APIToken:       "manager-token",
		RequestTimeout: 5 * time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestCreditSuccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(CreditResult{Success: true, Message: "ok"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Credit(context.Background(), 100234, decimal.RequireFromString("250.5"), "deposit dep-1")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	if gotPath != "/api/Users/100234/AddClientBalance" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer manager-token" {
		t.Fatalf("unexpected auth header %q", gotAuth)
	}
	if gotBody["balance"] != 250.5 {
		t.Fatalf("unexpected balance %v", gotBody["balance"])
	}
	if gotBody["comment"] != "deposit dep-1" {
		t.Fatalf("unexpected comment %v", gotBody["comment"])
	}
}

func TestCreditPlatformRefusal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(CreditResult{Success: false, Message: "account disabled"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Credit(context.Background(), 100234, decimal.NewFromInt(10), "deposit dep-2")
	if err == nil {
		t.Fatal("expected refusal error")
	}
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreditServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	err := client.Credit(context.Background(), 100234, decimal.NewFromInt(10), "deposit dep-3")
	if err == nil {
		t.Fatal("expected error")
	}
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCreditValidatesInput(t *testing.T) {
	client := newTestClient(t, "https://mt5.example.com")

	if err := client.Credit(context.Background(), 0, decimal.NewFromInt(10), "c"); err == nil {
		t.Fatal("expected error for invalid login")
	}
	if err := client.Credit(context.Background(), 1, decimal.Zero, "c"); err == nil {
		t.Fatal("expected error for non-positive amount")
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(config.MT5Config{APIURL: " "}, testLogger()); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := NewClient(config.MT5Config{APIURL: "https://mt5.example.com"}, nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
}
