package square

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/config"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
)

func TestEnsureIdempotencyKey(t *testing.T) {
	c := &Client{}
	// Provided key should be used verbatim.
	if got := c.ensureIdempotencyKey("pref", "order:1:attempt:1"); got != "order:1:attempt:1" {
		t.Fatalf("expected provided key, got %q", got)
	}
	// Empty key should be generated and include prefix.
	if got := c.ensureIdempotencyKey("prefix", ""); !strings.HasPrefix(got, "prefix-") {
		t.Fatalf("generated idempotency key %q missing prefix", got)
	}
}

func TestRedact(t *testing.T) {
	c := &Client{}
	if out := c.redact("source_token", "cnon:card-nonce-ok"); out != "[REDACTED]" {
		t.Fatalf("expected redacted value, got %v", out)
	}
	if v := c.redact("status", "ok"); v != "ok" {
		t.Fatalf("unexpected redaction for safe key")
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	valid := config.SquareConfig{
		AccessToken:            "EAAA-token",
		LocationID:             "L1",
		WebhookSignatureKey:    "key",
		WebhookNotificationURL: "https://api.example.com/api/v1/webhooks/square",
	}

	if _, err := NewClient(context.Background(), valid, nil); !errors.Is(err, errLoggerRequired) {
		t.Fatalf("expected logger error, got %v", err)
	}

	missingLocation := valid
	missingLocation.LocationID = ""
	if _, err := NewClient(context.Background(), missingLocation, logg); !errors.Is(err, errLocationRequired) {
		t.Fatalf("expected location error, got %v", err)
	}

	badEnv := valid
	badEnv.Env = "staging"
	if _, err := NewClient(context.Background(), badEnv, logg); !errors.Is(err, errInvalidSquareEnv) {
		t.Fatalf("expected env error, got %v", err)
	}

	c, err := NewClient(context.Background(), valid, logg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.Environment() != sandboxEnv {
		t.Fatalf("expected sandbox default, got %q", c.Environment())
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event_id":"evt-1"}`)
	url := "https://api.example.com/api/v1/webhooks/square"
	sig := Sign("secret", url, body)

	if err := VerifySignature("secret", url, body, sig); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	for name, tc := range map[string]struct {
		key, url, sig string
		body          []byte
	}{
		"wrong key":      {"other", url, sig, body},
		"wrong url":      {"secret", url + "/x", sig, body},
		"tampered body":  {"secret", url, sig, []byte(`{"event_id":"evt-2"}`)},
		"missing header": {"secret", url, "", body},
	} {
		err := VerifySignature(tc.key, tc.url, tc.body, tc.sig)
		if !pkgerrors.IsCode(err, pkgerrors.CodeInvalidSignature) {
			t.Fatalf("%s: expected invalid signature, got %v", name, err)
		}
	}
}

func TestMapSquareError(t *testing.T) {
	c := &Client{}
	err := sqcore.NewAPIError(http.StatusPaymentRequired, errors.New(`{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"CARD_DECLINED"}]}`))
	typed := pkgerrors.As(c.mapSquareError(err, "create payment"))
	if typed == nil {
		t.Fatalf("result is not pkgerror")
	}
	if typed.Code() != pkgerrors.CodePaymentGateway {
		t.Fatalf("expected gateway code, got %s", typed.Code())
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["provider_status"] != http.StatusPaymentRequired {
		t.Fatalf("unexpected details %v", typed.Details())
	}
	if codes := details["provider_codes"].([]string); len(codes) != 1 || codes[0] != "CARD_DECLINED" {
		t.Fatalf("unexpected provider codes %v", codes)
	}

	network := pkgerrors.As(c.mapSquareError(errors.New("connection reset"), "create payment"))
	if network == nil || !pkgerrors.Retryable(network) {
		t.Fatalf("expected retryable gateway error, got %v", network)
	}
}

func TestCancelPaymentRequiresClient(t *testing.T) {
	c := &Client{}
	_, err := c.CancelPayment(context.Background(), "sq_pay_1")
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestExtractSquareErrors(t *testing.T) {
	c := &Client{}
	payload := `{"errors":[{"category":"API_ERROR","code":"BAD_REQUEST","detail":"oops"}]}`
	apiErr := sqcore.NewAPIError(http.StatusBadRequest, errors.New(payload))
	got := c.extractSquareErrors(apiErr)
	if len(got) != 1 {
		t.Fatalf("expected 1 error, got %d", len(got))
	}
	if got[0].GetCode() != sq.ErrorCodeBadRequest {
		t.Fatalf("unexpected error code %s", got[0].GetCode())
	}
}

func TestPaymentRequestUsesMinorUnits(t *testing.T) {
	req := PaymentCreateParams{
		AmountMinor: 31250,
		Currency:    "sar",
		LocationID:  "L1",
		SourceID:    "cnon:card-nonce-ok",
		ReferenceID: "order-1",
	}.toSquareRequest("order:1:attempt:1")

	if req.IdempotencyKey != "order:1:attempt:1" {
		t.Fatalf("unexpected idempotency key %q", req.IdempotencyKey)
	}
	if req.AmountMoney == nil || *req.AmountMoney.Amount != 31250 || *req.AmountMoney.Currency != sq.Currency("SAR") {
		t.Fatalf("unexpected amount %+v", req.AmountMoney)
	}
	if req.ReferenceID == nil || *req.ReferenceID != "order-1" {
		t.Fatalf("unexpected reference id %v", req.ReferenceID)
	}
}
