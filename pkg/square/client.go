package square

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/config"
	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/logger"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/money"
)

// SignatureHeader carries the base64 HMAC-SHA256 of notification URL + body.
const SignatureHeader = "x-square-hmacsha256-signature"

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAccessTokenRequired   = errors.New("square access token is required")
	errLocationRequired      = errors.New("square location id is required")
	errWebhookSecretRequired = errors.New("square webhook signature key is required")
	errNotificationURL       = errors.New("square webhook notification url is required")
	errInvalidSquareEnv      = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired        = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

// Client exposes Square payment primitives with centralized auth, logging,
// idempotency, and error mapping.
type Client struct {
	sdk             *sqclient.Client
	environment     string
	locationID      string
	signatureKey    string
	notificationURL string
	logger          *logger.Logger
}

// NewClient initializes the Square wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}
	locationID := strings.TrimSpace(cfg.LocationID)
	if locationID == "" {
		return nil, errLocationRequired
	}
	signatureKey := strings.TrimSpace(cfg.WebhookSignatureKey)
	if signatureKey == "" {
		return nil, errWebhookSecretRequired
	}
	notificationURL := strings.TrimSpace(cfg.WebhookNotificationURL)
	if notificationURL == "" {
		return nil, errNotificationURL
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURLs[env]),
		sqoption.WithToken(accessToken),
	)

	logg.Info(ctx, fmt.Sprintf("square client initialized (%s)", env))
	return &Client{
		sdk:             sdk,
		environment:     env,
		locationID:      locationID,
		signatureKey:    signatureKey,
		notificationURL: notificationURL,
		logger:          logg,
	}, nil
}

// Environment reports the normalized Square environment.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// NewIdempotencyKey returns a unique key for Square operations.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "cp"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// CreatePayment charges SourceID for the given amount at the configured
// location. Provider failures are returned as PAYMENT_GATEWAY_ERROR.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*sq.Payment, error) {
	if c == nil || c.sdk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square client not configured")
	}
	if params.LocationID == "" {
		params.LocationID = c.locationID
	}
	params.IdempotencyKey = c.ensureIdempotencyKey("pay", params.IdempotencyKey)
	if err := params.validate(); err != nil {
		return nil, err
	}
	req := params.toSquareRequest(params.IdempotencyKey)
	c.log(ctx, "request", "create_payment", map[string]any{
		"location_id":  params.LocationID,
		"reference_id": params.ReferenceID,
		"amount":       money.Format(params.AmountMinor, params.Currency),
		"source_token": params.SourceID,
	})

	resp, err := c.sdk.Payments.Create(ctx, req)
	if err != nil {
		c.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "create payment")
	}

	payment := resp.GetPayment()
	c.log(ctx, "response", "create_payment", map[string]any{
		"payment_id": stringValue(payment.GetID()),
		"status":     stringValue(payment.GetStatus()),
	})
	return payment, nil
}

// CancelPayment voids an approved payment that has not been completed.
func (c *Client) CancelPayment(ctx context.Context, paymentID string) (*sq.Payment, error) {
	if c == nil || c.sdk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square client not configured")
	}
	c.log(ctx, "request", "cancel_payment", map[string]any{"payment_id": paymentID})
	resp, err := c.sdk.Payments.Cancel(ctx, &sq.CancelPaymentsRequest{PaymentID: paymentID})
	if err != nil {
		c.log(ctx, "error", "cancel_payment", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err, "cancel payment")
	}
	payment := resp.GetPayment()
	c.log(ctx, "response", "cancel_payment", map[string]any{
		"payment_id": stringValue(payment.GetID()),
		"status":     stringValue(payment.GetStatus()),
	})
	return payment, nil
}

// VerifySignature checks a webhook delivery signature in constant time.
func (c *Client) VerifySignature(body []byte, signature string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeInvalidSignature, "square webhook verification not configured")
	}
	return VerifySignature(c.signatureKey, c.notificationURL, body, signature)
}

// VerifySignature is the key-explicit form of Client.VerifySignature.
func VerifySignature(signatureKey, notificationURL string, body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signatureKey == "" || signature == "" {
		return pkgerrors.New(pkgerrors.CodeInvalidSignature, "square signature missing")
	}
	expected := Sign(signatureKey, notificationURL, body)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return pkgerrors.New(pkgerrors.CodeInvalidSignature, "square signature mismatch")
	}
	return nil
}

// Sign computes the signature Square sends for body delivered to notificationURL.
func Sign(signatureKey, notificationURL string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(signatureKey))
	mac.Write([]byte(notificationURL))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) ensureIdempotencyKey(prefix, provided string) string {
	if strings.TrimSpace(provided) != "" {
		return provided
	}
	return c.NewIdempotencyKey(prefix)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("square %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("square %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"card", "nonce", "token", "cvv", "cvc", "secret", "email", "phone"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

// mapSquareError reports every rejected or failed call as a retryable gateway
// error; the order stays PENDING so the buyer can try again.
func (c *Client) mapSquareError(err error, op string) error {
	if err == nil {
		return nil
	}
	wrapped := pkgerrors.Wrap(pkgerrors.CodePaymentGateway, err, fmt.Sprintf("square %s failed", op))
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return wrapped
	}
	codes := make([]string, 0)
	for _, sqErr := range c.extractSquareErrors(apiErr) {
		if sqErr == nil {
			continue
		}
		codes = append(codes, string(sqErr.Code))
	}
	return wrapped.WithDetails(map[string]any{
		"provider_status": apiErr.StatusCode,
		"provider_codes":  codes,
	})
}

func (c *Client) extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	if apiErr == nil {
		return nil
	}
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	raw := strings.TrimSpace(inner.Error())
	if raw == "" {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = sandboxEnv
	}
	switch env {
	case sandboxEnv, productionEnv:
		return env, nil
	default:
		return "", errInvalidSquareEnv
	}
}
