package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
	"github.com/OmarEhab007/cargoparts-sub002/pkg/pagination"
)

type lineRequest struct {
	ListingID uuid.UUID `json:"listing_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=100"`
}

type testRequest struct {
	Status   string        `json:"status" validate:"required,order_status"`
	Reason   *string       `json:"reason,omitempty" validate:"omitempty,cancel_reason"`
	Provider string        `json:"provider,omitempty" validate:"omitempty,payment_provider"`
	Items    []lineRequest `json:"items,omitempty" validate:"omitempty,unique=ListingID,dive"`
}

func postJSON(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func validationDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, _ := typed.Details().(map[string]string)
	return details
}

func TestDecodeJSONBodyAcceptsKnownEnums(t *testing.T) {
	var req testRequest
	err := DecodeJSONBody(postJSON(`{"status":"SHIPPED","reason":"seller_rejected","provider":"Square"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, "SHIPPED", req.Status)
}

func TestDecodeJSONBodyRejectsUnknownEnums(t *testing.T) {
	var req testRequest
	err := DecodeJSONBody(postJSON(`{"status":"LOST","reason":"bored","provider":"paypal"}`), &req)
	details := validationDetails(t, err)
	assert.Equal(t, "must be a known order status", details["status"])
	assert.Equal(t, "must be a known cancel reason", details["reason"])
	assert.Equal(t, "must be a supported payment provider", details["provider"])
}

func TestDecodeJSONBodyReportsNestedFieldPaths(t *testing.T) {
	listing := uuid.New()
	body := `{"status":"PENDING","items":[{"listing_id":"` + listing.String() + `","quantity":0}]}`
	var req testRequest
	details := validationDetails(t, DecodeJSONBody(postJSON(body), &req))
	assert.Equal(t, "is required", details["items[0].quantity"])
}

func TestDecodeJSONBodyRejectsDuplicateLines(t *testing.T) {
	listing := uuid.New().String()
	body := `{"status":"PENDING","items":[{"listing_id":"` + listing + `","quantity":1},{"listing_id":"` + listing + `","quantity":2}]}`
	var req testRequest
	details := validationDetails(t, DecodeJSONBody(postJSON(body), &req))
	assert.Equal(t, "must not contain duplicates", details["items"])
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":           ``,
		"unknown field":   `{"status":"PENDING","extra":true}`,
		"trailing object": `{"status":"PENDING"}{"status":"PENDING"}`,
		"oversized":       `{"status":"PENDING","reason":"` + strings.Repeat("x", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var req testRequest
			err := DecodeJSONBody(postJSON(body), &req)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "leave at gate", SanitizeString("  leave at gate \x00 ", 0))
	assert.Equal(t, "line one\nline two", SanitizeString("line one\nline two", 100))
	assert.Equal(t, "قطع", SanitizeString("قطع غيار", 3))
	assert.Equal(t, "", SanitizeString("   ", 10))
}

func TestParsePage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=10", nil)
	params, err := ParsePage(req)
	require.NoError(t, err)
	assert.Equal(t, pagination.Params{Limit: 10}, params)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	params, err = ParsePage(req)
	require.NoError(t, err)
	assert.Equal(t, pagination.DefaultLimit, params.Limit)

	req = httptest.NewRequest(http.MethodGet, "/?limit=0", nil)
	_, err = ParsePage(req)
	require.Error(t, err)

	req = httptest.NewRequest(http.MethodGet, "/?cursor=not-a-cursor", nil)
	_, err = ParsePage(req)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestParseURLUUID(t *testing.T) {
	id := uuid.New()
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("orderId", value)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	got, err := ParseURLUUID(withParam(id.String()), "orderId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	for _, raw := range []string{"", "abc", uuid.Nil.String()} {
		_, err := ParseURLUUID(withParam(raw), "orderId")
		require.Error(t, err, raw)
	}
}
