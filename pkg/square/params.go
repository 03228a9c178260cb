package square

import (
	"strings"
	"unicode/utf8"

	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/OmarEhab007/cargoparts-sub002/pkg/errors"
)

// Square API field limits.
const (
	maxIdempotencyKeyLen = 45
	maxReferenceIDLen    = 40
	maxNoteLen           = 500
)

// PaymentCreateParams is one charge against an order. AmountMinor is in the
// minor unit of Currency; ReferenceID carries the order id so webhooks can be
// matched back without a lookup.
type PaymentCreateParams struct {
	AmountMinor    int64
	Currency       string
	LocationID     string
	SourceID       string
	IdempotencyKey string
	Note           string
	ReferenceID    string
}

func (p PaymentCreateParams) validate() error {
	var problems []string
	if p.AmountMinor <= 0 {
		problems = append(problems, "amount must be positive")
	}
	if len(strings.TrimSpace(p.Currency)) != 3 {
		problems = append(problems, "currency must be an ISO 4217 code")
	}
	if strings.TrimSpace(p.SourceID) == "" {
		problems = append(problems, "source_id is required")
	}
	if len(p.ReferenceID) > maxReferenceIDLen {
		problems = append(problems, "reference_id exceeds 40 characters")
	}
	if len(p.IdempotencyKey) > maxIdempotencyKeyLen {
		problems = append(problems, "idempotency key exceeds 45 characters")
	}
	if len(problems) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid square payment").
		WithDetails(map[string]any{"problems": problems})
}

func (p PaymentCreateParams) toSquareRequest(idempotencyKey string) *sq.CreatePaymentRequest {
	amount := p.AmountMinor
	currency := sq.Currency(strings.ToUpper(strings.TrimSpace(p.Currency)))
	autocomplete := true
	return &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		SourceID:       p.SourceID,
		AmountMoney:    &sq.Money{Amount: &amount, Currency: &currency},
		Autocomplete:   &autocomplete,
		LocationID:     optional(p.LocationID),
		ReferenceID:    optional(p.ReferenceID),
		Note:           optional(truncateRunes(p.Note, maxNoteLen)),
	}
}

// optional maps blank strings to nil so Square applies its own default.
func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func truncateRunes(value string, max int) string {
	if utf8.RuneCountInString(value) <= max {
		return value
	}
	return string([]rune(value)[:max])
}
