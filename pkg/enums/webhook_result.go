package enums

// WebhookResult is the audit outcome stored with a processed webhook event.
type WebhookResult string

const (
	WebhookResultApplied           WebhookResult = "applied"
	WebhookResultRecorded          WebhookResult = "recorded"
	WebhookResultDuplicate         WebhookResult = "duplicate"
	WebhookResultOrderNotFound     WebhookResult = "order_not_found"
	WebhookResultIgnoredTransition WebhookResult = "ignored_transition"
	WebhookResultAmountMismatch    WebhookResult = "amount_mismatch"
	// WebhookResultMalformed is a verified delivery whose body could not be
	// decoded. It is recorded and acknowledged, never applied.
	WebhookResultMalformed WebhookResult = "malformed"
)
