package redis

import "strings"

// Every key the engine writes lives under this prefix so a shared Redis can
// be scanned or flushed per application.
const keyNamespace = "cp"

const (
	idempotencyPrefix = "idempotency"
	counterPrefix     = "counter"
	webhookPrefix     = "webhook"
	lockPrefix        = "lock"
)

// IdempotencyKey scopes a client-supplied Idempotency-Key.
func (c *Client) IdempotencyKey(scope, id string) string {
	return key(idempotencyPrefix, scope, id)
}

func (c *Client) CounterKey(name string) string {
	return key(counterPrefix, name)
}

// WebhookKey is the processed marker for one provider delivery.
func (c *Client) WebhookKey(provider, eventID string) string {
	return key(webhookPrefix, provider, eventID)
}

func (c *Client) LockKey(name string) string {
	return key(lockPrefix, name)
}

// key joins non-empty parts under the namespace with ':'.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}
