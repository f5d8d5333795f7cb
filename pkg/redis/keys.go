package redis

import "strings"

const keyNamespace = "gb"

// Key families. Changing one orphans every key already written under it.
const (
	idempotencyPrefix = "idempotency"
	rateLimitPrefix   = "rate_limit"
	wizardPrefix      = "wizard"
	lockPrefix        = "lock"
	guestCartPrefix   = "guest_cart"
	sessionPrefix     = "session"
)

// key joins parts under the namespace, trimming each and skipping empties.
func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			b.WriteByte(':')
			b.WriteString(p)
		}
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return key(idempotencyPrefix, scope, id) }

// RateLimitKey names one limiter window counter.
func (c *Client) RateLimitKey(scope string) string { return key(rateLimitPrefix, scope) }

func (c *Client) WizardKey(wizardID string) string { return key(wizardPrefix, wizardID) }

func (c *Client) LockKey(scope, id string) string { return key(lockPrefix, scope, id) }

// GuestCartKey names the hash of one guest cart, one field per experience.
func (c *Client) GuestCartKey(token string) string { return key(guestCartPrefix, token) }

// AccessSessionKey maps an access token id to its session hash.
func (c *Client) AccessSessionKey(accessID string) string { return key(sessionPrefix, accessID) }
