// Package idempotency records which outbox events a consumer has already
// handled so redelivered rows are acknowledged without side effects.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const processedScope = "evt:processed:"

type markStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Ledger is bound to one consumer. Marks expire after ttl; zero keeps them forever.
type Ledger struct {
	store    markStore
	consumer string
	ttl      time.Duration
}

func NewLedger(store markStore, consumer string, ttl time.Duration) (*Ledger, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency: store is required")
	case consumer == "":
		return nil, errors.New("idempotency: consumer is required")
	case ttl < 0:
		return nil, errors.New("idempotency: ttl must not be negative")
	}
	return &Ledger{store: store, consumer: consumer, ttl: ttl}, nil
}

// Claim marks the event as handled by this consumer. It reports false when
// another delivery already holds the mark.
func (l *Ledger) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	if eventID == uuid.Nil {
		return false, errors.New("idempotency: event id is required")
	}
	return l.store.SetNX(ctx, l.key(eventID), time.Now().UTC().Format(time.RFC3339), l.ttl)
}

// Release drops the mark after a failed attempt so the event can be retried.
func (l *Ledger) Release(ctx context.Context, eventID uuid.UUID) error {
	if eventID == uuid.Nil {
		return nil
	}
	return l.store.Del(ctx, l.key(eventID))
}

func (l *Ledger) key(eventID uuid.UUID) string {
	return l.store.IdempotencyKey(processedScope+l.consumer, eventID.String())
}
