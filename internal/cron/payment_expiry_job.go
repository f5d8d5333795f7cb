package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

const defaultPaymentTTL = 72 * time.Hour

type PaymentExpiryJobParams struct {
	Logger   *logger.Logger
	Payments stalePaymentExpirer
	TTL      time.Duration
}

type stalePaymentExpirer interface {
	ExpireCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewPaymentExpiryJob builds the job that closes gateway orders nobody paid.
// Expired orders reject a late verify with a state conflict.
func NewPaymentExpiryJob(params PaymentExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPaymentTTL
	}
	return &paymentExpiryJob{
		logg:     params.Logger,
		payments: params.Payments,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

type paymentExpiryJob struct {
	logg     *logger.Logger
	payments stalePaymentExpirer
	ttl      time.Duration
	now      func() time.Time
}

func (j *paymentExpiryJob) Name() string { return "payment-expiry" }

func (j *paymentExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	expired, err := j.payments.ExpireCreatedBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("expire payments: %w", err)
	}
	if expired > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"cutoff":  cutoff,
			"expired": expired,
		}), "stale payment orders expired")
	}
	return nil
}
