package cron

import (
	"github.com/angelmondragon/giftbox-backend/internal/payments"
	"github.com/angelmondragon/giftbox-backend/pkg/config"
	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox"
)

// StandardJobs builds the maintenance jobs shipped with giftbox, filtered by
// cfg.Jobs when it is set.
func StandardJobs(logg *logger.Logger, client *db.Client, cfg config.CronConfig) (*Registry, error) {
	gdb := client.DB()
	expiry, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   logg,
		Payments: payments.NewRepository(gdb),
		TTL:      cfg.PaymentTTL,
	})
	if err != nil {
		return nil, err
	}
	retention, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:        logg,
		DB:            client,
		Repository:    outbox.NewRepository(gdb),
		DLQ:           outbox.NewDLQRepository(gdb),
		RetentionDays: cfg.OutboxRetentionDays,
		DLQDays:       cfg.DLQRetentionDays,
	})
	if err != nil {
		return nil, err
	}
	all, err := NewRegistry(expiry, retention)
	if err != nil {
		return nil, err
	}
	return all.Only(cfg.Jobs)
}
