package cron

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftbox-backend/internal/payments"
	"github.com/angelmondragon/giftbox-backend/pkg/db/dbtest"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/enums"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
)

func TestPaymentExpiryJobExpiresOnlyStaleCreatedOrders(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	user := uuid.New()
	paid := "pay_ok"
	rows := []models.Payment{
		{ID: uuid.New(), UserID: user, OrderID: "order_stale", Status: enums.PaymentStatusCreated, Amount: 100000, Currency: enums.CurrencyINR, Receipt: "r1"},
		{ID: uuid.New(), UserID: user, OrderID: "order_fresh", Status: enums.PaymentStatusCreated, Amount: 100000, Currency: enums.CurrencyINR, Receipt: "r2"},
		{ID: uuid.New(), UserID: user, OrderID: "order_paid", GatewayPaymentID: &paid, Status: enums.PaymentStatusVerified, Amount: 100000, Currency: enums.CurrencyINR, Receipt: "r3"},
	}
	require.NoError(t, conn.Create(&rows).Error)
	old := now.Add(-96 * time.Hour)
	require.NoError(t, conn.Model(&models.Payment{}).Where("order_id IN ?", []string{"order_stale", "order_paid"}).Update("created_at", old).Error)
	require.NoError(t, conn.Model(&models.Payment{}).Where("order_id = ?", "order_fresh").Update("created_at", now.Add(-time.Hour)).Error)

	jobIface, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Payments: payments.NewRepository(conn),
	})
	require.NoError(t, err)
	job := jobIface.(*paymentExpiryJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	status := func(orderID string) enums.PaymentStatus {
		var p models.Payment
		require.NoError(t, conn.First(&p, "order_id = ?", orderID).Error)
		return p.Status
	}
	assert.Equal(t, enums.PaymentStatusExpired, status("order_stale"))
	assert.Equal(t, enums.PaymentStatusCreated, status("order_fresh"))
	assert.Equal(t, enums.PaymentStatusVerified, status("order_paid"))
}

func TestNewPaymentExpiryJobDefaultsTTL(t *testing.T) {
	jobIface, err := NewPaymentExpiryJob(PaymentExpiryJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Payments: payments.NewRepository(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, defaultPaymentTTL, jobIface.(*paymentExpiryJob).ttl)
	assert.Equal(t, "payment-expiry", jobIface.Name())
}
