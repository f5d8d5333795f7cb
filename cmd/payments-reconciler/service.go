package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/giftbox-backend/internal/checkout"
	"github.com/angelmondragon/giftbox-backend/pkg/config"
	"github.com/angelmondragon/giftbox-backend/pkg/db/models"
	"github.com/angelmondragon/giftbox-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftbox-backend/pkg/errors"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/metrics"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/giftbox-backend/pkg/outbox/registry"
)

const (
	consumerName       = "payments-reconciler"
	defaultBatchSize   = 50
	defaultPollMs      = 1000
	defaultMaxAttempts = 10
	defaultHandleLimit = 20 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type checkoutCompleter interface {
	CompleteVerified(ctx context.Context, event payloads.PaymentVerifiedEvent) (*checkout.Result, error)
}

// deduper guards against handling the same outbox row twice when a batch
// commits partially or two reconcilers overlap.
type deduper interface {
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, eventID uuid.UUID) error
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbClient
	Repository outboxRepository
	Registry   registryResolver
	DLQ        dlqRepository
	Checkout   checkoutCompleter
	Dedupe     deduper
	Metrics    *metrics.WorkerMetrics
}

// Service drains pending outbox rows and finishes checkout for verified
// payments that never reached the booking step.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	registry     registryResolver
	dlq          dlqRepository
	checkout     checkoutCompleter
	dedupe       deduper
	metrics      *metrics.WorkerMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}
	if params.DLQ == nil {
		return nil, errors.New("dlq repository is required")
	}
	if params.Checkout == nil {
		return nil, errors.New("checkout service is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		registry:     params.Registry,
		dlq:          params.DLQ,
		checkout:     params.Checkout,
		dedupe:       params.Dedupe,
		metrics:      params.Metrics,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}

	interval := s.pollInterval
	if interval <= 0 {
		interval = time.Duration(defaultPollMs) * time.Millisecond
	}
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "payments reconciler context canceled")
			return ctx.Err()
		default:
		}

		start := time.Now()
		processed, err := s.processBatch(ctx)
		s.metrics.ObserveBatch(consumerName, time.Since(start))
		if err != nil {
			s.logg.Error(ctx, "payments reconciler batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval
		if processed {
			continue
		}
		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		processed = true
		for _, event := range events {
			resolved, err := s.registry.Resolve(event)
			if err != nil {
				if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, nil); markErr != nil {
					return markErr
				}
				continue
			}

			fields := s.eventFields(event, resolved.Envelope)
			if err := s.dispatch(ctx, event, resolved); err != nil {
				s.metrics.IncFailed(consumerName)
				var nonRetry registry.NonRetryableError
				if errors.As(err, &nonRetry) {
					if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields); markErr != nil {
						return markErr
					}
					continue
				}

				nextAttempt := event.AttemptCount + 1
				fields["attempt_count"] = nextAttempt
				if nextAttempt >= s.maxAttempts {
					fields["terminal_reason"] = "max_attempts"
					terminalErr := fmt.Errorf("max attempts reached: %w", err)
					if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, terminalErr, fields); markErr != nil {
						return markErr
					}
					continue
				}

				warnCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())
				s.logg.Warn(warnCtx, "outbox event handling failed")
				if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
					return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
				}
				continue
			}

			if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
				return fmt.Errorf("mark published %s: %w", event.ID, markErr)
			}
			s.metrics.IncProcessed(consumerName)
			s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event reconciled")
		}
		return nil
	})
	return processed, err
}

// dispatch routes a resolved event to its handler. The dedupe mark is
// released when the handler fails so the next attempt can run.
func (s *Service) dispatch(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	if s.dedupe != nil {
		claimed, err := s.dedupe.Claim(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("dedupe check: %w", err)
		}
		if !claimed {
			s.logg.Info(s.logg.WithField(ctx, "outbox_id", event.ID.String()), "outbox event already handled")
			return nil
		}
	}

	handleCtx, cancel := context.WithTimeout(ctx, defaultHandleLimit)
	defer cancel()
	err := s.handle(handleCtx, resolved)
	if err != nil && s.dedupe != nil {
		if delErr := s.dedupe.Release(ctx, event.ID); delErr != nil {
			s.logg.Error(ctx, "release dedupe mark", delErr)
		}
	}
	return err
}

func (s *Service) handle(ctx context.Context, resolved *registry.ResolvedEvent) error {
	switch payload := resolved.Payload.(type) {
	case *payloads.PaymentVerifiedEvent:
		result, err := s.checkout.CompleteVerified(ctx, *payload)
		if err != nil {
			return classify(err)
		}
		fields := map[string]any{
			"payment_id": payload.GatewayPaymentID,
			"booking_id": result.Booking.ID.String(),
			"replayed":   result.Replayed,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "verified payment reconciled")
		return nil
	case *payloads.BookingCreatedEvent:
		s.logg.Info(s.logg.WithField(ctx, "booking_id", payload.BookingID.String()), "booking confirmed")
		return nil
	default:
		return registry.NewNonRetryableError(fmt.Errorf("no handler for %s", resolved.Descriptor.EventType))
	}
}

// classify marks caller-side failures as terminal; everything else retries.
func classify(err error) error {
	switch {
	case pkgerrors.IsCode(err, pkgerrors.CodeValidation),
		pkgerrors.IsCode(err, pkgerrors.CodeNotFound),
		pkgerrors.IsCode(err, pkgerrors.CodePaymentRejected),
		pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
		return registry.NewNonRetryableError(err)
	default:
		return err
	}
}

func (s *Service) handleTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, err error, fields map[string]any) error {
	if fields == nil {
		fields = s.eventFields(event, outbox.PayloadEnvelope{})
	}
	fields["error_reason"] = reason
	warnCtx := s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error())
	s.logg.Warn(warnCtx, "outbox event will not be retried")

	if dlqErr := s.dlq.InsertTx(tx, outbox.DeadLetter(event, reason, err, time.Now())); dlqErr != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, dlqErr)
	}
	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	return nil
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
