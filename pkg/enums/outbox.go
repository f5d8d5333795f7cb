package enums

import "slices"

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregatePayment OutboxAggregateType = "payment"
	AggregateBooking OutboxAggregateType = "booking"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregatePayment || a == AggregateBooking
}

// OutboxEventType names a domain event. Each type belongs to exactly one aggregate.
type OutboxEventType string

const (
	EventPaymentVerified OutboxEventType = "payment_verified"
	EventBookingCreated  OutboxEventType = "booking_created"
)

var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventPaymentVerified: AggregatePayment,
	EventBookingCreated:  AggregateBooking,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type the event is emitted for.
func (e OutboxEventType) Aggregate() (OutboxAggregateType, bool) {
	a, ok := eventAggregates[e]
	return a, ok
}

// OutboxDLQErrorReason records why a row was moved to the dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return slices.Contains([]OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}, r)
}
