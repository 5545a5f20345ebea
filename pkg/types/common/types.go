// Package common holds shared primitive types used across all layers of the
// rateations engine: identifiers, money, pagination, domain events, and the
// message shapes crossing the event-bus boundary.
package common

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID is a string alias for UUID v4.
type ID string

// TaxpayerID is a string alias for a taxpayer identifier.
type TaxpayerID string

// OwnerID is a string alias for the authenticated caller owning a plan.
// Cache keys and access checks are derived from it.
type OwnerID string

// NewID returns a freshly generated ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// Validate checks that the ID is a well-formed UUID.
func (id ID) Validate() error {
	if id == "" {
		return fmt.Errorf("id must not be empty")
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		return fmt.Errorf("id %q is not a valid uuid: %w", id, err)
	}
	return nil
}

// Money is an amount in integer minor-currency units (euro cents).  All
// monetary values inside the engine are cents; conversion to display currency
// happens only at the outermost presentation edge.
type Money struct {
	Cents    int64  `json:"cents"`
	Currency string `json:"currency"`
}

// EUR constructs a Money value in euro cents.
func EUR(cents int64) Money {
	return Money{Cents: cents, Currency: "EUR"}
}

// Add returns the sum of two amounts.  Mismatched currencies are a programming
// error and panic rather than silently producing a wrong total.
func (m Money) Add(other Money) Money {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: cannot add %s to %s", other.Currency, m.Currency))
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}
}

// Sub returns m minus other.
func (m Money) Sub(other Money) Money {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: cannot subtract %s from %s", other.Currency, m.Currency))
	}
	return Money{Cents: m.Cents - other.Cents, Currency: m.Currency}
}

// IsZero reports whether the amount is zero cents.
func (m Money) IsZero() bool { return m.Cents == 0 }

// String renders the amount as a decimal euro string, display use only.
func (m Money) String() string {
	sign := ""
	cents := m.Cents
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, m.Currency)
}

// Pagination defines parameters for paginated requests.
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total,omitempty"`
}

// Validate normalizes out-of-range pagination values.
func (p *Pagination) Validate() {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

// Offset returns the row offset implied by the page settings.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// DomainEvent is the contract every published event satisfies.
type DomainEvent interface {
	EventID() string
	OccurredAt() time.Time
	AggregateID() string
}

// BaseEvent carries the fields shared by all domain events.
type BaseEvent struct {
	ID          string    `json:"event_id"`
	Aggregate   string    `json:"aggregate_id"`
	OccurredUTC time.Time `json:"occurred_at"`
}

// NewBaseEvent constructs a BaseEvent for the given aggregate.
func NewBaseEvent(aggID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Aggregate:   aggID,
		OccurredUTC: time.Now().UTC(),
	}
}

func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.OccurredUTC }
func (e BaseEvent) AggregateID() string   { return e.Aggregate }

// ProducerMessage is the transport-neutral shape handed to the event-bus
// producer.  The value payload is opaque to consumers: the engine guarantees
// nothing beyond "something changed" and consumers must re-fetch.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
}

// EncodeEvent marshals a domain event into a ProducerMessage for the topic.
func EncodeEvent(topic string, evt DomainEvent) (*ProducerMessage, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("common: failed to encode event %s: %w", evt.EventID(), err)
	}
	return &ProducerMessage{
		Topic:     topic,
		Key:       []byte(evt.AggregateID()),
		Value:     payload,
		Timestamp: evt.OccurredAt(),
	}, nil
}

// BatchItemError identifies one failed message in a batch publish.
type BatchItemError struct {
	Index int
	Topic string
	Error error
}

// BatchPublishResult summarizes a batch publish outcome.
type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []BatchItemError
}

// RiskLevel is the display banding for plan risk (not stored).
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskCaution  RiskLevel = "caution"
	RiskCritical RiskLevel = "critical"
	RiskMaximum  RiskLevel = "maximum"
)
