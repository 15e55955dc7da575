package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AbinayReddy2501/prakruthihomestay/internal/domain"
	"github.com/AbinayReddy2501/prakruthihomestay/pkg/kafka"
)

// EventPublisher publishes booking lifecycle notifications. Delivery is
// best effort; booking state never depends on it.
type EventPublisher interface {
	// PublishBookingCreated publishes a booking created notification
	PublishBookingCreated(ctx context.Context, booking *domain.Booking) error

	// PublishBookingConfirmed publishes a booking confirmed notification
	PublishBookingConfirmed(ctx context.Context, booking *domain.Booking) error

	// PublishBookingCancelled publishes a booking cancelled notification
	PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error

	// PublishBookingExpired publishes a hold expired notification
	PublishBookingExpired(ctx context.Context, booking *domain.Booking) error

	// PublishBookingCheckedIn publishes a guest checked in notification
	PublishBookingCheckedIn(ctx context.Context, booking *domain.Booking) error

	// PublishBookingCheckedOut publishes a guest checked out notification
	PublishBookingCheckedOut(ctx context.Context, booking *domain.Booking) error

	// PublishRefundRecorded publishes a refund recorded notification
	PublishRefundRecorded(ctx context.Context, booking *domain.Booking, refund *domain.RefundDetail) error

	// Close closes the event publisher
	Close() error
}

// bookingNotification is the wire payload for booking notifications.
type bookingNotification struct {
	EventID      string                  `json:"event_id"`
	Kind         domain.NotificationKind `json:"kind"`
	BookingID    string                  `json:"booking_id"`
	Reference    string                  `json:"reference"`
	RoomID       string                  `json:"room_id"`
	CheckIn      string                  `json:"check_in"`
	CheckOut     string                  `json:"check_out"`
	Status       string                  `json:"status"`
	TotalAmount  decimal.Decimal         `json:"total_amount"`
	Currency     string                  `json:"currency"`
	GuestName    string                  `json:"guest_name"`
	GuestEmail   string                  `json:"guest_email"`
	RefundID     string                  `json:"refund_id,omitempty"`
	RefundAmount *decimal.Decimal        `json:"refund_amount,omitempty"`
	OccurredAt   time.Time               `json:"occurred_at"`
}

// KafkaEventPublisher implements EventPublisher using Kafka.
type KafkaEventPublisher struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
}

// EventPublisherConfig contains configuration for the event publisher.
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaEventPublisher creates a new Kafka event publisher.
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "booking-notifications"
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "homestay-engine"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "homestay-engine-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
	}, nil
}

// PublishBookingCreated publishes a booking created notification.
func (p *KafkaEventPublisher) PublishBookingCreated(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.NotificationBookingCreated, booking, nil)
}

// PublishBookingConfirmed publishes a booking confirmed notification.
func (p *KafkaEventPublisher) PublishBookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.NotificationBookingConfirmed, booking, nil)
}

// PublishBookingCancelled publishes a booking cancelled notification.
func (p *KafkaEventPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.NotificationBookingCancelled, booking, nil)
}

// PublishBookingExpired publishes a hold expired notification.
func (p *KafkaEventPublisher) PublishBookingExpired(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.NotificationBookingExpired, booking, nil)
}

// PublishBookingCheckedIn publishes a guest checked in notification.
func (p *KafkaEventPublisher) PublishBookingCheckedIn(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.NotificationBookingCheckedIn, booking, nil)
}

// PublishBookingCheckedOut publishes a guest checked out notification.
func (p *KafkaEventPublisher) PublishBookingCheckedOut(ctx context.Context, booking *domain.Booking) error {
	return p.publishEvent(ctx, domain.NotificationBookingCheckedOut, booking, nil)
}

// PublishRefundRecorded publishes a refund recorded notification.
func (p *KafkaEventPublisher) PublishRefundRecorded(ctx context.Context, booking *domain.Booking, refund *domain.RefundDetail) error {
	return p.publishEvent(ctx, domain.NotificationRefundRecorded, booking, refund)
}

// Close closes the event publisher.
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

func (p *KafkaEventPublisher) publishEvent(ctx context.Context, kind domain.NotificationKind, booking *domain.Booking, refund *domain.RefundDetail) error {
	event := bookingNotification{
		EventID:     uuid.New().String(),
		Kind:        kind,
		BookingID:   booking.ID,
		Reference:   booking.Reference,
		RoomID:      booking.RoomID,
		CheckIn:     booking.Range.CheckIn.Format(domain.DateLayout),
		CheckOut:    booking.Range.CheckOut.Format(domain.DateLayout),
		Status:      booking.Status.String(),
		TotalAmount: booking.TotalAmount,
		Currency:    booking.Currency,
		GuestName:   booking.GuestDetails.Name,
		GuestEmail:  booking.GuestDetails.Email,
		OccurredAt:  time.Now(),
	}
	if refund != nil {
		event.RefundID = refund.RefundID
		event.RefundAmount = &refund.Amount
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		"event_type":   string(kind),
		"event_id":     event.EventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	msg := &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(booking.ID),
		Value:     value,
		Headers:   headers,
		Timestamp: time.Now(),
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", kind, err)
	}
	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher for testing.
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher.
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

func (p *NoOpEventPublisher) PublishBookingCreated(ctx context.Context, booking *domain.Booking) error {
	return nil
}

func (p *NoOpEventPublisher) PublishBookingConfirmed(ctx context.Context, booking *domain.Booking) error {
	return nil
}

func (p *NoOpEventPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return nil
}

func (p *NoOpEventPublisher) PublishBookingExpired(ctx context.Context, booking *domain.Booking) error {
	return nil
}

func (p *NoOpEventPublisher) PublishBookingCheckedIn(ctx context.Context, booking *domain.Booking) error {
	return nil
}

func (p *NoOpEventPublisher) PublishBookingCheckedOut(ctx context.Context, booking *domain.Booking) error {
	return nil
}

func (p *NoOpEventPublisher) PublishRefundRecorded(ctx context.Context, booking *domain.Booking, refund *domain.RefundDetail) error {
	return nil
}

func (p *NoOpEventPublisher) Close() error {
	return nil
}

// Ensure implementations satisfy EventPublisher
var (
	_ EventPublisher = (*KafkaEventPublisher)(nil)
	_ EventPublisher = (*NoOpEventPublisher)(nil)
)
