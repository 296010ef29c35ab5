package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/railops/train-reservation/internal/domain"
	"github.com/railops/train-reservation/pkg/kafka"
)

// EventPublisher defines the interface for publishing ticket events
type EventPublisher interface {
	// PublishTicketIssued publishes a ticket issued event
	PublishTicketIssued(ctx context.Context, ticket *domain.Ticket) error

	// PublishTicketCancelled publishes a ticket cancelled event
	PublishTicketCancelled(ctx context.Context, ticket *domain.Ticket) error

	// Close closes the event publisher
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer *kafka.Producer
	topic    string
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "ticket-events"
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "reservation-service-producer"
	}

	producerCfg := kafka.DefaultProducerConfig(cfg.Brokers)
	producerCfg.ClientID = clientID
	producerCfg.MaxRetries = 3
	producerCfg.RetryInterval = 2 * time.Second

	producer, err := kafka.NewProducer(ctx, producerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{producer: producer, topic: topic}, nil
}

// PublishTicketIssued publishes a ticket issued event
func (p *KafkaEventPublisher) PublishTicketIssued(ctx context.Context, ticket *domain.Ticket) error {
	return p.publishEvent(ctx, domain.TicketEventIssued, ticket)
}

// PublishTicketCancelled publishes a ticket cancelled event
func (p *KafkaEventPublisher) PublishTicketCancelled(ctx context.Context, ticket *domain.Ticket) error {
	return p.publishEvent(ctx, domain.TicketEventCancelled, ticket)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType domain.TicketEventType, ticket *domain.Ticket) error {
	event := domain.NewTicketEvent(eventType, ticket, uuid.New().String())

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.producer.Produce(ctx, p.topic, event.Key(), value); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher for testing
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishTicketIssued is a no-op
func (p *NoOpEventPublisher) PublishTicketIssued(ctx context.Context, ticket *domain.Ticket) error {
	return nil
}

// PublishTicketCancelled is a no-op
func (p *NoOpEventPublisher) PublishTicketCancelled(ctx context.Context, ticket *domain.Ticket) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
