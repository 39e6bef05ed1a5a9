// Package kafka publishes subscription-attempt events with franz-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/card-gateway/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
)

// ProducerConfig configures the attempt producer
type ProducerConfig struct {
	Brokers  []string
	ClientID string
	Topic    string
}

// Producer is the subset of the kgo client used to publish
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Ping(ctx context.Context) error
	Close()
}

// AttemptPublisher implements ports.AttemptPublisher
type AttemptPublisher struct {
	client Producer
	topic  string
	logger *zap.Logger
	now    func() time.Time
}

// NewProducer creates a kgo client with prometheus hooks registered on the default registry
func NewProducer(conf *ProducerConfig) (*kgo.Client, error) {
	metrics := kprom.NewMetrics("card_gateway_kafka",
		kprom.Registerer(prometheus.DefaultRegisterer),
		kprom.Gatherer(prometheus.DefaultGatherer),
	)

	client, err := kgo.NewClient(
		kgo.SeedBrokers(conf.Brokers...),
		kgo.ClientID(conf.ClientID),
		kgo.DefaultProduceTopic(conf.Topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.WithHooks(metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return client, nil
}

// NewAttemptPublisher creates the attempt publisher on top of a producer
func NewAttemptPublisher(client Producer, topic string, logger *zap.Logger) *AttemptPublisher {
	return &AttemptPublisher{
		client: client,
		topic:  topic,
		logger: logger,
		now:    time.Now,
	}
}

// PublishAttempt sends the attempt keyed by subscription, falling back to the merchant
func (p *AttemptPublisher) PublishAttempt(ctx context.Context, attempt *domain.SubscriptionAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if attempt.Created == 0 {
		attempt.Created = p.now().UnixMilli()
	}

	value, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt: %w", err)
	}

	key := attempt.SubscriptionID
	if key == "" {
		key = attempt.MerchantID
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event", Value: []byte("subscription.attempt")},
		},
	}

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("failed to produce attempt: %w", err)
	}

	p.logger.Debug("Subscription attempt published",
		zap.String("attempt_id", attempt.ID),
		zap.String("transaction_reference", attempt.TransactionReference))
	return nil
}

// Ping checks broker connectivity; used by the health checker
func (p *AttemptPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close flushes and closes the producer
func (p *AttemptPublisher) Close() {
	p.client.Close()
}

// NopPublisher drops attempts; used when Kafka is disabled
type NopPublisher struct {
	logger *zap.Logger
}

// NewNopPublisher creates a publisher that only logs
func NewNopPublisher(logger *zap.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

// PublishAttempt implements ports.AttemptPublisher
func (n *NopPublisher) PublishAttempt(ctx context.Context, attempt *domain.SubscriptionAttempt) error {
	n.logger.Info("Kafka disabled, subscription attempt not published",
		zap.String("transaction_reference", attempt.TransactionReference),
		zap.String("code", attempt.Code))
	return nil
}
