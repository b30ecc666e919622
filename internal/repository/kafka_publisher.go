package repository

import (
	"context"
	"time"

	"ChartScan/internal/domain/models"
	pkgkafka "ChartScan/pkg/kafka"
)

// SignalEvent is the envelope published for signals and closed outcomes.
type SignalEvent struct {
	Type       string        `json:"type"`
	Signal     models.Signal `json:"signal"`
	ProducedAt time.Time     `json:"produced_at"`
}

const (
	EventSignalCreated = "signal.created"
	EventSignalClosed  = "signal.closed"
)

// KafkaSignalPublisher publishes signal events keyed by ticker so a
// ticker's events stay ordered within a partition.
type KafkaSignalPublisher struct {
	producer      *pkgkafka.Producer
	signalsTopic  string
	outcomesTopic string
	now           func() time.Time
}

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, signalsTopic, outcomesTopic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{
		producer:      producer,
		signalsTopic:  signalsTopic,
		outcomesTopic: outcomesTopic,
		now:           time.Now,
	}
}

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, sig models.Signal) error {
	return p.producer.Publish(ctx, p.signalsTopic, []byte(sig.Ticker), SignalEvent{
		Type:       EventSignalCreated,
		Signal:     sig,
		ProducedAt: p.now().UTC(),
	})
}

func (p *KafkaSignalPublisher) PublishOutcome(ctx context.Context, sig models.Signal) error {
	return p.producer.Publish(ctx, p.outcomesTopic, []byte(sig.Ticker), SignalEvent{
		Type:       EventSignalClosed,
		Signal:     sig,
		ProducedAt: p.now().UTC(),
	})
}

func (p *KafkaSignalPublisher) Close() error { return p.producer.Close() }

// NoopPublisher drops events; used when Kafka is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishSignal(context.Context, models.Signal) error  { return nil }
func (NoopPublisher) PublishOutcome(context.Context, models.Signal) error { return nil }
func (NoopPublisher) Close() error                                        { return nil }
