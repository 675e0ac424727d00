// Package redpanda publishes and consumes profile change events over
// Redpanda/Kafka with franz-go.
package redpanda

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// syncProducer is the slice of *kgo.Client used by Producer.
type syncProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Producer publishes domain.ProfileEvent records. It implements domain.EventPublisher.
type Producer struct {
	client syncProducer
	topic  string
}

// tracingHooks returns kgo hooks that propagate trace context through record headers.
func tracingHooks() kgo.Opt {
	k := kotel.NewKotel(kotel.WithTracer(kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))))
	return kgo.WithHooks(k.Hooks()...)
}

// NewProducer connects to brokers and ensures topic exists.
func NewProducer(ctx context.Context, brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.new_producer: no seed brokers provided")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequestRetries(10),
		kgo.ProducerBatchMaxBytes(1_000_000),
		kgo.DialTimeout(10*time.Second),
		tracingHooks(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.new_producer: %w", err)
	}
	if err := EnsureTopic(ctx, client, topic, 3, 1); err != nil {
		slog.Warn("ensure topic failed, assuming it exists", slog.String("topic", topic), slog.Any("error", err))
	}
	slog.Info("redpanda producer ready", slog.Any("brokers", brokers), slog.String("topic", topic))
	return &Producer{client: client, topic: topic}, nil
}

// PublishProfileEvent implements domain.EventPublisher. Records are keyed by
// kind and id so events for one profile stay ordered within a partition.
func (p *Producer) PublishProfileEvent(ctx domain.Context, ev domain.ProfileEvent) error {
	if ev.ID == "" || (ev.Kind != domain.EmbeddingCandidate && ev.Kind != domain.EmbeddingJob) {
		return fmt.Errorf("op=redpanda.publish: %w: event %+v", domain.ErrInvalidInput, ev)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("op=redpanda.publish: %w", err)
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(string(ev.Kind) + ":" + ev.ID),
		Value: b,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(ev.Kind)},
			{Key: "profile_id", Value: []byte(ev.ID)},
		},
	}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		slog.Error("failed to publish profile event", slog.String("kind", string(ev.Kind)), slog.String("profile_id", ev.ID), slog.Any("error", err))
		return fmt.Errorf("op=redpanda.publish: %w", err)
	}
	slog.Debug("profile event published", slog.String("kind", string(ev.Kind)), slog.String("profile_id", ev.ID))
	return nil
}

// Close flushes and closes the client.
func (p *Producer) Close() error {
	if p.client != nil {
		p.client.Close()
	}
	return nil
}
