package redpanda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"github.com/fairyhunter13/talent-matcher/internal/adapter/observability"
	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// Handler processes one profile event.
type Handler func(ctx context.Context, ev domain.ProfileEvent) error

// pollClient is the slice of *kgo.Client used by Consumer.
type pollClient interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
	Close()
}

// ConsumerConfig tunes a Consumer.
type ConsumerConfig struct {
	Brokers        []string
	Group          string
	Topic          string
	MaxConcurrency int
	// MaxAttempts bounds handler retries per record; a record that still fails is logged and committed.
	MaxAttempts int
}

// Consumer reads profile events and hands each to a Handler.
type Consumer struct {
	client      pollClient
	handle      Handler
	concurrency int
	maxAttempts uint64
	retryWait   time.Duration
}

// NewConsumer joins the consumer group and subscribes to cfg.Topic.
func NewConsumer(ctx context.Context, cfg ConsumerConfig, handle Handler) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("op=redpanda.new_consumer: no seed brokers provided")
	}
	if cfg.Group == "" {
		return nil, fmt.Errorf("op=redpanda.new_consumer: missing consumer group")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DisableAutoCommit(),
		kgo.FetchMaxWait(5*time.Second),
		kgo.SessionTimeout(30*time.Second),
		kgo.DialTimeout(10*time.Second),
		tracingHooks(),
	)
	if err != nil {
		return nil, fmt.Errorf("op=redpanda.new_consumer: %w", err)
	}
	if err := EnsureTopic(ctx, client, cfg.Topic, 3, 1); err != nil {
		slog.Warn("ensure topic failed, assuming it exists", slog.String("topic", cfg.Topic), slog.Any("error", err))
	}
	slog.Info("redpanda consumer ready", slog.String("group", cfg.Group), slog.String("topic", cfg.Topic), slog.Int("max_concurrency", cfg.MaxConcurrency))
	return newConsumer(client, handle, cfg.MaxConcurrency, cfg.MaxAttempts), nil
}

func newConsumer(client pollClient, handle Handler, concurrency, maxAttempts int) *Consumer {
	if concurrency <= 0 {
		concurrency = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Consumer{client: client, handle: handle, concurrency: concurrency, maxAttempts: uint64(maxAttempts), retryWait: 500 * time.Millisecond}
}

// Run polls until ctx is canceled. Offsets are committed after every record
// of a fetch has been handled, so a crash redelivers at most one fetch.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil || fetches.IsClientClosed() {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			slog.Error("fetch error", slog.String("topic", topic), slog.Int("partition", int(partition)), slog.Any("error", err))
		})

		var recs []*kgo.Record
		fetches.EachRecord(func(r *kgo.Record) { recs = append(recs, r) })
		if len(recs) == 0 {
			continue
		}
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for _, r := range recs {
			r := r
			g.Go(func() error {
				c.process(gctx, r)
				return nil
			})
		}
		_ = g.Wait()
		if ctx.Err() != nil {
			return nil
		}
		if err := c.client.CommitRecords(ctx, recs...); err != nil {
			slog.Error("commit offsets failed", slog.Int("records", len(recs)), slog.Any("error", err))
		}
	}
}

// process never returns an error: a poison record must not stall the partition.
func (c *Consumer) process(ctx context.Context, r *kgo.Record) {
	var ev domain.ProfileEvent
	if err := json.Unmarshal(r.Value, &ev); err != nil || ev.ID == "" {
		slog.Warn("dropping malformed profile event", slog.Int64("offset", r.Offset), slog.Int("partition", int(r.Partition)), slog.Any("error", err))
		observability.RecordProfileEvent(string(ev.Kind), statusInvalid)
		return
	}
	attempt := 0
	op := func() error {
		attempt++
		err := c.handle(ctx, ev)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait), c.maxAttempts-1)
	err := backoff.Retry(op, backoff.WithContext(policy, ctx))
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	status := classifyFailure(err)
	observability.RecordProfileEvent(string(ev.Kind), status)
	if err != nil {
		slog.Error("profile event failed", slog.String("kind", string(ev.Kind)), slog.String("profile_id", ev.ID),
			slog.Int("attempts", attempt), slog.String("status", status), slog.Any("error", err))
		return
	}
	slog.Debug("profile event handled", slog.String("kind", string(ev.Kind)), slog.String("profile_id", ev.ID))
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() error {
	c.client.Close()
	return nil
}
