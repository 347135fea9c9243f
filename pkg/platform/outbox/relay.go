package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
)

// Relay polls the outbox and hands unpublished rows to the producer.
// Delivery is at-least-once: a crash between Produce and MarkPublished
// republishes the batch.
type Relay struct {
	source    Source
	producer  Producer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	published prometheus.Counter
	failures  prometheus.Counter
	now       func() time.Time
}

// Option configures a Relay.
type Option func(*Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithRegisterer registers the relay's counters.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Relay) {
		f := promauto.With(reg)
		r.published = f.NewCounter(prometheus.CounterOpts{
			Name: "doccenter_outbox_published_total",
			Help: "Outbox messages acknowledged by Kafka",
		})
		r.failures = f.NewCounter(prometheus.CounterOpts{
			Name: "doccenter_outbox_publish_failures_total",
			Help: "Outbox relay batches that failed to publish",
		})
	}
}

func NewRelay(source Source, producer Producer, opts ...Option) *Relay {
	r := &Relay{
		source:    source,
		producer:  producer,
		logger:    slog.Default(),
		interval:  defaultPollInterval,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run polls until ctx is cancelled. Batch failures are logged and retried
// on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		for {
			n, err := r.RunOnce(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
				break
			}
			if n < r.batchSize {
				break
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce publishes at most one batch and returns how many messages went out.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	msgs, err := r.source.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}
	if err := r.producer.Produce(ctx, msgs); err != nil {
		if r.failures != nil {
			r.failures.Inc()
		}
		return 0, err
	}
	ids := make([]string, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	if err := r.source.MarkPublished(ctx, ids, r.now()); err != nil {
		return 0, err
	}
	if r.published != nil {
		r.published.Add(float64(len(msgs)))
	}
	r.logger.DebugContext(ctx, "outbox batch published", "count", len(msgs))
	return len(msgs), nil
}
