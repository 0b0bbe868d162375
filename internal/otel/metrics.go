package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tmux-organize"

// Metrics holds all OTEL metric instruments for tmux-organize.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// LLM token counters (partitioned by provider + model via attributes)
	InputTokens         metric.Int64Counter
	OutputTokens        metric.Int64Counter
	CacheReadTokens     metric.Int64Counter
	CacheCreationTokens metric.Int64Counter

	// Name cache counters
	NameCacheHits   metric.Int64Counter
	NameCacheMisses metric.Int64Counter

	// Job counter (partitioned by kind and outcome via attributes)
	Jobs metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	// --- LLM token counters ---

	m.InputTokens, err = meter.Int64Counter("llm.tokens.input",
		metric.WithDescription("Total LLM input tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.OutputTokens, err = meter.Int64Counter("llm.tokens.output",
		metric.WithDescription("Total LLM output tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.CacheReadTokens, err = meter.Int64Counter("llm.tokens.cache_read",
		metric.WithDescription("Total input tokens served from provider prompt cache"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	m.CacheCreationTokens, err = meter.Int64Counter("llm.tokens.cache_creation",
		metric.WithDescription("Total input tokens used to create provider prompt cache entries"),
		metric.WithUnit("{token}"))
	if err != nil {
		return nil, err
	}

	// --- Name cache counters ---

	m.NameCacheHits, err = meter.Int64Counter("name_cache.hits",
		metric.WithDescription("Number of name cache hits (window layout unchanged, reused previous name)"))
	if err != nil {
		return nil, err
	}

	m.NameCacheMisses, err = meter.Int64Counter("name_cache.misses",
		metric.WithDescription("Number of name cache misses (layout changed, TTL expired, or first naming)"))
	if err != nil {
		return nil, err
	}

	// --- Job counter ---

	m.Jobs, err = meter.Int64Counter("naming_jobs.total",
		metric.WithDescription("Total naming jobs partitioned by kind (window, session) and outcome (succeeded, failed, superseded)"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTokens records LLM token usage on the metric counters.
func (m *Metrics) RecordTokens(ctx context.Context, provider, model string, input, output, cacheRead, cacheCreation int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", model),
	)
	m.InputTokens.Add(ctx, input, attrs)
	m.OutputTokens.Add(ctx, output, attrs)
	if cacheRead > 0 {
		m.CacheReadTokens.Add(ctx, cacheRead, attrs)
	}
	if cacheCreation > 0 {
		m.CacheCreationTokens.Add(ctx, cacheCreation, attrs)
	}
}

// RecordCacheHit records a name cache hit.
func (m *Metrics) RecordCacheHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.NameCacheHits.Add(ctx, 1)
}

// RecordCacheMiss records a name cache miss.
func (m *Metrics) RecordCacheMiss(ctx context.Context) {
	if m == nil {
		return
	}
	m.NameCacheMisses.Add(ctx, 1)
}

// RecordJob records a finished naming job with its kind and outcome.
func (m *Metrics) RecordJob(ctx context.Context, kind, outcome string) {
	if m == nil {
		return
	}
	m.Jobs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job.kind", kind),
		attribute.String("job.outcome", outcome),
	))
}
