package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/formula/pkg/telemetry/tracing"
)

// RetentionConfig controls how long audit events are kept.
type RetentionConfig struct {
	// RetentionDays is the number of days to keep events.
	// 0 keeps events forever.
	RetentionDays int `yaml:"retention_days" validate:"gte=0"`

	// MaxRecords caps the number of stored events. 0 means unlimited.
	MaxRecords int64 `yaml:"max_records" validate:"gte=0"`

	// PruneSchedule is a standard cron expression, e.g. "0 3 * * *".
	// Empty disables scheduled pruning.
	PruneSchedule string `yaml:"prune_schedule"`

	// OnPrune is called after each successful prune with the number of
	// events deleted.
	OnPrune func(deleted int64) `yaml:"-"`
}

// DefaultRetentionConfig returns the default retention configuration.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		RetentionDays: 30,
		MaxRecords:    0,
		PruneSchedule: "0 3 * * *",
	}
}

// Pruner enforces retention limits on an audit Storage.
type Pruner struct {
	storage   Storage
	config    *RetentionConfig
	logger    *slog.Logger
	tracer    trace.Tracer
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a pruner for storage.
func NewPruner(storage Storage, config *RetentionConfig) *Pruner {
	if config == nil {
		config = DefaultRetentionConfig()
	}

	p := &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.retention"),
		tracer:  noop.NewTracerProvider().Tracer(tracing.InstrumentationName),
		now:     time.Now,
	}
	p.scheduler = NewScheduler(p)
	return p
}

// WithTracer sets the tracer for prune spans.
func (p *Pruner) WithTracer(t trace.Tracer) *Pruner {
	if t != nil {
		p.tracer = t
	}
	return p
}

// Scheduler returns the cron scheduler bound to this pruner.
func (p *Pruner) Scheduler() *Scheduler {
	return p.scheduler
}

// Prune deletes events older than the retention window, then trims the
// store down to MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (total int64, err error) {
	ctx, span := p.tracer.Start(ctx, "audit.prune",
		trace.WithAttributes(
			attribute.Int("audit.retention_days", p.config.RetentionDays),
			attribute.Int64("audit.max_records", p.config.MaxRecords),
		))
	defer func() {
		span.SetAttributes(attribute.Int64("audit.deleted", total))
		tracing.SetStatus(span, err)
		span.End()
	}()

	if p.config.RetentionDays > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.storage.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned events by age",
			"deleted_count", deleted,
			"cutoff", cutoff,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.storage.Trim(ctx, p.config.MaxRecords)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned events by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if p.config.OnPrune != nil {
		p.config.OnPrune(total)
	}

	if total > 0 {
		p.logger.Info("audit pruning completed",
			"total_deleted", total,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}
	return total, nil
}
