package formula

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"mercator-hq/formula/pkg/audit"
	"mercator-hq/formula/pkg/formula/ast"
	"mercator-hq/formula/pkg/formula/cache"
	ferrors "mercator-hq/formula/pkg/formula/errors"
	"mercator-hq/formula/pkg/formula/evaluator"
	"mercator-hq/formula/pkg/formula/functions"
	"mercator-hq/formula/pkg/formula/parser"
	"mercator-hq/formula/pkg/formula/validator"
	"mercator-hq/formula/pkg/telemetry/metrics"
)

// Evaluation kinds reported to metrics.
const (
	kindValue     = "value"
	kindCondition = "condition"
	kindValidate  = "validate"
)

// Engine validates, parses, caches and evaluates expressions. It is safe for
// concurrent use.
type Engine struct {
	config    *EngineConfig
	validator *validator.Validator
	parser    *parser.Parser
	evaluator *evaluator.Evaluator
	cache     *cache.Cache
	sink      audit.Sink
	metrics   *metrics.Collector
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the audit sink that receives one event per rejected
// expression. A nil sink discards events.
//
// The sink is called on the evaluating goroutine and must not block. A
// Recorder never blocks; wrap any other sink that may be slow with
// audit.NewAsyncSink.
func WithSink(sink audit.Sink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithMetrics sets the metrics collector. A nil collector records nothing.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine. A nil config uses DefaultEngineConfig.
func New(config *EngineConfig, opts ...Option) (*Engine, error) {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		config: config,
		sink:   audit.NopSink{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sink == nil {
		e.sink = audit.NopSink{}
	}
	e.logger = e.logger.With("component", "formula.engine")

	lib := functions.Builtins()

	e.validator = validator.New().
		WithMaxLength(config.MaxLength).
		WithPreviewLength(config.PreviewLength).
		WithDenylist(config.Denylist...).
		WithSink(e.auditSink()).
		WithLogger(e.logger)

	e.parser = parser.NewParser().
		WithMaxDepth(config.MaxDepth).
		WithFunctions(lib)

	e.evaluator = evaluator.New().WithFunctions(lib)

	c, err := cache.New(cache.Config{
		Capacity: config.CacheCapacity,
		OnEvict:  func(string) { e.metrics.RecordCacheEviction() },
		Logger:   e.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create expression cache: %w", err)
	}
	e.cache = c

	e.logger.Debug("formula engine initialized",
		"max_length", config.MaxLength,
		"max_depth", config.MaxDepth,
		"cache_capacity", c.Capacity(),
		"extra_denylist", len(config.Denylist),
	)

	return e, nil
}

// auditSink counts rejections before handing them to the configured sink.
func (e *Engine) auditSink() audit.Sink {
	return audit.SinkFunc(func(event audit.Event) {
		e.metrics.RecordRejection(event.ReasonCode, string(event.Severity))
		e.sink.Record(event)
	})
}

// Config returns the engine configuration. Callers must not modify it.
func (e *Engine) Config() *EngineConfig {
	return e.config
}

// ValidateExpression checks that source passes the security gate and parses
// as a single expression. Every failure is returned as a validation error
// and audited exactly once. A successful parse is cached, so validating and
// then evaluating the same source parses it only once.
func (e *Engine) ValidateExpression(source string) error {
	start := time.Now()

	if err := e.validator.Validate(source); err != nil {
		e.observe(kindValidate, err, start)
		return err
	}
	if _, err := e.parse(source); err != nil {
		err = e.validator.Reject(source, err)
		e.observe(kindValidate, err, start)
		return err
	}

	e.observe(kindValidate, nil, start)
	return nil
}

// EvaluateExpression evaluates source against vars and returns the result.
// Gate rejections are audited; lex, parse and evaluation errors are returned
// to the caller only.
func (e *Engine) EvaluateExpression(source string, vars map[string]any) (ast.Value, error) {
	start := time.Now()

	v, err := e.evaluate(source, vars)
	e.observe(kindValue, err, start)
	return v, err
}

// EvaluateCondition evaluates source against vars and requires a boolean
// result.
func (e *Engine) EvaluateCondition(source string, vars map[string]any) (bool, error) {
	start := time.Now()

	ok, err := e.condition(source, vars)
	e.observe(kindCondition, err, start)
	return ok, err
}

// Compile validates and parses source once so it can be evaluated many times.
// The compiled tree is shared with the cache.
func (e *Engine) Compile(source string) (*Program, error) {
	root, err := e.compile(source)
	if err != nil {
		return nil, err
	}
	return &Program{source: source, root: root, engine: e, offset: leading(source)}, nil
}

// CacheStats returns a snapshot of the expression cache counters.
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.Stats()
}

// PurgeCache empties the expression cache.
func (e *Engine) PurgeCache() {
	e.cache.Purge()
	e.metrics.UpdateCacheSize(0)
}

func (e *Engine) evaluate(source string, vars map[string]any) (ast.Value, error) {
	root, err := e.compile(source)
	if err != nil {
		return ast.Value{}, err
	}
	ctx, err := evaluator.NewContext(vars)
	if err != nil {
		return ast.Value{}, err
	}
	v, err := e.evaluator.Eval(root, ctx)
	return v, shift(err, leading(source))
}

func (e *Engine) condition(source string, vars map[string]any) (bool, error) {
	root, err := e.compile(source)
	if err != nil {
		return false, err
	}
	ctx, err := evaluator.NewContext(vars)
	if err != nil {
		return false, err
	}
	ok, err := e.evaluator.Condition(root, ctx)
	return ok, shift(err, leading(source))
}

// compile runs the gate, then returns the cached tree or parses and caches
// a new one. Tree positions are offsets into the trimmed source, so
// evaluation errors must be shifted back with leading; returned parse errors
// are already shifted.
func (e *Engine) compile(source string) (ast.Node, error) {
	if err := e.validator.Validate(source); err != nil {
		return nil, err
	}
	return e.parse(source)
}

func (e *Engine) parse(source string) (ast.Node, error) {
	if root, ok := e.cache.Get(source); ok {
		e.metrics.RecordCacheHit()
		return root, nil
	}
	e.metrics.RecordCacheMiss()

	root, err := e.parser.Parse(cache.Normalize(source))
	if err != nil {
		return nil, shift(err, leading(source))
	}

	root = e.cache.Add(source, root)
	e.metrics.UpdateCacheSize(e.cache.Len())

	e.logger.Debug("expression parsed",
		"length", len(source),
		"nodes", ast.Count(root),
		"cached", e.cache.Enabled(),
	)
	return root, nil
}

// leading returns the number of bytes cache.Normalize trims from the front
// of source.
func leading(source string) ast.Pos {
	return ast.Pos(len(source) - len(strings.TrimLeftFunc(source, unicode.IsSpace)))
}

// shift moves the position of a formula error by the given offset. Gate
// errors are already reported against the raw source and must not be
// shifted.
func shift(err error, by ast.Pos) error {
	var fe *ferrors.Error
	if by == 0 || !ferrors.As(err, &fe) || !fe.Pos.IsValid() {
		return err
	}
	fe.Pos += by
	return err
}

func (e *Engine) observe(kind string, err error, start time.Time) {
	if !e.metrics.Enabled() {
		return
	}
	code := string(ferrors.CodeOf(err))
	if err != nil && code == "" {
		code = "internal"
	}
	e.metrics.RecordEvaluation(kind, code, time.Since(start))
}
