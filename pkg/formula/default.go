package formula

import (
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/formula/pkg/audit"
	"mercator-hq/formula/pkg/formula/ast"
)

var (
	defaultMu     sync.RWMutex
	defaultEngine *Engine
)

// Default returns the engine used by the package-level functions. It is
// built on first use with DefaultEngineConfig and logs rejections through
// slog.Default().
func Default() *Engine {
	defaultMu.RLock()
	e := defaultEngine
	defaultMu.RUnlock()
	if e != nil {
		return e
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultEngine == nil {
		defaultEngine = mustNew(nil, WithSink(audit.NewLogSink(slog.Default())))
	}
	return defaultEngine
}

// mustNew is New for configurations that cannot be invalid. It panics on
// error.
func mustNew(config *EngineConfig, opts ...Option) *Engine {
	e, err := New(config, opts...)
	if err != nil {
		panic(fmt.Sprintf("formula: default engine: %v", err))
	}
	return e
}

// SetDefault replaces the engine used by the package-level functions.
// A nil engine resets it so the next call builds a fresh default.
func SetDefault(e *Engine) {
	defaultMu.Lock()
	defaultEngine = e
	defaultMu.Unlock()
}

// ValidateExpression validates source with the default engine.
func ValidateExpression(source string) error {
	return Default().ValidateExpression(source)
}

// EvaluateExpression evaluates source with the default engine.
func EvaluateExpression(source string, vars map[string]any) (ast.Value, error) {
	return Default().EvaluateExpression(source, vars)
}

// EvaluateCondition evaluates a boolean condition with the default engine.
func EvaluateCondition(source string, vars map[string]any) (bool, error) {
	return Default().EvaluateCondition(source, vars)
}

// Compile compiles source with the default engine.
func Compile(source string) (*Program, error) {
	return Default().Compile(source)
}
