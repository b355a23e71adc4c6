package health

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"mercator-hq/formula/pkg/audit"
)

// ProbeExpression is evaluated by EngineCheck. It exercises the gate, the
// parser, the cache and the evaluator.
const ProbeExpression = "max(1, 2) + 1 == 3 and not false"

// ConditionEvaluator is the part of the formula engine EngineCheck needs.
type ConditionEvaluator interface {
	EvaluateCondition(source string, vars map[string]any) (bool, error)
}

// CatalogSource is the part of a catalog manager CatalogCheck needs.
type CatalogSource interface {
	// Len returns the number of loaded formulas.
	Len() int

	// LastError returns the error of the most recent failed reload, or nil
	// if the last reload succeeded.
	LastError() error
}

// EngineCheck returns a check that evaluates ProbeExpression.
func EngineCheck(engine ConditionEvaluator) CheckFunc {
	return func(ctx context.Context) error {
		ok, err := engine.EvaluateCondition(ProbeExpression, nil)
		if err != nil {
			return fmt.Errorf("probe expression failed: %w", err)
		}
		if !ok {
			return errors.New("probe expression evaluated to false")
		}
		return nil
	}
}

// StorageCheck returns a check that counts audit events to confirm the
// store is reachable.
func StorageCheck(storage audit.Storage) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := storage.Count(ctx, &audit.Query{}); err != nil {
			return fmt.Errorf("audit storage unavailable: %w", err)
		}
		return nil
	}
}

// RecorderCheck returns a check that fails while the recorder has failed
// writes it has not recovered from. It compares the failure counter with the
// value seen by the previous run.
func RecorderCheck(recorder *audit.Recorder) CheckFunc {
	var last atomic.Int64
	return func(ctx context.Context) error {
		failed := recorder.Failed()
		if prev := last.Swap(failed); failed > prev {
			return fmt.Errorf("%d audit writes failed since last check", failed-prev)
		}
		return nil
	}
}

// CatalogCheck returns a check that fails when the last catalog reload
// failed or no formulas are loaded.
func CatalogCheck(catalog CatalogSource) CheckFunc {
	return func(ctx context.Context) error {
		if err := catalog.LastError(); err != nil {
			return fmt.Errorf("catalog reload failed: %w", err)
		}
		if catalog.Len() == 0 {
			return errors.New("catalog is empty")
		}
		return nil
	}
}
