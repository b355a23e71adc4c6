package formula

import (
	"errors"
	"strings"
	"testing"

	ferrors "mercator-hq/formula/pkg/formula/errors"
	"mercator-hq/formula/pkg/formula/evaluator"
)

func TestCompile(t *testing.T) {
	e, sink := newEngine(t)

	p, err := e.Compile("max(hp, 1) > threshold and not boss")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	if got := strings.Join(p.Variables(), ","); got != "boss,hp,threshold" {
		t.Errorf("Variables() = %s, want boss,hp,threshold", got)
	}
	if got := strings.Join(p.Functions(), ","); got != "max" {
		t.Errorf("Functions() = %s, want max", got)
	}
	if !p.IsCondition() {
		t.Error("IsCondition() = false, want true")
	}
	if got, want := p.String(), "((max(hp, 1) > threshold) and (not boss))"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if p.Source() != "max(hp, 1) > threshold and not boss" {
		t.Errorf("Source() = %q", p.Source())
	}

	ok, err := p.Condition(map[string]any{"hp": 10, "threshold": 5, "boss": false})
	if err != nil || !ok {
		t.Errorf("Condition() = %v, %v, want true", ok, err)
	}
	ok, err = p.Condition(map[string]any{"hp": 10, "threshold": 5, "boss": true})
	if err != nil || ok {
		t.Errorf("Condition() = %v, %v, want false", ok, err)
	}
	if sink.len() != 0 {
		t.Errorf("audit records = %d, want 0", sink.len())
	}
}

func TestCompile_SharesCache(t *testing.T) {
	e, _ := newEngine(t)

	p1, err := e.Compile("a + b")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	p2, err := e.Compile("  a + b  ")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if p1.Root() != p2.Root() {
		t.Error("compiling the same source twice produced different trees")
	}
}

func TestCompile_Errors(t *testing.T) {
	e, sink := newEngine(t)

	if _, err := e.Compile("document.cookie"); !errors.Is(err, ferrors.ErrValidation) {
		t.Errorf("Compile(document.cookie) = %v, want validation error", err)
	}
	if sink.len() != 1 {
		t.Errorf("audit records = %d, want 1", sink.len())
	}

	if _, err := e.Compile("1 +"); !errors.Is(err, ferrors.ErrParse) {
		t.Errorf("Compile(1 +) = %v, want parse error", err)
	}
	if sink.len() != 1 {
		t.Errorf("parse error was audited")
	}
}

func TestProgram_Evaluate(t *testing.T) {
	e, _ := newEngine(t)

	p, err := e.Compile("base * (1 + level / 10)")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	if p.IsCondition() {
		t.Error("IsCondition() = true for arithmetic")
	}

	v, err := p.Evaluate(map[string]any{"base": 100, "level": 5})
	if err != nil {
		t.Fatalf("Evaluate() failed: %v", err)
	}
	if v.Float() != 150 {
		t.Errorf("Evaluate() = %v, want 150", v)
	}

	ctx, err := evaluator.NewContext(map[string]any{"base": 10, "level": 0})
	if err != nil {
		t.Fatalf("NewContext() failed: %v", err)
	}
	v, err = p.EvaluateContext(ctx)
	if err != nil || v.Float() != 10 {
		t.Errorf("EvaluateContext() = %v, %v, want 10", v, err)
	}

	if _, err := p.Evaluate(map[string]any{"base": 1}); !errors.Is(err, ferrors.ErrUnknownVariable) {
		t.Errorf("Evaluate() without level = %v, want ErrUnknownVariable", err)
	}
	if _, err := p.Condition(map[string]any{"base": 1, "level": 1}); !errors.Is(err, ferrors.ErrTypeMismatch) {
		t.Errorf("Condition() on arithmetic = %v, want ErrTypeMismatch", err)
	}
}

func TestProgram_ErrorPositionsIncludePadding(t *testing.T) {
	e, _ := newEngine(t)
	e.EvaluateExpression("a / b", map[string]any{"a": 1, "b": 1})

	p, err := e.Compile("   a / b")
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	_, err = p.Evaluate(map[string]any{"a": 1, "b": 0})

	var fe *ferrors.Error
	if !ferrors.As(err, &fe) {
		t.Fatalf("Evaluate() = %v, want *errors.Error", err)
	}
	if fe.Code != ferrors.CodeDivisionByZero || fe.Pos != 5 {
		t.Errorf("error = %s at %d, want division_by_zero at 5", fe.Code, fe.Pos)
	}
}
