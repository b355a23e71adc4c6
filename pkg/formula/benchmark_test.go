package formula

import (
	"testing"
)

func BenchmarkEngine_EvaluateCached(b *testing.B) {
	e, err := New(nil)
	if err != nil {
		b.Fatalf("New() failed: %v", err)
	}
	vars := map[string]any{"playerLevel": 5, "enemyLevel": 3, "fleeing": false}
	src := "max(playerLevel, enemyLevel) * 2 > 8 and not fleeing"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.EvaluateCondition(src, vars); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngine_EvaluateUncached(b *testing.B) {
	cfg := DefaultEngineConfig()
	cfg.CacheCapacity = 0
	e, err := New(cfg)
	if err != nil {
		b.Fatalf("New() failed: %v", err)
	}
	vars := map[string]any{"playerLevel": 5, "enemyLevel": 3, "fleeing": false}
	src := "max(playerLevel, enemyLevel) * 2 > 8 and not fleeing"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.EvaluateCondition(src, vars); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkProgram_Evaluate(b *testing.B) {
	e, err := New(nil)
	if err != nil {
		b.Fatalf("New() failed: %v", err)
	}
	p, err := e.Compile("base * (1 + level / 10) - armor")
	if err != nil {
		b.Fatalf("Compile() failed: %v", err)
	}
	vars := map[string]any{"base": 100, "level": 5, "armor": 12}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Evaluate(vars); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngine_ValidateRejected(b *testing.B) {
	e, err := New(nil)
	if err != nil {
		b.Fatalf("New() failed: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.ValidateExpression("constructor.constructor(1)")
	}
}
