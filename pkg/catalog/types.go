package catalog

import (
	"time"
)

// Kind declares what a formula produces.
type Kind string

const (
	// KindValue formulas produce a number or boolean.
	KindValue Kind = "value"

	// KindCondition formulas must produce a boolean.
	KindCondition Kind = "condition"
)

// File is the on-disk layout of a catalog file.
//
//	version: "1"
//	formulas:
//	  - name: damage
//	    expression: max(attack - armor, 1) * multiplier
//	    tests:
//	      - vars: {attack: 10, armor: 4, multiplier: 2}
//	        expect: 12
type File struct {
	// Version is the catalog format version. Only "1" is supported; empty
	// means "1".
	Version string `yaml:"version" validate:"omitempty,eq=1"`

	// Formulas are the named expressions in this file.
	Formulas []Formula `yaml:"formulas" validate:"dive"`
}

// Formula is one named expression.
type Formula struct {
	// Name identifies the formula across all files of a catalog.
	Name string `yaml:"name" validate:"required,max=128,formula_name"`

	// Description is free text for designers.
	Description string `yaml:"description"`

	// Kind is "value" or "condition". Empty means "value".
	Kind Kind `yaml:"kind" validate:"omitempty,oneof=value condition"`

	// Expression is the formula source.
	Expression string `yaml:"expression" validate:"required"`

	// Tests are examples checked by RunTests and "formulactl test".
	Tests []TestCase `yaml:"tests" validate:"dive"`
}

// IsCondition reports whether the formula is declared as a condition.
func (f *Formula) IsCondition() bool {
	return f.Kind == KindCondition
}

// TestCase is an example evaluation of a formula.
type TestCase struct {
	// Name labels the case in test output. Defaults to its index.
	Name string `yaml:"name"`

	// Vars is the evaluation context.
	Vars map[string]any `yaml:"vars"`

	// Expect is the expected number or boolean result.
	Expect any `yaml:"expect"`

	// Error is the expected error code, e.g. "division_by_zero". When set,
	// Expect is ignored.
	Error string `yaml:"error"`
}

// TestResult is the outcome of one test case.
type TestResult struct {
	Formula string        `json:"formula"`
	Case    string        `json:"case"`
	Passed  bool          `json:"passed"`
	Want    string        `json:"want"`
	Got     string        `json:"got"`
	Message string        `json:"message,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Summary aggregates test results.
type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Summarize counts passed and failed results.
func Summarize(results []TestResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}

// LoaderConfig controls which files are read and how large they may be.
type LoaderConfig struct {
	// AllowedExtensions lists catalog file extensions (default: .yaml, .yml)
	AllowedExtensions []string

	// MaxFileSize is the maximum catalog file size in bytes (default: 1MB)
	MaxFileSize int64

	// SkipHidden skips dot files and dot directories (default: true)
	SkipHidden bool
}

// DefaultLoaderConfig returns the default loader configuration.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		AllowedExtensions: []string{".yaml", ".yml"},
		MaxFileSize:       1 << 20,
		SkipHidden:        true,
	}
}
