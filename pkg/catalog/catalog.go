package catalog

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"mercator-hq/formula/pkg/formula"
	"mercator-hq/formula/pkg/formula/ast"
	ferrors "mercator-hq/formula/pkg/formula/errors"
	"mercator-hq/formula/pkg/telemetry/metrics"
)

// Entry is a compiled formula.
type Entry struct {
	Formula

	// File is the catalog file the formula came from.
	File string

	// Program is the compiled expression.
	Program *formula.Program
}

// Catalog is an immutable set of compiled formulas. It is safe for
// concurrent use.
type Catalog struct {
	metrics  *metrics.Collector
	entries  map[string]*Entry
	names    []string
	files    []string
	loadedAt time.Time
}

func newCatalog(m *metrics.Collector) *Catalog {
	return &Catalog{
		metrics: m,
		entries: make(map[string]*Entry),
	}
}

func (c *Catalog) add(e *Entry) {
	c.entries[e.Name] = e
	i := sort.SearchStrings(c.names, e.Name)
	c.names = append(c.names, "")
	copy(c.names[i+1:], c.names[i:])
	c.names[i] = e.Name
}

// Len returns the number of formulas.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Names returns the sorted formula names.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.names...)
}

// Files returns the files the catalog was loaded from.
func (c *Catalog) Files() []string {
	return append([]string(nil), c.files...)
}

// LoadedAt returns when the catalog was loaded.
func (c *Catalog) LoadedAt() time.Time {
	return c.loadedAt
}

// Get returns the named entry.
func (c *Catalog) Get(name string) (*Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

func (c *Catalog) lookup(name string) (*Entry, error) {
	e, ok := c.entries[name]
	if !ok {
		err := fmt.Errorf("%w %q", ErrUnknownFormula, name)
		if s := ferrors.Suggest(name, c.names); s != "" {
			err = fmt.Errorf("%w. %s", err, s)
		}
		return nil, err
	}
	return e, nil
}

// Evaluate evaluates the named formula against vars.
func (c *Catalog) Evaluate(name string, vars map[string]any) (ast.Value, error) {
	e, err := c.lookup(name)
	if err != nil {
		return ast.Value{}, err
	}
	v, err := e.Program.Evaluate(vars)
	c.metrics.RecordFormulaEvaluation(name, err == nil)
	return v, err
}

// Condition evaluates the named formula and requires a boolean result.
func (c *Catalog) Condition(name string, vars map[string]any) (bool, error) {
	e, err := c.lookup(name)
	if err != nil {
		return false, err
	}
	ok, err := e.Program.Condition(vars)
	c.metrics.RecordFormulaEvaluation(name, err == nil)
	return ok, err
}

// RunTests runs every embedded test case, in formula name order.
func (c *Catalog) RunTests() []TestResult {
	var results []TestResult
	for _, name := range c.names {
		results = append(results, c.RunFormulaTests(name)...)
	}
	return results
}

// RunFormulaTests runs the test cases of one formula. It returns nil for an
// unknown name.
func (c *Catalog) RunFormulaTests(name string) []TestResult {
	e, ok := c.entries[name]
	if !ok {
		return nil
	}

	results := make([]TestResult, 0, len(e.Tests))
	for i, tc := range e.Tests {
		label := tc.Name
		if label == "" {
			label = strconv.Itoa(i)
		}
		start := time.Now()
		r := runCase(e, tc)
		r.Formula = name
		r.Case = label
		r.Elapsed = time.Since(start)
		results = append(results, r)
	}
	return results
}

// numberTolerance absorbs floating point noise in expected values.
const numberTolerance = 1e-9

func runCase(e *Entry, tc TestCase) TestResult {
	var (
		got ast.Value
		err error
	)
	if e.IsCondition() {
		var ok bool
		ok, err = e.Program.Condition(tc.Vars)
		got = ast.Bool(ok)
	} else {
		got, err = e.Program.Evaluate(tc.Vars)
	}

	if tc.Error != "" {
		r := TestResult{Want: "error " + tc.Error}
		switch {
		case err == nil:
			r.Got = got.String()
			r.Message = "expected an error"
		case string(ferrors.CodeOf(err)) != tc.Error:
			r.Got = "error " + string(ferrors.CodeOf(err))
			r.Message = err.Error()
		default:
			r.Got = r.Want
			r.Passed = true
		}
		return r
	}

	want, werr := ast.ValueOf(tc.Expect)
	if werr != nil {
		return TestResult{Want: fmt.Sprint(tc.Expect), Message: "expect must be a number or boolean"}
	}

	r := TestResult{Want: want.String()}
	if err != nil {
		r.Got = "error " + string(ferrors.CodeOf(err))
		r.Message = err.Error()
		return r
	}
	r.Got = got.String()
	r.Passed = sameValue(got, want)
	return r
}

func sameValue(got, want ast.Value) bool {
	if got.IsNumber() && want.IsNumber() {
		a, b := got.Float(), want.Float()
		return a == b || math.Abs(a-b) <= numberTolerance*math.Max(1, math.Abs(b))
	}
	return got.Equal(want)
}
