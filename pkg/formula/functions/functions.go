// Package functions is the closed library of functions callable from formula
// expressions.
//
// Every function has a fixed arity, takes numbers and returns a number, and
// has no side effects. The registry cannot be extended at runtime: the parser
// checks calls against it, so an expression that passed parsing can only ever
// reach the functions listed here.
package functions

import (
	"math"
	"sort"
)

// Function is a single library entry.
type Function struct {
	Name        string
	Arity       int
	Description string
	Impl        func(args []float64) float64
}

// Call invokes the implementation. The caller guarantees len(args) == Arity.
func (f *Function) Call(args []float64) float64 {
	return f.Impl(args)
}

// Registry is an immutable name → function table.
type Registry struct {
	fns   map[string]*Function
	names []string
}

func newRegistry(fns ...Function) *Registry {
	r := &Registry{
		fns:   make(map[string]*Function, len(fns)),
		names: make([]string, 0, len(fns)),
	}
	for i := range fns {
		fn := fns[i]
		r.fns[fn.Name] = &fn
		r.names = append(r.names, fn.Name)
	}
	sort.Strings(r.names)
	return r
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (*Function, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// Names returns the sorted function names. The slice must not be modified.
func (r *Registry) Names() []string {
	return r.names
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	return len(r.names)
}

var builtins = newRegistry(
	Function{
		Name:        "min",
		Arity:       2,
		Description: "smaller of two numbers",
		Impl:        func(a []float64) float64 { return math.Min(a[0], a[1]) },
	},
	Function{
		Name:        "max",
		Arity:       2,
		Description: "larger of two numbers",
		Impl:        func(a []float64) float64 { return math.Max(a[0], a[1]) },
	},
	Function{
		Name:        "abs",
		Arity:       1,
		Description: "absolute value",
		Impl:        func(a []float64) float64 { return math.Abs(a[0]) },
	},
	Function{
		Name:        "floor",
		Arity:       1,
		Description: "largest integer not greater than the argument",
		Impl:        func(a []float64) float64 { return math.Floor(a[0]) },
	},
	Function{
		Name:        "ceil",
		Arity:       1,
		Description: "smallest integer not less than the argument",
		Impl:        func(a []float64) float64 { return math.Ceil(a[0]) },
	},
	Function{
		Name:        "round",
		Arity:       1,
		Description: "nearest integer, halves rounded away from zero",
		Impl:        func(a []float64) float64 { return math.Round(a[0]) },
	},
	Function{
		Name:        "sqrt",
		Arity:       1,
		Description: "square root",
		Impl:        func(a []float64) float64 { return math.Sqrt(a[0]) },
	},
	Function{
		Name:        "pow",
		Arity:       2,
		Description: "first argument raised to the power of the second",
		Impl:        func(a []float64) float64 { return math.Pow(a[0], a[1]) },
	},
)

// Builtins returns the shared function library.
func Builtins() *Registry {
	return builtins
}
