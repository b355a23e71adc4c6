// formulactl validates, evaluates and tests sandboxed formulas.
//
// Formulas are small arithmetic and boolean expressions such as
// "max(attack - armor, 1) * 2" or "hp < 10 and not boss". Every input passes
// a security gate before it is parsed; rejected input is recorded in the
// audit store.
//
// Usage:
//
//	# Evaluate an expression
//	formulactl eval "max(attack - armor, 1) * 2" --var attack=12 --var armor=4
//
//	# Check a condition (exit status 0 when true, 1 when false)
//	formulactl check "hp < 10 and not boss" --var hp=3 --var boss=false --quiet
//
//	# Lint and test a formula catalog
//	formulactl lint rules/
//	formulactl test rules/ --format junit > report.xml
//
//	# Inspect rejected expressions
//	formulactl audit query --since 24h --min-severity high
//
//	# Run catalog hot reload, audit retention and the metrics endpoint
//	formulactl serve --config formula.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
