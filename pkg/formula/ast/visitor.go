package ast

import "sort"

// Inspect traverses the tree in depth-first order, calling f for each node.
// If f returns false, the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}

	switch t := n.(type) {
	case *Unary:
		Inspect(t.Operand, f)
	case *Binary:
		Inspect(t.Left, f)
		Inspect(t.Right, f)
	case *Logical:
		Inspect(t.Left, f)
		Inspect(t.Right, f)
	case *Call:
		for _, arg := range t.Args {
			Inspect(arg, f)
		}
	}
}

// Variables returns the sorted, de-duplicated names referenced by the tree.
func Variables(n Node) []string {
	seen := make(map[string]struct{})
	Inspect(n, func(n Node) bool {
		if v, ok := n.(*Variable); ok {
			seen[v.Name] = struct{}{}
		}
		return true
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Functions returns the sorted, de-duplicated function names called by the tree.
func Functions(n Node) []string {
	seen := make(map[string]struct{})
	Inspect(n, func(n Node) bool {
		if c, ok := n.(*Call); ok {
			seen[c.Name] = struct{}{}
		}
		return true
	})

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of nodes in the tree.
func Count(n Node) int {
	count := 0
	Inspect(n, func(Node) bool {
		count++
		return true
	})
	return count
}

// Depth returns the height of the tree. A single literal has depth 1.
func Depth(n Node) int {
	switch t := n.(type) {
	case nil:
		return 0
	case *Unary:
		return 1 + Depth(t.Operand)
	case *Binary:
		return 1 + max(Depth(t.Left), Depth(t.Right))
	case *Logical:
		return 1 + max(Depth(t.Left), Depth(t.Right))
	case *Call:
		deepest := 0
		for _, arg := range t.Args {
			deepest = max(deepest, Depth(arg))
		}
		return 1 + deepest
	default:
		return 1
	}
}

// IsBooleanShaped reports whether the root of the tree can produce a boolean.
// Arithmetic, calls and numeric literals never can; variables might.
func IsBooleanShaped(n Node) bool {
	switch t := n.(type) {
	case *Literal:
		return t.Value.IsBool()
	case *Variable, *Logical:
		return true
	case *Unary:
		return t.Op == OpNot
	case *Binary:
		return t.Op.IsComparison()
	default:
		return false
	}
}
