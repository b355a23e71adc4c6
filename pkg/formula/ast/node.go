package ast

import "strings"

// Operator is the textual form of a unary, binary or logical operator.
type Operator string

const (
	OpAdd Operator = "+"
	OpSub Operator = "-"
	OpMul Operator = "*"
	OpDiv Operator = "/"
	OpMod Operator = "%"

	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
	OpLessThan     Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreaterThan  Operator = ">"
	OpGreaterEqual Operator = ">="

	OpAnd Operator = "and"
	OpOr  Operator = "or"
	OpNot Operator = "not"
)

// IsArithmetic returns true for + - * / %.
func (op Operator) IsArithmetic() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}

// IsComparison returns true for the six comparison operators.
func (op Operator) IsComparison() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLessThan, OpLessEqual, OpGreaterThan, OpGreaterEqual:
		return true
	}
	return false
}

// Node is implemented by every AST node kind. The set of implementations is
// closed: only types in this package satisfy it.
type Node interface {
	// Pos returns the offset of the first character of the node.
	Pos() Pos

	// String renders the node in fully parenthesized canonical form.
	String() string

	node()
}

// Literal is a number or boolean constant.
type Literal struct {
	Value    Value
	ValuePos Pos
}

// Variable references a name in the evaluation context.
type Variable struct {
	Name    string
	NamePos Pos
}

// Unary is a prefix operator: -x, +x or not x.
type Unary struct {
	Op      Operator
	Operand Node
	OpPos   Pos
}

// Binary is an arithmetic or comparison operator.
type Binary struct {
	Op    Operator
	Left  Node
	Right Node
	OpPos Pos
}

// Logical is "and" / "or". The right operand is evaluated only when the left
// one does not decide the result.
type Logical struct {
	Op    Operator
	Left  Node
	Right Node
	OpPos Pos
}

// Call invokes a function from the fixed function library.
type Call struct {
	Name    string
	Args    []Node
	NamePos Pos
}

func (n *Literal) Pos() Pos  { return n.ValuePos }
func (n *Variable) Pos() Pos { return n.NamePos }
func (n *Unary) Pos() Pos    { return n.OpPos }
func (n *Binary) Pos() Pos   { return n.Left.Pos() }
func (n *Logical) Pos() Pos  { return n.Left.Pos() }
func (n *Call) Pos() Pos     { return n.NamePos }

func (*Literal) node()  {}
func (*Variable) node() {}
func (*Unary) node()    {}
func (*Binary) node()   {}
func (*Logical) node()  {}
func (*Call) node()     {}

func (n *Literal) String() string  { return n.Value.String() }
func (n *Variable) String() string { return n.Name }

func (n *Unary) String() string {
	if n.Op == OpNot {
		return "(not " + n.Operand.String() + ")"
	}
	return "(" + string(n.Op) + n.Operand.String() + ")"
}

func (n *Binary) String() string {
	return "(" + n.Left.String() + " " + string(n.Op) + " " + n.Right.String() + ")"
}

func (n *Logical) String() string {
	return "(" + n.Left.String() + " " + string(n.Op) + " " + n.Right.String() + ")"
}

func (n *Call) String() string {
	var sb strings.Builder
	sb.WriteString(n.Name)
	sb.WriteByte('(')
	for i, arg := range n.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
