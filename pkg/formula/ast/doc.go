// Package ast defines the abstract syntax tree for formula expressions.
//
// The tree is a closed set of node kinds: Literal, Variable, Unary, Binary,
// Logical and Call. Nodes are built once by the parser and never modified
// afterwards, so a single tree may be shared between goroutines and
// evaluated against any number of contexts.
//
// # Core Types
//
// Node: interface implemented by every node kind
//
// Value: number or boolean produced by literals and evaluation
//
// Pos: byte offset of a node in the source expression
//
// # Basic Usage
//
//	root, err := parser.NewParser().Parse("max(hp, 10) > 5")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(root)                 // (max(hp, 10) > 5)
//	fmt.Println(ast.Variables(root))  // [hp]
package ast
