// Package opt implements the constant-folding AST->AST rewrite of
// spec.md §4.G: a post-order walk that replaces any subtree free of
// Var and Deref with the Leaf::Value of its evaluated result.
package opt

import (
	"github.com/olealgoritme/ramfuck/internal/ast"
	"github.com/olealgoritme/ramfuck/internal/eval"
)

// Optimize rebuilds node, folding every constant subtree (spec.md §3
// invariant 7) into a single ValueLeaf. If a constant subtree's
// evaluation fails (e.g. a literal division by zero), the original
// subtree is preserved rather than embedding the error into the tree,
// matching original_source/src/opt.c's rebuild-then-fold shape and
// spec.md §4.G's correctness property.
func Optimize(node ast.Node) ast.Node {
	switch n := node.(type) {
	case *ast.ValueLeaf:
		return &ast.ValueLeaf{Value: n.Value}

	case *ast.VarLeaf:
		return &ast.VarLeaf{Table: n.Table, Symbol: n.Symbol}

	case *ast.Unary:
		child := Optimize(n.Child)
		rebuilt := ast.NewUnary(n.Op, child, n.ValueType())
		return foldIfConstant(rebuilt)

	case *ast.Binary:
		left := Optimize(n.Left)
		right := Optimize(n.Right)
		rebuilt := ast.NewBinary(n.Op, left, right, n.ValueType())
		return foldIfConstant(rebuilt)

	default:
		return node
	}
}

func foldIfConstant(node ast.Node) ast.Node {
	if !ast.IsConstant(node) {
		return node
	}
	v, err := eval.New(nil).Eval(node)
	if err != nil {
		return node
	}
	return &ast.ValueLeaf{Value: v}
}
