package opt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olealgoritme/ramfuck/internal/ast"
	"github.com/olealgoritme/ramfuck/internal/eval"
	"github.com/olealgoritme/ramfuck/internal/symtab"
	"github.com/olealgoritme/ramfuck/internal/value"
)

func TestOptimizeFoldsConstant(t *testing.T) {
	mul := ast.NewBinary(ast.Mul, &ast.ValueLeaf{Value: value.NewS32(2)}, &ast.ValueLeaf{Value: value.NewS32(3)}, value.S32)
	add := ast.NewBinary(ast.Add, &ast.ValueLeaf{Value: value.NewS32(1)}, mul, value.S32)

	folded := Optimize(add)
	leaf, ok := folded.(*ast.ValueLeaf)
	require.True(t, ok, "expected a single folded ValueLeaf, got %T", folded)
	require.Equal(t, int32(7), leaf.Value.S32())
}

func TestOptimizeIdempotent(t *testing.T) {
	mul := ast.NewBinary(ast.Mul, &ast.ValueLeaf{Value: value.NewS32(2)}, &ast.ValueLeaf{Value: value.NewS32(3)}, value.S32)
	once := Optimize(mul)
	twice := Optimize(once)
	require.Equal(t, once.RPN(), twice.RPN())
}

func TestOptimizePreservesSubtreeOnFoldError(t *testing.T) {
	div := ast.NewBinary(ast.Div, &ast.ValueLeaf{Value: value.NewS32(10)}, &ast.ValueLeaf{Value: value.NewS32(0)}, value.S32)
	folded := Optimize(div)
	_, isLeaf := folded.(*ast.ValueLeaf)
	require.False(t, isLeaf, "a literal division by zero must not be folded into the tree")

	// Evaluating the preserved subtree must still fail the same way.
	_, err := eval.New(nil).Eval(folded)
	require.Error(t, err)
}

func TestOptimizeDoesNotTouchVarOrDeref(t *testing.T) {
	tab := symtab.New()
	require.NoError(t, tab.Insert("value", value.S32, symtab.NewCell(value.NewS32(5))))
	sym, _ := tab.Lookup("value")
	varNode := &ast.VarLeaf{Table: tab, Symbol: sym}
	add := ast.NewBinary(ast.Add, varNode, &ast.ValueLeaf{Value: value.NewS32(1)}, value.S32)

	folded := Optimize(add)
	bin, ok := folded.(*ast.Binary)
	require.True(t, ok, "a subtree containing Var must survive as a Binary node, got %T", folded)
	_, isVar := bin.Left.(*ast.VarLeaf)
	require.True(t, isVar)
}

func TestOptimizeEvaluationEquivalence(t *testing.T) {
	mul := ast.NewBinary(ast.Mul, &ast.ValueLeaf{Value: value.NewS32(6)}, &ast.ValueLeaf{Value: value.NewS32(7)}, value.S32)
	before, err := eval.New(nil).Eval(mul)
	require.NoError(t, err)
	after, err := eval.New(nil).Eval(Optimize(mul))
	require.NoError(t, err)
	require.Equal(t, before, after)
}
