package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/olealgoritme/ramfuck/internal/ast"
	"github.com/olealgoritme/ramfuck/internal/symtab"
	"github.com/olealgoritme/ramfuck/internal/target"
	"github.com/olealgoritme/ramfuck/internal/value"
)

func constNode(v value.Value) ast.Node { return &ast.ValueLeaf{Value: v} }

func TestEvalConstantArithmetic(t *testing.T) {
	// 1 + 2 * 3
	mul := ast.NewBinary(ast.Mul, constNode(value.NewS32(2)), constNode(value.NewS32(3)), value.S32)
	add := ast.NewBinary(ast.Add, constNode(value.NewS32(1)), mul, value.S32)

	e := New(nil)
	v, err := e.Eval(add)
	require.NoError(t, err)
	require.Equal(t, int32(7), v.S32())
}

func TestEvalShortCircuitAnd(t *testing.T) {
	// false && <would dereference a bad pointer> must not evaluate the right side.
	badDeref := ast.NewUnary(ast.Deref, constNode(value.NewPointer(value.S32, 0xdead)), value.S32)
	andNode := ast.NewBinary(ast.AndCond, constNode(value.NewS32(0)), badDeref, value.S32)

	e := New(target.NewFake(32)) // no region mapped; a real deref would fail
	v, err := e.Eval(andNode)
	require.NoError(t, err)
	require.Equal(t, int32(0), v.S32())
}

func TestEvalDivideByZero(t *testing.T) {
	div := ast.NewBinary(ast.Div, constNode(value.NewS32(10)), constNode(value.NewS32(0)), value.S32)
	_, err := New(nil).Eval(div)
	var evalErr *Error
	require.ErrorAs(t, err, &evalErr)
	require.Equal(t, DivideByZero, evalErr.Kind)
}

func TestEvalDeref(t *testing.T) {
	mem := target.NewFake(32)
	mem.MapRegion(0x2000, 4, target.Read|target.Write, "test")
	mem.SetBytes(0x2000, []byte{7, 0, 0, 0})

	tab := symtab.New()
	require.NoError(t, tab.Insert("addr", value.U32, symtab.NewCell(value.NewU32(0x2000))))
	addrSym, _ := tab.Lookup("addr")
	addrVar := &ast.VarLeaf{Table: tab, Symbol: addrSym}

	ptrCast := ast.NewUnary(ast.Cast, addrVar, value.PointerTo(value.S32))
	deref := ast.NewUnary(ast.Deref, ptrCast, value.S32)
	plusOne := ast.NewBinary(ast.Add, deref, constNode(value.NewS32(1)), value.S32)

	v, err := New(mem).Eval(plusOne)
	require.NoError(t, err)
	require.Equal(t, int32(8), v.S32())
}

func TestEvalVarAndAddrPredicate(t *testing.T) {
	tab := symtab.New()
	require.NoError(t, tab.Insert("value", value.S32, symtab.NewCell(value.NewS32(42))))
	require.NoError(t, tab.Insert("addr", value.U32, symtab.NewCell(value.NewU32(0x1000))))
	valueSym, _ := tab.Lookup("value")
	addrSym, _ := tab.Lookup("addr")

	valueEq := ast.NewBinary(ast.Eq, &ast.VarLeaf{Table: tab, Symbol: valueSym}, constNode(value.NewS32(42)), value.S32)
	addrAnd := ast.NewBinary(ast.And, &ast.VarLeaf{Table: tab, Symbol: addrSym}, constNode(value.NewU32(3)), value.U32)
	addrEq := ast.NewBinary(ast.Eq, addrAnd, constNode(value.NewS32(0)), value.S32)
	full := ast.NewBinary(ast.AndCond, valueEq, addrEq, value.S32)

	v, err := New(nil).Eval(full)
	require.NoError(t, err)
	require.Equal(t, int32(1), v.S32())
}
