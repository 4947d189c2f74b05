package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/olealgoritme/ramfuck/internal/ast"
	"github.com/olealgoritme/ramfuck/internal/eval"
	"github.com/olealgoritme/ramfuck/internal/symtab"
	"github.com/olealgoritme/ramfuck/internal/value"
)

// shape converts an ast.Node to a plain, exported-field-only tree so
// go-cmp can structurally diff two parses without reaching into the
// unexported fields ast.Unary/ast.Binary/value.Value keep private.
type shape struct {
	Kind  string
	Type  string
	Value string
	Name  string
	Kids  []shape
}

func shapeOf(n ast.Node) shape {
	switch t := n.(type) {
	case *ast.ValueLeaf:
		return shape{Kind: "value", Type: t.Value.Type.String(), Value: t.Value.String()}
	case *ast.VarLeaf:
		return shape{Kind: "var", Type: t.Symbol.Type.String(), Name: t.Symbol.Name}
	case *ast.Unary:
		return shape{Kind: "unary:" + t.Op.String(), Type: t.ValueType().String(), Kids: []shape{shapeOf(t.Child)}}
	case *ast.Binary:
		return shape{Kind: "binary:" + t.Op.String(), Type: t.ValueType().String(), Kids: []shape{shapeOf(t.Left), shapeOf(t.Right)}}
	default:
		return shape{Kind: "unknown"}
	}
}

func mustParse(t *testing.T, src string, tab *symtab.Table) ast.Node {
	t.Helper()
	root, errs := Parse(src, tab)
	require.Empty(t, errs, "unexpected parse errors for %q: %v", src, errs)
	require.NotNil(t, root)
	return root
}

func TestOperatorPrecedence(t *testing.T) {
	root := mustParse(t, "1 + 2 * 3", nil)
	require.Equal(t, "(s32)1 (s32)2 (s32)3 * +", root.RPN())

	v, err := eval.New(nil).Eval(root)
	require.NoError(t, err)
	require.Equal(t, int32(7), v.S32())
}

func TestCastAppliesToUnaryNegatedOperand(t *testing.T) {
	// (u32)-1 > 0 casts the unary-negated literal, not the other way
	// around, matching spec.md §4.D's cast-then-unary-then-factor chain.
	root := mustParse(t, "(u32)-1 > 0", nil)
	v, err := eval.New(nil).Eval(root)
	require.NoError(t, err)
	require.Equal(t, int32(1), v.S32())
}

func TestSmallTypePromotionAcrossAdd(t *testing.T) {
	root := mustParse(t, "(s16)300 + (s16)300", nil)
	v, err := eval.New(nil).Eval(root)
	require.NoError(t, err)
	require.Equal(t, value.S32, v.Type)
	require.Equal(t, int32(600), v.S32())
}

func TestFloatLiteralPromotesWholeExpression(t *testing.T) {
	root := mustParse(t, "1.5 + 2", nil)
	v, err := eval.New(nil).Eval(root)
	require.NoError(t, err)
	require.Equal(t, value.F64, v.Type)
	require.InDelta(t, 3.5, v.F64(), 1e-9)
}

func TestShiftResultTypeIsPromotedLeft(t *testing.T) {
	root := mustParse(t, "(s16)1 << 2", nil)
	bin, ok := root.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, value.S32, bin.ValueType())
}

func TestUnknownIdentifierIsParseError(t *testing.T) {
	root, errs := Parse("foo + 1", symtab.New())
	require.Nil(t, root)
	require.NotEmpty(t, errs)
}

func TestNilSymbolTableRejectsEveryIdentifier(t *testing.T) {
	root, errs := Parse("value", nil)
	require.Nil(t, root)
	require.NotEmpty(t, errs)
}

func TestBitwiseXorOnFloatsIsParseError(t *testing.T) {
	root, errs := Parse("1.5 ^ 1", nil)
	require.Nil(t, root)
	require.NotEmpty(t, errs)
}

func TestMissingCloseParenIsParseError(t *testing.T) {
	root, errs := Parse("(1 + 2", nil)
	require.Nil(t, root)
	require.NotEmpty(t, errs)
}

func TestEmptyInputParsesToNilWithoutError(t *testing.T) {
	root, errs := Parse("", nil)
	require.Nil(t, root)
	require.Nil(t, errs)
}

func TestShortCircuitAndSkipsDerefOfNullPointer(t *testing.T) {
	// The right-hand deref must still type-check at parse time even
	// though evaluation never reaches it: p holds a null pointer and no
	// memory target is attached, so only the short circuit keeps the
	// evaluation from failing.
	tab := symtab.New()
	require.NoError(t, tab.Insert("p", value.PointerTo(value.S32), symtab.NewCell(value.NewPointer(value.S32, 0))))
	root := mustParse(t, "0 && *(s32*)p", tab)
	v, err := eval.New(nil).Eval(root)
	require.NoError(t, err)
	require.Equal(t, int32(0), v.S32())
}

func TestDerefOfNonPointerIsParseError(t *testing.T) {
	root, errs := Parse("*1", nil)
	require.Nil(t, root)
	require.NotEmpty(t, errs)
}

func TestCastToPointerOfInvalidSourceFailsAtEvalNotParse(t *testing.T) {
	// The cast production itself never inspects the child's type (it
	// didn't in original_source/src/parse.c either); an invalid
	// cast combination like float-to-pointer is only caught by
	// value.CastTo at evaluation time.
	root := mustParse(t, "*(s32*)1.5", nil)
	_, err := eval.New(nil).Eval(root)
	require.Error(t, err)
}

func TestParenthesizedExpressionNotMistakenForCast(t *testing.T) {
	tab := symtab.New()
	require.NoError(t, tab.Insert("s32", value.S32, symtab.NewCell(value.NewS32(4))))
	// A variable literally named like a type keyword still parses as a
	// plain parenthesised multiplication, not a cast, because the
	// disambiguation additionally requires ')' or '*' ')' right after.
	root := mustParse(t, "(s32 * 2)", tab)
	v, err := eval.New(nil).Eval(root)
	require.NoError(t, err)
	require.Equal(t, int32(8), v.S32())
}

func TestModRequiresIntegerOperands(t *testing.T) {
	root, errs := Parse("1.5 % 2", nil)
	require.Nil(t, root)
	require.NotEmpty(t, errs)
}

func TestUnsignedLiteralExceedingS64RangeParses(t *testing.T) {
	root := mustParse(t, "18446744073709551615", nil)
	leaf, ok := root.(*ast.ValueLeaf)
	require.True(t, ok)
	require.Equal(t, value.U64, leaf.Value.Type)
}

func TestS64LiteralRejectedAtParseTimeWhenBuild64BitValuesDisabled(t *testing.T) {
	old := value.Build64BitValues
	value.Build64BitValues = false
	defer func() { value.Build64BitValues = old }()

	root, errs := Parse("9999999999", nil)
	require.Nil(t, root)
	require.NotEmpty(t, errs)
}

func TestU64LiteralRejectedAtParseTimeWhenBuild64BitValuesDisabled(t *testing.T) {
	old := value.Build64BitValues
	value.Build64BitValues = false
	defer func() { value.Build64BitValues = old }()

	root, errs := Parse("18446744073709551615", nil)
	require.Nil(t, root)
	require.NotEmpty(t, errs)
}

func TestCastToS64RejectedAtParseTimeWhenBuild64BitValuesDisabled(t *testing.T) {
	old := value.Build64BitValues
	value.Build64BitValues = false
	defer func() { value.Build64BitValues = old }()

	root, errs := Parse("(s64)1", nil)
	require.Nil(t, root)
	require.NotEmpty(t, errs)
}

func TestCastToU64StillWorksWhenBuild64BitValuesEnabled(t *testing.T) {
	root := mustParse(t, "(u64)1", nil)
	v, err := eval.New(nil).Eval(root)
	require.NoError(t, err)
	require.Equal(t, value.U64, v.Type)
}

func TestEquivalentSpellingsProduceStructurallyIdenticalTrees(t *testing.T) {
	a := mustParse(t, "1 + 2 * 3", nil)
	b := mustParse(t, "1+2*3", nil)
	if diff := cmp.Diff(shapeOf(a), shapeOf(b)); diff != "" {
		t.Errorf("parses of differently-spaced but equivalent input diverged (-a +b):\n%s", diff)
	}
}

func TestDifferentPrecedenceGroupingsDifferStructurally(t *testing.T) {
	a := mustParse(t, "(1 + 2) * 3", nil)
	b := mustParse(t, "1 + 2 * 3", nil)
	require.NotEmpty(t, cmp.Diff(shapeOf(a), shapeOf(b)), "differently-grouped expressions must not parse to the same tree shape")
}
