// Package eval implements the recursive AST walker that produces a
// value.Value from an ast.Node, including pointer dereference against
// an external target.MemoryTarget (spec.md §4.F).
package eval

import (
	"errors"
	"fmt"
	"math"

	"github.com/olealgoritme/ramfuck/internal/ast"
	"github.com/olealgoritme/ramfuck/internal/target"
	"github.com/olealgoritme/ramfuck/internal/value"
)

// Kind enumerates the EvalError taxonomy of spec.md §7.
type Kind int

const (
	InvalidOperandType Kind = iota
	DivideByZero
	MemoryRead
	MemoryWrite
	PointerToNonIntegral
)

// Error is the evaluator's typed error, carrying whatever payload
// spec.md §7 associates with its Kind (address/type for the memory
// variants).
type Error struct {
	Kind    Kind
	Addr    target.Address
	ValType value.Type
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case DivideByZero:
		return "eval: divide by zero"
	case MemoryRead:
		return fmt.Sprintf("eval: memory read failed at 0x%x (%s): %v", e.Addr, e.ValType, e.Err)
	case MemoryWrite:
		return fmt.Sprintf("eval: memory write failed at 0x%x (%s): %v", e.Addr, e.ValType, e.Err)
	case PointerToNonIntegral:
		return "eval: pointer cast to non-integral type"
	default:
		return fmt.Sprintf("eval: invalid operand type: %v", e.Err)
	}
}
func (e *Error) Unwrap() error { return e.Err }

func wrapValueErr(err error) error {
	switch {
	case errors.Is(err, value.ErrDivideByZero):
		return &Error{Kind: DivideByZero, Err: err}
	case errors.Is(err, value.ErrPointerToNonIntegral):
		return &Error{Kind: PointerToNonIntegral, Err: err}
	case err != nil:
		return &Error{Kind: InvalidOperandType, Err: err}
	default:
		return nil
	}
}

// Evaluator walks an ast.Node tree, resolving VarLeaf reads from the
// symbol table's borrowed storage and Deref unary nodes against mem.
// mem may be nil if the expression is known not to contain a Deref
// (e.g. the optimiser folding a constant subtree); dereferencing
// against a nil mem is reported as InvalidOperandType rather than
// panicking.
type Evaluator struct {
	Mem target.MemoryTarget
}

// New returns an Evaluator backed by mem.
func New(mem target.MemoryTarget) *Evaluator {
	return &Evaluator{Mem: mem}
}

// Eval evaluates node to a Value, pausing/resuming mem around any
// subtree containing a Deref (spec.md §5's "target process is
// conceptually stopped while an expression involving DEREF is
// evaluated, then resumed").
func (e *Evaluator) Eval(node ast.Node) (value.Value, error) {
	if e.Mem != nil && containsDeref(node) {
		if err := e.Mem.Pause(); err != nil {
			return value.Value{}, err
		}
		defer e.Mem.Resume()
	}
	return e.eval(node)
}

func containsDeref(n ast.Node) bool {
	switch t := n.(type) {
	case *ast.ValueLeaf, *ast.VarLeaf:
		return false
	case *ast.Unary:
		return t.Op == ast.Deref || containsDeref(t.Child)
	case *ast.Binary:
		return containsDeref(t.Left) || containsDeref(t.Right)
	default:
		return false
	}
}

func (e *Evaluator) eval(node ast.Node) (value.Value, error) {
	switch n := node.(type) {
	case *ast.ValueLeaf:
		return n.Value, nil

	case *ast.VarLeaf:
		return n.Symbol.Storage.Load(), nil

	case *ast.Unary:
		return e.evalUnary(n)

	case *ast.Binary:
		return e.evalBinary(n)

	default:
		return value.Value{}, fmt.Errorf("eval: unknown node type %T", node)
	}
}

func (e *Evaluator) evalUnary(n *ast.Unary) (value.Value, error) {
	child, err := e.eval(n.Child)
	if err != nil {
		return value.Value{}, err
	}

	switch n.Op {
	case ast.Cast:
		out, err := value.CastTo(child, n.ValueType())
		if err != nil {
			return value.Value{}, wrapValueErr(err)
		}
		return out, nil

	case ast.Deref:
		if !value.IsPointer(child.Type) {
			return value.Value{}, &Error{Kind: InvalidOperandType, Err: fmt.Errorf("deref of non-pointer type %s", child.Type)}
		}
		if e.Mem == nil {
			return value.Value{}, &Error{Kind: InvalidOperandType, Err: errors.New("no memory target attached")}
		}
		elem := value.Elem(child.Type)
		width := value.Size(elem, e.Mem.AddressWidth())
		buf := make([]byte, width)
		addr := target.Address(child.Address())
		if err := e.Mem.Read(addr, buf); err != nil {
			return value.Value{}, &Error{Kind: MemoryRead, Addr: addr, ValType: elem, Err: err}
		}
		return decodeLittleEndian(elem, buf), nil

	case ast.USub:
		out, err := value.Neg(child)
		return out, wrapValueErr(err)

	case ast.UAdd:
		p := value.Promote(child)
		return p, nil

	case ast.Not:
		out, err := value.Not(child)
		return out, wrapValueErr(err)

	case ast.Compl:
		out, err := value.Compl(child)
		return out, wrapValueErr(err)

	default:
		return value.Value{}, fmt.Errorf("eval: unknown unary op %v", n.Op)
	}
}

func (e *Evaluator) evalBinary(n *ast.Binary) (value.Value, error) {
	// Short-circuit &&/||: evaluate the right child only when the
	// left's zero-ness does not already decide the result. This is a
	// deliberate semantic upgrade over the original C source's eager
	// evaluation of both operands (spec.md §9 Open Question, decided
	// in DESIGN.md in favour of short-circuiting).
	if n.Op == ast.AndCond || n.Op == ast.OrCond {
		left, err := e.eval(n.Left)
		if err != nil {
			return value.Value{}, err
		}
		leftTrue := !value.Promote(left).IsZero()
		if n.Op == ast.AndCond && !leftTrue {
			return value.NewS32(0), nil
		}
		if n.Op == ast.OrCond && leftTrue {
			return value.NewS32(1), nil
		}
		right, err := e.eval(n.Right)
		if err != nil {
			return value.Value{}, err
		}
		rightTrue := !value.Promote(right).IsZero()
		if rightTrue {
			return value.NewS32(1), nil
		}
		return value.NewS32(0), nil
	}

	left, err := e.eval(n.Left)
	if err != nil {
		return value.Value{}, err
	}
	right, err := e.eval(n.Right)
	if err != nil {
		return value.Value{}, err
	}

	var out value.Value
	switch n.Op {
	case ast.Add:
		out, err = value.Add(left, right)
	case ast.Sub:
		out, err = value.Sub(left, right)
	case ast.Mul:
		out, err = value.Mul(left, right)
	case ast.Div:
		out, err = value.Div(left, right)
	case ast.Mod:
		out, err = value.Mod(left, right)
	case ast.And:
		out, err = value.And(left, right)
	case ast.Xor:
		out, err = value.Xor(left, right)
	case ast.Or:
		out, err = value.Or(left, right)
	case ast.Shl:
		out, err = value.Shl(left, right)
	case ast.Shr:
		out, err = value.Shr(left, right)
	case ast.Eq:
		out, err = value.Eq(left, right)
	case ast.Neq:
		out, err = value.Neq(left, right)
	case ast.Lt:
		out, err = value.Lt(left, right)
	case ast.Gt:
		out, err = value.Gt(left, right)
	case ast.Le:
		out, err = value.Le(left, right)
	case ast.Ge:
		out, err = value.Ge(left, right)
	default:
		return value.Value{}, fmt.Errorf("eval: unknown binary op %v", n.Op)
	}
	if err != nil {
		return value.Value{}, wrapValueErr(err)
	}
	return out, nil
}

func decodeLittleEndian(t value.Type, buf []byte) value.Value {
	var u uint64
	for i := len(buf) - 1; i >= 0; i-- {
		u = u<<8 | uint64(buf[i])
	}
	switch t {
	case value.S8:
		return value.NewS8(int8(uint8(u)))
	case value.U8:
		return value.NewU8(uint8(u))
	case value.S16:
		return value.NewS16(int16(uint16(u)))
	case value.U16:
		return value.NewU16(uint16(u))
	case value.S32:
		return value.NewS32(int32(uint32(u)))
	case value.U32:
		return value.NewU32(uint32(u))
	case value.S64:
		return value.NewS64(int64(u))
	case value.U64:
		return value.NewU64(u)
	case value.F32:
		return value.NewF32(math.Float32frombits(uint32(u)))
	case value.F64:
		return value.NewF64(math.Float64frombits(u))
	default:
		return value.Value{}
	}
}

// encodeLittleEndian is the Write-side counterpart used by poke
// (internal/scan) to serialise a Value back into raw bytes.
func encodeLittleEndian(v value.Value, width int) []byte {
	buf := make([]byte, width)
	var u uint64
	switch v.Type {
	case value.F32:
		u = uint64(math.Float32bits(v.F32()))
	case value.F64:
		u = math.Float64bits(v.F64())
	default:
		u = v.U64()
	}
	for i := 0; i < width; i++ {
		buf[i] = byte(u)
		u >>= 8
	}
	return buf
}

// EncodeLittleEndian exports encodeLittleEndian for internal/scan's
// poke implementation.
func EncodeLittleEndian(v value.Value, width int) []byte {
	return encodeLittleEndian(v, width)
}

// DecodeLittleEndian exports decodeLittleEndian for internal/scan,
// which decodes each candidate address's raw bytes into the "value"
// binding without going through a Deref node.
func DecodeLittleEndian(t value.Type, buf []byte) value.Value {
	return decodeLittleEndian(t, buf)
}
