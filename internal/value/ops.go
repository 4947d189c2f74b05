package value

import "errors"

// Sentinel errors surfaced from the pure value operation kernels. The
// evaluator (internal/eval) wraps these into its typed EvalError
// taxonomy (spec.md §7); code that only needs Value arithmetic (the
// optimiser's constant folder, unit tests) can compare against these
// directly.
var (
	ErrDivideByZero       = errors.New("value: divide by zero")
	ErrInvalidOperandType = errors.New("value: invalid operand type")
	ErrPointerToNonIntegral = errors.New("value: pointer cast to non-integral type")
)

// uac promotes a and b the way the evaluator promotes AST operands
// before invoking a native kernel (small ints and u8/u16 -> s32, f32 ->
// f64), then converts both to their usual-arithmetic-conversion type.
// It never needs to fail: every promoted type pair has a defined UAC
// result and every conversion among S32/U32/S64/U64/F64 is defined.
func uac(a, b Value) (Value, Value, Type) {
	pa, pb := Promote(a), Promote(b)
	t := HigherType(pa.Type, pb.Type)
	ca, _ := CastTo(pa, t)
	cb, _ := CastTo(pb, t)
	return ca, cb, t
}

func boolValue(b bool) Value {
	if b {
		return NewS32(1)
	}
	return NewS32(0)
}

// Add, Sub, Mul accept any numeric (integer or float) operand pair.
func Add(a, b Value) (Value, error) { return arith(a, b, "add") }
func Sub(a, b Value) (Value, error) { return arith(a, b, "sub") }
func Mul(a, b Value) (Value, error) { return arith(a, b, "mul") }

func arith(a, b Value, op string) (Value, error) {
	if !IsNumeric(a.Type) || !IsNumeric(b.Type) {
		return Value{}, ErrInvalidOperandType
	}
	ca, cb, t := uac(a, b)
	switch t {
	case S32:
		x, y := ca.S32(), cb.S32()
		switch op {
		case "add":
			return NewS32(x + y), nil
		case "sub":
			return NewS32(x - y), nil
		default:
			return NewS32(x * y), nil
		}
	case U32:
		x, y := ca.U32(), cb.U32()
		switch op {
		case "add":
			return NewU32(x + y), nil
		case "sub":
			return NewU32(x - y), nil
		default:
			return NewU32(x * y), nil
		}
	case S64:
		x, y := ca.S64(), cb.S64()
		switch op {
		case "add":
			return NewS64(x + y), nil
		case "sub":
			return NewS64(x - y), nil
		default:
			return NewS64(x * y), nil
		}
	case U64:
		x, y := ca.U64(), cb.U64()
		switch op {
		case "add":
			return NewU64(x + y), nil
		case "sub":
			return NewU64(x - y), nil
		default:
			return NewU64(x * y), nil
		}
	case F64:
		x, y := ca.F64(), cb.F64()
		switch op {
		case "add":
			return NewF64(x + y), nil
		case "sub":
			return NewF64(x - y), nil
		default:
			return NewF64(x * y), nil
		}
	default:
		return Value{}, ErrInvalidOperandType
	}
}

// Div implements spec.md §4.A: division by zero fails with
// ErrDivideByZero rather than trapping.
func Div(a, b Value) (Value, error) {
	if !IsNumeric(a.Type) || !IsNumeric(b.Type) {
		return Value{}, ErrInvalidOperandType
	}
	ca, cb, t := uac(a, b)
	switch t {
	case S32:
		if cb.S32() == 0 {
			return Value{}, ErrDivideByZero
		}
		return NewS32(ca.S32() / cb.S32()), nil
	case U32:
		if cb.U32() == 0 {
			return Value{}, ErrDivideByZero
		}
		return NewU32(ca.U32() / cb.U32()), nil
	case S64:
		if cb.S64() == 0 {
			return Value{}, ErrDivideByZero
		}
		return NewS64(ca.S64() / cb.S64()), nil
	case U64:
		if cb.U64() == 0 {
			return Value{}, ErrDivideByZero
		}
		return NewU64(ca.U64() / cb.U64()), nil
	case F64:
		if cb.F64() == 0 {
			return Value{}, ErrDivideByZero
		}
		return NewF64(ca.F64() / cb.F64()), nil
	default:
		return Value{}, ErrInvalidOperandType
	}
}

// Mod is integer-only (spec.md §3 invariant 3); the remainder follows
// Go's truncated-division semantics, matching the host's C `%`.
func Mod(a, b Value) (Value, error) {
	if !IsInteger(a.Type) || !IsInteger(b.Type) {
		return Value{}, ErrInvalidOperandType
	}
	ca, cb, t := uac(a, b)
	switch t {
	case S32:
		if cb.S32() == 0 {
			return Value{}, ErrDivideByZero
		}
		return NewS32(ca.S32() % cb.S32()), nil
	case U32:
		if cb.U32() == 0 {
			return Value{}, ErrDivideByZero
		}
		return NewU32(ca.U32() % cb.U32()), nil
	case S64:
		if cb.S64() == 0 {
			return Value{}, ErrDivideByZero
		}
		return NewS64(ca.S64() % cb.S64()), nil
	case U64:
		if cb.U64() == 0 {
			return Value{}, ErrDivideByZero
		}
		return NewU64(ca.U64() % cb.U64()), nil
	default:
		return Value{}, ErrInvalidOperandType
	}
}

// And, Xor, Or are integer-only bitwise operators (spec.md §3 invariant 4).
func And(a, b Value) (Value, error) { return bitwise(a, b, "and") }
func Xor(a, b Value) (Value, error) { return bitwise(a, b, "xor") }
func Or(a, b Value) (Value, error)  { return bitwise(a, b, "or") }

func bitwise(a, b Value, op string) (Value, error) {
	if !IsInteger(a.Type) || !IsInteger(b.Type) {
		return Value{}, ErrInvalidOperandType
	}
	ca, cb, t := uac(a, b)
	switch t {
	case S32:
		x, y := ca.S32(), cb.S32()
		return newBitwiseS32(op, x, y), nil
	case U32:
		x, y := ca.U32(), cb.U32()
		return newBitwiseU32(op, x, y), nil
	case S64:
		x, y := ca.S64(), cb.S64()
		return newBitwiseS64(op, x, y), nil
	case U64:
		x, y := ca.U64(), cb.U64()
		return newBitwiseU64(op, x, y), nil
	default:
		return Value{}, ErrInvalidOperandType
	}
}

func newBitwiseS32(op string, x, y int32) Value {
	switch op {
	case "and":
		return NewS32(x & y)
	case "xor":
		return NewS32(x ^ y)
	default:
		return NewS32(x | y)
	}
}

func newBitwiseU32(op string, x, y uint32) Value {
	switch op {
	case "and":
		return NewU32(x & y)
	case "xor":
		return NewU32(x ^ y)
	default:
		return NewU32(x | y)
	}
}

func newBitwiseS64(op string, x, y int64) Value {
	switch op {
	case "and":
		return NewS64(x & y)
	case "xor":
		return NewS64(x ^ y)
	default:
		return NewS64(x | y)
	}
}

func newBitwiseU64(op string, x, y uint64) Value {
	switch op {
	case "and":
		return NewU64(x & y)
	case "xor":
		return NewU64(x ^ y)
	default:
		return NewU64(x | y)
	}
}

// Shl, Shr: left operand must be integer; the right operand is cast to
// the left operand's promoted type, which is also the result's type
// (spec.md §3 invariant 4, §4.D level 7). Shift counts are
// not masked; behaviour beyond [0, width) is left to Go's own
// well-defined (if unusual for C-minded readers) shift semantics, which
// this module pins as its documented behaviour for out-of-range counts.
func Shl(a, b Value) (Value, error) { return shift(a, b, true) }
func Shr(a, b Value) (Value, error) { return shift(a, b, false) }

func shift(a, b Value, left bool) (Value, error) {
	if !IsInteger(a.Type) || !IsInteger(b.Type) {
		return Value{}, ErrInvalidOperandType
	}
	pa := Promote(a)
	count, _ := CastTo(Promote(b), pa.Type)
	switch pa.Type {
	case S32:
		n := uint(count.U32())
		if left {
			return NewS32(pa.S32() << n), nil
		}
		return NewS32(pa.S32() >> n), nil
	case U32:
		n := uint(count.U32())
		if left {
			return NewU32(pa.U32() << n), nil
		}
		return NewU32(pa.U32() >> n), nil
	case S64:
		n := uint(count.U64())
		if left {
			return NewS64(pa.S64() << n), nil
		}
		return NewS64(pa.S64() >> n), nil
	case U64:
		n := uint(count.U64())
		if left {
			return NewU64(pa.U64() << n), nil
		}
		return NewU64(pa.U64() >> n), nil
	default:
		return Value{}, ErrInvalidOperandType
	}
}

// Neg, Not, Compl are the unary operators of spec.md §3 invariant 6
// family. Neg (unary -) is numeric; Not (logical !) and Compl (bitwise
// ~) are integer-only, matching the parser's level-11 type rule.
func Neg(a Value) (Value, error) {
	if !IsNumeric(a.Type) {
		return Value{}, ErrInvalidOperandType
	}
	p := Promote(a)
	switch p.Type {
	case S32:
		return NewS32(-p.S32()), nil
	case U32:
		return NewU32(-p.U32()), nil
	case S64:
		return NewS64(-p.S64()), nil
	case U64:
		return NewU64(-p.U64()), nil
	case F64:
		return NewF64(-p.F64()), nil
	default:
		return Value{}, ErrInvalidOperandType
	}
}

func Not(a Value) (Value, error) {
	if !IsInteger(a.Type) {
		return Value{}, ErrInvalidOperandType
	}
	return boolValue(Promote(a).IsZero()), nil
}

func Compl(a Value) (Value, error) {
	if !IsInteger(a.Type) {
		return Value{}, ErrInvalidOperandType
	}
	p := Promote(a)
	switch p.Type {
	case S32:
		return NewS32(^p.S32()), nil
	case U32:
		return NewU32(^p.U32()), nil
	case S64:
		return NewS64(^p.S64()), nil
	case U64:
		return NewU64(^p.U64()), nil
	default:
		return Value{}, ErrInvalidOperandType
	}
}

// Eq, Neq, Lt, Gt, Le, Ge always return S32 0/1. Mixed integer/float
// operands are compared by promoting both to the UAC type exactly as
// arithmetic does (spec.md §4.A: "the same conversion used for
// arithmetic"), which resolves to F64 whenever either side is a float
// since F64 outranks every integer type.
func Eq(a, b Value) (Value, error)  { return compare(a, b, func(c int) bool { return c == 0 }) }
func Neq(a, b Value) (Value, error) { return compare(a, b, func(c int) bool { return c != 0 }) }
func Lt(a, b Value) (Value, error)  { return compare(a, b, func(c int) bool { return c < 0 }) }
func Gt(a, b Value) (Value, error)  { return compare(a, b, func(c int) bool { return c > 0 }) }
func Le(a, b Value) (Value, error)  { return compare(a, b, func(c int) bool { return c <= 0 }) }
func Ge(a, b Value) (Value, error)  { return compare(a, b, func(c int) bool { return c >= 0 }) }

func compare(a, b Value, ok func(int) bool) (Value, error) {
	if !IsNumeric(a.Type) || !IsNumeric(b.Type) {
		return Value{}, ErrInvalidOperandType
	}
	ca, cb, t := uac(a, b)
	var c int
	switch t {
	case S32:
		c = cmpOrdered(ca.S32(), cb.S32())
	case U32:
		c = cmpOrdered(ca.U32(), cb.U32())
	case S64:
		c = cmpOrdered(ca.S64(), cb.S64())
	case U64:
		c = cmpOrdered(ca.U64(), cb.U64())
	case F64:
		c = cmpOrdered(ca.F64(), cb.F64())
	default:
		return Value{}, ErrInvalidOperandType
	}
	return boolValue(ok(c)), nil
}

func cmpOrdered[T int32 | uint32 | int64 | uint64 | float64](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}
