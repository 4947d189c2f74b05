package value

import (
	"errors"
	"fmt"
)

// ErrInvalidCast is returned when a cast's source or target type
// combination is not defined (e.g. casting a pointer to a float).
var ErrInvalidCast = errors.New("value: invalid cast")

// decodeSigned returns the source value's signed 64-bit representation,
// sign-extending integer payloads and truncating floats toward zero.
// Used as the common intermediate for every narrowing/widening cast.
func decodeSigned(v Value) int64 {
	switch v.Type {
	case S8:
		return int64(v.S8())
	case S16:
		return int64(v.S16())
	case S32:
		return int64(v.S32())
	case S64:
		return v.S64()
	case U8:
		return int64(v.U8())
	case U16:
		return int64(v.U16())
	case U32:
		return int64(v.U32())
	case U64:
		return int64(v.U64())
	case F32:
		return int64(v.F32())
	case F64:
		return int64(v.F64())
	default:
		if IsPointer(v.Type) {
			return int64(v.Address())
		}
		return 0
	}
}

// decodeUnsigned returns the source value's unsigned 64-bit
// representation. For float sources this pins the implementation-
// defined float-to-unsigned-int conversion of a negative value as:
// truncate toward zero (via decodeSigned) and reinterpret the bit
// pattern as unsigned (spec.md §8 requires this behaviour be documented
// and pinned, not left ambiguous).
func decodeUnsigned(v Value) uint64 {
	switch v.Type {
	case U8:
		return uint64(v.U8())
	case U16:
		return uint64(v.U16())
	case U32:
		return uint64(v.U32())
	case U64:
		return v.U64()
	case F32, F64:
		return uint64(decodeSigned(v))
	default:
		if IsPointer(v.Type) {
			return v.Address()
		}
		// Signed integers: sign-extend then reinterpret bits as unsigned;
		// this composes correctly with narrowing performed by the caller.
		return uint64(decodeSigned(v))
	}
}

// decodeFloat returns the source value as a float64, used as the
// common intermediate when casting to F32 or F64.
func decodeFloat(v Value) float64 {
	switch v.Type {
	case U64:
		return float64(v.U64())
	case U8, U16, U32:
		return float64(decodeUnsigned(v))
	case F32:
		return float64(v.F32())
	case F64:
		return v.F64()
	default:
		return float64(decodeSigned(v))
	}
}

// CastTo converts v to the target type following C-style
// narrowing/widening/float<->int conversion semantics (spec.md §3
// invariant 6). A pointer may be cast to any integer type or to another
// pointer type, and any integer may be cast to a pointer; the integer's
// width is not checked against an address width. Casting a pointer to
// or from a float is an error.
func CastTo(v Value, target Type) (Value, error) {
	if IsPointer(target) {
		if IsPointer(v.Type) || IsInteger(v.Type) {
			return Value{Type: target, bits: decodeUnsigned(v)}, nil
		}
		return Value{}, fmt.Errorf("%w: cannot cast %s to %s", ErrInvalidCast, v.Type, target)
	}
	if IsPointer(v.Type) && !IsInteger(target) {
		return Value{}, fmt.Errorf("%w: cannot cast %s to %s", ErrPointerToNonIntegral, v.Type, target)
	}

	switch target {
	case S8:
		return NewS8(int8(decodeSigned(v))), nil
	case U8:
		return NewU8(uint8(decodeUnsigned(v))), nil
	case S16:
		return NewS16(int16(decodeSigned(v))), nil
	case U16:
		return NewU16(uint16(decodeUnsigned(v))), nil
	case S32:
		return NewS32(int32(decodeSigned(v))), nil
	case U32:
		return NewU32(uint32(decodeUnsigned(v))), nil
	case S64:
		if !Build64BitValues {
			return Value{}, fmt.Errorf("%w: 64-bit values disabled", ErrInvalidCast)
		}
		return NewS64(decodeSigned(v)), nil
	case U64:
		if !Build64BitValues {
			return Value{}, fmt.Errorf("%w: 64-bit values disabled", ErrInvalidCast)
		}
		return NewU64(decodeUnsigned(v)), nil
	case F32:
		return NewF32(float32(decodeFloat(v))), nil
	case F64:
		return NewF64(decodeFloat(v)), nil
	default:
		return Value{}, fmt.Errorf("%w: unknown target type", ErrInvalidCast)
	}
}
