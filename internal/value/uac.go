package value

// rankOrder lists the 10 concrete types from highest to lowest
// conversion rank, per spec.md §4.D's usual-arithmetic-conversion table:
// F64 > F32 > U64 > S64 > U32 > S32 > U16 > S16 > U8 > S8.
var rankOrder = [...]Type{F64, F32, U64, S64, U32, S32, U16, S16, U8, S8}

var rankOf = func() map[Type]int {
	m := make(map[Type]int, len(rankOrder))
	for i, t := range rankOrder {
		m[t] = i
	}
	return m
}()

// Rank returns t's position in the UAC rank order; lower is higher rank.
// Pointer types and Invalid have no rank and report -1.
func Rank(t Type) int {
	if r, ok := rankOf[t]; ok {
		return r
	}
	return -1
}

// HigherType returns whichever of a, b has the higher conversion rank.
// Commutative and monotone on Rank, per spec.md §8 property 6.
func HigherType(a, b Type) Type {
	if Rank(a) < 0 || Rank(b) < 0 {
		return Invalid
	}
	if Rank(a) <= Rank(b) {
		return a
	}
	return b
}

// PromotedType applies the small-type and F32 promotions of spec.md
// §4.A to a static type, without touching any value: S8/U8/S16/U16
// promote to S32 (unsigned narrow types promote to S32 too, per C
// integer-promotion rules as spec.md explicitly pins), F32 promotes to
// F64. S32/U32/S64/U64/F64 are returned unchanged.
func PromotedType(t Type) Type {
	switch t {
	case S8, U8, S16, U16:
		return S32
	case F32:
		return F64
	default:
		return t
	}
}

// ArithResultType computes the type a binary arithmetic or bitwise
// operation's result has at run time, after promotion and UAC. The
// parser does not use it: binary nodes get HigherType of their
// unpromoted operand types, and shift nodes PromotedType of the left
// operand.
func ArithResultType(a, b Type) Type {
	return HigherType(PromotedType(a), PromotedType(b))
}

// Promote applies PromotedType to a value, converting its payload along
// the way (e.g. widening an s16 payload into an s32 one).
func Promote(v Value) Value {
	target := PromotedType(v.Type)
	if target == v.Type {
		return v
	}
	out, _ := CastTo(v, target)
	return out
}
