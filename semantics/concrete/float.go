package concrete

import (
	"math"

	"github.com/borzacchiello/gosem/bitvec"
	"github.com/borzacchiello/gosem/semantics"
)

func (o *Operators) floatUnsupported(op string, ft semantics.FloatType) error {
	return semantics.NewNotImplemented(nil, "%s for %s in the concrete domain", op, ft)
}

func isBinary32(ft semantics.FloatType) bool { return ft == semantics.IEEE32() }
func isBinary64(ft semantics.FloatType) bool { return ft == semantics.IEEE64() }

// toFloat decodes a binary32 or binary64 value.
func toFloat(a semantics.SValue, ft semantics.FloatType) float64 {
	raw := promote(a).bits.AsUint64()
	if isBinary32(ft) {
		return float64(math.Float32frombits(uint32(raw)))
	}
	return math.Float64frombits(raw)
}

func fromFloat(f float64, ft semantics.FloatType) semantics.SValue {
	if isBinary32(ft) {
		return New(bitvec.MakeFromUint64(uint64(math.Float32bits(float32(f))), 32))
	}
	return New(bitvec.MakeFromUint64(math.Float64bits(f), 64))
}

func (o *Operators) floatOp(op string, ft semantics.FloatType, fn func() float64, operands ...semantics.SValue) (semantics.SValue, error) {
	if !isBinary32(ft) && !isBinary64(ft) {
		return nil, o.floatUnsupported(op, ft)
	}
	for _, v := range operands {
		if v.Width() != ft.NBits() {
			panic("assert: floating point operand width does not match its type")
		}
	}
	if anyBottom(operands...) {
		return bottom(ft.NBits()), nil
	}
	return fromFloat(fn(), ft), nil
}

// FpFromInteger converts a signed integer.
func (o *Operators) FpFromInteger(a semantics.SValue, ft semantics.FloatType) (semantics.SValue, error) {
	if !isBinary32(ft) && !isBinary64(ft) {
		return nil, o.floatUnsupported("fpFromInteger", ft)
	}
	if a.IsBottom() {
		return bottom(ft.NBits()), nil
	}
	b := promote(a).bits
	if b.Size > 64 {
		return nil, o.floatUnsupported("fpFromInteger of a wide integer", ft)
	}
	return fromFloat(float64(b.AsInt64()), ft), nil
}

// FpToInteger converts toward zero to a signed integer of the width of dflt.
func (o *Operators) FpToInteger(a semantics.SValue, ft semantics.FloatType, dflt semantics.SValue) (semantics.SValue, error) {
	if !isBinary32(ft) && !isBinary64(ft) {
		return nil, o.floatUnsupported("fpToInteger", ft)
	}
	nbits := dflt.Width()
	if a.IsBottom() {
		return bottom(nbits), nil
	}
	if nbits > 64 {
		return nil, o.floatUnsupported("fpToInteger to a wide integer", ft)
	}
	f := math.Trunc(toFloat(a, ft))
	lo := -math.Ldexp(1, int(nbits)-1)
	hi := math.Ldexp(1, int(nbits)-1)
	if math.IsNaN(f) || f < lo || f >= hi {
		return dflt, nil
	}
	return New(bitvec.Make(int64(f), nbits)), nil
}

func (o *Operators) FpConvert(a semantics.SValue, from, to semantics.FloatType) (semantics.SValue, error) {
	if from == to {
		return a, nil
	}
	if !(isBinary32(from) || isBinary64(from)) || !(isBinary32(to) || isBinary64(to)) {
		return nil, o.floatUnsupported("fpConvert to "+to.String(), from)
	}
	if a.IsBottom() {
		return bottom(to.NBits()), nil
	}
	return fromFloat(toFloat(a, from), to), nil
}

func (o *Operators) FpAdd(a, b semantics.SValue, ft semantics.FloatType) (semantics.SValue, error) {
	return o.floatOp("fpAdd", ft, func() float64 { return toFloat(a, ft) + toFloat(b, ft) }, a, b)
}

func (o *Operators) FpSubtract(a, b semantics.SValue, ft semantics.FloatType) (semantics.SValue, error) {
	return o.floatOp("fpSubtract", ft, func() float64 { return toFloat(a, ft) - toFloat(b, ft) }, a, b)
}

func (o *Operators) FpMultiply(a, b semantics.SValue, ft semantics.FloatType) (semantics.SValue, error) {
	return o.floatOp("fpMultiply", ft, func() float64 { return toFloat(a, ft) * toFloat(b, ft) }, a, b)
}

func (o *Operators) FpDivide(a, b semantics.SValue, ft semantics.FloatType) (semantics.SValue, error) {
	return o.floatOp("fpDivide", ft, func() float64 { return toFloat(a, ft) / toFloat(b, ft) }, a, b)
}

func (o *Operators) FpSquareRoot(a semantics.SValue, ft semantics.FloatType) (semantics.SValue, error) {
	return o.floatOp("fpSquareRoot", ft, func() float64 { return math.Sqrt(toFloat(a, ft)) }, a)
}

func (o *Operators) FpRoundTowardZero(a semantics.SValue, ft semantics.FloatType) (semantics.SValue, error) {
	return o.floatOp("fpRoundTowardZero", ft, func() float64 { return math.Trunc(toFloat(a, ft)) }, a)
}
