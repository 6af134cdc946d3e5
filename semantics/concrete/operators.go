package concrete

import (
	"github.com/borzacchiello/gosem/bitvec"
	"github.com/borzacchiello/gosem/semantics"
	"github.com/borzacchiello/gosem/symexpr"
)

// Operators implements the RISC operators on concrete values. Any operand
// being bottom makes the result bottom.
type Operators struct {
	semantics.BaseOperators
}

// NewState returns a state with generic registers and a cell map memory.
func NewState(regdict *semantics.RegisterDictionary) *semantics.State {
	proto := NewProtoval()
	return semantics.NewState(
		semantics.NewRegisterStateGeneric(proto, regdict),
		semantics.NewMemoryCellMap(proto, proto))
}

func NewOperators(regdict *semantics.RegisterDictionary) *Operators {
	return NewOperatorsFromState(NewState(regdict), nil)
}

func NewOperatorsFromState(state *semantics.State, solver symexpr.Solver) *Operators {
	ops := &Operators{}
	ops.Init(ops, nil, state, solver)
	ops.SetName("concrete")
	return ops
}

func (o *Operators) Create(protoval semantics.SValue, solver symexpr.Solver) semantics.RiscOperators {
	ops := &Operators{}
	ops.Init(ops, protoval, nil, solver)
	ops.SetName(o.Name())
	return ops
}

func (o *Operators) CreateFromState(state *semantics.State, solver symexpr.Solver) semantics.RiscOperators {
	ops := NewOperatorsFromState(state, solver)
	ops.SetName(o.Name())
	return ops
}

func anyBottom(vals ...semantics.SValue) bool {
	for _, v := range vals {
		if v.IsBottom() {
			return true
		}
	}
	return false
}

func bottom(nbits uint) semantics.SValue {
	return &SValue{bits: bitvec.Zeros(nbits), bottom: true}
}

func bits(v semantics.SValue) *bitvec.BV {
	return promote(v).bits.Copy()
}

// binary applies fn in place on a copy of a.
func binary(a, b semantics.SValue, fn func(x, y *bitvec.BV)) semantics.SValue {
	if anyBottom(a, b) {
		return bottom(a.Width())
	}
	x := bits(a)
	fn(x, promote(b).bits)
	return New(x)
}

func unary(a semantics.SValue, nbits uint, fn func(x *bitvec.BV) *bitvec.BV) semantics.SValue {
	if a.IsBottom() {
		return bottom(nbits)
	}
	return New(fn(bits(a)))
}

func boolean(b bool) semantics.SValue {
	if b {
		return New(bitvec.MakeFromUint64(1, 1))
	}
	return New(bitvec.Zeros(1))
}

func (o *Operators) And(a, b semantics.SValue) semantics.SValue {
	return binary(a, b, (*bitvec.BV).And)
}

func (o *Operators) Or(a, b semantics.SValue) semantics.SValue {
	return binary(a, b, (*bitvec.BV).Or)
}

func (o *Operators) Xor(a, b semantics.SValue) semantics.SValue {
	return binary(a, b, (*bitvec.BV).Xor)
}

func (o *Operators) Invert(a semantics.SValue) semantics.SValue {
	return unary(a, a.Width(), func(x *bitvec.BV) *bitvec.BV { x.Not(); return x })
}

func (o *Operators) Extract(a semantics.SValue, begin, end uint) semantics.SValue {
	return unary(a, end-begin, func(x *bitvec.BV) *bitvec.BV {
		if begin == 0 && end == x.Size {
			return x
		}
		x.Extract(begin, end)
		return x
	})
}

func (o *Operators) Concat(lo, hi semantics.SValue) semantics.SValue {
	if anyBottom(lo, hi) {
		return bottom(lo.Width() + hi.Width())
	}
	x := bits(hi)
	x.Concat(promote(lo).bits)
	return New(x)
}

func (o *Operators) Lssb(a semantics.SValue) semantics.SValue {
	return unary(a, a.Width(), func(x *bitvec.BV) *bitvec.BV {
		i, _ := x.LeastSignificantSetBit()
		return bitvec.MakeFromUint64(uint64(i), x.Size)
	})
}

func (o *Operators) Mssb(a semantics.SValue) semantics.SValue {
	return unary(a, a.Width(), func(x *bitvec.BV) *bitvec.BV {
		i, _ := x.MostSignificantSetBit()
		return bitvec.MakeFromUint64(uint64(i), x.Size)
	})
}

// amount saturates a shift amount at width.
func amount(sa semantics.SValue, width uint) uint {
	b := promote(sa).bits
	if !b.FitInLong() || b.AsUint64() >= uint64(width) {
		return width
	}
	return uint(b.AsUint64())
}

func (o *Operators) shift(a, sa semantics.SValue, fn func(x *bitvec.BV, n uint)) semantics.SValue {
	if anyBottom(a, sa) {
		return bottom(a.Width())
	}
	x := bits(a)
	fn(x, amount(sa, x.Size))
	return New(x)
}

func (o *Operators) RotateLeft(a, sa semantics.SValue) semantics.SValue {
	if anyBottom(a, sa) {
		return bottom(a.Width())
	}
	x := bits(a)
	x.Rol(uint(rotation(sa, x.Size)))
	return New(x)
}

func (o *Operators) RotateRight(a, sa semantics.SValue) semantics.SValue {
	if anyBottom(a, sa) {
		return bottom(a.Width())
	}
	x := bits(a)
	x.Ror(uint(rotation(sa, x.Size)))
	return New(x)
}

// rotation reduces a rotation amount modulo width.
func rotation(sa semantics.SValue, width uint) uint64 {
	b := bits(sa)
	if b.Size < 64 {
		b.Resize(64)
	}
	w := bitvec.MakeFromUint64(uint64(width), b.Size)
	b.URem(w)
	return b.AsUint64()
}

func (o *Operators) ShiftLeft(a, sa semantics.SValue) semantics.SValue {
	return o.shift(a, sa, (*bitvec.BV).Shl)
}

func (o *Operators) ShiftRight(a, sa semantics.SValue) semantics.SValue {
	return o.shift(a, sa, (*bitvec.BV).LShr)
}

func (o *Operators) ShiftRightArithmetic(a, sa semantics.SValue) semantics.SValue {
	return o.shift(a, sa, (*bitvec.BV).AShr)
}

func (o *Operators) EqualToZero(a semantics.SValue) semantics.SValue {
	if a.IsBottom() {
		return bottom(1)
	}
	return boolean(promote(a).bits.IsZero())
}

func (o *Operators) Ite(cond, a, b semantics.SValue) semantics.SValue {
	if cond.Width() != 1 || a.Width() != b.Width() {
		panic("assert: ite needs a 1-bit condition and branches of the same width")
	}
	if anyBottom(cond, a, b) {
		return bottom(a.Width())
	}
	if promote(cond).bits.IsZero() {
		return b.Copy(0)
	}
	return a.Copy(0)
}

func (o *Operators) relational(a, b semantics.SValue, fn func(x, y *bitvec.BV) bool) semantics.SValue {
	if anyBottom(a, b) {
		return bottom(1)
	}
	return boolean(fn(promote(a).bits, promote(b).bits))
}

func (o *Operators) IsEqual(a, b semantics.SValue) semantics.SValue {
	return o.relational(a, b, (*bitvec.BV).Eq)
}

func (o *Operators) IsUnsignedLessThan(a, b semantics.SValue) semantics.SValue {
	return o.relational(a, b, (*bitvec.BV).ULt)
}

func (o *Operators) IsSignedLessThan(a, b semantics.SValue) semantics.SValue {
	return o.relational(a, b, (*bitvec.BV).SLt)
}

func (o *Operators) UnsignedExtend(a semantics.SValue, newWidth uint) semantics.SValue {
	return unary(a, newWidth, func(x *bitvec.BV) *bitvec.BV { x.Resize(newWidth); return x })
}

func (o *Operators) SignExtend(a semantics.SValue, newWidth uint) semantics.SValue {
	return unary(a, newWidth, func(x *bitvec.BV) *bitvec.BV { x.SignResize(newWidth); return x })
}

func (o *Operators) Add(a, b semantics.SValue) semantics.SValue {
	return binary(a, b, (*bitvec.BV).Add)
}

func (o *Operators) Subtract(a, b semantics.SValue) semantics.SValue {
	return binary(a, b, (*bitvec.BV).Sub)
}

func (o *Operators) Negate(a semantics.SValue) semantics.SValue {
	return unary(a, a.Width(), func(x *bitvec.BV) *bitvec.BV { x.Neg(); return x })
}

// widened returns copies of a and b extended to width by extend.
func widened(a, b semantics.SValue, width uint, extend func(x *bitvec.BV, n uint)) (*bitvec.BV, *bitvec.BV) {
	x, y := bits(a), bits(b)
	extend(x, width)
	extend(y, width)
	return x, y
}

func (o *Operators) multiply(a, b semantics.SValue, extend func(x *bitvec.BV, n uint)) semantics.SValue {
	width := a.Width() + b.Width()
	if anyBottom(a, b) {
		return bottom(width)
	}
	x, y := widened(a, b, width, extend)
	x.Mul(y)
	return New(x)
}

func (o *Operators) SignedMultiply(a, b semantics.SValue) semantics.SValue {
	return o.multiply(a, b, (*bitvec.BV).SignResize)
}

func (o *Operators) UnsignedMultiply(a, b semantics.SValue) semantics.SValue {
	return o.multiply(a, b, (*bitvec.BV).Resize)
}

// divide computes fn on operands extended to the widest width and truncates
// the result to nbits. Division by zero is undefined.
func (o *Operators) divide(a, b semantics.SValue, nbits uint, extend func(x *bitvec.BV, n uint),
	fn func(x, y *bitvec.BV)) semantics.SValue {
	if anyBottom(a, b) {
		return bottom(nbits)
	}
	if promote(b).bits.IsZero() {
		return o.Undefined(nbits)
	}
	x, y := widened(a, b, max(a.Width(), b.Width()), extend)
	fn(x, y)
	x.Resize(nbits)
	return New(x)
}

func (o *Operators) SignedDivide(a, b semantics.SValue) semantics.SValue {
	return o.divide(a, b, a.Width(), (*bitvec.BV).SignResize, (*bitvec.BV).SDiv)
}

func (o *Operators) SignedModulo(a, b semantics.SValue) semantics.SValue {
	return o.divide(a, b, b.Width(), (*bitvec.BV).SignResize, (*bitvec.BV).SRem)
}

func (o *Operators) UnsignedDivide(a, b semantics.SValue) semantics.SValue {
	return o.divide(a, b, a.Width(), (*bitvec.BV).Resize, (*bitvec.BV).UDiv)
}

func (o *Operators) UnsignedModulo(a, b semantics.SValue) semantics.SValue {
	return o.divide(a, b, b.Width(), (*bitvec.BV).Resize, (*bitvec.BV).URem)
}

// Rdtsc reads as zero.
func (o *Operators) Rdtsc() semantics.SValue {
	return o.Number(64, 0)
}
