package symbolic

import (
	"github.com/borzacchiello/gosem/semantics"
	"github.com/borzacchiello/gosem/symexpr"
)

// Operators implements the RISC operators by building expressions. The
// simplifier folds whatever is concrete.
type Operators struct {
	semantics.BaseOperators
	eb *symexpr.ExprBuilder
}

// NewState returns a state with generic registers and a memory cell list.
func NewState(eb *symexpr.ExprBuilder, regdict *semantics.RegisterDictionary) *semantics.State {
	proto := NewProtoval(eb)
	return semantics.NewState(
		semantics.NewRegisterStateGeneric(proto, regdict),
		semantics.NewMemoryCellList(proto, proto))
}

func NewOperators(eb *symexpr.ExprBuilder, regdict *semantics.RegisterDictionary, solver symexpr.Solver) *Operators {
	return NewOperatorsFromState(NewState(eb, regdict), solver)
}

func NewOperatorsFromState(state *semantics.State, solver symexpr.Solver) *Operators {
	proto := promote(state.Protoval())
	ops := &Operators{eb: proto.eb}
	ops.Init(ops, proto, state, solver)
	ops.SetName("symbolic")
	return ops
}

func (o *Operators) Builder() *symexpr.ExprBuilder {
	return o.eb
}

func (o *Operators) Create(protoval semantics.SValue, solver symexpr.Solver) semantics.RiscOperators {
	proto := promote(protoval)
	ops := &Operators{eb: proto.eb}
	ops.Init(ops, proto, nil, solver)
	ops.SetName(o.Name())
	return ops
}

func (o *Operators) CreateFromState(state *semantics.State, solver symexpr.Solver) semantics.RiscOperators {
	ops := NewOperatorsFromState(state, solver)
	ops.SetName(o.Name())
	return ops
}

func (o *Operators) wrap(e *symexpr.Node) semantics.SValue {
	return New(o.eb, e)
}

// result wraps e unless one of the operands is bottom, in which case the
// result is bottom too. The simplifier may have dropped the operand.
func (o *Operators) result(e *symexpr.Node, operands ...semantics.SValue) semantics.SValue {
	if anyBottom(operands...) && !e.Flags().Bottom {
		return o.Bottom(e.NBits())
	}
	return o.wrap(e)
}

func anyBottom(vals ...semantics.SValue) bool {
	for _, v := range vals {
		if v.IsBottom() {
			return true
		}
	}
	return false
}

func expr(v semantics.SValue) *symexpr.Node {
	return promote(v).expr
}

func (o *Operators) And(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.And(expr(a), expr(b)), a, b)
}

func (o *Operators) Or(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.Or(expr(a), expr(b)), a, b)
}

func (o *Operators) Xor(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.Xor(expr(a), expr(b)), a, b)
}

func (o *Operators) Invert(a semantics.SValue) semantics.SValue {
	return o.result(o.eb.Invert(expr(a)), a)
}

func (o *Operators) Extract(a semantics.SValue, begin, end uint) semantics.SValue {
	return o.result(o.eb.Extract(begin, end, expr(a)), a)
}

func (o *Operators) Concat(lo, hi semantics.SValue) semantics.SValue {
	return o.result(o.eb.Concat(expr(hi), expr(lo)), lo, hi)
}

func (o *Operators) Lssb(a semantics.SValue) semantics.SValue {
	return o.result(o.eb.Lssb(expr(a)), a)
}

func (o *Operators) Mssb(a semantics.SValue) semantics.SValue {
	return o.result(o.eb.Mssb(expr(a)), a)
}

func (o *Operators) RotateLeft(a, sa semantics.SValue) semantics.SValue {
	return o.result(o.eb.Rol(expr(sa), expr(a)), a, sa)
}

func (o *Operators) RotateRight(a, sa semantics.SValue) semantics.SValue {
	return o.result(o.eb.Ror(expr(sa), expr(a)), a, sa)
}

func (o *Operators) ShiftLeft(a, sa semantics.SValue) semantics.SValue {
	return o.result(o.eb.Shl0(expr(sa), expr(a)), a, sa)
}

func (o *Operators) ShiftRight(a, sa semantics.SValue) semantics.SValue {
	return o.result(o.eb.Shr0(expr(sa), expr(a)), a, sa)
}

func (o *Operators) ShiftRightArithmetic(a, sa semantics.SValue) semantics.SValue {
	return o.result(o.eb.Asr(expr(sa), expr(a)), a, sa)
}

func (o *Operators) EqualToZero(a semantics.SValue) semantics.SValue {
	return o.result(o.eb.Zerop(expr(a)), a)
}

func (o *Operators) Ite(cond, a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.Ite(expr(cond), expr(a), expr(b), symexpr.WithSolver(o.Solver())), cond, a, b)
}

func (o *Operators) IsEqual(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.Eq(expr(a), expr(b)), a, b)
}

func (o *Operators) IsNotEqual(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.Ne(expr(a), expr(b)), a, b)
}

func (o *Operators) IsUnsignedLessThan(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.UnsignedLt(expr(a), expr(b)), a, b)
}

func (o *Operators) IsUnsignedLessThanOrEqual(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.UnsignedLe(expr(a), expr(b)), a, b)
}

func (o *Operators) IsUnsignedGreaterThan(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.UnsignedGt(expr(a), expr(b)), a, b)
}

func (o *Operators) IsUnsignedGreaterThanOrEqual(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.UnsignedGe(expr(a), expr(b)), a, b)
}

func (o *Operators) IsSignedLessThan(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.SignedLt(expr(a), expr(b)), a, b)
}

func (o *Operators) IsSignedLessThanOrEqual(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.SignedLe(expr(a), expr(b)), a, b)
}

func (o *Operators) IsSignedGreaterThan(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.SignedGt(expr(a), expr(b)), a, b)
}

func (o *Operators) IsSignedGreaterThanOrEqual(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.SignedGe(expr(a), expr(b)), a, b)
}

func (o *Operators) UnsignedExtend(a semantics.SValue, newWidth uint) semantics.SValue {
	return o.result(o.eb.UnsignedExtend(newWidth, expr(a)), a)
}

func (o *Operators) SignExtend(a semantics.SValue, newWidth uint) semantics.SValue {
	return o.result(o.eb.SignExtend(newWidth, expr(a)), a)
}

func (o *Operators) Add(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.Add(expr(a), expr(b)), a, b)
}

// AddWithCarries returns the sum as a flat addition at the operand width.
func (o *Operators) AddWithCarries(a, b, c semantics.SValue) (semantics.SValue, semantics.SValue) {
	_, carries := o.BaseOperators.AddWithCarries(a, b, c)
	sum := o.eb.Add(o.eb.Add(expr(a), expr(b)), o.eb.UnsignedExtend(a.Width(), expr(c)))
	return o.result(sum, a, b, c), carries
}

func (o *Operators) Negate(a semantics.SValue) semantics.SValue {
	return o.result(o.eb.Negate(expr(a)), a)
}

func (o *Operators) SignedDivide(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.SignedDiv(expr(a), expr(b)), a, b)
}

func (o *Operators) SignedModulo(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.SignedMod(expr(a), expr(b)), a, b)
}

func (o *Operators) SignedMultiply(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.SignedMul(expr(a), expr(b)), a, b)
}

func (o *Operators) UnsignedDivide(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.UnsignedDiv(expr(a), expr(b)), a, b)
}

func (o *Operators) UnsignedModulo(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.UnsignedMod(expr(a), expr(b)), a, b)
}

func (o *Operators) UnsignedMultiply(a, b semantics.SValue) semantics.SValue {
	return o.result(o.eb.UnsignedMul(expr(a), expr(b)), a, b)
}
