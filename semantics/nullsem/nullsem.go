// Package nullsem implements the null domain. Values only carry a width and
// states store nothing, so every read returns a fresh undefined value. It is
// useful to drive a dispatcher when only the control flow matters.
package nullsem

import (
	"fmt"
	"io"

	"github.com/borzacchiello/gosem/semantics"
	"github.com/borzacchiello/gosem/symexpr"
)

type SValue struct {
	nbits uint
}

func New(nbits uint) *SValue {
	return &SValue{nbits: nbits}
}

func NewProtoval() *SValue {
	return New(1)
}

func (v *SValue) NewUndefined(nbits uint) semantics.SValue   { return New(nbits) }
func (v *SValue) NewUnspecified(nbits uint) semantics.SValue { return New(nbits) }
func (v *SValue) NewBottom(nbits uint) semantics.SValue      { return New(nbits) }
func (v *SValue) NewNumber(nbits uint, _ uint64) semantics.SValue {
	return New(nbits)
}
func (v *SValue) NewBoolean(bool) semantics.SValue { return New(1) }

func (v *SValue) Copy(newWidth uint) semantics.SValue {
	if newWidth == 0 {
		newWidth = v.nbits
	}
	return New(newWidth)
}

func (v *SValue) CreateOptionalMerge(semantics.SValue, *semantics.Merger, symexpr.Solver) (semantics.SValue, bool) {
	return nil, false
}

func (v *SValue) Width() uint    { return v.nbits }
func (v *SValue) IsBottom() bool { return false }
func (v *SValue) IsNumber() bool { return false }

func (v *SValue) Number() uint64 {
	panic("assert: null values are never numbers")
}

func (v *SValue) MayEqual(semantics.SValue, symexpr.Solver) bool  { return true }
func (v *SValue) MustEqual(semantics.SValue, symexpr.Solver) bool { return false }

func (v *SValue) Comment() string   { return "" }
func (v *SValue) SetComment(string) {}

func (v *SValue) Print(w io.Writer, _ *semantics.Formatter) {
	io.WriteString(w, v.String())
}

func (v *SValue) String() string {
	return fmt.Sprintf("null[%d]", v.nbits)
}

// RegisterState discards writes.
type RegisterState struct {
	protoval semantics.SValue
	regdict  *semantics.RegisterDictionary
	merger   *semantics.Merger
}

func NewRegisterState(protoval semantics.SValue, regdict *semantics.RegisterDictionary) *RegisterState {
	return &RegisterState{protoval: protoval, regdict: regdict, merger: semantics.NewMerger()}
}

func (s *RegisterState) Protoval() semantics.SValue                { return s.protoval }
func (s *RegisterState) Dictionary() *semantics.RegisterDictionary { return s.regdict }
func (s *RegisterState) Merger() *semantics.Merger                 { return s.merger }
func (s *RegisterState) SetMerger(m *semantics.Merger)             { s.merger = m }

func (s *RegisterState) Create(protoval semantics.SValue, regdict *semantics.RegisterDictionary) semantics.RegisterState {
	return NewRegisterState(protoval, regdict)
}

func (s *RegisterState) Clone() semantics.RegisterState {
	res := *s
	return &res
}

func (s *RegisterState) Clear() {}
func (s *RegisterState) Zero()  {}

func (s *RegisterState) ReadRegister(desc semantics.RegisterDescriptor, _ semantics.SValue, _ semantics.RiscOperators) semantics.SValue {
	return s.protoval.NewUndefined(desc.NBits)
}

func (s *RegisterState) PeekRegister(desc semantics.RegisterDescriptor, _ semantics.SValue, _ semantics.RiscOperators) semantics.SValue {
	return s.protoval.NewUndefined(desc.NBits)
}

func (s *RegisterState) WriteRegister(semantics.RegisterDescriptor, semantics.SValue, semantics.RiscOperators) {}

func (s *RegisterState) IsStored(semantics.RegisterDescriptor) bool { return false }

func (s *RegisterState) Merge(semantics.RegisterState, semantics.RiscOperators) bool { return false }

func (s *RegisterState) Print(io.Writer, *semantics.Formatter) {}

// MemoryState discards writes. It is not byte restricted, so accesses are
// never split.
type MemoryState struct {
	addrProtoval semantics.SValue
	valProtoval  semantics.SValue
	merger       *semantics.Merger
	byteOrder    semantics.ByteOrder
}

func NewMemoryState(addrProtoval, valProtoval semantics.SValue) *MemoryState {
	return &MemoryState{addrProtoval: addrProtoval, valProtoval: valProtoval, merger: semantics.NewMerger()}
}

func (m *MemoryState) Create(addrProtoval, valProtoval semantics.SValue) semantics.MemoryState {
	return NewMemoryState(addrProtoval, valProtoval)
}

func (m *MemoryState) Clone() semantics.MemoryState {
	res := *m
	return &res
}

func (m *MemoryState) AddrProtoval() semantics.SValue        { return m.addrProtoval }
func (m *MemoryState) ValProtoval() semantics.SValue         { return m.valProtoval }
func (m *MemoryState) Merger() *semantics.Merger             { return m.merger }
func (m *MemoryState) SetMerger(mg *semantics.Merger)        { m.merger = mg }
func (m *MemoryState) ByteRestricted() bool                  { return false }
func (m *MemoryState) SetByteRestricted(bool)                {}
func (m *MemoryState) ByteOrder() semantics.ByteOrder        { return m.byteOrder }
func (m *MemoryState) SetByteOrder(o semantics.ByteOrder)    { m.byteOrder = o }
func (m *MemoryState) Clear()                                {}
func (m *MemoryState) Print(io.Writer, *semantics.Formatter) {}

func (m *MemoryState) ReadMemory(_, dflt semantics.SValue, _, _ semantics.RiscOperators) semantics.SValue {
	return m.valProtoval.NewUndefined(dflt.Width())
}

func (m *MemoryState) PeekMemory(_, dflt semantics.SValue, _, _ semantics.RiscOperators) semantics.SValue {
	return m.valProtoval.NewUndefined(dflt.Width())
}

func (m *MemoryState) WriteMemory(_, _ semantics.SValue, _, _ semantics.RiscOperators) {}

func (m *MemoryState) IsStored(semantics.SValue, semantics.RiscOperators) bool { return false }

func (m *MemoryState) Merge(semantics.MemoryState, semantics.RiscOperators, semantics.RiscOperators) bool {
	return false
}

func NewState(regdict *semantics.RegisterDictionary) *semantics.State {
	proto := NewProtoval()
	return semantics.NewState(NewRegisterState(proto, regdict), NewMemoryState(proto, proto))
}

// Operators returns undefined values of the right width for every operator.
type Operators struct {
	semantics.BaseOperators
}

func NewOperators(regdict *semantics.RegisterDictionary) *Operators {
	return NewOperatorsFromState(NewState(regdict), nil)
}

func NewOperatorsFromState(state *semantics.State, solver symexpr.Solver) *Operators {
	ops := &Operators{}
	ops.Init(ops, nil, state, solver)
	ops.SetName("null")
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

func (o *Operators) And(a, _ semantics.SValue) semantics.SValue { return o.Undefined(a.Width()) }
func (o *Operators) Or(a, _ semantics.SValue) semantics.SValue  { return o.Undefined(a.Width()) }
func (o *Operators) Xor(a, _ semantics.SValue) semantics.SValue { return o.Undefined(a.Width()) }
func (o *Operators) Invert(a semantics.SValue) semantics.SValue { return o.Undefined(a.Width()) }

func (o *Operators) Extract(a semantics.SValue, begin, end uint) semantics.SValue {
	if begin >= end || end > a.Width() {
		panic(fmt.Sprintf("assert: cannot extract [%d,%d) from %d bits", begin, end, a.Width()))
	}
	return o.Undefined(end - begin)
}

func (o *Operators) Concat(lo, hi semantics.SValue) semantics.SValue {
	return o.Undefined(lo.Width() + hi.Width())
}

func (o *Operators) Lssb(a semantics.SValue) semantics.SValue { return o.Undefined(a.Width()) }
func (o *Operators) Mssb(a semantics.SValue) semantics.SValue { return o.Undefined(a.Width()) }

func (o *Operators) RotateLeft(a, _ semantics.SValue) semantics.SValue  { return o.Undefined(a.Width()) }
func (o *Operators) RotateRight(a, _ semantics.SValue) semantics.SValue { return o.Undefined(a.Width()) }
func (o *Operators) ShiftLeft(a, _ semantics.SValue) semantics.SValue   { return o.Undefined(a.Width()) }
func (o *Operators) ShiftRight(a, _ semantics.SValue) semantics.SValue  { return o.Undefined(a.Width()) }
func (o *Operators) ShiftRightArithmetic(a, _ semantics.SValue) semantics.SValue {
	return o.Undefined(a.Width())
}

func (o *Operators) EqualToZero(semantics.SValue) semantics.SValue { return o.Undefined(1) }

func (o *Operators) Ite(cond, a, b semantics.SValue) semantics.SValue {
	if cond.Width() != 1 || a.Width() != b.Width() {
		panic("assert: ite needs a 1-bit condition and branches of the same width")
	}
	return o.Undefined(a.Width())
}

func (o *Operators) SignExtend(_ semantics.SValue, newWidth uint) semantics.SValue {
	return o.Undefined(newWidth)
}

func (o *Operators) Add(a, _ semantics.SValue) semantics.SValue { return o.Undefined(a.Width()) }
func (o *Operators) Negate(a semantics.SValue) semantics.SValue { return o.Undefined(a.Width()) }

func (o *Operators) SignedDivide(a, _ semantics.SValue) semantics.SValue { return o.Undefined(a.Width()) }
func (o *Operators) SignedModulo(_, b semantics.SValue) semantics.SValue { return o.Undefined(b.Width()) }
func (o *Operators) SignedMultiply(a, b semantics.SValue) semantics.SValue {
	return o.Undefined(a.Width() + b.Width())
}

func (o *Operators) UnsignedDivide(a, _ semantics.SValue) semantics.SValue {
	return o.Undefined(a.Width())
}

func (o *Operators) UnsignedModulo(_, b semantics.SValue) semantics.SValue {
	return o.Undefined(b.Width())
}

func (o *Operators) UnsignedMultiply(a, b semantics.SValue) semantics.SValue {
	return o.Undefined(a.Width() + b.Width())
}
