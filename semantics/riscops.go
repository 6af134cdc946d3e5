package semantics

import (
	"fmt"
	"io"
	"strings"

	"github.com/borzacchiello/gosem/symexpr"
)

// RiscOperators is the semantic instruction set every domain implements.
// Instruction processors express an instruction as a sequence of these
// operators, which never modify their operands.
//
// Unless stated otherwise binary operators require operands of the same
// width and return a value of that width. Bit ranges [begin, end) count from
// the least significant bit.
type RiscOperators interface {
	Name() string
	SetName(name string)
	Protoval() SValue
	Solver() symexpr.Solver
	SetSolver(solver symexpr.Solver)

	CurrentState() *State
	SetCurrentState(state *State)
	// InitialState, when set, records the first value observed at every
	// location: reading a location never written stores the same value in
	// the initial and the current state.
	InitialState() *State
	SetInitialState(state *State)

	NInsns() uint64
	SetNInsns(n uint64)
	// CurrentInstruction returns the instruction being processed. It panics
	// outside StartInstruction/FinishInstruction.
	CurrentInstruction() Instruction
	StartInstruction(insn Instruction)
	FinishInstruction(insn Instruction)

	Undefined(nbits uint) SValue
	Unspecified(nbits uint) SValue
	Bottom(nbits uint) SValue
	Number(nbits uint, v uint64) SValue
	Boolean(b bool) SValue

	FilterCallTarget(a SValue) SValue
	FilterReturnTarget(a SValue) SValue
	FilterIndirectJumpTarget(a SValue) SValue
	Hlt()
	Cpuid()
	// Rdtsc returns the 64-bit time stamp counter.
	Rdtsc() SValue
	Interrupt(major, minor int)

	And(a, b SValue) SValue
	Or(a, b SValue) SValue
	Xor(a, b SValue) SValue
	Invert(a SValue) SValue
	Extract(a SValue, begin, end uint) SValue
	// Concat returns a value whose low bits are lo and high bits are hi.
	Concat(lo, hi SValue) SValue
	// Lssb returns the index of the least significant set bit, zero if none.
	Lssb(a SValue) SValue
	Mssb(a SValue) SValue
	// Shift and rotate amounts may have any width.
	RotateLeft(a, sa SValue) SValue
	RotateRight(a, sa SValue) SValue
	ShiftLeft(a, sa SValue) SValue
	ShiftRight(a, sa SValue) SValue
	ShiftRightArithmetic(a, sa SValue) SValue

	// Comparisons return a single bit.
	EqualToZero(a SValue) SValue
	// Ite selects a when the 1-bit cond is set, b otherwise.
	Ite(cond, a, b SValue) SValue
	IsEqual(a, b SValue) SValue
	IsNotEqual(a, b SValue) SValue
	IsUnsignedLessThan(a, b SValue) SValue
	IsUnsignedLessThanOrEqual(a, b SValue) SValue
	IsUnsignedGreaterThan(a, b SValue) SValue
	IsUnsignedGreaterThanOrEqual(a, b SValue) SValue
	IsSignedLessThan(a, b SValue) SValue
	IsSignedLessThanOrEqual(a, b SValue) SValue
	IsSignedGreaterThan(a, b SValue) SValue
	IsSignedGreaterThanOrEqual(a, b SValue) SValue

	UnsignedExtend(a SValue, newWidth uint) SValue
	SignExtend(a SValue, newWidth uint) SValue

	Add(a, b SValue) SValue
	// AddWithCarries returns a + b + c, c being one bit, and the carries:
	// bit i of carries is set when a carry goes out of bit i.
	AddWithCarries(a, b, c SValue) (SValue, SValue)
	Subtract(a, b SValue) SValue
	Negate(a SValue) SValue
	// Quotients have the width of a, remainders the width of b and products
	// the sum of both widths.
	SignedDivide(a, b SValue) SValue
	SignedModulo(a, b SValue) SValue
	SignedMultiply(a, b SValue) SValue
	UnsignedDivide(a, b SValue) SValue
	UnsignedModulo(a, b SValue) SValue
	UnsignedMultiply(a, b SValue) SValue

	FpFromInteger(a SValue, ft FloatType) (SValue, error)
	// FpToInteger converts toward zero; dflt is returned when the result
	// does not fit in its width.
	FpToInteger(a SValue, ft FloatType, dflt SValue) (SValue, error)
	FpConvert(a SValue, from, to FloatType) (SValue, error)
	FpIsNan(a SValue, ft FloatType) SValue
	FpIsDenormalized(a SValue, ft FloatType) SValue
	FpIsZero(a SValue, ft FloatType) SValue
	FpIsInfinity(a SValue, ft FloatType) SValue
	FpSign(a SValue, ft FloatType) SValue
	FpExponent(a SValue, ft FloatType) SValue
	FpEffectiveExponent(a SValue, ft FloatType) SValue
	FpSignificand(a SValue, ft FloatType) SValue
	FpAdd(a, b SValue, ft FloatType) (SValue, error)
	FpSubtract(a, b SValue, ft FloatType) (SValue, error)
	FpMultiply(a, b SValue, ft FloatType) (SValue, error)
	FpDivide(a, b SValue, ft FloatType) (SValue, error)
	FpSquareRoot(a SValue, ft FloatType) (SValue, error)
	FpRoundTowardZero(a SValue, ft FloatType) (SValue, error)

	ReadRegister(desc RegisterDescriptor) SValue
	ReadRegisterDefault(desc RegisterDescriptor, dflt SValue) SValue
	WriteRegister(desc RegisterDescriptor, value SValue)
	PeekRegister(desc RegisterDescriptor, dflt SValue) SValue

	// ReadMemory reads dflt.Width() bits at addr when the 1-bit cond is set
	// and returns dflt otherwise.
	ReadMemory(segreg RegisterDescriptor, addr, dflt, cond SValue) SValue
	WriteMemory(segreg RegisterDescriptor, addr, value, cond SValue)
	PeekMemory(segreg RegisterDescriptor, addr, dflt SValue) SValue

	// Create returns operators of the same domain over a new empty state.
	Create(protoval SValue, solver symexpr.Solver) RiscOperators
	CreateFromState(state *State, solver symexpr.Solver) RiscOperators

	Print(w io.Writer, f *Formatter)
}

// BaseOperators implements the RiscOperators derived from the domain
// primitives, and the state access. Domains embed it and call Init with
// themselves, so that derived operators dispatch to their primitives.
type BaseOperators struct {
	self         RiscOperators
	name         string
	protoval     SValue
	solver       symexpr.Solver
	currentState *State
	initialState *State
	currentInsn  Instruction
	nInsns       uint64
}

func (b *BaseOperators) Init(self RiscOperators, protoval SValue, state *State, solver symexpr.Solver) {
	assert(self != nil, "operators cannot be nil")
	if protoval == nil {
		assert(state != nil, "either a protoval or a state is needed")
		protoval = state.Protoval()
	}
	b.self = self
	b.protoval = protoval
	b.currentState = state
	b.solver = solver
}

func (b *BaseOperators) Name() string                    { return b.name }
func (b *BaseOperators) SetName(name string)             { b.name = name }
func (b *BaseOperators) Protoval() SValue                { return b.protoval }
func (b *BaseOperators) Solver() symexpr.Solver          { return b.solver }
func (b *BaseOperators) SetSolver(solver symexpr.Solver) { b.solver = solver }
func (b *BaseOperators) CurrentState() *State            { return b.currentState }
func (b *BaseOperators) SetCurrentState(state *State)    { b.currentState = state }
func (b *BaseOperators) InitialState() *State            { return b.initialState }
func (b *BaseOperators) SetInitialState(state *State)    { b.initialState = state }
func (b *BaseOperators) NInsns() uint64                  { return b.nInsns }
func (b *BaseOperators) SetNInsns(n uint64)              { b.nInsns = n }

func (b *BaseOperators) CurrentInstruction() Instruction {
	assert(b.currentInsn != nil, "no instruction is being processed")
	return b.currentInsn
}

// inInstruction returns the instruction being processed, nil outside one.
func (b *BaseOperators) inInstruction() Instruction {
	return b.currentInsn
}

func (b *BaseOperators) StartInstruction(insn Instruction) {
	assert(insn != nil, "instruction cannot be nil")
	assert(b.currentInsn == nil, "instruction processing is not re-entrant: %s started while processing %s",
		insn, b.currentInsn)
	b.currentInsn = insn
	b.nInsns++
}

func (b *BaseOperators) FinishInstruction(insn Instruction) {
	assert(b.currentInsn != nil, "finishing %s which was never started", insn)
	assert(b.currentInsn == insn, "finishing %s while processing %s", insn, b.currentInsn)
	b.currentInsn = nil
}

func (b *BaseOperators) Undefined(nbits uint) SValue   { return b.protoval.NewUndefined(nbits) }
func (b *BaseOperators) Unspecified(nbits uint) SValue { return b.protoval.NewUnspecified(nbits) }
func (b *BaseOperators) Bottom(nbits uint) SValue      { return b.protoval.NewBottom(nbits) }
func (b *BaseOperators) Boolean(v bool) SValue         { return b.protoval.NewBoolean(v) }

func (b *BaseOperators) Number(nbits uint, v uint64) SValue {
	return b.protoval.NewNumber(nbits, v)
}

func (b *BaseOperators) FilterCallTarget(a SValue) SValue         { return a }
func (b *BaseOperators) FilterReturnTarget(a SValue) SValue       { return a }
func (b *BaseOperators) FilterIndirectJumpTarget(a SValue) SValue { return a }
func (b *BaseOperators) Hlt()                                     {}
func (b *BaseOperators) Cpuid()                                   {}
func (b *BaseOperators) Interrupt(int, int)                       {}

func (b *BaseOperators) Rdtsc() SValue {
	return b.self.Unspecified(64)
}

/*
 *  Derived comparisons
 */

func (b *BaseOperators) IsEqual(x, y SValue) SValue {
	return b.self.EqualToZero(b.self.Xor(x, y))
}

func (b *BaseOperators) IsNotEqual(x, y SValue) SValue {
	return b.self.Invert(b.self.IsEqual(x, y))
}

// borrow returns the sign bit of x - y computed one bit wider than the
// operands, extended by extend.
func (b *BaseOperators) borrow(x, y SValue, extend func(SValue, uint) SValue) SValue {
	assert(x.Width() == y.Width(), "operands have %d and %d bits", x.Width(), y.Width())
	n := x.Width()
	d := b.self.Subtract(extend(x, n+1), extend(y, n+1))
	return b.self.Extract(d, n, n+1)
}

func (b *BaseOperators) IsUnsignedLessThan(x, y SValue) SValue {
	return b.borrow(x, y, b.self.UnsignedExtend)
}

func (b *BaseOperators) IsUnsignedLessThanOrEqual(x, y SValue) SValue {
	return b.self.Invert(b.self.IsUnsignedGreaterThan(x, y))
}

func (b *BaseOperators) IsUnsignedGreaterThan(x, y SValue) SValue {
	return b.self.IsUnsignedLessThan(y, x)
}

func (b *BaseOperators) IsUnsignedGreaterThanOrEqual(x, y SValue) SValue {
	return b.self.Invert(b.self.IsUnsignedLessThan(x, y))
}

func (b *BaseOperators) IsSignedLessThan(x, y SValue) SValue {
	return b.borrow(x, y, b.self.SignExtend)
}

func (b *BaseOperators) IsSignedLessThanOrEqual(x, y SValue) SValue {
	return b.self.Invert(b.self.IsSignedGreaterThan(x, y))
}

func (b *BaseOperators) IsSignedGreaterThan(x, y SValue) SValue {
	return b.self.IsSignedLessThan(y, x)
}

func (b *BaseOperators) IsSignedGreaterThanOrEqual(x, y SValue) SValue {
	return b.self.Invert(b.self.IsSignedLessThan(x, y))
}

/*
 *  Derived arithmetic
 */

func (b *BaseOperators) UnsignedExtend(a SValue, newWidth uint) SValue {
	switch {
	case newWidth == a.Width():
		return a
	case newWidth < a.Width():
		return b.self.Extract(a, 0, newWidth)
	}
	return b.self.Concat(a, b.self.Number(newWidth-a.Width(), 0))
}

func (b *BaseOperators) Subtract(x, y SValue) SValue {
	return b.self.Add(x, b.self.Negate(y))
}

func (b *BaseOperators) AddWithCarries(x, y, c SValue) (SValue, SValue) {
	assert(x.Width() == y.Width(), "operands have %d and %d bits", x.Width(), y.Width())
	assert(c.Width() == 1, "carry in has %d bits", c.Width())
	n := x.Width()
	xx := b.self.UnsignedExtend(x, n+1)
	yy := b.self.UnsignedExtend(y, n+1)
	cc := b.self.UnsignedExtend(c, n+1)
	sum := b.self.Add(b.self.Add(xx, yy), cc)
	carries := b.self.Extract(b.self.Xor(b.self.Xor(xx, yy), sum), 1, n+1)
	return b.self.Extract(sum, 0, n), carries
}

/*
 *  Floating point
 */

func (b *BaseOperators) notImplemented(op string, ft FloatType) error {
	return NewNotImplemented(b.currentInsn, "%s for %s in %s", op, ft, b.domainName())
}

func (b *BaseOperators) domainName() string {
	if b.name != "" {
		return b.name
	}
	return fmt.Sprintf("%T", b.self)
}

func (b *BaseOperators) FpFromInteger(_ SValue, ft FloatType) (SValue, error) {
	return nil, b.notImplemented("fpFromInteger", ft)
}

func (b *BaseOperators) FpToInteger(_ SValue, ft FloatType, _ SValue) (SValue, error) {
	return nil, b.notImplemented("fpToInteger", ft)
}

func (b *BaseOperators) FpConvert(a SValue, from, to FloatType) (SValue, error) {
	if from == to {
		return a, nil
	}
	return nil, b.notImplemented("fpConvert to "+to.String(), from)
}

func (b *BaseOperators) checkFloat(a SValue, ft FloatType) {
	assert(a.Width() == ft.NBits(), "value has %d bits, %s has %d", a.Width(), ft, ft.NBits())
}

func (b *BaseOperators) FpSign(a SValue, ft FloatType) SValue {
	b.checkFloat(a, ft)
	return b.self.Extract(a, ft.SignBit(), ft.SignBit()+1)
}

func (b *BaseOperators) FpExponent(a SValue, ft FloatType) SValue {
	b.checkFloat(a, ft)
	begin, end := ft.ExponentRange()
	return b.self.Extract(a, begin, end)
}

func (b *BaseOperators) FpSignificand(a SValue, ft FloatType) SValue {
	b.checkFloat(a, ft)
	begin, end := ft.SignificandRange()
	return b.self.Extract(a, begin, end)
}

func (b *BaseOperators) expAllOnes(a SValue, ft FloatType) SValue {
	return b.self.EqualToZero(b.self.Invert(b.self.FpExponent(a, ft)))
}

func (b *BaseOperators) FpIsNan(a SValue, ft FloatType) SValue {
	return b.self.And(b.expAllOnes(a, ft), b.self.Invert(b.self.EqualToZero(b.self.FpSignificand(a, ft))))
}

func (b *BaseOperators) FpIsInfinity(a SValue, ft FloatType) SValue {
	return b.self.And(b.expAllOnes(a, ft), b.self.EqualToZero(b.self.FpSignificand(a, ft)))
}

func (b *BaseOperators) FpIsZero(a SValue, ft FloatType) SValue {
	b.checkFloat(a, ft)
	return b.self.EqualToZero(b.self.Extract(a, 0, ft.SignBit()))
}

func (b *BaseOperators) FpIsDenormalized(a SValue, ft FloatType) SValue {
	return b.self.And(
		b.self.EqualToZero(b.self.FpExponent(a, ft)),
		b.self.Invert(b.self.EqualToZero(b.self.FpSignificand(a, ft))))
}

// FpEffectiveExponent returns the unbiased exponent as a signed value of the
// exponent width. Denormalized numbers have exponent 1 - bias.
func (b *BaseOperators) FpEffectiveExponent(a SValue, ft FloatType) SValue {
	exp := b.self.FpExponent(a, ft)
	bias := b.self.Number(ft.ExponentBits, ft.ExponentBias())
	return b.self.Ite(
		b.self.EqualToZero(exp),
		b.self.Subtract(b.self.Number(ft.ExponentBits, 1), bias),
		b.self.Subtract(exp, bias))
}

func (b *BaseOperators) FpAdd(_, _ SValue, ft FloatType) (SValue, error) {
	return nil, b.notImplemented("fpAdd", ft)
}

func (b *BaseOperators) FpSubtract(_, _ SValue, ft FloatType) (SValue, error) {
	return nil, b.notImplemented("fpSubtract", ft)
}

func (b *BaseOperators) FpMultiply(_, _ SValue, ft FloatType) (SValue, error) {
	return nil, b.notImplemented("fpMultiply", ft)
}

func (b *BaseOperators) FpDivide(_, _ SValue, ft FloatType) (SValue, error) {
	return nil, b.notImplemented("fpDivide", ft)
}

func (b *BaseOperators) FpSquareRoot(_ SValue, ft FloatType) (SValue, error) {
	return nil, b.notImplemented("fpSquareRoot", ft)
}

func (b *BaseOperators) FpRoundTowardZero(_ SValue, ft FloatType) (SValue, error) {
	return nil, b.notImplemented("fpRoundTowardZero", ft)
}

/*
 *  Registers
 */

func (b *BaseOperators) state() *State {
	assert(b.currentState != nil, "operators have no current state")
	return b.currentState
}

func (b *BaseOperators) ReadRegister(desc RegisterDescriptor) SValue {
	dflt := b.self.Undefined(desc.NBits)
	if regdict := b.state().Registers().Dictionary(); regdict != nil {
		if name := regdict.LookupName(desc); name != desc.String() {
			dflt.SetComment(name + "_0")
		}
	}
	return b.self.ReadRegisterDefault(desc, dflt)
}

func (b *BaseOperators) ReadRegisterDefault(desc RegisterDescriptor, dflt SValue) SValue {
	cur := b.state()
	if b.initialState != nil && !cur.Registers().IsStored(desc) {
		dflt = b.initialState.ReadRegister(desc, dflt, b.self)
	}
	v := cur.ReadRegister(desc, dflt, b.self)
	if pt, ok := cur.Registers().(PropertyTracker); ok {
		pt.UpdateReadProperties(desc)
	}
	return v
}

func (b *BaseOperators) PeekRegister(desc RegisterDescriptor, dflt SValue) SValue {
	cur := b.state()
	if b.initialState != nil && !cur.Registers().IsStored(desc) {
		dflt = b.initialState.PeekRegister(desc, dflt, b.self)
	}
	return cur.PeekRegister(desc, dflt, b.self)
}

// WriteRegister marks the register written when inside an instruction and
// initialized otherwise.
func (b *BaseOperators) WriteRegister(desc RegisterDescriptor, value SValue) {
	cur := b.state()
	cur.WriteRegister(desc, value, b.self)
	if pt, ok := cur.Registers().(PropertyTracker); ok {
		prop := IO_INIT
		if b.currentInsn != nil {
			prop = IO_WRITE
		}
		pt.UpdateWriteProperties(desc, NewIOPropertySet(prop))
	}
}

/*
 *  Memory
 */

// byteAddresses returns the address of every byte of an access of nbits
// at addr, ordered from the least significant byte of the value.
func (b *BaseOperators) byteAddresses(addr SValue, nbits uint, order ByteOrder) []SValue {
	assert(nbits%8 == 0, "byte restricted memory cannot access %d bits", nbits)
	nbytes := nbits / 8
	res := make([]SValue, nbytes)
	for i := uint(0); i < nbytes; i++ {
		offset := i
		if order == BigEndian {
			offset = nbytes - 1 - i
		}
		if offset == 0 {
			res[i] = addr
		} else {
			res[i] = b.self.Add(addr, b.self.Number(addr.Width(), uint64(offset)))
		}
	}
	return res
}

func (b *BaseOperators) readCell(addr, dflt SValue, commit bool) SValue {
	cur := b.state()
	if b.initialState != nil && !cur.Memory().IsStored(addr, b.self) {
		if commit {
			dflt = b.initialState.ReadMemory(addr, dflt, b.self, b.self)
		} else {
			dflt = b.initialState.PeekMemory(addr, dflt, b.self, b.self)
		}
	}
	if commit {
		return cur.ReadMemory(addr, dflt, b.self, b.self)
	}
	return cur.PeekMemory(addr, dflt, b.self, b.self)
}

// readMemory splits accesses to byte restricted memories in bytes. Bytes
// never written take the matching byte of dflt.
func (b *BaseOperators) readMemory(addr, dflt SValue, commit bool) SValue {
	mem := b.state().Memory()
	if !mem.ByteRestricted() {
		return b.readCell(addr, dflt, commit)
	}
	addrs := b.byteAddresses(addr, dflt.Width(), mem.ByteOrder())
	if len(addrs) == 1 {
		return b.readCell(addr, dflt, commit)
	}
	var res SValue
	for i, a := range addrs {
		byteDflt := b.self.Extract(dflt, uint(i)*8, uint(i)*8+8)
		v := b.readCell(a, byteDflt, commit)
		if res == nil {
			res = v
		} else {
			res = b.self.Concat(res, v)
		}
	}
	return res
}

func (b *BaseOperators) ReadMemory(_ RegisterDescriptor, addr, dflt, cond SValue) SValue {
	assert(cond.Width() == 1, "condition has %d bits", cond.Width())
	if IsFalse(cond) {
		return dflt
	}
	return b.readMemory(addr, dflt, true)
}

func (b *BaseOperators) PeekMemory(_ RegisterDescriptor, addr, dflt SValue) SValue {
	return b.readMemory(addr, dflt, false)
}

func (b *BaseOperators) WriteMemory(_ RegisterDescriptor, addr, value, cond SValue) {
	assert(cond.Width() == 1, "condition has %d bits", cond.Width())
	if IsFalse(cond) {
		return
	}
	cur := b.state()
	mem := cur.Memory()
	if !mem.ByteRestricted() {
		cur.WriteMemory(addr, value, b.self, b.self)
		return
	}
	addrs := b.byteAddresses(addr, value.Width(), mem.ByteOrder())
	if len(addrs) == 1 {
		cur.WriteMemory(addr, value, b.self, b.self)
		return
	}
	for i, a := range addrs {
		cur.WriteMemory(a, b.self.Extract(value, uint(i)*8, uint(i)*8+8), b.self, b.self)
	}
}

func (b *BaseOperators) Print(w io.Writer, f *Formatter) {
	if b.currentState == nil {
		fmt.Fprintf(w, "%sno current state\n", f.LinePrefix)
		return
	}
	b.currentState.Print(w, f)
}

func (b *BaseOperators) String() string {
	var sb strings.Builder
	b.Print(&sb, NewFormatter())
	return sb.String()
}
