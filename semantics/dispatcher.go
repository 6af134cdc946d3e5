package semantics

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Architecture names the registers a dispatcher needs from the register
// dictionary.
type Architecture struct {
	Name               string
	InstructionPointer string
	StackPointer       string
}

// InsnProcessor implements the semantics of one kind of instruction in terms
// of the dispatcher's operators.
type InsnProcessor interface {
	Process(d *Dispatcher, insn Instruction) error
}

type IprocFunc func(d *Dispatcher, insn Instruction) error

func (f IprocFunc) Process(d *Dispatcher, insn Instruction) error {
	return f(d, insn)
}

// Dispatcher translates instructions into RiscOperators calls using a table
// of instruction processors indexed by instruction kind.
type Dispatcher struct {
	arch      Architecture
	ops       RiscOperators
	regdict   *RegisterDictionary
	addrWidth uint
	iprocs    []InsnProcessor

	autoResetIP bool
	ipReg       RegisterDescriptor
	spReg       RegisterDescriptor
}

// NewDispatcher returns a dispatcher with an empty processor table. A zero
// addrWidth leaves the address width to be set later.
func NewDispatcher(arch Architecture, ops RiscOperators, addrWidth uint, regdict *RegisterDictionary) (*Dispatcher, error) {
	assert(ops != nil, "operators cannot be nil")
	assert(regdict != nil, "register dictionary cannot be nil")
	d := &Dispatcher{
		arch:        arch,
		ops:         ops,
		regdict:     regdict,
		autoResetIP: true,
	}
	d.SetAddressWidth(addrWidth)

	var err error
	if d.ipReg, err = d.FindRegister(arch.InstructionPointer, 0, false); err != nil {
		return nil, errors.Wrap(err, "instruction pointer")
	}
	if d.spReg, err = d.FindRegister(arch.StackPointer, 0, true); err != nil {
		return nil, errors.Wrap(err, "stack pointer")
	}
	return d, nil
}

// Create returns a dispatcher for the same architecture, sharing the
// processor table, over other operators.
func (d *Dispatcher) Create(ops RiscOperators, addrWidth uint) *Dispatcher {
	if addrWidth == 0 {
		addrWidth = d.addrWidth
	}
	res := &Dispatcher{
		arch:        d.arch,
		ops:         ops,
		regdict:     d.regdict,
		autoResetIP: d.autoResetIP,
		ipReg:       d.ipReg,
		spReg:       d.spReg,
		iprocs:      make([]InsnProcessor, len(d.iprocs)),
	}
	copy(res.iprocs, d.iprocs)
	res.SetAddressWidth(addrWidth)
	return res
}

func (d *Dispatcher) Architecture() Architecture {
	return d.arch
}

func (d *Dispatcher) Operators() RiscOperators {
	return d.ops
}

func (d *Dispatcher) SetOperators(ops RiscOperators) {
	d.ops = ops
}

func (d *Dispatcher) CurrentState() *State {
	return d.ops.CurrentState()
}

func (d *Dispatcher) Protoval() SValue {
	return d.ops.Protoval()
}

func (d *Dispatcher) CurrentInstruction() Instruction {
	return d.ops.CurrentInstruction()
}

func (d *Dispatcher) RegisterDictionary() *RegisterDictionary {
	return d.regdict
}

func (d *Dispatcher) InstructionPointerRegister() RegisterDescriptor {
	return d.ipReg
}

// StackPointerRegister returns an empty descriptor for architectures
// without a stack pointer.
func (d *Dispatcher) StackPointerRegister() RegisterDescriptor {
	return d.spReg
}

func (d *Dispatcher) AddressWidth() uint {
	return d.addrWidth
}

// SetAddressWidth sets the address width once. Setting it again to the same
// value is allowed.
func (d *Dispatcher) SetAddressWidth(nbits uint) {
	if nbits == 0 {
		return
	}
	assert(d.addrWidth == 0 || d.addrWidth == nbits, "address width is %d, cannot change it to %d", d.addrWidth, nbits)
	d.addrWidth = nbits
}

func (d *Dispatcher) AutoResetInstructionPointer() bool {
	return d.autoResetIP
}

// SetAutoResetInstructionPointer makes ProcessInstruction write the
// instruction address to the instruction pointer before processing.
func (d *Dispatcher) SetAutoResetInstructionPointer(b bool) {
	d.autoResetIP = b
}

/*
 *  Processor table
 */

func (d *Dispatcher) IprocGet(kind int) InsnProcessor {
	if kind < 0 || kind >= len(d.iprocs) {
		return nil
	}
	return d.iprocs[kind]
}

func (d *Dispatcher) IprocSet(kind int, iproc InsnProcessor) {
	assert(kind >= 0, "invalid instruction kind %d", kind)
	if kind >= len(d.iprocs) {
		grown := make([]InsnProcessor, kind+1)
		copy(grown, d.iprocs)
		d.iprocs = grown
	}
	d.iprocs[kind] = iproc
}

func (d *Dispatcher) IprocLookup(insn Instruction) InsnProcessor {
	return d.IprocGet(insn.Kind())
}

// IprocReplace installs iproc for the kind of insn and returns the processor
// it replaces.
func (d *Dispatcher) IprocReplace(insn Instruction, iproc InsnProcessor) InsnProcessor {
	old := d.IprocLookup(insn)
	d.IprocSet(insn.Kind(), iproc)
	return old
}

// ProcessInstruction runs the processor of insn between StartInstruction and
// FinishInstruction. Errors are returned as *Exception or *NotImplemented
// carrying the instruction.
func (d *Dispatcher) ProcessInstruction(insn Instruction) error {
	iproc := d.IprocLookup(insn)
	if iproc == nil {
		log.Errorf("no instruction processor for %s (kind %d)", insn, insn.Kind())
		return errors.Wrapf(ErrNoProcessor, "%s (kind %d)", insn, insn.Kind())
	}

	log.Debugf("%#x: %s", insn.Address(), insn)
	d.ops.StartInstruction(insn)
	defer d.ops.FinishInstruction(insn)

	if d.autoResetIP {
		d.ops.WriteRegister(d.ipReg, d.ops.Number(d.ipReg.NBits, insn.Address()))
	}
	if err := iproc.Process(d, insn); err != nil {
		if IsNotImplemented(err) {
			log.Warnf("%s: %v", insn, err)
		}
		return WrapException(err, insn)
	}
	return nil
}

/*
 *  Helpers for instruction processors
 */

// FindRegister looks up a register by name. A non-zero nbits must match the
// register width. Missing registers are an error unless allowMissing is set,
// in which case the empty descriptor is returned.
func (d *Dispatcher) FindRegister(name string, nbits uint, allowMissing bool) (RegisterDescriptor, error) {
	desc, ok := d.regdict.Lookup(name)
	if !ok {
		if allowMissing {
			return RegisterDescriptor{}, nil
		}
		return RegisterDescriptor{}, errors.Errorf("register %q not found in dictionary %q", name, d.regdict.Name())
	}
	if nbits != 0 && desc.NBits != nbits {
		return RegisterDescriptor{}, errors.Errorf("register %q has %d bits, expected %d", name, desc.NBits, nbits)
	}
	return desc, nil
}

// AdvanceInstructionPointer adds the size of insn to the instruction
// pointer.
func (d *Dispatcher) AdvanceInstructionPointer(insn Instruction) {
	ip := d.ops.ReadRegister(d.ipReg)
	d.ops.WriteRegister(d.ipReg, d.ops.Add(ip, d.ops.Number(d.ipReg.NBits, uint64(insn.Size()))))
}

// SegmentRegister returns the segment register of a memory operand, or the
// empty descriptor.
func (d *Dispatcher) SegmentRegister(mre *MemoryExpr) RegisterDescriptor {
	if mre.Segment == nil {
		return RegisterDescriptor{}
	}
	return mre.Segment.Desc
}

func (d *Dispatcher) fitWidth(v SValue, nbits uint, extend func(SValue, uint) SValue) SValue {
	switch {
	case nbits == 0 || v.Width() == nbits:
		return v
	case v.Width() > nbits:
		return d.ops.Extract(v, 0, nbits)
	}
	return extend(v, nbits)
}

func (d *Dispatcher) adjust(r *RegisterExpr, amount int64) SValue {
	v := d.ops.ReadRegister(r.Desc)
	n := d.ops.Add(v, d.ops.Number(r.Desc.NBits, uint64(amount)))
	d.ops.WriteRegister(r.Desc, n)
	return n
}

// EffectiveAddress computes the address of a memory operand, or the value of
// an address expression, as nbits bits. A zero nbits uses the address width.
func (d *Dispatcher) EffectiveAddress(e Expression, nbits uint) (SValue, error) {
	if nbits == 0 {
		nbits = d.addrWidth
	}
	var v SValue
	switch e := e.(type) {
	case *MemoryExpr:
		return d.EffectiveAddress(e.Address, nbits)
	case *RegisterExpr:
		v = d.ops.ReadRegister(e.Desc)
	case *ConstantExpr:
		v = d.ops.Number(e.NBits, e.Value)
	case *BinaryExpr:
		lhs, err := d.EffectiveAddress(e.LHS, nbits)
		if err != nil {
			return nil, err
		}
		rhs, err := d.EffectiveAddress(e.RHS, nbits)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case BINOP_ADD:
			v = d.ops.Add(lhs, rhs)
		case BINOP_SUB:
			v = d.ops.Subtract(lhs, rhs)
		case BINOP_MUL:
			v = d.ops.Extract(d.ops.UnsignedMultiply(lhs, rhs), 0, nbits)
		case BINOP_LSL:
			v = d.ops.ShiftLeft(lhs, rhs)
		default:
			return nil, NewNotImplemented(d.currentInsn(), "binary operator %d in address", e.Op)
		}
	case *PreIncrementExpr:
		v = d.adjust(&e.Register, e.Amount)
	case *PostIncrementExpr:
		v = d.ops.ReadRegister(e.Register.Desc)
		d.adjust(&e.Register, e.Amount)
	default:
		return nil, NewNotImplemented(d.currentInsn(), "address expression %T", e)
	}
	return d.fitWidth(v, nbits, d.ops.SignExtend), nil
}

// Read returns the value of an operand as valueNBits bits, zero-extending or
// truncating it. Memory operands are addressed with addrNBits bits. Zero
// widths keep the natural width of the operand; a memory operand needs a width
// from one side or the other.
func (d *Dispatcher) Read(e Expression, valueNBits, addrNBits uint) (SValue, error) {
	var v SValue
	switch e := e.(type) {
	case *RegisterExpr:
		v = d.ops.ReadRegister(e.Desc)
	case *ConstantExpr:
		v = d.ops.Number(e.NBits, e.Value)
	case *MemoryExpr:
		nbits := e.NBits
		if nbits == 0 {
			nbits = valueNBits
		}
		if nbits == 0 {
			return nil, errors.Errorf("memory operand at %s has no width", e.Address)
		}
		addr, err := d.EffectiveAddress(e, addrNBits)
		if err != nil {
			return nil, err
		}
		v = d.ops.ReadMemory(d.SegmentRegister(e), addr, d.ops.Undefined(nbits), d.ops.Boolean(true))
	default:
		var err error
		if v, err = d.EffectiveAddress(e, valueNBits); err != nil {
			return nil, err
		}
	}
	return d.fitWidth(v, valueNBits, d.ops.UnsignedExtend), nil
}

// Write stores value into a register or memory operand.
func (d *Dispatcher) Write(e Expression, value SValue, addrNBits uint) error {
	switch e := e.(type) {
	case *RegisterExpr:
		d.ops.WriteRegister(e.Desc, value)
	case *MemoryExpr:
		addr, err := d.EffectiveAddress(e, addrNBits)
		if err != nil {
			return err
		}
		d.ops.WriteMemory(d.SegmentRegister(e), addr, value, d.ops.Boolean(true))
	default:
		return NewNotImplemented(d.currentInsn(), "write to %T", e)
	}
	return nil
}

func walkRegisters(e Expression, fn func(r *RegisterExpr)) {
	switch e := e.(type) {
	case *RegisterExpr:
		fn(e)
	case *MemoryExpr:
		walkRegisters(e.Address, fn)
	case *BinaryExpr:
		walkRegisters(e.LHS, fn)
		walkRegisters(e.RHS, fn)
	}
}

// IncrementRegisters applies every positive register adjustment in e.
func (d *Dispatcher) IncrementRegisters(e Expression) {
	walkRegisters(e, func(r *RegisterExpr) {
		if r.Adjustment > 0 {
			d.adjust(r, r.Adjustment)
		}
	})
}

// DecrementRegisters applies every negative register adjustment in e.
func (d *Dispatcher) DecrementRegisters(e Expression) {
	walkRegisters(e, func(r *RegisterExpr) {
		if r.Adjustment < 0 {
			d.adjust(r, r.Adjustment)
		}
	})
}

func (d *Dispatcher) currentInsn() Instruction {
	if b, ok := d.ops.(interface{ inInstruction() Instruction }); ok {
		return b.inInstruction()
	}
	return nil
}
