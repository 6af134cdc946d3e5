package toyisa

import (
	"github.com/borzacchiello/gosem/semantics"
	"github.com/pkg/errors"
)

type flags struct {
	cf, zf, sf, of semantics.RegisterDescriptor
}

func lookupFlags(d *semantics.Dispatcher) (flags, error) {
	var f flags
	for _, r := range []struct {
		name string
		desc *semantics.RegisterDescriptor
	}{{"cf", &f.cf}, {"zf", &f.zf}, {"sf", &f.sf}, {"of", &f.of}} {
		desc, err := d.FindRegister(r.name, 1, false)
		if err != nil {
			return f, err
		}
		*r.desc = desc
	}
	return f, nil
}

// NewDispatcher returns a dispatcher for the toy machine over ops with every
// instruction processor installed.
func NewDispatcher(ops semantics.RiscOperators) (*semantics.Dispatcher, error) {
	rd := Registers()
	d, err := semantics.NewDispatcher(Arch, ops, AddressWidth, rd)
	if err != nil {
		return nil, err
	}
	f, err := lookupFlags(d)
	if err != nil {
		return nil, errors.Wrap(err, "flags")
	}
	install(d, f)
	return d, nil
}

func install(d *semantics.Dispatcher, f flags) {
	alu := func(fn func(o semantics.RiscOperators, a, b semantics.SValue) semantics.SValue) semantics.IprocFunc {
		return binary(f, true, func(o semantics.RiscOperators, a, b semantics.SValue) semantics.SValue {
			r := fn(o, a, b)
			o.WriteRegister(f.cf, o.Boolean(false))
			o.WriteRegister(f.of, o.Boolean(false))
			return r
		})
	}

	d.IprocSet(int(OP_NOP), semantics.IprocFunc(func(d *semantics.Dispatcher, insn semantics.Instruction) error {
		d.AdvanceInstructionPointer(insn)
		return nil
	}))
	d.IprocSet(int(OP_MOV), semantics.IprocFunc(move))
	d.IprocSet(int(OP_LOAD), semantics.IprocFunc(move))
	d.IprocSet(int(OP_STORE), semantics.IprocFunc(move))
	d.IprocSet(int(OP_ADD), binary(f, true, func(o semantics.RiscOperators, a, b semantics.SValue) semantics.SValue {
		return addFlags(o, f, a, b, o.Boolean(false), false)
	}))
	d.IprocSet(int(OP_SUB), binary(f, true, func(o semantics.RiscOperators, a, b semantics.SValue) semantics.SValue {
		return addFlags(o, f, a, o.Invert(b), o.Boolean(true), true)
	}))
	d.IprocSet(int(OP_CMP), binary(f, false, func(o semantics.RiscOperators, a, b semantics.SValue) semantics.SValue {
		return addFlags(o, f, a, o.Invert(b), o.Boolean(true), true)
	}))
	d.IprocSet(int(OP_AND), alu(semantics.RiscOperators.And))
	d.IprocSet(int(OP_OR), alu(semantics.RiscOperators.Or))
	d.IprocSet(int(OP_XOR), alu(semantics.RiscOperators.Xor))
	d.IprocSet(int(OP_SHL), alu(semantics.RiscOperators.ShiftLeft))
	d.IprocSet(int(OP_SHR), alu(semantics.RiscOperators.ShiftRight))
	d.IprocSet(int(OP_MUL), alu(func(o semantics.RiscOperators, a, b semantics.SValue) semantics.SValue {
		return o.Extract(o.UnsignedMultiply(a, b), 0, a.Width())
	}))
	d.IprocSet(int(OP_DIVU), alu(semantics.RiscOperators.UnsignedDivide))
	d.IprocSet(int(OP_PUSH), semantics.IprocFunc(push))
	d.IprocSet(int(OP_POP), semantics.IprocFunc(pop))
	d.IprocSet(int(OP_JMP), semantics.IprocFunc(func(d *semantics.Dispatcher, insn semantics.Instruction) error {
		return jump(d, insn, nil)
	}))
	d.IprocSet(int(OP_JZ), semantics.IprocFunc(func(d *semantics.Dispatcher, insn semantics.Instruction) error {
		return jump(d, insn, d.Operators().ReadRegister(f.zf))
	}))
	d.IprocSet(int(OP_JNZ), semantics.IprocFunc(func(d *semantics.Dispatcher, insn semantics.Instruction) error {
		o := d.Operators()
		return jump(d, insn, o.Invert(o.ReadRegister(f.zf)))
	}))
	d.IprocSet(int(OP_INT), semantics.IprocFunc(func(d *semantics.Dispatcher, insn semantics.Instruction) error {
		c, ok := insn.Operands()[0].(*semantics.ConstantExpr)
		if !ok {
			return semantics.NewNotImplemented(insn, "interrupt number %s", insn.Operands()[0])
		}
		d.Operators().Interrupt(0, int(c.Value))
		d.AdvanceInstructionPointer(insn)
		return nil
	}))
	d.IprocSet(int(OP_HLT), semantics.IprocFunc(func(d *semantics.Dispatcher, insn semantics.Instruction) error {
		d.Operators().Hlt()
		return nil
	}))
}

func move(d *semantics.Dispatcher, insn semantics.Instruction) error {
	dst, src := insn.Operands()[0], insn.Operands()[1]
	v, err := d.Read(src, operandWidth(dst), 0)
	if err != nil {
		return err
	}
	if err := d.Write(dst, v, 0); err != nil {
		return err
	}
	d.AdvanceInstructionPointer(insn)
	return nil
}

// binary computes dst op src at the width of dst, stores the result when
// store is set and updates zf and sf from it.
func binary(f flags, store bool, fn func(o semantics.RiscOperators, a, b semantics.SValue) semantics.SValue) semantics.IprocFunc {
	return func(d *semantics.Dispatcher, insn semantics.Instruction) error {
		o := d.Operators()
		dst, src := insn.Operands()[0], insn.Operands()[1]
		nbits := operandWidth(dst)
		a, err := d.Read(dst, nbits, 0)
		if err != nil {
			return err
		}
		b, err := d.Read(src, nbits, 0)
		if err != nil {
			return err
		}
		r := fn(o, a, b)
		o.WriteRegister(f.zf, o.EqualToZero(r))
		o.WriteRegister(f.sf, o.Extract(r, nbits-1, nbits))
		if store {
			if err := d.Write(dst, r, 0); err != nil {
				return err
			}
		}
		d.AdvanceInstructionPointer(insn)
		return nil
	}
}

// addFlags returns a + b + c and sets cf and of. With borrow set cf is the
// inverted carry out, as for subtraction.
func addFlags(o semantics.RiscOperators, f flags, a, b, c semantics.SValue, borrow bool) semantics.SValue {
	nbits := a.Width()
	sum, carries := o.AddWithCarries(a, b, c)
	out := o.Extract(carries, nbits-1, nbits)
	if borrow {
		o.WriteRegister(f.cf, o.Invert(out))
	} else {
		o.WriteRegister(f.cf, out)
	}
	if nbits > 1 {
		o.WriteRegister(f.of, o.Xor(out, o.Extract(carries, nbits-2, nbits-1)))
	} else {
		o.WriteRegister(f.of, o.Boolean(false))
	}
	return sum
}

func stackSlot(d *semantics.Dispatcher, inc bool) *semantics.MemoryExpr {
	sp := semantics.RegisterExpr{Name: "sp", Desc: d.StackPointerRegister()}
	if inc {
		return &semantics.MemoryExpr{Address: &semantics.PostIncrementExpr{Register: sp, Amount: 4}, NBits: 32}
	}
	return &semantics.MemoryExpr{Address: &semantics.PreIncrementExpr{Register: sp, Amount: -4}, NBits: 32}
}

func push(d *semantics.Dispatcher, insn semantics.Instruction) error {
	v, err := d.Read(insn.Operands()[0], 32, 0)
	if err != nil {
		return err
	}
	if err := d.Write(stackSlot(d, false), v, 0); err != nil {
		return err
	}
	d.AdvanceInstructionPointer(insn)
	return nil
}

func pop(d *semantics.Dispatcher, insn semantics.Instruction) error {
	dst := insn.Operands()[0]
	v, err := d.Read(stackSlot(d, true), operandWidth(dst), 0)
	if err != nil {
		return err
	}
	if err := d.Write(dst, v, 0); err != nil {
		return err
	}
	d.AdvanceInstructionPointer(insn)
	return nil
}

// jump sets the instruction pointer to the target operand when cond is nil
// or set, and to the next instruction otherwise.
func jump(d *semantics.Dispatcher, insn semantics.Instruction, cond semantics.SValue) error {
	o := d.Operators()
	ip := d.InstructionPointerRegister()
	target, err := d.Read(insn.Operands()[0], ip.NBits, 0)
	if err != nil {
		return err
	}
	if cond != nil {
		next := o.Number(ip.NBits, insn.Address()+uint64(insn.Size()))
		target = o.Ite(cond, target, next)
	}
	o.WriteRegister(ip, target)
	return nil
}
