package toyisa

import (
	"context"

	"github.com/borzacchiello/gosem/semantics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// ErrSymbolicIP stops a machine whose instruction pointer is not a
	// concrete value, e.g. after a branch on an unknown flag.
	ErrSymbolicIP = errors.New("instruction pointer is not concrete")
	ErrStepLimit  = errors.New("step limit reached")
)

// Machine executes a program instruction by instruction through a
// dispatcher.
type Machine struct {
	d      *semantics.Dispatcher
	prog   *Program
	steps  int
	halted bool

	// MaxSteps bounds Run; zero means no bound.
	MaxSteps int
}

// NewMachine installs the toy dispatcher over ops and points the
// instruction pointer at the program entry.
func NewMachine(ops semantics.RiscOperators, prog *Program) (*Machine, error) {
	d, err := NewDispatcher(ops)
	if err != nil {
		return nil, err
	}
	ip := d.InstructionPointerRegister()
	ops.WriteRegister(ip, ops.Number(ip.NBits, prog.Entry()))
	return &Machine{d: d, prog: prog}, nil
}

func (m *Machine) Dispatcher() *semantics.Dispatcher {
	return m.d
}

func (m *Machine) Steps() int {
	return m.steps
}

func (m *Machine) Halted() bool {
	return m.halted
}

// Step executes one instruction.
func (m *Machine) Step() error {
	if m.halted {
		return nil
	}
	ip := m.d.Operators().ReadRegister(m.d.InstructionPointerRegister())
	if !ip.IsNumber() {
		return errors.Wrapf(ErrSymbolicIP, "ip = %s", ip)
	}
	insn, ok := m.prog.At(ip.Number())
	if !ok {
		return errors.Errorf("no instruction at %#x", ip.Number())
	}
	if err := m.d.ProcessInstruction(insn); err != nil {
		return err
	}
	m.steps++
	if insn.Op == OP_HLT {
		log.Debugf("halted at %#x after %d steps", insn.Addr, m.steps)
		m.halted = true
	}
	return nil
}

// Run steps until the machine halts or stops with an error.
func (m *Machine) Run(ctx context.Context) error {
	for !m.halted {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.MaxSteps > 0 && m.steps >= m.MaxSteps {
			return errors.Wrapf(ErrStepLimit, "%d steps", m.steps)
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}
