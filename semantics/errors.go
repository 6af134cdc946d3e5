package semantics

import (
	"fmt"

	"github.com/pkg/errors"
)

func assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}

// ErrNoProcessor is returned when a dispatcher has no instruction processor
// for the kind of an instruction.
var ErrNoProcessor = errors.New("no instruction processor")

// Exception is a recoverable failure while processing an instruction.
type Exception struct {
	Msg  string
	Insn Instruction
	err  error
}

func NewException(msg string, insn Instruction) *Exception {
	return &Exception{Msg: msg, Insn: insn}
}

// WrapException attaches insn to err. Errors that already carry an
// instruction are returned unchanged.
func WrapException(err error, insn Instruction) error {
	if err == nil {
		return nil
	}
	var e *Exception
	if errors.As(err, &e) && e.Insn != nil {
		return err
	}
	var ni *NotImplemented
	if errors.As(err, &ni) && ni.Insn != nil {
		return err
	}
	return &Exception{Msg: err.Error(), Insn: insn, err: err}
}

func (e *Exception) Error() string {
	if e.Insn != nil {
		return fmt.Sprintf("%s: %s", e.Insn, e.Msg)
	}
	return e.Msg
}

func (e *Exception) Unwrap() error {
	return e.err
}

// NotImplemented reports an operation a domain does not support. Callers may
// recover from it, for example by falling back to a coarser domain.
type NotImplemented struct {
	Exception
}

func NewNotImplemented(insn Instruction, format string, args ...interface{}) *NotImplemented {
	return &NotImplemented{Exception{Msg: fmt.Sprintf(format, args...), Insn: insn}}
}

func (e *NotImplemented) Error() string {
	return "not implemented: " + e.Exception.Error()
}

func IsNotImplemented(err error) bool {
	var ni *NotImplemented
	return errors.As(err, &ni)
}
