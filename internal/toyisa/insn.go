package toyisa

import (
	"fmt"
	"strings"

	"github.com/borzacchiello/gosem/semantics"
)

// InsnSize is the encoded size of every toy instruction.
const InsnSize = 4

type Opcode int

const (
	OP_NOP Opcode = iota
	OP_MOV
	OP_ADD
	OP_SUB
	OP_AND
	OP_OR
	OP_XOR
	OP_SHL
	OP_SHR
	OP_MUL
	OP_DIVU
	OP_CMP
	OP_LOAD
	OP_STORE
	OP_PUSH
	OP_POP
	OP_JMP
	OP_JZ
	OP_JNZ
	OP_INT
	OP_HLT
	nOpcodes
)

var opcodeNames = [...]string{
	"nop", "mov", "add", "sub", "and", "or", "xor", "shl", "shr", "mul",
	"divu", "cmp", "load", "store", "push", "pop", "jmp", "jz", "jnz", "int",
	"hlt",
}

// number of operands of each opcode
var opcodeArity = [...]int{
	0, 2, 2, 2, 2, 2, 2, 2, 2, 2,
	2, 2, 2, 2, 1, 1, 1, 1, 1, 1,
	0,
}

func (op Opcode) String() string {
	if op < 0 || op >= nOpcodes {
		return fmt.Sprintf("op%d", int(op))
	}
	return opcodeNames[op]
}

func lookupOpcode(mnemonic string) (Opcode, bool) {
	for i, n := range opcodeNames {
		if n == mnemonic {
			return Opcode(i), true
		}
	}
	return 0, false
}

// Insn is a decoded toy instruction.
type Insn struct {
	Op   Opcode
	Addr uint64
	Args []semantics.Expression
}

func (i *Insn) Kind() int                          { return int(i.Op) }
func (i *Insn) Address() uint64                    { return i.Addr }
func (i *Insn) Size() uint                         { return InsnSize }
func (i *Insn) Operands() []semantics.Expression { return i.Args }

func (i *Insn) String() string {
	if len(i.Args) == 0 {
		return i.Op.String()
	}
	args := make([]string, len(i.Args))
	for j, a := range i.Args {
		args[j] = a.String()
	}
	return i.Op.String() + " " + strings.Join(args, ", ")
}
