package toyisa

import (
	"fmt"

	"github.com/borzacchiello/gosem/semantics"
)

const (
	majorGPR   = 0
	majorIP    = 1
	majorFlags = 2
)

// NGPR is the number of general purpose registers.
const NGPR = 8

// Registers returns the register dictionary of the toy machine: eight
// 32-bit registers r0-r7 with 16-bit (rNw) and 8-bit (rNb) low parts, the
// stack pointer sp, the instruction pointer ip, and the flags register with
// its four one-bit flags cf, zf, sf and of.
func Registers() *semantics.RegisterDictionary {
	rd := semantics.NewRegisterDictionary("toy")
	for i := uint(0); i < NGPR; i++ {
		rd.Insert(fmt.Sprintf("r%d", i), semantics.RegisterDescriptor{Major: majorGPR, Minor: i, NBits: 32})
		rd.Insert(fmt.Sprintf("r%dw", i), semantics.RegisterDescriptor{Major: majorGPR, Minor: i, NBits: 16})
		rd.Insert(fmt.Sprintf("r%db", i), semantics.RegisterDescriptor{Major: majorGPR, Minor: i, NBits: 8})
	}
	rd.Insert("sp", semantics.RegisterDescriptor{Major: majorGPR, Minor: NGPR, NBits: 32})
	rd.Insert("ip", semantics.RegisterDescriptor{Major: majorIP, NBits: 32})
	rd.Insert("flags", semantics.RegisterDescriptor{Major: majorFlags, NBits: 32})
	for i, name := range []string{"cf", "zf", "sf", "of"} {
		rd.Insert(name, semantics.RegisterDescriptor{Major: majorFlags, Offset: uint(i), NBits: 1})
	}
	return rd
}

// Arch describes the toy machine to a dispatcher.
var Arch = semantics.Architecture{Name: "toy", InstructionPointer: "ip", StackPointer: "sp"}

// AddressWidth is the width of toy machine addresses.
const AddressWidth = 32
