package semantics

import (
	"fmt"
	"io"
	"strings"
)

// State is the machine state: registers and memory.
type State struct {
	registers RegisterState
	memory    MemoryState
}

func NewState(registers RegisterState, memory MemoryState) *State {
	assert(registers != nil, "register state cannot be nil")
	assert(memory != nil, "memory state cannot be nil")
	return &State{registers: registers, memory: memory}
}

// Create returns a new state made of the given substates.
func (s *State) Create(registers RegisterState, memory MemoryState) *State {
	return NewState(registers, memory)
}

// Clone copies both substates.
func (s *State) Clone() *State {
	return NewState(s.registers.Clone(), s.memory.Clone())
}

func (s *State) Protoval() SValue {
	return s.registers.Protoval()
}

func (s *State) Registers() RegisterState {
	return s.registers
}

func (s *State) Memory() MemoryState {
	return s.memory
}

func (s *State) Clear() {
	s.registers.Clear()
	s.memory.Clear()
}

func (s *State) ZeroRegisters() {
	s.registers.Zero()
}

func (s *State) ClearMemory() {
	s.memory.Clear()
}

func (s *State) ReadRegister(desc RegisterDescriptor, dflt SValue, ops RiscOperators) SValue {
	return s.registers.ReadRegister(desc, dflt, ops)
}

func (s *State) PeekRegister(desc RegisterDescriptor, dflt SValue, ops RiscOperators) SValue {
	return s.registers.PeekRegister(desc, dflt, ops)
}

func (s *State) WriteRegister(desc RegisterDescriptor, value SValue, ops RiscOperators) {
	s.registers.WriteRegister(desc, value, ops)
}

func (s *State) ReadMemory(addr, dflt SValue, addrOps, valOps RiscOperators) SValue {
	return s.memory.ReadMemory(addr, dflt, addrOps, valOps)
}

func (s *State) PeekMemory(addr, dflt SValue, addrOps, valOps RiscOperators) SValue {
	return s.memory.PeekMemory(addr, dflt, addrOps, valOps)
}

func (s *State) WriteMemory(addr, value SValue, addrOps, valOps RiscOperators) {
	s.memory.WriteMemory(addr, value, addrOps, valOps)
}

// Merge merges other into s and reports whether s changed. Both substates
// are always merged.
func (s *State) Merge(other *State, ops RiscOperators) bool {
	regsChanged := s.registers.Merge(other.registers, ops)
	memChanged := s.memory.Merge(other.memory, ops, ops)
	return regsChanged || memChanged
}

func (s *State) Print(w io.Writer, f *Formatter) {
	fmt.Fprintf(w, "%sregisters:\n", f.LinePrefix)
	restore := f.Indent()
	s.registers.Print(w, f)
	restore()

	fmt.Fprintf(w, "%smemory:\n", f.LinePrefix)
	defer f.Indent()()
	s.memory.Print(w, f)
}

func (s *State) String() string {
	var sb strings.Builder
	s.Print(&sb, NewFormatter())
	return sb.String()
}
