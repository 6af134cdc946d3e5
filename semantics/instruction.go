package semantics

import (
	"fmt"
	"strings"
)

// Instruction is a decoded machine instruction.
type Instruction interface {
	// Kind selects the instruction processor.
	Kind() int
	Address() uint64
	Size() uint
	Operands() []Expression
	String() string
}

// Expression is an instruction operand.
type Expression interface {
	String() string
	isExpression()
}

// RegisterExpr reads a register. A non-zero Adjustment is applied to the
// register by Dispatcher.IncrementRegisters (positive values) or
// DecrementRegisters (negative values).
type RegisterExpr struct {
	Name       string
	Desc       RegisterDescriptor
	Adjustment int64
}

type ConstantExpr struct {
	Value uint64
	NBits uint
}

// MemoryExpr is a memory operand of NBits bits. Segment, when set, names
// the segment register of the access.
type MemoryExpr struct {
	Address Expression
	Segment *RegisterExpr
	NBits   uint
}

type BinaryOp int

const (
	BINOP_ADD BinaryOp = iota
	BINOP_SUB
	BINOP_MUL
	BINOP_LSL
)

var binaryOpNames = [...]string{"+", "-", "*", "<<"}

func (op BinaryOp) String() string {
	return binaryOpNames[op]
}

type BinaryExpr struct {
	Op  BinaryOp
	LHS Expression
	RHS Expression
}

// PreIncrementExpr adds Amount to Register, then evaluates to the new
// register value.
type PreIncrementExpr struct {
	Register RegisterExpr
	Amount   int64
}

// PostIncrementExpr evaluates to Register, then adds Amount to it.
type PostIncrementExpr struct {
	Register RegisterExpr
	Amount   int64
}

func (*RegisterExpr) isExpression()      {}
func (*ConstantExpr) isExpression()      {}
func (*MemoryExpr) isExpression()        {}
func (*BinaryExpr) isExpression()        {}
func (*PreIncrementExpr) isExpression()  {}
func (*PostIncrementExpr) isExpression() {}

func (e *RegisterExpr) String() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Desc.String()
}

func (e *ConstantExpr) String() string {
	return fmt.Sprintf("%#x", e.Value)
}

func (e *MemoryExpr) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "u%d ", e.NBits)
	if e.Segment != nil {
		sb.WriteString(e.Segment.String())
		sb.WriteString(":")
	}
	fmt.Fprintf(&sb, "[%s]", e.Address)
	return sb.String()
}

func (e *BinaryExpr) String() string {
	return fmt.Sprintf("%s %s %s", e.LHS, e.Op, e.RHS)
}

func (e *PreIncrementExpr) String() string {
	return fmt.Sprintf("%s%+d!", e.Register.String(), e.Amount)
}

func (e *PostIncrementExpr) String() string {
	return fmt.Sprintf("%s!%+d", e.Register.String(), e.Amount)
}
