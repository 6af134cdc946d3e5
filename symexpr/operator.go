package symexpr

import "fmt"

// Operator identifies the operation of an interior node.
type Operator int

const (
	OP_ADD     Operator = iota // Addition. One or more operands, all the same width.
	OP_AND                     // Bitwise conjunction. One or more operands, all the same width.
	OP_ASR                     // Arithmetic shift right. Operand B shifted by A bits.
	OP_CONCAT                  // Concatenation. Operand A becomes high-order bits. Any number of operands.
	OP_EQ                      // Equality. Two operands, both the same width.
	OP_EXTRACT                 // Extract subsequence of bits [A, B) from C.
	OP_INVERT                  // Bitwise inversion. One operand.
	OP_ITE                     // If-then-else. A must be one bit. Returns B if A is set, C otherwise.
	OP_LET                     // Let expression. Replaces variable A by B in C.
	OP_LSSB                    // Least significant set bit or zero. One operand.
	OP_MSSB                    // Most significant set bit or zero. One operand.
	OP_NE                      // Inequality. Two operands, both the same width.
	OP_NEGATE                  // Arithmetic negation. One operand.
	OP_NOOP                    // No operation. Used only by the default simplifier.
	OP_OR                      // Bitwise disjunction. One or more operands, all the same width.
	OP_READ                    // Read a value from memory. Arguments are the memory state and the address.
	OP_ROL                     // Rotate left. Rotate bits of B left by A bits.
	OP_ROR                     // Rotate right. Rotate bits of B right by A bits.
	OP_SDIV                    // Signed division. Result width is width(A).
	OP_SET                     // Set of expressions. Any number of operands in any order.
	OP_SEXTEND                 // Signed extension at msb. Extend B to A bits.
	OP_SGE                     // Signed greater-than-or-equal.
	OP_SGT                     // Signed greater-than.
	OP_SHL0                    // Shift left, introducing zeros at lsb.
	OP_SHL1                    // Shift left, introducing ones at lsb.
	OP_SHR0                    // Shift right, introducing zeros at msb.
	OP_SHR1                    // Shift right, introducing ones at msb.
	OP_SLE                     // Signed less-than-or-equal.
	OP_SLT                     // Signed less-than.
	OP_SMOD                    // Signed modulus. Result width is width(B).
	OP_SMUL                    // Signed multiplication. Result width is width(A)+width(B).
	OP_UDIV                    // Unsigned division. Result width is width(A).
	OP_UEXTEND                 // Unsigned extention at msb. Extend B to A bits.
	OP_UGE                     // Unsigned greater-than-or-equal.
	OP_UGT                     // Unsigned greater-than.
	OP_ULE                     // Unsigned less-than-or-equal.
	OP_ULT                     // Unsigned less-than.
	OP_UMOD                    // Unsigned modulus. Result width is width(B).
	OP_UMUL                    // Unsigned multiplication. Result width is width(A)+width(B).
	OP_WRITE                   // Write (update) memory with a new value. Arguments are memory, address and value.
	OP_XOR                     // Bitwise exclusive disjunction.
	OP_ZEROP                   // Equal to zero. One operand. Result is a single bit.

	numOperators
)

var operatorNames = [numOperators]string{
	OP_ADD:     "add",
	OP_AND:     "and",
	OP_ASR:     "asr",
	OP_CONCAT:  "concat",
	OP_EQ:      "eq",
	OP_EXTRACT: "extract",
	OP_INVERT:  "invert",
	OP_ITE:     "ite",
	OP_LET:     "let",
	OP_LSSB:    "lssb",
	OP_MSSB:    "mssb",
	OP_NE:      "ne",
	OP_NEGATE:  "negate",
	OP_NOOP:    "nop",
	OP_OR:      "or",
	OP_READ:    "read",
	OP_ROL:     "rotateleft",
	OP_ROR:     "rotateright",
	OP_SDIV:    "sdiv",
	OP_SET:     "set",
	OP_SEXTEND: "sextend",
	OP_SGE:     "sge",
	OP_SGT:     "sgt",
	OP_SHL0:    "shl0",
	OP_SHL1:    "shl1",
	OP_SHR0:    "shr0",
	OP_SHR1:    "shr1",
	OP_SLE:     "sle",
	OP_SLT:     "slt",
	OP_SMOD:    "smod",
	OP_SMUL:    "smul",
	OP_UDIV:    "udiv",
	OP_UEXTEND: "uextend",
	OP_UGE:     "uge",
	OP_UGT:     "ugt",
	OP_ULE:     "ule",
	OP_ULT:     "ult",
	OP_UMOD:    "umod",
	OP_UMUL:    "umul",
	OP_WRITE:   "write",
	OP_XOR:     "xor",
	OP_ZEROP:   "zerop",
}

func (op Operator) String() string {
	if op < 0 || op >= numOperators {
		return fmt.Sprintf("op(%d)", int(op))
	}
	return operatorNames[op]
}

// OperatorFromString is the inverse of Operator.String.
func OperatorFromString(name string) (Operator, bool) {
	for i, n := range operatorNames {
		if n == name {
			return Operator(i), true
		}
	}
	return 0, false
}

func (op Operator) isAssociative() bool {
	switch op {
	case OP_ADD, OP_AND, OP_OR, OP_XOR, OP_CONCAT, OP_SET, OP_UMUL, OP_SMUL:
		return true
	}
	return false
}

func (op Operator) isCommutative() bool {
	switch op {
	case OP_ADD, OP_AND, OP_OR, OP_XOR, OP_SET, OP_UMUL, OP_SMUL:
		return true
	}
	return false
}

// IsRelational reports whether op yields a single-bit comparison result.
func (op Operator) IsRelational() bool {
	switch op {
	case OP_EQ, OP_NE, OP_SGE, OP_SGT, OP_SLE, OP_SLT, OP_UGE, OP_UGT, OP_ULE, OP_ULT:
		return true
	}
	return false
}

func (op Operator) isShift() bool {
	switch op {
	case OP_ASR, OP_ROL, OP_ROR, OP_SHL0, OP_SHL1, OP_SHR0, OP_SHR1:
		return true
	}
	return false
}

// reflexive returns the truth value of the relational operator when both
// operands are the same expression.
func (op Operator) reflexive() bool {
	switch op {
	case OP_EQ, OP_SGE, OP_SLE, OP_UGE, OP_ULE:
		return true
	}
	return false
}
