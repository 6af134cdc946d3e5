package symexpr

import (
	"sort"
)

// maxSimplifyRounds bounds the fold/rewrite/flatten/sort loop. Every rule
// shrinks or canonicalizes the operand list, so the bound is never reached
// in practice.
const maxSimplifyRounds = 64

func sameWidth(op Operator, args []*Node) {
	for _, a := range args[1:] {
		assert(a.nbits == args[0].nbits, "%s operands have different widths (%d and %d)", op, args[0].nbits, a.nbits)
	}
}

func scalars(op Operator, args []*Node) {
	for _, a := range args {
		assert(a.IsScalar(), "%s operand must be a scalar", op)
	}
}

func nargs(op Operator, args []*Node, n int) {
	assert(len(args) == n, "%s takes %d operands, got %d", op, n, len(args))
}

func constantArg(op Operator, a *Node) uint64 {
	assert(a.IsNumber(), "%s requires a constant operand", op)
	return a.ToUint64()
}

// checkOperands asserts the operand contract of op.
func checkOperands(op Operator, args []*Node) {
	for _, a := range args {
		assert(a != nil, "%s has a nil operand", op)
	}
	switch op {
	case OP_ADD, OP_AND, OP_OR, OP_XOR:
		assert(len(args) >= 1, "%s requires operands", op)
		scalars(op, args)
		sameWidth(op, args)
	case OP_SET:
		assert(len(args) >= 1, "%s requires operands", op)
		sameWidth(op, args)
	case OP_UMUL, OP_SMUL, OP_CONCAT:
		assert(len(args) >= 1, "%s requires operands", op)
		scalars(op, args)
	case OP_EQ, OP_NE, OP_SGE, OP_SGT, OP_SLE, OP_SLT, OP_UGE, OP_UGT, OP_ULE, OP_ULT:
		nargs(op, args, 2)
		scalars(op, args)
		sameWidth(op, args)
	case OP_ASR, OP_ROL, OP_ROR, OP_SHL0, OP_SHL1, OP_SHR0, OP_SHR1:
		nargs(op, args, 2)
		scalars(op, args)
	case OP_SDIV, OP_UDIV, OP_SMOD, OP_UMOD:
		nargs(op, args, 2)
		scalars(op, args)
	case OP_EXTRACT:
		nargs(op, args, 3)
		scalars(op, args)
		begin := constantArg(op, args[0])
		end := constantArg(op, args[1])
		assert(begin < end && end <= uint64(args[2].nbits), "invalid extract [%d,%d) of %d bits", begin, end, args[2].nbits)
	case OP_SEXTEND, OP_UEXTEND:
		nargs(op, args, 2)
		scalars(op, args)
		assert(constantArg(op, args[0]) > 0, "%s to zero bits", op)
	case OP_INVERT, OP_NEGATE, OP_LSSB, OP_MSSB, OP_ZEROP:
		nargs(op, args, 1)
		scalars(op, args)
	case OP_NOOP:
		nargs(op, args, 1)
	case OP_ITE:
		nargs(op, args, 3)
		assert(args[0].IsScalar() && args[0].nbits == 1, "ite condition must be a single bit")
		assert(args[1].nbits == args[2].nbits && args[1].domainWidth == args[2].domainWidth,
			"ite branches have different widths")
	case OP_LET:
		nargs(op, args, 3)
		assert(args[0].nbits == args[1].nbits && args[0].domainWidth == args[1].domainWidth,
			"let binding has different widths")
	case OP_READ:
		nargs(op, args, 2)
		assert(!args[0].IsScalar(), "read requires a memory operand")
		assert(args[1].IsScalar() && args[1].nbits == args[0].domainWidth, "read address width mismatch")
	case OP_WRITE:
		nargs(op, args, 3)
		assert(!args[0].IsScalar(), "write requires a memory operand")
		assert(args[1].IsScalar() && args[1].nbits == args[0].domainWidth, "write address width mismatch")
		assert(args[2].IsScalar() && args[2].nbits == args[0].nbits, "write value width mismatch")
	default:
		assert(false, "unknown operator %d", int(op))
	}
}

// resultWidth computes the width of an interior node from its operands.
func resultWidth(op Operator, args []*Node) (nbits uint, domainWidth uint) {
	switch op {
	case OP_ADD, OP_AND, OP_OR, OP_XOR, OP_INVERT, OP_NEGATE, OP_LSSB, OP_MSSB, OP_NOOP:
		return args[0].nbits, args[0].domainWidth
	case OP_SET:
		return args[0].nbits, args[0].domainWidth
	case OP_ASR, OP_ROL, OP_ROR, OP_SHL0, OP_SHL1, OP_SHR0, OP_SHR1:
		return args[1].nbits, 0
	case OP_CONCAT, OP_UMUL, OP_SMUL:
		total := uint(0)
		for _, a := range args {
			total += a.nbits
		}
		return total, 0
	case OP_EXTRACT:
		return uint(args[1].ToUint64() - args[0].ToUint64()), 0
	case OP_SEXTEND, OP_UEXTEND:
		return uint(args[0].ToUint64()), 0
	case OP_ITE:
		return args[1].nbits, args[1].domainWidth
	case OP_LET:
		return args[2].nbits, args[2].domainWidth
	case OP_SDIV, OP_UDIV:
		return args[0].nbits, 0
	case OP_SMOD, OP_UMOD:
		return args[1].nbits, 0
	case OP_READ:
		return args[0].nbits, 0
	case OP_WRITE:
		return args[0].nbits, args[0].domainWidth
	}
	// relational and zerop
	return 1, 0
}

// flatten replaces operands that are op themselves by their children.
func flatten(op Operator, args []*Node) []*Node {
	nested := false
	for _, a := range args {
		if a.IsOperator(op) {
			nested = true
			break
		}
	}
	if !nested {
		return args
	}
	res := make([]*Node, 0, len(args)+2)
	for _, a := range args {
		if a.IsOperator(op) {
			res = append(res, a.children...)
		} else {
			res = append(res, a)
		}
	}
	return res
}

// sortOperands orders operands canonically: interior nodes first, then
// variables, memory and finally constants.
func sortOperands(args []*Node) []*Node {
	sorted := sort.SliceIsSorted(args, func(i, j int) bool {
		return args[i].CompareStructure(args[j]) < 0
	})
	if sorted {
		return args
	}
	res := make([]*Node, len(args))
	copy(res, args)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CompareStructure(res[j]) < 0
	})
	return res
}

func sameOperands(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func allNumbers(args []*Node) bool {
	for _, a := range args {
		if !a.IsNumber() {
			return false
		}
	}
	return true
}

// Interior builds op applied to children. The result is simplified: constant
// folding, then operator-specific rewrites, then flattening of associative
// operators and sorting of commutative ones, repeated until nothing changes.
// The result may be a leaf or any other node equivalent to the requested
// expression.
func (eb *ExprBuilder) Interior(op Operator, children []*Node, opts ...Option) *Node {
	o := collectOptions(opts)
	return eb.finish(eb.simplify(op, children, o.solver), o)
}

func (eb *ExprBuilder) simplify(op Operator, children []*Node, solver Solver) *Node {
	s := simplifiers[op]
	args := children
	for round := 0; round < maxSimplifyRounds; round++ {
		checkOperands(op, args)
		prev := args

		if allNumbers(args) {
			if res := s.fold(eb, args); res != nil {
				return res
			}
		}

		res, rewritten := s.rewrite(eb, args, solver)
		if res != nil {
			return res
		}
		args = rewritten

		if op.isAssociative() {
			args = flatten(op, args)
		}
		if op.isCommutative() {
			args = sortOperands(args)
		}
		if sameOperands(prev, args) {
			break
		}
	}
	return eb.rawInterior(op, args, Flags{})
}
