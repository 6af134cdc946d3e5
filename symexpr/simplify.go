package symexpr

import (
	"math/big"

	"github.com/borzacchiello/gosem/bitvec"
)

// simplifier holds the operator-specific rules. fold is only called when all
// operands are constants and may return nil when no folding is possible.
// rewrite returns either a final result, or a new (possibly unchanged)
// operand list for the same operator.
type simplifier struct {
	fold    func(eb *ExprBuilder, args []*Node) *Node
	rewrite func(eb *ExprBuilder, args []*Node, solver Solver) (*Node, []*Node)
}

var simplifiers [numOperators]simplifier

func init() {
	simplifiers = [numOperators]simplifier{
		OP_ADD:     {foldAdd, rewriteAdd},
		OP_AND:     {foldAnd, rewriteAnd},
		OP_ASR:     {foldShift(OP_ASR), rewriteShift(OP_ASR)},
		OP_CONCAT:  {foldConcat, rewriteConcat},
		OP_EQ:      {foldRelational(OP_EQ), rewriteRelational(OP_EQ)},
		OP_EXTRACT: {foldExtract, rewriteExtract},
		OP_INVERT:  {foldInvert, rewriteInvolution(OP_INVERT)},
		OP_ITE:     {noFold, rewriteIte},
		OP_LET:     {noFold, rewriteLet},
		OP_LSSB:    {foldLssb, noRewrite},
		OP_MSSB:    {foldMssb, noRewrite},
		OP_NE:      {foldRelational(OP_NE), rewriteRelational(OP_NE)},
		OP_NEGATE:  {foldNegate, rewriteInvolution(OP_NEGATE)},
		OP_NOOP:    {noFold, rewriteNoop},
		OP_OR:      {foldOr, rewriteOr},
		OP_READ:    {noFold, rewriteRead},
		OP_ROL:     {foldRotate(OP_ROL), rewriteRotate(OP_ROL)},
		OP_ROR:     {foldRotate(OP_ROR), rewriteRotate(OP_ROR)},
		OP_SDIV:    {foldDivMod(OP_SDIV), rewriteDivMod(OP_SDIV)},
		OP_SET:     {noFold, rewriteSet},
		OP_SEXTEND: {foldExtend(OP_SEXTEND), rewriteExtend(OP_SEXTEND)},
		OP_SGE:     {foldRelational(OP_SGE), rewriteRelational(OP_SGE)},
		OP_SGT:     {foldRelational(OP_SGT), rewriteRelational(OP_SGT)},
		OP_SHL0:    {foldShift(OP_SHL0), rewriteShift(OP_SHL0)},
		OP_SHL1:    {foldShift(OP_SHL1), rewriteShift(OP_SHL1)},
		OP_SHR0:    {foldShift(OP_SHR0), rewriteShift(OP_SHR0)},
		OP_SHR1:    {foldShift(OP_SHR1), rewriteShift(OP_SHR1)},
		OP_SLE:     {foldRelational(OP_SLE), rewriteRelational(OP_SLE)},
		OP_SLT:     {foldRelational(OP_SLT), rewriteRelational(OP_SLT)},
		OP_SMOD:    {foldDivMod(OP_SMOD), rewriteDivMod(OP_SMOD)},
		OP_SMUL:    {foldMul(OP_SMUL), rewriteMul(OP_SMUL)},
		OP_UDIV:    {foldDivMod(OP_UDIV), rewriteDivMod(OP_UDIV)},
		OP_UEXTEND: {foldExtend(OP_UEXTEND), rewriteExtend(OP_UEXTEND)},
		OP_UGE:     {foldRelational(OP_UGE), rewriteRelational(OP_UGE)},
		OP_UGT:     {foldRelational(OP_UGT), rewriteRelational(OP_UGT)},
		OP_ULE:     {foldRelational(OP_ULE), rewriteRelational(OP_ULE)},
		OP_ULT:     {foldRelational(OP_ULT), rewriteRelational(OP_ULT)},
		OP_UMOD:    {foldDivMod(OP_UMOD), rewriteDivMod(OP_UMOD)},
		OP_UMUL:    {foldMul(OP_UMUL), rewriteMul(OP_UMUL)},
		OP_WRITE:   {noFold, noRewrite},
		OP_XOR:     {foldXor, rewriteXor},
		OP_ZEROP:   {foldZerop, noRewrite},
	}
}

func noFold(*ExprBuilder, []*Node) *Node {
	return nil
}

func noRewrite(_ *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
	return nil, args
}

func (eb *ExprBuilder) folded(bits *bitvec.BV, contributors ...*Node) *Node {
	return eb.constantLeaf(bits, foldingRule(contributors...))
}

// foldConstantOperands replaces two or more constant operands of an
// associative and commutative operator by a single constant.
func (eb *ExprBuilder) foldConstantOperands(args []*Node, combine func(acc, c *bitvec.BV)) []*Node {
	nconst := 0
	for _, a := range args {
		if a.IsNumber() {
			nconst++
		}
	}
	if nconst < 2 {
		return args
	}
	res := make([]*Node, 0, len(args)-nconst+1)
	constants := make([]*Node, 0, nconst)
	var acc *bitvec.BV
	for _, a := range args {
		if !a.IsNumber() {
			res = append(res, a)
			continue
		}
		constants = append(constants, a)
		if acc == nil {
			acc = a.Bits()
		} else {
			combine(acc, a.bits)
		}
	}
	return append(res, eb.folded(acc, constants...))
}

func removeIf(args []*Node, pred func(*Node) bool) []*Node {
	res := make([]*Node, 0, len(args))
	for _, a := range args {
		if !pred(a) {
			res = append(res, a)
		}
	}
	if len(res) == len(args) {
		return args
	}
	return res
}

func removeDuplicates(args []*Node) []*Node {
	res := make([]*Node, 0, len(args))
	for _, a := range args {
		dup := false
		for _, r := range res {
			if r.IsEquivalentTo(a) {
				dup = true
				break
			}
		}
		if !dup {
			res = append(res, a)
		}
	}
	if len(res) == len(args) {
		return args
	}
	return res
}

// removeBothIf drops pairs of operands matching cmpFun.
func removeBothIf(args []*Node, cmpFun func(a, b *Node) bool) []*Node {
	removed := make(map[int]bool)
	res := make([]*Node, 0, len(args))
	for i := 0; i < len(args); i++ {
		if removed[i] {
			continue
		}
		partner := -1
		for j := i + 1; j < len(args); j++ {
			if !removed[j] && cmpFun(args[i], args[j]) {
				partner = j
				break
			}
		}
		if partner >= 0 {
			removed[i] = true
			removed[partner] = true
			continue
		}
		res = append(res, args[i])
	}
	if len(res) == len(args) {
		return args
	}
	return res
}

func isUnaryOf(op Operator, a, b *Node) bool {
	return a.IsOperator(op) && a.children[0].IsEquivalentTo(b)
}

func complementary(op Operator) func(a, b *Node) bool {
	return func(a, b *Node) bool {
		return isUnaryOf(op, a, b) || isUnaryOf(op, b, a)
	}
}

func hasPair(args []*Node, cmpFun func(a, b *Node) bool) bool {
	for i := range args {
		for j := i + 1; j < len(args); j++ {
			if cmpFun(args[i], args[j]) {
				return true
			}
		}
	}
	return false
}

/*
 *  OP_ADD
 */

func foldAdd(eb *ExprBuilder, args []*Node) *Node {
	acc := args[0].Bits()
	for _, a := range args[1:] {
		acc.Add(a.bits)
	}
	return eb.folded(acc, args...)
}

func rewriteAdd(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
	nbits := args[0].nbits

	// Constant propagation
	args = eb.foldConstantOperands(args, func(acc, c *bitvec.BV) { acc.Add(c) })

	// Remove zeroes
	args = removeIf(args, (*Node).isZero)

	// Remove add with opposite
	args = removeBothIf(args, complementary(OP_NEGATE))

	if len(args) == 0 {
		return eb.zero(nbits, createRule()), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return nil, args
}

/*
 *  OP_AND
 */

func foldAnd(eb *ExprBuilder, args []*Node) *Node {
	acc := args[0].Bits()
	for _, a := range args[1:] {
		acc.And(a.bits)
	}
	return eb.folded(acc, args...)
}

func rewriteAnd(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
	nbits := args[0].nbits

	// Constant propagation
	args = eb.foldConstantOperands(args, func(acc, c *bitvec.BV) { acc.And(c) })

	// Check zero
	for _, a := range args {
		if a.isZero() {
			return a, nil
		}
	}

	// Remove all-ones
	args = removeIf(args, (*Node).isAllOnes)

	// x & x
	args = removeDuplicates(args)

	// x & ~x
	if hasPair(args, complementary(OP_INVERT)) {
		return eb.zero(nbits, createRule()), nil
	}

	if len(args) == 0 {
		return eb.ones(nbits, createRule()), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return nil, args
}

/*
 *  OP_OR
 */

func foldOr(eb *ExprBuilder, args []*Node) *Node {
	acc := args[0].Bits()
	for _, a := range args[1:] {
		acc.Or(a.bits)
	}
	return eb.folded(acc, args...)
}

func rewriteOr(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
	nbits := args[0].nbits

	// Constant propagation
	args = eb.foldConstantOperands(args, func(acc, c *bitvec.BV) { acc.Or(c) })

	// Check all-ones
	for _, a := range args {
		if a.isAllOnes() {
			return a, nil
		}
	}

	// Remove zeroes
	args = removeIf(args, (*Node).isZero)

	// x | x
	args = removeDuplicates(args)

	// x | ~x
	if hasPair(args, complementary(OP_INVERT)) {
		return eb.ones(nbits, createRule()), nil
	}

	if len(args) == 0 {
		return eb.zero(nbits, createRule()), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}
	return nil, args
}

/*
 *  OP_XOR
 */

func foldXor(eb *ExprBuilder, args []*Node) *Node {
	acc := args[0].Bits()
	for _, a := range args[1:] {
		acc.Xor(a.bits)
	}
	return eb.folded(acc, args...)
}

func rewriteXor(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
	nbits := args[0].nbits

	// Constant propagation
	args = eb.foldConstantOperands(args, func(acc, c *bitvec.BV) { acc.Xor(c) })

	// Remove zeroes
	args = removeIf(args, (*Node).isZero)

	// x ^ x
	args = removeBothIf(args, func(a, b *Node) bool { return a.IsEquivalentTo(b) })

	if len(args) == 0 {
		return eb.zero(nbits, createRule()), nil
	}
	if len(args) == 1 {
		return args[0], nil
	}

	// x ^ 0b11...1
	if len(args) == 2 {
		for i, a := range args {
			if a.isAllOnes() && a.flags.IsZero() {
				return eb.Invert(args[1-i]), nil
			}
		}
	}
	return nil, args
}

/*
 *  OP_UMUL, OP_SMUL
 */

func totalWidth(args []*Node) uint {
	w := uint(0)
	for _, a := range args {
		w += a.nbits
	}
	return w
}

func foldMul(op Operator) func(*ExprBuilder, []*Node) *Node {
	return func(eb *ExprBuilder, args []*Node) *Node {
		w := totalWidth(args)
		widen := func(a *Node) *bitvec.BV {
			v := a.Bits()
			if op == OP_SMUL {
				v.SignResize(w)
			} else {
				v.Resize(w)
			}
			return v
		}
		acc := widen(args[0])
		for _, a := range args[1:] {
			acc.Mul(widen(a))
		}
		return eb.folded(acc, args...)
	}
}

func isMultiplicativeOne(op Operator, a *Node) bool {
	if !a.isOne() {
		return false
	}
	// a single-bit one is -1 when interpreted as signed
	return op == OP_UMUL || a.nbits > 1
}

func rewriteMul(op Operator) func(*ExprBuilder, []*Node, Solver) (*Node, []*Node) {
	return func(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
		w := totalWidth(args)

		// Check zero
		for _, a := range args {
			if a.isZero() {
				return eb.zero(w, a.flags), nil
			}
		}

		// Remove ones
		if len(args) == 2 {
			for i, a := range args {
				if isMultiplicativeOne(op, a) {
					if op == OP_SMUL {
						return eb.SignExtend(w, args[1-i]), nil
					}
					return eb.UnsignedExtend(w, args[1-i]), nil
				}
			}
		}
		if len(args) == 1 {
			return args[0], nil
		}
		return nil, args
	}
}

/*
 *  OP_CONCAT
 */

func foldConcat(eb *ExprBuilder, args []*Node) *Node {
	acc := args[0].Bits()
	for _, a := range args[1:] {
		acc.Concat(a.bits)
	}
	return eb.folded(acc, args...)
}

func rewriteConcat(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
	if len(args) == 1 {
		return args[0], nil
	}

	res := make([]*Node, 0, len(args))
	changed := false
	for _, a := range args {
		if len(res) == 0 {
			res = append(res, a)
			continue
		}
		prev := res[len(res)-1]

		// Adjacent constants
		if prev.IsNumber() && a.IsNumber() {
			v := prev.Bits()
			v.Concat(a.bits)
			res[len(res)-1] = eb.folded(v, prev, a)
			changed = true
			continue
		}

		// Adjacent extracts of the same expression
		if prev.IsOperator(OP_EXTRACT) && a.IsOperator(OP_EXTRACT) &&
			prev.children[2].IsEquivalentTo(a.children[2]) &&
			a.children[1].ToUint64() == prev.children[0].ToUint64() {
			res[len(res)-1] = eb.Extract(uint(a.children[0].ToUint64()), uint(prev.children[1].ToUint64()), a.children[2])
			changed = true
			continue
		}
		res = append(res, a)
	}
	if !changed {
		return nil, args
	}
	if len(res) == 1 {
		return res[0], nil
	}
	return nil, res
}

/*
 *  OP_EXTRACT
 */

func foldExtract(eb *ExprBuilder, args []*Node) *Node {
	v := args[2].bits.Slice(uint(args[0].ToUint64()), uint(args[1].ToUint64()))
	return eb.folded(v, args...)
}

func rewriteExtract(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
	begin := uint(args[0].ToUint64())
	end := uint(args[1].ToUint64())
	a := args[2]

	// Extract of the whole value
	if begin == 0 && end == a.nbits {
		return a, nil
	}

	switch {
	case a.IsOperator(OP_EXTRACT):
		// Extract of extract
		inner := uint(a.children[0].ToUint64())
		return eb.Extract(inner+begin, inner+end, a.children[2]), nil

	case a.IsOperator(OP_CONCAT):
		// Keep only the overlapping parts of the concatenation
		pieces := make([]*Node, 0, len(a.children))
		lo := a.nbits
		for _, c := range a.children {
			lo -= c.nbits
			hi := lo + c.nbits
			from, to := max(begin, lo), min(end, hi)
			if from >= to {
				continue
			}
			pieces = append(pieces, eb.Extract(from-lo, to-lo, c))
		}
		if len(pieces) == 1 {
			return pieces[0], nil
		}
		return eb.Interior(OP_CONCAT, pieces), nil

	case a.IsOperator(OP_UEXTEND):
		inner := a.children[1]
		w := inner.nbits
		if end <= w {
			return eb.Extract(begin, end, inner), nil
		}
		if begin >= w {
			return eb.zero(end-begin, createRule()), nil
		}
		return eb.UnsignedExtend(end-begin, eb.Extract(begin, w, inner)), nil

	case a.IsOperator(OP_SEXTEND):
		inner := a.children[1]
		if end <= inner.nbits {
			return eb.Extract(begin, end, inner), nil
		}
	}
	return nil, args
}

/*
 *  OP_INVERT, OP_NEGATE
 */

func foldInvert(eb *ExprBuilder, args []*Node) *Node {
	v := args[0].Bits()
	v.Not()
	return eb.folded(v, args...)
}

func foldNegate(eb *ExprBuilder, args []*Node) *Node {
	v := args[0].Bits()
	v.Neg()
	return eb.folded(v, args...)
}

// rewriteInvolution cancels double application of an involutary operator.
func rewriteInvolution(op Operator) func(*ExprBuilder, []*Node, Solver) (*Node, []*Node) {
	return func(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
		if args[0].IsOperator(op) {
			return args[0].children[0], nil
		}
		return nil, args
	}
}

/*
 *  OP_ITE
 */

func rewriteIte(eb *ExprBuilder, args []*Node, solver Solver) (*Node, []*Node) {
	cond, a, b := args[0], args[1], args[2]

	// Known condition
	if cond.IsNumber() {
		if cond.isZero() {
			return b, nil
		}
		return a, nil
	}

	// Same branches
	if a.IsEquivalentTo(b) {
		return a, nil
	}

	// Negated condition
	if cond.IsOperator(OP_INVERT) {
		return nil, []*Node{cond.children[0], b, a}
	}

	if solver != nil {
		if solver.Satisfiable(cond) == RESULT_UNSAT {
			return b, nil
		}
		if solver.Satisfiable(eb.Invert(cond)) == RESULT_UNSAT {
			return a, nil
		}
	}
	return nil, args
}

/*
 *  OP_LET, OP_NOOP
 */

func rewriteLet(eb *ExprBuilder, args []*Node, solver Solver) (*Node, []*Node) {
	if args[0].IsVariable() || args[0].IsMemory() {
		return eb.Substitute(args[2], args[0], args[1], WithSolver(solver)), nil
	}
	return nil, args
}

func rewriteNoop(_ *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
	return args[0], nil
}

/*
 *  OP_LSSB, OP_MSSB, OP_ZEROP
 */

func foldLssb(eb *ExprBuilder, args []*Node) *Node {
	i, _ := args[0].bits.LeastSignificantSetBit()
	return eb.folded(bitvec.MakeFromUint64(uint64(i), args[0].nbits), args...)
}

func foldMssb(eb *ExprBuilder, args []*Node) *Node {
	i, _ := args[0].bits.MostSignificantSetBit()
	return eb.folded(bitvec.MakeFromUint64(uint64(i), args[0].nbits), args...)
}

func foldZerop(eb *ExprBuilder, args []*Node) *Node {
	return eb.boolConst(args[0].isZero(), foldingRule(args...))
}

/*
 *  Relational operators
 */

func compareConstants(op Operator, a, b *bitvec.BV) bool {
	switch op {
	case OP_EQ:
		return a.Eq(b)
	case OP_NE:
		return !a.Eq(b)
	case OP_SGE:
		return a.SGe(b)
	case OP_SGT:
		return a.SGt(b)
	case OP_SLE:
		return a.SLe(b)
	case OP_SLT:
		return a.SLt(b)
	case OP_UGE:
		return a.UGe(b)
	case OP_UGT:
		return a.UGt(b)
	case OP_ULE:
		return a.ULe(b)
	case OP_ULT:
		return a.ULt(b)
	}
	assert(false, "%s is not relational", op)
	return false
}

func foldRelational(op Operator) func(*ExprBuilder, []*Node) *Node {
	return func(eb *ExprBuilder, args []*Node) *Node {
		return eb.boolConst(compareConstants(op, args[0].bits, args[1].bits), relationalRule(args...))
	}
}

func rewriteRelational(op Operator) func(*ExprBuilder, []*Node, Solver) (*Node, []*Node) {
	return func(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
		a, b := args[0], args[1]

		// Identical operands
		if a.IsEquivalentTo(b) {
			return eb.boolConst(op.reflexive(), relationalRule(a, b)), nil
		}

		// Unsigned bounds
		switch {
		case op == OP_ULT && b.isZero():
			return eb.boolConst(false, relationalRule(a, b)), nil
		case op == OP_UGE && b.isZero():
			return eb.boolConst(true, relationalRule(a, b)), nil
		case op == OP_UGT && a.isZero():
			return eb.boolConst(false, relationalRule(a, b)), nil
		case op == OP_ULE && a.isZero():
			return eb.boolConst(true, relationalRule(a, b)), nil
		}
		return nil, args
	}
}

/*
 *  OP_READ
 */

func rewriteRead(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
	mem, addr := args[0], args[1]
	m := mem
	for m.IsOperator(OP_WRITE) {
		// Read after write to the same address
		if m.children[1].IsEquivalentTo(addr) {
			return m.children[2], nil
		}
		// Skip writes to other concrete addresses
		if m.children[1].IsNumber() && addr.IsNumber() {
			m = m.children[0]
			continue
		}
		break
	}
	if m != mem {
		return nil, []*Node{m, addr}
	}
	return nil, args
}

/*
 *  Shifts and rotates
 */

// shiftAmount saturates the amount at width.
func shiftAmount(sa *Node, width uint) uint {
	if !sa.bits.FitInLong() || sa.bits.AsUint64() >= uint64(width) {
		return width
	}
	return uint(sa.bits.AsUint64())
}

func rotateAmount(sa *Node, width uint) uint {
	m := new(big.Int).Mod(sa.bits.Big(), big.NewInt(int64(width)))
	return uint(m.Uint64())
}

func lowOnes(width, n uint) *bitvec.BV {
	v := bitvec.Ones(width)
	v.LShr(width - n)
	return v
}

func highOnes(width, n uint) *bitvec.BV {
	v := bitvec.Ones(width)
	v.Shl(width - n)
	return v
}

func foldShift(op Operator) func(*ExprBuilder, []*Node) *Node {
	return func(eb *ExprBuilder, args []*Node) *Node {
		v := args[1].Bits()
		w := v.Size
		n := shiftAmount(args[0], w)
		switch op {
		case OP_SHL0:
			v.Shl(n)
		case OP_SHL1:
			v.Shl(n)
			v.Or(lowOnes(w, n))
		case OP_SHR0:
			v.LShr(n)
		case OP_SHR1:
			v.LShr(n)
			v.Or(highOnes(w, n))
		case OP_ASR:
			v.AShr(n)
		}
		return eb.folded(v, args...)
	}
}

// additiveNesting combines the amounts of two nested applications of the
// same shift. Amounts are widened so that their sum cannot overflow.
func (eb *ExprBuilder) additiveNesting(op Operator, sa, a *Node) (*Node, []*Node) {
	if !a.IsOperator(op) {
		return nil, nil
	}
	inner := a.children[0]
	w := max(sa.nbits, inner.nbits) + 1
	sum := eb.Add(eb.UnsignedExtend(w, sa), eb.UnsignedExtend(w, inner))
	return nil, []*Node{sum, a.children[1]}
}

func rewriteShift(op Operator) func(*ExprBuilder, []*Node, Solver) (*Node, []*Node) {
	return func(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
		sa, a := args[0], args[1]
		w := a.nbits

		// Shift by zero
		if sa.isZero() {
			return a, nil
		}

		// Everything shifted out
		if sa.IsNumber() && shiftAmount(sa, w) == w {
			switch op {
			case OP_SHL0, OP_SHR0:
				return eb.zero(w, createRule()), nil
			case OP_SHL1, OP_SHR1:
				return eb.ones(w, createRule()), nil
			}
		}

		// Fixed points
		switch op {
		case OP_SHL0, OP_SHR0:
			if a.isZero() {
				return a, nil
			}
		case OP_SHL1, OP_SHR1:
			if a.isAllOnes() {
				return a, nil
			}
		case OP_ASR:
			if a.isZero() || a.isAllOnes() {
				return a, nil
			}
		}

		if res, nested := eb.additiveNesting(op, sa, a); nested != nil {
			return res, nested
		}
		return nil, args
	}
}

func foldRotate(op Operator) func(*ExprBuilder, []*Node) *Node {
	return func(eb *ExprBuilder, args []*Node) *Node {
		v := args[1].Bits()
		n := rotateAmount(args[0], v.Size)
		if op == OP_ROL {
			v.Rol(n)
		} else {
			v.Ror(n)
		}
		return eb.folded(v, args...)
	}
}

func rewriteRotate(op Operator) func(*ExprBuilder, []*Node, Solver) (*Node, []*Node) {
	return func(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
		sa, a := args[0], args[1]

		// Rotation by a multiple of the width
		if sa.IsNumber() && rotateAmount(sa, a.nbits) == 0 {
			return a, nil
		}

		// Rotation invariant values
		if a.isZero() || a.isAllOnes() {
			return a, nil
		}

		if res, nested := eb.additiveNesting(op, sa, a); nested != nil {
			return res, nested
		}
		return nil, args
	}
}

/*
 *  OP_SDIV, OP_UDIV, OP_SMOD, OP_UMOD
 */

func foldDivMod(op Operator) func(*ExprBuilder, []*Node) *Node {
	return func(eb *ExprBuilder, args []*Node) *Node {
		a, b := args[0], args[1]
		if b.isZero() {
			return nil
		}
		w := max(a.nbits, b.nbits)
		x, y := a.Bits(), b.Bits()
		if op == OP_SDIV || op == OP_SMOD {
			x.SignResize(w)
			y.SignResize(w)
		} else {
			x.Resize(w)
			y.Resize(w)
		}
		switch op {
		case OP_UDIV:
			x.UDiv(y)
			x.Resize(a.nbits)
		case OP_SDIV:
			x.SDiv(y)
			x.Resize(a.nbits)
		case OP_UMOD:
			x.URem(y)
			x.Resize(b.nbits)
		case OP_SMOD:
			x.SRem(y)
			x.Resize(b.nbits)
		}
		return eb.folded(x, args...)
	}
}

func rewriteDivMod(op Operator) func(*ExprBuilder, []*Node, Solver) (*Node, []*Node) {
	return func(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
		a, b := args[0], args[1]
		if !b.isOne() {
			return nil, args
		}
		if (op == OP_SDIV || op == OP_SMOD) && b.nbits < 2 {
			return nil, args
		}
		switch op {
		case OP_UDIV, OP_SDIV:
			// Division by one
			return a, nil
		default:
			// Remainder of division by one
			return eb.zero(b.nbits, createRule()), nil
		}
	}
}

/*
 *  OP_SEXTEND, OP_UEXTEND
 */

func foldExtend(op Operator) func(*ExprBuilder, []*Node) *Node {
	return func(eb *ExprBuilder, args []*Node) *Node {
		v := args[1].Bits()
		n := uint(args[0].ToUint64())
		if op == OP_SEXTEND {
			v.SignResize(n)
		} else {
			v.Resize(n)
		}
		return eb.folded(v, args...)
	}
}

func rewriteExtend(op Operator) func(*ExprBuilder, []*Node, Solver) (*Node, []*Node) {
	return func(eb *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
		n := uint(args[0].ToUint64())
		a := args[1]

		// Same width
		if n == a.nbits {
			return a, nil
		}

		// Truncation
		if n < a.nbits {
			return eb.Extract(0, n, a), nil
		}

		// Nested extensions
		if a.IsOperator(OP_UEXTEND) {
			return eb.UnsignedExtend(n, a.children[1]), nil
		}
		if op == OP_SEXTEND && a.IsOperator(OP_SEXTEND) {
			return eb.SignExtend(n, a.children[1]), nil
		}
		return nil, args
	}
}

/*
 *  OP_SET
 */

func rewriteSet(_ *ExprBuilder, args []*Node, _ Solver) (*Node, []*Node) {
	args = removeDuplicates(args)
	if len(args) == 1 {
		return args[0], nil
	}
	return nil, args
}
