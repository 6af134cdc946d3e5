package symexpr

// positionWidth is the width of the constant bit positions used by extract
// and extend nodes.
const positionWidth = 32

func (eb *ExprBuilder) position(v uint) *Node {
	return eb.Integer(positionWidth, uint64(v))
}

func (eb *ExprBuilder) Add(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_ADD, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) And(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_AND, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) Or(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_OR, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) Xor(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_XOR, []*Node{a, b}, opts...)
}

// Asr shifts a right by sa bits, replicating the sign bit.
func (eb *ExprBuilder) Asr(sa, a *Node, opts ...Option) *Node {
	return eb.Interior(OP_ASR, []*Node{sa, a}, opts...)
}

// Concat places hi in the most significant bits of the result.
func (eb *ExprBuilder) Concat(hi, lo *Node, opts ...Option) *Node {
	return eb.Interior(OP_CONCAT, []*Node{hi, lo}, opts...)
}

func (eb *ExprBuilder) Eq(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_EQ, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) Ne(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_NE, []*Node{a, b}, opts...)
}

// Extract selects bits [begin, end) of a.
func (eb *ExprBuilder) Extract(begin, end uint, a *Node, opts ...Option) *Node {
	return eb.Interior(OP_EXTRACT, []*Node{eb.position(begin), eb.position(end), a}, opts...)
}

func (eb *ExprBuilder) Invert(a *Node, opts ...Option) *Node {
	return eb.Interior(OP_INVERT, []*Node{a}, opts...)
}

func (eb *ExprBuilder) Ite(cond, a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_ITE, []*Node{cond, a, b}, opts...)
}

// Let replaces v by value in body.
func (eb *ExprBuilder) Let(v, value, body *Node, opts ...Option) *Node {
	return eb.Interior(OP_LET, []*Node{v, value, body}, opts...)
}

func (eb *ExprBuilder) Lssb(a *Node, opts ...Option) *Node {
	return eb.Interior(OP_LSSB, []*Node{a}, opts...)
}

func (eb *ExprBuilder) Mssb(a *Node, opts ...Option) *Node {
	return eb.Interior(OP_MSSB, []*Node{a}, opts...)
}

func (eb *ExprBuilder) Negate(a *Node, opts ...Option) *Node {
	return eb.Interior(OP_NEGATE, []*Node{a}, opts...)
}

func (eb *ExprBuilder) Read(mem, addr *Node, opts ...Option) *Node {
	return eb.Interior(OP_READ, []*Node{mem, addr}, opts...)
}

func (eb *ExprBuilder) Rol(sa, a *Node, opts ...Option) *Node {
	return eb.Interior(OP_ROL, []*Node{sa, a}, opts...)
}

func (eb *ExprBuilder) Ror(sa, a *Node, opts ...Option) *Node {
	return eb.Interior(OP_ROR, []*Node{sa, a}, opts...)
}

// Set builds the set of possible values args.
func (eb *ExprBuilder) Set(args ...*Node) *Node {
	return eb.Interior(OP_SET, args)
}

func (eb *ExprBuilder) SignedDiv(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_SDIV, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) SignExtend(newWidth uint, a *Node, opts ...Option) *Node {
	return eb.Interior(OP_SEXTEND, []*Node{eb.position(newWidth), a}, opts...)
}

func (eb *ExprBuilder) SignedGe(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_SGE, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) SignedGt(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_SGT, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) SignedLe(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_SLE, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) SignedLt(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_SLT, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) SignedMod(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_SMOD, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) SignedMul(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_SMUL, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) Shl0(sa, a *Node, opts ...Option) *Node {
	return eb.Interior(OP_SHL0, []*Node{sa, a}, opts...)
}

func (eb *ExprBuilder) Shl1(sa, a *Node, opts ...Option) *Node {
	return eb.Interior(OP_SHL1, []*Node{sa, a}, opts...)
}

func (eb *ExprBuilder) Shr0(sa, a *Node, opts ...Option) *Node {
	return eb.Interior(OP_SHR0, []*Node{sa, a}, opts...)
}

func (eb *ExprBuilder) Shr1(sa, a *Node, opts ...Option) *Node {
	return eb.Interior(OP_SHR1, []*Node{sa, a}, opts...)
}

func (eb *ExprBuilder) UnsignedDiv(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_UDIV, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) UnsignedExtend(newWidth uint, a *Node, opts ...Option) *Node {
	return eb.Interior(OP_UEXTEND, []*Node{eb.position(newWidth), a}, opts...)
}

func (eb *ExprBuilder) UnsignedGe(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_UGE, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) UnsignedGt(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_UGT, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) UnsignedLe(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_ULE, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) UnsignedLt(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_ULT, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) UnsignedMod(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_UMOD, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) UnsignedMul(a, b *Node, opts ...Option) *Node {
	return eb.Interior(OP_UMUL, []*Node{a, b}, opts...)
}

func (eb *ExprBuilder) Write(mem, addr, value *Node, opts ...Option) *Node {
	return eb.Interior(OP_WRITE, []*Node{mem, addr, value}, opts...)
}

func (eb *ExprBuilder) Zerop(a *Node, opts ...Option) *Node {
	return eb.Interior(OP_ZEROP, []*Node{a}, opts...)
}

// SetToIte converts a set into nested if-then-else nodes selected by the
// value of selector, which must be wide enough to number the members.
// Expressions other than sets are returned unchanged.
func (eb *ExprBuilder) SetToIte(set *Node, selector *Node) *Node {
	if !set.IsOperator(OP_SET) {
		return set
	}
	members := set.children
	res := members[len(members)-1]
	for i := len(members) - 2; i >= 0; i-- {
		cond := eb.Eq(selector, eb.Integer(selector.nbits, uint64(i)))
		res = eb.Ite(cond, members[i], res)
	}
	return res
}
