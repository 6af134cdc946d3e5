package symexpr

const (
	RESULT_ERROR   = 0
	RESULT_SAT     = 1
	RESULT_UNSAT   = 2
	RESULT_UNKNOWN = 3
)

// Solver decides satisfiability of single-bit expressions: the query is
// whether the expression can be 1. Implementations own their lifecycle and
// any timeout or cancellation policy.
type Solver interface {
	Satisfiable(query *Node) int
}

// MustEqual reports whether a and b are equal for every assignment of their
// variables. Constants of different widths are compared by value.
func (eb *ExprBuilder) MustEqual(a, b *Node, solver Solver) bool {
	if a.IsEquivalentTo(b) {
		return true
	}
	if a.IsNumber() && b.IsNumber() {
		return a.bits.EqValue(b.bits)
	}
	if solver == nil || a.nbits != b.nbits || !a.IsScalar() || !b.IsScalar() {
		return false
	}
	return solver.Satisfiable(eb.Ne(a, b)) == RESULT_UNSAT
}

// MayEqual reports whether some assignment makes a and b equal. Without a
// solver the answer is conservative: true unless the expressions are provably
// different.
func (eb *ExprBuilder) MayEqual(a, b *Node, solver Solver) bool {
	if a.IsEquivalentTo(b) {
		return true
	}
	if a.IsNumber() && b.IsNumber() {
		return a.bits.EqValue(b.bits)
	}
	if eb.MayEqualCallback != nil {
		if res, decided := eb.MayEqualCallback(a, b, solver); decided {
			return res
		}
	}
	if a.nbits != b.nbits || !a.IsScalar() || !b.IsScalar() {
		return false
	}

	// v + c1 and v + c2 differ when c1 != c2
	if va, ca, ok := MatchAddVariableConstant(a); ok {
		if vb, cb, ok := MatchAddVariableConstant(b); ok && va.IsEquivalentTo(vb) {
			return ca.Eq(cb)
		}
		if !ca.IsZero() && va.IsEquivalentTo(b) {
			return false
		}
	}
	if vb, cb, ok := MatchAddVariableConstant(b); ok && !cb.IsZero() && vb.IsEquivalentTo(a) {
		return false
	}

	if solver == nil {
		return true
	}
	return solver.Satisfiable(eb.Eq(a, b)) != RESULT_UNSAT
}
