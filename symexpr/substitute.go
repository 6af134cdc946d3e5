package symexpr

import (
	"github.com/borzacchiello/gosem/bitvec"
)

type exprPair struct {
	key   *Node
	value *Node
}

// ExprMap maps expressions to expressions by structural equivalence.
type ExprMap struct {
	buckets map[uint64][]exprPair
	size    int
}

func NewExprMap() *ExprMap {
	return &ExprMap{buckets: map[uint64][]exprPair{}}
}

// Insert adds or replaces the value for key.
func (m *ExprMap) Insert(key, value *Node) {
	bucket := m.buckets[key.hash]
	for i := range bucket {
		if bucket[i].key.IsEquivalentTo(key) {
			bucket[i].value = value
			return
		}
	}
	m.buckets[key.hash] = append(bucket, exprPair{key, value})
	m.size++
}

func (m *ExprMap) Lookup(key *Node) (*Node, bool) {
	for _, p := range m.buckets[key.hash] {
		if p.key.IsEquivalentTo(key) {
			return p.value, true
		}
	}
	return nil, false
}

func (m *ExprMap) Len() int {
	return m.size
}

// Invert swaps keys and values. When several keys share a value, one of them
// wins.
func (m *ExprMap) Invert() *ExprMap {
	res := NewExprMap()
	for _, bucket := range m.buckets {
		for _, p := range bucket {
			res.Insert(p.value, p.key)
		}
	}
	return res
}

// Each calls fn for every entry.
func (m *ExprMap) Each(fn func(key, value *Node)) {
	for _, bucket := range m.buckets {
		for _, p := range bucket {
			fn(p.key, p.value)
		}
	}
}

func (eb *ExprBuilder) rebuild(n *Node, children []*Node, o createOptions) *Node {
	if sameOperands(n.children, children) {
		return n
	}
	// Flags requested when n was built are not implied by its children and
	// carry over to the rebuilt node.
	own := n.flags.Without(unionFlags(n.children...))
	return eb.finish(eb.simplify(n.op, children, o.solver), createOptions{flags: own})
}

// Substitute replaces every occurrence of from in e by to. Ancestors of the
// replaced occurrences are rebuilt and simplified bottom-up.
func (eb *ExprBuilder) Substitute(e, from, to *Node, opts ...Option) *Node {
	assert(from.nbits == to.nbits && from.domainWidth == to.domainWidth,
		"substitution changes width from %d to %d", from.nbits, to.nbits)
	o := collectOptions(opts)
	cache := make(map[*Node]*Node)
	return eb.substitute(e, from, to, o, cache)
}

func (eb *ExprBuilder) substitute(e, from, to *Node, o createOptions, cache map[*Node]*Node) *Node {
	if r, ok := cache[e]; ok {
		return r
	}
	var res *Node
	switch {
	case e.IsEquivalentTo(from):
		res = to
	case e.IsLeaf():
		res = e
	default:
		children := make([]*Node, len(e.children))
		for i, c := range e.children {
			children[i] = eb.substitute(c, from, to, o, cache)
		}
		res = eb.rebuild(e, children, o)
	}
	cache[e] = res
	return res
}

// SubstituteMultiple replaces, in a single pass, every subexpression of e
// found in table by its value. Replacement values are not searched again.
func (eb *ExprBuilder) SubstituteMultiple(e *Node, table *ExprMap, opts ...Option) *Node {
	o := collectOptions(opts)
	cache := make(map[*Node]*Node)
	return eb.substituteMultiple(e, table, o, cache)
}

func (eb *ExprBuilder) substituteMultiple(e *Node, table *ExprMap, o createOptions, cache map[*Node]*Node) *Node {
	if r, ok := cache[e]; ok {
		return r
	}
	var res *Node
	if v, ok := table.Lookup(e); ok {
		assert(v.nbits == e.nbits, "substitution changes width from %d to %d", e.nbits, v.nbits)
		res = v
	} else if e.IsLeaf() {
		res = e
	} else {
		children := make([]*Node, len(e.children))
		for i, c := range e.children {
			children[i] = eb.substituteMultiple(c, table, o, cache)
		}
		res = eb.rebuild(e, children, o)
	}
	cache[e] = res
	return res
}

// RenameVariables renumbers the variables and memory leaves of e. Leaves
// already in index are replaced by their recorded value. Other leaves get the
// next number from nextID and are recorded in index.
func (eb *ExprBuilder) RenameVariables(e *Node, index *ExprMap, nextID *uint64, opts ...Option) *Node {
	o := collectOptions(opts)
	cache := make(map[*Node]*Node)
	var walk func(n *Node) *Node
	walk = func(n *Node) *Node {
		if r, ok := cache[n]; ok {
			return r
		}
		var res *Node
		switch n.kind {
		case kindVariable, kindMemory:
			if v, ok := index.Lookup(n); ok {
				res = v
				break
			}
			id := *nextID
			*nextID++
			if n.kind == kindVariable {
				res = eb.ExistingVariable(n.nbits, id, WithFlags(n.flags))
			} else {
				res = eb.ExistingMemory(n.domainWidth, n.nbits, id, WithFlags(n.flags))
			}
			index.Insert(n, res)
		case kindConstant:
			res = n
		default:
			children := make([]*Node, len(n.children))
			for i, c := range n.children {
				children[i] = walk(c)
			}
			res = eb.rebuild(n, children, o)
		}
		cache[n] = res
		return res
	}
	return walk(e)
}

// Eval replaces variables by constants taken from the interpretation, keyed by
// variable number, and simplifies.
func (eb *ExprBuilder) Eval(e *Node, interpretation map[uint64]*bitvec.BV) *Node {
	table := NewExprMap()
	for _, v := range GetVariables(e) {
		if !v.IsVariable() {
			continue
		}
		if c, ok := interpretation[v.name]; ok {
			assert(c.Size == v.nbits, "interpretation of %s has width %d", v.VariableName(), c.Size)
			table.Insert(v, eb.Constant(c))
		}
	}
	return eb.SubstituteMultiple(e, table)
}
