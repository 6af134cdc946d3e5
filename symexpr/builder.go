package symexpr

import (
	"sync"

	"github.com/borzacchiello/gosem/bitvec"
	log "github.com/sirupsen/logrus"
)

type ExprBuilderStats struct {
	CacheHits    uint
	CacheLookups uint
	CachedNodes  uint
}

// ExprBuilder creates expressions. Every node it returns is simplified and
// interned: building a node structurally equivalent to one built before
// returns the existing node. Nodes live as long as their builder.
type ExprBuilder struct {
	lock         sync.RWMutex
	cache        map[uint64][]*Node
	nextNameID   uint64

	// MayEqualCallback, when set, is consulted by MayEqual before the
	// built-in rules. The second result reports whether the callback decided.
	MayEqualCallback func(a, b *Node, solver Solver) (bool, bool)

	Stats ExprBuilderStats
}

func NewExprBuilder() *ExprBuilder {
	return &ExprBuilder{
		lock:  sync.RWMutex{},
		cache: map[uint64][]*Node{},
		Stats: ExprBuilderStats{},
	}
}

func (eb *ExprBuilder) LogStats() {
	eb.lock.RLock()
	defer eb.lock.RUnlock()

	ratio := 0.0
	if eb.Stats.CacheLookups > 0 {
		ratio = float64(eb.Stats.CacheHits) / float64(eb.Stats.CacheLookups) * 100
	}
	log.WithFields(log.Fields{
		"hits":      eb.Stats.CacheHits,
		"lookups":   eb.Stats.CacheLookups,
		"cached":    eb.Stats.CachedNodes,
		"hit_ratio": ratio,
	}).Debug("expression builder statistics")
}

type createOptions struct {
	comment string
	flags   Flags
	solver  Solver
}

// Option customizes a node built by an ExprBuilder factory.
type Option func(*createOptions)

// WithComment attaches a comment to the result.
func WithComment(comment string) Option {
	return func(o *createOptions) { o.comment = comment }
}

// WithFlags adds flags to the result in addition to the propagated ones.
func WithFlags(flags Flags) Option {
	return func(o *createOptions) { o.flags = o.flags.Union(flags) }
}

// WithSolver lets simplification rules consult an SMT solver.
func WithSolver(solver Solver) Option {
	return func(o *createOptions) { o.solver = solver }
}

func collectOptions(opts []Option) createOptions {
	o := createOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (eb *ExprBuilder) getOrCreate(n *Node) *Node {
	n.computeHash()
	n.computeNNodes()

	eb.lock.Lock()
	defer eb.lock.Unlock()
	eb.Stats.CacheLookups += 1

	bucket := eb.cache[n.hash]
	for _, e := range bucket {
		if e.CompareStructure(n) == 0 {
			eb.Stats.CacheHits += 1
			if e.comment == "" && n.comment != "" {
				e.comment = n.comment
			}
			return e
		}
	}
	eb.Stats.CachedNodes += 1
	eb.cache[n.hash] = append(bucket, n)
	return n
}

// finish applies the caller's flags and comment to a simplified result.
func (eb *ExprBuilder) finish(n *Node, o createOptions) *Node {
	if merged := n.flags.Union(o.flags); merged != n.flags {
		n = eb.NewFlags(n, merged)
	}
	if o.comment != "" && n.comment == "" {
		n.comment = o.comment
	}
	return n
}

func (eb *ExprBuilder) newName() uint64 {
	eb.lock.Lock()
	defer eb.lock.Unlock()
	id := eb.nextNameID
	eb.nextNameID++
	return id
}

func (eb *ExprBuilder) reserveName(id uint64) {
	eb.lock.Lock()
	defer eb.lock.Unlock()
	if id >= eb.nextNameID {
		eb.nextNameID = id + 1
	}
}

// NextNameID is the number the next fresh variable or memory leaf will get.
func (eb *ExprBuilder) NextNameID() uint64 {
	eb.lock.RLock()
	defer eb.lock.RUnlock()
	return eb.nextNameID
}

/*
 *  Leaves
 */

func (eb *ExprBuilder) constantLeaf(bits *bitvec.BV, flags Flags) *Node {
	return eb.getOrCreate(&Node{
		kind:  kindConstant,
		nbits: bits.Size,
		flags: flags,
		bits:  bits,
	})
}

// Constant builds a constant leaf holding a copy of bits.
func (eb *ExprBuilder) Constant(bits *bitvec.BV, opts ...Option) *Node {
	o := collectOptions(opts)
	return eb.finish(eb.constantLeaf(bits.Copy(), o.flags), o)
}

// Integer builds an nbits-wide constant from the low bits of v.
func (eb *ExprBuilder) Integer(nbits uint, v uint64, opts ...Option) *Node {
	assert(nbits > 0, "zero-width constant")
	o := collectOptions(opts)
	return eb.finish(eb.constantLeaf(bitvec.MakeFromUint64(v, nbits), o.flags), o)
}

func (eb *ExprBuilder) Boolean(b bool, opts ...Option) *Node {
	if b {
		return eb.Integer(1, 1, opts...)
	}
	return eb.Integer(1, 0, opts...)
}

func (eb *ExprBuilder) zero(nbits uint, flags Flags) *Node {
	return eb.constantLeaf(bitvec.Zeros(nbits), flags)
}

func (eb *ExprBuilder) ones(nbits uint, flags Flags) *Node {
	return eb.constantLeaf(bitvec.Ones(nbits), flags)
}

func (eb *ExprBuilder) boolConst(b bool, flags Flags) *Node {
	if b {
		return eb.constantLeaf(bitvec.MakeFromUint64(1, 1), flags)
	}
	return eb.constantLeaf(bitvec.Zeros(1), flags)
}

// Variable builds a fresh free variable.
func (eb *ExprBuilder) Variable(nbits uint, opts ...Option) *Node {
	return eb.ExistingVariable(nbits, eb.newName(), opts...)
}

// ExistingVariable builds the variable named "v<id>". Later fresh variables
// are numbered above id.
func (eb *ExprBuilder) ExistingVariable(nbits uint, id uint64, opts ...Option) *Node {
	assert(nbits > 0, "zero-width variable")
	eb.reserveName(id)
	o := collectOptions(opts)
	return eb.finish(eb.getOrCreate(&Node{
		kind:  kindVariable,
		nbits: nbits,
		flags: o.flags,
		name:  id,
	}), o)
}

// Memory builds a fresh memory function from addrWidth-bit addresses to
// valueWidth-bit values.
func (eb *ExprBuilder) Memory(addrWidth, valueWidth uint, opts ...Option) *Node {
	return eb.ExistingMemory(addrWidth, valueWidth, eb.newName(), opts...)
}

func (eb *ExprBuilder) ExistingMemory(addrWidth, valueWidth uint, id uint64, opts ...Option) *Node {
	assert(addrWidth > 0 && valueWidth > 0, "zero-width memory")
	eb.reserveName(id)
	o := collectOptions(opts)
	return eb.finish(eb.getOrCreate(&Node{
		kind:        kindMemory,
		nbits:       valueWidth,
		domainWidth: addrWidth,
		flags:       o.flags,
		name:        id,
	}), o)
}

// NewFlags returns an expression equivalent to n but with the given flags.
// Interior nodes are rebuilt without simplification.
func (eb *ExprBuilder) NewFlags(n *Node, flags Flags) *Node {
	if n.flags == flags {
		return n
	}
	c := &Node{
		kind:        n.kind,
		op:          n.op,
		nbits:       n.nbits,
		domainWidth: n.domainWidth,
		flags:       flags,
		children:    n.children,
		bits:        n.bits,
		name:        n.name,
		comment:     n.comment,
	}
	return eb.getOrCreate(c)
}

// rawInterior interns an interior node without simplifying it. The flags are
// the union of the children's flags plus extra.
func (eb *ExprBuilder) rawInterior(op Operator, children []*Node, extra Flags) *Node {
	nbits, domainWidth := resultWidth(op, children)
	args := make([]*Node, len(children))
	copy(args, children)
	return eb.getOrCreate(&Node{
		kind:        kindInterior,
		op:          op,
		nbits:       nbits,
		domainWidth: domainWidth,
		flags:       unionFlags(children...).Union(extra),
		children:    args,
	})
}
