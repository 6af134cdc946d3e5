package symexpr

import (
	"encoding/binary"
	"fmt"

	"github.com/borzacchiello/gosem/bitvec"
	"github.com/cespare/xxhash/v2"
)

type nodeKind int

const (
	kindInterior nodeKind = iota
	kindVariable
	kindMemory
	kindConstant
)

// Node is an immutable symbolic expression: either an interior node (an
// operator applied to children) or a leaf (constant, variable or memory).
// Nodes are only created through an ExprBuilder. Apart from the comment and
// user data, a node never changes after construction and can be shared
// between goroutines.
type Node struct {
	kind        nodeKind
	op          Operator
	nbits       uint
	domainWidth uint
	flags       Flags
	hash        uint64
	nnodes      uint64

	children []*Node
	bits     *bitvec.BV
	name     uint64

	comment  string
	userData interface{}
}

func assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}

func (n *Node) computeHash() {
	h := xxhash.New()
	buf := make([]byte, 8)
	put := func(v uint64) {
		binary.BigEndian.PutUint64(buf, v)
		h.Write(buf)
	}

	put(uint64(n.kind))
	put(uint64(n.nbits))
	put(uint64(n.domainWidth))
	put(uint64(n.flags.Pack()))
	switch n.kind {
	case kindInterior:
		put(uint64(n.op))
		for _, c := range n.children {
			put(c.hash)
		}
	case kindConstant:
		h.Write(n.bits.Bytes())
	default:
		put(n.name)
	}
	n.hash = h.Sum64()
}

func (n *Node) computeNNodes() {
	if n.kind != kindInterior {
		n.nnodes = 1
		return
	}
	total := uint64(1)
	for _, c := range n.children {
		if total+c.nnodes < total {
			// saturate
			total = ^uint64(0)
			break
		}
		total += c.nnodes
	}
	n.nnodes = total
}

// NBits returns the width of the value. For memory-typed expressions this is
// the width of the stored values.
func (n *Node) NBits() uint {
	return n.nbits
}

// DomainWidth is the address width of memory-typed expressions and zero for
// scalars.
func (n *Node) DomainWidth() uint {
	return n.domainWidth
}

func (n *Node) IsScalar() bool {
	return n.domainWidth == 0
}

func (n *Node) Flags() Flags {
	return n.flags
}

func (n *Node) Hash() uint64 {
	return n.hash
}

func (n *Node) Comment() string {
	return n.comment
}

// SetComment changes the comment. Comments are shared by every holder of the
// node and are not synchronized.
func (n *Node) SetComment(c string) {
	n.comment = c
}

func (n *Node) UserData() interface{} {
	return n.userData
}

func (n *Node) SetUserData(d interface{}) {
	n.userData = d
}

// NNodes counts nodes as if the expression were a tree.
func (n *Node) NNodes() uint64 {
	return n.nnodes
}

func (n *Node) IsLeaf() bool {
	return n.kind != kindInterior
}

func (n *Node) IsInterior() bool {
	return n.kind == kindInterior
}

func (n *Node) IsNumber() bool {
	return n.kind == kindConstant
}

func (n *Node) IsVariable() bool {
	return n.kind == kindVariable
}

func (n *Node) IsMemory() bool {
	return n.kind == kindMemory
}

// IsOperator reports whether n is an interior node with operator op.
func (n *Node) IsOperator(op Operator) bool {
	return n.kind == kindInterior && n.op == op
}

// Op returns the operator of an interior node.
func (n *Node) Op() Operator {
	assert(n.kind == kindInterior, "not an interior node")
	return n.op
}

func (n *Node) Children() []*Node {
	return n.children
}

func (n *Node) NChildren() int {
	return len(n.children)
}

func (n *Node) Child(i int) *Node {
	return n.children[i]
}

// Bits returns a copy of the value of a constant.
func (n *Node) Bits() *bitvec.BV {
	assert(n.kind == kindConstant, "not a constant: %s", n)
	return n.bits.Copy()
}

// ToUint64 returns the value of a constant that fits in 64 bits.
func (n *Node) ToUint64() uint64 {
	assert(n.kind == kindConstant, "not a constant: %s", n)
	assert(n.bits.FitInLong(), "constant does not fit in 64 bits")
	return n.bits.AsUint64()
}

// NameID returns the number of a variable or memory leaf.
func (n *Node) NameID() uint64 {
	assert(n.kind == kindVariable || n.kind == kindMemory, "not a named leaf")
	return n.name
}

// VariableName is "v" or "m" followed by the name number.
func (n *Node) VariableName() string {
	switch n.kind {
	case kindVariable:
		return fmt.Sprintf("v%d", n.name)
	case kindMemory:
		return fmt.Sprintf("m%d", n.name)
	}
	return ""
}

func (n *Node) isZero() bool {
	return n.kind == kindConstant && n.bits.IsZero()
}

func (n *Node) isOne() bool {
	return n.kind == kindConstant && n.bits.IsOne()
}

func (n *Node) isAllOnes() bool {
	return n.kind == kindConstant && n.bits.HasAllBitsSet()
}

// IsEquivalentTo reports structural equivalence.
func (n *Node) IsEquivalentTo(o *Node) bool {
	if n == o {
		return true
	}
	if n == nil || o == nil || n.hash != o.hash {
		return false
	}
	return n.CompareStructure(o) == 0
}

func kindRank(n *Node) int {
	switch n.kind {
	case kindInterior:
		return 0
	case kindVariable:
		return 1
	case kindMemory:
		return 2
	}
	return 3
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CompareStructure is a total order over expressions consistent with
// IsEquivalentTo. Interior nodes sort before leaves, variables before memory
// and memory before constants.
func (n *Node) CompareStructure(o *Node) int {
	assert(n != nil && o != nil, "comparing nil expressions")
	if n == o {
		return 0
	}
	if r := cmpUint(uint64(kindRank(n)), uint64(kindRank(o))); r != 0 {
		return r
	}
	if n.kind == kindInterior {
		if r := cmpUint(uint64(n.op), uint64(o.op)); r != 0 {
			return r
		}
	}
	if r := cmpUint(uint64(n.nbits), uint64(o.nbits)); r != 0 {
		return r
	}
	if r := cmpUint(uint64(n.domainWidth), uint64(o.domainWidth)); r != 0 {
		return r
	}
	if r := cmpUint(uint64(n.flags.Pack()), uint64(o.flags.Pack())); r != 0 {
		return r
	}
	switch n.kind {
	case kindConstant:
		return n.bits.Cmp(o.bits)
	case kindVariable, kindMemory:
		return cmpUint(n.name, o.name)
	}
	if r := cmpUint(uint64(len(n.children)), uint64(len(o.children))); r != 0 {
		return r
	}
	for i := range n.children {
		if r := n.children[i].CompareStructure(o.children[i]); r != 0 {
			return r
		}
	}
	return 0
}

func (n *Node) String() string {
	return n.Format(DefaultFormatter())
}
