package symexpr

import (
	"sort"

	"github.com/borzacchiello/gosem/bitvec"
)

type VisitAction int

const (
	CONTINUE  VisitAction = iota // visit the children
	TRUNCATE                     // skip the children of this node
	TERMINATE                    // stop the whole traversal
)

// Visitor is called on the way down (PreVisit) and on the way up
// (PostVisit) of a depth-first traversal.
type Visitor interface {
	PreVisit(n *Node) VisitAction
	PostVisit(n *Node) VisitAction
}

// VisitorFunc adapts a pre-order function to a Visitor.
type VisitorFunc func(n *Node) VisitAction

func (f VisitorFunc) PreVisit(n *Node) VisitAction {
	return f(n)
}

func (f VisitorFunc) PostVisit(*Node) VisitAction {
	return CONTINUE
}

// DepthFirstTraversal visits e as a tree: shared subexpressions are visited
// once per path. It returns TERMINATE if the visitor stopped the traversal.
func DepthFirstTraversal(e *Node, v Visitor) VisitAction {
	action := v.PreVisit(e)
	if action == TERMINATE {
		return TERMINATE
	}
	if action == CONTINUE {
		for _, c := range e.children {
			if DepthFirstTraversal(c, v) == TERMINATE {
				return TERMINATE
			}
		}
	}
	return v.PostVisit(e)
}

// uniqueNodes walks each distinct node of e once, children before parents.
func uniqueNodes(e *Node, fn func(n *Node)) {
	visited := make(map[*Node]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, c := range n.children {
			walk(c)
		}
		fn(n)
	}
	walk(e)
}

// NNodesUnique counts the distinct nodes of e as a DAG.
func NNodesUnique(exprs ...*Node) uint64 {
	seen := make(map[*Node]bool)
	for _, e := range exprs {
		uniqueNodes(e, func(n *Node) { seen[n] = true })
	}
	return uint64(len(seen))
}

// GetVariables returns the variable and memory leaves of e sorted by name.
func GetVariables(e *Node) []*Node {
	res := make([]*Node, 0)
	uniqueNodes(e, func(n *Node) {
		if n.kind == kindVariable || n.kind == kindMemory {
			res = append(res, n)
		}
	})
	sort.Slice(res, func(i, j int) bool {
		return res[i].CompareStructure(res[j]) < 0
	})
	return removeDuplicates(res)
}

// FindCommonSubexpressions returns the interior subexpressions that occur
// more than once in exprs, in the order they were first completed.
func FindCommonSubexpressions(exprs ...*Node) []*Node {
	counts := make(map[*Node]int)
	order := make([]*Node, 0)
	var walk func(n *Node)
	walk = func(n *Node) {
		counts[n]++
		if counts[n] > 1 {
			return
		}
		for _, c := range n.children {
			walk(c)
		}
		order = append(order, n)
	}
	for _, e := range exprs {
		walk(e)
	}
	res := make([]*Node, 0)
	for _, n := range order {
		if n.IsInterior() && counts[n] > 1 {
			res = append(res, n)
		}
	}
	return res
}

// MatchAddVariableConstant recognizes (add v c) where v is a variable and c
// a constant.
func MatchAddVariableConstant(e *Node) (*Node, *bitvec.BV, bool) {
	if !e.IsOperator(OP_ADD) || len(e.children) != 2 {
		return nil, nil, false
	}
	a, b := e.children[0], e.children[1]
	if a.IsNumber() {
		a, b = b, a
	}
	if a.IsVariable() && b.IsNumber() {
		return a, b.Bits(), true
	}
	return nil, nil, false
}

// HashList hashes a collection of expressions independently of their order.
func HashList(exprs []*Node) uint64 {
	h := uint64(0)
	for _, e := range exprs {
		h += e.hash
	}
	return h
}
