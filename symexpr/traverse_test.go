package symexpr_test

import (
	"testing"

	"github.com/borzacchiello/gosem/symexpr"
	"github.com/google/go-cmp/cmp"
)

func TestNNodes(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(16)
	s := eb.Add(v, eb.Integer(16, 1))
	e := eb.Concat(s, s)

	if e.NNodes() != 7 {
		t.Errorf("tree size %d", e.NNodes())
	}
	if n := symexpr.NNodesUnique(e); n != 4 {
		t.Errorf("dag size %d", n)
	}
}

func TestDepthFirstTraversal(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(16)
	w := eb.Variable(16)
	e := eb.Xor(eb.Add(v, w), v)

	leaves := 0
	symexpr.DepthFirstTraversal(e, symexpr.VisitorFunc(func(n *symexpr.Node) symexpr.VisitAction {
		if n.IsLeaf() {
			leaves++
		}
		return symexpr.CONTINUE
	}))
	if leaves != 3 {
		t.Errorf("visited %d leaves", leaves)
	}

	visited := 0
	res := symexpr.DepthFirstTraversal(e, symexpr.VisitorFunc(func(n *symexpr.Node) symexpr.VisitAction {
		visited++
		if n.IsVariable() {
			return symexpr.TERMINATE
		}
		return symexpr.CONTINUE
	}))
	if res != symexpr.TERMINATE {
		t.Error("traversal should report termination")
	}
	if visited != 3 {
		t.Errorf("visited %d nodes before terminating", visited)
	}

	visited = 0
	symexpr.DepthFirstTraversal(e, symexpr.VisitorFunc(func(n *symexpr.Node) symexpr.VisitAction {
		visited++
		return symexpr.TRUNCATE
	}))
	if visited != 1 {
		t.Errorf("truncated traversal visited %d nodes", visited)
	}
}

func TestGetVariables(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(16)
	w := eb.Variable(16)
	mem := eb.Memory(16, 16)
	e := eb.Add(eb.Add(w, v), eb.Read(mem, v))

	names := []string{}
	for _, n := range symexpr.GetVariables(e) {
		names = append(names, n.VariableName())
	}
	want := []string{"v0", "v1", "m2"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("variables mismatch (-want +got):\n%s", diff)
	}
}

func TestFindCommonSubexpressions(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(16)
	w := eb.Variable(16)
	shared := eb.Add(v, w)
	e := eb.UnsignedMul(shared, eb.Invert(shared))

	common := symexpr.FindCommonSubexpressions(e)
	if len(common) != 1 || common[0] != shared {
		t.Errorf("common subexpressions %v", common)
	}
	if len(symexpr.FindCommonSubexpressions(shared)) != 0 {
		t.Error("leaves do not count")
	}
}

func TestHashList(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	a := eb.Variable(8)
	b := eb.Variable(8)

	if symexpr.HashList([]*symexpr.Node{a, b}) != symexpr.HashList([]*symexpr.Node{b, a}) {
		t.Error("hash should not depend on order")
	}
}
