package z3solver

import (
	"testing"

	"github.com/borzacchiello/gosem/symexpr"
)

func TestSolverSat1(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	s := New()

	a := eb.Variable(32)
	q := eb.And(eb.UnsignedLe(a, eb.Integer(32, 42)), eb.UnsignedGe(a, eb.Integer(32, 21)))
	if s.Satisfiable(q) != symexpr.RESULT_SAT {
		t.Error("should be sat")
		return
	}

	m := s.Model()
	v, ok := m[a.NameID()]
	if !ok {
		t.Error("unable to find the assignment")
		return
	}
	if x := v.AsUint64(); x > 42 || x < 21 {
		t.Errorf("invalid model value %d", x)
	}
}

func TestSolverUnsat(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	s := New()

	a := eb.Variable(8)
	q := eb.Eq(eb.Add(a, eb.Integer(8, 4)), eb.Add(a, eb.Integer(8, 8)))
	if s.Satisfiable(q) != symexpr.RESULT_UNSAT {
		t.Error("should be unsat")
	}
}

func TestSolverEvalUpto(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	s := New()

	a := eb.Variable(32)
	pi := eb.And(eb.UnsignedLe(a, eb.Integer(32, 42)), eb.UnsignedGe(a, eb.Integer(32, 21)))

	vals, err := s.EvalUpto(a, pi, 128)
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 42-21+1 {
		t.Errorf("unable to find all values, got %d", len(vals))
	}
}

func TestSolverMustEqual(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	s := New()

	a := eb.Variable(16)
	b := eb.Variable(16)

	// (a ^ b) ^ b == a, which the simplifier cannot see through a rotate
	lhs := eb.Rol(eb.Integer(8, 3), eb.Xor(a, b))
	rhs := eb.Xor(eb.Rol(eb.Integer(8, 3), a), eb.Rol(eb.Integer(8, 3), b))
	if !eb.MustEqual(lhs, rhs, s) {
		t.Error("rotation distributes over xor")
	}
	if eb.MustEqual(a, b, s) {
		t.Error("a and b are unrelated")
	}
	if eb.MayEqual(eb.Shl0(eb.Integer(8, 1), a), eb.Integer(16, 1), s) {
		t.Error("a << 1 is even")
	}
}

func TestSolverShifts(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	s := New()

	a := eb.Variable(8)
	sa := eb.Variable(16)

	// shifting by any amount of at least the width clears everything
	q := eb.And(
		eb.UnsignedGe(sa, eb.Integer(16, 8)),
		eb.Ne(eb.Shl0(sa, a), eb.Integer(8, 0)))
	if s.Satisfiable(q) != symexpr.RESULT_UNSAT {
		t.Error("saturating shift")
	}

	q = eb.Ne(eb.Lssb(eb.Integer(8, 0x50)), eb.Integer(8, 4))
	if s.Satisfiable(q) != symexpr.RESULT_UNSAT {
		t.Error("lssb")
	}

	q = eb.And(eb.Eq(a, eb.Integer(8, 0x50)), eb.Ne(eb.Mssb(a), eb.Integer(8, 6)))
	if s.Satisfiable(q) != symexpr.RESULT_UNSAT {
		t.Error("mssb")
	}
}

func TestSolverMemory(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	s := New()

	mem := eb.Memory(32, 8)
	a1 := eb.Variable(32)
	a2 := eb.Variable(32)
	v := eb.Variable(8)

	// reading back a written address needs no solver, a different one does
	r := eb.Read(eb.Write(mem, a1, v), a2)
	q := eb.And(eb.Eq(a1, a2), eb.Ne(r, v))
	if s.Satisfiable(q) != symexpr.RESULT_UNSAT {
		t.Error("read after write to an aliased address")
	}
}

func TestSolverRejectsWideQueries(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	s := New()

	if s.Satisfiable(eb.Variable(8)) != symexpr.RESULT_ERROR {
		t.Error("queries must be a single bit")
	}
	if s.Satisfiable(eb.Eq(eb.Set(eb.Variable(8), eb.Variable(8)), eb.Integer(8, 1))) != symexpr.RESULT_UNKNOWN {
		t.Error("sets have no translation")
	}
}
