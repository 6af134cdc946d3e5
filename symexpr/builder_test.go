package symexpr_test

import (
	"testing"

	"github.com/borzacchiello/gosem/symexpr"
)

func TestCache(t *testing.T) {
	eb := symexpr.NewExprBuilder()

	s1 := eb.Variable(32)
	s2 := eb.Variable(32)
	e := eb.Add(s1, s2)

	ss1 := eb.ExistingVariable(32, s1.NameID())
	if s1 != ss1 {
		t.Error("should be the same object")
		return
	}
	if ee := eb.Add(s2, ss1); e != ee {
		t.Error("should be the same object")
	}
	if eb.Stats.CacheHits == 0 {
		t.Error("cache hits should be counted")
	}
}

func TestCommentNotSignificant(t *testing.T) {
	eb := symexpr.NewExprBuilder()

	c1 := eb.Integer(32, 42, symexpr.WithComment("answer"))
	c2 := eb.Integer(32, 42)
	if c1 != c2 || !c1.IsEquivalentTo(c2) {
		t.Error("comments must not affect equivalence")
	}
	if c2.Comment() != "answer" {
		t.Errorf("unexpected comment %q", c2.Comment())
	}
}

func TestFlagsSignificant(t *testing.T) {
	eb := symexpr.NewExprBuilder()

	c1 := eb.Integer(32, 42, symexpr.WithFlags(symexpr.Flags{Unspecified: true}))
	c2 := eb.Integer(32, 42)
	if c1.IsEquivalentTo(c2) || c1.Hash() == c2.Hash() {
		t.Error("flags must affect equivalence")
	}
}

func TestInvolution(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(32)
	e := eb.Add(v, eb.Variable(32))

	if r := eb.Invert(eb.Invert(e)); !r.IsEquivalentTo(e) {
		t.Errorf("invert(invert(e)) = %s", r)
	}
	if r := eb.Negate(eb.Negate(e)); !r.IsEquivalentTo(e) {
		t.Errorf("negate(negate(e)) = %s", r)
	}
	if r := eb.Invert(eb.Invert(eb.Integer(8, 0x5a))); r.ToUint64() != 0x5a {
		t.Errorf("invert(invert(0x5a)) = %s", r)
	}
}

func TestXorSelfCancellation(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(16, symexpr.WithFlags(symexpr.Flags{Indeterminate: true}))
	e := eb.Add(v, eb.Variable(16))

	for _, x := range []*symexpr.Node{v, e} {
		r := eb.Xor(x, x)
		if !r.IsNumber() || r.ToUint64() != 0 || r.NBits() != 16 {
			t.Errorf("xor(x, x) = %s", r)
		}
		if !r.Flags().IsZero() {
			t.Errorf("xor(x, x) must have no flags, got %s", r.Flags())
		}
	}

	// x ^ y ^ x
	w := eb.Variable(16)
	r := eb.Xor(eb.Xor(v, w), v)
	if r != w {
		t.Errorf("x ^ y ^ x = %s", r)
	}
}

func TestIdentityRemoval(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(8)

	if eb.And(v, eb.Integer(8, 0xff)) != v {
		t.Error("and with all ones")
	}
	if eb.Or(v, eb.Integer(8, 0)) != v {
		t.Error("or with zero")
	}
	if eb.Xor(v, eb.Integer(8, 0)) != v {
		t.Error("xor with zero")
	}
	if eb.Add(v, eb.Integer(8, 0)) != v {
		t.Error("add zero")
	}
	zero := eb.Integer(8, 0)
	if eb.And(v, zero) != zero {
		t.Error("and with zero")
	}
	if r := eb.Or(v, eb.Invert(v)); !r.IsNumber() || r.ToUint64() != 0xff {
		t.Errorf("x | ~x = %s", r)
	}
	if r := eb.And(v, eb.Invert(v)); !r.IsNumber() || r.ToUint64() != 0 {
		t.Errorf("x & ~x = %s", r)
	}
}

func TestAddFolding(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(32)

	e := eb.Add(eb.Add(v, eb.Integer(32, 3)), eb.Integer(32, 4))
	if e != eb.Add(v, eb.Integer(32, 7)) {
		t.Errorf("unexpected %s", e)
	}

	if r := eb.Add(v, eb.Negate(v)); !r.IsNumber() || r.ToUint64() != 0 {
		t.Errorf("v + -v = %s", r)
	}

	w := eb.Variable(32)
	r := eb.Add(eb.Add(v, w), eb.Negate(v))
	if r != w {
		t.Errorf("v + w + -v = %s", r)
	}
}

func TestFlagsPropagation(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	indet := symexpr.Flags{Indeterminate: true}
	unspec := symexpr.Flags{Unspecified: true}

	a := eb.Variable(8, symexpr.WithFlags(indet))
	b := eb.Variable(8, symexpr.WithFlags(unspec))

	// Interior rule
	if f := eb.Add(a, b).Flags(); f != indet.Union(unspec) {
		t.Errorf("add flags %s", f)
	}

	// Folding rule
	c := eb.Add(eb.Integer(8, 1, symexpr.WithFlags(unspec)), eb.Integer(8, 2))
	if c.ToUint64() != 3 || c.Flags() != unspec {
		t.Errorf("folded %s", c)
	}

	// Relational rule
	r := eb.UnsignedLt(a, a)
	if !r.IsNumber() || r.ToUint64() != 0 || r.Flags() != indet {
		t.Errorf("a < a = %s", r)
	}
	r = eb.Eq(a, a)
	if !r.IsNumber() || r.ToUint64() != 1 || r.Flags() != indet {
		t.Errorf("a == a = %s", r)
	}

	// Discard rule
	zero := eb.Integer(8, 0)
	if r := eb.And(a, zero); r.Flags() != zero.Flags() {
		t.Errorf("and with zero keeps flags %s", r.Flags())
	}

	// Constructor flags are added
	user := symexpr.Flags{User: 0x10000}
	if f := eb.Add(a, b, symexpr.WithFlags(user)).Flags(); f != indet.Union(unspec).Union(user) {
		t.Errorf("extra flags %s", f)
	}
}

func TestRelationalReflexive(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(32)

	cases := []struct {
		op   symexpr.Operator
		want uint64
	}{
		{symexpr.OP_EQ, 1},
		{symexpr.OP_NE, 0},
		{symexpr.OP_ULT, 0},
		{symexpr.OP_ULE, 1},
		{symexpr.OP_UGT, 0},
		{symexpr.OP_UGE, 1},
		{symexpr.OP_SLT, 0},
		{symexpr.OP_SLE, 1},
		{symexpr.OP_SGT, 0},
		{symexpr.OP_SGE, 1},
	}
	for _, c := range cases {
		r := eb.Interior(c.op, []*symexpr.Node{v, v})
		if !r.IsNumber() || r.ToUint64() != c.want || r.NBits() != 1 {
			t.Errorf("%s(v, v) = %s", c.op, r)
		}
	}
}

func TestExtract(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(32)

	if eb.Extract(0, 32, v) != v {
		t.Error("full extract should be a no-op")
	}
	if r := eb.Extract(4, 8, eb.Extract(8, 24, v)); r != eb.Extract(12, 16, v) {
		t.Errorf("extract of extract = %s", r)
	}
	if r := eb.Extract(0, 8, eb.Integer(32, 0xdeadbeef)); r.ToUint64() != 0xef {
		t.Errorf("extract of constant = %s", r)
	}

	w := eb.Variable(16)
	if r := eb.Extract(16, 32, eb.Concat(w, eb.Variable(16))); r != w {
		t.Errorf("extract of concat = %s", r)
	}
	if r := eb.Extract(16, 32, eb.UnsignedExtend(64, w)); !r.IsNumber() || r.ToUint64() != 0 {
		t.Errorf("extract of extension bits = %s", r)
	}
	if r := eb.Extract(0, 16, eb.SignExtend(64, w)); r != w {
		t.Errorf("extract of sign extension = %s", r)
	}
}

func TestExtractConcatInverse(t *testing.T) {
	eb := symexpr.NewExprBuilder()

	for _, v := range []*symexpr.Node{eb.Integer(32, 0xdeadbeef), eb.Variable(32)} {
		r := eb.Concat(eb.Extract(16, 32, v), eb.Extract(0, 16, v))
		if !r.IsEquivalentTo(v) {
			t.Errorf("concat of extracts = %s, want %s", r, v)
		}
	}
}

func TestShiftNesting(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(32)

	r := eb.Shl0(eb.Integer(8, 2), eb.Shl0(eb.Integer(8, 3), v))
	if r != eb.Shl0(eb.Integer(9, 5), v) {
		t.Errorf("nested shifts = %s", r)
	}

	r = eb.Rol(eb.Integer(8, 30), eb.Rol(eb.Integer(8, 2), v))
	if r != v {
		t.Errorf("rotation by the width = %s", r)
	}

	if r := eb.Shr0(eb.Integer(8, 40), v); !r.IsNumber() || r.ToUint64() != 0 || !r.Flags().IsZero() {
		t.Errorf("shift out = %s", r)
	}
	if r := eb.Shl1(eb.Integer(8, 4), eb.Integer(8, 0x10)); r.ToUint64() != 0x0f {
		t.Errorf("shl1 = %s", r)
	}
	if r := eb.Shr1(eb.Integer(8, 4), eb.Integer(8, 0x10)); r.ToUint64() != 0xf1 {
		t.Errorf("shr1 = %s", r)
	}
	if r := eb.Asr(eb.Integer(8, 4), eb.Integer(8, 0x80)); r.ToUint64() != 0xf8 {
		t.Errorf("asr = %s", r)
	}
}

func TestWidths(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	a := eb.Variable(32)
	b := eb.Variable(16)

	cases := []struct {
		e    *symexpr.Node
		want uint
	}{
		{eb.UnsignedMul(a, b), 48},
		{eb.SignedMul(a, b), 48},
		{eb.UnsignedDiv(a, b), 32},
		{eb.SignedDiv(a, b), 32},
		{eb.UnsignedMod(a, b), 16},
		{eb.SignedMod(a, b), 16},
		{eb.Concat(a, b), 48},
		{eb.Shl0(b, a), 32},
		{eb.Zerop(a), 1},
		{eb.UnsignedExtend(64, b), 64},
		{eb.Extract(3, 9, a), 6},
	}
	for i, c := range cases {
		if c.e.NBits() != c.want {
			t.Errorf("case %d: %s has width %d, want %d", i, c.e, c.e.NBits(), c.want)
		}
	}
}

func TestConstantArithmetic(t *testing.T) {
	eb := symexpr.NewExprBuilder()

	if r := eb.UnsignedMul(eb.Integer(8, 0xff), eb.Integer(8, 0xff)); r.ToUint64() != 0xfe01 {
		t.Errorf("umul = %s", r)
	}
	if r := eb.SignedMul(eb.Integer(8, 0xff), eb.Integer(8, 0xff)); r.ToUint64() != 1 {
		t.Errorf("smul = %s", r)
	}
	if r := eb.UnsignedDiv(eb.Integer(16, 100), eb.Integer(8, 7)); r.ToUint64() != 14 || r.NBits() != 16 {
		t.Errorf("udiv = %s", r)
	}
	if r := eb.UnsignedMod(eb.Integer(16, 100), eb.Integer(8, 7)); r.ToUint64() != 2 || r.NBits() != 8 {
		t.Errorf("umod = %s", r)
	}
	if r := eb.UnsignedDiv(eb.Integer(8, 1), eb.Integer(8, 0)); r.IsNumber() {
		t.Errorf("division by zero must not fold: %s", r)
	}
	if r := eb.Lssb(eb.Integer(8, 0x50)); r.ToUint64() != 4 {
		t.Errorf("lssb = %s", r)
	}
	if r := eb.Mssb(eb.Integer(8, 0x50)); r.ToUint64() != 6 {
		t.Errorf("mssb = %s", r)
	}
	if r := eb.SignExtend(16, eb.Integer(8, 0x80)); r.ToUint64() != 0xff80 {
		t.Errorf("sextend = %s", r)
	}
}

func TestIte(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	a := eb.Variable(32)
	b := eb.Variable(32)
	c := eb.Variable(1)

	if eb.Ite(eb.Boolean(true), a, b) != a {
		t.Error("ite with true condition")
	}
	if eb.Ite(eb.Boolean(false), a, b) != b {
		t.Error("ite with false condition")
	}
	if eb.Ite(c, a, a) != a {
		t.Error("ite with same branches")
	}
	if eb.Ite(eb.Invert(c), a, b) != eb.Ite(c, b, a) {
		t.Error("ite with negated condition")
	}
}

func TestMemory(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	mem := eb.Memory(32, 8)
	addr := eb.Variable(32)
	val := eb.Variable(8)

	if mem.DomainWidth() != 32 || mem.NBits() != 8 {
		t.Errorf("memory widths %d->%d", mem.DomainWidth(), mem.NBits())
	}

	m2 := eb.Write(mem, addr, val)
	if eb.Read(m2, addr) != val {
		t.Error("read after write")
	}

	m3 := eb.Write(mem, eb.Integer(32, 4), val)
	if r := eb.Read(m3, eb.Integer(32, 8)); r != eb.Read(mem, eb.Integer(32, 8)) {
		t.Errorf("read skipping write = %s", r)
	}
}

func TestLet(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(32)
	w := eb.Variable(32)

	r := eb.Let(v, eb.Integer(32, 3), eb.Add(v, w))
	if r != eb.Add(w, eb.Integer(32, 3)) {
		t.Errorf("let = %s", r)
	}
}

func TestSet(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	a := eb.Variable(8)
	b := eb.Variable(8)

	s := eb.Set(a, b, a)
	if !s.IsOperator(symexpr.OP_SET) || s.NChildren() != 2 {
		t.Errorf("set = %s", s)
	}
	if eb.Set(s, b) != s {
		t.Error("nested sets should flatten")
	}
	if eb.Set(a, a) != a {
		t.Error("singleton set")
	}

	sel := eb.Variable(1)
	ite := eb.SetToIte(s, sel)
	if !ite.IsOperator(symexpr.OP_ITE) {
		t.Errorf("set to ite = %s", ite)
	}
}

func TestIdempotence(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(32)
	w := eb.Variable(32)
	c := eb.Variable(1)

	exprs := []*symexpr.Node{
		eb.Add(v, eb.Integer(32, 7)),
		eb.Concat(v, w),
		eb.Extract(3, 9, eb.Add(v, w)),
		eb.Ite(c, v, w),
		eb.Shl0(eb.Extract(0, 5, w), v),
		eb.Xor(eb.And(v, w), eb.Or(v, w)),
		eb.UnsignedDiv(eb.Integer(8, 1), eb.Integer(8, 0)),
		eb.SignedMul(v, w),
	}
	for _, e := range exprs {
		if !e.IsInterior() {
			t.Errorf("%s should be an interior node", e)
			continue
		}
		if r := eb.Interior(e.Op(), e.Children()); r != e {
			t.Errorf("rebuilding %s gave %s", e, r)
		}
	}
}

func TestWidthMismatchPanics(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	defer func() {
		if recover() == nil {
			t.Error("should panic")
		}
	}()
	eb.Add(eb.Variable(32), eb.Variable(16))
}

func TestToUint64OnVariablePanics(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	defer func() {
		if recover() == nil {
			t.Error("should panic")
		}
	}()
	eb.Variable(32).ToUint64()
}

func TestCompareStructure(t *testing.T) {
	eb := symexpr.NewExprBuilder()
	v := eb.Variable(32)
	c := eb.Integer(32, 1)
	e := eb.Add(v, c)

	if e.CompareStructure(v) >= 0 {
		t.Error("interior nodes sort before leaves")
	}
	if v.CompareStructure(c) >= 0 {
		t.Error("variables sort before constants")
	}
	if e.CompareStructure(e) != 0 {
		t.Error("reflexive")
	}
	if e.Child(0) != v || e.Child(1) != c {
		t.Errorf("unexpected operand order in %s", e)
	}
}
