// Package z3solver answers symexpr satisfiability queries with Z3.
package z3solver

import (
	"math/big"

	"github.com/aclements/go-z3/z3"
	"github.com/borzacchiello/gosem/bitvec"
	"github.com/borzacchiello/gosem/symexpr"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Solver owns a Z3 context. It is not safe for concurrent use.
type Solver struct {
	ctx    *z3.Context
	cfg    *z3.Config
	solver *z3.Solver

	lastSymbols map[uint64]z3.BV
}

func New() *Solver {
	cfg := z3.NewContextConfig()
	ctx := z3.NewContext(cfg)
	return &Solver{
		ctx:    ctx,
		cfg:    cfg,
		solver: z3.NewSolver(ctx),
	}
}

// Satisfiable reports whether the single-bit query can be 1. Queries using
// operators without a Z3 translation are RESULT_UNKNOWN.
func (s *Solver) Satisfiable(query *symexpr.Node) int {
	if !query.IsScalar() || query.NBits() != 1 {
		return symexpr.RESULT_ERROR
	}
	s.solver.Reset()
	s.lastSymbols = make(map[uint64]z3.BV)

	cache := make(map[*symexpr.Node]z3.Value)
	q, err := s.convert(query, cache)
	if err != nil {
		log.WithError(err).Debug("z3: untranslatable query")
		return symexpr.RESULT_UNKNOWN
	}
	s.solver.Assert(s.isTrue(q.(z3.BV)))

	r, err := s.solver.Check()
	if err != nil {
		return symexpr.RESULT_UNKNOWN
	}
	if r {
		return symexpr.RESULT_SAT
	}
	return symexpr.RESULT_UNSAT
}

func convertZ3Const(c z3.BV) (*bitvec.BV, error) {
	v, ok := c.AsBigUnsigned()
	if !ok {
		return nil, errors.New("not a constant")
	}
	return bitvec.MakeFromBigint(v, uint(c.Sort().BVSize())), nil
}

// Model returns the values of the variables of the last satisfiable query,
// keyed by variable number.
func (s *Solver) Model() map[uint64]*bitvec.BV {
	m := s.solver.Model()
	if m == nil {
		return nil
	}

	res := make(map[uint64]*bitvec.BV)
	for id, sym := range s.lastSymbols {
		v := m.Eval(sym, true).(z3.BV)
		c, err := convertZ3Const(v)
		if err != nil {
			panic("unable to create constant")
		}
		res[id] = c
	}
	return res
}

// EvalUpto returns at most n distinct values e can take when pi holds.
func (s *Solver) EvalUpto(e, pi *symexpr.Node, n int) ([]*bitvec.BV, error) {
	s.solver.Reset()
	s.lastSymbols = make(map[uint64]z3.BV)
	cache := make(map[*symexpr.Node]z3.Value)

	ez3, err := s.convert(e, cache)
	if err != nil {
		return nil, err
	}
	piz3, err := s.convert(pi, cache)
	if err != nil {
		return nil, err
	}
	s.solver.Assert(s.isTrue(piz3.(z3.BV)))

	values := make([]*bitvec.BV, 0)
	for n > 0 {
		r, err := s.solver.Check()
		if err != nil || !r {
			break
		}

		m := s.solver.Model()
		if m == nil {
			return nil, errors.New("no model")
		}

		v := m.Eval(ez3, true).(z3.BV)
		c, err := convertZ3Const(v)
		if err != nil {
			return nil, err
		}
		values = append(values, c)
		s.solver.Assert(ez3.(z3.BV).NE(v))
		n -= 1
	}
	return values, nil
}

func (s *Solver) bv(v uint64, width int) z3.BV {
	return s.ctx.FromBigInt(new(big.Int).SetUint64(v), s.ctx.BVSort(width)).(z3.BV)
}

func (s *Solver) isTrue(b z3.BV) z3.Bool {
	return b.Eq(s.bv(1, 1))
}

func (s *Solver) fromBool(b z3.Bool) z3.BV {
	return b.IfThenElse(s.bv(1, 1), s.bv(0, 1)).(z3.BV)
}

// resize zero or sign extends, or truncates, v to width bits.
func resize(v z3.BV, width int, signed bool) z3.BV {
	w := v.Sort().BVSize()
	switch {
	case w == width:
		return v
	case w > width:
		return v.Extract(width-1, 0)
	case signed:
		return v.SignExtend(width - w)
	}
	return v.ZeroExtend(width - w)
}

// shift applies op to a with a saturating amount sa.
func (s *Solver) shift(sa, a z3.BV, apply func(a, n z3.BV) z3.BV) z3.BV {
	w := a.Sort().BVSize()
	saw := sa.Sort().BVSize()
	if saw <= w {
		return apply(a, resize(sa, w, false))
	}
	inRange := sa.ULT(s.bv(uint64(w), saw))
	return inRange.IfThenElse(apply(a, sa.Extract(w-1, 0)), apply(a, s.bv(uint64(w), w))).(z3.BV)
}

// rotate reduces sa modulo the width of a.
func (s *Solver) rotate(sa, a z3.BV, left bool) z3.BV {
	w := a.Sort().BVSize()
	aw := max(w, sa.Sort().BVSize())
	n := resize(resize(sa, aw, false).URem(s.bv(uint64(w), aw)), w, false)
	back := s.bv(uint64(w), w).Sub(n)
	if left {
		return a.Lsh(n).Or(a.URsh(back))
	}
	return a.URsh(n).Or(a.Lsh(back))
}

func (s *Solver) convertAll(children []*symexpr.Node, cache map[*symexpr.Node]z3.Value) ([]z3.Value, error) {
	res := make([]z3.Value, len(children))
	for i, c := range children {
		v, err := s.convert(c, cache)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func (s *Solver) convert(e *symexpr.Node, cache map[*symexpr.Node]z3.Value) (z3.Value, error) {
	if v, ok := cache[e]; ok {
		return v, nil
	}

	var result z3.Value
	switch {
	case e.IsNumber():
		result = s.ctx.FromBigInt(e.Bits().Big(), s.ctx.BVSort(int(e.NBits())))
	case e.IsVariable():
		sym := s.ctx.BVConst(e.VariableName(), int(e.NBits()))
		s.lastSymbols[e.NameID()] = sym
		result = sym
	case e.IsMemory():
		sort := s.ctx.ArraySort(s.ctx.BVSort(int(e.DomainWidth())), s.ctx.BVSort(int(e.NBits())))
		result = s.ctx.Const(e.VariableName(), sort)
	default:
		args, err := s.convertAll(e.Children(), cache)
		if err != nil {
			return nil, err
		}
		result, err = s.convertInterior(e, args)
		if err != nil {
			return nil, err
		}
	}

	cache[e] = result
	return result, nil
}

func (s *Solver) convertInterior(e *symexpr.Node, args []z3.Value) (z3.Value, error) {
	bvs := make([]z3.BV, 0, len(args))
	for _, a := range args {
		if b, ok := a.(z3.BV); ok {
			bvs = append(bvs, b)
		}
	}
	width := int(e.NBits())
	fold := func(f func(a, b z3.BV) z3.BV) z3.BV {
		res := bvs[0]
		for _, b := range bvs[1:] {
			res = f(res, b)
		}
		return res
	}

	switch e.Op() {
	case symexpr.OP_ADD:
		return fold(func(a, b z3.BV) z3.BV { return a.Add(b) }), nil
	case symexpr.OP_AND:
		return fold(func(a, b z3.BV) z3.BV { return a.And(b) }), nil
	case symexpr.OP_OR:
		return fold(func(a, b z3.BV) z3.BV { return a.Or(b) }), nil
	case symexpr.OP_XOR:
		return fold(func(a, b z3.BV) z3.BV { return a.Xor(b) }), nil
	case symexpr.OP_CONCAT:
		return fold(func(a, b z3.BV) z3.BV { return a.Concat(b) }), nil
	case symexpr.OP_UMUL, symexpr.OP_SMUL:
		signed := e.Op() == symexpr.OP_SMUL
		res := resize(bvs[0], width, signed)
		for _, b := range bvs[1:] {
			res = res.Mul(resize(b, width, signed))
		}
		return res, nil

	case symexpr.OP_INVERT:
		return bvs[0].Not(), nil
	case symexpr.OP_NEGATE:
		return bvs[0].Neg(), nil
	case symexpr.OP_NOOP:
		return args[0], nil

	case symexpr.OP_EXTRACT:
		begin := int(e.Child(0).ToUint64())
		end := int(e.Child(1).ToUint64())
		return bvs[2].Extract(end-1, begin), nil
	case symexpr.OP_UEXTEND:
		return resize(bvs[1], width, false), nil
	case symexpr.OP_SEXTEND:
		return resize(bvs[1], width, true), nil

	case symexpr.OP_SHL0:
		return s.shift(bvs[0], bvs[1], func(a, n z3.BV) z3.BV { return a.Lsh(n) }), nil
	case symexpr.OP_SHR0:
		return s.shift(bvs[0], bvs[1], func(a, n z3.BV) z3.BV { return a.URsh(n) }), nil
	case symexpr.OP_ASR:
		return s.shift(bvs[0], bvs[1], func(a, n z3.BV) z3.BV { return a.SRsh(n) }), nil
	case symexpr.OP_SHL1:
		return s.shift(bvs[0], bvs[1], func(a, n z3.BV) z3.BV { return a.Not().Lsh(n).Not() }), nil
	case symexpr.OP_SHR1:
		return s.shift(bvs[0], bvs[1], func(a, n z3.BV) z3.BV { return a.Not().URsh(n).Not() }), nil
	case symexpr.OP_ROL:
		return s.rotate(bvs[0], bvs[1], true), nil
	case symexpr.OP_ROR:
		return s.rotate(bvs[0], bvs[1], false), nil

	case symexpr.OP_UDIV, symexpr.OP_SDIV, symexpr.OP_UMOD, symexpr.OP_SMOD:
		signed := e.Op() == symexpr.OP_SDIV || e.Op() == symexpr.OP_SMOD
		w := max(bvs[0].Sort().BVSize(), bvs[1].Sort().BVSize())
		a, b := resize(bvs[0], w, signed), resize(bvs[1], w, signed)
		var r z3.BV
		switch e.Op() {
		case symexpr.OP_UDIV:
			r = a.UDiv(b)
		case symexpr.OP_SDIV:
			r = a.SDiv(b)
		case symexpr.OP_UMOD:
			r = a.URem(b)
		default:
			r = a.SRem(b)
		}
		return resize(r, width, signed), nil

	case symexpr.OP_EQ:
		return s.fromBool(bvs[0].Eq(bvs[1])), nil
	case symexpr.OP_NE:
		return s.fromBool(bvs[0].NE(bvs[1])), nil
	case symexpr.OP_ULT:
		return s.fromBool(bvs[0].ULT(bvs[1])), nil
	case symexpr.OP_ULE:
		return s.fromBool(bvs[0].ULE(bvs[1])), nil
	case symexpr.OP_UGT:
		return s.fromBool(bvs[0].UGT(bvs[1])), nil
	case symexpr.OP_UGE:
		return s.fromBool(bvs[0].UGE(bvs[1])), nil
	case symexpr.OP_SLT:
		return s.fromBool(bvs[0].SLT(bvs[1])), nil
	case symexpr.OP_SLE:
		return s.fromBool(bvs[0].SLE(bvs[1])), nil
	case symexpr.OP_SGT:
		return s.fromBool(bvs[0].SGT(bvs[1])), nil
	case symexpr.OP_SGE:
		return s.fromBool(bvs[0].SGE(bvs[1])), nil
	case symexpr.OP_ZEROP:
		return s.fromBool(bvs[0].Eq(s.bv(0, bvs[0].Sort().BVSize()))), nil

	case symexpr.OP_LSSB, symexpr.OP_MSSB:
		a := bvs[0]
		w := a.Sort().BVSize()
		res := s.bv(0, w)
		for k := 0; k < w; k++ {
			i := k
			if e.Op() == symexpr.OP_LSSB {
				i = w - 1 - k
			}
			set := a.Extract(i, i).Eq(s.bv(1, 1))
			res = set.IfThenElse(s.bv(uint64(i), w), res).(z3.BV)
		}
		return res, nil

	case symexpr.OP_ITE:
		return s.isTrue(bvs[0]).IfThenElse(args[1], args[2]), nil

	case symexpr.OP_READ:
		return args[0].(z3.Array).Select(args[1]), nil
	case symexpr.OP_WRITE:
		return args[0].(z3.Array).Store(args[1], args[2]), nil
	}
	return nil, errors.Errorf("operator %s has no Z3 translation", e.Op())
}
