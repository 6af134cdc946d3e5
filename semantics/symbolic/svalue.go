// Package symbolic implements the symbolic domain: values are expressions
// built by a symexpr.ExprBuilder.
package symbolic

import (
	"fmt"
	"io"

	"github.com/borzacchiello/gosem/semantics"
	"github.com/borzacchiello/gosem/symexpr"
	"github.com/pkg/errors"
)

// SValue wraps an expression. Undefined, unspecified and bottom values are
// fresh variables carrying the matching flag.
type SValue struct {
	eb   *symexpr.ExprBuilder
	expr *symexpr.Node
}

func New(eb *symexpr.ExprBuilder, expr *symexpr.Node) *SValue {
	return &SValue{eb: eb, expr: expr}
}

// NewProtoval returns a prototypical value building its expressions with eb.
func NewProtoval(eb *symexpr.ExprBuilder) *SValue {
	return New(eb, eb.Integer(1, 0))
}

func promote(v semantics.SValue) *SValue {
	res, ok := v.(*SValue)
	if !ok {
		panic(fmt.Sprintf("assert: %T is not a symbolic value", v))
	}
	return res
}

func (v *SValue) Expr() *symexpr.Node {
	return v.expr
}

func (v *SValue) Builder() *symexpr.ExprBuilder {
	return v.eb
}

func (v *SValue) wrap(e *symexpr.Node) *SValue {
	return New(v.eb, e)
}

func (v *SValue) NewUndefined(nbits uint) semantics.SValue {
	return v.wrap(v.eb.Variable(nbits, symexpr.WithFlags(symexpr.Flags{Indeterminate: true})))
}

func (v *SValue) NewUnspecified(nbits uint) semantics.SValue {
	return v.wrap(v.eb.Variable(nbits, symexpr.WithFlags(symexpr.Flags{Unspecified: true})))
}

func (v *SValue) NewBottom(nbits uint) semantics.SValue {
	return v.wrap(v.eb.Variable(nbits, symexpr.WithFlags(symexpr.Flags{Bottom: true})))
}

func (v *SValue) NewNumber(nbits uint, n uint64) semantics.SValue {
	return v.wrap(v.eb.Integer(nbits, n))
}

func (v *SValue) NewBoolean(b bool) semantics.SValue {
	return v.wrap(v.eb.Boolean(b))
}

func (v *SValue) Copy(newWidth uint) semantics.SValue {
	if newWidth == 0 || newWidth == v.expr.NBits() {
		return v.wrap(v.expr)
	}
	return v.wrap(v.eb.UnsignedExtend(newWidth, v.expr))
}

// members returns the alternatives of a SET, or e itself.
func members(e *symexpr.Node) []*symexpr.Node {
	if e.IsOperator(symexpr.OP_SET) {
		return e.Children()
	}
	return []*symexpr.Node{e}
}

func contains(set []*symexpr.Node, e *symexpr.Node) bool {
	for _, m := range set {
		if m.IsEquivalentTo(e) {
			return true
		}
	}
	return false
}

// CreateOptionalMerge merges different values into a SET of alternatives.
// Sets larger than the merger's limit become bottom.
func (v *SValue) CreateOptionalMerge(other semantics.SValue, merger *semantics.Merger, solver symexpr.Solver) (semantics.SValue, bool) {
	o := promote(other)
	if v.IsBottom() {
		return nil, false
	}
	if o.IsBottom() {
		return v.NewBottom(v.Width()), true
	}
	if v.MustEqual(o, solver) {
		return nil, false
	}

	alternatives := members(v.expr)
	grown := false
	for _, m := range members(o.expr) {
		if !contains(alternatives, m) {
			alternatives = append(alternatives, m)
			grown = true
		}
	}
	if !grown {
		return nil, false
	}

	limit := 1
	if merger != nil {
		limit = merger.SetSizeLimit
	}
	if len(alternatives) > limit {
		return v.NewBottom(v.Width()), true
	}
	return v.wrap(v.eb.Set(alternatives...)), true
}

func (v *SValue) Width() uint {
	return v.expr.NBits()
}

func (v *SValue) IsBottom() bool {
	return v.expr.Flags().Bottom
}

func (v *SValue) IsNumber() bool {
	return v.expr.IsNumber() && v.expr.NBits() <= 64
}

func (v *SValue) Number() uint64 {
	return v.expr.ToUint64()
}

func (v *SValue) MayEqual(other semantics.SValue, solver symexpr.Solver) bool {
	return v.eb.MayEqual(v.expr, promote(other).expr, solver)
}

func (v *SValue) MustEqual(other semantics.SValue, solver symexpr.Solver) bool {
	return v.eb.MustEqual(v.expr, promote(other).expr, solver)
}

func (v *SValue) Comment() string {
	return v.expr.Comment()
}

func (v *SValue) SetComment(c string) {
	v.expr.SetComment(c)
}

func (v *SValue) Print(w io.Writer, f *semantics.Formatter) {
	ef := symexpr.DefaultFormatter()
	if f != nil && f.Expr != nil {
		ef = f.Expr
	}
	v.expr.Print(w, ef)
}

func (v *SValue) String() string {
	return v.expr.String()
}

func (v *SValue) MarshalValue() ([]byte, error) {
	return symexpr.Encode(v.expr)
}

func (v *SValue) UnmarshalValue(data []byte) (semantics.SValue, error) {
	roots, err := v.eb.Decode(data)
	if err != nil {
		return nil, err
	}
	if len(roots) != 1 {
		return nil, errors.Errorf("expected one expression, got %d", len(roots))
	}
	return v.wrap(roots[0]), nil
}
