// Package concrete implements the concrete domain: every value is a known
// bit-vector, or the data-flow bottom.
package concrete

import (
	"fmt"
	"io"
	"math/big"

	"github.com/borzacchiello/gosem/bitvec"
	"github.com/borzacchiello/gosem/semantics"
	"github.com/borzacchiello/gosem/symexpr"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// SValue is a concrete value. Undefined and unspecified values are zero.
type SValue struct {
	bits    *bitvec.BV
	bottom  bool
	comment string
}

func New(bits *bitvec.BV) *SValue {
	return &SValue{bits: bits}
}

// NewProtoval returns a value usable as prototypical value.
func NewProtoval() *SValue {
	return New(bitvec.Zeros(1))
}

func promote(v semantics.SValue) *SValue {
	res, ok := v.(*SValue)
	if !ok {
		panic(fmt.Sprintf("assert: %T is not a concrete value", v))
	}
	return res
}

// Bits returns the value as a bit-vector. The result must not be modified.
func (v *SValue) Bits() *bitvec.BV {
	return v.bits
}

func (v *SValue) NewUndefined(nbits uint) semantics.SValue {
	return New(bitvec.Zeros(nbits))
}

func (v *SValue) NewUnspecified(nbits uint) semantics.SValue {
	return New(bitvec.Zeros(nbits))
}

func (v *SValue) NewBottom(nbits uint) semantics.SValue {
	return &SValue{bits: bitvec.Zeros(nbits), bottom: true}
}

func (v *SValue) NewNumber(nbits uint, n uint64) semantics.SValue {
	return New(bitvec.MakeFromUint64(n, nbits))
}

func (v *SValue) NewBoolean(b bool) semantics.SValue {
	if b {
		return v.NewNumber(1, 1)
	}
	return v.NewNumber(1, 0)
}

func (v *SValue) Copy(newWidth uint) semantics.SValue {
	bits := v.bits.Copy()
	if newWidth != 0 {
		bits.Resize(newWidth)
	}
	return &SValue{bits: bits, bottom: v.bottom, comment: v.comment}
}

// CreateOptionalMerge returns bottom for different values.
func (v *SValue) CreateOptionalMerge(other semantics.SValue, _ *semantics.Merger, _ symexpr.Solver) (semantics.SValue, bool) {
	o := promote(other)
	if v.bottom {
		return nil, false
	}
	if o.bottom || !v.bits.EqValue(o.bits) || v.bits.Size != o.bits.Size {
		return v.NewBottom(v.Width()), true
	}
	return nil, false
}

func (v *SValue) Width() uint {
	return v.bits.Size
}

func (v *SValue) IsBottom() bool {
	return v.bottom
}

func (v *SValue) IsNumber() bool {
	return !v.bottom
}

func (v *SValue) Number() uint64 {
	if v.bottom || !v.bits.FitInLong() {
		panic(fmt.Sprintf("assert: %s is not a 64-bit number", v))
	}
	return v.bits.AsUint64()
}

func (v *SValue) MayEqual(other semantics.SValue, _ symexpr.Solver) bool {
	o := promote(other)
	if v.bottom || o.bottom {
		return true
	}
	return v.bits.EqValue(o.bits)
}

func (v *SValue) MustEqual(other semantics.SValue, _ symexpr.Solver) bool {
	o := promote(other)
	return !v.bottom && !o.bottom && v.bits.EqValue(o.bits)
}

func (v *SValue) Comment() string {
	return v.comment
}

func (v *SValue) SetComment(c string) {
	v.comment = c
}

func (v *SValue) Print(w io.Writer, _ *semantics.Formatter) {
	io.WriteString(w, v.String())
}

func (v *SValue) String() string {
	s := fmt.Sprintf("%s[%d]", v.bits.Hex(), v.bits.Size)
	if v.bottom {
		s = fmt.Sprintf("bottom[%d]", v.bits.Size)
	}
	if v.comment != "" {
		s += "<" + v.comment + ">"
	}
	return s
}

type valueRecord struct {
	NBits   uint   `json:"nbits"`
	Value   string `json:"value,omitempty"`
	Bottom  bool   `json:"bottom,omitempty"`
	Comment string `json:"comment,omitempty"`
}

func (v *SValue) MarshalValue() ([]byte, error) {
	rec := valueRecord{NBits: v.bits.Size, Bottom: v.bottom, Comment: v.comment}
	if !v.bottom {
		rec.Value = v.bits.Hex()
	}
	return json.Marshal(rec)
}

func (v *SValue) UnmarshalValue(data []byte) (semantics.SValue, error) {
	var rec valueRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(err, "decoding concrete value")
	}
	if rec.NBits == 0 {
		return nil, errors.New("concrete value without width")
	}
	if rec.Bottom {
		res := v.NewBottom(rec.NBits)
		res.SetComment(rec.Comment)
		return res, nil
	}
	n, ok := new(big.Int).SetString(rec.Value, 0)
	if !ok {
		return nil, errors.Errorf("invalid concrete value %q", rec.Value)
	}
	res := New(bitvec.MakeFromBigint(n, rec.NBits))
	res.comment = rec.Comment
	return res, nil
}
