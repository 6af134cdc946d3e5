// Package bitvec implements fixed-width bit-vector constants of arbitrary size.
package bitvec

import (
	"fmt"
	"math/big"
	"strings"
)

var zero = big.NewInt(0)
var one = big.NewInt(1)

// BV is a bit-vector constant. Mutating methods operate in place; operands
// are never modified.
type BV struct {
	Size  uint
	mask  *big.Int
	value *big.Int
}

func assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}

func makeMask(size uint) *big.Int {
	v := new(big.Int).Lsh(one, size)
	return v.Sub(v, one)
}

func wrap(v *big.Int, mask *big.Int) *big.Int {
	if v.Sign() < 0 {
		// two's complement of a negative number, modulo 2^size
		m := new(big.Int).Add(mask, one)
		v.Mod(v, m)
	}
	return v.And(v, mask)
}

// Make builds a bit-vector from a signed value, truncated to size bits.
func Make(value int64, size uint) *BV {
	assert(size > 0, "zero-width bit-vector")
	mask := makeMask(size)
	return &BV{Size: size, mask: mask, value: wrap(big.NewInt(value), mask)}
}

// MakeFromUint64 builds a bit-vector from the low size bits of value.
func MakeFromUint64(value uint64, size uint) *BV {
	assert(size > 0, "zero-width bit-vector")
	mask := makeMask(size)
	v := new(big.Int).SetUint64(value)
	return &BV{Size: size, mask: mask, value: v.And(v, mask)}
}

func MakeFromBigint(value *big.Int, size uint) *BV {
	assert(size > 0, "zero-width bit-vector")
	mask := makeMask(size)
	v := new(big.Int).Set(value)
	return &BV{Size: size, mask: mask, value: wrap(v, mask)}
}

func Zeros(size uint) *BV {
	return MakeFromUint64(0, size)
}

func Ones(size uint) *BV {
	assert(size > 0, "zero-width bit-vector")
	mask := makeMask(size)
	return &BV{Size: size, mask: mask, value: new(big.Int).Set(mask)}
}

func (bv *BV) checkSize(o *BV) {
	assert(bv.Size == o.Size, "different sizes %d and %d", bv.Size, o.Size)
}

func (bv *BV) IsNegative() bool {
	return bv.value.Bit(int(bv.Size)-1) == 1
}

func (bv *BV) IsZero() bool {
	return bv.value.Sign() == 0
}

func (bv *BV) IsOne() bool {
	return bv.value.Cmp(one) == 0
}

func (bv *BV) HasAllBitsSet() bool {
	return bv.value.Cmp(bv.mask) == 0
}

// Bit returns bit i (0 is the least significant bit).
func (bv *BV) Bit(i uint) bool {
	return bv.value.Bit(int(i)) == 1
}

func (bv *BV) Copy() *BV {
	return &BV{
		Size:  bv.Size,
		mask:  new(big.Int).Set(bv.mask),
		value: new(big.Int).Set(bv.value),
	}
}

// Big returns a copy of the unsigned value.
func (bv *BV) Big() *big.Int {
	return new(big.Int).Set(bv.value)
}

// SignedBig returns a copy of the value interpreted in two's complement.
func (bv *BV) SignedBig() *big.Int {
	v := new(big.Int).Set(bv.value)
	if bv.IsNegative() {
		m := new(big.Int).Add(bv.mask, one)
		v.Sub(v, m)
	}
	return v
}

func (bv *BV) String() string {
	return fmt.Sprintf("<BV%d 0x%x>", bv.Size, bv.value)
}

// Hex formats the value with leading zeros to the full width of the vector.
func (bv *BV) Hex() string {
	digits := int((bv.Size + 3) / 4)
	s := bv.value.Text(16)
	if len(s) < digits {
		s = strings.Repeat("0", digits-len(s)) + s
	}
	return "0x" + s
}

// Decimal formats the unsigned value in base 10.
func (bv *BV) Decimal() string {
	return bv.value.Text(10)
}

func (bv *BV) FitInLong() bool {
	return bv.value.BitLen() <= 64
}

func (bv *BV) AsUint64() uint64 {
	// if it does not `FitInLong`, only the low 64 bits are returned
	if bv.FitInLong() {
		return bv.value.Uint64()
	}
	low := new(big.Int).And(bv.value, makeMask(64))
	return low.Uint64()
}

func (bv *BV) AsInt64() int64 {
	if !bv.IsNegative() {
		return int64(bv.AsUint64())
	}
	return bv.SignedBig().Int64()
}

func (bv *BV) Not() {
	bv.value.Not(bv.value)
	bv.value.And(bv.value, bv.mask)
}

func (bv *BV) Neg() {
	bv.value.Neg(bv.value)
	bv.value = wrap(bv.value, bv.mask)
}

func (bv *BV) Add(o *BV) {
	bv.checkSize(o)
	bv.value.Add(bv.value, o.value)
	bv.value.And(bv.value, bv.mask)
}

func (bv *BV) Sub(o *BV) {
	bv.checkSize(o)
	bv.value.Sub(bv.value, o.value)
	bv.value = wrap(bv.value, bv.mask)
}

func (bv *BV) Mul(o *BV) {
	bv.checkSize(o)
	bv.value.Mul(bv.value, o.value)
	bv.value.And(bv.value, bv.mask)
}

func (bv *BV) UDiv(o *BV) {
	bv.checkSize(o)
	assert(!o.IsZero(), "division by zero")
	bv.value.Quo(bv.value, o.value)
}

func (bv *BV) URem(o *BV) {
	bv.checkSize(o)
	assert(!o.IsZero(), "division by zero")
	bv.value.Rem(bv.value, o.value)
}

// SDiv truncates towards zero.
func (bv *BV) SDiv(o *BV) {
	bv.checkSize(o)
	assert(!o.IsZero(), "division by zero")
	c1 := bv.SignedBig()
	c2 := o.SignedBig()
	bv.value = wrap(c1.Quo(c1, c2), bv.mask)
}

// SRem takes the sign of the dividend.
func (bv *BV) SRem(o *BV) {
	bv.checkSize(o)
	assert(!o.IsZero(), "division by zero")
	c1 := bv.SignedBig()
	c2 := o.SignedBig()
	bv.value = wrap(c1.Rem(c1, c2), bv.mask)
}

func (bv *BV) And(o *BV) {
	bv.checkSize(o)
	bv.value.And(bv.value, o.value)
}

func (bv *BV) Or(o *BV) {
	bv.checkSize(o)
	bv.value.Or(bv.value, o.value)
}

func (bv *BV) Xor(o *BV) {
	bv.checkSize(o)
	bv.value.Xor(bv.value, o.value)
}

func (bv *BV) AShr(n uint) {
	isNeg := bv.IsNegative()
	if n >= bv.Size {
		if isNeg {
			bv.value.Set(bv.mask)
		} else {
			bv.value.SetInt64(0)
		}
		return
	}
	if n == 0 {
		return
	}

	bv.value.Rsh(bv.value, n)
	if isNeg {
		fill := makeMask(n)
		fill.Lsh(fill, bv.Size-n)
		bv.value.Or(bv.value, fill)
	}
}

func (bv *BV) LShr(n uint) {
	if n >= bv.Size {
		bv.value.SetInt64(0)
		return
	}
	bv.value.Rsh(bv.value, n)
}

func (bv *BV) Shl(n uint) {
	if n >= bv.Size {
		bv.value.SetInt64(0)
		return
	}
	bv.value.Lsh(bv.value, n)
	bv.value.And(bv.value, bv.mask)
}

func (bv *BV) Rol(n uint) {
	n %= bv.Size
	if n == 0 {
		return
	}
	high := new(big.Int).Rsh(bv.value, bv.Size-n)
	bv.value.Lsh(bv.value, n)
	bv.value.Or(bv.value, high)
	bv.value.And(bv.value, bv.mask)
}

func (bv *BV) Ror(n uint) {
	n %= bv.Size
	if n == 0 {
		return
	}
	bv.Rol(bv.Size - n)
}

// Concat appends o as the low-order bits: the receiver becomes the
// high-order part of the result.
func (bv *BV) Concat(o *BV) {
	bv.value.Lsh(bv.value, o.Size)
	bv.value.Or(bv.value, o.value)
	bv.Size += o.Size
	bv.mask = makeMask(bv.Size)
}

// Extract keeps bits [begin, end).
func (bv *BV) Extract(begin, end uint) {
	assert(begin < end && end <= bv.Size, "invalid extract [%d,%d) of %d bits", begin, end, bv.Size)
	bv.value.Rsh(bv.value, begin)
	bv.Size = end - begin
	bv.mask = makeMask(bv.Size)
	bv.value.And(bv.value, bv.mask)
}

// Slice returns bits [begin, end) as a new vector.
func (bv *BV) Slice(begin, end uint) *BV {
	res := bv.Copy()
	res.Extract(begin, end)
	return res
}

func (bv *BV) ZExt(bits uint) {
	bv.Size += bits
	bv.mask = makeMask(bv.Size)
}

func (bv *BV) SExt(bits uint) {
	if !bv.IsNegative() {
		bv.ZExt(bits)
		return
	}

	newBits := makeMask(bits)
	newBits.Lsh(newBits, bv.Size)
	bv.value.Or(bv.value, newBits)

	bv.Size += bits
	bv.mask = makeMask(bv.Size)
}

// Resize zero-extends or truncates at the high end.
func (bv *BV) Resize(size uint) {
	switch {
	case size > bv.Size:
		bv.ZExt(size - bv.Size)
	case size < bv.Size:
		bv.Extract(0, size)
	}
}

// SignResize sign-extends or truncates at the high end.
func (bv *BV) SignResize(size uint) {
	switch {
	case size > bv.Size:
		bv.SExt(size - bv.Size)
	case size < bv.Size:
		bv.Extract(0, size)
	}
}

// LeastSignificantSetBit returns the index of the lowest set bit.
func (bv *BV) LeastSignificantSetBit() (uint, bool) {
	if bv.IsZero() {
		return 0, false
	}
	return bv.value.TrailingZeroBits(), true
}

// MostSignificantSetBit returns the index of the highest set bit.
func (bv *BV) MostSignificantSetBit() (uint, bool) {
	if bv.IsZero() {
		return 0, false
	}
	return uint(bv.value.BitLen() - 1), true
}

func (bv *BV) Eq(o *BV) bool {
	bv.checkSize(o)
	return bv.value.Cmp(o.value) == 0
}

// EqValue compares values regardless of width.
func (bv *BV) EqValue(o *BV) bool {
	return bv.value.Cmp(o.value) == 0
}

func (bv *BV) UGt(o *BV) bool {
	bv.checkSize(o)
	return bv.value.Cmp(o.value) > 0
}

func (bv *BV) UGe(o *BV) bool {
	bv.checkSize(o)
	return bv.value.Cmp(o.value) >= 0
}

func (bv *BV) ULt(o *BV) bool {
	return !bv.UGe(o)
}

func (bv *BV) ULe(o *BV) bool {
	return !bv.UGt(o)
}

func (bv *BV) SGt(o *BV) bool {
	bv.checkSize(o)
	if bv.IsNegative() != o.IsNegative() {
		return o.IsNegative()
	}
	return bv.value.Cmp(o.value) > 0
}

func (bv *BV) SGe(o *BV) bool {
	return bv.Eq(o) || bv.SGt(o)
}

func (bv *BV) SLt(o *BV) bool {
	return !bv.SGe(o)
}

func (bv *BV) SLe(o *BV) bool {
	return !bv.SGt(o)
}

// Cmp orders vectors by width, then by unsigned value.
func (bv *BV) Cmp(o *BV) int {
	if bv.Size != o.Size {
		if bv.Size < o.Size {
			return -1
		}
		return 1
	}
	return bv.value.Cmp(o.value)
}

// Bytes returns the big-endian representation padded to the full width.
func (bv *BV) Bytes() []byte {
	n := (bv.Size + 7) / 8
	out := make([]byte, n)
	return bv.value.FillBytes(out)
}
