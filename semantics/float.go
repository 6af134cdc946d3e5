package semantics

import "fmt"

// FloatType describes the bit layout of a binary floating point format: the
// significand occupies the low bits, followed by the exponent and the sign.
// The leading significand bit is implicit.
type FloatType struct {
	ExponentBits    uint
	SignificandBits uint
}

func IEEE32() FloatType {
	return FloatType{ExponentBits: 8, SignificandBits: 23}
}

func IEEE64() FloatType {
	return FloatType{ExponentBits: 11, SignificandBits: 52}
}

func (ft FloatType) NBits() uint {
	return ft.ExponentBits + ft.SignificandBits + 1
}

func (ft FloatType) SignBit() uint {
	return ft.ExponentBits + ft.SignificandBits
}

// ExponentRange returns the bit range [begin, end) of the exponent.
func (ft FloatType) ExponentRange() (uint, uint) {
	return ft.SignificandBits, ft.SignificandBits + ft.ExponentBits
}

func (ft FloatType) SignificandRange() (uint, uint) {
	return 0, ft.SignificandBits
}

func (ft FloatType) ExponentBias() uint64 {
	return (uint64(1) << (ft.ExponentBits - 1)) - 1
}

func (ft FloatType) String() string {
	return fmt.Sprintf("float%d(e%d,s%d)", ft.NBits(), ft.ExponentBits, ft.SignificandBits)
}
