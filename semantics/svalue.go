package semantics

import (
	"io"

	"github.com/borzacchiello/gosem/symexpr"
)

// SValue is a value of fixed width in some domain. Values are never modified
// once built, apart from their comment, and are shared freely between states.
//
// The New* methods are virtual constructors: they build a value of the same
// domain as the receiver, whose own content is irrelevant.
type SValue interface {
	// NewUndefined builds a value whose content is unknown.
	NewUndefined(nbits uint) SValue
	// NewUnspecified builds a value the architecture leaves unspecified, such
	// as flags after some instructions.
	NewUnspecified(nbits uint) SValue
	// NewBottom builds the data-flow bottom.
	NewBottom(nbits uint) SValue
	// NewNumber builds a constant from the low nbits of v.
	NewNumber(nbits uint, v uint64) SValue
	NewBoolean(b bool) SValue

	// Copy returns the value zero-extended or truncated to newWidth bits. A
	// zero newWidth keeps the width.
	Copy(newWidth uint) SValue

	// CreateOptionalMerge returns the merge of the receiver and other, or false
	// when the receiver already represents both.
	CreateOptionalMerge(other SValue, merger *Merger, solver symexpr.Solver) (SValue, bool)

	Width() uint
	IsBottom() bool
	IsNumber() bool
	// Number returns the value of a concrete value of at most 64 bits.
	Number() uint64

	MayEqual(other SValue, solver symexpr.Solver) bool
	MustEqual(other SValue, solver symexpr.Solver) bool

	Comment() string
	SetComment(c string)

	Print(w io.Writer, f *Formatter)
	String() string
}

// CreateMerged returns the merge of a and b, or a copy of a when no merge is
// necessary.
func CreateMerged(a, b SValue, merger *Merger, solver symexpr.Solver) SValue {
	if merged, ok := a.CreateOptionalMerge(b, merger, solver); ok {
		return merged
	}
	return a.Copy(0)
}

// IsTrue reports whether v is concrete and non-zero.
func IsTrue(v SValue) bool {
	return v.IsNumber() && v.Number() != 0
}

// IsFalse reports whether v is concrete and zero.
func IsFalse(v SValue) bool {
	return v.IsNumber() && v.Number() == 0
}
