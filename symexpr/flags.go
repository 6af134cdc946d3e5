package symexpr

import (
	"fmt"
	"strings"
)

// Reserved flag bits as they appear in the packed representation.
const (
	INDETERMINATE  uint32 = 0x00000001
	UNSPECIFIED    uint32 = 0x00000002
	BOTTOM         uint32 = 0x00000004
	RESERVED_FLAGS uint32 = 0x0000ffff
)

// Flags is the metadata attached to every node. Flags participate in hashing
// and structural equivalence.
//
// Propagation through simplification follows these rules:
//   - Interior: a new interior node has the union of its children's flags
//     plus any flags requested at construction.
//   - Discard: a rewrite that drops a subtree drops that subtree's flags.
//   - Create: a rewrite that produces a value independent of its inputs
//     (for instance xor(x, x) = 0) produces zero flags.
//   - Folding: a constant computed from operands carries the union of the
//     operands' flags, including relational comparisons of identical
//     non-constant operands.
type Flags struct {
	Indeterminate bool
	Unspecified   bool
	Bottom        bool
	// User holds caller-defined bits above RESERVED_FLAGS.
	User uint32
}

func (f Flags) IsZero() bool {
	return f == Flags{}
}

func (f Flags) Union(o Flags) Flags {
	return Flags{
		Indeterminate: f.Indeterminate || o.Indeterminate,
		Unspecified:   f.Unspecified || o.Unspecified,
		Bottom:        f.Bottom || o.Bottom,
		User:          f.User | o.User,
	}
}

// Without returns the flags of f that are not set in o.
func (f Flags) Without(o Flags) Flags {
	return Flags{
		Indeterminate: f.Indeterminate && !o.Indeterminate,
		Unspecified:   f.Unspecified && !o.Unspecified,
		Bottom:        f.Bottom && !o.Bottom,
		User:          f.User &^ o.User,
	}
}

// Pack returns the flags as a single word.
func (f Flags) Pack() uint32 {
	v := f.User &^ RESERVED_FLAGS
	if f.Indeterminate {
		v |= INDETERMINATE
	}
	if f.Unspecified {
		v |= UNSPECIFIED
	}
	if f.Bottom {
		v |= BOTTOM
	}
	return v
}

func UnpackFlags(v uint32) Flags {
	return Flags{
		Indeterminate: v&INDETERMINATE != 0,
		Unspecified:   v&UNSPECIFIED != 0,
		Bottom:        v&BOTTOM != 0,
		User:          v &^ RESERVED_FLAGS,
	}
}

func (f Flags) String() string {
	parts := []string{}
	if f.Indeterminate {
		parts = append(parts, "INDET")
	}
	if f.Unspecified {
		parts = append(parts, "UNSPEC")
	}
	if f.Bottom {
		parts = append(parts, "BOTTOM")
	}
	if f.User != 0 {
		parts = append(parts, fmt.Sprintf("0x%08x", f.User))
	}
	return strings.Join(parts, ",")
}

// flagRule computes the flags of a simplification result from the operands
// that contributed to it.
type flagRule func(contributors ...*Node) Flags

// unionFlags implements the interior, folding and relational rules.
func unionFlags(contributors ...*Node) Flags {
	res := Flags{}
	for _, c := range contributors {
		res = res.Union(c.flags)
	}
	return res
}

// createdFlags implements the create rule.
func createdFlags(...*Node) Flags {
	return Flags{}
}

var (
	foldingRule    flagRule = unionFlags
	relationalRule flagRule = unionFlags
	createRule     flagRule = createdFlags
)
