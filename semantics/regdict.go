package semantics

import (
	"fmt"
	"sort"
)

// RegisterDescriptor identifies a run of bits within a physical register.
// Registers sharing Major and Minor overlap, e.g. "ax" is bits [0,16) of
// "eax".
type RegisterDescriptor struct {
	Major  uint
	Minor  uint
	Offset uint
	NBits  uint
}

func (d RegisterDescriptor) IsEmpty() bool {
	return d.NBits == 0
}

func (d RegisterDescriptor) end() uint {
	return d.Offset + d.NBits
}

func (d RegisterDescriptor) sameRegister(o RegisterDescriptor) bool {
	return d.Major == o.Major && d.Minor == o.Minor
}

func (d RegisterDescriptor) String() string {
	return fmt.Sprintf("{%d,%d,%d,%d}", d.Major, d.Minor, d.Offset, d.NBits)
}

// RegisterDictionary maps register names to descriptors.
type RegisterDictionary struct {
	name  string
	regs  map[string]RegisterDescriptor
	order []string
}

func NewRegisterDictionary(name string) *RegisterDictionary {
	return &RegisterDictionary{name: name, regs: make(map[string]RegisterDescriptor)}
}

func (rd *RegisterDictionary) Name() string {
	return rd.name
}

// Insert adds or replaces a register.
func (rd *RegisterDictionary) Insert(name string, desc RegisterDescriptor) {
	assert(name != "", "register name cannot be empty")
	assert(desc.NBits > 0, "register %s has no bits", name)
	if _, ok := rd.regs[name]; !ok {
		rd.order = append(rd.order, name)
	}
	rd.regs[name] = desc
}

func (rd *RegisterDictionary) Lookup(name string) (RegisterDescriptor, bool) {
	d, ok := rd.regs[name]
	return d, ok
}

// LookupName returns the name of desc. Among several names for the same
// descriptor the one inserted first wins. Unnamed descriptors are described
// by their parts.
func (rd *RegisterDictionary) LookupName(desc RegisterDescriptor) string {
	if rd != nil {
		for _, name := range rd.order {
			if rd.regs[name] == desc {
				return name
			}
		}
	}
	return desc.String()
}

// All returns the register names sorted alphabetically.
func (rd *RegisterDictionary) All() []string {
	names := make([]string, len(rd.order))
	copy(names, rd.order)
	sort.Strings(names)
	return names
}

// Largest returns the descriptors not contained in any other register.
func (rd *RegisterDictionary) Largest() []RegisterDescriptor {
	var res []RegisterDescriptor
	for _, name := range rd.order {
		d := rd.regs[name]
		contained := false
		for _, other := range rd.order {
			o := rd.regs[other]
			if o == d || !o.sameRegister(d) {
				continue
			}
			if o.Offset <= d.Offset && o.end() >= d.end() && o.NBits > d.NBits {
				contained = true
				break
			}
		}
		if !contained {
			res = append(res, d)
		}
	}
	return res
}
