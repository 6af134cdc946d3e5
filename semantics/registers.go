package semantics

import (
	"fmt"
	"io"
	"sort"

	"github.com/benbjohnson/immutable"
	"github.com/bits-and-blooms/bitset"
)

// RegisterState stores register values. Reads and writes may address any
// run of bits of a register: the state composes the value from whatever
// pieces it stores using the Extract and Concat operators of ops.
type RegisterState interface {
	Protoval() SValue
	Dictionary() *RegisterDictionary
	Merger() *Merger
	SetMerger(m *Merger)

	// Create returns a new empty state of the same kind.
	Create(protoval SValue, regdict *RegisterDictionary) RegisterState
	Clone() RegisterState

	// Clear forgets every register.
	Clear()
	// Zero stores zero in every register of the dictionary.
	Zero()

	// ReadRegister returns the value of desc. Bits never stored are taken
	// from dflt and stored.
	ReadRegister(desc RegisterDescriptor, dflt SValue, ops RiscOperators) SValue
	// PeekRegister is ReadRegister without side effects.
	PeekRegister(desc RegisterDescriptor, dflt SValue, ops RiscOperators) SValue
	WriteRegister(desc RegisterDescriptor, value SValue, ops RiscOperators)

	// IsStored reports whether every bit of desc has a stored value.
	IsStored(desc RegisterDescriptor) bool

	// Merge merges other into the receiver and reports whether the receiver
	// changed.
	Merge(other RegisterState, ops RiscOperators) bool

	Print(w io.Writer, f *Formatter)
}

// PropertyTracker is implemented by register states recording how each
// register bit was accessed.
type PropertyTracker interface {
	UpdateReadProperties(desc RegisterDescriptor)
	UpdateWriteProperties(desc RegisterDescriptor, props IOPropertySet)
}

type regKey struct {
	major uint
	minor uint
}

type regKeyComparer struct{}

func (c *regKeyComparer) Compare(a, b interface{}) int {
	i, j := a.(regKey), b.(regKey)
	switch {
	case i.major < j.major:
		return -1
	case i.major > j.major:
		return 1
	case i.minor < j.minor:
		return -1
	case i.minor > j.minor:
		return 1
	}
	return 0
}

// regPair is a stored piece of a register: bits [offset, offset+nbits).
type regPair struct {
	offset uint
	nbits  uint
	value  SValue
}

func (p regPair) end() uint {
	return p.offset + p.nbits
}

// regProps holds, for every property, the register bits having it.
type regProps [nIOProperties]*bitset.BitSet

func (p *regProps) clone() *regProps {
	var res regProps
	for i, b := range p {
		if b != nil {
			res[i] = b.Clone()
		}
	}
	return &res
}

func (p *regProps) get(prop IOProperty) *bitset.BitSet {
	if p[prop] == nil {
		return bitset.New(0)
	}
	return p[prop]
}

func bitRange(begin, end uint) *bitset.BitSet {
	b := bitset.New(end)
	for i := begin; i < end; i++ {
		b.Set(i)
	}
	return b
}

// RegisterStateGeneric stores registers as non-overlapping pieces per
// physical register. Storage is persistent, so Clone is O(1).
type RegisterStateGeneric struct {
	protoval SValue
	regdict  *RegisterDictionary
	merger   *Merger

	registers  *immutable.SortedMap // regKey -> []regPair sorted by offset
	properties *immutable.SortedMap // regKey -> *regProps
}

func NewRegisterStateGeneric(protoval SValue, regdict *RegisterDictionary) *RegisterStateGeneric {
	assert(protoval != nil, "protoval cannot be nil")
	return &RegisterStateGeneric{
		protoval:   protoval,
		regdict:    regdict,
		merger:     NewMerger(),
		registers:  immutable.NewSortedMap(&regKeyComparer{}),
		properties: immutable.NewSortedMap(&regKeyComparer{}),
	}
}

func (s *RegisterStateGeneric) Protoval() SValue {
	return s.protoval
}

func (s *RegisterStateGeneric) Dictionary() *RegisterDictionary {
	return s.regdict
}

func (s *RegisterStateGeneric) Merger() *Merger {
	return s.merger
}

func (s *RegisterStateGeneric) SetMerger(m *Merger) {
	s.merger = m
}

func (s *RegisterStateGeneric) Create(protoval SValue, regdict *RegisterDictionary) RegisterState {
	return NewRegisterStateGeneric(protoval, regdict)
}

func (s *RegisterStateGeneric) Clone() RegisterState {
	res := *s
	return &res
}

func (s *RegisterStateGeneric) Clear() {
	s.registers = immutable.NewSortedMap(&regKeyComparer{})
	s.properties = immutable.NewSortedMap(&regKeyComparer{})
}

func (s *RegisterStateGeneric) Zero() {
	s.Clear()
	if s.regdict == nil {
		return
	}
	for _, desc := range s.regdict.Largest() {
		s.writeRegister(desc, s.protoval.NewNumber(desc.NBits, 0), nil)
	}
}

func keyOf(desc RegisterDescriptor) regKey {
	return regKey{major: desc.Major, minor: desc.Minor}
}

func (s *RegisterStateGeneric) pairs(key regKey) []regPair {
	v, ok := s.registers.Get(key)
	if !ok {
		return nil
	}
	return v.([]regPair)
}

func (s *RegisterStateGeneric) setPairs(key regKey, pairs []regPair) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].offset < pairs[j].offset })
	if len(pairs) == 0 {
		s.registers = s.registers.Delete(key)
		return
	}
	s.registers = s.registers.Set(key, pairs)
}

func (s *RegisterStateGeneric) readRegister(desc RegisterDescriptor, dflt SValue, ops RiscOperators, commit bool) SValue {
	assert(!desc.IsEmpty(), "empty register descriptor")
	assert(dflt.Width() == desc.NBits, "default value has %d bits, register %s has %d",
		dflt.Width(), desc, desc.NBits)

	key := keyOf(desc)
	stored := s.pairs(key)

	var (
		pieces []SValue
		filled []regPair
	)
	gap := func(begin, end uint) {
		var v SValue
		if begin == desc.Offset && end == desc.end() {
			v = dflt
		} else {
			v = ops.Extract(dflt, begin-desc.Offset, end-desc.Offset)
		}
		pieces = append(pieces, v)
		filled = append(filled, regPair{offset: begin, nbits: end - begin, value: v})
	}

	pos := desc.Offset
	for _, p := range stored {
		if p.end() <= pos {
			continue
		}
		if p.offset >= desc.end() {
			break
		}
		if p.offset > pos {
			gap(pos, p.offset)
			pos = p.offset
		}
		hi := min(desc.end(), p.end())
		v := p.value
		if pos != p.offset || hi != p.end() {
			v = ops.Extract(p.value, pos-p.offset, hi-p.offset)
		}
		pieces = append(pieces, v)
		pos = hi
	}
	if pos < desc.end() {
		gap(pos, desc.end())
	}

	if commit && len(filled) > 0 {
		all := make([]regPair, 0, len(stored)+len(filled))
		all = append(all, stored...)
		all = append(all, filled...)
		s.setPairs(key, all)
	}

	res := pieces[0]
	for _, p := range pieces[1:] {
		res = ops.Concat(res, p)
	}
	return res
}

func (s *RegisterStateGeneric) ReadRegister(desc RegisterDescriptor, dflt SValue, ops RiscOperators) SValue {
	return s.readRegister(desc, dflt, ops, true)
}

func (s *RegisterStateGeneric) PeekRegister(desc RegisterDescriptor, dflt SValue, ops RiscOperators) SValue {
	return s.readRegister(desc, dflt, ops, false)
}

func (s *RegisterStateGeneric) writeRegister(desc RegisterDescriptor, value SValue, ops RiscOperators) {
	assert(!desc.IsEmpty(), "empty register descriptor")
	assert(value.Width() == desc.NBits, "value has %d bits, register %s has %d",
		value.Width(), desc, desc.NBits)

	key := keyOf(desc)
	stored := s.pairs(key)
	res := make([]regPair, 0, len(stored)+2)
	keep := func(p regPair, begin, end uint) {
		assert(ops != nil, "partial overwrite of %s needs operators", desc)
		v := ops.Extract(p.value, begin-p.offset, end-p.offset)
		res = append(res, regPair{offset: begin, nbits: end - begin, value: v})
	}
	for _, p := range stored {
		if p.end() <= desc.Offset || p.offset >= desc.end() {
			res = append(res, p)
			continue
		}
		if p.offset < desc.Offset {
			keep(p, p.offset, desc.Offset)
		}
		if p.end() > desc.end() {
			keep(p, desc.end(), p.end())
		}
	}
	res = append(res, regPair{offset: desc.Offset, nbits: desc.NBits, value: value})
	s.setPairs(key, res)
}

func (s *RegisterStateGeneric) WriteRegister(desc RegisterDescriptor, value SValue, ops RiscOperators) {
	s.writeRegister(desc, value, ops)
}

func (s *RegisterStateGeneric) IsStored(desc RegisterDescriptor) bool {
	pos := desc.Offset
	for _, p := range s.pairs(keyOf(desc)) {
		if p.end() <= pos {
			continue
		}
		if p.offset > pos {
			return false
		}
		pos = p.end()
		if pos >= desc.end() {
			return true
		}
	}
	return pos >= desc.end()
}

// isPartlyStored reports whether some bit of desc has a stored value.
func (s *RegisterStateGeneric) isPartlyStored(desc RegisterDescriptor) bool {
	for _, p := range s.pairs(keyOf(desc)) {
		if p.end() > desc.Offset && p.offset < desc.end() {
			return true
		}
	}
	return false
}

// StoredRegisters returns a descriptor for every stored piece, ordered by
// register and offset.
func (s *RegisterStateGeneric) StoredRegisters() []RegisterDescriptor {
	var res []RegisterDescriptor
	itr := s.registers.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		key := k.(regKey)
		for _, p := range v.([]regPair) {
			res = append(res, RegisterDescriptor{Major: key.major, Minor: key.minor, Offset: p.offset, NBits: p.nbits})
		}
	}
	return res
}

func (s *RegisterStateGeneric) Merge(other RegisterState, ops RiscOperators) bool {
	o, ok := other.(*RegisterStateGeneric)
	assert(ok, "cannot merge %T into a generic register state", other)

	changed := false
	itr := o.registers.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		key := k.(regKey)
		for _, p := range v.([]regPair) {
			desc := RegisterDescriptor{Major: key.major, Minor: key.minor, Offset: p.offset, NBits: p.nbits}
			if !s.isPartlyStored(desc) {
				s.writeRegister(desc, p.value, ops)
				changed = true
				continue
			}
			mine := s.readRegister(desc, s.protoval.NewUndefined(desc.NBits), ops, true)
			if merged, ok := mine.CreateOptionalMerge(p.value, s.merger, ops.Solver()); ok {
				s.writeRegister(desc, merged, ops)
				changed = true
			}
		}
	}

	pitr := o.properties.Iterator()
	for !pitr.Done() {
		k, v := pitr.Next()
		theirs := v.(*regProps)
		mine := s.props(k.(regKey))
		updated := mine.clone()
		grew := false
		for i := range theirs {
			if theirs[i] == nil {
				continue
			}
			u := updated.get(IOProperty(i)).Union(theirs[i])
			if u.Count() != updated.get(IOProperty(i)).Count() {
				grew = true
			}
			updated[i] = u
		}
		if grew {
			s.properties = s.properties.Set(k, updated)
			changed = true
		}
	}
	return changed
}

func (s *RegisterStateGeneric) props(key regKey) *regProps {
	v, ok := s.properties.Get(key)
	if !ok {
		return &regProps{}
	}
	return v.(*regProps)
}

// Properties returns the properties held by at least one bit of desc.
func (s *RegisterStateGeneric) Properties(desc RegisterDescriptor) IOPropertySet {
	var res IOPropertySet
	for p := IOProperty(0); p < nIOProperties; p++ {
		if s.HasPropertyAny(desc, p) {
			res = res.Insert(p)
		}
	}
	return res
}

func (s *RegisterStateGeneric) HasPropertyAny(desc RegisterDescriptor, prop IOProperty) bool {
	mask := bitRange(desc.Offset, desc.end())
	return mask.Intersection(s.props(keyOf(desc)).get(prop)).Any()
}

func (s *RegisterStateGeneric) HasPropertyAll(desc RegisterDescriptor, prop IOProperty) bool {
	mask := bitRange(desc.Offset, desc.end())
	return mask.Difference(s.props(keyOf(desc)).get(prop)).None()
}

func (s *RegisterStateGeneric) InsertProperties(desc RegisterDescriptor, props IOPropertySet) {
	key := keyOf(desc)
	mask := bitRange(desc.Offset, desc.end())
	p := s.props(key).clone()
	for prop := IOProperty(0); prop < nIOProperties; prop++ {
		if props.Exists(prop) {
			p[prop] = p.get(prop).Union(mask)
		}
	}
	s.properties = s.properties.Set(key, p)
}

func (s *RegisterStateGeneric) EraseProperties(desc RegisterDescriptor, props IOPropertySet) {
	key := keyOf(desc)
	mask := bitRange(desc.Offset, desc.end())
	p := s.props(key).clone()
	for prop := IOProperty(0); prop < nIOProperties; prop++ {
		if props.Exists(prop) {
			p[prop] = p.get(prop).Difference(mask)
		}
	}
	s.properties = s.properties.Set(key, p)
}

// UpdateReadProperties marks desc read. Bits written before are also read
// after write, the others are read before write, and read uninitialized
// when they were not initialized either.
func (s *RegisterStateGeneric) UpdateReadProperties(desc RegisterDescriptor) {
	key := keyOf(desc)
	mask := bitRange(desc.Offset, desc.end())
	p := s.props(key).clone()

	written := p.get(IO_WRITE).Intersection(mask)
	initialized := p.get(IO_INIT).Intersection(mask)

	p[IO_READ] = p.get(IO_READ).Union(mask)
	p[IO_READ_AFTER_WRITE] = p.get(IO_READ_AFTER_WRITE).Union(written)
	p[IO_READ_BEFORE_WRITE] = p.get(IO_READ_BEFORE_WRITE).Union(mask.Difference(written))
	p[IO_READ_UNINITIALIZED] = p.get(IO_READ_UNINITIALIZED).Union(mask.Difference(written.Union(initialized)))
	s.properties = s.properties.Set(key, p)
}

func (s *RegisterStateGeneric) UpdateWriteProperties(desc RegisterDescriptor, props IOPropertySet) {
	s.InsertProperties(desc, props)
}

func (s *RegisterStateGeneric) Print(w io.Writer, f *Formatter) {
	regdict := f.RegDict
	if regdict == nil {
		regdict = s.regdict
	}
	itr := s.registers.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		key := k.(regKey)
		for _, p := range v.([]regPair) {
			desc := RegisterDescriptor{Major: key.major, Minor: key.minor, Offset: p.offset, NBits: p.nbits}
			name := regdict.LookupName(desc)
			if f.SuppressInitialValues && p.value.Comment() == name+"_0" {
				continue
			}
			fmt.Fprintf(w, "%s%s = ", f.LinePrefix, name)
			p.value.Print(w, f)
			if f.ShowProperties {
				if props := s.Properties(desc); !props.IsEmpty() {
					fmt.Fprintf(w, " %s", props)
				}
			}
			fmt.Fprintln(w)
		}
	}
}
