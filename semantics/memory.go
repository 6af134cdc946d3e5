package semantics

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
)

type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big-endian"
	}
	return "little-endian"
}

// MemoryState maps addresses to values. Addresses are values of the address
// domain, manipulated through addrOps; stored values belong to the value
// domain and are manipulated through valOps.
//
// A byte restricted memory only stores 8-bit cells: wider accesses are split
// by the operators according to the byte order.
type MemoryState interface {
	// Create returns a new empty memory of the same kind.
	Create(addrProtoval, valProtoval SValue) MemoryState
	Clone() MemoryState

	AddrProtoval() SValue
	ValProtoval() SValue
	Merger() *Merger
	SetMerger(m *Merger)
	ByteRestricted() bool
	SetByteRestricted(b bool)
	ByteOrder() ByteOrder
	SetByteOrder(o ByteOrder)

	Clear()

	// ReadMemory returns the value at addr. When nothing is stored there,
	// dflt is stored and returned.
	ReadMemory(addr, dflt SValue, addrOps, valOps RiscOperators) SValue
	// PeekMemory is ReadMemory without side effects.
	PeekMemory(addr, dflt SValue, addrOps, valOps RiscOperators) SValue
	WriteMemory(addr, value SValue, addrOps, valOps RiscOperators)

	// IsStored reports whether a cell is stored at addr.
	IsStored(addr SValue, addrOps RiscOperators) bool

	// Merge merges other into the receiver and reports whether the receiver
	// changed.
	Merge(other MemoryState, addrOps, valOps RiscOperators) bool

	Print(w io.Writer, f *Formatter)
}

type memoryCell struct {
	addr  SValue
	value SValue
	props IOPropertySet
}

// memoryBase holds the settings common to every memory state.
type memoryBase struct {
	addrProtoval   SValue
	valProtoval    SValue
	merger         *Merger
	byteRestricted bool
	byteOrder      ByteOrder
}

func newMemoryBase(addrProtoval, valProtoval SValue) memoryBase {
	assert(addrProtoval != nil && valProtoval != nil, "protovals cannot be nil")
	return memoryBase{
		addrProtoval:   addrProtoval,
		valProtoval:    valProtoval,
		merger:         NewMerger(),
		byteRestricted: true,
		byteOrder:      LittleEndian,
	}
}

func (m *memoryBase) AddrProtoval() SValue     { return m.addrProtoval }
func (m *memoryBase) ValProtoval() SValue      { return m.valProtoval }
func (m *memoryBase) Merger() *Merger          { return m.merger }
func (m *memoryBase) SetMerger(mg *Merger)     { m.merger = mg }
func (m *memoryBase) ByteRestricted() bool     { return m.byteRestricted }
func (m *memoryBase) SetByteRestricted(b bool) { m.byteRestricted = b }
func (m *memoryBase) ByteOrder() ByteOrder     { return m.byteOrder }
func (m *memoryBase) SetByteOrder(o ByteOrder) { m.byteOrder = o }

func (m *memoryBase) checkValue(v SValue) {
	assert(!m.byteRestricted || v.Width() == 8, "byte restricted memory cannot store %d bits", v.Width())
}

// MemoryCellList keeps cells ordered from the most recently written. Reading
// an address combines the matching cell with every newer cell whose address
// may alias it, so it works for symbolic addresses.
type MemoryCellList struct {
	memoryBase
	cells []*memoryCell
}

func NewMemoryCellList(addrProtoval, valProtoval SValue) *MemoryCellList {
	return &MemoryCellList{memoryBase: newMemoryBase(addrProtoval, valProtoval)}
}

func (m *MemoryCellList) Create(addrProtoval, valProtoval SValue) MemoryState {
	return NewMemoryCellList(addrProtoval, valProtoval)
}

// Clone shares the cells, which are never modified in place.
func (m *MemoryCellList) Clone() MemoryState {
	res := *m
	return &res
}

func (m *MemoryCellList) Clear() {
	m.cells = nil
}

// NCells returns the number of stored cells.
func (m *MemoryCellList) NCells() int {
	return len(m.cells)
}

// lookup returns the index of the newest cell at addr, or -1, and the newer
// cells that may alias addr.
func (m *MemoryCellList) lookup(addr SValue, addrOps RiscOperators) (int, []*memoryCell) {
	solver := addrOps.Solver()
	var aliases []*memoryCell
	for i, c := range m.cells {
		if c.addr.MustEqual(addr, solver) {
			return i, aliases
		}
		if m.merger.MemoryAddressesMayAlias && c.addr.MayEqual(addr, solver) {
			aliases = append(aliases, c)
		}
	}
	return -1, aliases
}

func (m *MemoryCellList) readMemory(addr, dflt SValue, addrOps, valOps RiscOperators, commit bool) SValue {
	m.checkValue(dflt)
	idx, aliases := m.lookup(addr, addrOps)

	res := dflt
	if idx >= 0 {
		res = m.cells[idx].value
	}
	for i := len(aliases) - 1; i >= 0; i-- {
		a := aliases[i]
		if a.value.Width() != res.Width() {
			continue
		}
		if m.merger.MemoryMergeDebugging {
			log.Debugf("memory read at %s aliases cell %s", addr, a.addr)
		}
		res = CreateMerged(res, a.value, m.merger, valOps.Solver())
	}

	if !commit {
		return res
	}
	if idx < 0 {
		cell := &memoryCell{addr: addr, value: res, props: NewIOPropertySet(IO_READ, IO_READ_BEFORE_WRITE, IO_READ_UNINITIALIZED)}
		m.cells = append([]*memoryCell{cell}, m.cells...)
	} else {
		old := m.cells[idx]
		cells := make([]*memoryCell, len(m.cells))
		copy(cells, m.cells)
		cells[idx] = &memoryCell{addr: old.addr, value: old.value, props: old.props.UpdateReadProperties()}
		m.cells = cells
	}
	return res
}

func (m *MemoryCellList) ReadMemory(addr, dflt SValue, addrOps, valOps RiscOperators) SValue {
	return m.readMemory(addr, dflt, addrOps, valOps, true)
}

func (m *MemoryCellList) PeekMemory(addr, dflt SValue, addrOps, valOps RiscOperators) SValue {
	return m.readMemory(addr, dflt, addrOps, valOps, false)
}

func (m *MemoryCellList) WriteMemory(addr, value SValue, addrOps, valOps RiscOperators) {
	m.checkValue(value)
	m.writeCell(addr, value, NewIOPropertySet(IO_WRITE), addrOps)
}

func (m *MemoryCellList) writeCell(addr, value SValue, props IOPropertySet, addrOps RiscOperators) {
	solver := addrOps.Solver()
	cells := make([]*memoryCell, 0, len(m.cells)+1)
	cells = append(cells, &memoryCell{addr: addr, value: value, props: props})
	for _, c := range m.cells {
		if c.addr.MustEqual(addr, solver) {
			cells[0].props = cells[0].props.Union(c.props)
			continue
		}
		cells = append(cells, c)
	}
	m.cells = cells
}

func (m *MemoryCellList) IsStored(addr SValue, addrOps RiscOperators) bool {
	idx, _ := m.lookup(addr, addrOps)
	return idx >= 0
}

// Merge merges every cell of other into the receiver, oldest first. Cells
// only present in other are copied.
func (m *MemoryCellList) Merge(other MemoryState, addrOps, valOps RiscOperators) bool {
	o, ok := other.(*MemoryCellList)
	assert(ok, "cannot merge %T into a memory cell list", other)

	changed := false
	solver := valOps.Solver()
	theirCells := o.cells
	for i := len(theirCells) - 1; i >= 0; i-- {
		theirs := theirCells[i]
		idx, _ := m.lookup(theirs.addr, addrOps)
		if idx < 0 {
			m.cells = append([]*memoryCell{theirs}, m.cells...)
			changed = true
			continue
		}
		mine := m.cells[idx]
		value := mine.value
		if merged, ok := mine.value.CreateOptionalMerge(theirs.value, m.merger, solver); ok {
			if m.merger.MemoryMergeDebugging {
				log.Debugf("memory merge at %s: %s and %s", mine.addr, mine.value, theirs.value)
			}
			value = merged
			changed = true
		}
		props := mine.props.Union(theirs.props)
		if props != mine.props {
			changed = true
		}
		if value != mine.value || props != mine.props {
			cells := make([]*memoryCell, len(m.cells))
			copy(cells, m.cells)
			cells[idx] = &memoryCell{addr: mine.addr, value: value, props: props}
			m.cells = cells
		}
	}
	return changed
}

func (m *MemoryCellList) Print(w io.Writer, f *Formatter) {
	for _, c := range m.cells {
		fmt.Fprintf(w, "%saddr=", f.LinePrefix)
		c.addr.Print(w, f)
		fmt.Fprint(w, " value=")
		c.value.Print(w, f)
		if f.ShowProperties && !c.props.IsEmpty() {
			fmt.Fprintf(w, " %s", c.props)
		}
		fmt.Fprintln(w)
	}
}
