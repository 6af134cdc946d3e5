package semantics

import (
	"fmt"
	"io"

	"github.com/benbjohnson/immutable"
	log "github.com/sirupsen/logrus"
)

type addressComparer struct{}

func (c *addressComparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}

// MemoryCellMap stores cells at concrete addresses in a persistent sorted
// map. Reads from non-concrete addresses return the default without storing
// it and writes to them are dropped.
type MemoryCellMap struct {
	memoryBase
	cells *immutable.SortedMap // uint64 -> *memoryCell
}

func NewMemoryCellMap(addrProtoval, valProtoval SValue) *MemoryCellMap {
	return &MemoryCellMap{
		memoryBase: newMemoryBase(addrProtoval, valProtoval),
		cells:      immutable.NewSortedMap(&addressComparer{}),
	}
}

func (m *MemoryCellMap) Create(addrProtoval, valProtoval SValue) MemoryState {
	return NewMemoryCellMap(addrProtoval, valProtoval)
}

func (m *MemoryCellMap) Clone() MemoryState {
	res := *m
	return &res
}

func (m *MemoryCellMap) Clear() {
	m.cells = immutable.NewSortedMap(&addressComparer{})
}

func (m *MemoryCellMap) NCells() int {
	return m.cells.Len()
}

func (m *MemoryCellMap) cell(addr uint64) *memoryCell {
	v, ok := m.cells.Get(addr)
	if !ok {
		return nil
	}
	return v.(*memoryCell)
}

func (m *MemoryCellMap) readMemory(addr, dflt SValue, commit bool) SValue {
	m.checkValue(dflt)
	if !addr.IsNumber() {
		return dflt
	}
	a := addr.Number()
	c := m.cell(a)
	if c == nil {
		if commit {
			m.cells = m.cells.Set(a, &memoryCell{
				addr:  addr,
				value: dflt,
				props: NewIOPropertySet(IO_READ, IO_READ_BEFORE_WRITE, IO_READ_UNINITIALIZED),
			})
		}
		return dflt
	}
	if commit {
		m.cells = m.cells.Set(a, &memoryCell{addr: c.addr, value: c.value, props: c.props.UpdateReadProperties()})
	}
	return c.value
}

func (m *MemoryCellMap) ReadMemory(addr, dflt SValue, _, _ RiscOperators) SValue {
	return m.readMemory(addr, dflt, true)
}

func (m *MemoryCellMap) PeekMemory(addr, dflt SValue, _, _ RiscOperators) SValue {
	return m.readMemory(addr, dflt, false)
}

func (m *MemoryCellMap) WriteMemory(addr, value SValue, _, _ RiscOperators) {
	m.checkValue(value)
	if !addr.IsNumber() {
		log.Debugf("dropping write to non-concrete address %s", addr)
		return
	}
	a := addr.Number()
	props := NewIOPropertySet(IO_WRITE)
	if c := m.cell(a); c != nil {
		props = props.Union(c.props)
	}
	m.cells = m.cells.Set(a, &memoryCell{addr: addr, value: value, props: props})
}

func (m *MemoryCellMap) IsStored(addr SValue, _ RiscOperators) bool {
	return addr.IsNumber() && m.cell(addr.Number()) != nil
}

func (m *MemoryCellMap) Merge(other MemoryState, _, valOps RiscOperators) bool {
	o, ok := other.(*MemoryCellMap)
	assert(ok, "cannot merge %T into a memory cell map", other)

	changed := false
	itr := o.cells.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		theirs := v.(*memoryCell)
		mine := m.cell(k.(uint64))
		if mine == nil {
			m.cells = m.cells.Set(k, theirs)
			changed = true
			continue
		}
		value := mine.value
		if merged, ok := mine.value.CreateOptionalMerge(theirs.value, m.merger, valOps.Solver()); ok {
			if m.merger.MemoryMergeDebugging {
				log.Debugf("memory merge at %#x: %s and %s", k, mine.value, theirs.value)
			}
			value = merged
		}
		props := mine.props.Union(theirs.props)
		if value != mine.value || props != mine.props {
			m.cells = m.cells.Set(k, &memoryCell{addr: mine.addr, value: value, props: props})
			changed = true
		}
	}
	return changed
}

func (m *MemoryCellMap) Print(w io.Writer, f *Formatter) {
	itr := m.cells.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		c := v.(*memoryCell)
		fmt.Fprintf(w, "%s%#x: ", f.LinePrefix, k)
		c.value.Print(w, f)
		if f.ShowProperties && !c.props.IsEmpty() {
			fmt.Fprintf(w, " %s", c.props)
		}
		fmt.Fprintln(w)
	}
}
