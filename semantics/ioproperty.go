package semantics

import "strings"

// IOProperty records how a location was accessed.
type IOProperty uint

const (
	IO_READ IOProperty = iota
	IO_WRITE
	IO_INIT
	IO_READ_BEFORE_WRITE
	IO_READ_AFTER_WRITE
	IO_READ_UNINITIALIZED
	nIOProperties
)

var ioPropertyNames = [nIOProperties]string{
	"read", "write", "init", "rbw", "raw", "uninit",
}

func (p IOProperty) String() string {
	if p < nIOProperties {
		return ioPropertyNames[p]
	}
	return "unknown"
}

// IOPropertySet is a set of IOProperty values.
type IOPropertySet uint

func NewIOPropertySet(props ...IOProperty) IOPropertySet {
	var s IOPropertySet
	for _, p := range props {
		s = s.Insert(p)
	}
	return s
}

func (s IOPropertySet) Exists(p IOProperty) bool {
	return s&(1<<p) != 0
}

func (s IOPropertySet) Insert(p IOProperty) IOPropertySet {
	return s | (1 << p)
}

func (s IOPropertySet) Erase(p IOProperty) IOPropertySet {
	return s &^ (1 << p)
}

func (s IOPropertySet) Union(o IOPropertySet) IOPropertySet {
	return s | o
}

func (s IOPropertySet) IsEmpty() bool {
	return s == 0
}

func (s IOPropertySet) String() string {
	var parts []string
	for p := IOProperty(0); p < nIOProperties; p++ {
		if s.Exists(p) {
			parts = append(parts, p.String())
		}
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// UpdateReadProperties returns the properties of a location after a read.
func (s IOPropertySet) UpdateReadProperties() IOPropertySet {
	res := s.Insert(IO_READ)
	if s.Exists(IO_WRITE) {
		res = res.Insert(IO_READ_AFTER_WRITE)
	} else {
		res = res.Insert(IO_READ_BEFORE_WRITE)
		if !s.Exists(IO_INIT) {
			res = res.Insert(IO_READ_UNINITIALIZED)
		}
	}
	return res
}
