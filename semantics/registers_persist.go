package semantics

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Register state schema versions. Version 2 added the register dictionary.
const (
	registerStateV1 = 1
	registerStateV2 = 2
)

// ValueMarshaler is implemented by values that can be persisted.
type ValueMarshaler interface {
	MarshalValue() ([]byte, error)
}

// ValueUnmarshaler is implemented by prototypical values able to rebuild
// persisted values of their domain.
type ValueUnmarshaler interface {
	UnmarshalValue(data []byte) (SValue, error)
}

type registerRecord struct {
	Major  uint            `json:"major"`
	Minor  uint            `json:"minor"`
	Offset uint            `json:"offset"`
	NBits  uint            `json:"nbits"`
	Value  json.RawMessage `json:"value"`
}

type propertyRecord struct {
	Major uint             `json:"major"`
	Minor uint             `json:"minor"`
	Bits  []*bitset.BitSet `json:"bits"`
}

type regdictRecord struct {
	Name      string                        `json:"name"`
	Registers map[string]RegisterDescriptor `json:"registers"`
	Order     []string                      `json:"order"`
}

type registerStateRecord struct {
	Version    int              `json:"version"`
	RegDict    *regdictRecord   `json:"regdict,omitempty"`
	Registers  []registerRecord `json:"registers"`
	Properties []propertyRecord `json:"properties,omitempty"`
}

// Marshal serializes the stored registers, their properties and the
// register dictionary. Values must implement ValueMarshaler.
func (s *RegisterStateGeneric) Marshal() ([]byte, error) {
	rec := registerStateRecord{Version: registerStateV2}
	if s.regdict != nil {
		rec.RegDict = &regdictRecord{
			Name:      s.regdict.name,
			Registers: s.regdict.regs,
			Order:     s.regdict.order,
		}
	}

	itr := s.registers.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		key := k.(regKey)
		for _, p := range v.([]regPair) {
			m, ok := p.value.(ValueMarshaler)
			if !ok {
				return nil, errors.Errorf("values of type %T cannot be persisted", p.value)
			}
			data, err := m.MarshalValue()
			if err != nil {
				return nil, errors.Wrapf(err, "register %d.%d", key.major, key.minor)
			}
			rec.Registers = append(rec.Registers, registerRecord{
				Major: key.major, Minor: key.minor, Offset: p.offset, NBits: p.nbits, Value: data,
			})
		}
	}

	pitr := s.properties.Iterator()
	for !pitr.Done() {
		k, v := pitr.Next()
		key := k.(regKey)
		props := v.(*regProps)
		pr := propertyRecord{Major: key.major, Minor: key.minor, Bits: make([]*bitset.BitSet, nIOProperties)}
		for i := range props {
			pr.Bits[i] = props.get(IOProperty(i))
		}
		rec.Properties = append(rec.Properties, pr)
	}
	return json.Marshal(rec)
}

// Unmarshal replaces the content of the state with a serialized one. Version
// 1 data keeps the current register dictionary.
func (s *RegisterStateGeneric) Unmarshal(data []byte) error {
	var rec registerStateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return errors.Wrap(err, "decoding register state")
	}
	if rec.Version != registerStateV1 && rec.Version != registerStateV2 {
		return errors.Errorf("unsupported register state version %d", rec.Version)
	}
	u, ok := s.protoval.(ValueUnmarshaler)
	if !ok {
		return errors.Errorf("values of type %T cannot be restored", s.protoval)
	}

	restored := NewRegisterStateGeneric(s.protoval, s.regdict)
	restored.merger = s.merger
	if rec.Version >= registerStateV2 && rec.RegDict != nil {
		rd := NewRegisterDictionary(rec.RegDict.Name)
		for _, name := range rec.RegDict.Order {
			desc, ok := rec.RegDict.Registers[name]
			if !ok {
				return errors.Errorf("register %q missing from dictionary", name)
			}
			rd.Insert(name, desc)
		}
		restored.regdict = rd
	}

	for _, r := range rec.Registers {
		v, err := u.UnmarshalValue(r.Value)
		if err != nil {
			return errors.Wrapf(err, "register %d.%d", r.Major, r.Minor)
		}
		if v.Width() != r.NBits {
			return errors.Errorf("register %d.%d: value has %d bits, expected %d", r.Major, r.Minor, v.Width(), r.NBits)
		}
		desc := RegisterDescriptor{Major: r.Major, Minor: r.Minor, Offset: r.Offset, NBits: r.NBits}
		if restored.isPartlyStored(desc) {
			return errors.Errorf("register %s stored twice", desc)
		}
		restored.writeRegister(desc, v, nil)
	}

	for _, pr := range rec.Properties {
		if len(pr.Bits) > int(nIOProperties) {
			return errors.Errorf("register %d.%d: too many properties", pr.Major, pr.Minor)
		}
		var props regProps
		for i, b := range pr.Bits {
			props[i] = b
		}
		restored.properties = restored.properties.Set(regKey{major: pr.Major, minor: pr.Minor}, &props)
	}

	*s = *restored
	return nil
}
