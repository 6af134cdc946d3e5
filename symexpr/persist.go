package symexpr

import (
	"math/big"
	"strings"

	"github.com/borzacchiello/gosem/bitvec"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	log "github.com/sirupsen/logrus"
)

const encodingVersion = 1

// nodeRecord is the persisted form of one node. The field order is part of
// the format.
type nodeRecord struct {
	NBits       uint   `json:"nbits"`
	DomainWidth uint   `json:"domainWidth"`
	Flags       uint32 `json:"flags"`
	Comment     string `json:"comment,omitempty"`
	Hash        uint64 `json:"hash"`
	Kind        string `json:"kind"`
	Op          string `json:"op,omitempty"`
	Children    []int  `json:"children,omitempty"`
	Value       string `json:"value,omitempty"`
	Name        uint64 `json:"name,omitempty"`
}

type encodedExprs struct {
	Version int          `json:"version"`
	Nodes   []nodeRecord `json:"nodes"`
	Roots   []int        `json:"roots"`
}

var kindNames = map[nodeKind]string{
	kindInterior: "interior",
	kindVariable: "variable",
	kindMemory:   "memory",
	kindConstant: "constant",
}

// Encode serializes expressions, sharing common subexpressions.
func Encode(roots ...*Node) ([]byte, error) {
	index := make(map[*Node]int)
	out := encodedExprs{Version: encodingVersion}
	for _, r := range roots {
		uniqueNodes(r, func(n *Node) {
			if _, ok := index[n]; ok {
				return
			}
			rec := nodeRecord{
				NBits:       n.nbits,
				DomainWidth: n.domainWidth,
				Flags:       n.flags.Pack(),
				Comment:     n.comment,
				Hash:        n.hash,
				Kind:        kindNames[n.kind],
			}
			switch n.kind {
			case kindInterior:
				rec.Op = n.op.String()
				for _, c := range n.children {
					rec.Children = append(rec.Children, index[c])
				}
			case kindConstant:
				rec.Value = n.bits.Hex()
			default:
				rec.Name = n.name
			}
			index[n] = len(out.Nodes)
			out.Nodes = append(out.Nodes, rec)
		})
		out.Roots = append(out.Roots, index[r])
	}
	return json.Marshal(out)
}

// Decode rebuilds expressions serialized by Encode. Hashes are recomputed
// rather than trusted.
func (eb *ExprBuilder) Decode(data []byte) ([]*Node, error) {
	var in encodedExprs
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, errors.Wrap(err, "decoding expressions")
	}
	if in.Version != encodingVersion {
		return nil, errors.Errorf("unsupported expression encoding version %d", in.Version)
	}

	nodes := make([]*Node, 0, len(in.Nodes))
	for i, rec := range in.Nodes {
		n, err := eb.decodeRecord(rec, nodes)
		if err != nil {
			return nil, errors.Wrapf(err, "node %d", i)
		}
		if n.hash != rec.Hash {
			log.Debugf("node %d: stored hash %#x differs from computed %#x", i, rec.Hash, n.hash)
		}
		nodes = append(nodes, n)
	}

	roots := make([]*Node, 0, len(in.Roots))
	for _, r := range in.Roots {
		if r < 0 || r >= len(nodes) {
			return nil, errors.Errorf("root index %d out of range", r)
		}
		roots = append(roots, nodes[r])
	}
	return roots, nil
}

func (eb *ExprBuilder) decodeRecord(rec nodeRecord, prev []*Node) (*Node, error) {
	flags := UnpackFlags(rec.Flags)
	opts := []Option{WithFlags(flags), WithComment(rec.Comment)}

	switch rec.Kind {
	case "constant":
		v, ok := new(big.Int).SetString(strings.TrimPrefix(rec.Value, "0x"), 16)
		if !ok || rec.NBits == 0 {
			return nil, errors.Errorf("invalid constant %q", rec.Value)
		}
		return eb.Constant(bitvec.MakeFromBigint(v, rec.NBits), opts...), nil
	case "variable":
		if rec.NBits == 0 {
			return nil, errors.New("zero-width variable")
		}
		return eb.ExistingVariable(rec.NBits, rec.Name, opts...), nil
	case "memory":
		if rec.NBits == 0 || rec.DomainWidth == 0 {
			return nil, errors.New("zero-width memory")
		}
		return eb.ExistingMemory(rec.DomainWidth, rec.NBits, rec.Name, opts...), nil
	case "interior":
		op, ok := OperatorFromString(rec.Op)
		if !ok {
			return nil, errors.Errorf("unknown operator %q", rec.Op)
		}
		children := make([]*Node, 0, len(rec.Children))
		for _, c := range rec.Children {
			if c < 0 || c >= len(prev) {
				return nil, errors.Errorf("child index %d out of range", c)
			}
			children = append(children, prev[c])
		}
		n, err := eb.decodeInterior(op, children)
		if err != nil {
			return nil, err
		}
		n = eb.NewFlags(n, flags)
		if rec.Comment != "" && n.comment == "" {
			n.comment = rec.Comment
		}
		return n, nil
	}
	return nil, errors.Errorf("unknown node kind %q", rec.Kind)
}

// decodeInterior validates operands and interns the node as stored.
func (eb *ExprBuilder) decodeInterior(op Operator, children []*Node) (n *Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = nil, errors.Errorf("%v", r)
		}
	}()
	checkOperands(op, children)
	return eb.rawInterior(op, children, Flags{}), nil
}
