package toyisa

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/borzacchiello/gosem/semantics"
	"github.com/pkg/errors"
)

// DefaultBase is the load address used by Assemble.
const DefaultBase = 0x1000

// Program is an assembled toy program. Instructions are laid out
// contiguously starting at Base.
type Program struct {
	Base   uint64
	Insns  []*Insn
	Labels map[string]uint64
}

// At returns the instruction at addr.
func (p *Program) At(addr uint64) (*Insn, bool) {
	if addr < p.Base || (addr-p.Base)%InsnSize != 0 {
		return nil, false
	}
	i := (addr - p.Base) / InsnSize
	if i >= uint64(len(p.Insns)) {
		return nil, false
	}
	return p.Insns[i], true
}

// Entry is the address of the first instruction.
func (p *Program) Entry() uint64 {
	return p.Base
}

func (p *Program) String() string {
	var sb strings.Builder
	for _, insn := range p.Insns {
		sb.WriteString(strconv.FormatUint(insn.Addr, 16))
		sb.WriteString(": ")
		sb.WriteString(insn.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Assemble parses src at DefaultBase.
func Assemble(src string) (*Program, error) {
	return AssembleAt(src, DefaultBase, Registers())
}

// label operand resolved once all labels are known
type labelRef struct {
	name  string
	line  int
	value *semantics.ConstantExpr
}

// AssembleAt parses src, one instruction per line, and lays it out at base.
// A line is "[label:] [mnemonic [operand {, operand}]]" and ';' or '#' start
// a comment. Operands are registers of regdict, numbers, labels and memory
// references "[reg]", "[reg+n]", "[reg-n]" or "[n]".
func AssembleAt(src string, base uint64, regdict *semantics.RegisterDictionary) (*Program, error) {
	p := &Program{Base: base, Labels: make(map[string]uint64)}
	var pending []labelRef

	sc := bufio.NewScanner(strings.NewReader(src))
	for lineno := 1; sc.Scan(); lineno++ {
		line := sc.Text()
		if i := strings.IndexAny(line, ";#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if i := strings.Index(line, ":"); i >= 0 {
			label := strings.TrimSpace(line[:i])
			if !isIdent(label) {
				return nil, errors.Errorf("line %d: invalid label %q", lineno, label)
			}
			if _, dup := p.Labels[label]; dup {
				return nil, errors.Errorf("line %d: duplicate label %q", lineno, label)
			}
			p.Labels[label] = base + uint64(len(p.Insns))*InsnSize
			line = strings.TrimSpace(line[i+1:])
		}
		if line == "" {
			continue
		}

		mnemonic, rest := line, ""
		if i := strings.IndexAny(line, " \t"); i >= 0 {
			mnemonic, rest = line[:i], line[i+1:]
		}
		op, ok := lookupOpcode(strings.ToLower(mnemonic))
		if !ok {
			return nil, errors.Errorf("line %d: unknown mnemonic %q", lineno, mnemonic)
		}
		insn := &Insn{Op: op, Addr: base + uint64(len(p.Insns))*InsnSize}
		if rest = strings.TrimSpace(rest); rest != "" {
			for _, s := range strings.Split(rest, ",") {
				s = strings.TrimSpace(s)
				arg, err := parseOperand(s, regdict)
				if err != nil {
					return nil, errors.Wrapf(err, "line %d", lineno)
				}
				if arg == nil {
					c := &semantics.ConstantExpr{NBits: 32}
					pending = append(pending, labelRef{name: s, line: lineno, value: c})
					arg = c
				}
				insn.Args = append(insn.Args, arg)
			}
		}
		if err := checkOperands(insn); err != nil {
			return nil, errors.Wrapf(err, "line %d", lineno)
		}
		p.Insns = append(p.Insns, insn)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	for _, l := range pending {
		addr, ok := p.Labels[l.name]
		if !ok {
			return nil, errors.Errorf("line %d: undefined label %q", l.line, l.name)
		}
		l.value.Value = addr
	}
	return p, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}

func parseNumber(s string) (uint64, bool) {
	neg := strings.HasPrefix(s, "-")
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "-"), 0, 32)
	if err != nil {
		return 0, false
	}
	if neg {
		v = uint64(uint32(-int64(v)))
	}
	return v, true
}

// parseOperand returns a nil expression for labels.
func parseOperand(s string, regdict *semantics.RegisterDictionary) (semantics.Expression, error) {
	if strings.HasPrefix(s, "[") {
		if !strings.HasSuffix(s, "]") {
			return nil, errors.Errorf("unterminated memory operand %q", s)
		}
		addr, err := parseAddress(strings.TrimSpace(s[1:len(s)-1]), regdict)
		if err != nil {
			return nil, err
		}
		return &semantics.MemoryExpr{Address: addr}, nil
	}
	if desc, ok := regdict.Lookup(s); ok {
		return &semantics.RegisterExpr{Name: s, Desc: desc}, nil
	}
	if v, ok := parseNumber(s); ok {
		return &semantics.ConstantExpr{Value: v, NBits: 32}, nil
	}
	if isIdent(s) {
		return nil, nil
	}
	return nil, errors.Errorf("invalid operand %q", s)
}

func parseAddress(s string, regdict *semantics.RegisterDictionary) (semantics.Expression, error) {
	op := semantics.BINOP_ADD
	i := strings.IndexAny(s, "+-")
	if i <= 0 {
		if v, ok := parseNumber(s); ok {
			return &semantics.ConstantExpr{Value: v, NBits: 32}, nil
		}
		return parseBaseRegister(s, regdict)
	}
	if s[i] == '-' {
		op = semantics.BINOP_SUB
	}
	base, err := parseBaseRegister(strings.TrimSpace(s[:i]), regdict)
	if err != nil {
		return nil, err
	}
	v, ok := parseNumber(strings.TrimSpace(s[i+1:]))
	if !ok {
		return nil, errors.Errorf("invalid displacement in %q", s)
	}
	return &semantics.BinaryExpr{Op: op, LHS: base, RHS: &semantics.ConstantExpr{Value: v, NBits: 32}}, nil
}

func parseBaseRegister(s string, regdict *semantics.RegisterDictionary) (*semantics.RegisterExpr, error) {
	desc, ok := regdict.Lookup(s)
	if !ok || desc.NBits != AddressWidth {
		return nil, errors.Errorf("invalid base register %q", s)
	}
	return &semantics.RegisterExpr{Name: s, Desc: desc}, nil
}

func operandWidth(e semantics.Expression) uint {
	switch e := e.(type) {
	case *semantics.RegisterExpr:
		return e.Desc.NBits
	case *semantics.MemoryExpr:
		return e.NBits
	}
	return 32
}

func writesFirstOperand(op Opcode) bool {
	switch op {
	case OP_MOV, OP_ADD, OP_SUB, OP_AND, OP_OR, OP_XOR, OP_SHL, OP_SHR,
		OP_MUL, OP_DIVU, OP_LOAD, OP_STORE, OP_POP:
		return true
	}
	return false
}

func checkOperands(insn *Insn) error {
	if n := opcodeArity[insn.Op]; len(insn.Args) != n {
		return errors.Errorf("%s takes %d operands, got %d", insn.Op, n, len(insn.Args))
	}
	if writesFirstOperand(insn.Op) {
		switch insn.Args[0].(type) {
		case *semantics.RegisterExpr, *semantics.MemoryExpr:
		default:
			return errors.Errorf("%s cannot write to %s", insn.Op, insn.Args[0])
		}
	}
	switch insn.Op {
	case OP_LOAD:
		if _, ok := insn.Args[1].(*semantics.MemoryExpr); !ok {
			return errors.New("load reads from memory")
		}
	case OP_STORE:
		if _, ok := insn.Args[0].(*semantics.MemoryExpr); !ok {
			return errors.New("store writes to memory")
		}
	}

	// memory operands take the width of the other operand
	for i, arg := range insn.Args {
		mem, ok := arg.(*semantics.MemoryExpr)
		if !ok || mem.NBits != 0 {
			continue
		}
		mem.NBits = 32
		if len(insn.Args) == 2 {
			if other, ok := insn.Args[1-i].(*semantics.RegisterExpr); ok {
				mem.NBits = other.Desc.NBits
			}
		}
	}
	return nil
}
