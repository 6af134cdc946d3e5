package symexpr

import (
	"fmt"
	"io"
	"strings"
)

type ShowComments int

const (
	CMT_SILENT  ShowComments = iota // do not show comments
	CMT_AFTER                       // show comments after the node
	CMT_INSTEAD                     // like CMT_AFTER, but show comments instead of variable names
)

// Formatter controls how expressions are printed.
type Formatter struct {
	ShowComments   ShowComments
	DoRename       bool // renumber variables in order of appearance
	AddRenames     bool // when renaming, assign numbers to variables not yet in Renames
	UseHexadecimal bool // print constants in hexadecimal
	MaxDepth       int  // print "..." below this depth; zero means unlimited
	Renames        map[uint64]uint64
	ShowWidth      bool // print widths in square brackets
	ShowFlags      bool // print non-zero flags next to the width

	curDepth int
}

func DefaultFormatter() *Formatter {
	return &Formatter{
		ShowComments:   CMT_INSTEAD,
		AddRenames:     true,
		UseHexadecimal: true,
		Renames:        map[uint64]uint64{},
		ShowWidth:      true,
		ShowFlags:      true,
	}
}

func (f *Formatter) rename(id uint64) uint64 {
	if !f.DoRename {
		return id
	}
	if f.Renames == nil {
		f.Renames = map[uint64]uint64{}
	}
	if r, ok := f.Renames[id]; ok {
		return r
	}
	if !f.AddRenames {
		return id
	}
	r := uint64(len(f.Renames))
	f.Renames[id] = r
	return r
}

func (f *Formatter) attributes(n *Node) string {
	parts := make([]string, 0, 2)
	if f.ShowWidth {
		if n.IsScalar() {
			parts = append(parts, fmt.Sprintf("%d", n.nbits))
		} else {
			parts = append(parts, fmt.Sprintf("%d->%d", n.domainWidth, n.nbits))
		}
	}
	if f.ShowFlags && !n.flags.IsZero() {
		parts = append(parts, n.flags.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (f *Formatter) comment(sb *strings.Builder, n *Node) {
	if n.comment != "" && f.ShowComments != CMT_SILENT {
		sb.WriteString("<" + n.comment + ">")
	}
}

func (f *Formatter) format(sb *strings.Builder, n *Node) {
	if f.MaxDepth > 0 && f.curDepth >= f.MaxDepth {
		sb.WriteString("...")
		return
	}

	switch n.kind {
	case kindConstant:
		if f.UseHexadecimal {
			sb.WriteString(n.bits.Hex())
		} else {
			sb.WriteString(n.bits.Decimal())
		}
		sb.WriteString(f.attributes(n))
		f.comment(sb, n)

	case kindVariable, kindMemory:
		if f.ShowComments == CMT_INSTEAD && n.comment != "" {
			sb.WriteString(n.comment)
		} else {
			prefix := "v"
			if n.kind == kindMemory {
				prefix = "m"
			}
			sb.WriteString(fmt.Sprintf("%s%d", prefix, f.rename(n.name)))
			sb.WriteString(f.attributes(n))
			if f.ShowComments == CMT_AFTER {
				f.comment(sb, n)
			}
		}

	default:
		sb.WriteString("(" + n.op.String())
		sb.WriteString(f.attributes(n))
		f.curDepth++
		for _, c := range n.children {
			sb.WriteString(" ")
			f.format(sb, c)
		}
		f.curDepth--
		sb.WriteString(")")
		f.comment(sb, n)
	}
}

// Format renders n as an S-expression.
func (n *Node) Format(f *Formatter) string {
	sb := strings.Builder{}
	f.format(&sb, n)
	return sb.String()
}

func (n *Node) Print(w io.Writer, f *Formatter) {
	io.WriteString(w, n.Format(f))
}
