package semantics

import (
	"github.com/borzacchiello/gosem/symexpr"
)

// Formatter controls how states and values are printed.
type Formatter struct {
	RegDict *RegisterDictionary

	// SuppressInitialValues hides registers whose value is commented with the
	// register name followed by "_0".
	SuppressInitialValues bool

	// LinePrefix starts every line of multi-line output.
	LinePrefix        string
	IndentationSuffix string
	ShowProperties    bool

	// Expr formats symbolic values.
	Expr *symexpr.Formatter
}

func NewFormatter() *Formatter {
	return &Formatter{
		IndentationSuffix: "  ",
		ShowProperties:    true,
		Expr:              symexpr.DefaultFormatter(),
	}
}

// Indent appends the indentation suffix to the line prefix and returns a
// function restoring it:
//
//	defer f.Indent()()
func (f *Formatter) Indent() func() {
	old := f.LinePrefix
	f.LinePrefix = old + f.IndentationSuffix
	return func() { f.LinePrefix = old }
}
