package main

import (
	"fmt"

	"github.com/borzacchiello/gosem/symexpr"
	"github.com/spf13/cobra"
)

var simplifyCmd = &cobra.Command{
	Use:   "simplify",
	Short: "show the expression simplifier at work.",
	Long: `Build a few expressions over fresh variables and print what the simplifying
	 builder turns them into.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		eb := symexpr.NewExprBuilder()
		f := symexpr.DefaultFormatter()
		f.UseHexadecimal = !getFlag(cmd, "decimal")
		f.ShowWidth = !getFlag(cmd, "no-width")

		x := eb.Variable(32, symexpr.WithComment("x"))
		y := eb.Variable(32, symexpr.WithComment("y"))
		c := func(v uint64) *symexpr.Node { return eb.Integer(32, v) }

		examples := []struct {
			what string
			expr *symexpr.Node
		}{
			{"(x + 3) + 4", eb.Add(eb.Add(x, c(3)), c(4))},
			{"x ^ x", eb.Xor(x, x)},
			{"~~x", eb.Invert(eb.Invert(x))},
			{"x - x", eb.Add(x, eb.Negate(x))},
			{"(y & x) | 0", eb.Or(eb.And(y, x), c(0))},
			{"extract(8, 24, extract(4, 32, x))", eb.Extract(8, 24, eb.Extract(4, 32, x))},
			{"concat(x[16:32], x[0:16])", eb.Concat(eb.Extract(16, 32, x), eb.Extract(0, 16, x))},
			{"(x << 2) << 3", eb.Shl0(c(3), eb.Shl0(c(2), x))},
			{"x == x", eb.Eq(x, x)},
			{"ite(1, x, y)", eb.Ite(eb.Boolean(true), x, y)},
			{"6 * 7", eb.UnsignedMul(c(6), c(7))},
		}
		for _, ex := range examples {
			fmt.Fprintf(out, "%-36s ", ex.what)
			heading.Fprintln(out, ex.expr.Format(f))
		}
		eb.LogStats()
	},
}

func init() {
	rootCmd.AddCommand(simplifyCmd)
	simplifyCmd.Flags().Bool("decimal", false, "print constants in decimal")
	simplifyCmd.Flags().Bool("no-width", false, "do not print widths")
}
