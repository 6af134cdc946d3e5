package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/borzacchiello/gosem/internal/toyisa"
	"github.com/borzacchiello/gosem/semantics"
	"github.com/borzacchiello/gosem/semantics/concrete"
	"github.com/borzacchiello/gosem/semantics/nullsem"
	"github.com/borzacchiello/gosem/semantics/symbolic"
	"github.com/borzacchiello/gosem/symexpr"
	"github.com/borzacchiello/gosem/symexpr/z3solver"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// r0 is the program input: zero in the concrete domain, a variable in the
// symbolic one.
const demoProgram = `
	mov sp, 0x8000
	mov r1, 0x100
	store [r1], r0
	mov r2, 5
loop:
	load r3, [r1]
	add r3, r2
	store [r1], r3
	sub r2, 1
	jnz loop
	push r3
	pop r4
	hlt
`

var runCmd = &cobra.Command{
	Use:   "run [flags] [program_file]",
	Short: "execute a toy program.",
	Long: `Execute a toy assembly program, or a built-in demonstration program, in
	 one of the semantic domains and print the final machine state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		src := demoProgram
		if len(args) == 1 {
			bytes, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			src = string(bytes)
		}
		prog, err := toyisa.Assemble(src)
		if err != nil {
			return err
		}
		if getFlag(cmd, "list") {
			heading.Fprintln(out, "program:")
			fmt.Fprint(out, prog)
		}

		ops, eb, err := newOperators(getString(cmd, "domain"), getFlag(cmd, "initial"), getFlag(cmd, "z3"))
		if err != nil {
			return err
		}
		m, err := toyisa.NewMachine(ops, prog)
		if err != nil {
			return err
		}
		m.MaxSteps = int(getUint(cmd, "max-steps"))

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = m.Run(ctx)
		switch {
		case err == nil:
			log.Infof("halted after %d steps", m.Steps())
		case errors.Is(err, toyisa.ErrSymbolicIP):
			log.Warnf("stopped after %d steps: %v", m.Steps(), err)
		default:
			return errors.Wrapf(err, "after %d steps", m.Steps())
		}

		f := semantics.NewFormatter()
		f.ShowProperties = getFlag(cmd, "properties")
		if initial := ops.InitialState(); initial != nil {
			heading.Fprintln(out, "initial state:")
			initial.Print(out, f)
		}
		heading.Fprintln(out, "final state:")
		ops.Print(out, f)
		if eb != nil {
			eb.LogStats()
		}
		return nil
	},
}

func newOperators(domain string, initial, useZ3 bool) (semantics.RiscOperators, *symexpr.ExprBuilder, error) {
	rd := toyisa.Registers()
	switch domain {
	case "concrete":
		ops := concrete.NewOperators(rd)
		if initial {
			ops.SetInitialState(concrete.NewState(rd))
		}
		return ops, nil, nil
	case "symbolic":
		eb := symexpr.NewExprBuilder()
		var solver symexpr.Solver
		if useZ3 {
			solver = z3solver.New()
		}
		ops := symbolic.NewOperators(eb, rd, solver)
		if initial {
			ops.SetInitialState(symbolic.NewState(eb, rd))
		}
		return ops, eb, nil
	case "null":
		ops := nullsem.NewOperators(rd)
		if initial {
			ops.SetInitialState(nullsem.NewState(rd))
		}
		return ops, nil, nil
	}
	return nil, nil, errors.Errorf("unknown domain %q", domain)
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("domain", "d", "symbolic", "semantic domain: concrete, symbolic or null")
	runCmd.Flags().Bool("initial", true, "record and print the initial state")
	runCmd.Flags().Bool("z3", false, "decide aliasing and conditions with Z3 (symbolic domain)")
	runCmd.Flags().Bool("list", false, "print the assembled program")
	runCmd.Flags().Bool("properties", false, "print register read/write properties")
	runCmd.Flags().Uint("max-steps", 10000, "stop after this many steps (0 for no limit)")
}
