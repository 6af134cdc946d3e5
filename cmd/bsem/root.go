package main

import (
	"os"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bsem",
	Short: "Instruction semantics toolbox.",
	Long:  "Run toy programs in the concrete, symbolic and null semantic domains.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if getFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		out, ok := cmd.OutOrStdout().(*os.File)
		if getFlag(cmd, "no-color") || !ok || !term.IsTerminal(int(out.Fd())) {
			color.NoColor = true
		}
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. It only needs to happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable coloured output")
}
