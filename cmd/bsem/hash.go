package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/borzacchiello/gosem/hasher"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash [flags] [string...]",
	Short: "print message digests.",
	Long: `Print the digest of each string argument, or of standard input when no
	 strings are given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if getFlag(cmd, "list") {
			fmt.Fprintln(out, strings.Join(hasher.Names(), "\n"))
			return nil
		}
		h, err := hasher.New(getString(cmd, "algorithm"))
		if err != nil {
			return err
		}
		if len(args) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return errors.Wrap(err, "reading standard input")
			}
			h.Insert(data)
			fmt.Fprintf(out, "%s  -\n", h)
			return nil
		}
		for _, arg := range args {
			h.Clear()
			h.InsertString(arg)
			fmt.Fprintf(out, "%s  %q\n", h, arg)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
	hashCmd.Flags().StringP("algorithm", "a", "sha256", "digest algorithm")
	hashCmd.Flags().Bool("list", false, "list the supported algorithms")
}
