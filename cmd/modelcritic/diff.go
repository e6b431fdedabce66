package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/modelcritic/internal/drift"
)

func newDiffCmd(stdout io.Writer) *cobra.Command {
	var failOnDrift bool
	cmd := &cobra.Command{
		Use:   "diff <old-export> <new-export>",
		Short: "Compare two exported audit results",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(args[0], args[1], failOnDrift, stdout)
		},
	}
	cmd.Flags().BoolVar(&failOnDrift, "fail-on-drift", false, "Exit 2 when the results differ")
	return cmd
}

func runDiff(oldPath, newPath string, failOnDrift bool, stdout io.Writer) error {
	older, err := drift.LoadFile(oldPath)
	if err != nil {
		return codeError(exitUsage, "loading %s: %s", oldPath, err)
	}
	newer, err := drift.LoadFile(newPath)
	if err != nil {
		return codeError(exitUsage, "loading %s: %s", newPath, err)
	}

	rep, err := drift.Compare(older, newer)
	if err != nil {
		return codeError(exitUnexpected, "comparing results: %s", err)
	}

	summary := rep.Summary()
	fmt.Fprint(stdout, summary)
	if !strings.HasSuffix(summary, "\n") {
		fmt.Fprintln(stdout)
	}
	if !rep.Identical && rep.Patch != "" {
		fmt.Fprintf(stdout, "\n%s", rep.Patch)
	}

	if failOnDrift && !rep.Identical {
		return codeError(exitDrift, "drift detected between %s and %s", oldPath, newPath)
	}
	return nil
}
