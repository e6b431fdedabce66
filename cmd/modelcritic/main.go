package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/modelcritic/internal/config"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// Exit codes.
const (
	exitUnexpected = 1
	exitLookup     = 2
	exitDrift      = 2
	exitUsage      = 3
	exitWrite      = 4
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

// codeError returns an exitErr for the given code.
func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ee *exitErr
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		// flag and argument errors from cobra
		os.Exit(exitUsage)
	}
}

// newRootCmd assembles the command tree writing to stdout and stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "modelcritic",
		Short:         "Audit record kinds against the house model contract",
		Long:          "modelcritic inspects every registered record kind (Go models, Django model sources, YAML manifests) and reports conformance findings by severity.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file (default .modelcritic.yml when present)")

	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, codeError(exitUsage, "%s", err)
		}
		return cfg, nil
	}

	root.AddCommand(
		newAuditCmd(loadConfig, stdout, stderr),
		newWatchCmd(loadConfig, stdout, stderr),
		newDiffCmd(stdout),
		newKindsCmd(loadConfig, stdout, stderr),
		newRulesCmd(stdout),
		newVersionCmd(stdout),
	)
	return root
}

type configLoader func() (*config.Config, error)

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "modelcritic %s\n", version)
		},
	}
}
