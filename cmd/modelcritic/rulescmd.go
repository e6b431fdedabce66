package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/modelcritic/internal/profile"
	"github.com/dshills/modelcritic/internal/rules"
)

func newRulesCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "rules [PROFILE]",
		Short: "List the generic rules and the specialized profiles",
		Long:  "Without arguments, list every generic rule and specialized profile. With a profile name, describe only that profile.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				p, err := profile.Get(args[0])
				if err != nil {
					return codeError(exitUsage, "%s", err)
				}
				writeProfile(stdout, p)
				return nil
			}
			writeRules(stdout)
			return nil
		},
	}
}

func writeRules(w io.Writer) {
	fmt.Fprintln(w, "Generic rules (applied to every kind, in order):")
	for i, r := range rules.GenericRules() {
		fmt.Fprintf(w, "%2d. %s\n", i+1, r.ID)
	}

	fmt.Fprintf(w, "\nSpecialized profiles (%s):\n", rules.RuleSpecialized)
	for _, name := range profile.Names() {
		p, _ := profile.Lookup(name)
		fmt.Fprintln(w)
		writeProfile(w, p)
	}
}

func writeProfile(w io.Writer, p *profile.Profile) {
	fmt.Fprint(w, p.Describe())
	required, disputed := profile.Constants(p.Name)
	if len(required) > 0 {
		fmt.Fprintf(w, "Constants: %s\n", strings.Join(required, ", "))
	}
	if len(disputed) > 0 {
		fmt.Fprintf(w, "Constants (one variant only): %s\n", strings.Join(disputed, ", "))
	}
	if states := profile.StateMethods(p.Name); len(states) > 0 {
		fmt.Fprintf(w, "State methods: %s\n", strings.Join(states, ", "))
	}
}
