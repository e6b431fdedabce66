package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/modelcritic/internal/logger"
	"github.com/dshills/modelcritic/internal/manifest"
)

func newKindsCmd(load configLoader, stdout, stderr io.Writer) *cobra.Command {
	var flags auditFlags
	cmd := &cobra.Command{
		Use:   "kinds",
		Short: "Print the extracted kind descriptors as a manifest",
		Long:  "kinds prints every selected descriptor as a multi-document YAML manifest that --manifest can load back, e.g. to snapshot a Django project.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			opts, err := resolveAuditOptions(cfg, flags)
			if err != nil {
				return err
			}
			log := logger.New(cfg, "modelcritic", stderr)
			kinds, _, err := selectKinds(cmd.Context(), opts, log)
			if err != nil {
				return err
			}
			if err := manifest.Encode(stdout, kinds); err != nil {
				return codeError(exitUnexpected, "writing manifest: %s", err)
			}
			return nil
		},
	}
	addSelectionFlags(cmd, &flags)
	return cmd
}
