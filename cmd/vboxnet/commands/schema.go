package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/vboxnet/pkg/report"
	"gitlab.com/tozd/go/errors"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the json and yaml reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := report.Schema()
			if err != nil {
				return errors.Errorf("building schema: %w", err)
			}
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(data)); err != nil {
				return errors.Errorf("writing schema: %w", err)
			}
			return nil
		},
		GroupID: toolGroup.ID,
	}
}
