package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
)

func newListVMsCmd(opts *rootOptions) *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "list-vms",
		Short: "List registered machine names",
		Long:  `Print the name of every registered virtual machine, one per line.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := opts.inspector.ListMachines(cmd.Context(), long || opts.longList)
			if err != nil {
				return errors.Errorf("listing machines: %w", err)
			}

			for _, name := range names {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return errors.Errorf("writing machine name: %w", err)
				}
			}
			return nil
		},
		GroupID: reportGroup.ID,
	}

	cmd.Flags().BoolVar(&long, "long", false, "Use 'list vms --long'")

	return cmd
}
