package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/vboxnet/pkg/report"
	"github.com/walteh/vboxnet/pkg/vbox"
	"gitlab.com/tozd/go/errors"
)

func newReportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report [names...]",
		Short: "Report every machine, or the named ones",
		Long: `Enumerate the registered machines and print the status, network adapters
and port forwarding rules of each. This is also what vboxnet does without a
subcommand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, args)
		},
		GroupID: reportGroup.ID,
	}
}

func newInspectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <name>...",
		Short: "Report the named machines without enumerating",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspectAndRender(cmd, opts, args)
		},
		GroupID: reportGroup.ID,
	}
}

// runReport enumerates the machines unless names were given, then inspects each one.
// Enumeration failure ends the run; inspection problems only become report warnings.
func runReport(cmd *cobra.Command, opts *rootOptions, names []string) error {
	if len(names) == 0 {
		listed, err := opts.inspector.ListMachines(cmd.Context(), opts.longList)
		if err != nil {
			if errors.Is(err, vbox.ErrToolNotFound) {
				return errors.Errorf("enumerating machines (is VirtualBox installed? set --vboxmanage or VBOXMANAGE): %w", err)
			}
			return errors.Errorf("enumerating machines: %w", err)
		}
		names = listed
	}

	return inspectAndRender(cmd, opts, names)
}

func inspectAndRender(cmd *cobra.Command, opts *rootOptions, names []string) error {
	ctx := cmd.Context()
	zerolog.Ctx(ctx).Debug().Strs("machines", names).Msg("Inspecting machines")

	reports := make([]*vbox.MachineReport, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("inspecting %s: %w", name, err)
		}
		reports = append(reports, opts.inspector.Inspect(ctx, name))
	}

	if err := report.Render(cmd.OutOrStdout(), reports, opts.renderOptions(cmd)); err != nil {
		return errors.Errorf("rendering report: %w", err)
	}
	return nil
}
