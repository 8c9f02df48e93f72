package commands

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/vboxnet/pkg/report"
	"github.com/walteh/vboxnet/pkg/vbox"
	"gitlab.com/tozd/go/errors"
)

var reportGroup = &cobra.Group{
	ID:    "report",
	Title: "Network Reports",
}

var toolGroup = &cobra.Group{
	ID:    "tool",
	Title: "Tooling",
}

// rootOptions holds the persistent flags and the state PersistentPreRunE derives from them
type rootOptions struct {
	debug      bool
	vboxmanage string
	output     string
	noColor    bool
	longList   bool
	showNone   bool

	runner    vbox.Runner
	inspector *vbox.Inspector
	format    report.Format
}

// RootCmd builds the vboxnet command tree
func RootCmd() *cobra.Command {
	return newRootCmd(nil)
}

// newRootCmd builds the command tree. A nil runner means VBoxManage is run as a subprocess.
func newRootCmd(runner vbox.Runner) *cobra.Command {
	opts := &rootOptions{runner: runner}

	cmd := &cobra.Command{
		Use:   "vboxnet [names...]",
		Short: "Report the network setup of VirtualBox machines",
		Long: `vboxnet asks VBoxManage about every registered virtual machine (or the
machines named on the command line) and prints each machine's power state,
network adapters and NAT port forwarding rules.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, args)
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging")
	flags.StringVar(&opts.vboxmanage, "vboxmanage", "", "VBoxManage command line (default $VBOXMANAGE or VBoxManage)")
	flags.StringVarP(&opts.output, "output", "o", string(report.FormatText), "Output format: text, json or yaml")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored text output")
	flags.BoolVar(&opts.longList, "long-list", false, "Enumerate machines with 'list vms --long'")
	flags.BoolVar(&opts.showNone, "show-none", false, "Include adapters that are not enabled")

	cmd.AddGroup(reportGroup, toolGroup)
	cmd.AddCommand(
		newReportCmd(opts),
		newInspectCmd(opts),
		newListVMsCmd(opts),
		newSchemaCmd(),
	)

	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	level := zerolog.InfoLevel
	if o.debug {
		level = zerolog.DebugLevel
	}

	ctx := zerolog.Ctx(cmd.Context()).With().Str("command", cmd.Name()).Logger().Level(level).WithContext(cmd.Context())
	cmd.SetContext(ctx)

	format, err := report.ParseFormat(o.output)
	if err != nil {
		return errors.Errorf("parsing --output: %w", err)
	}
	o.format = format

	if o.runner == nil {
		runner, err := vbox.NewExecRunner(o.vboxmanage)
		if err != nil {
			return errors.Errorf("setting up VBoxManage: %w", err)
		}
		zerolog.Ctx(ctx).Debug().Strs("tool", runner.Command).Msg("Using VBoxManage")
		o.runner = runner
	}
	o.inspector = vbox.NewInspector(o.runner)

	return nil
}

func (o *rootOptions) renderOptions(cmd *cobra.Command) report.Options {
	return report.Options{
		Format:   o.format,
		Color:    !o.noColor && isTerminal(cmd),
		ShowNone: o.showNone,
	}
}

func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
