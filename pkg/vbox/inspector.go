package vbox

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Inspector gathers the status, adapters and forwarding rules of machines. A failing
// VBoxManage call only empties the facet it feeds; Inspect itself never fails.
type Inspector struct {
	runner Runner
}

func NewInspector(runner Runner) *Inspector {
	return &Inspector{runner: runner}
}

// ListMachines lists the registered machine names
func (i *Inspector) ListMachines(ctx context.Context, long bool) ([]string, error) {
	return ListMachines(ctx, i.runner, long)
}

// Inspect builds the report for one machine
func (i *Inspector) Inspect(ctx context.Context, name string) *MachineReport {
	logger := zerolog.Ctx(ctx).With().Str("machine", name).Logger()
	ctx = logger.WithContext(ctx)

	report := &MachineReport{
		Name:     name,
		Status:   StatusUnknown,
		Adapters: map[int]*Adapter{},
		Rules:    []ForwardingRule{},
	}

	warn := func(msg string, err error) {
		logger.Warn().Err(err).Msg(msg)
		if err != nil {
			msg = fmt.Sprintf("%s: %v", msg, err)
		}
		report.Warnings = append(report.Warnings, msg)
	}

	var scanned map[int]*Adapter
	detail, err := i.runner.Run(ctx, "showvminfo", name)
	if err != nil {
		warn("reading machine details", err)
	} else {
		report.Status = ParseStatus(detail)
		scanned = ScanAdapters(ctx, detail)
	}

	dumpOut, err := i.runner.Run(ctx, "showvminfo", name, "--machinereadable")
	if err != nil {
		warn("reading machine-readable details", err)
	} else {
		pairs := ScanMachineReadable(dumpOut)
		dump := NewDump(pairs)
		report.Adapters = MergeAdapters(AdaptersFromDump(dump), scanned)

		if report.Status == StatusUnknown {
			report.Status = StatusFromVMState(dump.Lookup("VMState"))
		}

		rules, ruleWarnings := ForwardingRulesFromPairs(pairs)
		report.Rules = rules
		for _, w := range ruleWarnings {
			warn(w, nil)
		}
	}

	if err != nil && scanned != nil {
		report.Adapters = MergeAdapters(scanned, nil)
	}

	for _, w := range CheckRuleOwners(report) {
		warn(w, nil)
	}

	logger.Debug().
		Str("status", string(report.Status)).
		Int("adapters", len(report.Adapters)).
		Int("rules", len(report.Rules)).
		Msg("Inspected machine")

	return report
}

// CheckRuleOwners reports forwarding rules that do not sit on a NAT adapter. These are
// informational only.
func CheckRuleOwners(report *MachineReport) []string {
	if len(report.Rules) == 0 {
		return nil
	}

	var warnings []string

	hasNAT := false
	for _, a := range report.Adapters {
		if a.Attachment == AttachmentNAT {
			hasNAT = true
			break
		}
	}
	if !hasNAT {
		return append(warnings, fmt.Sprintf("%d forwarding rule(s) but no adapter is attached to NAT", len(report.Rules)))
	}

	for _, rule := range report.Rules {
		if rule.Adapter == 0 {
			continue
		}
		a, ok := report.Adapters[rule.Adapter]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("forwarding rule %q belongs to adapter %d which was not found", rule.Name, rule.Adapter))
			continue
		}
		if a.Attachment != AttachmentNAT {
			warnings = append(warnings, fmt.Sprintf("forwarding rule %q belongs to adapter %d in %s mode", rule.Name, rule.Adapter, a.Attachment))
		}
	}

	return warnings
}
