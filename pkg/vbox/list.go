package vbox

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	reVMNameUUID  = regexp.MustCompile(`^"(.*)"\s*(?:\{[0-9a-fA-F-]*\})?`)
	reLongNameRow = regexp.MustCompile(`^Name:\s+(.+)$`)
)

// ListMachines asks VBoxManage for the registered machines and returns their names in
// the order the tool printed them
func ListMachines(ctx context.Context, runner Runner, long bool) ([]string, error) {
	logger := zerolog.Ctx(ctx)

	args := []string{"list", "vms"}
	if long {
		args = append(args, "--long")
	}

	out, err := runner.Run(ctx, args...)
	if err != nil {
		return nil, errors.Errorf("listing machines: %w", err)
	}

	names := ParseMachineList(out)
	logger.Debug().Int("count", len(names)).Bool("long", long).Msg("Listed machines")

	return names, nil
}

// ParseMachineList extracts the display names from `list vms` output. It accepts the
// plain one-record-per-line form and the long form, where a machine block starts at an
// unindented `Name:` row (or a quoted `"name" {uuid}` row) and may contain blank lines
// and nested `Name:` rows for shared folders and snapshots.
func ParseMachineList(out string) []string {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")

	names := []string{}
	if isPlainList(lines) {
		for _, line := range lines {
			if m := reVMNameUUID.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				names = append(names, m[1])
			}
		}
		return names
	}

	for _, line := range lines {
		if name, ok := machineHeader(line); ok {
			names = append(names, name)
		}
	}
	return names
}

// isPlainList reports whether every non-empty line is a `"name" {uuid}` record
func isPlainList(lines []string) bool {
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !reVMNameUUID.MatchString(line) {
			return false
		}
	}
	return true
}

// machineHeader returns the machine name when line opens a long-form block. Shared
// folder rows (`Name: 'share', Host path: ...`) and snapshot rows
// (`Name: base (UUID: ...)`) are not headers.
func machineHeader(line string) (string, bool) {
	if line == "" || line[0] == ' ' || line[0] == '\t' {
		return "", false
	}
	line = strings.TrimRight(line, " \t")

	if m := reVMNameUUID.FindStringSubmatch(line); m != nil {
		return m[1], true
	}

	m := reLongNameRow.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if strings.HasPrefix(name, "'") || strings.Contains(name, "(UUID:") {
		return "", false
	}
	return name, true
}
