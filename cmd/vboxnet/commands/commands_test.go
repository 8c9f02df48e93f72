package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/vboxnet/pkg/report"
	"github.com/walteh/vboxnet/pkg/vbox"
	"github.com/walteh/vboxnet/pkg/vbox/vboxtest"
	"gitlab.com/tozd/go/errors"
)

const testdata = "../../../pkg/vbox/testdata/"

func machinesRunner() *vboxtest.Runner {
	return vboxtest.NewRunner().
		OnFile(testdata+"list_vms.txt", "list", "vms").
		OnFile(testdata+"list_vms_long.txt", "list", "vms", "--long").
		OnFile(testdata+"showvminfo_alpha.txt", "showvminfo", "alpha").
		OnFile(testdata+"showvminfo_alpha_mr.txt", "showvminfo", "alpha", "--machinereadable").
		OnFile(testdata+"showvminfo_beta.txt", "showvminfo", "beta").
		OnFile(testdata+"showvminfo_beta_mr.txt", "showvminfo", "beta", "--machinereadable")
}

func execute(t *testing.T, runner vbox.Runner, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd(runner)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestReport(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		contains  []string
		excludes  []string
		wantCalls [][]string
	}{
		{
			name:     "default command reports every machine",
			args:     nil,
			contains: []string{"VM Name: alpha", "VM Name: beta", "Rule: ssh", "Bridge Adapter: eth0"},
			excludes: []string{"\x1b[", "Mode: none"},
			wantCalls: [][]string{
				{"list", "vms"},
				{"showvminfo", "alpha"},
				{"showvminfo", "alpha", "--machinereadable"},
				{"showvminfo", "beta"},
				{"showvminfo", "beta", "--machinereadable"},
			},
		},
		{
			name:     "report subcommand with names skips enumeration",
			args:     []string{"report", "beta"},
			contains: []string{"VM Name: beta", "Status: powered off"},
			excludes: []string{"VM Name: alpha"},
			wantCalls: [][]string{
				{"showvminfo", "beta"},
				{"showvminfo", "beta", "--machinereadable"},
			},
		},
		{
			name:     "names on the root command",
			args:     []string{"alpha"},
			contains: []string{"VM Name: alpha", "Host-only Adapter: vboxnet0"},
			excludes: []string{"VM Name: beta"},
		},
		{
			name:     "long listing",
			args:     []string{"--long-list"},
			contains: []string{"VM Name: alpha", "VM Name: beta"},
		},
		{
			name:     "show none adapters",
			args:     []string{"inspect", "beta", "--show-none"},
			contains: []string{"Network Adapter 2:\n    Mode: none"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := machinesRunner()
			out, err := execute(t, runner, tt.args...)
			require.NoError(t, err)

			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
			if tt.wantCalls != nil {
				assert.Equal(t, tt.wantCalls, runner.Calls())
			}
		})
	}
}

func TestReportJSON(t *testing.T) {
	out, err := execute(t, machinesRunner(), "--output", "json")
	require.NoError(t, err)

	var doc report.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Machines, 2)
	assert.Equal(t, "alpha", doc.Machines[0].Name)
	assert.Len(t, doc.Machines[0].Rules, 2)
	assert.Empty(t, doc.Machines[1].Rules)
}

func TestReportYAML(t *testing.T) {
	out, err := execute(t, machinesRunner(), "inspect", "alpha", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "machines:")
	assert.Contains(t, out, "host_port: \"2222\"")
}

func TestReportEnumerationFailure(t *testing.T) {
	runner := vboxtest.NewRunner().Fail(1, "VBoxManage: error: the VirtualBox service is not running", "list", "vms")

	out, err := execute(t, runner)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "enumerating machines")
	assert.Empty(t, out)

	var toolErr *vbox.ExternalToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, 1, toolErr.ExitCode)
	assert.Len(t, runner.Calls(), 1)
}

func TestReportUnknownMachineIsWarning(t *testing.T) {
	out, err := execute(t, machinesRunner(), "inspect", "ghost")
	require.NoError(t, err)
	assert.Contains(t, out, "VM Name: ghost")
	assert.Contains(t, out, "Status: Unknown")
	assert.Contains(t, out, "Warnings:")
}

func TestBadOutputFormat(t *testing.T) {
	_, err := execute(t, machinesRunner(), "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
}

func TestListVMs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
		call []string
	}{
		{name: "plain", args: []string{"list-vms"}, want: "alpha\nbeta\n", call: []string{"list", "vms"}},
		{name: "long flag", args: []string{"list-vms", "--long"}, want: "alpha\nbeta\n", call: []string{"list", "vms", "--long"}},
		{name: "long list persistent flag", args: []string{"--long-list", "list-vms"}, want: "alpha\nbeta\n", call: []string{"list", "vms", "--long"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := machinesRunner()
			out, err := execute(t, runner, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
			assert.Equal(t, [][]string{tt.call}, runner.Calls())
		})
	}
}

func TestInspectRequiresName(t *testing.T) {
	_, err := execute(t, machinesRunner(), "inspect")
	require.Error(t, err)
}

func TestSchemaCommand(t *testing.T) {
	runner := machinesRunner()
	out, err := execute(t, runner, "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, "vboxnet report", schema["title"])
	assert.Empty(t, runner.Calls())
}
