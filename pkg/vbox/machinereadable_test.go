package vbox_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/vboxnet/pkg/vbox"
)

func TestParseForwardingRule(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    vbox.ForwardingRule
		wantErr bool
	}{
		{
			name:  "empty ips default",
			value: "ssh,tcp,,2222,,22",
			want: vbox.ForwardingRule{
				Name: "ssh", Protocol: "tcp", HostIP: "0.0.0.0", HostPort: "2222", GuestIP: "", GuestPort: "22",
			},
		},
		{
			name:  "all fields set",
			value: "dns,udp,127.0.0.1,5353,10.0.2.15,53",
			want: vbox.ForwardingRule{
				Name: "dns", Protocol: "udp", HostIP: "127.0.0.1", HostPort: "5353", GuestIP: "10.0.2.15", GuestPort: "53",
			},
		},
		{
			name:  "empty ports pass through",
			value: "odd,tcp,,,,",
			want: vbox.ForwardingRule{
				Name: "odd", Protocol: "tcp", HostIP: "0.0.0.0",
			},
		},
		{
			name:    "too few fields",
			value:   "ssh,tcp,,2222,22",
			wantErr: true,
		},
		{
			name:    "too many fields",
			value:   "ssh,tcp,,2222,,22,extra",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := vbox.ParseForwardingRule(4, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.want.Index = 4
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanMachineReadable(t *testing.T) {
	pairs := vbox.ScanMachineReadable("name=\"alpha\"\r\nmemory=2048\n\"SATA-0-0\"=\"/vms/alpha.vdi\"\nnot an assignment\nFoo=\"a=b\"\n")

	assert.Equal(t, []vbox.Pair{
		{Key: "name", Value: "alpha"},
		{Key: "memory", Value: "2048"},
		{Key: "SATA-0-0", Value: "/vms/alpha.vdi"},
		{Key: "Foo", Value: "a=b"},
	}, pairs)
}

func TestScanMachineReadableMultilineValues(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want []vbox.Pair
	}{
		{
			name: "continuation lines stay in the value",
			out:  "description=\"web tier\nsecond line with key=value inside\"\nVMState=\"running\"\n",
			want: []vbox.Pair{
				{Key: "description", Value: "web tier\nsecond line with key=value inside"},
				{Key: "VMState", Value: "running"},
			},
		},
		{
			name: "value opening with a lone quote",
			out:  "description=\"\nnic1=nat\n\"\nnic1=\"bridged\"\n",
			want: []vbox.Pair{
				{Key: "description", Value: "\nnic1=nat\n"},
				{Key: "nic1", Value: "bridged"},
			},
		},
		{
			name: "escaped quote does not close",
			out:  "description=\"say \\\"\nnic2=none\"\n",
			want: []vbox.Pair{
				{Key: "description", Value: "say \\\"\nnic2=none"},
			},
		},
		{
			name: "unterminated value runs to the end",
			out:  "description=\"open\nnic1=nat\n",
			want: []vbox.Pair{
				{Key: "description", Value: "\"open\nnic1=nat"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vbox.ScanMachineReadable(tt.out))
		})
	}
}

func TestDescriptionCannotInjectAdapterOrRules(t *testing.T) {
	pairs := vbox.ScanMachineReadable("natnet1=\"nat\"\nnic1=\"bridged\"\nbridgeadapter1=\"eth0\"\n" +
		"description=\"x\nnic1=nat\nForwarding(0)=\"fake,tcp,,1,,1\"\n")

	adapters := vbox.AdaptersFromDump(vbox.NewDump(pairs))
	require.Len(t, adapters, 1)
	assert.Equal(t, vbox.AttachmentBridged, adapters[1].Attachment)

	rules, warnings := vbox.ForwardingRulesFromPairs(pairs)
	assert.Empty(t, rules)
	assert.Empty(t, warnings)
}

func TestParseMachineReadableLastValueWins(t *testing.T) {
	dump := vbox.ParseMachineReadable("nic1=\"nat\"\nnic2=\"none\"\nnic1=\"bridged\"\n")

	assert.Equal(t, "bridged", dump.Lookup("nic1"))
	assert.Equal(t, "", dump.Lookup("nic9"))

	var keys []string
	for pair := dump.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"nic1", "nic2"}, keys)
}

func TestAdaptersFromDump(t *testing.T) {
	dump := vbox.ParseMachineReadable("nic3=\"bridged\"\nbridgeadapter3=\"eth0\"\nmacaddress3=\"AA:BB:CC:DD:EE:FF\"\n")

	adapters := vbox.AdaptersFromDump(dump)
	require.Len(t, adapters, 1)
	require.Contains(t, adapters, 3)

	a := adapters[3]
	assert.Equal(t, 3, a.Index)
	assert.Equal(t, vbox.AttachmentBridged, a.Attachment)
	assert.Equal(t, "eth0", a.BridgeAdapter)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", a.MAC)
}

func TestParseMachineReadableFileDescription(t *testing.T) {
	data, err := os.ReadFile("testdata/showvminfo_alpha_mr.txt")
	require.NoError(t, err)

	dump := vbox.ParseMachineReadable(string(data))
	assert.Equal(t, "web tier\nsecond line with key=value inside", dump.Lookup("description"))
	_, ok := dump.Get("second line with key")
	assert.False(t, ok)
	assert.Equal(t, "running", dump.Lookup("VMState"))
}

func TestAdaptersFromDumpFile(t *testing.T) {
	data, err := os.ReadFile("testdata/showvminfo_alpha_mr.txt")
	require.NoError(t, err)

	adapters := vbox.AdaptersFromDump(vbox.ParseMachineReadable(string(data)))
	require.Len(t, adapters, 8)

	assert.Equal(t, &vbox.Adapter{
		Index:          1,
		Attachment:     vbox.AttachmentNAT,
		MAC:            "080027A1B2C3",
		CableConnected: "on",
		NICType:        "82540EM",
	}, adapters[1])
	assert.Equal(t, &vbox.Adapter{
		Index:           2,
		Attachment:      vbox.AttachmentHostOnly,
		MAC:             "0800271F2E3D",
		CableConnected:  "off",
		NICType:         "82540EM",
		HostOnlyAdapter: "vboxnet0",
	}, adapters[2])
	for i := 3; i <= 8; i++ {
		assert.Equal(t, vbox.AttachmentNone, adapters[i].Attachment, "adapter %d", i)
	}
}

func TestForwardingRulesFromPairs(t *testing.T) {
	t.Run("owner follows adapter keys", func(t *testing.T) {
		pairs := vbox.ScanMachineReadable(`natnet1="nat"
nic1="nat"
Forwarding(0)="ssh,tcp,,2222,,22"
natnet2="nat"
nic2="nat"
Forwarding(0)="web,tcp,127.0.0.1,8080,,80"
`)
		rules, warnings := vbox.ForwardingRulesFromPairs(pairs)
		assert.Empty(t, warnings)
		assert.Equal(t, []vbox.ForwardingRule{
			{Index: 0, Adapter: 1, Name: "ssh", Protocol: "tcp", HostIP: "0.0.0.0", HostPort: "2222", GuestPort: "22"},
			{Index: 0, Adapter: 2, Name: "web", Protocol: "tcp", HostIP: "127.0.0.1", HostPort: "8080", GuestPort: "80"},
		}, rules)
	})

	t.Run("no forwarding keys", func(t *testing.T) {
		rules, warnings := vbox.ForwardingRulesFromPairs(vbox.ScanMachineReadable("nic1=\"nat\"\n"))
		assert.Empty(t, warnings)
		assert.NotNil(t, rules)
		assert.Empty(t, rules)
	})

	t.Run("malformed records are skipped", func(t *testing.T) {
		pairs := vbox.ScanMachineReadable(`Forwarding(0)="broken,tcp"
Forwarding(1)="ok,udp,,53,,53"
`)
		rules, warnings := vbox.ForwardingRulesFromPairs(pairs)
		require.Len(t, rules, 1)
		assert.Equal(t, "ok", rules[0].Name)
		assert.Equal(t, 0, rules[0].Adapter)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0], "Forwarding(0)")
	})

	t.Run("duplicate index on same adapter replaces", func(t *testing.T) {
		pairs := vbox.ScanMachineReadable(`nic1="nat"
Forwarding(0)="a,tcp,,1,,1"
Forwarding(0)="b,tcp,,2,,2"
`)
		rules, warnings := vbox.ForwardingRulesFromPairs(pairs)
		require.Len(t, rules, 1)
		assert.Equal(t, "b", rules[0].Name)
		assert.Len(t, warnings, 1)
	})
}
