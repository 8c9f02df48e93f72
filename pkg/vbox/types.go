package vbox

import (
	"sort"
	"strings"
)

// MaxAdapters is the number of network adapter slots VirtualBox exposes per machine
const MaxAdapters = 8

// MachineStatus is the power-state label reported by VBoxManage. Labels outside the
// constants below are kept verbatim.
type MachineStatus string

const (
	// StatusUnknown is reported when no state could be read for a machine
	StatusUnknown    MachineStatus = "Unknown"
	StatusRunning    MachineStatus = "running"
	StatusPoweredOff MachineStatus = "powered off"
	StatusSaved      MachineStatus = "saved"
	StatusAborted    MachineStatus = "aborted"
	StatusPaused     MachineStatus = "paused"
)

// vmStates maps the machine-readable VMState names onto the labels of the
// human-readable State line
var vmStates = map[string]MachineStatus{
	"poweroff":       StatusPoweredOff,
	"running":        StatusRunning,
	"saved":          StatusSaved,
	"aborted":        StatusAborted,
	"paused":         StatusPaused,
	"gurumeditation": "guru meditation",
}

// StatusFromVMState converts a VMState value from `showvminfo --machinereadable`.
// Unlisted names are kept verbatim; an empty value is StatusUnknown.
func StatusFromVMState(state string) MachineStatus {
	state = strings.TrimSpace(state)
	if state == "" {
		return StatusUnknown
	}
	if s, ok := vmStates[strings.ToLower(state)]; ok {
		return s
	}
	return MachineStatus(state)
}

// Attachment is the network attachment mode of an adapter, spelled the way the
// machine-readable dump spells it
type Attachment string

const (
	AttachmentNone       Attachment = "none"
	AttachmentNull       Attachment = "null"
	AttachmentNAT        Attachment = "nat"
	AttachmentNATNetwork Attachment = "natnetwork"
	AttachmentBridged    Attachment = "bridged"
	AttachmentInternal   Attachment = "intnet"
	AttachmentHostOnly   Attachment = "hostonly"
	AttachmentGeneric    Attachment = "generic"
)

// Adapter is the configuration of one network adapter slot
type Adapter struct {
	Index           int        `json:"index" yaml:"index"`
	Attachment      Attachment `json:"attachment" yaml:"attachment"`
	MAC             string     `json:"mac,omitempty" yaml:"mac,omitempty"`
	CableConnected  string     `json:"cable_connected,omitempty" yaml:"cable_connected,omitempty"`
	NICType         string     `json:"nic_type,omitempty" yaml:"nic_type,omitempty"`
	BridgeAdapter   string     `json:"bridge_adapter,omitempty" yaml:"bridge_adapter,omitempty"`
	HostOnlyAdapter string     `json:"host_only_adapter,omitempty" yaml:"host_only_adapter,omitempty"`
	InternalNetwork string     `json:"internal_network,omitempty" yaml:"internal_network,omitempty"`
	NATNetwork      string     `json:"nat_network,omitempty" yaml:"nat_network,omitempty"`
	GenericDriver   string     `json:"generic_driver,omitempty" yaml:"generic_driver,omitempty"`
}

// ForwardingRule is a NAT port-forwarding entry. Adapter is the owning adapter index,
// or 0 when the dump did not reveal it.
type ForwardingRule struct {
	Index     int    `json:"index" yaml:"index"`
	Adapter   int    `json:"adapter,omitempty" yaml:"adapter,omitempty"`
	Name      string `json:"name" yaml:"name"`
	Protocol  string `json:"protocol" yaml:"protocol"`
	HostIP    string `json:"host_ip" yaml:"host_ip"`
	HostPort  string `json:"host_port" yaml:"host_port"`
	GuestIP   string `json:"guest_ip" yaml:"guest_ip"`
	GuestPort string `json:"guest_port" yaml:"guest_port"`
}

// MachineReport bundles everything learned about one machine
type MachineReport struct {
	Name     string           `json:"name" yaml:"name"`
	Status   MachineStatus    `json:"status" yaml:"status"`
	Adapters map[int]*Adapter `json:"adapters" yaml:"adapters"`
	Rules    []ForwardingRule `json:"forwarding_rules" yaml:"forwarding_rules"`
	Warnings []string         `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// SortedAdapters returns the adapters ordered by slot index
func (r *MachineReport) SortedAdapters() []*Adapter {
	out := make([]*Adapter, 0, len(r.Adapters))
	for _, a := range r.Adapters {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// RulesFor returns the rules owned by the given adapter. Rules with no known owner are
// listed under the lowest-indexed NAT adapter only.
func (r *MachineReport) RulesFor(a *Adapter) []ForwardingRule {
	holdsUnowned := a.Attachment == AttachmentNAT && a.Index == r.firstNAT()

	var out []ForwardingRule
	for _, rule := range r.Rules {
		if rule.Adapter == a.Index || (rule.Adapter == 0 && holdsUnowned) {
			out = append(out, rule)
		}
	}
	return out
}

// firstNAT returns the lowest NAT adapter index, or 0 without one
func (r *MachineReport) firstNAT() int {
	first := 0
	for i, a := range r.Adapters {
		if a.Attachment == AttachmentNAT && (first == 0 || i < first) {
			first = i
		}
	}
	return first
}
