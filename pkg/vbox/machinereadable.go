package vbox

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gitlab.com/tozd/go/errors"
)

var (
	reForwardingKey = regexp.MustCompile(`^Forwarding\((\d+)\)$`)
	reOwnerKey      = regexp.MustCompile(`^(?:natnet|nic)(\d+)$`)
)

// Pair is one `key=value` assignment from `showvminfo --machinereadable`
type Pair struct {
	Key   string
	Value string
}

// Dump is the machine-readable output keyed by name, in first-seen order. A key that
// appears more than once keeps its last value.
type Dump struct {
	*orderedmap.OrderedMap[string, string]
}

// ScanMachineReadable returns every assignment in output order, duplicates included.
// A quoted value left open at the end of its line continues on the following lines
// until the closing quote, so text inside it never becomes an assignment. Other lines
// without `=` are ignored.
func ScanMachineReadable(out string) []Pair {
	var pairs []Pair

	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		key, value, ok := strings.Cut(lines[i], "=")
		if !ok {
			continue
		}
		key = unquote(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if opensQuote(value) {
			parts := []string{value}
			for i+1 < len(lines) {
				i++
				parts = append(parts, lines[i])
				if closesQuote(strings.TrimRight(lines[i], " \t")) {
					break
				}
			}
			value = strings.TrimRight(strings.Join(parts, "\n"), " \t\n")
		}

		if key == "" {
			continue
		}
		pairs = append(pairs, Pair{Key: key, Value: unquote(value)})
	}
	return pairs
}

// opensQuote reports whether value starts a quoted string that its own line does not close
func opensQuote(value string) bool {
	if !strings.HasPrefix(value, `"`) {
		return false
	}
	return len(value) == 1 || !closesQuote(value)
}

func closesQuote(s string) bool {
	return strings.HasSuffix(s, `"`) && !strings.HasSuffix(s, `\"`)
}

// ParseMachineReadable builds a Dump from machine-readable output
func ParseMachineReadable(out string) *Dump {
	return NewDump(ScanMachineReadable(out))
}

func NewDump(pairs []Pair) *Dump {
	d := &Dump{orderedmap.New[string, string](orderedmap.WithCapacity[string, string](len(pairs)))}
	for _, p := range pairs {
		d.Set(p.Key, p.Value)
	}
	return d
}

// Lookup returns the value for key, or "" when absent
func (d *Dump) Lookup(key string) string {
	v, _ := d.Get(key)
	return v
}

// AdaptersFromDump reads adapter slots 1..MaxAdapters. Slots without a nic<N> key are
// not reported.
func AdaptersFromDump(d *Dump) map[int]*Adapter {
	adapters := map[int]*Adapter{}
	for i := 1; i <= MaxAdapters; i++ {
		mode, ok := d.Get(fmt.Sprintf("nic%d", i))
		if !ok {
			continue
		}
		adapters[i] = &Adapter{
			Index:           i,
			Attachment:      Attachment(mode),
			MAC:             d.Lookup(fmt.Sprintf("macaddress%d", i)),
			CableConnected:  d.Lookup(fmt.Sprintf("cableconnected%d", i)),
			NICType:         d.Lookup(fmt.Sprintf("nictype%d", i)),
			BridgeAdapter:   d.Lookup(fmt.Sprintf("bridgeadapter%d", i)),
			HostOnlyAdapter: d.Lookup(fmt.Sprintf("hostonlyadapter%d", i)),
			InternalNetwork: d.Lookup(fmt.Sprintf("intnet%d", i)),
			NATNetwork:      d.Lookup(fmt.Sprintf("nat-network%d", i)),
			GenericDriver:   d.Lookup(fmt.Sprintf("generic%d", i)),
		}
	}
	return adapters
}

// ForwardingRulesFromPairs extracts NAT rules from `Forwarding(<n>)` assignments.
// VBoxManage prints the rules of each NAT adapter right after that adapter's natnet<N>
// key, so the most recent natnet<N>/nic<N> key is taken as the owner. Malformed
// records are skipped and described in the returned warnings.
func ForwardingRulesFromPairs(pairs []Pair) ([]ForwardingRule, []string) {
	rules := []ForwardingRule{}
	var warnings []string

	owner := 0
	seen := map[[2]int]int{}

	for _, p := range pairs {
		if m := reOwnerKey.FindStringSubmatch(p.Key); m != nil {
			owner, _ = strconv.Atoi(m[1])
			continue
		}

		m := reForwardingKey.FindStringSubmatch(p.Key)
		if m == nil {
			continue
		}

		index, err := strconv.Atoi(m[1])
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: bad rule index: %v", p.Key, err))
			continue
		}

		rule, err := ParseForwardingRule(index, p.Value)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", p.Key, err))
			continue
		}
		rule.Adapter = owner

		key := [2]int{rule.Adapter, rule.Index}
		if pos, dup := seen[key]; dup {
			warnings = append(warnings, fmt.Sprintf("duplicate %s on adapter %d replaces rule %q", p.Key, owner, rules[pos].Name))
			rules[pos] = rule
			continue
		}
		seen[key] = len(rules)
		rules = append(rules, rule)
	}

	return rules, warnings
}

// ParseForwardingRule parses the `name,proto,hostip,hostport,guestip,guestport` value of
// a Forwarding(<index>) assignment. An empty host IP means every host interface.
func ParseForwardingRule(index int, value string) (ForwardingRule, error) {
	fields := strings.Split(value, ",")
	if len(fields) != 6 {
		return ForwardingRule{}, errors.Errorf("expected 6 comma-separated fields, got %d", len(fields))
	}

	hostIP := fields[2]
	if hostIP == "" {
		hostIP = "0.0.0.0"
	}

	return ForwardingRule{
		Index:     index,
		Name:      fields[0],
		Protocol:  fields[1],
		HostIP:    hostIP,
		HostPort:  fields[3],
		GuestIP:   fields[4],
		GuestPort: fields[5],
	}, nil
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
