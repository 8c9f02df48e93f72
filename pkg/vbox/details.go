package vbox

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

var (
	reStateLine    = regexp.MustCompile(`^State:\s+(.+)$`)
	reNICHeader    = regexp.MustCompile(`^NIC (\d+):\s*(.*)$`)
	reAttachment   = regexp.MustCompile(`Attachment:\s*([^,]+)`)
	reMACField     = regexp.MustCompile(`MAC:\s*([0-9A-Fa-f:]+)`)
	reCableField   = regexp.MustCompile(`Cable connected:\s*(\w+)`)
	reQuotedSuffix = regexp.MustCompile(`'([^']*)'`)
)

// ParseStatus returns the power state from human-readable `showvminfo` output, e.g.
// "powered off" from "State: powered off (since 2024-01-01T10:00:00.000000000)".
// Output without a State line yields StatusUnknown.
func ParseStatus(detail string) MachineStatus {
	for _, line := range strings.Split(detail, "\n") {
		m := reStateLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		state, _, _ := strings.Cut(m[1], "(since")
		if state = strings.TrimSpace(state); state != "" {
			return MachineStatus(state)
		}
	}
	return StatusUnknown
}

// ScanAdapters reads adapter facts from human-readable `showvminfo` output. MAC and
// cable lines do not repeat the NIC index, so they belong to the last NIC header that
// named an attachment. A header without one (a disabled slot) clears the current index,
// and facts seen while no index is current are skipped.
func ScanAdapters(ctx context.Context, detail string) map[int]*Adapter {
	logger := zerolog.Ctx(ctx)

	adapters := map[int]*Adapter{}
	var current *int

	for n, line := range strings.Split(strings.ReplaceAll(detail, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)

		if m := reNICHeader.FindStringSubmatch(line); m != nil {
			current = nil
			att := reAttachment.FindStringSubmatch(m[2])
			if att == nil {
				continue
			}
			index, err := strconv.Atoi(m[1])
			if err != nil || index < 1 || index > MaxAdapters {
				logger.Debug().Str("line", line).Msg("Ignoring NIC header with out of range index")
				continue
			}
			current = &index
			adapter := normalizeAttachment(strings.TrimSpace(att[1]))
			adapter.Index = index
			adapters[index] = adapter
		}

		mac := reMACField.FindStringSubmatch(line)
		cable := reCableField.FindStringSubmatch(line)
		if mac == nil && cable == nil {
			continue
		}

		if current == nil {
			logger.Debug().Int("line", n+1).Str("text", line).Msg("Skipping adapter fact before any NIC header")
			continue
		}

		adapter := adapters[*current]
		if mac != nil {
			adapter.MAC = mac[1]
		}
		if cable != nil {
			adapter.CableConnected = cable[1]
		}
	}

	return adapters
}

// normalizeAttachment maps a human-readable attachment label onto the machine-readable
// mode names
func normalizeAttachment(label string) *Adapter {
	adapter := &Adapter{}

	name := ""
	if m := reQuotedSuffix.FindStringSubmatch(label); m != nil {
		name = m[1]
	}

	lower := strings.ToLower(label)
	switch {
	case strings.HasPrefix(lower, "nat network"):
		adapter.Attachment = AttachmentNATNetwork
		adapter.NATNetwork = name
	case lower == "nat":
		adapter.Attachment = AttachmentNAT
	case strings.HasPrefix(lower, "bridged"):
		adapter.Attachment = AttachmentBridged
		adapter.BridgeAdapter = name
	case strings.HasPrefix(lower, "host-only"):
		adapter.Attachment = AttachmentHostOnly
		adapter.HostOnlyAdapter = name
	case strings.HasPrefix(lower, "internal network"):
		adapter.Attachment = AttachmentInternal
		adapter.InternalNetwork = name
	case strings.HasPrefix(lower, "generic"):
		adapter.Attachment = AttachmentGeneric
		adapter.GenericDriver = name
	case lower == "not attached", lower == "null":
		adapter.Attachment = AttachmentNull
	case lower == "none":
		adapter.Attachment = AttachmentNone
	default:
		adapter.Attachment = Attachment(lower)
	}

	return adapter
}

// MergeAdapters combines the machine-readable adapters with the line-scanned ones.
// Fields set in primary win; empty fields are filled from fallback. Slots only present
// in fallback are added.
func MergeAdapters(primary, fallback map[int]*Adapter) map[int]*Adapter {
	out := make(map[int]*Adapter, len(primary))
	for i, a := range primary {
		c := *a
		out[i] = &c
	}

	for i, f := range fallback {
		a, ok := out[i]
		if !ok {
			c := *f
			out[i] = &c
			continue
		}
		fill(&a.Attachment, f.Attachment)
		fill(&a.MAC, f.MAC)
		fill(&a.CableConnected, f.CableConnected)
		fill(&a.NICType, f.NICType)
		fill(&a.BridgeAdapter, f.BridgeAdapter)
		fill(&a.HostOnlyAdapter, f.HostOnlyAdapter)
		fill(&a.InternalNetwork, f.InternalNetwork)
		fill(&a.NATNetwork, f.NATNetwork)
		fill(&a.GenericDriver, f.GenericDriver)
	}

	return out
}

func fill[T ~string](dst *T, v T) {
	if *dst == "" {
		*dst = v
	}
}
