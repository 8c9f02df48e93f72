package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/invopop/jsonschema"
	"github.com/walteh/vboxnet/pkg/vbox"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Format selects how reports are written
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the accepted --output values
var Formats = []Format{FormatText, FormatJSON, FormatYAML}

func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", errors.Errorf("unknown output format %q (want one of text, json, yaml)", s)
}

// Options controls rendering
type Options struct {
	Format Format
	// Color enables ANSI colors in text output
	Color bool
	// ShowNone includes adapters whose attachment is "none"
	ShowNone bool
}

// Document is the top-level shape of JSON and YAML output
type Document struct {
	Machines []*vbox.MachineReport `json:"machines" yaml:"machines"`
}

// Render writes reports in the requested format
func Render(w io.Writer, reports []*vbox.MachineReport, opts Options) error {
	if reports == nil {
		reports = []*vbox.MachineReport{}
	}

	switch opts.Format {
	case FormatText, "":
		return newTextWriter(w, opts).write(reports)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(Document{Machines: reports}); err != nil {
			return errors.Errorf("encoding json report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Document{Machines: reports}); err != nil {
			return errors.Errorf("encoding yaml report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return errors.Errorf("closing yaml encoder: %w", err)
		}
		return nil
	default:
		return errors.Errorf("unknown output format %q", opts.Format)
	}
}

// Schema returns the JSON schema of Document
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&Document{})
	s.Title = "vboxnet report"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, errors.Errorf("marshaling report schema: %w", err)
	}
	return data, nil
}

type textWriter struct {
	w    io.Writer
	opts Options
	err  error

	name  *color.Color
	label *color.Color
	warn  *color.Color
	faint *color.Color
}

func newTextWriter(w io.Writer, opts Options) *textWriter {
	tw := &textWriter{
		w:     w,
		opts:  opts,
		name:  color.New(color.FgCyan, color.Bold),
		label: color.New(color.Bold),
		warn:  color.New(color.FgYellow),
		faint: color.New(color.Faint),
	}
	for _, c := range []*color.Color{tw.name, tw.label, tw.warn, tw.faint} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return tw
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

// field prints "<indent><label>: <value>", leaving no trailing space for empty values
func (tw *textWriter) field(indent int, label, value string) {
	pad := strings.Repeat("  ", indent)
	if value == "" {
		tw.printf("%s%s\n", pad, tw.label.Sprint(label+":"))
		return
	}
	tw.printf("%s%s %s\n", pad, tw.label.Sprint(label+":"), value)
}

func (tw *textWriter) write(reports []*vbox.MachineReport) error {
	if len(reports) == 0 {
		tw.printf("%s\n", tw.faint.Sprint("No virtual machines found."))
		return tw.err
	}

	for i, r := range reports {
		if i > 0 {
			tw.printf("\n")
		}
		tw.machine(r)
	}
	return tw.err
}

func (tw *textWriter) machine(r *vbox.MachineReport) {
	tw.printf("%s %s\n", tw.label.Sprint("VM Name:"), tw.name.Sprint(r.Name))
	tw.field(1, "Status", string(r.Status))

	shown := 0
	for _, a := range r.SortedAdapters() {
		if a.Attachment == vbox.AttachmentNone && !tw.opts.ShowNone {
			continue
		}
		shown++
		tw.adapter(r, a)
	}
	if shown == 0 {
		tw.printf("  %s\n", tw.faint.Sprint("No network adapters found."))
	}

	if len(r.Warnings) > 0 {
		tw.printf("  %s\n", tw.warn.Sprint("Warnings:"))
		for _, w := range r.Warnings {
			tw.printf("    - %s\n", tw.warn.Sprint(w))
		}
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func (tw *textWriter) adapter(r *vbox.MachineReport, a *vbox.Adapter) {
	tw.printf("  %s\n", tw.label.Sprintf("Network Adapter %d:", a.Index))
	tw.field(2, "Mode", string(a.Attachment))

	switch a.Attachment {
	case vbox.AttachmentBridged:
		tw.field(2, "Bridge Adapter", orNA(a.BridgeAdapter))
		tw.field(2, "MAC Address", orNA(a.MAC))
	case vbox.AttachmentHostOnly:
		tw.field(2, "Host-only Adapter", orNA(a.HostOnlyAdapter))
	case vbox.AttachmentInternal:
		tw.field(2, "Internal Network", orNA(a.InternalNetwork))
	case vbox.AttachmentNATNetwork:
		tw.field(2, "NAT Network", orNA(a.NATNetwork))
	case vbox.AttachmentGeneric:
		tw.field(2, "Generic Driver", orNA(a.GenericDriver))
	}

	if a.Attachment != vbox.AttachmentBridged && a.MAC != "" {
		tw.field(2, "MAC Address", a.MAC)
	}
	if a.CableConnected != "" {
		tw.field(2, "Cable Connected", a.CableConnected)
	}

	if a.Attachment != vbox.AttachmentNAT {
		return
	}

	rules := r.RulesFor(a)
	if len(rules) == 0 {
		tw.printf("    %s\n", tw.faint.Sprint("No port forwarding rules found."))
		return
	}

	tw.printf("    %s\n", tw.label.Sprint("Port Forwarding Rules:"))
	for _, rule := range rules {
		tw.field(3, "Rule", rule.Name)
		tw.field(4, "Protocol", rule.Protocol)
		tw.field(4, "Host IP", rule.HostIP)
		tw.field(4, "Host Port", rule.HostPort)
		tw.field(4, "Guest IP", rule.GuestIP)
		tw.field(4, "Guest Port", rule.GuestPort)
	}
}
