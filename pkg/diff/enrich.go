package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

func prefixes() (want string, got string) {
	want = fmt.Sprintf("[%s] %s", color.New(color.FgBlue, color.Bold).Sprint("want"), color.New(color.Faint).Sprint(" +"))
	got = fmt.Sprintf("[%s] %s", color.New(color.Bold, color.FgRed).Sprint("got"), color.New(color.Faint).Sprint("  -"))
	return want, got
}

// EnrichCmpDiff colors a go-cmp diff produced as cmp.Diff(got, want)
func EnrichCmpDiff(diff string) string {
	if diff == "" {
		return ""
	}
	prevNoColor := color.NoColor
	defer func() {
		color.NoColor = prevNoColor
	}()
	color.NoColor = false

	expectedPrefix, actualPrefix := prefixes()

	var b strings.Builder
	b.WriteString("\n")

	for _, line := range strings.Split(diff, "\n") {
		if strings.TrimSpace(line) == "" {
			b.WriteString(line + "\n")
			continue
		}

		switch {
		case strings.HasPrefix(line, "-"):
			b.WriteString(actualPrefix + " | " + color.New(color.FgRed).Sprint(strings.TrimPrefix(line, "-")) + "\n")
		case strings.HasPrefix(line, "+"):
			b.WriteString(expectedPrefix + " | " + color.New(color.FgBlue).Sprint(strings.TrimPrefix(line, "+")) + "\n")
		default:
			b.WriteString(strings.Repeat(" ", 9) + " | " + color.New(color.Faint).Sprint(line) + "\n")
		}
	}

	return b.String()
}

var indentMarks = strings.NewReplacer(" ", "·", "\t", "→   ")

// splitIndent separates the leading spaces and tabs of s from the rest
func splitIndent(s string) (indent string, rest string) {
	rest = strings.TrimLeft(s, " \t")
	return s[:len(s)-len(rest)], rest
}

// gutter prints the column separator, the indentation with visible marks and then the
// already colored body
func gutter(indent string, body string) string {
	out := color.New(color.Bold).Sprint(" | ")
	if indent != "" {
		out += color.New(color.Faint, color.FgHiGreen).Sprint(indentMarks.Replace(indent))
	}
	return out + body
}
