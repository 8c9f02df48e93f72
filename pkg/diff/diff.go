// Package diff renders readable, colored differences for test failures.
package diff

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/k0kubun/pp/v3"
	"github.com/pmezard/go-difflib/difflib"
)

// TypedDiff returns "" when want and got are equal. Strings are compared line by line,
// everything else through go-cmp.
func TypedDiff[T any](want T, got T, opts ...cmp.Option) string {
	if w, ok := any(want).(string); ok {
		return StringDiff(w, any(got).(string))
	}
	return EnrichCmpDiff(cmp.Diff(got, want, opts...))
}

// PrettyDiff diffs the pretty-printed form of both values (exported fields only).
// Values go-cmp finds equal, unexported fields included, yield "".
func PrettyDiff[T any](want T, got T) string {
	if cmp.Equal(want, got, cmp.Exporter(func(reflect.Type) bool { return true })) {
		return ""
	}

	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)

	return StringDiff(printer.Sprint(want), printer.Sprint(got))
}

// StringDiff returns a colored unified diff of two multi-line strings
func StringDiff(want string, got string) string {
	if want == got {
		return ""
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  5,
	})
	if err != nil {
		return EnrichCmpDiff(cmp.Diff(got, want))
	}

	ud, err := ParseUnifiedDiff(unified)
	if err != nil {
		return EnrichCmpDiff(cmp.Diff(got, want))
	}

	return ud.PrettyPrint()
}
