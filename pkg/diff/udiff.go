package diff

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sourcegraph/go-diff/diff"
	"gitlab.com/tozd/go/errors"
)

type UnifiedDiff struct {
	FileDiff *diff.FileDiff
}

func ParseUnifiedDiff(diffStr string) (*UnifiedDiff, error) {
	if diffStr == "" {
		return nil, errors.New("empty diff string")
	}

	fileDiff, err := diff.ParseFileDiff([]byte(diffStr))
	if err != nil {
		return nil, errors.Errorf("parsing unified diff: %w", err)
	}

	return &UnifiedDiff{FileDiff: fileDiff}, nil
}

// highlight renders one side of a changed line pair, bolding the characters that
// differ. keep selects which side (delete for the old line, insert for the new one).
func highlight(oldLine, newLine string, keep diffmatchpatch.Operation, lineColor *color.Color, bold *color.Color) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldLine, newLine, false))

	faint := lineColor.Add(color.Faint)

	var result strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			result.WriteString(faint.Sprint(d.Text))
		case keep:
			result.WriteString(bold.Sprint(d.Text))
		}
	}
	return result.String()
}

// PrettyPrint renders the diff with want (old) lines in blue and got (new) lines in red
func (ud *UnifiedDiff) PrettyPrint() string {
	if ud == nil || ud.FileDiff == nil {
		return ""
	}

	prevNoColor := color.NoColor
	defer func() {
		color.NoColor = prevNoColor
	}()
	color.NoColor = false

	expectedPrefix, actualPrefix := prefixes()
	blue := color.New(color.FgBlue)
	red := color.New(color.FgRed)
	faint := color.New(color.Faint)

	result := []string{
		fmt.Sprintf("%s %s", color.New(color.Faint).Sprint("---"), color.New(color.FgBlue, color.Bold).Sprint("want")),
		fmt.Sprintf("%s %s", color.New(color.Faint).Sprint("+++"), color.New(color.FgRed, color.Bold).Sprint("got")),
	}

	for _, hunk := range ud.FileDiff.Hunks {
		result = append(result, color.New(color.Faint).Sprintf("@@ -%d,%d +%d,%d @@%s",
			hunk.OrigStartLine, hunk.OrigLines,
			hunk.NewStartLine, hunk.NewLines,
			hunk.Section))

		for _, group := range groupRelatedChanges(strings.Split(string(hunk.Body), "\n")) {
			for _, line := range group.contextLines {
				indent, rest := splitIndent(line)
				result = append(result, strings.Repeat(" ", 9)+gutter(indent, faint.Sprint(rest)))
			}

			if len(group.oldLines) == 1 && len(group.newLines) == 1 {
				oldIndent, oldRest := splitIndent(group.oldLines[0])
				newIndent, newRest := splitIndent(group.newLines[0])
				result = append(result,
					expectedPrefix+gutter(oldIndent, highlight(oldRest, newRest, diffmatchpatch.DiffDelete, color.New(color.FgBlue), color.New(color.FgBlue, color.Bold))),
					actualPrefix+gutter(newIndent, highlight(oldRest, newRest, diffmatchpatch.DiffInsert, color.New(color.FgRed), color.New(color.FgRed, color.Bold))),
				)
				continue
			}

			for _, line := range group.oldLines {
				indent, rest := splitIndent(line)
				result = append(result, expectedPrefix+gutter(indent, blue.Sprint(rest)))
			}
			for _, line := range group.newLines {
				indent, rest := splitIndent(line)
				result = append(result, actualPrefix+gutter(indent, red.Sprint(rest)))
			}
		}

		result = append(result, "")
	}

	return "\n" + strings.Join(result, "\n")
}

type lineGroup struct {
	contextLines []string
	oldLines     []string
	newLines     []string
}

// groupRelatedChanges splits hunk lines into runs of context followed by changes so
// that a single replaced line can be highlighted against its replacement
func groupRelatedChanges(lines []string) []lineGroup {
	var groups []lineGroup
	var current lineGroup

	flush := func() {
		if len(current.contextLines) > 0 || len(current.oldLines) > 0 || len(current.newLines) > 0 {
			groups = append(groups, current)
			current = lineGroup{}
		}
	}

	inChange := false
	for _, line := range lines {
		if line == "" {
			continue
		}

		switch line[0] {
		case '-':
			inChange = true
			current.oldLines = append(current.oldLines, line[1:])
		case '+':
			inChange = true
			current.newLines = append(current.newLines, line[1:])
		default:
			if inChange {
				flush()
				inChange = false
			}
			current.contextLines = append(current.contextLines, line[1:])
		}
	}
	flush()

	return groups
}
