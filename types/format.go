package types

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// FormatResults renders validation results as a markdown table headed by title.
func FormatResults(title string, results []ValidationResult) string {
	if len(results) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("# %s:\n", title))
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Code", "Fields")
	for _, r := range results {
		_ = table.Append(r.Code, strings.Join(r.Fields, ", "))
	}
	_ = table.Render()
	return buf.String()
}

// FormatValues renders field values as a markdown table in the given order.
func FormatValues(paths []string, values Values) string {
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Value")
	for _, path := range paths {
		val, ok := values[path]
		cell := ""
		if ok && val != nil {
			cell = fmt.Sprint(val)
		}
		_ = table.Append(path, cell)
	}
	_ = table.Render()
	return buf.String()
}
