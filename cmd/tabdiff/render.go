package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/JonMunkholm/tabdiff/internal/compare"
	"github.com/JonMunkholm/tabdiff/internal/core"
	"github.com/JonMunkholm/tabdiff/internal/store"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderSummary(w io.Writer, fs core.FileSummary) {
	fmt.Fprintf(w, "%s (%d rows)\n", fs.Name, fs.Rows)

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Column", "Type"})
	for i, col := range fs.Columns {
		t.AppendRow(table.Row{i + 1, col, fs.Types[col]})
	}
	t.Render()
}

func renderSuggestions(w io.Writer, res *core.SuggestResult) {
	if len(res.Suggestions) == 0 {
		fmt.Fprintln(w, "(no suggestions)")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{res.File1.Name, res.File2.Name, "Confidence", "Type 1", "Type 2"})
	for _, s := range res.Suggestions {
		t.AppendRow(table.Row{s.Column1, s.Column2, fmt.Sprintf("%d%%", s.Confidence), s.Type1, s.Type2})
	}
	t.Render()
}

// renderReport prints one summary line per field and, when details is set,
// every value found on only one side.
func renderReport(w io.Writer, job *store.ComparisonJob, details bool) {
	r := job.Report
	fmt.Fprintf(w, "%s: %d rows, %s: %d rows\n", job.File1, r.TotalRows.File1, job.File2, r.TotalRows.File2)

	t := newTable(w)
	t.AppendHeader(table.Row{"Field", job.File1, job.File2, "Matching", "Only in 1", "Only in 2"})
	for _, f := range r.Fields {
		if f.Failed() {
			t.AppendRow(table.Row{f.Label, f.Column1, f.Column2, "error: " + f.Error, "", ""})
			continue
		}
		t.AppendRow(table.Row{f.Label, f.Column1, f.Column2, len(f.Matching), len(f.OnlyIn1), len(f.OnlyIn2)})
	}
	t.Render()

	if !details {
		return
	}
	for _, f := range r.Fields {
		if f.Failed() || f.DifferentCount() == 0 {
			continue
		}
		renderDifferences(w, f)
	}
}

func renderDifferences(w io.Writer, f compare.FieldResult) {
	fmt.Fprintf(w, "\n%s\n", f.Label)
	t := newTable(w)
	t.AppendHeader(table.Row{"Status", "File 1 Value", "File 2 Value"})
	for _, v := range f.OnlyIn1 {
		t.AppendRow(table.Row{"Only in File 1", v, ""})
	}
	for _, v := range f.OnlyIn2 {
		t.AppendRow(table.Row{"Only in File 2", "", v})
	}
	t.Render()
}

func renderPairs(w io.Writer, pairs []compare.FieldPair) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Field", "File 1", "File 2"})
	for _, p := range pairs {
		t.AppendRow(table.Row{p.Label, p.Column1, p.Column2})
	}
	t.Render()
}

func renderMappings(w io.Writer, mappings []store.FieldMapping) {
	if len(mappings) == 0 {
		fmt.Fprintln(w, "(no field mappings)")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Field Type", "Variations", "Active", "Description"})
	for _, m := range mappings {
		t.AppendRow(table.Row{m.FieldType, strings.Join(m.Variations, ", "), m.Active, m.Description})
	}
	t.Render()
}

func renderTasks(w io.Writer, tasks []store.ScheduledTask) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "(no scheduled tasks)")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "Frequency", "Status", "Next Run", "Last Error"})
	for _, task := range tasks {
		t.AppendRow(table.Row{task.Name, task.Frequency, task.Status, task.NextRun.Format("2006-01-02 15:04"), task.LastError})
	}
	t.Render()
}
