package metrics

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderGateReport renders r as a go-pretty table, matching the teacher's
// table-rendering idiom for analyzer report output.
func RenderGateReport(r Report) string {
	if len(r.Checks) == 0 {
		return "No gate thresholds configured"
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Threshold", "Actual", "Verdict", "Reason"})

	for _, c := range r.Checks {
		tbl.AppendRow(table.Row{c.Name, c.Actual, c.Verdict, c.Reason})
	}

	tbl.AppendFooter(table.Row{"", "", "Overall", r.Verdict})

	return fmt.Sprintf("%s\n", tbl.Render())
}
