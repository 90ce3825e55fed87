package verify

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/oscilla/patchc/compiler"
)

// Report summarizes one compile's diagnostics and invariant issues,
// grounded on the teacher's VerificationReport (verify/report.go)
// generalized from "lint + functional sim" to "diagnostics + invariants".
type Report struct {
	DiagnosticCount int
	IssueCount      int
	Diagnostics     []string
	Issues          []Issue
	OK              bool
}

// GenerateReport runs RunInvariants over a compile Result and bundles it
// with the Result's own diagnostics into one Report.
func GenerateReport(res *compiler.Result) *Report {
	r := &Report{}
	if res == nil {
		return r
	}
	issues := RunInvariants(res, nil)
	r.Issues = issues
	r.IssueCount = len(issues)
	if res.Bag != nil {
		for _, d := range res.Bag.Items() {
			r.Diagnostics = append(r.Diagnostics, d.Error())
		}
		r.DiagnosticCount = res.Bag.Len()
	}
	r.OK = r.IssueCount == 0 && !(res.Bag != nil && res.Bag.HasErrors())
	return r
}

// WriteReport renders the report as two go-pretty tables (diagnostics,
// invariant issues), mirroring the column-table style of the teacher's
// core/util.go register/buffer dumps.
func (r *Report) WriteReport(w io.Writer) {
	fmt.Fprintln(w, "COMPILE VERIFICATION REPORT")

	diagTable := table.NewWriter()
	diagTable.AppendHeader(table.Row{"#", "Diagnostic"})
	if len(r.Diagnostics) == 0 {
		diagTable.AppendRow(table.Row{"-", "(none)"})
	}
	for i, d := range r.Diagnostics {
		diagTable.AppendRow(table.Row{i + 1, d})
	}
	fmt.Fprintln(w, diagTable.Render())

	issueTable := table.NewWriter()
	issueTable.AppendHeader(table.Row{"Property", "Message"})
	if len(r.Issues) == 0 {
		issueTable.AppendRow(table.Row{"-", "no invariant violations"})
	}
	for _, iss := range r.Issues {
		issueTable.AppendRow(table.Row{string(iss.Property), iss.Message})
	}
	fmt.Fprintln(w, issueTable.Render())

	if r.OK {
		fmt.Fprintln(w, "RESULT: PASS")
	} else {
		fmt.Fprintln(w, "RESULT: FAIL")
	}
}
