package render

import (
	"bytes"
	"fmt"

	"github.com/fatih/color"

	"github.com/JustAaronHere/NetWeaver/internal/audit"
)

// Audit writes the audit findings grouped under a banner, worst first
// within each check, followed by the tally.
func (r *Renderer) Audit(report *audit.Report) error {
	var buf bytes.Buffer

	banner := fmt.Sprintf("Security audit of %s\n", report.Target)
	buf.WriteString(r.paint(r.scheme.Header, banner))
	buf.WriteString("\n")

	for _, f := range report.Findings {
		buf.WriteString(r.finding(f))
	}

	fmt.Fprintf(&buf, "\n%s  %s  %s\n",
		fmt.Sprintf("%d findings", len(report.Findings)),
		r.severityCount(report.Criticals(), "critical", r.scheme.Crit),
		r.severityCount(report.Warnings(), "warnings", r.scheme.Warn))

	_, err := r.out.Write(buf.Bytes())
	return err
}

// finding renders one finding with its severity tag and detail lines.
func (r *Renderer) finding(f audit.Finding) string {
	var buf bytes.Buffer

	tag := fmt.Sprintf("[%s]", f.Severity)
	switch f.Severity {
	case audit.SeverityCritical:
		tag = r.paint(r.scheme.Crit, tag)
	case audit.SeverityWarning:
		tag = r.paint(r.scheme.Warn, tag)
	default:
		tag = r.paint(r.scheme.Good, tag)
	}

	fmt.Fprintf(&buf, "%s %s: %s\n", tag, f.Check, f.Summary)
	for _, line := range f.Detail {
		fmt.Fprintf(&buf, "    %s\n", line)
	}
	return buf.String()
}

// severityCount renders "N label", colored only when N is nonzero.
func (r *Renderer) severityCount(n int, label string, c *color.Color) string {
	s := fmt.Sprintf("%d %s", n, label)
	if n == 0 {
		return s
	}
	return r.paint(c, s)
}
