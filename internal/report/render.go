// Package report renders reconciliation reports for the operator console.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/crmsync/internal/dateprefix"
	"github.com/jask/crmsync/internal/service"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Render formats one account report as operator-facing text.
func Render(rep service.Report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(rep.Folder))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  identity: last=%q first=%q", rep.Identity.LastName, rep.Identity.FirstName))
	if rep.Identity.MiddleName != "" {
		b.WriteString(fmt.Sprintf(" middle=%q", rep.Identity.MiddleName))
	}
	if len(rep.Identity.HouseholdMembers) > 0 {
		b.WriteString(fmt.Sprintf(" household=%v", rep.Identity.HouseholdMembers))
	}
	if len(rep.Identity.Aliases) > 0 {
		b.WriteString(fmt.Sprintf(" aliases=%v", rep.Identity.Aliases))
	}
	b.WriteString("\n")

	b.WriteString("  status: ")
	b.WriteString(statusStyle(rep.Status).Render(string(rep.Status)))
	if rep.Match.MatchedRow != nil {
		b.WriteString(fmt.Sprintf("  →  %s (%.2f)", rep.Match.MatchedRow.DisplayName, rep.Match.Confidence))
	}
	if rep.Match.Ambiguous {
		b.WriteString(warnStyle.Render("  [ambiguous: top score tied, earliest row kept]"))
	}
	b.WriteString("\n")
	if rep.Note != "" {
		b.WriteString(subtleStyle.Render("  note: " + rep.Note))
		b.WriteString("\n")
	}

	if len(rep.FileOutcomes) > 0 {
		b.WriteString(sectionStyle.Render("  files"))
		b.WriteString("\n")
		for _, o := range rep.FileOutcomes {
			b.WriteString("    ")
			b.WriteString(outcomeMark(o.Status))
			b.WriteString(" ")
			b.WriteString(o.OriginalName)
			switch o.Status {
			case dateprefix.AlreadyPresent:
				b.WriteString(subtleStyle.Render("  = " + o.MatchedTargetName))
			case dateprefix.NeedsUpload:
				b.WriteString(subtleStyle.Render("  → " + o.ExpectedPrefixedName))
			}
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("  %d to upload, %d already present\n",
			len(rep.FilesToAdd), len(rep.FileOutcomes)-len(rep.FilesToAdd)))
	}
	return b.String()
}

// Summary formats the end-of-batch totals.
func Summary(reps []service.Report) string {
	counts := map[service.ReportStatus]int{}
	uploads := 0
	for _, rep := range reps {
		counts[rep.Status]++
		uploads += len(rep.FilesToAdd)
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render("summary"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  accounts: %d\n", len(reps)))
	b.WriteString(fmt.Sprintf("  reconciled: %d  partial: %d  no match: %d  unreachable: %d  source errors: %d\n",
		counts[service.StatusReconciled], counts[service.StatusPartial], counts[service.StatusNoMatch],
		counts[service.StatusUnreachable], counts[service.StatusSourceError]))
	b.WriteString(fmt.Sprintf("  files needing upload: %d\n", uploads))
	return b.String()
}

func statusStyle(s service.ReportStatus) lipgloss.Style {
	switch s {
	case service.StatusReconciled:
		return okStyle
	case service.StatusPartial:
		return warnStyle
	default:
		return badStyle
	}
}

func outcomeMark(s dateprefix.Status) string {
	switch s {
	case dateprefix.AlreadyPresent:
		return okStyle.Render("✓")
	case dateprefix.NeedsRename:
		return warnStyle.Render("~")
	default:
		return badStyle.Render("+")
	}
}
