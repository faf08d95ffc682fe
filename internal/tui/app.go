// Package tui is the review interface over the run ledger: pick a recorded
// run, browse its account reports, drill into file outcomes. It reads the
// ledger only; analysis and apply run from the CLI.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/crmsync/internal/database/repository"
)

// Repos are the ledger repositories the app reads from.
type Repos struct {
	Runs    *repository.RunRepo
	Reports *repository.ReportRepo
}

type viewState string

const (
	viewRuns    viewState = "runs"
	viewReports viewState = "reports"
	viewDetail  viewState = "detail"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	badStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// App ties the review views together.
type App struct {
	ctx   context.Context
	repos Repos

	state     viewState
	runs      []repository.Run
	reports   []repository.AccountReport
	outcomes  []repository.FileOutcome
	runCursor int
	repCursor int
	status    string
	width     int
	height    int
}

// New builds the review app.
func New(ctx context.Context, repos Repos) *App {
	return &App{ctx: ctx, repos: repos, state: viewRuns}
}

type runsLoadedMsg struct {
	runs []repository.Run
	err  error
}

type reportsLoadedMsg struct {
	reports []repository.AccountReport
	err     error
}

type outcomesLoadedMsg struct {
	outcomes []repository.FileOutcome
	err      error
}

func (a *App) Init() tea.Cmd {
	return a.loadRuns
}

func (a *App) loadRuns() tea.Msg {
	runs, err := a.repos.Runs.List(a.ctx)
	return runsLoadedMsg{runs: runs, err: err}
}

func (a *App) loadReports(runID string) tea.Cmd {
	return func() tea.Msg {
		reports, err := a.repos.Reports.ListByRun(a.ctx, runID)
		return reportsLoadedMsg{reports: reports, err: err}
	}
}

func (a *App) loadOutcomes(reportID string) tea.Cmd {
	return func() tea.Msg {
		outcomes, err := a.repos.Reports.Outcomes(a.ctx, reportID)
		return outcomesLoadedMsg{outcomes: outcomes, err: err}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
	case runsLoadedMsg:
		if msg.err != nil {
			a.status = fmt.Sprintf("load runs: %v", msg.err)
			return a, nil
		}
		a.runs = msg.runs
		a.clampCursors()
	case reportsLoadedMsg:
		if msg.err != nil {
			a.status = fmt.Sprintf("load reports: %v", msg.err)
			return a, nil
		}
		a.reports = msg.reports
		a.repCursor = 0
		a.state = viewReports
	case outcomesLoadedMsg:
		if msg.err != nil {
			a.status = fmt.Sprintf("load outcomes: %v", msg.err)
			return a, nil
		}
		a.outcomes = msg.outcomes
		a.state = viewDetail
	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if a.state == viewRuns {
			return a, tea.Quit
		}
		a.back()
	case "esc":
		a.back()
	case "up", "k":
		a.move(-1)
	case "down", "j":
		a.move(1)
	case "r":
		if a.state == viewRuns {
			return a, a.loadRuns
		}
	case "enter":
		switch a.state {
		case viewRuns:
			if len(a.runs) > 0 {
				return a, a.loadReports(a.runs[a.runCursor].ID)
			}
		case viewReports:
			if len(a.reports) > 0 {
				return a, a.loadOutcomes(a.reports[a.repCursor].ID)
			}
		}
	}
	return a, nil
}

func (a *App) back() {
	switch a.state {
	case viewDetail:
		a.state = viewReports
	case viewReports:
		a.state = viewRuns
	}
}

func (a *App) move(delta int) {
	switch a.state {
	case viewRuns:
		a.runCursor += delta
	case viewReports:
		a.repCursor += delta
	}
	a.clampCursors()
}

func (a *App) clampCursors() {
	if a.runCursor < 0 {
		a.runCursor = 0
	}
	if n := len(a.runs); n > 0 && a.runCursor >= n {
		a.runCursor = n - 1
	}
	if a.repCursor < 0 {
		a.repCursor = 0
	}
	if n := len(a.reports); n > 0 && a.repCursor >= n {
		a.repCursor = n - 1
	}
}

func (a *App) View() string {
	var b strings.Builder
	switch a.state {
	case viewRuns:
		b.WriteString(titleStyle.Render("crmsync — recorded runs"))
		b.WriteString("\n\n")
		if len(a.runs) == 0 {
			b.WriteString("  no runs recorded yet\n")
		}
		for i, run := range a.runs {
			line := fmt.Sprintf("  %s  %s  accounts=%d start=%d  %s",
				run.StartedAt.Format("2006-01-02 15:04"), run.ID[:8], run.AccountsTotal, run.StartFrom, run.Status)
			if i == a.runCursor {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString(helpStyle.Render("\n enter: open  r: reload  q: quit"))
	case viewReports:
		b.WriteString(titleStyle.Render("accounts"))
		b.WriteString("\n\n")
		for i, rep := range a.reports {
			matched := "--"
			if rep.MatchedName != nil {
				matched = *rep.MatchedName
			}
			line := fmt.Sprintf("  %3d  %-32s %s  %s", rep.Position, trunc(rep.Folder, 32), statusBadge(rep.Status), matched)
			if rep.Ambiguous {
				line += warnStyle.Render(" [ambiguous]")
			}
			if i == a.repCursor {
				line = selectedStyle.Render(line)
			}
			b.WriteString(line + "\n")
		}
		b.WriteString(helpStyle.Render("\n enter: files  esc: back"))
	case viewDetail:
		rep := a.reports[a.repCursor]
		b.WriteString(titleStyle.Render(rep.Folder))
		b.WriteString("\n\n")
		if note := rep.Note; note != nil && *note != "" {
			b.WriteString(helpStyle.Render("  "+*note) + "\n\n")
		}
		if len(a.outcomes) == 0 {
			b.WriteString("  no file outcomes recorded\n")
		}
		for _, o := range a.outcomes {
			mark := badStyle.Render("+")
			detail := o.ExpectedName
			if o.Status == "already_present" {
				mark = okStyle.Render("✓")
				if o.MatchedName != nil {
					detail = *o.MatchedName
				}
			}
			b.WriteString(fmt.Sprintf("  %s %s  %s\n", mark, o.OriginalName, helpStyle.Render(detail)))
		}
		b.WriteString(helpStyle.Render("\n esc: back"))
	}
	if a.status != "" {
		b.WriteString("\n" + badStyle.Render(a.status))
	}
	return b.String()
}

func statusBadge(status string) string {
	switch status {
	case "reconciled":
		return okStyle.Render("reconciled ")
	case "partial_match":
		return warnStyle.Render("partial    ")
	case "no_match":
		return badStyle.Render("no match   ")
	case "account_unreachable":
		return badStyle.Render("unreachable")
	default:
		return badStyle.Render(fmt.Sprintf("%-11s", status))
	}
}

func trunc(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
