package cli

import (
	"fmt"
	"strings"
	"time"

	"strata/internal/core/ports"
	"strata/internal/data/history"
	"strata/internal/engine/runtime"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))

	packageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	memberStyle = lipgloss.NewStyle().PaddingLeft(4)
)

func renderReport(report *runtime.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render(report.BaseDir),
		subtitleStyle.Render(fmt.Sprintf("(%d packages, %d objects, %d files, %s)",
			len(report.Packages), report.Objects(), report.Files, report.Duration.Round(time.Millisecond))))

	for _, pkg := range report.Packages {
		b.WriteString(packageStyle.Render(pkg.Name) + "\n")
		for i, obj := range pkg.Objects {
			branch := "├── "
			if i == len(pkg.Objects)-1 {
				branch = "└── "
			}
			line := branch + obj.Name + " " + kindStyle.Render(strings.ToLower(obj.Kind.String()))
			if obj.Super != "" {
				line += kindStyle.Render(" extends ") + obj.Super
			}
			b.WriteString(line + "\n")
			if len(obj.Members) > 0 {
				b.WriteString(memberStyle.Render(strings.Join(obj.Members, ", ")) + "\n")
			}
		}
	}
	return b.String()
}

func renderHistory(res ports.HistoryResult) string {
	var b strings.Builder
	if len(res.Runs) == 0 {
		b.WriteString(subtitleStyle.Render("no runs recorded") + "\n")
		return b.String()
	}

	for _, run := range res.Runs {
		outcome := successStyle.Render("ok    ")
		if run.Outcome == history.OutcomeFailed {
			outcome = errorStyle.Render("failed")
		}
		fmt.Fprintf(&b, "%s  %s  %-7s %-24s %3d files %3d objects %8s  %s\n",
			outcome,
			run.Started.Local().Format("2006-01-02 15:04:05"),
			run.Command,
			run.EntryPoint,
			run.Files,
			run.Objects,
			run.Duration.Round(time.Millisecond),
			subtitleStyle.Render(run.ID),
		)
		if run.Error != "" {
			b.WriteString(memberStyle.Render(errorStyle.Render(run.Error)) + "\n")
		}
	}

	s := res.Summary
	fmt.Fprintf(&b, "\n%s\n", subtitleStyle.Render(fmt.Sprintf("%d runs, %d failed, avg %s",
		s.Runs, s.Failed, s.AvgDuration.Round(time.Millisecond))))
	return b.String()
}
