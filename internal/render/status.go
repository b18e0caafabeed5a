// Package render formats application state for the terminal.
package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pandeptwidyaop/release-radar/internal/models"
)

var (
	colorOK      = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
	colorMuted   = lipgloss.Color("#6C7A89")
	colorBorder  = lipgloss.Color("#16858E")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).MarginTop(1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	okStyle      = lipgloss.NewStyle().Foreground(colorOK)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
)

const unknown = "?"

// Status writes the installed and not-installed applications as two tables.
func Status(w io.Writer, apps []*models.App) error {
	var installed, absent []*models.App
	for _, app := range apps {
		if app.Installed {
			installed = append(installed, app)
		} else {
			absent = append(absent, app)
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Installed (%d)", len(installed))))
	b.WriteString("\n")
	if len(installed) == 0 {
		b.WriteString(mutedStyle.Render("  none"))
	} else {
		b.WriteString(installedTable(installed).Render())
	}
	b.WriteString("\n")

	if len(absent) > 0 {
		b.WriteString(titleStyle.Render(fmt.Sprintf("Not installed (%d)", len(absent))))
		b.WriteString("\n")
		b.WriteString(absentTable(absent).Render())
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func installedTable(apps []*models.App) *table.Table {
	t := newTable("HOST", "APP", "INSTALLED", "LATEST", "MISSING", "DAYS BEHIND", "CLOSES", "DEPENDS ON", "STATUS")
	for _, app := range apps {
		t.Row(
			app.HostName,
			app.Name,
			BuildCell(app.CurrentBuild, app.CurrentBuildError),
			BuildCell(app.LatestBuild, app.LatestBuildError),
			joinInts(app.MissingBuilds, ""),
			DaysBehindCell(app),
			joinInts(app.ClosedIssueIDs, "#"),
			strings.Join(app.DependencyProjectIDs, ", "),
			StatusCell(app),
		)
	}
	return t
}

func absentTable(apps []*models.App) *table.Table {
	t := newTable("HOST", "APP", "PROJECT", "LATEST")
	for _, app := range apps {
		t.Row(app.HostName, app.Name, app.ProjectID, BuildCell(app.LatestBuild, app.LatestBuildError))
	}
	return t
}

// BuildCell renders a build number, "error" when resolution failed, or "?"
// when it is unknown.
func BuildCell(build *int, failed bool) string {
	switch {
	case failed:
		return errorStyle.Render("error")
	case build == nil:
		return mutedStyle.Render(unknown)
	default:
		return strconv.Itoa(*build)
	}
}

// DaysBehindCell renders whole days between the installed and latest builds.
func DaysBehindCell(app *models.App) string {
	if app.UpToDate {
		return "0"
	}
	days := app.DaysBehind()
	if days < 0 {
		return mutedStyle.Render(unknown)
	}
	return strconv.Itoa(days)
}

// StatusCell summarises an application's state in a word or two.
func StatusCell(app *models.App) string {
	switch {
	case app.Updating:
		return warningStyle.Render("updating")
	case app.UpdateError != "":
		return errorStyle.Render("update failed")
	case app.CurrentBuildError || app.LatestBuildError:
		return errorStyle.Render("unresolved")
	case app.UpToDate:
		return okStyle.Render("up to date")
	case app.CurrentBuild == nil || app.LatestBuild == nil:
		return mutedStyle.Render("unknown")
	default:
		return warningStyle.Render(fmt.Sprintf("behind %d", len(app.MissingBuilds)))
	}
}

func joinInts(values []int, prefix string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = prefix + strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
