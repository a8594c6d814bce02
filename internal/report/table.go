package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/signalsfoundry/constellation-scheduler/core"
	"github.com/signalsfoundry/constellation-scheduler/model"
)

const (
	colorObservation = "#7CFC00"
	colorDownload    = "#1E90FF"
	colorDropped     = "#FF6347"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
)

// TableColumns are the column titles used by RenderTable and the TUI.
var TableColumns = []string{"Task", "Type", "Setup", "Start", "Proc", "Energy", "Data"}

var columnWidths = []int{10, 12, 8, 9, 8, 9, 9}

// Row formats one plan entry into TableColumns cells.
func Row(e model.PlanEntry) []string {
	return []string{
		e.TaskID,
		e.Kind.String(),
		fmt.Sprintf("%.4f", e.SetupTime),
		fmt.Sprintf("%.4f", e.StartTime),
		fmt.Sprintf("%.4f", e.ProcessingTime),
		fmt.Sprintf("%.4f", e.EnergyStatus),
		fmt.Sprintf("%.4f", e.DataStatus),
	}
}

// ColumnWidths returns the cell widths used by RenderTable.
func ColumnWidths() []int {
	return append([]int(nil), columnWidths...)
}

// RenderTable renders every satellite's plan as a styled text table, one
// section per satellite in ID order.
func RenderTable(schedule model.Schedule) string {
	var sections []string
	for _, satID := range schedule.SatelliteIDs() {
		sections = append(sections, renderPlan(satID, schedule[satID]))
	}
	if len(sections) == 0 {
		return dimStyle.Render("No satellites scheduled")
	}
	return strings.Join(sections, "\n\n")
}

func renderPlan(satID string, plan model.Plan) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Satellite %s", satID)),
		headerStyle.Render(padCells(TableColumns)),
	}
	if len(plan) == 0 {
		lines = append(lines, dimStyle.Render("  (empty plan)"))
		return strings.Join(lines, "\n")
	}
	for _, e := range plan {
		color := colorObservation
		if e.Kind == model.ProcessDownload {
			color = colorDownload
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(padCells(Row(e))))
	}
	return strings.Join(lines, "\n")
}

func padCells(cells []string) string {
	var b strings.Builder
	for i, c := range cells {
		w := columnWidths[i]
		if i == 0 {
			b.WriteString(fmt.Sprintf("%-*s", w, c))
			continue
		}
		b.WriteString(fmt.Sprintf(" %*s", w, c))
	}
	return b.String()
}

// SatelliteSummary is the per-satellite outcome of a run.
type SatelliteSummary struct {
	SatelliteID  string
	Observations int
	Downloads    int
	Dropped      int
	FinalData    float64
	FinalEnergy  float64
	EndTime      float64
}

// Summarize counts entries and dropped observations per satellite and reports
// the levels after the last entry.
func Summarize(schedule model.Schedule, dropped []core.DroppedObservation) []SatelliteSummary {
	droppedBySat := make(map[string]int)
	for _, d := range dropped {
		droppedBySat[d.SatelliteID]++
	}

	out := make([]SatelliteSummary, 0, len(schedule))
	for _, satID := range schedule.SatelliteIDs() {
		plan := schedule[satID]
		s := SatelliteSummary{
			SatelliteID:  satID,
			Observations: plan.Count(model.ProcessObservation),
			Downloads:    plan.Count(model.ProcessDownload),
			Dropped:      droppedBySat[satID],
		}
		if last, ok := plan.Last(); ok {
			s.FinalData = last.DataStatus
			s.FinalEnergy = last.EnergyStatus
			s.EndTime = last.EndTime()
		}
		out = append(out, s)
	}
	return out
}

// RenderSummary renders the summaries as a compact styled block.
func RenderSummary(summaries []SatelliteSummary) string {
	lines := []string{
		headerStyle.Render(fmt.Sprintf("%-10s %6s %6s %8s %9s %9s %9s", "Satellite", "Obsv", "Dwd", "Dropped", "Data", "Energy", "End")),
	}
	for _, s := range summaries {
		line := fmt.Sprintf("%-10s %6d %6d %8d %9.4f %9.4f %9.4f",
			s.SatelliteID, s.Observations, s.Downloads, s.Dropped, s.FinalData, s.FinalEnergy, s.EndTime)
		if s.Dropped > 0 {
			line = lipgloss.NewStyle().Foreground(lipgloss.Color(colorDropped)).Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
