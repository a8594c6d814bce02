// Package ui provides a terminal plan browser using Bubble Tea.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/signalsfoundry/constellation-scheduler/core"
	"github.com/signalsfoundry/constellation-scheduler/internal/report"
	"github.com/signalsfoundry/constellation-scheduler/model"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	frameStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("60"))
)

const minTableHeight = 5

// Model is the root Bubble Tea model: one satellite's plan at a time.
type Model struct {
	schedule  model.Schedule
	satIDs    []string
	summaries map[string]report.SatelliteSummary
	index     int

	table  table.Model
	width  int
	height int
}

// New builds a browser over schedule, starting at the first satellite by ID.
func New(schedule model.Schedule, dropped []core.DroppedObservation) Model {
	widths := report.ColumnWidths()
	columns := make([]table.Column, len(report.TableColumns))
	for i, title := range report.TableColumns {
		columns[i] = table.Column{Title: title, Width: widths[i]}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	summaries := make(map[string]report.SatelliteSummary)
	for _, s := range report.Summarize(schedule, dropped) {
		summaries[s.SatelliteID] = s
	}

	m := Model{
		schedule:  schedule,
		satIDs:    schedule.SatelliteIDs(),
		summaries: summaries,
		table:     t,
	}
	m.loadRows()
	return m
}

// Current returns the satellite being shown, or "" for an empty schedule.
func (m Model) Current() string {
	if len(m.satIDs) == 0 {
		return ""
	}
	return m.satIDs[m.index]
}

// Rows returns the rows currently loaded in the table.
func (m Model) Rows() []table.Row {
	return m.table.Rows()
}

func (m *Model) loadRows() {
	plan := m.schedule[m.Current()]
	rows := make([]table.Row, 0, len(plan))
	for _, e := range plan {
		rows = append(rows, table.Row(report.Row(e)))
	}
	m.table.SetRows(rows)
	m.table.SetCursor(0)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l", "tab":
			if n := len(m.satIDs); n > 0 {
				m.index = (m.index + 1) % n
				m.loadRows()
			}
			return m, nil
		case "left", "h", "shift+tab":
			if n := len(m.satIDs); n > 0 {
				m.index = (m.index - 1 + n) % n
				m.loadRows()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Title, summary, footer and frame take ~8 lines.
		h := msg.Height - 8
		if h < minTableHeight {
			h = minTableHeight
		}
		m.table.SetHeight(h)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if len(m.satIDs) == 0 {
		return footerStyle.Render("No satellites scheduled. Press q to quit.") + "\n"
	}

	satID := m.Current()
	title := titleStyle.Render(fmt.Sprintf("Satellite %s  (%d/%d)", satID, m.index+1, len(m.satIDs)))

	s := m.summaries[satID]
	stats := statStyle.Render(fmt.Sprintf(
		"observations %d   downloads %d   dropped %d   data %.4f   energy %.4f   end %.4f h",
		s.Observations, s.Downloads, s.Dropped, s.FinalData, s.FinalEnergy, s.EndTime,
	))

	body := frameStyle.Render(m.table.View())
	if len(m.table.Rows()) == 0 {
		body = frameStyle.Render(footerStyle.Render("empty plan"))
	}

	footer := footerStyle.Render("←/→ satellite • ↑/↓ scroll • q quit")

	return strings.Join([]string{title, stats, body, footer}, "\n") + "\n"
}

// Run starts the browser and blocks until the user quits or ctx is done.
func Run(ctx context.Context, m Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		return fmt.Errorf("run plan browser: %w", err)
	}
	return nil
}
