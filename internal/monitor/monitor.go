// Package monitor is the live terminal view: the combined usage snapshot
// for one period, refreshed on an interval.
package monitor

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tokdash/tokdash-go/internal/compute"
	"github.com/tokdash/tokdash-go/internal/output"
	"github.com/tokdash/tokdash-go/internal/types"
)

type Monitor struct {
	engine  *compute.Engine
	options Options
}

type Options struct {
	Period   string
	Interval time.Duration
	NoColor  bool
}

func New(engine *compute.Engine, opts Options) *Monitor {
	if opts.Interval == 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.Period == "" {
		opts.Period = "today"
	}
	return &Monitor{engine: engine, options: opts}
}

func (m *Monitor) Start(ctx context.Context) error {
	p := tea.NewProgram(
		initialModel(m.engine, m.options),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}

type model struct {
	engine     *compute.Engine
	options    Options
	lastUpdate time.Time
	snapshot   types.UsageSnapshot
	loaded     bool
}

type tickMsg time.Time

type updateDataMsg struct {
	snapshot types.UsageSnapshot
}

func initialModel(engine *compute.Engine, opts Options) model {
	return model{
		engine:     engine,
		options:    opts,
		lastUpdate: time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.options.Interval),
		m.updateData(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			return m, m.updateData()
		}

	case tickMsg:
		m.lastUpdate = time.Time(msg)
		return m, tea.Batch(
			tickCmd(m.options.Interval),
			m.updateData(),
		)

	case updateDataMsg:
		m.snapshot = msg.snapshot
		m.loaded = true
	}

	return m, nil
}

func (m model) View() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)
	if m.options.NoColor {
		headerStyle = lipgloss.NewStyle()
	}

	content := headerStyle.Render("Tokdash Live Usage")
	content += "\n\n"

	if !m.loaded {
		content += "Collecting usage data...\n"
		content += "\nPress 'q' to quit"
		return content
	}

	content += output.NewFormatter(m.options.NoColor).FormatUsage(m.snapshot)
	content += fmt.Sprintf("\nLast update: %s", m.lastUpdate.Format("15:04:05"))
	content += "\nPress 'q' to quit, 'r' to refresh"
	return content
}

func (m model) updateData() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return updateDataMsg{snapshot: m.engine.Usage(ctx, m.options.Period)}
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
