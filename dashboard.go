package main

import (
	"context"
	"fmt"
	"time"

	timea "github.com/caarlos0/timea.go"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/spf13/cobra"

	"github.com/proxypal/proxypal/internal/config"
	"github.com/proxypal/proxypal/internal/gateway"
	"github.com/proxypal/proxypal/internal/history"
	"github.com/proxypal/proxypal/internal/proto"
)

const (
	dashboardRefresh = 2 * time.Second
	dashboardRows    = 15
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Live view of proxy health and traffic",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if !isOutputTTY() {
			return newUserErrorf("the dashboard needs a terminal")
		}
		db, err := history.Open(config.HistoryDBPath())
		if err != nil {
			return proxypalError{err, "Could not open the history database."}
		}
		defer func() { _ = db.Close() }()

		p := tea.NewProgram(newDashboard(db, gateway.New(cfg.Port)), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return proxypalError{err, "The dashboard crashed."}
		}
		return nil
	},
}

type dashTickMsg time.Time

type dashDataMsg struct {
	stats   history.Stats
	totals  history.Totals
	recent  []proto.RequestRecord
	healthy bool
	latency time.Duration
	err     error
}

type dashboardModel struct {
	db     *history.DB
	gw     *gateway.Client
	table  table.Model
	spin   spinner.Model
	data   dashDataMsg
	loaded bool
}

func newDashboard(db *history.DB, gw *gateway.Client) dashboardModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(
		lipgloss.NewStyle().Foreground(lipgloss.Color("212"))))

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "When", Width: 16},
			{Title: "Status", Width: 6},
			{Title: "Model", Width: 34},
			{Title: "Tokens", Width: 15},
			{Title: "Latency", Width: 9},
		}),
		table.WithFocused(true),
		table.WithHeight(dashboardRows),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.Bold(true).Foreground(lipgloss.Color("212"))
	st.Selected = st.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(st)

	return dashboardModel{db: db, gw: gw, table: t, spin: sp}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.refresh)
}

// refresh reloads everything the dashboard shows. It runs off the update
// loop, so blocking on the probe is fine.
func (m dashboardModel) refresh() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), dashboardRefresh)
	defer cancel()

	var msg dashDataMsg
	msg.stats, msg.err = m.db.Stats(time.Now())
	msg.totals, _ = m.db.Totals()
	msg.recent, _ = m.db.Recent(dashboardRows * 2)
	msg.healthy, msg.latency = m.gw.Health(ctx)
	return msg
}

func dashTick() tea.Cmd {
	return tea.Tick(dashboardRefresh, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case dashTickMsg:
		return m, m.refresh
	case dashDataMsg:
		m.data = msg
		m.loaded = true
		m.table.SetRows(dashboardTableRows(msg.recent))
		return m, dashTick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func dashboardTableRows(recs []proto.RequestRecord) []table.Row {
	rows := make([]table.Row, 0, len(recs))
	for _, r := range recs {
		model := r.Model
		if model == "" {
			model = r.Path
		}
		rows = append(rows, table.Row{
			timea.Of(r.Timestamp),
			fmt.Sprintf("%d", r.Status),
			model,
			fmt.Sprintf("%s/%s", humanize.Comma(r.TokensIn), humanize.Comma(r.TokensOut)),
			latencyLabel(r.Duration),
		})
	}
	return rows
}

func (m dashboardModel) View() string {
	if !m.loaded {
		return "\n  " + m.spin.View() + " Loading dashboard...\n"
	}

	s := stdoutStyles()
	proxy := s.ErrorDetails.Render("stopped")
	if m.data.healthy {
		proxy = latencyStyle(m.data.latency).Render(
			fmt.Sprintf("healthy, %dms", m.data.latency.Milliseconds()))
	}

	head := fmt.Sprintf(
		"  %s %s\n  %s %s requests today, %s tokens, $%.2f estimated\n\n",
		s.Flag.Render("Proxy"), proxy,
		s.Flag.Render("Usage"),
		humanize.Comma(m.data.stats.RequestsToday),
		humanize.Comma(m.data.totals.TokensIn+m.data.totals.TokensOut),
		m.data.totals.Cost,
	)

	return head + m.table.View() + "\n\n  " + s.Comment.Render("q to quit") + "\n"
}

func latencyLabel(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Truncate(time.Millisecond).String()
}

// latencyStyle blends from green to red as probe latency climbs toward a
// second, matching how the request table reads at a glance.
func latencyStyle(d time.Duration) lipgloss.Style {
	good, _ := colorful.Hex("#04B575")
	bad, _ := colorful.Hex("#FF5F87")
	t := float64(d.Milliseconds()) / 1000
	if t > 1 {
		t = 1
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(good.BlendLuv(bad, t).Hex()))
}
