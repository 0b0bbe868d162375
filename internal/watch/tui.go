// Package watch renders a live dashboard over the naming job history.
// Jobs run as detached processes and report only through the history
// database, so the dashboard polls its modification marker instead of
// talking to the jobs themselves.
package watch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/timvw/tmux-organize/internal/history"
	"github.com/timvw/tmux-organize/internal/model"
)

// messages
type jobsMsg struct {
	jobs    []model.JobRecord
	lastMod int64
	err     error
}

type freshMsg struct{ lastMod int64 }

type tickMsg struct{}

// TUI runs the interactive job dashboard.
type TUI struct {
	History *history.DB
	Refresh time.Duration // poll interval, 0 disables auto-refresh
	Limit   int           // rows to load per refresh (default 200)
	Theme   Theme
}

// watchModel implements tea.Model.
type watchModel struct {
	db      *history.DB
	ctx     context.Context
	refresh time.Duration
	limit   int
	st      styles

	jobs     []model.JobRecord
	filtered []int // indices into jobs, filter applied, chronological
	cursor   int
	lastMod  int64

	filtering bool
	filter    textinput.Model

	spin    spinner.Model
	loading bool

	width  int
	height int

	message   string
	loadCount int
}

func (t *TUI) Run(ctx context.Context) error {
	limit := t.Limit
	if limit <= 0 {
		limit = 200
	}

	st := newStyles(t.Theme)

	fi := textinput.New()
	fi.Placeholder = "filter jobs..."
	fi.CharLimit = 128
	fi.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.running

	m := &watchModel{
		db:      t.History,
		ctx:     ctx,
		refresh: t.Refresh,
		limit:   limit,
		st:      st,
		filter:  fi,
		spin:    sp,
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *watchModel) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(m.loadJobs(), m.spin.Tick)
}

// scheduleTick returns a tea.Cmd that fires after the refresh interval,
// or nil when auto-refresh is disabled.
func (m *watchModel) scheduleTick() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	return tea.Tick(m.refresh, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *watchModel) loadJobs() tea.Cmd {
	db := m.db
	limit := m.limit
	return func() tea.Msg {
		jobs, err := db.Recent(limit)
		if err != nil {
			return jobsMsg{err: err}
		}
		last, _ := db.LastModified()
		return jobsMsg{jobs: jobs, lastMod: last}
	}
}

// checkFresh reads only the modification marker; a full reload happens
// just when something actually changed.
func (m *watchModel) checkFresh() tea.Cmd {
	db := m.db
	return func() tea.Msg {
		last, err := db.LastModified()
		if err != nil {
			return freshMsg{lastMod: -1}
		}
		return freshMsg{lastMod: last}
	}
}

// applyFilter rebuilds the visible row set from the current query. Fuzzy
// matches are re-sorted into chronological order: this is a log, not a
// ranked search.
func (m *watchModel) applyFilter() {
	query := strings.TrimSpace(m.filter.Value())
	m.filtered = m.filtered[:0]
	if query == "" {
		for i := range m.jobs {
			m.filtered = append(m.filtered, i)
		}
		return
	}

	hay := make([]string, len(m.jobs))
	for i, j := range m.jobs {
		hay[i] = strings.ToLower(strings.Join([]string{
			j.TargetKey, j.Name, string(j.Status), j.Reason, j.Provider, j.Model,
		}, " "))
	}
	for _, match := range fuzzy.Find(strings.ToLower(query), hay) {
		m.filtered = append(m.filtered, match.Index)
	}
	sort.Ints(m.filtered)
}

func (m *watchModel) clampCursor() {
	if m.cursor >= len(m.filtered) {
		m.cursor = len(m.filtered) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case jobsMsg:
		m.loading = false
		if msg.err != nil {
			m.message = fmt.Sprintf("load error: %v", msg.err)
		} else {
			m.jobs = msg.jobs
			m.lastMod = msg.lastMod
			m.loadCount++
			m.applyFilter()
			m.clampCursor()
		}
		return m, m.scheduleTick()

	case freshMsg:
		if msg.lastMod >= 0 && msg.lastMod != m.lastMod {
			m.loading = true
			return m, tea.Batch(m.loadJobs(), m.spin.Tick)
		}
		return m, m.scheduleTick()

	case tickMsg:
		if m.loading {
			return m, m.scheduleTick()
		}
		return m, m.checkFresh()
	}

	return m, nil
}

func (m *watchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		return m.handleFilterKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.filtered)-1 {
			m.cursor++
		}

	case "/":
		m.filtering = true
		m.filter.Focus()
		return m, textinput.Blink

	case "esc", "escape":
		if m.filter.Value() != "" {
			m.filter.SetValue("")
			m.applyFilter()
			m.clampCursor()
		}

	case "r":
		m.loading = true
		m.message = ""
		return m, tea.Batch(m.loadJobs(), m.spin.Tick)
	}

	return m, nil
}

func (m *watchModel) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "escape":
		m.filtering = false
		m.filter.SetValue("")
		m.filter.Blur()
		m.applyFilter()
		m.clampCursor()
		return m, nil

	case "enter":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	m.clampCursor()
	return m, cmd
}

func (m *watchModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	// Header: title + keybindings
	b.WriteString(m.st.title.Render("tmux-organize"))
	b.WriteString("  ")
	if m.filtering {
		b.WriteString(m.st.dim.Render("Enter=apply  Esc=clear"))
	} else {
		b.WriteString(m.st.dim.Render("j/k=move  /=filter  r=reload  q=quit"))
	}
	if m.loading {
		b.WriteString("  ")
		b.WriteString(m.spin.View())
		b.WriteString(m.st.running.Render("refreshing"))
	}
	b.WriteString("\n")

	// Column layout: fixed widths left, name takes the rest.
	timeW, kindW, targetW, statusW, durW := 8, 7, 14, 10, 7
	gap := "  "
	nameW := m.width - timeW - kindW - targetW - statusW - durW - len(gap)*5 - 1
	if nameW < 10 {
		nameW = 10
	}

	header := strings.Join([]string{
		pad("TIME", timeW), pad("KIND", kindW), pad("TARGET", targetW),
		pad("STATUS", statusW), pad("DUR", durW), pad("NAME", nameW),
	}, gap)
	b.WriteString(" ")
	b.WriteString(m.st.header.Render(header))
	b.WriteString("\n")

	rows := m.height - 4
	if rows < 3 {
		rows = 3
	}

	// Scroll window keeping the cursor visible.
	start := 0
	end := rows
	if m.cursor >= end {
		end = m.cursor + 1
		start = end - rows
	}

	if len(m.filtered) == 0 {
		if m.loading {
			b.WriteString("  loading jobs...\n")
		} else {
			b.WriteString("  no jobs recorded yet\n")
		}
	}
	for i := start; i < end && i < len(m.filtered); i++ {
		b.WriteString(m.renderRow(m.jobs[m.filtered[i]], i == m.cursor,
			timeW, kindW, targetW, statusW, durW, nameW, gap))
		b.WriteString("\n")
	}

	// Summary line
	var ok, failed, superseded int
	for _, j := range m.jobs {
		switch j.Status {
		case model.JobSucceeded:
			ok++
		case model.JobFailed:
			failed++
		case model.JobSuperseded:
			superseded++
		}
	}
	summary := fmt.Sprintf("  %d succeeded | %d failed | %d superseded | %d shown | refresh #%d",
		ok, failed, superseded, len(m.filtered), m.loadCount)
	b.WriteString(m.st.dim.Render(summary))
	b.WriteString("\n")

	if m.filtering {
		b.WriteString("  / ")
		b.WriteString(m.filter.View())
		b.WriteString("\n")
	} else if q := m.filter.Value(); q != "" {
		b.WriteString(m.st.dim.Render(fmt.Sprintf("  filter: %q (%d/%d)", q, len(m.filtered), len(m.jobs))))
		b.WriteString("\n")
	}
	if m.message != "" {
		b.WriteString(m.st.dim.Render("  " + m.message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *watchModel) renderRow(rec model.JobRecord, selected bool, timeW, kindW, targetW, statusW, durW, nameW int, gap string) string {
	name := rec.Name
	if rec.Status == model.JobFailed && rec.Reason != "" {
		name = rec.Reason
	}
	if rec.CacheHit {
		name += " (cached)"
	}

	plain := strings.Join([]string{
		pad(rec.FinishedAt.Format("15:04:05"), timeW),
		pad(rec.Kind, kindW),
		pad(strings.TrimPrefix(rec.TargetKey, rec.Kind+"/"), targetW),
		pad(string(rec.Status), statusW),
		pad(fmtDuration(rec.DurationMs), durW),
		pad(name, nameW),
	}, gap)

	if selected {
		return m.st.selected.Render("→" + plain)
	}
	return m.statusStyle(rec.Status).Render(" " + plain)
}

func (m *watchModel) statusStyle(s model.JobStatus) lipgloss.Style {
	switch s {
	case model.JobSucceeded:
		return m.st.succeeded
	case model.JobFailed:
		return m.st.failed
	case model.JobSuperseded:
		return m.st.superseded
	default:
		return m.st.text
	}
}

// pad truncates or pads a plain (unstyled) string to an exact display
// width. Styling happens after padding so escape codes never count.
func pad(s string, w int) string {
	s = runewidth.Truncate(s, w, "…")
	if d := w - runewidth.StringWidth(s); d > 0 {
		return s + strings.Repeat(" ", d)
	}
	return s
}

func fmtDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", ms)
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
