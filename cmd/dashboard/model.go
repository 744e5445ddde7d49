package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"stockboard/internal/dashboard"
	"stockboard/internal/stock"
	"stockboard/internal/timerange"
)

// Styles.
var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	demoStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11")) // black on yellow
	symbolStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	nameStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	priceStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	gainStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	volumeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	rangeActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	rangeIdleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

var rangeTokens = timerange.Tokens()

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Messages.
type searchRequestMsg struct{ symbol string }

type searchResultMsg struct {
	gen  uint64
	data *stock.Data
	err  error
}

// Model.
type model struct {
	session *dashboard.Session
	logger  *slog.Logger
	timeout time.Duration

	input    textinput.Model
	rangeIdx int
	pending  string // symbol of the in-flight search, "" when idle
	initial  string // symbol searched on startup

	width, height int
	ready         bool
}

func initialModel(sess *dashboard.Session, logger *slog.Logger, timeout time.Duration, startSymbol string) model {
	ti := textinput.New()
	ti.Placeholder = "AAPL"
	ti.Prompt = "Symbol: "
	ti.CharLimit = 10
	ti.Width = 12
	return model{
		session:  sess,
		logger:   logger,
		timeout:  timeout,
		input:    ti,
		rangeIdx: 2, // 1M
		initial:  startSymbol,
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg { return searchRequestMsg{symbol: m.initial} }
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.input.Focused() {
			switch msg.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "enter":
				raw := m.input.Value()
				m.input.Blur()
				m.input.SetValue("")
				return m.beginSearch(raw)
			case "esc":
				m.input.Blur()
				return m, nil
			}
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "/", "s":
			return m, m.input.Focus()
		case "r":
			if cur := m.session.Current(); cur != nil {
				return m.beginSearch(cur.Symbol)
			}
			return m, nil
		case "left", "h":
			m.rangeIdx = (m.rangeIdx + len(rangeTokens) - 1) % len(rangeTokens)
			return m, nil
		case "right", "l", "tab":
			m.rangeIdx = (m.rangeIdx + 1) % len(rangeTokens)
			return m, nil
		case "1", "2", "3", "4", "5", "6":
			m.rangeIdx = int(msg.String()[0] - '1')
			return m, nil
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		return m, nil

	case searchRequestMsg:
		return m.beginSearch(msg.symbol)

	case searchResultMsg:
		// Results from a superseded search are dropped.
		if !m.session.Complete(msg.gen, msg.data, msg.err) {
			return m, nil
		}
		m.pending = ""
		if msg.err != nil {
			m.logger.Error("search failed", "error", msg.err)
		} else {
			m.logger.Info("symbol loaded", "symbol", msg.data.Symbol, "points", len(msg.data.History))
		}
		return m, nil
	}

	return m, nil
}

// beginSearch registers the search with the session and returns the fetch
// command. An empty symbol is ignored.
func (m model) beginSearch(raw string) (model, tea.Cmd) {
	sym, gen, err := m.session.Begin(raw)
	if err != nil {
		return m, nil
	}
	m.pending = sym
	sess, timeout := m.session, m.timeout
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		data, ferr := sess.Fetch(ctx, sym)
		return searchResultMsg{gen: gen, data: data, err: ferr}
	}
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.headerBar())
	b.WriteString("\n\n")

	b.WriteString(" " + m.input.View())
	b.WriteString("\n")

	switch m.session.State() {
	case dashboard.StateLoading:
		b.WriteString(dimStyle.Render(" Fetching " + m.pending + "..."))
		b.WriteString("\n")
	case dashboard.StateErrored:
		b.WriteString(errStyle.Render(" " + friendlyError(m.session.Err())))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if data := m.session.Current(); data != nil {
		m.renderData(&b, data)
	} else if m.session.State() == dashboard.StateIdle {
		b.WriteString(dimStyle.Render(" Press / and enter a ticker symbol to begin."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.footerBar())
	return b.String()
}

func (m model) headerBar() string {
	title := titleStyle.Render(" stockboard ")
	badge := ""
	if m.session.Demo() {
		badge = demoStyle.Render(" DEMO DATA ")
	}
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(badge)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + badge
}

func (m model) footerBar() string {
	if m.input.Focused() {
		return dimStyle.Render(" enter search   esc cancel   ctrl+c quit")
	}
	return dimStyle.Render(" / search   " + "←/→ range   r refresh   q quit")
}

func (m model) renderData(b *strings.Builder, data *stock.Data) {
	q := data.Quote
	tok := rangeTokens[m.rangeIdx]
	window := timerange.Filter(data.History, tok, time.Now())

	b.WriteString(" " + symbolStyle.Render(data.Symbol))
	if data.Overview.Name != "" && data.Overview.Name != data.Symbol {
		b.WriteString("  " + nameStyle.Render(data.Overview.Name))
	}
	b.WriteString("\n")

	b.WriteString(" " + priceStyle.Render(fmt.Sprintf("$%.2f", q.Price)))
	b.WriteString("  " + signStyle(q.Change).Render(fmt.Sprintf("%+.2f (%+.2f%%)", q.Change, q.ChangePercent)))
	if q.LatestTradingDay != "" {
		b.WriteString("  " + dimStyle.Render(q.LatestTradingDay))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render(fmt.Sprintf(" O %.2f  H %.2f  L %.2f  Prev %.2f  Vol %s",
		q.Open, q.High, q.Low, q.PrevClose, formatCount(float64(q.Volume)))))
	b.WriteString("\n")
	b.WriteString(m.overviewLine(data.Overview))
	b.WriteString("\n\n")

	b.WriteString(m.rangeBar(window))
	b.WriteString("\n\n")

	if len(window) == 0 {
		b.WriteString(dimStyle.Render(" (no history in range)"))
		b.WriteString("\n")
		return
	}

	closes := window.Closes()
	lo, hi := minMax(closes)
	b.WriteString(labelStyle.Render(fmt.Sprintf(" Close  %.2f – %.2f", lo, hi)))
	b.WriteString("\n")
	b.WriteString(" " + signStyle(windowChange(closes)).Render(sparkline(closes, m.sparkWidth())))
	b.WriteString("\n")
	b.WriteString(m.dateAxis(window))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render(fmt.Sprintf(" Volume  avg %s", formatCount(mean(window.Volumes())))))
	b.WriteString("\n")
	b.WriteString(" " + volumeStyle.Render(sparkline(window.Volumes(), m.sparkWidth())))
	b.WriteString("\n")
}

func (m model) overviewLine(o stock.Overview) string {
	parts := make([]string, 0, 4)
	if o.High52 != nil && o.Low52 != nil {
		parts = append(parts, fmt.Sprintf("52w %.2f/%.2f", *o.High52, *o.Low52))
	}
	if cap := formatMarketCap(o.MarketCap); cap != "" {
		parts = append(parts, "MCap "+cap)
	}
	if o.PERatio != "" && o.PERatio != "None" {
		parts = append(parts, "P/E "+o.PERatio)
	}
	if len(parts) == 0 {
		return ""
	}
	return labelStyle.Render(" " + strings.Join(parts, "  "))
}

// rangeBar renders the range selector plus the percent move over the
// selected window.
func (m model) rangeBar(window stock.History) string {
	var b strings.Builder
	b.WriteString(" ")
	for i, tok := range rangeTokens {
		if i == m.rangeIdx {
			b.WriteString(rangeActiveStyle.Render(" " + string(tok) + " "))
		} else {
			b.WriteString(rangeIdleStyle.Render(" " + string(tok) + " "))
		}
		b.WriteString(" ")
	}
	if closes := window.Closes(); len(closes) >= 2 {
		pct := windowChange(closes)
		b.WriteString("  " + signStyle(pct).Render(fmt.Sprintf("%+.2f%%", pct)))
	}
	return b.String()
}

func (m model) dateAxis(window stock.History) string {
	first := window[0].Date.String()
	last := window[len(window)-1].Date.String()
	gap := m.sparkWidth() - len(first) - len(last)
	if gap < 1 {
		gap = 1
	}
	return dimStyle.Render(" " + first + strings.Repeat(" ", gap) + last)
}

func (m model) sparkWidth() int {
	w := m.width - 4
	if w > 80 {
		w = 80
	}
	if w < 10 {
		w = 10
	}
	return w
}

// sparkline renders vals as one row of block runes, resampling to at most
// width columns.
func sparkline(vals []float64, width int) string {
	cols := resample(vals, width)
	if len(cols) == 0 {
		return ""
	}
	lo, hi := minMax(cols)
	var b strings.Builder
	for _, v := range cols {
		idx := 0
		if hi > lo {
			idx = int(math.Round((v - lo) / (hi - lo) * float64(len(sparkRunes)-1)))
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}

// resample reduces vals to width columns by bucket mean. Shorter inputs pass
// through unchanged.
func resample(vals []float64, width int) []float64 {
	if width <= 0 || len(vals) <= width {
		return vals
	}
	out := make([]float64, width)
	for i := range out {
		lo := i * len(vals) / width
		hi := (i + 1) * len(vals) / width
		if hi <= lo {
			hi = lo + 1
		}
		sum := 0.0
		for _, v := range vals[lo:hi] {
			sum += v
		}
		out[i] = sum / float64(hi-lo)
	}
	return out
}

func minMax(vals []float64) (lo, hi float64) {
	for i, v := range vals {
		if i == 0 {
			lo, hi = v, v
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// windowChange is the percent move from the first to the last value.
func windowChange(vals []float64) float64 {
	if len(vals) < 2 || vals[0] == 0 {
		return 0
	}
	return (vals[len(vals)-1] - vals[0]) / vals[0] * 100
}

func signStyle(v float64) lipgloss.Style {
	if v < 0 {
		return lossStyle
	}
	return gainStyle
}

func formatCount(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// formatMarketCap humanizes the raw market cap string; unparseable values
// ("None", "-") render as empty.
func formatMarketCap(s string) string {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return ""
	}
	switch {
	case v >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	default:
		return fmt.Sprintf("$%.0f", v)
	}
}

// friendlyError maps source errors to a short status message.
func friendlyError(err error) string {
	switch {
	case errors.Is(err, stock.ErrInvalidSymbol):
		return "symbol not found"
	case errors.Is(err, stock.ErrRateLimited):
		return "rate limited by provider, try again shortly"
	case errors.Is(err, stock.ErrNoData):
		return "no data for this symbol"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case err == nil:
		return ""
	default:
		return err.Error()
	}
}
