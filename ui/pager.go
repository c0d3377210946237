package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

const statusBarHeight = 1

var (
	pagerHelpHeight int

	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	statusBarPositionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(cream).
				Background(red).
				Render

	statusBarMessageHelpStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("#B6FFE4")).
					Background(green).
					Render

	helpViewStyle = lipgloss.NewStyle().
			Foreground(statusBarNoteFg).
			Background(lipgloss.AdaptiveColor{Light: "#f2f2f2", Dark: "#1B1B1B"}).
			Render
)

func (m *model) setSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h - statusBarHeight

	if m.showHelp {
		if pagerHelpHeight == 0 {
			pagerHelpHeight = strings.Count(m.helpView(), "\n")
		}
		m.viewport.Height -= (statusBarHeight + pagerHelpHeight)
	}
}

func (m *model) toggleHelp() {
	m.showHelp = !m.showHelp
	m.setSize(m.width, m.height)
	if m.viewport.PastBottom() {
		m.viewport.GotoBottom()
	}
}

// showStatusMessage shows msg in the status bar until the timeout passes.
func (m *model) showStatusMessage(msg string, isError bool) tea.Cmd {
	m.statusMessage = msg
	m.statusIsError = isError
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)

	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

// render lays out the current page and scrolls the spoken chunk into view.
func (m *model) render() {
	width := m.viewport.Width
	if m.cfg.MaxWidth > 0 {
		width = min(width, int(m.cfg.MaxWidth)) //nolint:gosec
	}
	if width <= 0 {
		return
	}
	if m.chunksPage != m.page {
		m.viewport.SetContent("")
		return
	}

	hl := lipgloss.NewStyle().
		Background(lipgloss.Color(m.cfg.HighlightColor)).
		Foreground(lipgloss.Color("0"))
	content, line := highlightPage(m.chunks, m.current, width, hl)
	m.viewport.SetContent(content)

	if line >= 0 && (line < m.viewport.YOffset || line >= m.viewport.YOffset+m.viewport.Height) {
		m.viewport.SetYOffset(max(0, line-m.viewport.Height/3))
	}
}

func (m model) pagerView() string {
	var b strings.Builder
	if m.state == stateOpening || (m.state == stateLoading && m.chunksPage != m.page) {
		fmt.Fprint(&b, m.loadingView())
	} else {
		fmt.Fprint(&b, m.viewport.View()+"\n")
	}

	// Footer
	m.statusBarView(&b)

	if m.showHelp {
		fmt.Fprint(&b, "\n"+m.helpView())
	}

	return b.String()
}

func (m model) loadingView() string {
	label := "Loading page"
	if m.state == stateOpening {
		label = "Opening"
	}
	s := fmt.Sprintf("%s %s%s", m.spinner.View(), label, ellipsis)
	lines := max(0, m.viewport.Height-1)
	return "\n" + indent(s, 2) + strings.Repeat("\n", max(0, lines-2))
}

func (m model) stateView() string {
	switch m.state {
	case stateOpening, stateLoading:
		return m.spinner.View()
	case statePlaying:
		return playingStyle.Render("▶")
	case statePaused:
		return pausedStyle.Render("⏸")
	case stateFinished:
		return dimNormalStyle.Render("✓")
	case stateFailed:
		return errorStyle.Render("✗")
	default:
		return dimNormalStyle.Render("■")
	}
}

func (m model) positionView() string {
	if m.pageCount == 0 {
		return " "
	}
	s := fmt.Sprintf(" p. %d/%d", m.page+1, m.pageCount)
	if m.chunksPage == m.page && len(m.chunks) > 0 {
		s += fmt.Sprintf(" · %d/%d", min(m.sentence+1, len(m.chunks)), len(m.chunks))
	}
	return s + " "
}

func (m model) statusBarView(b *strings.Builder) {
	showStatusMessage := m.statusMessage != ""

	// Logo
	logo := logoView()

	// Reading position
	position := statusBarPositionStyle(m.positionView())

	// "Help" note
	var helpNote string
	if showStatusMessage {
		helpNote = statusBarMessageHelpStyle(" ? Help ")
	} else {
		helpNote = statusBarHelpStyle(" ? Help ")
	}

	// Note
	var note string
	if showStatusMessage {
		note = m.statusMessage
	} else {
		note = fmt.Sprintf("%s · %s · %s", filepath.Base(m.cfg.Path), m.cfg.Engine, m.step)
	}
	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote)-
			2,
	)), ellipsis)

	style := statusBarNoteStyle
	switch {
	case showStatusMessage && m.statusIsError:
		style = statusBarErrorStyle
	case showStatusMessage:
		style = statusBarMessageStyle
	}
	state := style(" ") + m.stateView()
	note = style(note)

	// Empty space
	padding := max(0,
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(state)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := style(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s%s",
		logo,
		state,
		note,
		emptySpace,
		position,
		helpNote,
	)
}

func (m model) helpView() (s string) {
	col1 := []string{
		"space    play/pause",
		"→/l/n    next",
		"←/h/p    previous",
		"]        next page",
		"[        previous page",
		"s        stop",
	}
	col2 := []string{
		"t        toggle sentence/page step",
		"k/↑      up",
		"j/↓      down",
		"c        copy sentence",
		"?        close help",
		"q        quit",
	}

	s += "\n"
	for i := range col1 {
		s += fmt.Sprintf("%-28s%s\n", col1[i], col2[i])
	}
	s = strings.TrimSuffix(s, "\n")

	s = indent(s, 2)

	// Fill up empty cells with spaces for background coloring
	if m.width > 0 {
		lines := strings.Split(s, "\n")
		for i := 0; i < len(lines); i++ {
			l := runewidth.StringWidth(lines[i])
			n := max(m.width-l, 0)
			lines[i] += strings.Repeat(" ", n)
		}

		s = strings.Join(lines, "\n")
	}

	return helpViewStyle(s)
}
