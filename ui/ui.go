// Package ui provides the terminal pager that shows the page being read
// aloud with the spoken sentence highlighted.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/recite/reading"
)

const (
	statusMessageTimeout = time.Second * 3 // how long to show status messages like "copied!"
	ellipsis             = "…"
)

// Reader is the part of a reading.Controller the pager drives.
type Reader interface {
	Open(ctx context.Context, locator string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	GoTo(ctx context.Context, page int) error
	SetStepLength(ctx context.Context, step reading.StepLength) error
	Position(ctx context.Context) (reading.ReadingPosition, error)
	Chunks(ctx context.Context) ([]string, error)
	PageCount(ctx context.Context) (int, error)
}

var _ Reader = (*reading.Controller)(nil)

// NewProgram returns a new Tea program reading cfg.Path through r. The
// program ends when ctx does.
func NewProgram(ctx context.Context, cfg Config, r Reader) *tea.Program {
	log.Debug(
		"Starting recite",
		"path", cfg.Path,
		"engine", cfg.Engine,
		"step", cfg.Step,
		"high_perf_pager", cfg.HighPerformancePager,
	)

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(ctx, cfg, r), opts...)
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type (
	openedMsg struct {
		pages int
	}
	chunksMsg struct {
		page   int
		chunks []string
	}
	// commandMsg reports the outcome of a Reader command.
	commandMsg struct {
		name string
		err  error
	}
	statusMessageTimeoutMsg struct{}
)

// readState is what the pager believes the reader is doing.
type readState int

const (
	stateOpening readState = iota
	stateLoading
	stateStopped
	statePlaying
	statePaused
	stateFinished
	stateFailed
)

func (s readState) String() string {
	return map[readState]string{
		stateOpening:  "opening",
		stateLoading:  "loading",
		stateStopped:  "stopped",
		statePlaying:  "playing",
		statePaused:   "paused",
		stateFinished: "finished",
		stateFailed:   "error",
	}[s]
}

type model struct {
	cfg      Config
	ctx      context.Context
	reader   Reader
	fatalErr error

	state  readState
	step   reading.StepLength
	width  int
	height int

	viewport viewport.Model
	spinner  spinner.Model
	showHelp bool

	statusMessage      string
	statusIsError      bool
	statusMessageTimer *time.Timer

	pageCount  int
	page       int
	sentence   int
	chunks     []string
	chunksPage int
	current    int
}

func newModel(ctx context.Context, cfg Config, r Reader) model {
	vp := viewport.New(0, 0)
	vp.HighPerformanceRendering = cfg.HighPerformancePager

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = spinnerStyle

	return model{
		cfg:        cfg,
		ctx:        ctx,
		reader:     r,
		state:      stateOpening,
		step:       cfg.Step,
		viewport:   vp,
		spinner:    sp,
		chunksPage: -1,
		current:    -1,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.openCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// If there's been an error, any key exits
	if m.fatalErr != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m, tea.Quit
		}
	}

	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "ctrl+z":
			return m, tea.Suspend
		case "esc":
			if m.showHelp {
				m.toggleHelp()
				return m, nil
			}
		case " ":
			return m, m.togglePlayback()
		case "right", "l", "n":
			return m, m.command("next", m.reader.Next)
		case "left", "h", "p":
			return m, m.command("previous", m.reader.Previous)
		case "]":
			return m, m.goToPage(m.page + 1)
		case "[":
			return m, m.goToPage(m.page - 1)
		case "s":
			return m, m.command("stop", m.reader.Stop)
		case "t":
			return m, m.toggleStep()
		case "c":
			if text, ok := m.currentText(); ok {
				// Copy using native system clipboard
				if err := clipboard.WriteAll(text); err != nil {
					return m, m.showStatusMessage("copy: "+err.Error(), true)
				}
				return m, m.showStatusMessage("Copied sentence", false)
			}
		case "?":
			m.toggleHelp()
			if m.viewport.HighPerformanceRendering {
				cmds = append(cmds, viewport.Sync(m.viewport))
			}
		}

	// Window size is received when starting up and on every resize
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.setSize(msg.Width, msg.Height)
		m.render()

	case errMsg:
		m.fatalErr = msg.err
		return m, nil

	case openedMsg:
		m.pageCount = msg.pages
		m.state = stateStopped
		switch {
		case m.cfg.Page > 0:
			m.state = stateLoading
			cmds = append(cmds, m.goToPage(m.cfg.Page-1))
		case m.cfg.AutoPlay:
			m.state = stateLoading
			cmds = append(cmds, m.command("play", m.reader.Play))
		}

	case commandMsg:
		cmds = append(cmds, m.handleCommand(msg))

	case chunkStartMsg:
		m.state = statePlaying
		m.current = msg.index
		m.sentence = msg.index
		if m.chunksPage != m.page || msg.index >= len(m.chunks) || m.chunks[msg.index] != msg.text {
			cmds = append(cmds, m.fetchChunks())
		}
		m.render()

	case chunkDoneMsg:
		// The highlight stays until the next chunk starts.

	case pageFinishedMsg:
		if msg.page == m.page {
			m.state = stateFinished
			m.current = -1
			m.render()
		}

	case chunkErrorMsg:
		m.state = stateFailed
		cmds = append(cmds, m.showStatusMessage(errorText(msg.err), true))

	case positionMsg:
		if msg.page != m.page {
			m.current = -1
			m.state = stateLoading
		}
		m.page = msg.page
		m.sentence = msg.sentence
		m.render()

	case readerErrMsg:
		m.state = stateFailed
		cmds = append(cmds, m.showStatusMessage(errorText(msg.err), true))

	case chunksMsg:
		m.chunks = msg.chunks
		m.chunksPage = msg.page
		m.render()

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
		m.statusIsError = false

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) handleCommand(msg commandMsg) tea.Cmd {
	if msg.err != nil {
		log.Debug("command failed", "command", msg.name, "error", msg.err)
		return m.showStatusMessage(fmt.Sprintf("%s: %s", msg.name, errorText(msg.err)), true)
	}

	switch msg.name {
	case "play", "resume":
		if m.state != statePlaying {
			m.state = stateLoading
		}
	case "pause":
		m.state = statePaused
	case "stop":
		m.state = stateStopped
		m.current = -1
		m.chunks = nil
		m.chunksPage = -1
		m.render()
	case "step":
		return m.showStatusMessage("step: "+m.step.String(), false)
	}
	return nil
}

// currentText returns the chunk being spoken, or the one at the reading
// position when nothing is.
func (m model) currentText() (string, bool) {
	if m.chunksPage != m.page {
		return "", false
	}
	i := m.current
	if i < 0 {
		i = m.sentence
	}
	if i < 0 || i >= len(m.chunks) {
		return "", false
	}
	return m.chunks[i], true
}

func (m *model) togglePlayback() tea.Cmd {
	switch m.state {
	case stateOpening:
		return nil
	case statePlaying:
		return m.command("pause", m.reader.Pause)
	case statePaused:
		return m.command("resume", m.reader.Resume)
	default:
		return m.command("play", m.reader.Play)
	}
}

func (m *model) goToPage(page int) tea.Cmd {
	if page < 0 || page >= m.pageCount {
		return nil
	}
	return m.command("page", func(ctx context.Context) error {
		return m.reader.GoTo(ctx, page)
	})
}

func (m *model) toggleStep() tea.Cmd {
	if m.step == reading.StepPage {
		m.step = reading.StepSentence
	} else {
		m.step = reading.StepPage
	}
	step := m.step
	return m.command("step", func(ctx context.Context) error {
		return m.reader.SetStepLength(ctx, step)
	})
}

func (m model) View() string {
	if m.fatalErr != nil {
		return errorView(m.fatalErr, true)
	}
	return m.pagerView()
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		subtleStyle.Render(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// errorText is the short form of err shown in the status bar.
func errorText(err error) string {
	var rerr *reading.Error
	if errors.As(err, &rerr) {
		return rerr.Kind.String()
	}
	return err.Error()
}

// COMMANDS

func (m model) openCmd() tea.Cmd {
	ctx, r, path := m.ctx, m.reader, m.cfg.Path
	return func() tea.Msg {
		if err := r.Open(ctx, path); err != nil {
			log.Error("unable to open document", "path", path, "error", err)
			return errMsg{err}
		}
		n, err := r.PageCount(ctx)
		if err != nil {
			return errMsg{err}
		}
		return openedMsg{pages: n}
	}
}

// command runs fn on a Reader and reports the outcome as a commandMsg.
func (m model) command(name string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return commandMsg{name: name, err: fn(ctx)}
	}
}

func (m model) fetchChunks() tea.Cmd {
	ctx, r := m.ctx, m.reader
	return func() tea.Msg {
		pos, err := r.Position(ctx)
		if err != nil {
			return commandMsg{name: "chunks", err: err}
		}
		chunks, err := r.Chunks(ctx)
		if err != nil {
			return commandMsg{name: "chunks", err: err}
		}
		return chunksMsg{page: pos.Page, chunks: chunks}
	}
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

// ETC

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return b.String()
}
