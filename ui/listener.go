package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/recite/reading"
)

type (
	chunkStartMsg struct {
		index int
		text  string
	}
	chunkDoneMsg struct {
		index int
	}
	pageFinishedMsg struct {
		page int
	}
	chunkErrorMsg struct {
		index int
		err   error
	}
	positionMsg struct {
		page     int
		sentence int
	}
	readerErrMsg struct {
		err error
	}
)

// Listener forwards reading events to a running program. It implements
// the highlight, position and error listeners of a reading.Controller.
type Listener struct {
	send func(tea.Msg)
}

var (
	_ reading.HighlightListener = (*Listener)(nil)
	_ reading.PositionListener  = (*Listener)(nil)
	_ reading.ErrorListener     = (*Listener)(nil)
)

// NewListener returns a Listener that drops events until Attach is called.
func NewListener() *Listener {
	return &Listener{send: func(tea.Msg) {}}
}

// Attach routes events to p. It must be called before the controller
// starts delivering events.
func (l *Listener) Attach(p *tea.Program) {
	l.send = p.Send
}

func (l *Listener) OnChunkStart(index int, text string) {
	l.send(chunkStartMsg{index: index, text: text})
}

func (l *Listener) OnChunkDone(index int, _ string) {
	l.send(chunkDoneMsg{index: index})
}

func (l *Listener) OnPageFinished(page int) {
	l.send(pageFinishedMsg{page: page})
}

func (l *Listener) OnChunkError(index int, err error) {
	l.send(chunkErrorMsg{index: index, err: err})
}

func (l *Listener) OnPositionChanged(page, sentence int) {
	l.send(positionMsg{page: page, sentence: sentence})
}

func (l *Listener) OnError(err error) {
	l.send(readerErrMsg{err: err})
}
