package reading

// HighlightListener receives chunk progress. Calls arrive on the controller
// goroutine; a listener must not call back into the Controller
// synchronously.
type HighlightListener interface {
	OnChunkStart(index int, text string)
	OnChunkDone(index int, text string)
	OnPageFinished(page int)
	OnChunkError(index int, err error)
}

// PositionListener is notified after every committed position change.
type PositionListener interface {
	OnPositionChanged(page, sentence int)
}

// ErrorListener receives failures that no command returns, such as a page
// that failed to load after a page turn.
type ErrorListener interface {
	OnError(err error)
}

type nopListener struct{}

func (nopListener) OnChunkStart(int, string)   {}
func (nopListener) OnChunkDone(int, string)    {}
func (nopListener) OnPageFinished(int)         {}
func (nopListener) OnChunkError(int, error)    {}
func (nopListener) OnPositionChanged(int, int) {}
func (nopListener) OnError(error)              {}
