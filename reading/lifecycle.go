package reading

import (
	"sync"

	"github.com/charmbracelet/log"
)

// State is the page lifecycle state.
type State int

const (
	// Idle means no page is loaded or being spoken.
	Idle State = iota
	// LoadingPage means page text is being read.
	LoadingPage
	// PageReady means the page's chunks are available.
	PageReady
	// Speaking means a chunk of the page is with the engine.
	Speaking
	// ClosingPage means the page is being torn down.
	ClosingPage
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case LoadingPage:
		return "loading"
	case PageReady:
		return "ready"
	case Speaking:
		return "speaking"
	case ClosingPage:
		return "closing"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent view of the lifecycle.
type Snapshot struct {
	State State
	Page  int
	Chunk int
}

// Lifecycle guards page loads and chunk speaking. The page index is part
// of the state: a signal for any other page is stale and rejected.
type Lifecycle struct {
	mu          sync.Mutex
	state       State
	page        int
	chunk       int
	transitions map[State][]State
}

// NewLifecycle returns a lifecycle in Idle.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		state: Idle,
		page:  -1,
		chunk: -1,
		transitions: map[State][]State{
			Idle:        {LoadingPage},
			LoadingPage: {PageReady, Idle},
			PageReady:   {LoadingPage, Speaking, ClosingPage, Idle},
			Speaking:    {LoadingPage, PageReady, ClosingPage, Idle},
			ClosingPage: {Idle},
		},
	}
}

// transition moves to the given state if the table allows it. Callers hold mu.
func (l *Lifecycle) transition(to State, page, chunk int) bool {
	valid := false
	for _, s := range l.transitions[l.state] {
		if s == to {
			valid = true
			break
		}
	}
	if !valid {
		return false
	}

	log.Debug("reading: lifecycle", "from", l.state, "to", to, "page", page, "chunk", chunk)
	l.state, l.page, l.chunk = to, page, chunk
	return true
}

// StartLoad enters LoadingPage(p). It fails while another load is running.
func (l *Lifecycle) StartLoad(p int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == LoadingPage {
		return false
	}
	return l.transition(LoadingPage, p, -1)
}

// MarkReady completes the load of page p. A stale p is ignored.
func (l *Lifecycle) MarkReady(p int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != LoadingPage || l.page != p {
		return false
	}
	return l.transition(PageReady, p, -1)
}

// StartChunk enters Speaking(p, c).
func (l *Lifecycle) StartChunk(p, c int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.canStartChunk(p) {
		return false
	}
	if l.state == Speaking {
		l.chunk = c
		return true
	}
	return l.transition(Speaking, p, c)
}

// FinishChunk leaves Speaking(p, c) for PageReady(p).
func (l *Lifecycle) FinishChunk(p, c int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Speaking || l.page != p || l.chunk != c {
		return false
	}
	return l.transition(PageReady, p, -1)
}

// FinishPage returns to Idle from PageReady, Speaking or ClosingPage of
// page p.
func (l *Lifecycle) FinishPage(p int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.page != p {
		return false
	}
	switch l.state {
	case PageReady, Speaking, ClosingPage:
		return l.transition(Idle, -1, -1)
	}
	return false
}

// BeginClose moves PageReady(p) or Speaking(p) to ClosingPage(p).
func (l *Lifecycle) BeginClose(p int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.page != p {
		return false
	}
	return l.transition(ClosingPage, p, -1)
}

// ResetToIdle always succeeds.
func (l *Lifecycle) ResetToIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Idle {
		log.Debug("reading: lifecycle reset", "from", l.state, "page", l.page)
	}
	l.state, l.page, l.chunk = Idle, -1, -1
}

// CanStartLoad reports whether StartLoad would succeed.
func (l *Lifecycle) CanStartLoad() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state != LoadingPage
}

// CanStartChunk reports whether chunk c of page p may be spoken.
func (l *Lifecycle) CanStartChunk(p, c int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return c >= 0 && l.canStartChunk(p)
}

func (l *Lifecycle) canStartChunk(p int) bool {
	return (l.state == PageReady || l.state == Speaking) && l.page == p
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// PageIndex returns the tracked page, or -1 in Idle.
func (l *Lifecycle) PageIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// Snapshot returns state, page and chunk read together.
func (l *Lifecycle) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{State: l.state, Page: l.page, Chunk: l.chunk}
}
