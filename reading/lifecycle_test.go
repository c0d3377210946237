package reading

import "testing"

func readyLifecycle(page int) *Lifecycle {
	l := NewLifecycle()
	l.StartLoad(page)
	l.MarkReady(page)
	return l
}

func TestLifecycleTransitions(t *testing.T) {
	l := NewLifecycle()
	if l.State() != Idle || l.PageIndex() != -1 {
		t.Fatalf("new lifecycle = %+v", l.Snapshot())
	}

	if !l.StartLoad(2) {
		t.Fatal("StartLoad from Idle should succeed")
	}
	if l.CanStartLoad() || l.StartLoad(3) {
		t.Error("StartLoad while loading should fail")
	}
	if l.CanStartChunk(2, 0) {
		t.Error("cannot speak while loading")
	}
	if l.MarkReady(1) {
		t.Error("MarkReady for another page should be ignored")
	}
	if !l.MarkReady(2) {
		t.Fatal("MarkReady(2) should succeed")
	}

	if !l.StartChunk(2, 0) {
		t.Fatal("StartChunk should succeed from PageReady")
	}
	if got := l.Snapshot(); got != (Snapshot{State: Speaking, Page: 2, Chunk: 0}) {
		t.Errorf("Snapshot() = %+v", got)
	}
	if l.FinishChunk(2, 1) {
		t.Error("FinishChunk for another chunk should fail")
	}
	if !l.FinishChunk(2, 0) || l.State() != PageReady {
		t.Errorf("FinishChunk should return to PageReady, state %v", l.State())
	}

	if !l.FinishPage(2) || l.State() != Idle {
		t.Errorf("FinishPage should return to Idle, state %v", l.State())
	}
}

func TestLifecycleStaleGuard(t *testing.T) {
	tests := []struct {
		name  string
		after func(l *Lifecycle)
	}{
		{name: "finish page", after: func(l *Lifecycle) { l.FinishPage(0) }},
		{name: "reset", after: func(l *Lifecycle) { l.ResetToIdle() }},
		{name: "new load", after: func(l *Lifecycle) { l.ResetToIdle(); l.StartLoad(1) }},
		{name: "closing", after: func(l *Lifecycle) { l.BeginClose(0) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := readyLifecycle(0)
			l.StartChunk(0, 1)
			if !l.CanStartChunk(0, 2) {
				t.Fatal("precondition: chunk should be allowed")
			}

			tt.after(l)

			for c := 0; c < 5; c++ {
				if l.CanStartChunk(0, c) {
					t.Errorf("CanStartChunk(0, %d) = true after %s", c, tt.name)
				}
				if l.StartChunk(0, c) {
					t.Errorf("StartChunk(0, %d) succeeded after %s", c, tt.name)
				}
			}
		})
	}
}

func TestLifecycleWrongPage(t *testing.T) {
	l := readyLifecycle(3)
	if l.CanStartChunk(2, 0) {
		t.Error("CanStartChunk for another page should be false")
	}
	if l.FinishPage(2) {
		t.Error("FinishPage for another page should fail")
	}
}

func TestLifecycleClose(t *testing.T) {
	l := readyLifecycle(1)
	if !l.BeginClose(1) || l.State() != ClosingPage {
		t.Fatalf("BeginClose: state %v", l.State())
	}
	if l.StartLoad(2) {
		t.Error("StartLoad while closing should fail")
	}
	if !l.FinishPage(1) || l.State() != Idle {
		t.Errorf("FinishPage from ClosingPage: state %v", l.State())
	}
}

func TestLifecycleResetAlwaysSucceeds(t *testing.T) {
	for _, setup := range []func(*Lifecycle){
		func(*Lifecycle) {},
		func(l *Lifecycle) { l.StartLoad(0) },
		func(l *Lifecycle) { l.StartLoad(0); l.MarkReady(0); l.StartChunk(0, 0) },
		func(l *Lifecycle) { l.StartLoad(0); l.MarkReady(0); l.BeginClose(0) },
	} {
		l := NewLifecycle()
		setup(l)
		l.ResetToIdle()
		if got := l.Snapshot(); got != (Snapshot{State: Idle, Page: -1, Chunk: -1}) {
			t.Errorf("after ResetToIdle: %+v", got)
		}
		if !l.CanStartLoad() {
			t.Error("CanStartLoad should be true after reset")
		}
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		Idle: "idle", LoadingPage: "loading", PageReady: "ready",
		Speaking: "speaking", ClosingPage: "closing", State(42): "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
