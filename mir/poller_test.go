package mir

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type mockPollerEmitter struct {
	mu     sync.Mutex
	events []pollerEvent
}

type pollerEvent struct {
	queueID     int
	missionGUID string
	robotName   string
	oldState    string
	newState    string
}

func (m *mockPollerEmitter) EmitMissionStateChanged(queueID int, missionGUID, robotName, oldState, newState, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, pollerEvent{queueID, missionGUID, robotName, oldState, newState})
}

func pollerClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestPollerTrackUntrack(t *testing.T) {
	client, _ := NewClient(Options{BaseURL: "http://localhost:9999", Timeout: time.Second})
	p := NewPoller(client, &mockPollerEmitter{}, time.Minute)

	if p.ActiveCount() != 0 {
		t.Errorf("initial count = %d, want 0", p.ActiveCount())
	}

	p.Track(1, "ms1", "MiR-1")
	p.Track(2, "ms2", "MiR-2")
	if p.ActiveCount() != 2 {
		t.Errorf("count after track = %d, want 2", p.ActiveCount())
	}

	// Track duplicate is idempotent
	p.Track(1, "ms1", "MiR-1")
	if p.ActiveCount() != 2 {
		t.Errorf("count after dup track = %d, want 2", p.ActiveCount())
	}

	p.Untrack(1)
	if p.ActiveCount() != 1 {
		t.Errorf("count after untrack = %d, want 1", p.ActiveCount())
	}
	if got := p.Active()[2]; got != string(QueuePending) {
		t.Errorf("Active()[2] = %q, want Pending", got)
	}
}

func TestPollerDetectsStateTransition(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	client := pollerClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mission_queue/5" {
			t.Errorf("path = %q, want /mission_queue/5", r.URL.Path)
		}
		mu.Lock()
		calls++
		state := QueuePending
		if calls > 1 {
			state = QueueExecuting
		}
		mu.Unlock()
		json.NewEncoder(w).Encode(QueueEntry{ID: 5, State: state})
	})

	emitter := &mockPollerEmitter{}
	p := NewPoller(client, emitter, time.Minute)
	p.Track(5, "ms1", "MiR-1")

	// first poll sees Pending, same as the tracked baseline
	p.poll()
	if len(emitter.events) != 0 {
		t.Errorf("events after first poll = %d, want 0", len(emitter.events))
	}

	p.poll()
	emitter.mu.Lock()
	defer emitter.mu.Unlock()
	if len(emitter.events) != 1 {
		t.Fatalf("events after second poll = %d, want 1", len(emitter.events))
	}
	ev := emitter.events[0]
	if ev.oldState != "Pending" || ev.newState != "Executing" {
		t.Errorf("transition = %s -> %s, want Pending -> Executing", ev.oldState, ev.newState)
	}
	if ev.robotName != "MiR-1" || ev.missionGUID != "ms1" {
		t.Errorf("event = %+v", ev)
	}
}

func TestPollerRemovesTerminal(t *testing.T) {
	client := pollerClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(QueueEntry{ID: 9, State: QueueDone})
	})
	emitter := &mockPollerEmitter{}
	p := NewPoller(client, emitter, time.Minute)

	p.Track(9, "ms1", "MiR-1")
	p.poll()

	if p.ActiveCount() != 0 {
		t.Errorf("count after terminal = %d, want 0", p.ActiveCount())
	}
	if len(emitter.events) != 1 || emitter.events[0].newState != "Done" {
		t.Errorf("events = %+v", emitter.events)
	}
}

func TestPollerKeepsEntryOnError(t *testing.T) {
	client := pollerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	p := NewPoller(client, &mockPollerEmitter{}, time.Minute)
	p.Track(3, "ms1", "MiR-1")
	p.poll()
	if p.ActiveCount() != 1 {
		t.Errorf("count = %d, want 1", p.ActiveCount())
	}
}

func TestQueueStateIsTerminal(t *testing.T) {
	tests := []struct {
		state    QueueState
		terminal bool
	}{
		{QueuePending, false},
		{QueueExecuting, false},
		{QueuePaused, false},
		{QueueDone, true},
		{QueueAborted, true},
	}
	for _, tt := range tests {
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("IsTerminal(%q) = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}

func TestPollerStopHaltsPolling(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	client := pollerClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		json.NewEncoder(w).Encode(QueueEntry{ID: 1, State: QueuePending})
	})
	p := NewPoller(client, &mockPollerEmitter{}, 5*time.Millisecond)
	p.Track(1, "ms1", "MiR-1")

	p.Start()
	p.Stop()
	p.Stop()

	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	after := hits
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if hits != after {
		t.Errorf("polls kept arriving after Stop: %d then %d", after, hits)
	}
}

func TestPollerDefaultsInterval(t *testing.T) {
	client, _ := NewClient(Options{BaseURL: "http://localhost:9999", Timeout: time.Second})
	for _, d := range []time.Duration{0, -time.Second} {
		p := NewPoller(client, &mockPollerEmitter{}, d)
		if p.interval != DefaultPollInterval {
			t.Errorf("interval for %v = %v, want %v", d, p.interval, DefaultPollInterval)
		}
		p.Start()
		p.Stop()
	}
}
