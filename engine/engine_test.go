package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"robopool/config"
	"robopool/fleet"
	"robopool/messaging"
	"robopool/poolstate"
	"robopool/store"
)

// --- Fake tracking backend ---

type fakeTracker struct {
	mu      sync.Mutex
	tracked map[int]string
	started bool
}

func (f *fakeTracker) Track(queueID int, missionID, robotName string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked[queueID] = missionID
}
func (f *fakeTracker) Untrack(queueID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tracked, queueID)
}
func (f *fakeTracker) ActiveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tracked)
}
func (f *fakeTracker) Active() map[int]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int]string, len(f.tracked))
	for k, v := range f.tracked {
		out[k] = v
	}
	return out
}
func (f *fakeTracker) Start() { f.started = true }
func (f *fakeTracker) Stop()  {}

type fakeBackend struct {
	tracker *fakeTracker
	emitter fleet.TrackerEmitter
	pingErr error
	moveErr error
}

func (f *fakeBackend) MoveToBin(ctx context.Context, req fleet.MoveToBinRequest) (fleet.MoveResult, error) {
	if f.moveErr != nil {
		return fleet.MoveResult{}, f.moveErr
	}
	return fleet.MoveResult{QueueID: 41, MissionID: "mission-guid", PositionID: "pos-guid", MissionState: "Pending"}, nil
}
func (f *fakeBackend) MoveToPosition(ctx context.Context, req fleet.MoveToPositionRequest) (fleet.MoveResult, error) {
	return fleet.MoveResult{QueueID: 42, MissionID: "generated", PositionID: "new-pos"}, nil
}
func (f *fakeBackend) Ping(ctx context.Context) error                { return f.pingErr }
func (f *fakeBackend) Name() string                                  { return "Fake Fleet" }
func (f *fakeBackend) Reconfigure(cfg fleet.ReconfigureParams) error { return nil }
func (f *fakeBackend) InitTracker(emitter fleet.TrackerEmitter)      { f.emitter = emitter }
func (f *fakeBackend) Tracker() fleet.MissionTracker                 { return f.tracker }

// --- Helpers ---

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func startEngine(t *testing.T, backend *fakeBackend) (*Engine, *store.DB) {
	t.Helper()
	db := testDB(t)
	pool := poolstate.NewManager(db, nil)
	if err := pool.AddRobot(&store.Robot{ID: "R1", Name: "MiR-1", Vendor: "Mir", Type: "material_transport", OperationStatus: "live"}, "EWM-1"); err != nil {
		t.Fatalf("add robot: %v", err)
	}

	fleets := fleet.NewRegistry()
	fleets.Register("Mir", backend)

	eng := New(Config{
		AppConfig: config.Defaults(),
		DB:        db,
		Fleets:    fleets,
		Pool:      pool,
		LogFunc:   t.Logf,
	})
	eng.Start()
	t.Cleanup(eng.Stop)
	return eng, db
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{tracker: &fakeTracker{tracked: make(map[int]string)}}
}

func outboxTypes(t *testing.T, db *store.DB) []string {
	t.Helper()
	msgs, err := db.ListPendingOutbox(100)
	if err != nil {
		t.Fatalf("list outbox: %v", err)
	}
	var types []string
	for _, m := range msgs {
		types = append(types, m.MsgType)
	}
	return types
}

// --- Tests ---

func TestStartInitsTracker(t *testing.T) {
	backend := newFakeBackend()
	eng, _ := startEngine(t, backend)

	if backend.emitter == nil {
		t.Fatal("tracker emitter not initialized")
	}
	if !backend.tracker.started {
		t.Error("tracker not started")
	}
	if eng.Tracker("mir") != backend.tracker {
		t.Error("Tracker lookup should be case-insensitive")
	}
	if !eng.FleetConnected()["Mir"] {
		t.Error("Mir should be reported connected")
	}
}

func TestAllocationPublishesAndAudits(t *testing.T) {
	eng, db := startEngine(t, newFakeBackend())

	robot, err := eng.Dispatcher().Allocate("")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := eng.Dispatcher().Allocate(""); !errors.Is(err, store.ErrNoFreeRobot) {
		t.Fatalf("second allocate err = %v", err)
	}

	types := outboxTypes(t, db)
	if len(types) != 2 || types[0] != messaging.TypeRobotAllocated || types[1] != messaging.TypeAllocationFailed {
		t.Errorf("outbox types = %v", types)
	}

	msgs, _ := db.ListPendingOutbox(1)
	var env struct {
		MsgType string                   `json:"msg_type"`
		Payload messaging.RobotAllocated `json:"payload"`
	}
	if err := json.Unmarshal(msgs[0].Payload, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Payload.RobotID != robot.ID || env.Payload.ResourceID != "EWM-1" {
		t.Errorf("payload = %+v", env.Payload)
	}
	if msgs[0].Topic != "robopool.events" {
		t.Errorf("topic = %q", msgs[0].Topic)
	}

	entries, err := db.ListEntityAudit("robot", "R1")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "allocated" {
		t.Errorf("audit = %+v", entries)
	}
}

func TestMoveQueuedIsTracked(t *testing.T) {
	backend := newFakeBackend()
	eng, db := startEngine(t, backend)

	if _, err := eng.Dispatcher().MoveToBin("EWM-1", "BIN-7"); err != nil {
		t.Fatalf("move: %v", err)
	}
	eng.Dispatcher().Wait()

	if got := backend.tracker.Active()[41]; got != "mission-guid" {
		t.Errorf("tracked[41] = %q, want mission-guid", got)
	}
	tracked := eng.TrackedMissions()
	if len(tracked["Mir"]) != 1 {
		t.Errorf("TrackedMissions = %v", tracked)
	}

	types := outboxTypes(t, db)
	if len(types) != 1 || types[0] != messaging.TypeMoveQueued {
		t.Errorf("outbox types = %v", types)
	}

	// tracker reports progress through the bus
	backend.emitter.EmitMissionStateChanged("Mir", 41, "mission-guid", "MiR-1", "Pending", "Executing", "")
	entries, err := db.ListEntityAudit("mission", "41")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	if len(entries) != 1 || entries[0].OldValue != "Pending" || entries[0].NewValue != "Executing" {
		t.Errorf("mission audit = %+v", entries)
	}
	types = outboxTypes(t, db)
	if types[len(types)-1] != messaging.TypeMissionStateChanged {
		t.Errorf("last outbox type = %q", types[len(types)-1])
	}
}

func TestMoveFailedPublished(t *testing.T) {
	backend := newFakeBackend()
	backend.moveErr = errors.New("bin not found")
	eng, db := startEngine(t, backend)

	if _, err := eng.Dispatcher().MoveToBin("EWM-1", "BIN-404"); err != nil {
		t.Fatalf("move: %v", err)
	}
	eng.Dispatcher().Wait()

	if backend.tracker.ActiveCount() != 0 {
		t.Error("failed move should not be tracked")
	}
	types := outboxTypes(t, db)
	if len(types) != 1 || types[0] != messaging.TypeMoveFailed {
		t.Errorf("outbox types = %v", types)
	}
}

func TestConnectionTransitions(t *testing.T) {
	backend := newFakeBackend()
	eng, _ := startEngine(t, backend)

	var events []EventType
	eng.Events.SubscribeTypes(func(evt Event) { events = append(events, evt.Type) }, EventFleetConnected, EventFleetDisconnected)

	backend.pingErr = errors.New("unreachable")
	eng.checkConnectionStatus()
	eng.checkConnectionStatus()
	backend.pingErr = nil
	eng.checkConnectionStatus()

	if len(events) != 2 || events[0] != EventFleetDisconnected || events[1] != EventFleetConnected {
		t.Errorf("events = %v", events)
	}
}

func TestStopTwice(t *testing.T) {
	eng, _ := startEngine(t, newFakeBackend())
	eng.Stop()
	eng.Stop()
	select {
	case <-eng.stopChan:
	default:
		t.Error("stop channel should be closed after Stop")
	}
}

func TestConfigEditsDuringPublish(t *testing.T) {
	eng, db := startEngine(t, newFakeBackend())
	cfg := eng.AppConfig()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			cfg.Lock()
			cfg.Messaging.EventsTopic = fmt.Sprintf("pool.events.%d", i)
			cfg.Unlock()
		}
	}()
	for i := 0; i < 50; i++ {
		eng.publish(messaging.TypeRobotReleased, messaging.RobotReleased{RobotID: "R1"})
		eng.checkConnectionStatus()
	}
	wg.Wait()

	msgs, err := db.ListPendingOutbox(100)
	if err != nil {
		t.Fatalf("outbox: %v", err)
	}
	if len(msgs) < 50 {
		t.Errorf("outbox rows = %d, want at least 50", len(msgs))
	}
}
