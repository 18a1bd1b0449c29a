package poolstate

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"robopool/config"
	"robopool/store"
)

// memCache is an in-memory Cache.
type memCache struct {
	mu     sync.Mutex
	robots map[string]*RobotState
	down   bool
}

func newMemCache() *memCache {
	return &memCache{robots: make(map[string]*RobotState)}
}

var errDown = errors.New("cache down")

func (c *memCache) SetRobot(ctx context.Context, state *RobotState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errDown
	}
	cp := *state
	c.robots[state.RobotID] = &cp
	return nil
}

func (c *memCache) GetRobot(ctx context.Context, robotID string) (*RobotState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, errDown
	}
	return c.robots[robotID], nil
}

func (c *memCache) GetAllRobotIDs(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, errDown
	}
	ids := make([]string, 0, len(c.robots))
	for id := range c.robots {
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *memCache) RemoveRobot(ctx context.Context, robotID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.robots, robotID)
	return nil
}

func (c *memCache) FlushAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return errDown
	}
	c.robots = make(map[string]*RobotState)
	return nil
}

func (c *memCache) Ping(ctx context.Context) error {
	if c.down {
		return errDown
	}
	return nil
}

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

func addRobot(t *testing.T, m *Manager, id, resource string) {
	t.Helper()
	r := &store.Robot{ID: id, Name: id, Vendor: "Mir", Type: "material_transport", OperationStatus: "live"}
	if err := m.AddRobot(r, resource); err != nil {
		t.Fatalf("add robot %s: %v", id, err)
	}
}

func TestAllocateWritesThrough(t *testing.T) {
	cache := newMemCache()
	m := NewManager(testDB(t), cache)
	addRobot(t, m, "R1", "EWM-1")

	if cache.robots["R1"] == nil || cache.robots["R1"].ResourceID != "EWM-1" {
		t.Fatalf("cache after add = %+v", cache.robots["R1"])
	}

	r, err := m.Allocate("material_transport", "live")
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if r.ID != "R1" {
		t.Errorf("allocated %q, want R1", r.ID)
	}
	if !cache.robots["R1"].Allocated {
		t.Error("cache should show R1 allocated")
	}

	if _, err := m.Release("EWM-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if cache.robots["R1"].Allocated {
		t.Error("cache should show R1 released")
	}
}

func TestGetStatesFallsBackToSQL(t *testing.T) {
	cache := newMemCache()
	m := NewManager(testDB(t), cache)
	addRobot(t, m, "R2", "EWM-2")
	addRobot(t, m, "R1", "EWM-1")

	cache.down = true
	states, err := m.GetAllRobotStates()
	if err != nil {
		t.Fatalf("states: %v", err)
	}
	if len(states) != 2 || states[0].RobotID != "R1" {
		t.Errorf("states = %+v", states)
	}

	// writes still succeed in SQL
	if _, err := m.Allocate("material_transport", "live"); err != nil {
		t.Fatalf("allocate with cache down: %v", err)
	}
	s, err := m.GetRobotState("R1")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if !s.Allocated {
		t.Error("SQL fallback should show R1 allocated")
	}
	if m.CacheHealthy() {
		t.Error("CacheHealthy should be false")
	}
}

func TestSyncFromSQL(t *testing.T) {
	db := testDB(t)
	db.CreateRobot(&store.Robot{ID: "R1", Vendor: "Mir"})
	db.CreateRobot(&store.Robot{ID: "R2", Vendor: "Fetch"})

	cache := newMemCache()
	cache.robots["stale"] = &RobotState{RobotID: "stale"}
	m := NewManager(db, cache)
	if err := m.SyncFromSQL(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(cache.robots) != 2 || cache.robots["stale"] != nil {
		t.Errorf("cache after sync = %v", cache.robots)
	}

	states, _ := m.GetAllRobotStates()
	if len(states) != 2 || states[0].RobotID != "R1" || states[1].Vendor != "Fetch" {
		t.Errorf("states = %+v", states)
	}
}

func TestNilCache(t *testing.T) {
	m := NewManager(testDB(t), nil)
	addRobot(t, m, "R1", "EWM-1")
	if err := m.SyncFromSQL(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := m.SetOperationStatus("R1", "offline"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	s, err := m.GetRobotState("R1")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if s.OperationStatus != "offline" {
		t.Errorf("status = %q, want offline", s.OperationStatus)
	}
	if err := m.RemoveRobot("R1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := m.GetRobotState("R1"); err == nil {
		t.Error("expected error for removed robot")
	}
}

func TestAddRobotMappingConflictLeavesNothing(t *testing.T) {
	cache := newMemCache()
	db := testDB(t)
	m := NewManager(db, cache)
	addRobot(t, m, "R1", "EWM-1")

	r := &store.Robot{ID: "R2", Name: "R2", Vendor: "Mir", Type: "material_transport", OperationStatus: "live"}
	if err := m.AddRobot(r, "EWM-1"); err == nil {
		t.Fatal("expected error mapping an already mapped resource")
	}
	if _, err := db.GetRobot("R2"); err == nil {
		t.Error("R2 should not be in inventory after a failed add")
	}
	if cache.robots["R2"] != nil {
		t.Error("R2 should not be cached after a failed add")
	}
	owner, err := db.GetRobotByResource("EWM-1")
	if err != nil || owner.ID != "R1" {
		t.Errorf("EWM-1 owner = %+v, %v; want R1", owner, err)
	}

	// the same id can be added once the conflict is gone
	if err := m.AddRobot(r, "EWM-2"); err != nil {
		t.Fatalf("retry add: %v", err)
	}
}
