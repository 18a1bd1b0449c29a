package poolstate

import (
	"context"
	"log"
	"sort"

	"robopool/store"
)

// Manager provides write-through pool state management: SQL first, then the
// cache. SQL is authoritative; a nil or failing cache degrades to SQL reads.
type Manager struct {
	db    *store.DB
	cache Cache
}

func NewManager(db *store.DB, cache Cache) *Manager {
	return &Manager{db: db, cache: cache}
}

// Allocate claims a free robot in SQL and refreshes its cache entry.
func (m *Manager) Allocate(robotType, status string) (*store.Robot, error) {
	r, err := m.db.AllocateFreeRobot(robotType, status)
	if err != nil {
		return nil, err
	}
	m.refreshRobot(r)
	return r, nil
}

// Release returns the robot mapped to resourceID to the pool.
func (m *Manager) Release(resourceID string) (*store.Robot, error) {
	r, err := m.db.ReleaseRobotByResource(resourceID)
	if err != nil {
		return nil, err
	}
	m.refreshRobotID(r.ID)
	return r, nil
}

// AddRobot inserts an inventory row and, when resourceID is set, maps it.
// Either both land or neither does.
func (m *Manager) AddRobot(r *store.Robot, resourceID string) error {
	if err := m.db.CreateRobotMapped(r, resourceID); err != nil {
		return err
	}
	m.refreshRobotID(r.ID)
	return nil
}

// RemoveRobot deletes a robot from SQL and the cache.
func (m *Manager) RemoveRobot(robotID string) error {
	if err := m.db.DeleteRobot(robotID); err != nil {
		return err
	}
	if m.cache != nil {
		if err := m.cache.RemoveRobot(context.Background(), robotID); err != nil {
			log.Printf("poolstate: remove %s from cache: %v", robotID, err)
		}
	}
	return nil
}

// SetOperationStatus updates a robot's status in SQL and refreshes the cache.
func (m *Manager) SetOperationStatus(robotID, status string) error {
	if err := m.db.SetOperationStatus(robotID, status); err != nil {
		return err
	}
	m.refreshRobotID(robotID)
	return nil
}

// MapResource links a robot to an EWM resource and refreshes the cache.
func (m *Manager) MapResource(robotID, resourceID string) error {
	if err := m.db.MapResource(robotID, resourceID); err != nil {
		return err
	}
	m.refreshRobotID(robotID)
	return nil
}

// UnmapResource drops a robot's EWM link; unmapped robots are never allocated.
func (m *Manager) UnmapResource(robotID string) error {
	if err := m.db.UnmapResource(robotID); err != nil {
		return err
	}
	m.refreshRobotID(robotID)
	return nil
}

// UpdateRobot rewrites a robot's descriptive columns.
func (m *Manager) UpdateRobot(r *store.Robot) error {
	if err := m.db.UpdateRobot(r); err != nil {
		return err
	}
	m.refreshRobotID(r.ID)
	return nil
}

// GetRobotState reads a robot from the cache, falls back to SQL.
func (m *Manager) GetRobotState(robotID string) (*RobotState, error) {
	if m.cache != nil {
		state, err := m.cache.GetRobot(context.Background(), robotID)
		if err == nil && state != nil {
			return state, nil
		}
	}
	r, err := m.db.GetRobot(robotID)
	if err != nil {
		return nil, err
	}
	return stateFromRobot(r), nil
}

// GetAllRobotStates returns every robot ordered by id, preferring the cache.
func (m *Manager) GetAllRobotStates() ([]*RobotState, error) {
	if m.cache != nil {
		ids, err := m.cache.GetAllRobotIDs(context.Background())
		if err == nil && len(ids) > 0 {
			sort.Strings(ids)
			states := make([]*RobotState, 0, len(ids))
			for _, id := range ids {
				state, err := m.GetRobotState(id)
				if err == nil {
					states = append(states, state)
				}
			}
			return states, nil
		}
	}

	robots, err := m.db.ListRobots()
	if err != nil {
		return nil, err
	}
	states := make([]*RobotState, len(robots))
	for i, r := range robots {
		states[i] = stateFromRobot(r)
	}
	return states, nil
}

// SyncFromSQL rebuilds the cache from SQL. Called on startup.
func (m *Manager) SyncFromSQL() error {
	if m.cache == nil {
		return nil
	}
	ctx := context.Background()
	if err := m.cache.FlushAll(ctx); err != nil {
		return err
	}

	robots, err := m.db.ListRobots()
	if err != nil {
		return err
	}
	for _, r := range robots {
		if err := m.cache.SetRobot(ctx, stateFromRobot(r)); err != nil {
			log.Printf("poolstate: sync robot %s: %v", r.ID, err)
		}
	}

	log.Printf("poolstate: synced %d robots to redis", len(robots))
	return nil
}

// CacheHealthy reports whether the cache answers a ping.
func (m *Manager) CacheHealthy() bool {
	if m.cache == nil {
		return false
	}
	return m.cache.Ping(context.Background()) == nil
}

func (m *Manager) refreshRobotID(robotID string) {
	if m.cache == nil {
		return
	}
	r, err := m.db.GetRobot(robotID)
	if err != nil {
		log.Printf("poolstate: refresh robot %s: %v", robotID, err)
		return
	}
	m.refreshRobot(r)
}

func (m *Manager) refreshRobot(r *store.Robot) {
	if m.cache == nil {
		return
	}
	if err := m.cache.SetRobot(context.Background(), stateFromRobot(r)); err != nil {
		log.Printf("poolstate: refresh robot %s: %v", r.ID, err)
	}
}
