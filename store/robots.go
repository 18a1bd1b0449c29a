package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Allocation flag values as stored in robots.allocation_flag.
const (
	FlagYes = "Yes"
	FlagNo  = "No"
)

var (
	// ErrNoFreeRobot is returned when no robot matches the pool criteria.
	ErrNoFreeRobot = errors.New("no available robot in pool")
	// ErrUnknownResource is returned when no robot is mapped to an EWM resource.
	ErrUnknownResource = errors.New("unknown EWM resource")
)

// Robot is one row of the pool inventory, joined with its EWM resource mapping.
type Robot struct {
	ID              string     `json:"robot_id"`
	Name            string     `json:"robot_name"`
	Vendor          string     `json:"vendor"`
	Model           string     `json:"model"`
	Type            string     `json:"robot_type"`
	OperationStatus string     `json:"operation_status"`
	Allocated       bool       `json:"allocated"`
	ResourceID      string     `json:"resource_id"`
	LeaseID         string     `json:"lease_id,omitempty"`
	AllocatedAt     *time.Time `json:"allocated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// AllocationFlag returns the stored Yes/No form of Allocated.
func (r *Robot) AllocationFlag() string {
	if r.Allocated {
		return FlagYes
	}
	return FlagNo
}

const robotSelectCols = `r.robot_id, r.robot_name, r.vendor, r.model, r.robot_type, r.operation_status,
	r.allocation_flag, COALESCE(m.resource_id, ''), r.lease_id, r.allocated_at, r.created_at, r.updated_at`

const robotFrom = `robots r LEFT JOIN ewm_robot_mappings m ON m.robot_id = r.robot_id`

func scanRobot(row interface{ Scan(...any) error }) (*Robot, error) {
	var r Robot
	var flag string
	var allocatedAt, createdAt, updatedAt any
	err := row.Scan(&r.ID, &r.Name, &r.Vendor, &r.Model, &r.Type, &r.OperationStatus,
		&flag, &r.ResourceID, &r.LeaseID, &allocatedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	r.Allocated = flag == FlagYes
	r.AllocatedAt = parseTimePtr(allocatedAt)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

func scanRobots(rows *sql.Rows) ([]*Robot, error) {
	var robots []*Robot
	for rows.Next() {
		r, err := scanRobot(rows)
		if err != nil {
			return nil, err
		}
		robots = append(robots, r)
	}
	return robots, rows.Err()
}

func (db *DB) CreateRobot(r *Robot) error {
	return db.CreateRobotMapped(r, "")
}

// CreateRobotMapped inserts a robot and, when resourceID is set, its EWM
// mapping in one transaction. A rejected mapping leaves no robot row behind.
func (db *DB) CreateRobotMapped(r *Robot, resourceID string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(db.Q(`INSERT INTO robots (robot_id, robot_name, vendor, model, robot_type, operation_status, allocation_flag) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.Name, r.Vendor, r.Model, r.Type, r.OperationStatus, r.AllocationFlag()); err != nil {
		return fmt.Errorf("create robot: %w", err)
	}
	if resourceID != "" {
		if _, err := tx.Exec(db.Q(`INSERT INTO ewm_robot_mappings (robot_id, resource_id) VALUES (?, ?)`), r.ID, resourceID); err != nil {
			return fmt.Errorf("map resource %s: %w", resourceID, err)
		}
	}
	return tx.Commit()
}

// UpdateRobot rewrites the descriptive columns. Allocation state is only
// changed through AllocateFreeRobot and ReleaseRobot.
func (db *DB) UpdateRobot(r *Robot) error {
	_, err := db.Exec(db.Q(`UPDATE robots SET robot_name=?, vendor=?, model=?, robot_type=?, operation_status=?, updated_at=datetime('now','localtime') WHERE robot_id=?`),
		r.Name, r.Vendor, r.Model, r.Type, r.OperationStatus, r.ID)
	if err != nil {
		return fmt.Errorf("update robot: %w", err)
	}
	return nil
}

func (db *DB) SetOperationStatus(robotID, status string) error {
	result, err := db.Exec(db.Q(`UPDATE robots SET operation_status=?, updated_at=datetime('now','localtime') WHERE robot_id=?`), status, robotID)
	if err != nil {
		return fmt.Errorf("set operation status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("set operation status %s: %w", robotID, sql.ErrNoRows)
	}
	return nil
}

func (db *DB) DeleteRobot(robotID string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(db.Q(`DELETE FROM ewm_robot_mappings WHERE robot_id=?`), robotID); err != nil {
		return fmt.Errorf("delete robot mapping: %w", err)
	}
	if _, err := tx.Exec(db.Q(`DELETE FROM robots WHERE robot_id=?`), robotID); err != nil {
		return fmt.Errorf("delete robot: %w", err)
	}
	return tx.Commit()
}

func (db *DB) GetRobot(robotID string) (*Robot, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM %s WHERE r.robot_id=?`, robotSelectCols, robotFrom)), robotID)
	return scanRobot(row)
}

// GetRobotByResource finds the robot mapped to an EWM resource.
func (db *DB) GetRobotByResource(resourceID string) (*Robot, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM %s WHERE m.resource_id=?`, robotSelectCols, robotFrom)), resourceID)
	r, err := scanRobot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w %q", ErrUnknownResource, resourceID)
	}
	return r, err
}

func (db *DB) ListRobots() ([]*Robot, error) {
	rows, err := db.Query(fmt.Sprintf(`SELECT %s FROM %s ORDER BY r.robot_id`, robotSelectCols, robotFrom))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRobots(rows)
}

// MapResource links a robot to an EWM resource, replacing any previous link
// for that robot.
func (db *DB) MapResource(robotID, resourceID string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(db.Q(`DELETE FROM ewm_robot_mappings WHERE robot_id=?`), robotID); err != nil {
		return fmt.Errorf("map resource: %w", err)
	}
	if _, err := tx.Exec(db.Q(`INSERT INTO ewm_robot_mappings (robot_id, resource_id) VALUES (?, ?)`), robotID, resourceID); err != nil {
		return fmt.Errorf("map resource: %w", err)
	}
	return tx.Commit()
}

func (db *DB) UnmapResource(robotID string) error {
	_, err := db.Exec(db.Q(`DELETE FROM ewm_robot_mappings WHERE robot_id=?`), robotID)
	return err
}

// CountFreeRobots returns how many mapped robots of the type and status are unallocated.
func (db *DB) CountFreeRobots(robotType, status string) (int, error) {
	var n int
	err := db.QueryRow(db.Q(`SELECT COUNT(*) FROM robots r JOIN ewm_robot_mappings m ON m.robot_id = r.robot_id
		WHERE r.robot_type=? AND r.operation_status=? AND r.allocation_flag=?`), robotType, status, FlagNo).Scan(&n)
	return n, err
}

// AllocateFreeRobot claims one unallocated, EWM-mapped robot of the given
// type and operation status. Candidates are claimed with a conditional
// update inside a transaction, so a robot is handed out at most once even
// when callers race: a candidate another caller claimed first updates zero
// rows and the next candidate is tried.
func (db *DB) AllocateFreeRobot(robotType, status string) (*Robot, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(db.Q(`SELECT r.robot_id FROM robots r JOIN ewm_robot_mappings m ON m.robot_id = r.robot_id
		WHERE r.robot_type=? AND r.operation_status=? AND r.allocation_flag=? ORDER BY r.robot_id`), robotType, status, FlagNo)
	if err != nil {
		return nil, fmt.Errorf("find free robot: %w", err)
	}
	var candidates []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		candidates = append(candidates, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lease := uuid.New().String()
	for _, id := range candidates {
		result, err := tx.Exec(db.Q(`UPDATE robots SET allocation_flag=?, lease_id=?, allocated_at=datetime('now','localtime'), updated_at=datetime('now','localtime')
			WHERE robot_id=? AND allocation_flag=?`), FlagYes, lease, id, FlagNo)
		if err != nil {
			return nil, fmt.Errorf("claim robot %s: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if n == 0 {
			continue
		}
		r, err := scanRobot(tx.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM %s WHERE r.robot_id=?`, robotSelectCols, robotFrom)), id))
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit allocation: %w", err)
		}
		return r, nil
	}
	return nil, ErrNoFreeRobot
}

// ReleaseRobotByResource returns the robot mapped to resourceID to the pool.
// Releasing an unallocated robot is a no-op.
func (db *DB) ReleaseRobotByResource(resourceID string) (*Robot, error) {
	r, err := db.GetRobotByResource(resourceID)
	if err != nil {
		return nil, err
	}
	if err := db.ReleaseRobot(r.ID); err != nil {
		return nil, err
	}
	r.Allocated = false
	r.LeaseID = ""
	r.AllocatedAt = nil
	return r, nil
}

func (db *DB) ReleaseRobot(robotID string) error {
	_, err := db.Exec(db.Q(`UPDATE robots SET allocation_flag=?, lease_id='', allocated_at=NULL, updated_at=datetime('now','localtime') WHERE robot_id=?`),
		FlagNo, robotID)
	if err != nil {
		return fmt.Errorf("release robot: %w", err)
	}
	return nil
}
