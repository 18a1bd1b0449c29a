package poolstate

import (
	"time"

	"robopool/store"
)

// RobotState is the cached view of one pool robot.
type RobotState struct {
	RobotID         string     `json:"robot_id"`
	RobotName       string     `json:"robot_name"`
	Vendor          string     `json:"vendor"`
	Model           string     `json:"model"`
	Type            string     `json:"robot_type"`
	OperationStatus string     `json:"operation_status"`
	Allocated       bool       `json:"allocated"`
	ResourceID      string     `json:"resource_id"`
	LeaseID         string     `json:"lease_id,omitempty"`
	AllocatedAt     *time.Time `json:"allocated_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func stateFromRobot(r *store.Robot) *RobotState {
	return &RobotState{
		RobotID:         r.ID,
		RobotName:       r.Name,
		Vendor:          r.Vendor,
		Model:           r.Model,
		Type:            r.Type,
		OperationStatus: r.OperationStatus,
		Allocated:       r.Allocated,
		ResourceID:      r.ResourceID,
		LeaseID:         r.LeaseID,
		AllocatedAt:     r.AllocatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
