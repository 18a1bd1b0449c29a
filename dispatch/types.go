package dispatch

import (
	"time"

	"robopool/fleet"
)

// Move kinds.
const (
	MoveKindBin      = "bin"
	MoveKindPosition = "position"
)

// Move describes one movement request for a pool robot. Moves are not
// persisted; a restart forgets any that are still in flight.
type Move struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	RobotID     string          `json:"robot_id"`
	RobotName   string          `json:"robot_name"`
	Vendor      string          `json:"vendor"`
	ResourceID  string          `json:"resource_id"`
	Target      string          `json:"target"`
	MapName     string          `json:"map_name,omitempty"`
	Position    *fleet.Position `json:"position,omitempty"`
	RequestedAt time.Time       `json:"requested_at"`
}

// Criteria selects which robots are eligible for allocation.
type Criteria struct {
	RobotType string
	Status    string
}
