package messaging

import (
	"time"

	"robopool/fleet"
)

// Envelope is the typed message wrapper for commands and pool events.
type Envelope struct {
	MsgType   string    `json:"msg_type"`
	MsgID     string    `json:"msg_id"`
	StationID string    `json:"station_id"`
	ReplyTo   string    `json:"reply_to,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Inbound command types.
const (
	TypeAllocate       = "robot.allocate"
	TypeRelease        = "robot.release"
	TypeMoveToBin      = "robot.move_to_bin"
	TypeMoveToPosition = "robot.move_to_position"
)

// Outbound event types.
const (
	TypeRobotAllocated      = "robot.allocated"
	TypeAllocationFailed    = "robot.allocation_failed"
	TypeRobotReleased       = "robot.released"
	TypeMoveQueued          = "move.queued"
	TypeMoveFailed          = "move.failed"
	TypeMissionStateChanged = "mission.state_changed"
	TypeCommandRejected     = "command.rejected"
)

// --- Inbound payloads ---

type AllocateCommand struct {
	RobotType string `json:"robot_type"`
}

type ReleaseCommand struct {
	ResourceID string `json:"resource_id"`
}

type MoveToBinCommand struct {
	ResourceID string `json:"resource_id"`
	BinID      string `json:"bin_id"`
}

type MoveToPositionCommand struct {
	ResourceID string         `json:"resource_id"`
	Position   fleet.Position `json:"position"`
	MapName    string         `json:"map_name"`
}

// --- Outbound payloads ---

type RobotAllocated struct {
	RobotID    string `json:"robot_id"`
	RobotName  string `json:"robot_name"`
	Vendor     string `json:"vendor"`
	ResourceID string `json:"resource_id"`
	LeaseID    string `json:"lease_id"`
}

type AllocationFailed struct {
	RobotType string `json:"robot_type"`
	Reason    string `json:"reason"`
}

type RobotReleased struct {
	RobotID    string `json:"robot_id"`
	Vendor     string `json:"vendor"`
	ResourceID string `json:"resource_id"`
}

type MoveQueued struct {
	MoveID     string `json:"move_id"`
	Kind       string `json:"kind"`
	RobotID    string `json:"robot_id"`
	ResourceID string `json:"resource_id"`
	Target     string `json:"target"`
	QueueID    int    `json:"queue_id"`
	MissionID  string `json:"mission_id"`
	PositionID string `json:"position_id,omitempty"`
}

type MoveFailed struct {
	MoveID     string `json:"move_id"`
	Kind       string `json:"kind"`
	RobotID    string `json:"robot_id"`
	ResourceID string `json:"resource_id"`
	Target     string `json:"target"`
	Detail     string `json:"detail"`
}

type MissionStateChanged struct {
	Vendor    string `json:"vendor"`
	QueueID   int    `json:"queue_id"`
	MissionID string `json:"mission_id"`
	RobotName string `json:"robot_name"`
	OldState  string `json:"old_state"`
	NewState  string `json:"new_state"`
	Detail    string `json:"detail,omitempty"`
}

type CommandRejected struct {
	CommandID   string `json:"command_id"`
	CommandType string `json:"command_type"`
	Reason      string `json:"reason"`
}
