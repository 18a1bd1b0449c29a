package engine

import (
	"robopool/dispatch"
	"robopool/fleet"
)

const (
	EventRobotAllocated EventType = iota + 1
	EventAllocationFailed
	EventRobotReleased
	EventRobotUpdated
	EventMoveRequested
	EventMoveQueued
	EventMoveFailed
	EventMissionStateChanged
	EventFleetConnected
	EventFleetDisconnected
	EventMessagingConnected
	EventMessagingDisconnected
)

// --- Event payloads ---

type RobotAllocatedEvent struct {
	RobotID    string
	RobotName  string
	Vendor     string
	ResourceID string
	LeaseID    string
}

type AllocationFailedEvent struct {
	RobotType string
	Reason    string
}

type RobotReleasedEvent struct {
	RobotID    string
	Vendor     string
	ResourceID string
	LeaseID    string
}

type RobotUpdatedEvent struct {
	RobotID string
	Action  string // "created", "updated", "deleted", "mapped", "status"
	Detail  string
	Actor   string
}

type MoveRequestedEvent struct {
	Move dispatch.Move
}

type MoveQueuedEvent struct {
	Move   dispatch.Move
	Result fleet.MoveResult
}

type MoveFailedEvent struct {
	Move   dispatch.Move
	Detail string
}

type MissionStateChangedEvent struct {
	Vendor    string
	QueueID   int
	MissionID string
	RobotName string
	OldState  string
	NewState  string
	Detail    string
}

type ConnectionEvent struct {
	Vendor string
	Detail string
}
