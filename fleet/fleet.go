package fleet

import (
	"context"
	"errors"
	"time"
)

// ErrNoBackend is returned when no backend is registered for a robot's vendor.
var ErrNoBackend = errors.New("no fleet backend for vendor")

// Backend is the vendor-neutral interface for robot control systems.
// Implementations wrap vendor-specific APIs (MiR, Fetch, etc.).
type Backend interface {
	// MoveToBin sends a robot to a named warehouse bin.
	MoveToBin(ctx context.Context, req MoveToBinRequest) (MoveResult, error)

	// MoveToPosition sends a robot to an ad-hoc coordinate on a map.
	MoveToPosition(ctx context.Context, req MoveToPositionRequest) (MoveResult, error)

	// Ping checks connectivity to the vendor API.
	Ping(ctx context.Context) error

	// Name returns a human-readable name for this backend (e.g. "MiR Fleet").
	Name() string

	// Reconfigure applies configuration changes at runtime.
	Reconfigure(cfg ReconfigureParams) error
}

// MoveToBinRequest contains vendor-neutral parameters for a bin move.
type MoveToBinRequest struct {
	RobotName   string
	BinName     string
	MissionName string // empty selects the backend default
}

// Position is an ad-hoc target coordinate.
type Position struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Orientation float64 `json:"orientation"`
	Name        string  `json:"name"`
	Type        int     `json:"type"`
}

// MoveToPositionRequest contains vendor-neutral parameters for a coordinate move.
type MoveToPositionRequest struct {
	RobotName string
	Position  Position
	MapName   string // empty selects the backend default
	GroupID   string // empty selects the backend default
}

// MoveResult identifies what the vendor queued.
type MoveResult struct {
	QueueID      int
	MissionID    string
	PositionID   string
	MissionState string
}

// ReconfigureParams carries connection settings for hot-reload.
type ReconfigureParams struct {
	BaseURL  string
	Username string
	Password string
	Proxy    string
	Timeout  time.Duration
}
