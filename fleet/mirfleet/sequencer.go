package mirfleet

import (
	"context"
	"fmt"
	"log"

	"robopool/config"
	"robopool/fleet"
	"robopool/mir"
)

// Params are the fixed values the sequences bind into vendor requests.
type Params struct {
	BinMission        string
	PositionParam     string
	MissionGroupID    string
	GeneratedMission  string
	DefaultMap        string
	ActionType        string
	Retries           int
	DistanceThreshold float64
}

// ParamsFromConfig copies the mission literals out of the MiR config section.
func ParamsFromConfig(m *config.MirConfig) Params {
	return Params{
		BinMission:        m.BinMission,
		PositionParam:     m.PositionParam,
		MissionGroupID:    m.MissionGroupID,
		GeneratedMission:  m.GeneratedMission,
		DefaultMap:        m.DefaultMap,
		ActionType:        m.ActionType,
		Retries:           m.Retries,
		DistanceThreshold: m.DistanceThreshold,
	}
}

// Vendor is the set of MiR calls the sequences make. *mir.Conn satisfies it.
type Vendor interface {
	ListPositions(ctx context.Context) ([]mir.Position, error)
	ListMaps(ctx context.Context) ([]mir.Map, error)
	ListMissions(ctx context.Context) ([]mir.Mission, error)
	CreatePosition(ctx context.Context, p mir.NewPosition) (*mir.Position, error)
	CreateMission(ctx context.Context, m mir.NewMission) (*mir.Mission, error)
	AddMoveAction(ctx context.Context, missionGUID string, a mir.MoveAction) (*mir.Action, error)
	EnqueueMission(ctx context.Context, missionGUID, inputName, inputValue string) (*mir.QueueEntry, error)
	DeleteMission(ctx context.Context, guid string) error
}

// Sequencer runs the multi-step MiR workflows. Each step waits for the
// previous one and the first failure ends the sequence. Steps already
// completed are not rolled back.
type Sequencer struct {
	login  func() Vendor
	params Params
}

func NewSequencer(client *mir.Client, params Params) *Sequencer {
	return &Sequencer{
		login:  func() Vendor { return client.Login() },
		params: params,
	}
}

// BinResult describes a queued bin move.
type BinResult struct {
	PositionGUID string
	MissionGUID  string
	Queue        *mir.QueueEntry
}

// MoveToBin queues the named bin-navigation mission with the bin's position
// bound to the mission's position parameter. An empty missionName selects
// the configured default.
func (s *Sequencer) MoveToBin(ctx context.Context, binName, missionName, robotName string) (*BinResult, error) {
	if missionName == "" {
		missionName = s.params.BinMission
	}
	vendor := s.login()

	positions, err := vendor.ListPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	positionGUID, err := mir.FindGUID(positions, "position", binName)
	if err != nil {
		return nil, err
	}

	missions, err := vendor.ListMissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	missionGUID, err := mir.FindGUID(missions, "mission", missionName)
	if err != nil {
		return nil, err
	}

	entry, err := vendor.EnqueueMission(ctx, missionGUID, s.params.PositionParam, positionGUID)
	if err != nil {
		return nil, fmt.Errorf("enqueue mission %s: %w", missionGUID, err)
	}
	log.Printf("mir: robot %s queued to bin %s (queue %d)", robotName, binName, entry.ID)
	return &BinResult{PositionGUID: positionGUID, MissionGUID: missionGUID, Queue: entry}, nil
}

// PositionResult describes a queued coordinate move.
type PositionResult struct {
	MapGUID     string
	Position    *mir.Position
	MissionGUID string
	Queue       *mir.QueueEntry
}

// MoveToPosition creates a position on the map, builds a one-action mission
// that moves to it, queues that mission and deletes the mission definition.
// Empty mapName and groupID select the configured defaults.
func (s *Sequencer) MoveToPosition(ctx context.Context, robotName string, pos fleet.Position, mapName, groupID string) (*PositionResult, error) {
	if mapName == "" {
		mapName = s.params.DefaultMap
	}
	if groupID == "" {
		groupID = s.params.MissionGroupID
	}
	vendor := s.login()

	maps, err := vendor.ListMaps(ctx)
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}
	mapGUID, err := mir.FindGUID(maps, "map", mapName)
	if err != nil {
		return nil, err
	}

	created, err := vendor.CreatePosition(ctx, mir.NewPosition{
		Name:        pos.Name,
		PosX:        pos.X,
		PosY:        pos.Y,
		Orientation: pos.Orientation,
		TypeID:      pos.Type,
		MapID:       mapGUID,
	})
	if err != nil {
		return nil, fmt.Errorf("create position %q: %w", pos.Name, err)
	}

	mission, err := vendor.CreateMission(ctx, mir.NewMission{
		Name:    s.params.GeneratedMission,
		GroupID: groupID,
		Hidden:  false,
	})
	if err != nil {
		return nil, fmt.Errorf("create mission: %w", err)
	}

	_, err = vendor.AddMoveAction(ctx, mission.GUID, mir.MoveAction{
		ActionType:        s.params.ActionType,
		PositionInputName: s.params.PositionParam,
		PositionGUID:      created.GUID,
		Retries:           s.params.Retries,
		DistanceThreshold: s.params.DistanceThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("add move action to %s: %w", mission.GUID, err)
	}

	entry, err := vendor.EnqueueMission(ctx, mission.GUID, s.params.PositionParam, created.GUID)
	if err != nil {
		return nil, fmt.Errorf("enqueue mission %s: %w", mission.GUID, err)
	}

	if err := vendor.DeleteMission(ctx, mission.GUID); err != nil {
		return nil, fmt.Errorf("delete mission %s: %w", mission.GUID, err)
	}
	log.Printf("mir: robot %s queued to position %q on %s (queue %d)", robotName, pos.Name, mapName, entry.ID)
	return &PositionResult{MapGUID: mapGUID, Position: created, MissionGUID: mission.GUID, Queue: entry}, nil
}
