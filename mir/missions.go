package mir

import (
	"context"
	"fmt"
	"net/url"
)

// ActionPriority is the priority every generated action is created with.
const ActionPriority = 1

// ListMissions retrieves every mission definition.
func (c *Conn) ListMissions(ctx context.Context) ([]Mission, error) {
	var missions []Mission
	if err := c.get(ctx, "missions", &missions); err != nil {
		return nil, err
	}
	return missions, nil
}

// CreateMission creates an empty mission. The GUID is taken from the response body.
func (c *Conn) CreateMission(ctx context.Context, m NewMission) (*Mission, error) {
	var created Mission
	if err := c.post(ctx, "missions", &m, &created); err != nil {
		return nil, err
	}
	if created.GUID == "" {
		return nil, &ParseError{Path: "missions", Err: fmt.Errorf("response has no guid")}
	}
	return &created, nil
}

// AddMoveAction appends a move action to a mission.
func (c *Conn) AddMoveAction(ctx context.Context, missionGUID string, a MoveAction) (*Action, error) {
	path := "missions/" + url.PathEscape(missionGUID) + "/actions"
	var created Action
	if err := c.post(ctx, path, moveActionRequest(a), &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func moveActionRequest(a MoveAction) *ActionRequest {
	actionType := a.ActionType
	if actionType == "" {
		actionType = "move"
	}
	inputName := a.PositionInputName
	return &ActionRequest{
		ActionType: actionType,
		Parameters: []ActionParameter{
			{ID: "position", InputName: &inputName, Value: a.PositionGUID},
			{ID: "retries", Value: a.Retries},
			{ID: "distance_threshold", Value: a.DistanceThreshold},
		},
		Priority: ActionPriority,
	}
}

// DeleteMission removes a mission definition.
func (c *Conn) DeleteMission(ctx context.Context, guid string) error {
	return c.delete(ctx, "missions/"+url.PathEscape(guid))
}
