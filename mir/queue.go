package mir

import (
	"context"
	"fmt"
)

// EnqueueMission puts a mission on the execution queue with one input binding.
func (c *Conn) EnqueueMission(ctx context.Context, missionGUID, inputName, inputValue string) (*QueueEntry, error) {
	req := &QueueRequest{
		MissionID:  missionGUID,
		Parameters: []QueueParameter{{InputName: inputName, Value: inputValue}},
	}
	var entry QueueEntry
	if err := c.post(ctx, "mission_queue", req, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetQueueEntry retrieves the current state of a queued mission.
func (c *Conn) GetQueueEntry(ctx context.Context, id int) (*QueueEntry, error) {
	var entry QueueEntry
	if err := c.get(ctx, fmt.Sprintf("mission_queue/%d", id), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
