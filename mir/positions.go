package mir

import (
	"context"
	"fmt"
	"net/url"
)

// ListPositions retrieves every position known to the fleet.
func (c *Conn) ListPositions(ctx context.Context) ([]Position, error) {
	var positions []Position
	if err := c.get(ctx, "positions", &positions); err != nil {
		return nil, err
	}
	return positions, nil
}

// CreatePosition adds a position to a map and returns the vendor's record of it.
func (c *Conn) CreatePosition(ctx context.Context, p NewPosition) (*Position, error) {
	var created Position
	if err := c.post(ctx, "positions", &p, &created); err != nil {
		return nil, err
	}
	if created.GUID == "" {
		return nil, &ParseError{Path: "positions", Err: fmt.Errorf("response has no guid")}
	}
	return &created, nil
}

// DeletePosition removes a position.
func (c *Conn) DeletePosition(ctx context.Context, guid string) error {
	return c.delete(ctx, "positions/"+url.PathEscape(guid))
}
