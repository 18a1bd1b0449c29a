package mir

import "context"

// ListMaps retrieves every map stored on the fleet.
func (c *Conn) ListMaps(ctx context.Context) ([]Map, error) {
	var maps []Map
	if err := c.get(ctx, "maps", &maps); err != nil {
		return nil, err
	}
	return maps, nil
}
