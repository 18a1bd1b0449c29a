package mir

import "context"

// ListSessions retrieves the fleet's sessions (site configurations).
func (c *Conn) ListSessions(ctx context.Context) ([]Session, error) {
	var sessions []Session
	if err := c.get(ctx, "sessions", &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Ping checks connectivity and credentials with a sessions read.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Login().ListSessions(ctx)
	return err
}
