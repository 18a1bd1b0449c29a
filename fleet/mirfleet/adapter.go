package mirfleet

import (
	"context"
	"time"

	"robopool/fleet"
	"robopool/mir"
)

// Config holds the configuration for creating a MiR adapter.
type Config struct {
	BaseURL      string
	Username     string
	Password     string
	Proxy        string
	Timeout      time.Duration
	PollInterval time.Duration
	Params       Params
}

// Adapter wraps a mir.Client to implement fleet.TrackingBackend and
// fleet.VendorProxy.
type Adapter struct {
	client       *mir.Client
	sequencer    *Sequencer
	pollInterval time.Duration
	poller       *mir.Poller
}

// New creates a new MiR adapter.
func New(cfg Config) (*Adapter, error) {
	client, err := mir.NewClient(mir.Options{
		BaseURL:  cfg.BaseURL,
		Username: cfg.Username,
		Password: cfg.Password,
		Proxy:    cfg.Proxy,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client:       client,
		sequencer:    NewSequencer(client, cfg.Params),
		pollInterval: cfg.PollInterval,
	}, nil
}

// --- fleet.Backend ---

func (a *Adapter) MoveToBin(ctx context.Context, req fleet.MoveToBinRequest) (fleet.MoveResult, error) {
	res, err := a.sequencer.MoveToBin(ctx, req.BinName, req.MissionName, req.RobotName)
	if err != nil {
		return fleet.MoveResult{}, err
	}
	return fleet.MoveResult{
		QueueID:      res.Queue.ID,
		MissionID:    res.MissionGUID,
		PositionID:   res.PositionGUID,
		MissionState: string(res.Queue.State),
	}, nil
}

func (a *Adapter) MoveToPosition(ctx context.Context, req fleet.MoveToPositionRequest) (fleet.MoveResult, error) {
	res, err := a.sequencer.MoveToPosition(ctx, req.RobotName, req.Position, req.MapName, req.GroupID)
	if err != nil {
		return fleet.MoveResult{}, err
	}
	return fleet.MoveResult{
		QueueID:      res.Queue.ID,
		MissionID:    res.MissionGUID,
		PositionID:   res.Position.GUID,
		MissionState: string(res.Queue.State),
	}, nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *Adapter) Name() string {
	return "MiR Fleet"
}

func (a *Adapter) Reconfigure(cfg fleet.ReconfigureParams) error {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return a.client.Reconfigure(mir.Options{
		BaseURL:  cfg.BaseURL,
		Username: cfg.Username,
		Password: cfg.Password,
		Proxy:    cfg.Proxy,
		Timeout:  timeout,
	})
}

// --- fleet.TrackingBackend ---

func (a *Adapter) InitTracker(emitter fleet.TrackerEmitter) {
	a.poller = mir.NewPoller(a.client, &emitterBridge{emitter: emitter}, a.pollInterval)
}

func (a *Adapter) Tracker() fleet.MissionTracker {
	if a.poller == nil {
		return nil
	}
	return a.poller
}

// --- fleet.VendorProxy ---

func (a *Adapter) BaseURL() string {
	return a.client.BaseURL()
}
