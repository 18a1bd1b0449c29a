package engine

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"robopool/config"
	"robopool/dispatch"
	"robopool/fleet"
	"robopool/fleet/mirfleet"
	"robopool/messaging"
	"robopool/poolstate"
	"robopool/store"
)

// pingConcurrency bounds simultaneous backend health checks.
const pingConcurrency = 4

type LogFunc func(format string, args ...any)

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Fleets     *fleet.Registry
	Pool       *poolstate.Manager
	MsgClient  *messaging.Client
	LogFunc    LogFunc
}

type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	fleets     *fleet.Registry
	pool       *poolstate.Manager
	msgClient  *messaging.Client
	dispatcher *dispatch.Dispatcher
	Events     *EventBus
	logFn      LogFunc
	stopChan   chan struct{}
	stopOnce   sync.Once

	mu             sync.Mutex
	trackers       map[string]fleet.MissionTracker
	fleetConnected map[string]bool
	msgConnected   bool
}

func New(c Config) *Engine {
	logFn := c.LogFunc
	if logFn == nil {
		logFn = log.Printf
	}
	pool := c.Pool
	if pool == nil {
		pool = poolstate.NewManager(c.DB, nil)
	}
	return &Engine{
		cfg:            c.AppConfig,
		configPath:     c.ConfigPath,
		db:             c.DB,
		fleets:         c.Fleets,
		pool:           pool,
		msgClient:      c.MsgClient,
		Events:         NewEventBus(),
		logFn:          logFn,
		stopChan:       make(chan struct{}),
		trackers:       make(map[string]fleet.MissionTracker),
		fleetConnected: make(map[string]bool),
	}
}

func (e *Engine) Start() {
	de := &dispatchEmitter{bus: e.Events}
	te := &trackerEmitter{bus: e.Events}

	e.dispatcher = dispatch.NewDispatcher(
		e.db,
		e.pool,
		e.fleets,
		de,
		dispatch.Criteria{RobotType: e.cfg.Pool.RobotType, Status: e.cfg.Pool.Status},
		moveTimeout(&e.cfg.Mir),
	)

	// Initialize a tracker for every backend that supports it
	e.fleets.Each(func(vendor string, b fleet.Backend) {
		tb, ok := b.(fleet.TrackingBackend)
		if !ok {
			return
		}
		tb.InitTracker(te)
		if t := tb.Tracker(); t != nil {
			e.mu.Lock()
			e.trackers[vendor] = t
			e.mu.Unlock()
		}
	})

	e.wireEventHandlers()

	for _, t := range e.trackerList() {
		t.Start()
	}

	e.checkConnectionStatus()
	go e.connectionHealthLoop()

	e.logFn("engine: started (vendors: %v)", e.fleets.Vendors())
}

func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopChan) })
	for _, t := range e.trackerList() {
		t.Stop()
	}
	if e.dispatcher != nil {
		e.dispatcher.Wait()
	}
	e.logFn("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                    { return e.db }
func (e *Engine) AppConfig() *config.Config        { return e.cfg }
func (e *Engine) ConfigPath() string               { return e.configPath }
func (e *Engine) Dispatcher() *dispatch.Dispatcher { return e.dispatcher }
func (e *Engine) Pool() *poolstate.Manager         { return e.pool }
func (e *Engine) Fleets() *fleet.Registry          { return e.fleets }
func (e *Engine) MsgClient() *messaging.Client     { return e.msgClient }

// Tracker returns the mission tracker for a vendor tag, or nil.
func (e *Engine) Tracker(vendor string) fleet.MissionTracker {
	vendor = strings.TrimSpace(vendor)
	e.mu.Lock()
	defer e.mu.Unlock()
	for tag, t := range e.trackers {
		if strings.EqualFold(tag, vendor) {
			return t
		}
	}
	return nil
}

// moveTimeout bounds one background move: the position sequence makes up
// to six vendor calls plus a token fetch, each bounded by the client timeout.
func moveTimeout(m *config.MirConfig) time.Duration {
	per := m.Timeout
	if per <= 0 {
		per = 10 * time.Second
	}
	return per * 7
}

// TrackedMissions returns the active vendor queue entries keyed by vendor.
func (e *Engine) TrackedMissions() map[string]map[int]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]map[int]string, len(e.trackers))
	for vendor, t := range e.trackers {
		out[vendor] = t.Active()
	}
	return out
}

// FleetConnected reports the last observed connection state per vendor.
func (e *Engine) FleetConnected() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]bool, len(e.fleetConnected))
	for k, v := range e.fleetConnected {
		out[k] = v
	}
	return out
}

func (e *Engine) trackerList() []fleet.MissionTracker {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]fleet.MissionTracker, 0, len(e.trackers))
	for _, t := range e.trackers {
		out = append(out, t)
	}
	return out
}

func (e *Engine) checkConnectionStatus() {
	type pingResult struct {
		vendor  string
		backend fleet.Backend
		err     error
	}
	var results []*pingResult
	e.fleets.Each(func(vendor string, b fleet.Backend) {
		results = append(results, &pingResult{vendor: vendor, backend: b})
	})

	var g errgroup.Group
	g.SetLimit(pingConcurrency)
	for _, p := range results {
		p := p
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			p.err = p.backend.Ping(ctx)
			return nil
		})
	}
	g.Wait()

	for _, p := range results {
		e.mu.Lock()
		was := e.fleetConnected[p.vendor]
		e.fleetConnected[p.vendor] = p.err == nil
		e.mu.Unlock()

		if p.err == nil && !was {
			e.Events.Emit(Event{Type: EventFleetConnected, Payload: ConnectionEvent{Vendor: p.vendor, Detail: p.backend.Name() + " connected"}})
		} else if p.err != nil && was {
			e.Events.Emit(Event{Type: EventFleetDisconnected, Payload: ConnectionEvent{Vendor: p.vendor, Detail: p.err.Error()}})
		}
	}

	if e.msgClient == nil {
		return
	}
	connected := e.msgClient.IsConnected()
	e.mu.Lock()
	was := e.msgConnected
	e.msgConnected = connected
	e.mu.Unlock()

	if connected && !was {
		e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: "messaging connected"}})
	} else if !connected && was {
		e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: "messaging disconnected"}})
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}

// ReconfigureFleet applies MiR connection changes live.
func (e *Engine) ReconfigureFleet() error {
	e.cfg.RLock()
	mirCfg := e.cfg.Mir
	e.cfg.RUnlock()

	base, err := mirCfg.BaseURL()
	if err != nil {
		return err
	}
	b, err := e.fleets.Lookup(mirfleet.VendorTag)
	if err != nil {
		return err
	}
	if err := b.Reconfigure(fleet.ReconfigureParams{
		BaseURL:  base,
		Username: mirCfg.Username,
		Password: mirCfg.Password,
		Proxy:    mirCfg.Proxy,
		Timeout:  mirCfg.Timeout,
	}); err != nil {
		e.logFn("engine: fleet reconfigure error: %v", err)
		return err
	}
	e.logFn("engine: fleet reconfigured (%s at %s)", b.Name(), base)
	e.checkConnectionStatus()
	return nil
}

// ReconfigureMessaging reconnects messaging with current config.
func (e *Engine) ReconfigureMessaging() {
	if e.msgClient == nil {
		return
	}
	e.cfg.RLock()
	msgCfg := e.cfg.Messaging
	e.cfg.RUnlock()
	if err := e.msgClient.Reconfigure(&msgCfg); err != nil {
		e.logFn("engine: messaging reconfigure error: %v", err)
	} else {
		e.logFn("engine: messaging reconfigured")
	}
	e.checkConnectionStatus()
}
