package mir

import (
	"context"
	"log"
	"sync"
	"time"
)

// PollerEmitter receives queue state transitions from the poller.
type PollerEmitter interface {
	EmitMissionStateChanged(queueID int, missionGUID, robotName, oldState, newState, message string)
}

type trackedEntry struct {
	state       QueueState
	missionGUID string
	robotName   string
}

// Poller periodically checks queued missions for state transitions.
// Tracking is in memory only; a restart forgets every entry.
type Poller struct {
	client   *Client
	emitter  PollerEmitter
	interval time.Duration

	mu       sync.Mutex
	active   map[int]*trackedEntry
	stopChan chan struct{}
	stopOnce sync.Once
}

// DefaultPollInterval applies when the configured interval is not positive.
const DefaultPollInterval = 5 * time.Second

func NewPoller(client *Client, emitter PollerEmitter, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		client:   client,
		emitter:  emitter,
		interval: interval,
		active:   make(map[int]*trackedEntry),
		stopChan: make(chan struct{}),
	}
}

// Track adds a queue entry to the active poll set.
func (p *Poller) Track(queueID int, missionGUID, robotName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.active[queueID]; !exists {
		p.active[queueID] = &trackedEntry{state: QueuePending, missionGUID: missionGUID, robotName: robotName}
	}
}

// Untrack removes a queue entry from the active poll set.
func (p *Poller) Untrack(queueID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, queueID)
}

// ActiveCount returns the number of entries being polled.
func (p *Poller) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Active returns the tracked queue IDs and their last known state.
func (p *Poller) Active() map[int]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[int]string, len(p.active))
	for id, e := range p.active {
		out[id] = string(e.state)
	}
	return out
}

func (p *Poller) Start() {
	go p.run()
}

// Stop halts polling. It is safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
}

func (p *Poller) run() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	p.mu.Lock()
	ids := make([]int, 0, len(p.active))
	for id := range p.active {
		ids = append(ids, id)
	}
	p.mu.Unlock()
	if len(ids) == 0 {
		return
	}

	conn := p.client.Login()
	for _, id := range ids {
		select {
		case <-p.stopChan:
			return
		default:
		}
		ctx, cancel := context.WithTimeout(context.Background(), p.interval)
		entry, err := conn.GetQueueEntry(ctx, id)
		cancel()
		if err != nil {
			log.Printf("mir poller: get queue entry %d: %v", id, err)
			continue
		}

		p.mu.Lock()
		tracked, exists := p.active[id]
		if !exists || entry.State == "" || entry.State == tracked.state {
			p.mu.Unlock()
			continue
		}
		oldState := tracked.state
		if entry.State.IsTerminal() {
			delete(p.active, id)
		} else {
			tracked.state = entry.State
		}
		missionGUID, robotName := tracked.missionGUID, tracked.robotName
		p.mu.Unlock()

		p.emitter.EmitMissionStateChanged(id, missionGUID, robotName, string(oldState), string(entry.State), entry.Message)
	}
}
