package messaging

import (
	"log"
	"sync"
	"time"

	"robopool/store"
)

// Publisher sends a raw payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

const (
	drainBatch    = 50
	purgeEvery    = time.Hour
	sentRetention = 24 * time.Hour
)

// OutboxDrainer periodically sends pending outbox messages and purges
// delivered ones past the retention window.
type OutboxDrainer struct {
	db        *store.DB
	client    Publisher
	interval  time.Duration
	lastPurge time.Time
	stopOnce  sync.Once
	stopChan  chan struct{}
}

func NewOutboxDrainer(db *store.DB, client Publisher, interval time.Duration) *OutboxDrainer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxDrainer{
		db:        db,
		client:    client,
		interval:  interval,
		lastPurge: time.Now(),
		stopChan:  make(chan struct{}),
	}
}

func (d *OutboxDrainer) Start() {
	go d.run()
}

func (d *OutboxDrainer) Stop() {
	d.stopOnce.Do(func() { close(d.stopChan) })
}

func (d *OutboxDrainer) run() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.drain()
			if time.Since(d.lastPurge) >= purgeEvery {
				d.purge()
			}
		}
	}
}

func (d *OutboxDrainer) drain() {
	msgs, err := d.db.ListPendingOutbox(drainBatch)
	if err != nil {
		log.Printf("outbox: list pending: %v", err)
		return
	}
	for _, msg := range msgs {
		if err := d.client.Publish(msg.Topic, msg.Payload); err != nil {
			log.Printf("outbox: publish %s to %s failed: %v", msg.MsgType, msg.Topic, err)
			d.db.IncrementOutboxRetries(msg.ID)
			continue
		}
		d.db.AckOutbox(msg.ID)
	}
}

func (d *OutboxDrainer) purge() {
	d.lastPurge = time.Now()
	n, err := d.db.PurgeSentOutbox(sentRetention)
	if err != nil {
		log.Printf("outbox: purge: %v", err)
		return
	}
	if n > 0 {
		log.Printf("outbox: purged %d delivered message(s)", n)
	}
}
