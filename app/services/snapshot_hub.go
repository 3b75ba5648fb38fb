package services

import (
	"sync"

	"github.com/client-geomap/app/models"
	"github.com/juju/pubsub/v2"
	"go.uber.org/zap"
)

const snapshotTopic = "clients.snapshot"

// Publisher receives every snapshot the orchestrator produces.
// Publish must not block.
type Publisher interface {
	Publish(snap models.Snapshot)
}

// SnapshotHub keeps the latest snapshot and fans it out to subscribers over
// a pubsub hub. Slow subscribers skip intermediate snapshots and only see the
// newest one.
type SnapshotHub struct {
	hub *pubsub.SimpleHub

	mu     sync.RWMutex
	latest models.Snapshot
	subs   int
}

// NewSnapshotHub creates a hub holding an empty idle snapshot
func NewSnapshotHub(logger *zap.Logger) *SnapshotHub {
	return &SnapshotHub{
		hub: pubsub.NewSimpleHub(&pubsub.SimpleHubConfig{
			Logger: hubLogger{logger.Sugar().Named("snapshots")},
		}),
		latest: models.Snapshot{Phase: models.PhaseIdle, Records: []models.ClientRecord{}},
	}
}

// Publish stores snap and hands it to the hub. Delivery is asynchronous,
// in publish order per subscriber.
func (h *SnapshotHub) Publish(snap models.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = snap
	_ = h.hub.Publish(snapshotTopic, snap)
}

// Latest returns the most recent snapshot
func (h *SnapshotHub) Latest() models.Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// Subscribe returns a channel primed with the latest snapshot and a cancel func
func (h *SnapshotHub) Subscribe() (<-chan models.Snapshot, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &subscriber{ch: make(chan models.Snapshot, 1)}
	sub.ch <- h.latest
	unsubscribe := h.hub.Subscribe(snapshotTopic, sub.onSnapshot)
	h.subs++

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsubscribe()
			sub.close()

			h.mu.Lock()
			h.subs--
			h.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Subscribers counts open subscriptions
func (h *SnapshotHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subs
}

// subscriber is a single-slot mailbox: a new snapshot replaces an unread one
type subscriber struct {
	mu     sync.Mutex
	ch     chan models.Snapshot
	closed bool
}

func (s *subscriber) onSnapshot(_ string, data interface{}) {
	snap, ok := data.(models.Snapshot)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	select {
	case s.ch <- snap:
		return
	default:
	}
	// drop the stale one
	select {
	case <-s.ch:
	default:
	}
	s.ch <- snap
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// hubLogger routes pubsub diagnostics to zap
type hubLogger struct {
	s *zap.SugaredLogger
}

func (l hubLogger) Errorf(format string, args ...interface{})   { l.s.Errorf(format, args...) }
func (l hubLogger) Warningf(format string, args ...interface{}) { l.s.Warnf(format, args...) }
func (l hubLogger) Infof(format string, args ...interface{})    { l.s.Debugf(format, args...) }
func (l hubLogger) Debugf(format string, args ...interface{})   { l.s.Debugf(format, args...) }
func (l hubLogger) Tracef(format string, args ...interface{})   {}

// MultiPublisher forwards to several publishers in order
type MultiPublisher []Publisher

// Publish forwards snap
func (m MultiPublisher) Publish(snap models.Snapshot) {
	for _, p := range m {
		if p != nil {
			p.Publish(snap)
		}
	}
}
