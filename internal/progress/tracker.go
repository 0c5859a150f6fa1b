package progress

import (
	"sync"

	"go.uber.org/zap"

	"bridge-pos-payments/internal/terminal"
)

// Tracker owns the snapshot of the operation in flight and publishes every change to
// its subscribers. It is safe for concurrent use.
type Tracker struct {
	mu          sync.RWMutex
	snap        Snapshot
	catalog     *Catalog
	subscribers map[int]chan Snapshot
	nextID      int
	logger      *zap.SugaredLogger
}

func NewTracker(logger *zap.SugaredLogger) *Tracker {
	return &Tracker{
		snap:        Idle(),
		catalog:     PaymentCatalog(),
		subscribers: make(map[int]chan Snapshot),
		logger:      logger,
	}
}

// Start opens a new operation of the given kind and returns its first snapshot.
func (t *Tracker) Start(kind OperationKind) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.catalog = CatalogFor(kind)
	return t.setLocked(Start(kind, t.catalog), "start")
}

// OnEvent makes the tracker usable as the gateway's event listener.
func (t *Tracker) OnEvent(message string, code terminal.EventCode) {
	t.Apply(terminal.ProgressEvent{Code: code, Message: message})
}

func (t *Tracker) Apply(ev terminal.ProgressEvent) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.setLocked(Apply(t.snap, ev, t.catalog), string(ev.Code))
}

func (t *Tracker) Succeed() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.setLocked(Succeed(t.snap, t.catalog), "succeed")
}

func (t *Tracker) Fail(err *terminal.OperationError) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.setLocked(Fail(t.snap, err, t.catalog), "fail")
}

// Reject records an operation of the given kind that failed before reaching the
// terminal, such as on invalid input.
func (t *Tracker) Reject(kind OperationKind, err *terminal.OperationError) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.catalog = CatalogFor(kind)
	return t.setLocked(Fail(Start(kind, t.catalog), err, t.catalog), "reject")
}

// Reset returns to IDLE. It refuses, with a warning, while an operation is processing.
func (t *Tracker) Reset() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	next, ok := Reset(t.snap)
	if !ok {
		t.logger.Warnf("Cannot reset while %s is processing (state %s); abort it first", t.snap.Operation, t.snap.State)
		return false
	}
	t.setLocked(next, "reset")
	return true
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

func (t *Tracker) IsProcessing() bool { return t.Snapshot().IsProcessing() }

func (t *Tracker) IsSuccess() bool { return t.Snapshot().IsSuccess() }

func (t *Tracker) IsError() bool { return t.Snapshot().IsError() }

// Subscribe returns a channel receiving every snapshot change and a cancel function.
// Slow subscribers lose the oldest buffered snapshot rather than blocking the tracker.
func (t *Tracker) Subscribe(buffer int) (<-chan Snapshot, func()) {
	if buffer < 1 {
		buffer = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	ch := make(chan Snapshot, buffer)
	t.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (t *Tracker) setLocked(next Snapshot, trigger string) Snapshot {
	prev := t.snap
	t.snap = next

	if prev.State != next.State {
		t.logger.Debugf("progress %s: %s -> %s (%s)", next.Operation, prev.State, next.State, trigger)
	}

	for _, ch := range t.subscribers {
		select {
		case ch <- next:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- next:
			default:
			}
		}
	}
	return next
}
