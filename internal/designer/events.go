package designer

import (
	"sync"

	"github.com/signalsfoundry/comms-designer/core"
)

// EventType identifies a topology or layout change.
type EventType string

const (
	EventNetworkCreated  EventType = "network_created"
	EventNetworkUpdated  EventType = "network_updated"
	EventNetworkDeleted  EventType = "network_deleted"
	EventNetworksLoaded  EventType = "networks_loaded"
	EventPositionsUpdate EventType = "positions_updated"
)

// LayoutFrame is one committed layout step for a network. Done is set on
// the last frame of a run, whether it completed or was cancelled.
type LayoutFrame struct {
	NetworkID string         `json:"networkId"`
	Tick      int            `json:"tick"`
	Positions core.Positions `json:"positions"`
	Done      bool           `json:"done"`
	Cancelled bool           `json:"cancelled,omitempty"`
}

// Event is delivered to bus subscribers. Frame is only set for
// EventPositionsUpdate.
type Event struct {
	Type      EventType    `json:"type"`
	NetworkID string       `json:"networkId,omitempty"`
	Frame     *LayoutFrame `json:"frame,omitempty"`
}

// EventBus fans events out to subscriber channels. Publish never blocks:
// a subscriber whose buffer is full misses the event, except for the Done
// frame of a layout run, which evicts the oldest buffered event instead.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel with the given buffer and a function that
// detaches and closes it.
func (eb *EventBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	eb.mu.Lock()
	id := eb.nextID
	eb.nextID++
	eb.subs[id] = ch
	eb.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			eb.mu.Lock()
			delete(eb.subs, id)
			eb.mu.Unlock()
			close(ch)
		})
	}
}

// Publish sends event to every subscriber.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	final := event.Frame != nil && event.Frame.Done
	for _, ch := range eb.subs {
		if final {
			deliverEvicting(ch, event)
			continue
		}
		select {
		case ch <- event:
		default:
			// slow subscriber
		}
	}
}

// deliverEvicting sends event to ch, dropping the oldest buffered events
// until there is room. Callers hold the bus read lock, so ch is open.
func deliverEvicting(ch chan Event, event Event) {
	for {
		select {
		case ch <- event:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Len reports the number of attached subscribers.
func (eb *EventBus) Len() int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.subs)
}
