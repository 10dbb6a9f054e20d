package kb

import (
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/model"
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventEntityUpserted EventType = iota
	EventEntityRemoved
)

// Event is emitted to subscribers when an entity changes.
type Event struct {
	Type   EventType
	Entity model.Entity
}

// KnowledgeBase is an in-memory, thread-safe entity directory. It answers
// member lookups for the topology designer.
type KnowledgeBase struct {
	mu sync.RWMutex

	entities map[string]model.Entity

	subs map[int]func(Event)
	next int
}

var _ core.EntityDirectory = (*KnowledgeBase)(nil)

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		entities: make(map[string]model.Entity),
		subs:     make(map[int]func(Event)),
	}
}

// AddEntity adds a new entity. It returns an error if the ID is empty or
// already exists.
func (kb *KnowledgeBase) AddEntity(e model.Entity) error {
	if e.ID == "" {
		return fmt.Errorf("entity ID must not be empty")
	}
	kb.mu.Lock()
	if _, exists := kb.entities[e.ID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("entity with ID %q already exists", e.ID)
	}
	kb.entities[e.ID] = e
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventEntityUpserted, Entity: e})
	return nil
}

// UpsertEntity inserts or replaces an entity.
func (kb *KnowledgeBase) UpsertEntity(e model.Entity) error {
	if e.ID == "" {
		return fmt.Errorf("entity ID must not be empty")
	}
	kb.mu.Lock()
	kb.entities[e.ID] = e
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventEntityUpserted, Entity: e})
	return nil
}

// RemoveEntity deletes an entity. Network memberships referencing it are
// left alone; they resolve to the unknown fallback afterwards.
func (kb *KnowledgeBase) RemoveEntity(id string) error {
	kb.mu.Lock()
	e, ok := kb.entities[id]
	if !ok {
		kb.mu.Unlock()
		return fmt.Errorf("entity with ID %q not found", id)
	}
	delete(kb.entities, id)
	subs := kb.snapshotSubsLocked()
	kb.mu.Unlock()

	notify(subs, Event{Type: EventEntityRemoved, Entity: e})
	return nil
}

// GetEntity returns the entity with the given ID.
func (kb *KnowledgeBase) GetEntity(id string) (model.Entity, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	e, ok := kb.entities[id]
	return e, ok
}

// ListEntities returns a snapshot of all entities sorted by ID.
func (kb *KnowledgeBase) ListEntities() []model.Entity {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make([]model.Entity, 0, len(kb.entities))
	for _, e := range kb.entities {
		res = append(res, e)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Len returns the number of entities.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.entities)
}

// Lookup implements core.EntityDirectory.
func (kb *KnowledgeBase) Lookup(id string) (core.Resolved, bool) {
	e, ok := kb.GetEntity(id)
	if !ok {
		return core.Resolved{}, false
	}
	return core.Resolved{Name: e.Name, Kind: string(e.Kind), Team: e.Team}, true
}

// LoadRecords upserts the entities carried by a scenario file and returns
// how many were loaded.
func (kb *KnowledgeBase) LoadRecords(recs []core.EntityRecord) (int, error) {
	for i, r := range recs {
		err := kb.UpsertEntity(model.Entity{
			ID:   r.ID,
			Name: r.Name,
			Kind: model.EntityKind(r.Kind),
			Team: r.Team,
		})
		if err != nil {
			return i, fmt.Errorf("entity record %d: %w", i, err)
		}
	}
	return len(recs), nil
}

// Records exports entities in scenario file form.
func (kb *KnowledgeBase) Records() []core.EntityRecord {
	list := kb.ListEntities()
	out := make([]core.EntityRecord, 0, len(list))
	for _, e := range list {
		out = append(out, core.EntityRecord{ID: e.ID, Name: e.Name, Kind: string(e.Kind), Team: e.Team})
	}
	return out
}

// Subscribe registers a callback for KB events. It returns an unsubscribe
// function. Callbacks run synchronously outside the KB lock.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.next
	kb.next++
	kb.subs[id] = fn

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		delete(kb.subs, id)
	}
}

func (kb *KnowledgeBase) snapshotSubsLocked() []func(Event) {
	ids := make([]int, 0, len(kb.subs))
	for id := range kb.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		out = append(out, kb.subs[id])
	}
	return out
}

// Notify subscribers outside the lock to avoid deadlocks.
func notify(subs []func(Event), e Event) {
	for _, sub := range subs {
		sub(e)
	}
}
