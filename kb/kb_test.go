package kb

import (
	"fmt"
	"sync"
	"testing"

	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/model"
)

func TestAddAndGetEntity(t *testing.T) {
	store := NewKnowledgeBase()
	e := model.Entity{ID: "f16-1", Name: "Viper 1", Kind: model.KindAircraft, Team: "blue"}
	if err := store.AddEntity(e); err != nil {
		t.Fatalf("AddEntity error: %v", err)
	}
	got, ok := store.GetEntity("f16-1")
	if !ok || got != e {
		t.Fatalf("GetEntity returned %#v, want %#v", got, e)
	}
}

func TestAddEntityDuplicate(t *testing.T) {
	store := NewKnowledgeBase()
	if err := store.AddEntity(model.Entity{ID: "e1"}); err != nil {
		t.Fatalf("first AddEntity error: %v", err)
	}
	if err := store.AddEntity(model.Entity{ID: "e1"}); err == nil {
		t.Fatalf("expected duplicate AddEntity to fail")
	}
	if err := store.AddEntity(model.Entity{}); err == nil {
		t.Fatalf("expected empty ID to fail")
	}
}

func TestLookupImplementsDirectory(t *testing.T) {
	store := NewKnowledgeBase()
	_ = store.AddEntity(model.Entity{ID: "ddg-51", Name: "Arleigh Burke", Kind: model.KindShip, Team: "blue"})

	topo := core.NewTopologyStore()
	got := core.Resolve(topo, store, "ddg-51")
	want := core.Resolved{Name: "Arleigh Burke", Kind: "ship", Team: "blue"}
	if got != want {
		t.Fatalf("Resolve = %+v, want %+v", got, want)
	}

	if err := store.RemoveEntity("ddg-51"); err != nil {
		t.Fatalf("RemoveEntity error: %v", err)
	}
	if got := core.Resolve(topo, store, "ddg-51"); got.Kind != core.KindUnknown {
		t.Fatalf("Resolve after remove = %+v, want unknown", got)
	}
	if err := store.RemoveEntity("ddg-51"); err == nil {
		t.Fatalf("expected RemoveEntity of missing id to fail")
	}
}

func TestLoadRecordsAndExport(t *testing.T) {
	store := NewKnowledgeBase()
	recs := []core.EntityRecord{
		{ID: "b", Name: "Bravo", Kind: "ground", Team: "red"},
		{ID: "a", Name: "Alpha", Kind: "unit"},
	}
	n, err := store.LoadRecords(recs)
	if err != nil || n != 2 {
		t.Fatalf("LoadRecords = %d, %v", n, err)
	}
	out := store.Records()
	if len(out) != 2 || out[0].ID != "a" || out[1] != recs[0] {
		t.Fatalf("Records = %+v", out)
	}

	if _, err := store.LoadRecords([]core.EntityRecord{{Name: "no id"}}); err == nil {
		t.Fatalf("expected error for record without id")
	}
}

func TestSubscribe(t *testing.T) {
	store := NewKnowledgeBase()

	var got []Event
	unsubscribe := store.Subscribe(func(e Event) { got = append(got, e) })

	_ = store.UpsertEntity(model.Entity{ID: "e1", Name: "one"})
	_ = store.RemoveEntity("e1")
	unsubscribe()
	_ = store.UpsertEntity(model.Entity{ID: "e2"})

	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Type != EventEntityUpserted || got[1].Type != EventEntityRemoved {
		t.Fatalf("event types = %v, %v", got[0].Type, got[1].Type)
	}
	if got[1].Entity.Name != "one" {
		t.Fatalf("removed event entity = %#v", got[1].Entity)
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewKnowledgeBase()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.UpsertEntity(model.Entity{ID: fmt.Sprintf("e-%d", i)})
		}()
		go func() {
			defer wg.Done()
			_, _ = store.Lookup("e-0")
			_ = store.ListEntities()
		}()
	}
	wg.Wait()

	if got := store.Len(); got != 10 {
		t.Fatalf("Len = %d, want 10", got)
	}
}
