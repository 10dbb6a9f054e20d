package main

import (
	"fmt"
	"os"

	"github.com/signalsfoundry/comms-designer/core"
	"github.com/signalsfoundry/comms-designer/kb"
)

// session is one scenario file loaded into a store and a directory.
type session struct {
	path     string
	store    *core.TopologyStore
	dir      *kb.KnowledgeBase
	entities int
}

func loadSession(path string) (*session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	store := core.NewTopologyStore()
	sc, err := core.LoadInto(store, f, core.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	dir := kb.NewKnowledgeBase()
	n, err := dir.LoadRecords(sc.Entities)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &session{path: path, store: store, dir: dir, entities: n}, nil
}

// networks returns every network, or only the one named by id.
func (s *session) networks(id string) ([]*core.Network, error) {
	if id == "" {
		return s.store.Networks(), nil
	}
	n, err := s.store.Network(id)
	if err != nil {
		return nil, err
	}
	return []*core.Network{n}, nil
}

func (s *session) save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	sc := &core.Scenario{Networks: s.store.Networks(), Entities: s.dir.Records()}
	if err := core.SaveScenario(f, sc, core.FormatFromPath(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
