package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScenarioFormat names a scenario file encoding.
type ScenarioFormat string

const (
	FormatJSON ScenarioFormat = "json"
	FormatYAML ScenarioFormat = "yaml"
)

// FormatFromPath picks the encoding from a file extension, defaulting to
// JSON.
func FormatFromPath(path string) ScenarioFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// EntityRecord is an external entity carried alongside networks so a
// scenario file can be resolved without a live directory.
type EntityRecord struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
	Team string `json:"team,omitempty" yaml:"team,omitempty"`
}

// Scenario is the decoded content of a scenario file.
type Scenario struct {
	Networks []*Network
	Entities []EntityRecord
}

// scenarioFile is the persisted shape. Only the durable network fields are
// written; member kinds are re-derived on load.
type scenarioFile struct {
	Networks []networkRecord `json:"networks" yaml:"networks"`
	Entities []EntityRecord  `json:"entities,omitempty" yaml:"entities,omitempty"`
}

type networkRecord struct {
	ID      string       `json:"id" yaml:"id"`
	Name    string       `json:"name" yaml:"name"`
	Type    TopologyType `json:"type" yaml:"type"`
	Members []string     `json:"members" yaml:"members"`
	Hub     *string      `json:"hub" yaml:"hub"`
	Path    []string     `json:"path,omitempty" yaml:"path,omitempty"`
	Links   []Link       `json:"links,omitempty" yaml:"links,omitempty"`
	Config  *LinkConfig  `json:"config,omitempty" yaml:"config,omitempty"`
}

func toRecord(n *Network) networkRecord {
	cfg := n.Config
	rec := networkRecord{
		ID:      n.ID,
		Name:    n.Name,
		Type:    n.Type,
		Members: n.MemberIDs(),
		Hub:     n.Clone().Hub,
		Config:  &cfg,
	}
	if len(n.Path) > 0 {
		rec.Path = append([]string{}, n.Path...)
	}
	if len(n.Links) > 0 {
		rec.Links = append([]Link{}, n.Links...)
	}
	return rec
}

func (r networkRecord) toNetwork() *Network {
	n := &Network{
		ID:      r.ID,
		Name:    r.Name,
		Type:    r.Type,
		Members: make([]MemberRef, 0, len(r.Members)),
		Hub:     r.Hub,
		Path:    r.Path,
		Links:   r.Links,
		Config:  DefaultLinkConfig(),
	}
	if n.Type == "" {
		n.Type = TopologyMesh
	}
	for _, id := range r.Members {
		// Kinds are placeholders until the store re-resolves them.
		n.Members = append(n.Members, EntityRef(id))
	}
	if r.Config != nil {
		n.Config = *r.Config
	}
	return n
}

// LoadScenario decodes a scenario from r. JSON input may also be a bare
// array of networks. The result still has to go through
// TopologyStore.SetNetworks to resolve member kinds and prune dangling
// references.
func LoadScenario(r io.Reader, format ScenarioFormat) (*Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("LoadScenario: read failed: %w", err)
	}

	var file scenarioFile
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("LoadScenario: decode yaml: %w", err)
		}
	case FormatJSON, "":
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &file.Networks)
		} else {
			err = json.Unmarshal(trimmed, &file)
		}
		if err != nil {
			return nil, fmt.Errorf("LoadScenario: decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("LoadScenario: unknown format %q", format)
	}

	sc := &Scenario{
		Networks: make([]*Network, 0, len(file.Networks)),
		Entities: file.Entities,
	}
	for _, rec := range file.Networks {
		if rec.ID == "" {
			return nil, fmt.Errorf("LoadScenario: network with empty id")
		}
		sc.Networks = append(sc.Networks, rec.toNetwork())
	}
	return sc, nil
}

// SaveScenario writes the persisted form of sc to w.
func SaveScenario(w io.Writer, sc *Scenario, format ScenarioFormat) error {
	file := scenarioFile{
		Networks: make([]networkRecord, 0, len(sc.Networks)),
		Entities: sc.Entities,
	}
	for _, n := range sc.Networks {
		file.Networks = append(file.Networks, toRecord(n))
	}

	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&file); err != nil {
			return fmt.Errorf("SaveScenario: encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(&file); err != nil {
			return fmt.Errorf("SaveScenario: encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("SaveScenario: unknown format %q", format)
	}
}

// LoadInto decodes a scenario and installs its networks into store.
func LoadInto(store *TopologyStore, r io.Reader, format ScenarioFormat) (*Scenario, error) {
	sc, err := LoadScenario(r, format)
	if err != nil {
		return nil, err
	}
	if err := store.SetNetworks(sc.Networks); err != nil {
		return nil, fmt.Errorf("LoadInto: %w", err)
	}
	sc.Networks = store.Networks()
	return sc, nil
}
