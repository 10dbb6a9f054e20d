package model

// EntityKind classifies a scenario entity, e.g. an aircraft or a ground
// station. The set is open; these are the kinds the designer renders with
// dedicated icons.
type EntityKind string

const (
	KindAircraft  EntityKind = "aircraft"
	KindShip      EntityKind = "ship"
	KindGround    EntityKind = "ground"
	KindSatellite EntityKind = "satellite"
	KindUnit      EntityKind = "unit"
)

// Entity is an external scenario object that can be a network member.
// Entities are owned by the scenario, not by the topology designer.
type Entity struct {
	ID   string
	Name string
	Kind EntityKind
	Team string // e.g. "blue", "red", "neutral"
}
