// FilePath: internal/models/models.remote.go
package models

import "encoding/json"

// EntityKind selects which source collection is synchronized.
type EntityKind string

const (
	EntityKindHives   EntityKind = "hives"
	EntityKindSensors EntityKind = "sensors"
)

// Valid reports whether k names a known collection.
func (k EntityKind) Valid() bool {
	return k == EntityKindHives || k == EntityKindSensors
}

// RemoteEntity is one element of the source listing. Raw keeps the full
// object for sensors, whose payload is stored verbatim.
type RemoteEntity struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Modules []string        `json:"modules,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// UnmarshalJSON keeps a copy of the raw object next to the decoded fields.
func (e *RemoteEntity) UnmarshalJSON(data []byte) error {
	type plain RemoteEntity
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = RemoteEntity(p)
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// RawJSON returns the raw object as a JSON map, nil when it is not an object.
func (e *RemoteEntity) RawJSON() JSON {
	if len(e.Raw) == 0 {
		return nil
	}
	var m JSON
	if err := json.Unmarshal(e.Raw, &m); err != nil {
		return nil
	}
	return m
}

// RemoteRecord is one flat history record as returned by the source API,
// decoded with json.Number so precision survives until conversion.
type RemoteRecord map[string]any
