// FilePath: internal/models/models.sensor.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// JSON is a wrapper around map[string]interface{} for JSONB storage
type JSON map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*j = nil
		return nil
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSON", value)
	}
}

// Sensor is a physical monitoring device. Modules lists its capabilities
// ("weight", "temperature", ...). Raw keeps the last source payload.
type Sensor struct {
	ID        int64          `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Modules   pq.StringArray `json:"modules" db:"modules"`
	HiveID    *int64         `json:"hive_id,omitempty" db:"hive_id"`
	Raw       JSON           `json:"raw,omitempty" db:"raw"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// HasModule reports whether the sensor advertises the given capability.
func (s *Sensor) HasModule(module string) bool {
	for _, m := range s.Modules {
		if m == module {
			return true
		}
	}
	return false
}

// SensorAssignment places a sensor in a hive for a time range. A nil EndTime
// marks the active assignment; at most one may exist per sensor.
type SensorAssignment struct {
	ID        int64      `json:"id" db:"id"`
	SensorID  int64      `json:"sensor_id" db:"sensor_id"`
	HiveID    int64      `json:"hive_id" db:"hive_id"`
	StartTime time.Time  `json:"start_time" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`
}

// Active reports whether the assignment is open ended.
func (a *SensorAssignment) Active() bool {
	return a.EndTime == nil
}
