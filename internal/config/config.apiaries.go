// FilePath: internal/config/config.apiaries.go
package config

import (
	"fmt"

	"github.com/jodok/bees/internal/errors"
)

// ApiaryConfig is the operator's grouping of hives. The json tags match the
// APIARIES environment document.
type ApiaryConfig struct {
	ID    int64   `mapstructure:"id" json:"id"`
	Name  string  `mapstructure:"name" json:"name"`
	Hives []int64 `mapstructure:"hives" json:"hives"`
}

// HiveConfig declares a hive row up front. It is only needed when sensors
// are synchronized, since hive names then do not come from the source.
type HiveConfig struct {
	ID       int64  `mapstructure:"id"`
	Name     string `mapstructure:"name"`
	ApiaryID int64  `mapstructure:"apiary_id"`
}

// SensorConfig declares a sensor and the hive it is installed in.
type SensorConfig struct {
	ID      int64    `mapstructure:"id"`
	Name    string   `mapstructure:"name"`
	HiveID  int64    `mapstructure:"hive_id"`
	Modules []string `mapstructure:"modules"`
}

// ApiaryForHive returns the configured apiary whose hive list contains hiveID.
func (c *Config) ApiaryForHive(hiveID int64) (ApiaryConfig, bool) {
	for _, a := range c.Apiaries {
		for _, h := range a.Hives {
			if h == hiveID {
				return a, true
			}
		}
	}
	return ApiaryConfig{}, false
}

// HiveByID returns a statically declared hive.
func (c *Config) HiveByID(id int64) (HiveConfig, bool) {
	for _, h := range c.Hives {
		if h.ID == id {
			return h, true
		}
	}
	return HiveConfig{}, false
}

// SensorByID returns a statically declared sensor.
func (c *Config) SensorByID(id int64) (SensorConfig, bool) {
	for _, s := range c.Sensors {
		if s.ID == id {
			return s, true
		}
	}
	return SensorConfig{}, false
}

// MappingFor returns the BEEP mapping of a local entity.
func (c *Config) MappingFor(entityID int64) (BeepMapping, bool) {
	for _, m := range c.Beep.Mappings {
		if m.EntityID == entityID {
			return m, true
		}
	}
	return BeepMapping{}, false
}

// validateTopology rejects duplicate ids and dangling references between the
// apiary, hive and sensor declarations.
func validateTopology(cfg *Config) error {
	apiaries := make(map[int64]bool, len(cfg.Apiaries))
	owner := make(map[int64]int64)
	for _, a := range cfg.Apiaries {
		if a.ID == 0 || a.Name == "" {
			return errors.NewConfigurationError("apiary requires id and name", nil)
		}
		if apiaries[a.ID] {
			return errors.NewConfigurationError(fmt.Sprintf("apiary %d declared twice", a.ID), nil)
		}
		apiaries[a.ID] = true
		for _, h := range a.Hives {
			if prev, ok := owner[h]; ok {
				return errors.NewConfigurationError(fmt.Sprintf("hive %d claimed by apiaries %d and %d", h, prev, a.ID), nil)
			}
			owner[h] = a.ID
		}
	}
	hives := make(map[int64]bool, len(cfg.Hives))
	for _, h := range cfg.Hives {
		if h.ID == 0 || h.Name == "" {
			return errors.NewConfigurationError("hive requires id and name", nil)
		}
		if !apiaries[h.ApiaryID] {
			return errors.NewConfigurationError(fmt.Sprintf("hive %d references unknown apiary %d", h.ID, h.ApiaryID), nil)
		}
		hives[h.ID] = true
	}
	for _, s := range cfg.Sensors {
		if s.ID == 0 || s.Name == "" {
			return errors.NewConfigurationError("sensor requires id and name", nil)
		}
		// sensors are written before any source hive, so their hive must be declared
		if s.HiveID != 0 && !hives[s.HiveID] {
			if _, claimed := owner[s.HiveID]; claimed {
				return errors.NewConfigurationError(fmt.Sprintf("sensor %d: hive %d is claimed by an apiary but not declared under hives", s.ID, s.HiveID), nil)
			}
			return errors.NewConfigurationError(fmt.Sprintf("sensor %d references unknown hive %d", s.ID, s.HiveID), nil)
		}
	}
	return nil
}
