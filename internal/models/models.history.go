// FilePath: internal/models/models.history.go
package models

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/jodok/bees/internal/errors"
)

// Attributes is the fixed vocabulary of numeric history attributes, in the
// order they are requested from the source API.
var Attributes = []string{
	"weight", "pressure", "pressureGw", "pressureEnv", "inTotal", "outTotal",
	"magX", "magY", "magZ", "accX", "accY", "accZ",
	"tempIn", "tempOut", "tempEnv",
	"humidityIn", "humidityOut", "humidityEnv", "humiditySh1", "humiditySh2", "humiditySh3",
	"frequency", "amplitude",
	"vbatIn", "vbatOut", "vbatEnv", "vbatGw", "vbatMap",
	"rssiIn", "rssiOut", "rssiEnv", "rssiGw", "rssiMap",
	"co2", "tvoc", "co", "o2", "o3", "so", "no", "so2", "pm25", "pm10",
}

// History is one reading of one entity at one instant. (EntityID, Time) is
// the primary key; every attribute is nullable.
type History struct {
	EntityID int64     `json:"entity_id" db:"entity_id"`
	Time     time.Time `json:"time" db:"time"`

	Weight      *float64 `json:"weight,omitempty" db:"weight"`
	Pressure    *float64 `json:"pressure,omitempty" db:"pressure"`
	PressureGw  *float64 `json:"pressureGw,omitempty" db:"pressure_gw"`
	PressureEnv *float64 `json:"pressureEnv,omitempty" db:"pressure_env"`
	InTotal     *float64 `json:"inTotal,omitempty" db:"in_total"`
	OutTotal    *float64 `json:"outTotal,omitempty" db:"out_total"`
	MagX        *float64 `json:"magX,omitempty" db:"mag_x"`
	MagY        *float64 `json:"magY,omitempty" db:"mag_y"`
	MagZ        *float64 `json:"magZ,omitempty" db:"mag_z"`
	AccX        *float64 `json:"accX,omitempty" db:"acc_x"`
	AccY        *float64 `json:"accY,omitempty" db:"acc_y"`
	AccZ        *float64 `json:"accZ,omitempty" db:"acc_z"`
	TempIn      *float64 `json:"tempIn,omitempty" db:"temp_in"`
	TempOut     *float64 `json:"tempOut,omitempty" db:"temp_out"`
	TempEnv     *float64 `json:"tempEnv,omitempty" db:"temp_env"`
	HumidityIn  *float64 `json:"humidityIn,omitempty" db:"humidity_in"`
	HumidityOut *float64 `json:"humidityOut,omitempty" db:"humidity_out"`
	HumidityEnv *float64 `json:"humidityEnv,omitempty" db:"humidity_env"`
	HumiditySh1 *float64 `json:"humiditySh1,omitempty" db:"humidity_sh1"`
	HumiditySh2 *float64 `json:"humiditySh2,omitempty" db:"humidity_sh2"`
	HumiditySh3 *float64 `json:"humiditySh3,omitempty" db:"humidity_sh3"`
	Frequency   *float64 `json:"frequency,omitempty" db:"frequency"`
	Amplitude   *float64 `json:"amplitude,omitempty" db:"amplitude"`
	VbatIn      *float64 `json:"vbatIn,omitempty" db:"vbat_in"`
	VbatOut     *float64 `json:"vbatOut,omitempty" db:"vbat_out"`
	VbatEnv     *float64 `json:"vbatEnv,omitempty" db:"vbat_env"`
	VbatGw      *float64 `json:"vbatGw,omitempty" db:"vbat_gw"`
	VbatMap     *float64 `json:"vbatMap,omitempty" db:"vbat_map"`
	RssiIn      *float64 `json:"rssiIn,omitempty" db:"rssi_in"`
	RssiOut     *float64 `json:"rssiOut,omitempty" db:"rssi_out"`
	RssiEnv     *float64 `json:"rssiEnv,omitempty" db:"rssi_env"`
	RssiGw      *float64 `json:"rssiGw,omitempty" db:"rssi_gw"`
	RssiMap     *float64 `json:"rssiMap,omitempty" db:"rssi_map"`
	CO2         *float64 `json:"co2,omitempty" db:"co2"`
	TVOC        *float64 `json:"tvoc,omitempty" db:"tvoc"`
	CO          *float64 `json:"co,omitempty" db:"co"`
	O2          *float64 `json:"o2,omitempty" db:"o2"`
	O3          *float64 `json:"o3,omitempty" db:"o3"`
	SO          *float64 `json:"so,omitempty" db:"so"`
	NO          *float64 `json:"no,omitempty" db:"no"`
	SO2         *float64 `json:"so2,omitempty" db:"so2"`
	PM25        *float64 `json:"pm25,omitempty" db:"pm25"`
	PM10        *float64 `json:"pm10,omitempty" db:"pm10"`

	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

type attributeField struct {
	index  int
	column string
}

var attributeFields = buildAttributeIndex()

// buildAttributeIndex maps attribute names (json tags) to struct fields and
// column names (db tags). It panics when the struct and Attributes disagree.
func buildAttributeIndex() map[string]attributeField {
	floatPtr := reflect.TypeOf((*float64)(nil))
	t := reflect.TypeOf(History{})
	idx := make(map[string]attributeField, len(Attributes))
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Type != floatPtr {
			continue
		}
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		idx[name] = attributeField{index: i, column: f.Tag.Get("db")}
	}
	if len(idx) != len(Attributes) {
		panic(fmt.Sprintf("models: history has %d attribute fields, vocabulary has %d", len(idx), len(Attributes)))
	}
	for _, a := range Attributes {
		if _, ok := idx[a]; !ok {
			panic("models: no history field for attribute " + a)
		}
	}
	return idx
}

// IsAttribute reports whether name belongs to the attribute vocabulary.
func IsAttribute(name string) bool {
	_, ok := attributeFields[name]
	return ok
}

// AttributeColumn returns the database column of an attribute.
func AttributeColumn(name string) (string, bool) {
	f, ok := attributeFields[name]
	return f.column, ok
}

// AttributeColumns returns the attribute columns in vocabulary order.
func AttributeColumns() []string {
	cols := make([]string, len(Attributes))
	for i, a := range Attributes {
		cols[i] = attributeFields[a].column
	}
	return cols
}

// AttributeQuery renders the vocabulary as the semicolon separated list the
// source API expects.
func AttributeQuery(attrs []string) string {
	return strings.Join(attrs, ";")
}

// Attribute returns the value of a named attribute, nil if unset or unknown.
func (h *History) Attribute(name string) *float64 {
	f, ok := attributeFields[name]
	if !ok {
		return nil
	}
	return reflect.ValueOf(h).Elem().Field(f.index).Interface().(*float64)
}

// SetAttribute sets a named attribute. Unknown names are a schema mismatch.
func (h *History) SetAttribute(name string, v *float64) error {
	f, ok := attributeFields[name]
	if !ok {
		return errors.NewSchemaMismatchError(fmt.Sprintf("unknown history attribute %q", name), nil).WithEntity(h.EntityID)
	}
	reflect.ValueOf(h).Elem().Field(f.index).Set(reflect.ValueOf(v))
	return nil
}

// Values returns the non-null attributes.
func (h *History) Values() map[string]float64 {
	out := make(map[string]float64)
	for _, a := range Attributes {
		if v := h.Attribute(a); v != nil {
			out[a] = *v
		}
	}
	return out
}

// NewHistory builds a row from an attribute map. Unknown keys fail with a
// schema mismatch, non-numeric values with a decode error. Keys are handled
// in sorted order so the reported error is deterministic.
func NewHistory(entityID int64, t time.Time, attrs map[string]any) (*History, error) {
	h := &History{EntityID: entityID, Time: t.UTC()}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !IsAttribute(k) {
			return nil, errors.NewSchemaMismatchError(fmt.Sprintf("unknown history attribute %q", k), nil).WithEntity(entityID)
		}
		v, err := toFloat(attrs[k])
		if err != nil {
			return nil, errors.NewDecodeError(fmt.Sprintf("attribute %q", k), err).WithEntity(entityID)
		}
		if err := h.SetAttribute(k, v); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// HistoryFromRecord converts one source record: "time" (epoch milliseconds)
// becomes the UTC timestamp, every other key an attribute.
func HistoryFromRecord(entityID int64, rec RemoteRecord) (*History, error) {
	raw, ok := rec["time"]
	if !ok {
		return nil, errors.NewDecodeError("history record without time", nil).WithEntity(entityID)
	}
	t, err := millisToTime(raw)
	if err != nil {
		return nil, errors.NewDecodeError("history record time", err).WithEntity(entityID)
	}
	attrs := make(map[string]any, len(rec))
	for k, v := range rec {
		if k != "time" {
			attrs[k] = v
		}
	}
	return NewHistory(entityID, t, attrs)
}

func toFloat(v any) (*float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil, err
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return nil, fmt.Errorf("expected a number, got %T", v)
	}
	return &f, nil
}

func millisToTime(v any) (time.Time, error) {
	switch n := v.(type) {
	case json.Number:
		if ms, err := n.Int64(); err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
		f, err := n.Float64()
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(int64(f)).UTC(), nil
	case float64:
		return time.UnixMilli(int64(n)).UTC(), nil
	case int64:
		return time.UnixMilli(n).UTC(), nil
	case int:
		return time.UnixMilli(int64(n)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("expected epoch milliseconds, got %T", v)
	}
}

// Float is a convenience for building attribute values.
func Float(v float64) *float64 {
	return &v
}
