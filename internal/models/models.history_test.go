package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jodok/bees/internal/errors"
)

func TestAttributeVocabulary(t *testing.T) {
	if len(Attributes) != 43 {
		t.Fatalf("expected 43 attributes, got %d", len(Attributes))
	}
	cols := AttributeColumns()
	if len(cols) != len(Attributes) {
		t.Fatalf("expected %d columns, got %d", len(Attributes), len(cols))
	}
	cases := map[string]string{
		"weight":      "weight",
		"pressureGw":  "pressure_gw",
		"tempIn":      "temp_in",
		"humiditySh3": "humidity_sh3",
		"rssiMap":     "rssi_map",
		"pm25":        "pm25",
	}
	for attr, want := range cases {
		got, ok := AttributeColumn(attr)
		if !ok || got != want {
			t.Errorf("AttributeColumn(%q) = %q, %v; want %q", attr, got, ok, want)
		}
	}
	if IsAttribute("temperature") {
		t.Error("temperature must not be an attribute")
	}
	if q := AttributeQuery(Attributes[:3]); q != "weight;pressure;pressureGw" {
		t.Errorf("unexpected attribute query %q", q)
	}
}

func TestNewHistory(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	h, err := NewHistory(7, ts, map[string]any{
		"weight": 41.5,
		"tempIn": json.Number("34.25"),
		"co2":    nil,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Weight == nil || *h.Weight != 41.5 {
		t.Errorf("weight not set: %v", h.Weight)
	}
	if h.TempIn == nil || *h.TempIn != 34.25 {
		t.Errorf("tempIn not set: %v", h.TempIn)
	}
	if h.CO2 != nil {
		t.Errorf("co2 should stay null")
	}
	vals := h.Values()
	if len(vals) != 2 {
		t.Errorf("expected 2 values, got %v", vals)
	}
}

func TestNewHistoryRejectsUnknownAttribute(t *testing.T) {
	_, err := NewHistory(7, time.Now(), map[string]any{"weight": 1.0, "colour": 3.0})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, errors.ErrorTypeSchemaMismatch) {
		t.Errorf("expected schema mismatch, got %v", err)
	}
	if !strings.Contains(err.Error(), "colour") {
		t.Errorf("error should name the attribute: %v", err)
	}
}

func TestNewHistoryRejectsNonNumeric(t *testing.T) {
	_, err := NewHistory(7, time.Now(), map[string]any{"weight": "heavy"})
	if !errors.Is(err, errors.ErrorTypeDecode) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestHistoryFromRecord(t *testing.T) {
	rec := RemoteRecord{
		"time":    json.Number("1704110400000"),
		"weight":  json.Number("50.1"),
		"tempOut": json.Number("-2.5"),
	}
	h, err := HistoryFromRecord(30522, rec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	if !h.Time.Equal(want) || h.Time.Location() != time.UTC {
		t.Errorf("time = %v, want %v UTC", h.Time, want)
	}
	if h.EntityID != 30522 {
		t.Errorf("entity id = %d", h.EntityID)
	}
	if h.TempOut == nil || *h.TempOut != -2.5 {
		t.Errorf("tempOut = %v", h.TempOut)
	}
	if _, ok := rec["time"]; !ok {
		t.Error("record must not be mutated")
	}
}

func TestHistoryFromRecordWithoutTime(t *testing.T) {
	_, err := HistoryFromRecord(1, RemoteRecord{"weight": 1.0})
	if !errors.Is(err, errors.ErrorTypeDecode) {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestSetAttribute(t *testing.T) {
	h := &History{}
	if err := h.SetAttribute("frequency", Float(231)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := h.Attribute("frequency"); got == nil || *got != 231 {
		t.Errorf("frequency = %v", got)
	}
	if h.Attribute("nope") != nil {
		t.Error("unknown attribute should read as nil")
	}
	if err := h.SetAttribute("nope", Float(1)); !errors.Is(err, errors.ErrorTypeSchemaMismatch) {
		t.Errorf("expected schema mismatch, got %v", err)
	}
}

func TestRemoteEntityKeepsRaw(t *testing.T) {
	var entities []RemoteEntity
	body := `[{"id":12,"name":"Scale 12","modules":["weight","temperature"],"firmware":"1.4"}]`
	if err := json.Unmarshal([]byte(body), &entities); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	e := entities[0]
	if e.ID != 12 || e.Name != "Scale 12" || len(e.Modules) != 2 {
		t.Errorf("unexpected entity %+v", e)
	}
	raw := e.RawJSON()
	if raw["firmware"] != "1.4" {
		t.Errorf("raw payload lost: %v", raw)
	}
}
