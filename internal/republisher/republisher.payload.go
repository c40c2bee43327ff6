// FilePath: internal/republisher/republisher.payload.go
package republisher

import "github.com/jodok/bees/internal/models"

// Device is the BEEP device class a reading is published to.
type Device string

const (
	DeviceScale Device = "scale"
	DeviceHeart Device = "heart"
)

// ScalePayload is the measurement body for the scale device.
type ScalePayload struct {
	Time     int64    `json:"time"`
	Weight   *float64 `json:"w_v"`
	Temp     *float64 `json:"t"`
	Humidity *float64 `json:"h"`
	Battery  *float64 `json:"bv"`
	RSSI     *float64 `json:"rssi"`
	Pressure *float64 `json:"p"`
}

// HeartPayload is the measurement body for the in-hive (heart) device.
type HeartPayload struct {
	Time          int64    `json:"time"`
	TempIn        *float64 `json:"t_i"`
	HumidityIn    *float64 `json:"h_i"`
	Battery       *float64 `json:"bv"`
	RSSI          *float64 `json:"rssi"`
	FrequencyBand *string  `json:"frequency_band"`
}

// Classify returns the devices a row feeds: weight readings go to the
// scale, tempIn readings to the heart. A row may feed both or neither.
func Classify(row *models.History) []Device {
	var devices []Device
	if row.Weight != nil {
		devices = append(devices, DeviceScale)
	}
	if row.TempIn != nil {
		devices = append(devices, DeviceHeart)
	}
	return devices
}

// NewScalePayload maps a row onto the scale body.
func NewScalePayload(row *models.History) ScalePayload {
	return ScalePayload{
		Time:     row.Time.Unix(),
		Weight:   row.Weight,
		Temp:     row.TempOut,
		Humidity: row.HumidityOut,
		Battery:  row.VbatOut,
		RSSI:     row.RssiOut,
		Pressure: row.Pressure,
	}
}

// NewHeartPayload maps a row onto the heart body.
func NewHeartPayload(row *models.History) HeartPayload {
	return HeartPayload{
		Time:          row.Time.Unix(),
		TempIn:        row.TempIn,
		HumidityIn:    row.HumidityIn,
		Battery:       row.VbatIn,
		RSSI:          row.RssiIn,
		FrequencyBand: FrequencyBand(row.Frequency),
	}
}
