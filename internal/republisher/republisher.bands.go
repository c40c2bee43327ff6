// FilePath: internal/republisher/republisher.bands.go
package republisher

import "math"

// Band is a half-open frequency range [Lower, Upper) in Hz.
type Band struct {
	Lower float64
	Upper float64
	Name  string
}

// FrequencyBands are scanned in order; the first match wins. The first band
// starts at 0 and the last one is open ended.
var FrequencyBands = []Band{
	{0, 146, "s_bin098_146Hz"},
	{146, 195, "s_bin146_195Hz"},
	{195, 244, "s_bin195_244Hz"},
	{244, 293, "s_bin244_293Hz"},
	{293, 342, "s_bin293_342Hz"},
	{342, 391, "s_bin342_391Hz"},
	{391, 439, "s_bin391_439Hz"},
	{439, 488, "s_bin439_488Hz"},
	{488, 537, "s_bin488_537Hz"},
	{537, math.Inf(1), "s_bin537_586Hz"},
}

// FrequencyBand returns the band name for a hive frequency, nil when the
// frequency is unknown or outside every band.
func FrequencyBand(freq *float64) *string {
	if freq == nil || math.IsNaN(*freq) {
		return nil
	}
	for i := range FrequencyBands {
		b := &FrequencyBands[i]
		if *freq >= b.Lower && *freq < b.Upper {
			return &b.Name
		}
	}
	return nil
}
