// Package units provides the speed units used in reports and conversion
// from the analysis' native coordinate units per second.
package units

// Unit constants. Speeds are computed in coordinate units per second.
const (
	UPS = "ups" // units per second
	UPM = "upm" // units per minute
	UPH = "uph" // units per hour
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{UPS, UPM, UPH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "ups, upm, uph"
}

// ConvertSpeed converts a speed in units per second to the target units.
func ConvertSpeed(speedUPS float64, targetUnits string) float64 {
	switch targetUnits {
	case UPM:
		return speedUPS * 60
	case UPH:
		return speedUPS * 3600
	default:
		return speedUPS
	}
}

// Label returns the axis label for a unit.
func Label(unit string) string {
	switch unit {
	case UPM:
		return "units/min"
	case UPH:
		return "units/h"
	default:
		return "units/s"
	}
}
