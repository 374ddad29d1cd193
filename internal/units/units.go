// ABOUTME: Pure unit conversion helpers shared by the parser and aggregations.
// ABOUTME: Duration-to-seconds and distance divisors for km/m/mi.
package units

import (
	"errors"
	"fmt"
)

// Divisors from meters to the supported distance units.
const (
	metersPerKilometer = 1000.0
	metersPerMile      = 1609.34
)

var (
	// ErrUnknownDurationUnit reports a duration unit outside min/h/s.
	ErrUnknownDurationUnit = errors.New("unknown duration unit")

	// ErrUnsupportedUnit reports a distance unit outside km/m/mi.
	ErrUnsupportedUnit = errors.New("unsupported unit")
)

// DurationToSeconds converts a duration value with its unit to whole seconds,
// truncating toward zero. An empty unit is treated as minutes, which is what
// the export writes when it omits the attribute.
func DurationToSeconds(value float64, unit string) (int, error) {
	switch unit {
	case "min", "":
		return int(value * 60), nil
	case "h":
		return int(value * 3600), nil
	case "s":
		return int(value), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownDurationUnit, unit)
	}
}

// DistanceDivisor returns the divisor converting meters to the given unit.
func DistanceDivisor(unit string) (float64, error) {
	switch unit {
	case "km":
		return metersPerKilometer, nil
	case "m":
		return 1, nil
	case "mi":
		return metersPerMile, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedUnit, unit)
	}
}

// ConvertDistance converts a distance in meters to the given unit.
func ConvertDistance(meters float64, unit string) (float64, error) {
	divisor, err := DistanceDivisor(unit)
	if err != nil {
		return 0, err
	}
	return meters / divisor, nil
}
