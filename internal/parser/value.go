// ABOUTME: Normalizes the overloaded "value unit" strings used by metadata.
// ABOUTME: Disambiguates booleans, numbers, text, and converts units to metric.
package parser

import (
	"strconv"
	"strings"

	"github.com/harperreed/healthexport/internal/models"
)

// ParseValue separates a raw metadata value into a typed Value and canonical
// unit. The format is four-way overloaded:
//
//   - unit-less "0"/"1" (including "0.0"/"1.0") are booleans
//   - other unit-less numbers are floats
//   - anything non-numeric is literal text
//   - "<number> <unit>" is a float plus unit, with cm, % and degF converted
//
// The boolean collapse only applies without a unit: "0 cm" is 0.0 meters,
// never false. The returned bool reports whether a value was present at all.
func ParseValue(raw string) (models.Value, string, bool) {
	if raw == "" {
		return models.Value{}, "", false
	}

	if !strings.Contains(raw, " ") {
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			// Not a number, so plain text (e.g. "Europe/Luxembourg").
			return models.Text(raw), "", true
		}
		if val == 0 {
			return models.Boolean(false), "", true
		}
		if val == 1 {
			return models.Boolean(true), "", true
		}
		return models.Number(val), "", true
	}

	parts := strings.SplitN(raw, " ", 3)
	val, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		// Text with spaces: keep the whole original string.
		return models.Text(raw), "", true
	}

	// Only the first token after the number counts as the unit.
	unit := parts[1]

	switch unit {
	case "cm":
		val /= 100.0
		unit = "m"
	case "%":
		val /= 100.0
	case "degF":
		val = (val - 32) * 5.0 / 9.0
		unit = "degC"
	}

	return models.Number(val), unit, true
}
