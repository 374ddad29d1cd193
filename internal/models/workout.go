// ABOUTME: WorkoutRecord and RoutePoint models for parsed export data.
// ABOUTME: One record per Workout element, with dynamic unit-tagged fields.
package models

import "time"

// RoutePoint is one GPS sample from a workout route track.
type RoutePoint struct {
	Time      time.Time
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// WorkoutRecord represents a single exercise session from the export.
// Beyond the fixed attributes, statistics and metadata land in Fields keyed
// by their cleaned names (e.g. "averageHeartRate", "ElevationAscended"),
// with an optional "<name>Unit" sibling.
type WorkoutRecord struct {
	ActivityType string
	Duration     *int   // seconds
	DurationUnit string // literal "seconds" once converted
	StartDateRaw string
	StartDate    time.Time // naive, populated at table build
	EndDate      string    // kept raw, matching the source
	Source       string
	Distance     *float64
	DistanceUnit string
	RouteFile    string
	Route        []RoutePoint // nil when the referenced file is missing
	Fields       map[string]Value
}

// NewWorkoutRecord creates a record with the given activity type and an
// empty dynamic field set.
func NewWorkoutRecord(activityType string) *WorkoutRecord {
	return &WorkoutRecord{
		ActivityType: activityType,
		Fields:       make(map[string]Value),
	}
}

// SetField stores a dynamic field, overwriting any previous value.
func (w *WorkoutRecord) SetField(name string, v Value) {
	w.Fields[name] = v
}

// MergeField stores a dynamic field through the duplicate-merge rule.
func (w *WorkoutRecord) MergeField(name string, v Value) {
	if existing, ok := w.Fields[name]; ok {
		w.Fields[name] = MergeValue(&existing, v)
		return
	}
	w.Fields[name] = MergeValue(nil, v)
}

// Field returns a dynamic field value and whether it is present.
func (w *WorkoutRecord) Field(name string) (Value, bool) {
	v, ok := w.Fields[name]
	return v, ok
}

// NumericField returns a numeric dynamic field, or 0 and false when the
// field is absent or not a number.
func (w *WorkoutRecord) NumericField(name string) (float64, bool) {
	v, ok := w.Fields[name]
	if !ok || !v.IsNumber() {
		return 0, false
	}
	return v.Num, true
}
