// ABOUTME: In-memory workout table with filtering and summary totals.
// ABOUTME: Holds parsed records plus their column order for exports.
package table

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/harperreed/healthexport/internal/models"
	"github.com/harperreed/healthexport/internal/units"
)

// defaultColumns is the column set of a table with no parsed data.
var defaultColumns = []string{"activityType", "startDate", "endDate", "duration", "durationUnit", "distance"}

// caloriesColumn is where active energy statistics land after parsing.
const caloriesColumn = "sumActiveEnergyBurned"

// elevationColumn is where ascent metadata lands after parsing.
const elevationColumn = "ElevationAscended"

// Table is the collection of workout records loaded from one export,
// with the column order they were discovered in.
type Table struct {
	records []*models.WorkoutRecord
	columns []string
	colSet  map[string]bool
}

// New builds a table over records. columns fixes the column order; pass nil
// to derive it from the records (fixed columns first, dynamic fields sorted
// by name for determinism).
func New(records []*models.WorkoutRecord, columns []string) *Table {
	if columns == nil {
		columns = deriveColumns(records)
	}
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	return &Table{records: records, columns: columns, colSet: set}
}

// Filter restricts which records an aggregation sees. Nil fields mean no
// restriction. EndDate is inclusive; a date-only (midnight) bound covers
// the whole day it names.
type Filter struct {
	ActivityType *string
	StartDate    *time.Time
	EndDate      *time.Time
}

// withoutActivity drops the activity restriction, keeping the date window.
func (f Filter) withoutActivity() Filter {
	f.ActivityType = nil
	return f
}

func (f Filter) matches(rec *models.WorkoutRecord) bool {
	if f.ActivityType != nil && rec.ActivityType != *f.ActivityType {
		return false
	}
	if f.StartDate != nil && rec.StartDate.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil {
		end := *f.EndDate
		if isMidnight(end) {
			end = end.AddDate(0, 0, 1)
			if !rec.StartDate.Before(end) {
				return false
			}
		} else if rec.StartDate.After(end) {
			return false
		}
	}
	return true
}

func isMidnight(t time.Time) bool {
	h, m, s := t.Clock()
	return h == 0 && m == 0 && s == 0 && t.Nanosecond() == 0
}

// Len reports the number of records in the table.
func (t *Table) Len() int {
	return len(t.records)
}

// Columns returns the table's column order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Records returns the underlying record slice.
func (t *Table) Records() []*models.WorkoutRecord {
	return t.records
}

func (t *Table) hasColumn(name string) bool {
	return t.colSet[name]
}

func (t *Table) filtered(f Filter) []*models.WorkoutRecord {
	var out []*models.WorkoutRecord
	for _, rec := range t.records {
		if f.matches(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// numericCell reads a column of one record as a float. The fixed duration
// and distance columns are typed; everything else goes through Fields.
func numericCell(rec *models.WorkoutRecord, col string) (float64, bool) {
	switch col {
	case "duration":
		if rec.Duration == nil {
			return 0, false
		}
		return float64(*rec.Duration), true
	case "distance":
		if rec.Distance == nil {
			return 0, false
		}
		return *rec.Distance, true
	default:
		return rec.NumericField(col)
	}
}

// Count returns the number of workouts matching the filter.
func (t *Table) Count(f Filter) int {
	return len(t.filtered(f))
}

// sumColumn adds up a numeric column over the filtered records, divides,
// and rounds half to even. A missing column totals zero.
func (t *Table) sumColumn(col string, divisor float64, f Filter) int {
	if !t.hasColumn(col) {
		return 0
	}
	var total float64
	for _, rec := range t.filtered(f) {
		if v, ok := numericCell(rec, col); ok {
			total += v
		}
	}
	return int(math.RoundToEven(total / divisor))
}

// TotalDistance returns the summed distance in the requested unit.
func (t *Table) TotalDistance(unit string, f Filter) (int, error) {
	divisor, err := units.DistanceDivisor(unit)
	if err != nil {
		return 0, err
	}
	return t.sumColumn("distance", divisor, f), nil
}

// TotalDuration returns the summed duration in whole hours.
func (t *Table) TotalDuration(f Filter) int {
	return t.sumColumn("duration", 3600, f)
}

// TotalElevation returns the summed ascent in the requested unit.
func (t *Table) TotalElevation(unit string, f Filter) (int, error) {
	divisor, err := units.DistanceDivisor(unit)
	if err != nil {
		return 0, err
	}
	return t.sumColumn(elevationColumn, divisor, f), nil
}

// TotalCalories returns the summed active energy in whole kilocalories.
func (t *Table) TotalCalories(f Filter) int {
	return t.sumColumn(caloriesColumn, 1, f)
}

// Statistics returns a short human-readable summary of the whole table.
func (t *Table) Statistics() string {
	if len(t.records) == 0 {
		return "No workout loaded."
	}

	out := fmt.Sprintf("Total workouts: %d\n", len(t.records))

	if t.hasColumn("distance") {
		var meters float64
		for _, rec := range t.records {
			if rec.Distance != nil {
				meters += *rec.Distance
			}
		}
		out += fmt.Sprintf("Total distance of %d km.\n", int(math.RoundToEven(meters/1000)))
	}

	if t.hasColumn("duration") {
		var seconds int
		for _, rec := range t.records {
			if rec.Duration != nil {
				seconds += *rec.Duration
			}
		}
		out += fmt.Sprintf("Total duration of %dh%dm%ds.\n", seconds/3600, seconds%3600/60, seconds%60)
	}

	return out
}

// DateBounds returns the first and last workout start dates as "YYYY/MM/DD"
// strings. With no usable start dates (empty table, column absent, or all
// values unset) the bounds default to 2000/01/01 through today.
func (t *Table) DateBounds() (string, string) {
	const layout = "2006/01/02"

	var min, max time.Time
	if t.hasColumn("startDate") {
		for _, rec := range t.records {
			if rec.StartDate.IsZero() {
				continue
			}
			if min.IsZero() || rec.StartDate.Before(min) {
				min = rec.StartDate
			}
			if rec.StartDate.After(max) {
				max = rec.StartDate
			}
		}
	}
	if min.IsZero() {
		return "2000/01/01", time.Now().Format(layout)
	}
	return min.Format(layout), max.Format(layout)
}

// ActivityTypes returns the distinct activity types in first-seen order.
func (t *Table) ActivityTypes() []string {
	var types []string
	seen := make(map[string]bool)
	for _, rec := range t.records {
		if !seen[rec.ActivityType] {
			seen[rec.ActivityType] = true
			types = append(types, rec.ActivityType)
		}
	}
	return types
}

// deriveColumns rebuilds a column order for hand-built record sets.
func deriveColumns(records []*models.WorkoutRecord) []string {
	if len(records) == 0 {
		return append([]string(nil), defaultColumns...)
	}

	columns := []string{"activityType", "duration", "durationUnit", "startDate", "endDate", "source"}
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		seen[c] = true
	}

	note := func(c string) {
		if !seen[c] {
			seen[c] = true
			columns = append(columns, c)
		}
	}

	var fields []string
	fieldSeen := make(map[string]bool)
	for _, rec := range records {
		if rec.Distance != nil {
			note("distance")
		}
		if rec.DistanceUnit != "" {
			note("distanceUnit")
		}
		if rec.RouteFile != "" {
			note("routeFile")
		}
		if rec.Route != nil {
			note("route")
		}
		for name := range rec.Fields {
			if !fieldSeen[name] {
				fieldSeen[name] = true
				fields = append(fields, name)
			}
		}
	}
	sort.Strings(fields)
	for _, name := range fields {
		note(name)
	}

	return columns
}
