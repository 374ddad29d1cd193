// ABOUTME: Breakdown aggregations by activity type and calendar period.
// ABOUTME: Implements small-slice grouping and period bucketing with labels.
package table

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/harperreed/healthexport/internal/units"
)

// OthersLabel is the bucket that absorbs grouped small slices.
const OthersLabel = "Others"

// Period selects the calendar bucket for by-period breakdowns.
type Period string

const (
	PeriodDay     Period = "D"
	PeriodWeek    Period = "W"
	PeriodMonth   Period = "M"
	PeriodQuarter Period = "Q"
	PeriodYear    Period = "Y"
)

// ParsePeriod validates a period code.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported period: %q", s)
	}
}

// bucket truncates a timestamp to the start of its period.
func (p Period) bucket(ts time.Time) time.Time {
	switch p {
	case PeriodDay:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodWeek:
		back := (int(ts.Weekday()) + 6) % 7
		d := ts.AddDate(0, 0, -back)
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodMonth:
		return time.Date(ts.Year(), ts.Month(), 1, 0, 0, 0, 0, time.UTC)
	case PeriodQuarter:
		month := (int(ts.Month())-1)/3*3 + 1
		return time.Date(ts.Year(), time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	case PeriodYear:
		return time.Date(ts.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return ts
}

// next returns the start of the following period.
func (p Period) next(start time.Time) time.Time {
	switch p {
	case PeriodDay:
		return start.AddDate(0, 0, 1)
	case PeriodWeek:
		return start.AddDate(0, 0, 7)
	case PeriodMonth:
		return start.AddDate(0, 1, 0)
	case PeriodQuarter:
		return start.AddDate(0, 3, 0)
	case PeriodYear:
		return start.AddDate(1, 0, 0)
	}
	return start
}

// label renders a period start as its display key.
func (p Period) label(start time.Time) string {
	switch p {
	case PeriodDay:
		return start.Format("2006-01-02")
	case PeriodWeek:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case PeriodMonth:
		return start.Format("2006-01")
	case PeriodQuarter:
		return fmt.Sprintf("%dQ%d", start.Year(), (int(start.Month())-1)/3+1)
	case PeriodYear:
		return start.Format("2006")
	}
	return start.Format("2006-01-02")
}

// GroupSmallValues folds entries whose cumulative share stays under
// thresholdPercent of the grand total into a bucket named othersLabel.
// Entries are considered smallest first; the first entry that would push
// the cumulative sum over the threshold stops the grouping. A zero total
// leaves the data untouched.
func GroupSmallValues(data map[string]float64, thresholdPercent float64, othersLabel string) map[string]float64 {
	var total float64
	for _, v := range data {
		total += v
	}

	out := make(map[string]float64, len(data))
	if total == 0 {
		for k, v := range data {
			out[k] = v
		}
		return out
	}

	type entry struct {
		label string
		value float64
	}
	entries := make([]entry, 0, len(data))
	for k, v := range data {
		entries = append(entries, entry{k, v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value < entries[j].value
		}
		return entries[i].label < entries[j].label
	})

	threshold := total * thresholdPercent / 100.0
	var cumulative, others float64
	grouping := true
	for _, e := range entries {
		if grouping && cumulative+e.value <= threshold {
			cumulative += e.value
			others += e.value
			continue
		}
		grouping = false
		out[e.label] = e.value
	}
	if others > 0 {
		out[othersLabel] = others
	}
	return out
}

// finalize applies the tail of every breakdown pipeline: group small
// slices, round half to even, and optionally drop non-positive buckets.
func finalize(data map[string]float64, thresholdPercent float64, filterZeros bool) map[string]int {
	if thresholdPercent > 0 {
		data = GroupSmallValues(data, thresholdPercent, OthersLabel)
	}
	out := make(map[string]int, len(data))
	for k, v := range data {
		n := int(math.RoundToEven(v))
		if filterZeros && n <= 0 {
			continue
		}
		out[k] = n
	}
	return out
}

// byActivity aggregates one column per activity type. The filter's own
// activity restriction is ignored so every slice stays visible.
func (t *Table) byActivity(col string, divisor float64, count bool, thresholdPercent float64, filterZeros bool, f Filter) map[string]int {
	if !count && !t.hasColumn(col) {
		return map[string]int{}
	}

	sums := make(map[string]float64)
	for _, rec := range t.filtered(f.withoutActivity()) {
		if count {
			sums[rec.ActivityType]++
			continue
		}
		if v, ok := numericCell(rec, col); ok {
			sums[rec.ActivityType] += v
		}
	}
	for k := range sums {
		sums[k] /= divisor
	}

	return finalize(sums, thresholdPercent, filterZeros)
}

// byPeriod aggregates one column per calendar period.
func (t *Table) byPeriod(col string, period Period, divisor float64, count bool, filterZeros, fillMissing bool, f Filter) (map[string]int, error) {
	if _, err := ParsePeriod(string(period)); err != nil {
		return nil, err
	}
	if !count && !t.hasColumn(col) {
		return map[string]int{}, nil
	}

	records := t.filtered(f)
	if len(records) == 0 {
		return map[string]int{}, nil
	}

	sums := make(map[time.Time]float64)
	for _, rec := range records {
		start := period.bucket(rec.StartDate)
		if count {
			sums[start]++
			continue
		}
		if v, ok := numericCell(rec, col); ok {
			sums[start] += v
		}
	}

	if fillMissing {
		min, max := records[0].StartDate, records[0].StartDate
		for _, rec := range records[1:] {
			if rec.StartDate.Before(min) {
				min = rec.StartDate
			}
			if rec.StartDate.After(max) {
				max = rec.StartDate
			}
		}
		last := period.bucket(max)
		for cursor := period.bucket(min); !cursor.After(last); cursor = period.next(cursor) {
			if _, ok := sums[cursor]; !ok {
				sums[cursor] = 0
			}
		}
	}

	labeled := make(map[string]float64, len(sums))
	for start, v := range sums {
		labeled[period.label(start)] = v / divisor
	}

	// Filled gaps stay visible, so the zero filter only runs without them.
	return finalize(labeled, 0, filterZeros && !fillMissing), nil
}

// CountByActivity returns workout counts per activity type.
func (t *Table) CountByActivity(thresholdPercent float64, f Filter) map[string]int {
	return t.byActivity("", 1, true, thresholdPercent, true, f)
}

// DistanceByActivity returns summed distance per activity type in unit.
func (t *Table) DistanceByActivity(unit string, thresholdPercent float64, f Filter) (map[string]int, error) {
	divisor, err := units.DistanceDivisor(unit)
	if err != nil {
		return nil, err
	}
	return t.byActivity("distance", divisor, false, thresholdPercent, true, f), nil
}

// DurationByActivity returns summed duration per activity type in hours.
func (t *Table) DurationByActivity(thresholdPercent float64, f Filter) map[string]int {
	return t.byActivity("duration", 3600, false, thresholdPercent, true, f)
}

// CaloriesByActivity returns summed active energy per activity type.
func (t *Table) CaloriesByActivity(thresholdPercent float64, f Filter) map[string]int {
	return t.byActivity(caloriesColumn, 1, false, thresholdPercent, true, f)
}

// ElevationByActivity returns summed ascent per activity type in unit.
// Zero buckets stay: an activity with no climbing is still informative.
func (t *Table) ElevationByActivity(unit string, thresholdPercent float64, f Filter) (map[string]int, error) {
	divisor, err := units.DistanceDivisor(unit)
	if err != nil {
		return nil, err
	}
	return t.byActivity(elevationColumn, divisor, false, thresholdPercent, false, f), nil
}

// CountByPeriod returns workout counts per calendar period.
func (t *Table) CountByPeriod(period Period, fillMissing bool, f Filter) (map[string]int, error) {
	return t.byPeriod("", period, 1, true, true, fillMissing, f)
}

// DistanceByPeriod returns summed distance per calendar period in unit.
// Zero periods are kept so pauses in training remain visible.
func (t *Table) DistanceByPeriod(period Period, unit string, fillMissing bool, f Filter) (map[string]int, error) {
	divisor, err := units.DistanceDivisor(unit)
	if err != nil {
		return nil, err
	}
	return t.byPeriod("distance", period, divisor, false, false, fillMissing, f)
}

// DurationByPeriod returns summed duration per calendar period in hours.
func (t *Table) DurationByPeriod(period Period, fillMissing bool, f Filter) (map[string]int, error) {
	return t.byPeriod("duration", period, 3600, false, true, fillMissing, f)
}

// CaloriesByPeriod returns summed active energy per calendar period.
func (t *Table) CaloriesByPeriod(period Period, fillMissing bool, f Filter) (map[string]int, error) {
	return t.byPeriod(caloriesColumn, period, 1, false, true, fillMissing, f)
}

// ElevationByPeriod returns summed ascent per calendar period in unit.
func (t *Table) ElevationByPeriod(period Period, unit string, fillMissing bool, f Filter) (map[string]int, error) {
	divisor, err := units.DistanceDivisor(unit)
	if err != nil {
		return nil, err
	}
	return t.byPeriod(elevationColumn, period, divisor, false, false, fillMissing, f)
}
