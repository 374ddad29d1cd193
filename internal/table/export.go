// ABOUTME: Serializes the workout table to JSON, CSV, and YAML documents.
// ABOUTME: JSON follows a schema+data table layout with stable key order.
package table

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harperreed/healthexport/internal/models"
)

// csvTimeLayout renders start dates in CSV and YAML output.
const csvTimeLayout = "2006-01-02 15:04:05"

// jsonTimeLayout renders start dates in JSON output, millisecond precision.
const jsonTimeLayout = "2006-01-02T15:04:05.000"

// minimalColumns is the header emitted for a CSV export with no rows.
var minimalColumns = []string{"activityType", "duration", "durationUnit", "startDate", "endDate", "source"}

// DefaultExcludedColumns are dropped from exports unless overridden.
// Route data is bulky and belongs in the GPX files themselves.
func DefaultExcludedColumns() map[string]bool {
	return map[string]bool{"routeFile": true, "route": true}
}

// cell reads one column of a record as a native value. The second return
// reports presence; absent cells become nulls or empty strings downstream.
func cell(rec *models.WorkoutRecord, col string) (interface{}, bool) {
	switch col {
	case "activityType":
		return rec.ActivityType, true
	case "duration":
		if rec.Duration == nil {
			return nil, false
		}
		return *rec.Duration, true
	case "durationUnit":
		return stringCell(rec.DurationUnit)
	case "startDate":
		if rec.StartDate.IsZero() {
			return nil, false
		}
		return rec.StartDate, true
	case "endDate":
		return stringCell(rec.EndDate)
	case "source":
		return stringCell(rec.Source)
	case "distance":
		if rec.Distance == nil {
			return nil, false
		}
		return *rec.Distance, true
	case "distanceUnit":
		return stringCell(rec.DistanceUnit)
	case "routeFile":
		return stringCell(rec.RouteFile)
	case "route":
		if rec.Route == nil {
			return nil, false
		}
		return rec.Route, true
	default:
		v, ok := rec.Field(col)
		if !ok {
			return nil, false
		}
		switch v.Kind {
		case models.KindNumber:
			return v.Num, true
		case models.KindBool:
			return v.Bool, true
		default:
			return v.Text, true
		}
	}
}

func stringCell(s string) (interface{}, bool) {
	if s == "" {
		return nil, false
	}
	return s, true
}

// columnType maps a column to its schema type, probing the records for
// dynamic fields.
func (t *Table) columnType(col string) string {
	switch col {
	case "startDate":
		return "datetime"
	case "duration":
		return "integer"
	case "distance":
		return "number"
	case "activityType", "durationUnit", "endDate", "source", "distanceUnit", "routeFile", "route":
		return "string"
	}
	for _, rec := range t.records {
		v, ok := rec.Field(col)
		if !ok {
			continue
		}
		switch v.Kind {
		case models.KindNumber:
			return "number"
		case models.KindBool:
			return "boolean"
		}
		return "string"
	}
	return "string"
}

// keyedValue is one JSON object member; orderedObject marshals members in
// slice order, which encoding/json maps cannot guarantee.
type keyedValue struct {
	key   string
	value interface{}
}

type orderedObject []keyedValue

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(kv.value)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// keyPriority orders row keys: index first, then the date window, then
// everything else alphabetically without case.
func keyPriority(key string) int {
	switch key {
	case "index":
		return 0
	case "startDate":
		return 1
	case "endDate":
		return 2
	default:
		return 3
	}
}

func sortRowKeys(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := keyPriority(keys[i]), keyPriority(keys[j])
		if pi != pj {
			return pi < pj
		}
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})
}

type schemaField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type tableSchema struct {
	Fields     []schemaField `json:"fields"`
	PrimaryKey []string      `json:"primaryKey"`
}

type tableDocument struct {
	Schema tableSchema     `json:"schema"`
	Data   []orderedObject `json:"data"`
}

// ExportJSON renders the table in a schema-plus-data layout. Null cells are
// omitted per row, keys are stably ordered, and rows sort by start date.
// A nil exclude set applies the default exclusions.
func (t *Table) ExportJSON(exclude map[string]bool) ([]byte, error) {
	if exclude == nil {
		exclude = DefaultExcludedColumns()
	}

	var included []string
	for _, col := range t.columns {
		if !exclude[col] {
			included = append(included, col)
		}
	}

	schema := tableSchema{
		Fields:     []schemaField{{Name: "index", Type: "integer"}},
		PrimaryKey: []string{"index"},
	}
	for _, col := range included {
		schema.Fields = append(schema.Fields, schemaField{Name: col, Type: t.columnType(col)})
	}

	keys := append([]string{"index"}, included...)
	sortRowKeys(keys)

	rows := make([]orderedObject, 0, len(t.records))
	sortValues := make([]string, 0, len(t.records))
	for i, rec := range t.records {
		var row orderedObject
		startValue := ""
		for _, key := range keys {
			if key == "index" {
				row = append(row, keyedValue{"index", i})
				continue
			}
			v, ok := cell(rec, key)
			if !ok {
				continue
			}
			if ts, isTime := v.(time.Time); isTime {
				v = ts.Format(jsonTimeLayout)
			}
			if key == "startDate" {
				startValue, _ = v.(string)
			}
			row = append(row, keyedValue{key, v})
		}
		rows = append(rows, row)
		sortValues = append(sortValues, startValue)
	}

	order := make([]int, len(rows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return sortValues[order[i]] < sortValues[order[j]]
	})
	sorted := make([]orderedObject, len(rows))
	for i, idx := range order {
		sorted[i] = rows[idx]
	}

	return json.MarshalIndent(tableDocument{Schema: schema, Data: sorted}, "", "  ")
}

// ExportCSV renders the table as CSV, optionally restricted to one activity
// type. With no matching rows the output is a header over the minimal
// column set, so downstream tooling still sees a valid document.
func (t *Table) ExportCSV(activityType *string, exclude map[string]bool) ([]byte, error) {
	if exclude == nil {
		exclude = DefaultExcludedColumns()
	}

	records := t.filtered(Filter{ActivityType: activityType})

	source := t.columns
	if len(records) == 0 {
		source = minimalColumns
	}
	var columns []string
	for _, col := range source {
		if !exclude[col] {
			columns = append(columns, col)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = csvCell(rec, col)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func csvCell(rec *models.WorkoutRecord, col string) string {
	v, ok := cell(rec, col)
	if !ok {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(csvTimeLayout)
	case []models.RoutePoint:
		return fmt.Sprintf("%d points", len(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}

type yamlDocument struct {
	ExportedAt   string                   `yaml:"exported_at"`
	WorkoutCount int                      `yaml:"workout_count"`
	Workouts     []map[string]interface{} `yaml:"workouts"`
}

// ExportYAML renders the table as a YAML document with an export envelope.
func (t *Table) ExportYAML(exclude map[string]bool) ([]byte, error) {
	if exclude == nil {
		exclude = DefaultExcludedColumns()
	}

	doc := yamlDocument{
		ExportedAt:   time.Now().UTC().Format(time.RFC3339),
		WorkoutCount: len(t.records),
	}
	for _, rec := range t.records {
		row := make(map[string]interface{})
		for _, col := range t.columns {
			if exclude[col] {
				continue
			}
			v, ok := cell(rec, col)
			if !ok {
				continue
			}
			if ts, isTime := v.(time.Time); isTime {
				v = ts.Format(csvTimeLayout)
			}
			row[col] = v
		}
		doc.Workouts = append(doc.Workouts, row)
	}

	return yaml.Marshal(doc)
}
