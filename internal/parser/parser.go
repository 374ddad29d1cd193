// ABOUTME: Streaming parser for Apple Health export archives.
// ABOUTME: Walks export.xml token by token and emits one record per Workout.
package parser

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harperreed/healthexport/internal/models"
	"github.com/harperreed/healthexport/internal/table"
	"github.com/harperreed/healthexport/internal/units"
)

const (
	exportMember = "apple_health_export/export.xml"
	archiveRoot  = "apple_health_export"

	activityTypePrefix = "HKWorkoutActivityType"
	statTypePrefix     = "HKQuantityTypeIdentifier"
	metadataPrefix     = "HK"

	// Interval step path markers carry no analytical meaning.
	intervalStepKey = "WOIntervalStepKeyPath"
)

// ErrNoExportDocument reports an archive without the export document member.
var ErrNoExportDocument = errors.New("export document not found in archive")

var statKinds = [...]string{"sum", "average", "minimum", "maximum"}

// Parser reads an export archive into a workout table.
type Parser struct {
	// Logger is an optional sink for progress and recoverable conditions.
	// Parsing behaves identically when it is nil.
	Logger *log.Logger
}

// New creates a Parser without a log sink.
func New() *Parser {
	return &Parser{}
}

// parseState accumulates records and the column order in which dynamic
// fields first appear, so the table preserves document order.
type parseState struct {
	records []*models.WorkoutRecord
	columns []string
	seen    map[string]bool
}

func newParseState() *parseState {
	base := []string{"activityType", "duration", "durationUnit", "startDate", "endDate", "source"}
	st := &parseState{seen: make(map[string]bool)}
	for _, col := range base {
		st.note(col)
	}
	return st
}

func (st *parseState) note(col string) {
	if !st.seen[col] {
		st.seen[col] = true
		st.columns = append(st.columns, col)
	}
}

// Parse reads the archive at path and returns the workout table.
// A missing archive or export document is fatal; a missing route file only
// logs and leaves that record's route unset.
func (p *Parser) Parse(path string) (*table.Table, error) {
	p.info("starting to parse the health export archive")

	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open export archive: %w", err)
	}
	defer archive.Close()

	export, err := archive.Open(exportMember)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoExportDocument, exportMember)
	}
	defer export.Close()

	st := newParseState()
	if err := p.walkExport(export, &archive.Reader, st); err != nil {
		return nil, err
	}

	for _, rec := range st.records {
		if rec.StartDateRaw == "" {
			continue
		}
		ts, err := parseNaiveTimestamp(rec.StartDateRaw)
		if err != nil {
			return nil, err
		}
		rec.StartDate = ts
	}

	p.info("finished parsing the health export archive", "workouts", len(st.records))
	return table.New(st.records, st.columns), nil
}

// walkExport runs the start/end token walk over the export document. Each
// Workout subtree is folded into a single record; WorkoutActivity children
// dispatch into the same record, which is how activity-level statistics and
// metadata merge with the parent workout's.
func (p *Parser) walkExport(r io.Reader, archive *zip.Reader, st *parseState) error {
	dec := xml.NewDecoder(r)

	var rec *models.WorkoutRecord
	inRoute := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("parse export document: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Workout":
				rec, err = p.startWorkout(t)
				if err != nil {
					return err
				}
			case "WorkoutStatistics":
				if rec != nil {
					if err := p.applyStatistics(t, rec, st); err != nil {
						return err
					}
				}
			case "MetadataEntry":
				if rec != nil {
					p.applyMetadata(t, rec, st)
				}
			case "WorkoutRoute":
				inRoute = rec != nil
			case "FileReference":
				if rec != nil && inRoute {
					if err := p.applyRoute(attr(t, "path"), rec, archive, st); err != nil {
						return err
					}
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "Workout":
				if rec != nil {
					st.records = append(st.records, rec)
					rec = nil
				}
			case "WorkoutRoute":
				inRoute = false
			}
		}
	}

	return nil
}

// startWorkout builds the base record from the Workout element attributes.
func (p *Parser) startWorkout(t xml.StartElement) (*models.WorkoutRecord, error) {
	activityType := strings.ReplaceAll(attr(t, "workoutActivityType"), activityTypePrefix, "")
	rec := models.NewWorkoutRecord(activityType)

	if raw := attr(t, "duration"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse workout duration %q: %w", raw, err)
		}
		seconds, err := units.DurationToSeconds(value, attr(t, "durationUnit"))
		if err != nil {
			return nil, err
		}
		rec.Duration = &seconds
	}
	rec.DurationUnit = "seconds"
	rec.StartDateRaw = attr(t, "startDate")
	rec.EndDate = attr(t, "endDate")
	rec.Source = attr(t, "sourceName")

	return rec, nil
}

// applyStatistics folds one WorkoutStatistics element into the record.
// Distance-flavored sums collapse into the single distance column; every
// other statistic keys by aggregation kind plus cleaned type name.
func (p *Parser) applyStatistics(t xml.StartElement, rec *models.WorkoutRecord, st *parseState) error {
	statType := strings.ReplaceAll(attr(t, "type"), statTypePrefix, "")
	unit := attr(t, "unit")

	for _, kind := range statKinds {
		raw := attr(t, kind)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("parse statistic %s of %s: %w", kind, statType, err)
		}

		if kind == "sum" && strings.Contains(statType, "Distance") {
			rec.Distance = &value
			rec.DistanceUnit = unit
			st.note("distance")
			st.note("distanceUnit")
			continue
		}

		name := kind + statType
		rec.SetField(name, models.Number(value))
		st.note(name)
		if unit != "" {
			rec.SetField(name+"Unit", models.Text(unit))
			st.note(name + "Unit")
		}
	}

	return nil
}

// applyMetadata folds one MetadataEntry into the record through the
// duplicate-merge rule: two numeric values accumulate, anything else
// overwrites. The unit sibling is only written on the overwrite branch.
func (p *Parser) applyMetadata(t xml.StartElement, rec *models.WorkoutRecord, st *parseState) {
	key := strings.ReplaceAll(attr(t, "key"), metadataPrefix, "")
	if key == intervalStepKey {
		return
	}

	value, unit, ok := ParseValue(attr(t, "value"))
	if !ok {
		return
	}

	if existing, present := rec.Field(key); present && existing.IsNumber() && value.IsNumber() {
		rec.SetField(key, models.MergeValue(&existing, value))
		st.note(key)
		return
	}

	rec.SetField(key, value)
	st.note(key)
	if unit != "" {
		rec.SetField(key+"Unit", models.Text(unit))
		st.note(key + "Unit")
	}
}

// applyRoute resolves a FileReference path against the archive and attaches
// the parsed track. Only a missing member is recoverable: the record keeps
// its routeFile path with no route data. A member that exists but does not
// parse aborts the whole walk.
func (p *Parser) applyRoute(path string, rec *models.WorkoutRecord, archive *zip.Reader, st *parseState) error {
	if path == "" {
		return nil
	}
	rec.RouteFile = path
	st.note("routeFile")

	route, err := p.loadRoute(archive, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.info("route file not found in export", "path", path)
			return nil
		}
		return err
	}
	rec.Route = route
	st.note("route")
	return nil
}

// loadRoute opens the referenced GPX member and streams its track points.
func (p *Parser) loadRoute(archive *zip.Reader, path string) ([]models.RoutePoint, error) {
	member, err := archive.Open(archiveRoot + path)
	if err != nil {
		return nil, err
	}
	defer member.Close()

	return readTrack(member)
}

func (p *Parser) info(msg string, keyvals ...interface{}) {
	if p.Logger != nil {
		p.Logger.Info(msg, keyvals...)
	}
}

// attr returns the named attribute of an element, or "" when absent.
func attr(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// startDateLayouts are tried in order when promoting the startDate column.
var startDateLayouts = []string{
	"2006-01-02 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseNaiveTimestamp parses a start date and drops its timezone, keeping
// the wall-clock reading.
func parseNaiveTimestamp(s string) (time.Time, error) {
	for _, layout := range startDateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	}
	return time.Time{}, fmt.Errorf("unparseable start date: %q", s)
}
