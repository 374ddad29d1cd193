// ABOUTME: End-to-end tests for the export archive parser.
// ABOUTME: Builds small zip fixtures in-test and parses them.
package parser

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const fixtureGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx xmlns="http://www.topografix.com/GPX/1/1" version="1.1" creator="Apple Health Export">
  <trk>
    <trkseg>
      <trkpt lat="49.6116" lon="6.1319"><ele>310.5</ele><time>2023-06-10T06:30:05Z</time></trkpt>
      <trkpt lat="49.6120" lon="6.1325"><ele>311.2</ele><time>2023-06-10T06:30:10Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

// writeArchive builds an export archive from member name to content.
func writeArchive(t *testing.T, members map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "export.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range members {
		member, err := w.Create(name)
		if err != nil {
			t.Fatalf("Failed to add member %s: %v", name, err)
		}
		if _, err := member.Write([]byte(content)); err != nil {
			t.Fatalf("Failed to write member %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finish archive: %v", err)
	}
	return path
}

func exportArchive(t *testing.T, exportXML string, extra map[string]string) string {
	t.Helper()
	members := map[string]string{"apple_health_export/export.xml": exportXML}
	for name, content := range extra {
		members[name] = content
	}
	return writeArchive(t, members)
}

func TestParseEndToEnd(t *testing.T) {
	exportXML := `<?xml version="1.0" encoding="UTF-8"?>
<HealthData locale="en_US">
  <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="30" durationUnit="min"
           startDate="2023-06-10 08:30:00 +0200" endDate="2023-06-10 09:00:00 +0200" sourceName="Apple Watch">
    <MetadataEntry key="HKWeatherHumidity" value="6400 %"/>
    <MetadataEntry key="HKElevationAscended" value="860 cm"/>
    <MetadataEntry key="HKTimeZone" value="Europe/Luxembourg"/>
    <WorkoutStatistics type="HKQuantityTypeIdentifierDistanceWalkingRunning" sum="5200" unit="m"/>
    <WorkoutStatistics type="HKQuantityTypeIdentifierHeartRate" average="152" minimum="98" maximum="176" unit="count/min"/>
    <WorkoutRoute sourceName="Apple Watch">
      <FileReference path="/workout-routes/route_2023-06-10.gpx"/>
    </WorkoutRoute>
  </Workout>
</HealthData>`

	path := exportArchive(t, exportXML, map[string]string{
		"apple_health_export/workout-routes/route_2023-06-10.gpx": fixtureGPX,
	})

	tbl, err := New().Parse(path)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Expected 1 workout, got %d", tbl.Len())
	}

	rec := tbl.Records()[0]
	if rec.ActivityType != "Running" {
		t.Errorf("Expected activity Running, got %q", rec.ActivityType)
	}
	if rec.Duration == nil || *rec.Duration != 1800 {
		t.Errorf("Expected duration 1800s, got %v", rec.Duration)
	}
	if rec.DurationUnit != "seconds" {
		t.Errorf("Expected durationUnit seconds, got %q", rec.DurationUnit)
	}
	if rec.Source != "Apple Watch" {
		t.Errorf("Expected source Apple Watch, got %q", rec.Source)
	}

	want := time.Date(2023, 6, 10, 8, 30, 0, 0, time.UTC)
	if !rec.StartDate.Equal(want) {
		t.Errorf("Expected naive start %v, got %v", want, rec.StartDate)
	}

	if rec.Distance == nil || *rec.Distance != 5200 {
		t.Errorf("Expected distance 5200, got %v", rec.Distance)
	}
	if rec.DistanceUnit != "m" {
		t.Errorf("Expected distance unit m, got %q", rec.DistanceUnit)
	}

	if v, ok := rec.NumericField("averageHeartRate"); !ok || v != 152 {
		t.Errorf("Expected averageHeartRate 152, got %v", v)
	}
	if v, ok := rec.Field("averageHeartRateUnit"); !ok || v.Text != "count/min" {
		t.Errorf("Expected averageHeartRateUnit count/min, got %+v", v)
	}
	if v, ok := rec.NumericField("minimumHeartRate"); !ok || v != 98 {
		t.Errorf("Expected minimumHeartRate 98, got %v", v)
	}

	if v, ok := rec.NumericField("WeatherHumidity"); !ok || v != 64 {
		t.Errorf("Expected WeatherHumidity 64, got %v", v)
	}
	if v, ok := rec.NumericField("ElevationAscended"); !ok || v != 8.6 {
		t.Errorf("Expected ElevationAscended 8.6 m, got %v", v)
	}
	if v, ok := rec.Field("TimeZone"); !ok || v.Text != "Europe/Luxembourg" {
		t.Errorf("Expected TimeZone text, got %+v", v)
	}

	if rec.RouteFile != "/workout-routes/route_2023-06-10.gpx" {
		t.Errorf("Unexpected route file %q", rec.RouteFile)
	}
	if len(rec.Route) != 2 {
		t.Fatalf("Expected 2 route points, got %d", len(rec.Route))
	}
	if rec.Route[0].Latitude != 49.6116 || rec.Route[0].Altitude != 310.5 {
		t.Errorf("Unexpected first route point %+v", rec.Route[0])
	}
}

func TestParseDefaultDurationUnitAndDateOnlyStart(t *testing.T) {
	// No durationUnit attribute means minutes; a date-only startDate still
	// promotes to a timestamp.
	exportXML := `<HealthData>
  <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="30"
           startDate="2024-01-01" endDate="2024-01-01 09:00:00 +0100" sourceName="Watch">
    <WorkoutStatistics type="HKQuantityTypeIdentifierDistanceWalkingRunning" sum="5.2" unit="km"/>
  </Workout>
</HealthData>`

	tbl, err := New().Parse(exportArchive(t, exportXML, nil))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("Expected 1 workout, got %d", tbl.Len())
	}

	rec := tbl.Records()[0]
	if rec.Duration == nil || *rec.Duration != 1800 {
		t.Errorf("Expected duration 1800s, got %v", rec.Duration)
	}
	if rec.Distance == nil || *rec.Distance != 5.2 {
		t.Errorf("Expected distance 5.2, got %v", rec.Distance)
	}
	if rec.DistanceUnit != "km" {
		t.Errorf("Expected distance unit km, got %q", rec.DistanceUnit)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !rec.StartDate.Equal(want) {
		t.Errorf("Expected start %v, got %v", want, rec.StartDate)
	}
}

func TestParseDuplicateMetadataAccumulates(t *testing.T) {
	// The same key at workout and activity level sums when both are numeric.
	exportXML := `<HealthData>
  <Workout workoutActivityType="HKWorkoutActivityTypeSwimming" duration="45" durationUnit="min"
           startDate="2023-07-01 10:00:00 +0200" endDate="2023-07-01 10:45:00 +0200" sourceName="Watch">
    <MetadataEntry key="HKWeatherHumidity" value="6400 %"/>
    <WorkoutActivity uuid="F0">
      <MetadataEntry key="HKWeatherHumidity" value="6400 %"/>
    </WorkoutActivity>
  </Workout>
</HealthData>`

	tbl, err := New().Parse(exportArchive(t, exportXML, nil))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	rec := tbl.Records()[0]
	if v, ok := rec.NumericField("WeatherHumidity"); !ok || v != 128 {
		t.Errorf("Expected accumulated humidity 128, got %v", v)
	}
}

func TestParseMissingArchive(t *testing.T) {
	if _, err := New().Parse(filepath.Join(t.TempDir(), "absent.zip")); err == nil {
		t.Error("Expected error for missing archive")
	}
}

func TestParseMissingExportDocument(t *testing.T) {
	path := writeArchive(t, map[string]string{"apple_health_export/other.xml": "<HealthData/>"})
	_, err := New().Parse(path)
	if !errors.Is(err, ErrNoExportDocument) {
		t.Errorf("Expected ErrNoExportDocument, got %v", err)
	}
}

func TestParseBadDurationUnit(t *testing.T) {
	exportXML := `<HealthData>
  <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="30" durationUnit="days"
           startDate="2023-06-10 08:30:00 +0200" endDate="2023-06-10 09:00:00 +0200" sourceName="Watch"/>
</HealthData>`

	if _, err := New().Parse(exportArchive(t, exportXML, nil)); err == nil {
		t.Error("Expected error for unsupported duration unit")
	}
}

func TestParseBadStartDate(t *testing.T) {
	exportXML := `<HealthData>
  <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="30" durationUnit="min"
           startDate="yesterday morning" endDate="2023-06-10 09:00:00 +0200" sourceName="Watch"/>
</HealthData>`

	if _, err := New().Parse(exportArchive(t, exportXML, nil)); err == nil {
		t.Error("Expected error for unparseable start date")
	}
}

func TestParseMissingRouteFile(t *testing.T) {
	// The record survives with the path noted but no track data.
	exportXML := `<HealthData>
  <Workout workoutActivityType="HKWorkoutActivityTypeHiking" duration="60" durationUnit="min"
           startDate="2023-06-11 08:00:00 +0200" endDate="2023-06-11 09:00:00 +0200" sourceName="Watch">
    <WorkoutRoute sourceName="Watch">
      <FileReference path="/workout-routes/gone.gpx"/>
    </WorkoutRoute>
  </Workout>
</HealthData>`

	tbl, err := New().Parse(exportArchive(t, exportXML, nil))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	rec := tbl.Records()[0]
	if rec.RouteFile != "/workout-routes/gone.gpx" {
		t.Errorf("Expected route file kept, got %q", rec.RouteFile)
	}
	if rec.Route != nil {
		t.Errorf("Expected no route data, got %d points", len(rec.Route))
	}
}

func TestParseMalformedRouteFile(t *testing.T) {
	// A route member that exists but fails to parse is fatal, unlike a
	// missing one.
	exportXML := `<HealthData>
  <Workout workoutActivityType="HKWorkoutActivityTypeHiking" duration="60" durationUnit="min"
           startDate="2023-06-11 08:00:00 +0200" endDate="2023-06-11 09:00:00 +0200" sourceName="Watch">
    <WorkoutRoute sourceName="Watch">
      <FileReference path="/workout-routes/bad.gpx"/>
    </WorkoutRoute>
  </Workout>
</HealthData>`

	badGPX := `<gpx xmlns="http://www.topografix.com/GPX/1/1"><trk><trkseg>
<trkpt lat="49.6" lon="6.1"><ele>300</ele></trkpt>
</trkseg></trk></gpx>`

	path := exportArchive(t, exportXML, map[string]string{
		"apple_health_export/workout-routes/bad.gpx": badGPX,
	})

	if _, err := New().Parse(path); err == nil {
		t.Error("Expected error for route point without timestamp")
	}
}

func TestParseColumnOrder(t *testing.T) {
	exportXML := `<HealthData>
  <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="30" durationUnit="min"
           startDate="2023-06-10 08:30:00 +0200" endDate="2023-06-10 09:00:00 +0200" sourceName="Watch">
    <MetadataEntry key="HKIndoorWorkout" value="0"/>
    <WorkoutStatistics type="HKQuantityTypeIdentifierDistanceWalkingRunning" sum="5200" unit="m"/>
  </Workout>
</HealthData>`

	tbl, err := New().Parse(exportArchive(t, exportXML, nil))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := []string{"activityType", "duration", "durationUnit", "startDate", "endDate", "source", "IndoorWorkout", "distance", "distanceUnit"}
	got := tbl.Columns()
	if len(got) != len(want) {
		t.Fatalf("Expected %d columns, got %v", len(want), got)
	}
	for i, col := range want {
		if got[i] != col {
			t.Errorf("Column %d: expected %s, got %s", i, col, got[i])
		}
	}
}

func TestParseNaiveTimestampLayouts(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2023-06-10 08:30:00 +0200", time.Date(2023, 6, 10, 8, 30, 0, 0, time.UTC)},
		{"2023-06-10T08:30:00+02:00", time.Date(2023, 6, 10, 8, 30, 0, 0, time.UTC)},
		{"2023-06-10 08:30:00", time.Date(2023, 6, 10, 8, 30, 0, 0, time.UTC)},
		{"2023-06-10", time.Date(2023, 6, 10, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got, err := parseNaiveTimestamp(tt.raw)
		if err != nil {
			t.Errorf("parseNaiveTimestamp(%q) failed: %v", tt.raw, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseNaiveTimestamp(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}

	if _, err := parseNaiveTimestamp("not a date"); err == nil {
		t.Error("Expected error for unparseable timestamp")
	}
}

func TestParseSkipsIntervalStepMetadata(t *testing.T) {
	exportXML := `<HealthData>
  <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="30" durationUnit="min"
           startDate="2023-06-10 08:30:00 +0200" endDate="2023-06-10 09:00:00 +0200" sourceName="Watch">
    <MetadataEntry key="WOIntervalStepKeyPath" value="step1.interval"/>
  </Workout>
</HealthData>`

	tbl, err := New().Parse(exportArchive(t, exportXML, nil))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	rec := tbl.Records()[0]
	if _, ok := rec.Field("WOIntervalStepKeyPath"); ok {
		t.Error("Expected interval step metadata to be skipped")
	}
}
