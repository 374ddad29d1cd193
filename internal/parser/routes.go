// ABOUTME: Reads GPX route documents referenced by workout records.
// ABOUTME: Streams trkpt elements into RoutePoint slices.
package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/harperreed/healthexport/internal/models"
)

const gpxNamespace = "http://www.topografix.com/GPX/1/1"

// trackPoint mirrors a single trkpt element. Coordinates default to "0.0"
// when the attribute is missing; the timestamp has no default.
type trackPoint struct {
	Lat  string `xml:"lat,attr"`
	Lon  string `xml:"lon,attr"`
	Ele  string `xml:"ele"`
	Time string `xml:"time"`
}

// readTrack streams a GPX document and collects its track points. Any point
// without a timestamp makes the whole route invalid. A document with no
// points yields an empty, non-nil slice so an empty track stays
// distinguishable from a missing one.
func readTrack(r io.Reader) ([]models.RoutePoint, error) {
	dec := xml.NewDecoder(r)

	points := []models.RoutePoint{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse route document: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "trkpt" || start.Name.Space != gpxNamespace {
			continue
		}

		var pt trackPoint
		if err := dec.DecodeElement(&pt, &start); err != nil {
			return nil, fmt.Errorf("parse route point: %w", err)
		}

		point, err := pt.toRoutePoint()
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}

	return points, nil
}

func (pt trackPoint) toRoutePoint() (models.RoutePoint, error) {
	lat, err := strconv.ParseFloat(defaultCoord(pt.Lat), 64)
	if err != nil {
		return models.RoutePoint{}, fmt.Errorf("parse route latitude %q: %w", pt.Lat, err)
	}
	lon, err := strconv.ParseFloat(defaultCoord(pt.Lon), 64)
	if err != nil {
		return models.RoutePoint{}, fmt.Errorf("parse route longitude %q: %w", pt.Lon, err)
	}
	ele, err := strconv.ParseFloat(defaultCoord(pt.Ele), 64)
	if err != nil {
		return models.RoutePoint{}, fmt.Errorf("parse route elevation %q: %w", pt.Ele, err)
	}

	if pt.Time == "" {
		return models.RoutePoint{}, fmt.Errorf("route point missing timestamp")
	}
	ts, err := time.Parse(time.RFC3339, pt.Time)
	if err != nil {
		return models.RoutePoint{}, fmt.Errorf("parse route timestamp %q: %w", pt.Time, err)
	}

	return models.RoutePoint{
		Time:      ts,
		Latitude:  lat,
		Longitude: lon,
		Altitude:  ele,
	}, nil
}

func defaultCoord(s string) string {
	if s == "" {
		return "0.0"
	}
	return s
}
