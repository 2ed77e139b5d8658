package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// ErrInvalidQuery is wrapped by every Query validation failure.
var ErrInvalidQuery = errors.New("catalog: invalid query")

// Temporal is an acquisition time window. A zero bound is open.
type Temporal struct {
	Start time.Time
	End   time.Time
}

// Query selects granules of one collection.
type Query struct {
	ShortName   string
	Temporal    Temporal
	BoundingBox orb.Bound // Min is (west, south), Max is (east, north)
	GranuleName string    // glob, e.g. "*Obs_033_228*"
	Provider    string
	Limit       int // 0 means no limit
}

// HasBoundingBox reports whether a spatial filter is set.
func (q Query) HasBoundingBox() bool {
	return q.BoundingBox != orb.Bound{}
}

// Validate checks the query before it is sent.
func (q Query) Validate() error {
	var problems []string
	if q.ShortName == "" {
		problems = append(problems, "short name is required")
	}
	if !q.Temporal.Start.IsZero() && !q.Temporal.End.IsZero() && q.Temporal.End.Before(q.Temporal.Start) {
		problems = append(problems, fmt.Sprintf("temporal end %s is before start %s",
			q.Temporal.End.Format(time.RFC3339), q.Temporal.Start.Format(time.RFC3339)))
	}
	if q.HasBoundingBox() {
		if err := ValidateBound(q.BoundingBox); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if q.Limit < 0 {
		problems = append(problems, "limit must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidQuery, strings.Join(problems, "; "))
	}
	return nil
}

// values encodes the query as CMR granule search parameters.
func (q Query) values(pageSize int) url.Values {
	v := url.Values{}
	v.Set("short_name", q.ShortName)
	v.Set("page_size", strconv.Itoa(pageSize))
	if q.Provider != "" {
		v.Set("provider", q.Provider)
	}
	if !q.Temporal.Start.IsZero() || !q.Temporal.End.IsZero() {
		v.Set("temporal", formatTime(q.Temporal.Start)+","+formatTime(q.Temporal.End))
	}
	if q.HasBoundingBox() {
		v.Set("bounding_box", FormatBound(q.BoundingBox))
	}
	if q.GranuleName != "" {
		v.Add("readable_granule_name[]", q.GranuleName)
		v.Set("options[readable_granule_name][pattern]", "true")
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ParseBoundingBox parses "west,south,east,north" in decimal degrees.
// Only the syntax is checked; see ValidateBound for ranges.
func ParseBoundingBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bounding box %q: want 4 comma-separated values, got %d", s, len(parts))
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bounding box %q: %w", s, err)
		}
		v[i] = f
	}

	return orb.Bound{
		Min: orb.Point{v[0], v[1]},
		Max: orb.Point{v[2], v[3]},
	}, nil
}

// ValidateBound checks coordinate ranges and ordering. Boxes crossing the
// antimeridian are not supported.
func ValidateBound(b orb.Bound) error {
	west, south := b.Min.Lon(), b.Min.Lat()
	east, north := b.Max.Lon(), b.Max.Lat()

	switch {
	case west < -180 || east > 180:
		return fmt.Errorf("bounding box longitude out of range [-180, 180]: %s", FormatBound(b))
	case south < -90 || north > 90:
		return fmt.Errorf("bounding box latitude out of range [-90, 90]: %s", FormatBound(b))
	case west >= east:
		return fmt.Errorf("bounding box west %g must be less than east %g", west, east)
	case south >= north:
		return fmt.Errorf("bounding box south %g must be less than north %g", south, north)
	}
	return nil
}

// FormatBound renders b as "west,south,east,north".
func FormatBound(b orb.Bound) string {
	return strings.Join([]string{
		strconv.FormatFloat(b.Min.Lon(), 'f', -1, 64),
		strconv.FormatFloat(b.Min.Lat(), 'f', -1, 64),
		strconv.FormatFloat(b.Max.Lon(), 'f', -1, 64),
		strconv.FormatFloat(b.Max.Lat(), 'f', -1, 64),
	}, ",")
}

// timeLayouts are tried in order. A fractional second is accepted after the
// seconds field by every layout that has one.
var timeLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04-07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 timestamp. A "Z" suffix is read as UTC and
// timestamps without an offset are taken to be UTC.
func ParseTime(s string) (time.Time, error) {
	v := strings.ReplaceAll(strings.TrimSpace(s), "Z", "+00:00")
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 time %q", s)
}
