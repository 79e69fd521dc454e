package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidLocation is returned when a location blob does not hold exactly a
// numeric latitude and longitude.
var ErrInvalidLocation = errors.New("invalid location")

// ErrInvalidTimestamp is returned when a reading's time is not a number of
// seconds since the epoch.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// DecodeLocation parses a JSON location blob such as
// {"latitude": "51.5", "longitude": -0.12}. Both keys must be present and no
// other key is accepted. Values may be JSON numbers or strings holding a
// decimal number, which is how the upstream generator serializes them.
func DecodeLocation(blob string) (Location, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(blob), &fields); err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	if fields == nil {
		return Location{}, fmt.Errorf("%w: not an object", ErrInvalidLocation)
	}

	lat, err := coordinate(fields, "latitude")
	if err != nil {
		return Location{}, err
	}
	lon, err := coordinate(fields, "longitude")
	if err != nil {
		return Location{}, err
	}

	if len(fields) != 2 {
		extra := make([]string, 0, len(fields))
		for k := range fields {
			if k != "latitude" && k != "longitude" {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		return Location{}, fmt.Errorf("%w: unexpected fields %s", ErrInvalidLocation, strings.Join(extra, ", "))
	}

	return Location{Latitude: lat, Longitude: lon}, nil
}

func coordinate(fields map[string]json.RawMessage, key string) (float64, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", ErrInvalidLocation, key)
	}
	raw = bytes.TrimSpace(raw)

	var text string
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrInvalidLocation, key, err)
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, fmt.Errorf("%w: %s is not numeric", ErrInvalidLocation, key)
		}
		text = n.String()
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s is not numeric: %q", ErrInvalidLocation, key, text)
	}
	return v, nil
}

// Timestamps must fit in int64 nanoseconds since the epoch.
var (
	minEpoch = time.Unix(0, math.MinInt64).UTC()
	maxEpoch = time.Unix(0, math.MaxInt64).UTC()
)

// epochSecondsLimit is a coarse bound applied before converting to int64.
const epochSecondsLimit = math.MaxInt64/int64(time.Second) + 1

// ParseEpoch converts seconds since the Unix epoch into a UTC time. Fractional
// seconds are kept to nanosecond precision. Values between 1677-09-21 and
// 2262-04-11 are accepted.
func ParseEpoch(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	var t time.Time
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < -epochSecondsLimit || n > epochSecondsLimit {
			return time.Time{}, fmt.Errorf("%w: %q out of range", ErrInvalidTimestamp, s)
		}
		t = time.Unix(n, 0).UTC()
	} else {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
		}
		if f < -float64(epochSecondsLimit) || f > float64(epochSecondsLimit) {
			return time.Time{}, fmt.Errorf("%w: %q out of range", ErrInvalidTimestamp, s)
		}
		sec, frac := math.Modf(f)
		t = time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
	}

	if t.Before(minEpoch) || t.After(maxEpoch) {
		return time.Time{}, fmt.Errorf("%w: %q out of range", ErrInvalidTimestamp, s)
	}
	return t, nil
}

// DecodeReading turns a source row into a Reading.
func DecodeReading(raw RawReading) (Reading, error) {
	loc, err := DecodeLocation(raw.Location)
	if err != nil {
		return Reading{}, fmt.Errorf("device %s: %w", raw.DeviceID, err)
	}
	ts, err := ParseEpoch(raw.Time)
	if err != nil {
		return Reading{}, fmt.Errorf("device %s: %w", raw.DeviceID, err)
	}
	return Reading{
		DeviceID:    raw.DeviceID,
		Time:        ts,
		Temperature: raw.Temperature,
		Location:    loc,
	}, nil
}

// HourBucket truncates t to the start of its clock hour in UTC.
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}
