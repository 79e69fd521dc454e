package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// ErrInvalidCoordinate is returned when a reading cannot take part in the
// distance computation.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// AggregateOptions controls how readings are summarized.
type AggregateOptions struct {
	// Distance computes the leg length between consecutive readings.
	// Nil means GeodesicDistance.
	Distance DistanceFunc

	// OrderByTime stable-sorts each group by timestamp before summing legs.
	// When false, legs follow the order in which readings were read.
	OrderByTime bool
}

type groupKey struct {
	hour     time.Time
	deviceID string
}

// Aggregate groups readings by (hour bucket, device) and computes the maximum
// temperature, the number of readings and the total distance travelled of each
// group. The distance is the sum of the legs between consecutive readings,
// rounded half to even to a whole kilometre; a group with a single reading has
// a distance of 0. Summaries are ordered by hour, then device id.
func Aggregate(readings []Reading, opts AggregateOptions) ([]HourlySummary, error) {
	distance := opts.Distance
	if distance == nil {
		distance = GeodesicDistance
	}

	groups := make(map[groupKey][]Reading)
	keys := make([]groupKey, 0)
	for _, r := range readings {
		if err := validateLocation(r.Location); err != nil {
			return nil, fmt.Errorf("device %s at %s: %w", r.DeviceID, r.Time.Format(time.RFC3339), err)
		}
		r.Location.Longitude = wrapLongitude(r.Location.Longitude)
		k := groupKey{hour: HourBucket(r.Time), deviceID: r.DeviceID}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], r)
	}

	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].hour.Equal(keys[j].hour) {
			return keys[i].hour.Before(keys[j].hour)
		}
		return keys[i].deviceID < keys[j].deviceID
	})

	summaries := make([]HourlySummary, 0, len(keys))
	for _, k := range keys {
		group := groups[k]
		if opts.OrderByTime {
			sort.SliceStable(group, func(i, j int) bool { return group[i].Time.Before(group[j].Time) })
		}

		total, err := pathLength(group, distance)
		if err != nil {
			return nil, fmt.Errorf("device %s hour %s: %w", k.deviceID, k.hour.Format(time.RFC3339), err)
		}

		summaries = append(summaries, HourlySummary{
			Hour:           k.hour,
			DeviceID:       k.deviceID,
			MaxTemperature: maxTemperature(group),
			DataPointCount: len(group),
			TotalDistance:  math.RoundToEven(total),
		})
	}
	return summaries, nil
}

func maxTemperature(group []Reading) float64 {
	highest := group[0].Temperature
	for _, r := range group[1:] {
		if r.Temperature > highest {
			highest = r.Temperature
		}
	}
	return highest
}

func pathLength(group []Reading, distance DistanceFunc) (float64, error) {
	var total float64
	for i := 1; i < len(group); i++ {
		leg := distance(group[i-1].Location, group[i].Location)
		if math.IsNaN(leg) || math.IsInf(leg, 0) || leg < 0 {
			return 0, fmt.Errorf("%w: leg %d has length %v", ErrInvalidCoordinate, i, leg)
		}
		total += leg
	}
	return total, nil
}

// validateLocation rejects latitudes off the globe. Any finite longitude is
// accepted and wrapped later.
func validateLocation(loc Location) error {
	switch {
	case math.IsNaN(loc.Latitude) || math.IsNaN(loc.Longitude):
		return fmt.Errorf("%w: NaN", ErrInvalidCoordinate)
	case math.IsInf(loc.Longitude, 0):
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, loc.Longitude)
	case loc.Latitude < -90 || loc.Latitude > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinate, loc.Latitude)
	}
	return nil
}

// wrapLongitude maps lon onto [-180, 180].
func wrapLongitude(lon float64) float64 {
	return math.Remainder(lon, 360)
}
