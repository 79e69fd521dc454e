package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oneKmOfLongitude is the longitude span of one kilometre along the WGS-84 equator.
const oneKmOfLongitude = 0.008983152841195214

func TestGeodesicDistance(t *testing.T) {
	origin := Location{}

	assert.InDelta(t, 1.0, GeodesicDistance(origin, Location{Longitude: oneKmOfLongitude}), 1e-6)
	assert.InDelta(t, 110.574, GeodesicDistance(origin, Location{Latitude: 1}), 0.01)
	assert.Zero(t, GeodesicDistance(origin, origin))

	london := Location{Latitude: 51.5074, Longitude: -0.1278}
	paris := Location{Latitude: 48.8566, Longitude: 2.3522}
	assert.InDelta(t, GeodesicDistance(london, paris), GeodesicDistance(paris, london), 1e-9)
}

func TestHaversineDistance(t *testing.T) {
	origin := Location{}

	assert.InDelta(t, 111.19508, HaversineDistance(origin, Location{Latitude: 1}), 1e-5)
	assert.InDelta(t, 111.19508, HaversineDistance(origin, Location{Longitude: 1}), 1e-5)
	assert.Zero(t, HaversineDistance(origin, origin))

	antipode := HaversineDistance(Location{Latitude: 0, Longitude: 0}, Location{Latitude: 0, Longitude: 180})
	assert.InDelta(t, 20015.1, antipode, 0.1)
}

func TestDistanceMethodsAgree(t *testing.T) {
	london := Location{Latitude: 51.5074, Longitude: -0.1278}
	paris := Location{Latitude: 48.8566, Longitude: 2.3522}

	g := GeodesicDistance(london, paris)
	h := HaversineDistance(london, paris)
	assert.InEpsilon(t, g, h, 0.005)
}

func TestDistanceByName(t *testing.T) {
	for _, name := range []string{"", DistanceGeodesic, DistanceHaversine} {
		fn, err := DistanceByName(name)
		require.NoError(t, err)
		require.NotNil(t, fn)
	}

	fn, err := DistanceByName(DistanceHaversine)
	require.NoError(t, err)
	assert.InDelta(t, 111.19508, fn(Location{}, Location{Latitude: 1}), 1e-5)

	_, err = DistanceByName("vincenty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vincenty")
}
