package clean

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/trip"
)

var start = time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC)

func tripOf(minutes float64, pu, do string) trip.TripRecord {
	return trip.TripRecord{
		PickupTime:   start,
		DropoffTime:  start.Add(time.Duration(minutes * float64(time.Minute))),
		PickupZone:   trip.ZoneID(pu),
		DropoffZone:  trip.ZoneID(do),
		TripDistance: 1.5,
	}
}

func TestClean_Boundaries(t *testing.T) {
	c, err := New(DefaultBounds, nil)
	require.NoError(t, err)

	ds := &trip.Dataset{Source: "test", Records: []trip.TripRecord{
		tripOf(0.5, "1", "2"),   // too short
		tripOf(1, "1", "2"),     // lower boundary kept
		tripOf(30, "1", "2"),    // kept
		tripOf(60, "1", "2"),    // upper boundary kept
		tripOf(60.01, "1", "2"), // too long
		tripOf(-5, "1", "2"),    // dropoff before pickup
	}}

	out, stats, err := c.Clean(ds)
	require.NoError(t, err)

	assert.Equal(t, Stats{Initial: 6, Retained: 3, Removed: 3}, stats)
	require.Equal(t, 3, out.Len())
	assert.Equal(t, []float64{1, 30, 60}, out.Durations())
	for _, r := range out.Records {
		assert.GreaterOrEqual(t, r.Duration, 1.0)
		assert.LessOrEqual(t, r.Duration, 60.0)
	}
	assert.Equal(t, "test", out.Source)
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	c, err := New(DefaultBounds, nil)
	require.NoError(t, err)

	ds := &trip.Dataset{Records: []trip.TripRecord{tripOf(10, " 161.0 ", "236"), tripOf(90, "1", "2")}}
	_, _, err = c.Clean(ds)
	require.NoError(t, err)

	assert.Len(t, ds.Records, 2)
	assert.Equal(t, trip.ZoneID(" 161.0 "), ds.Records[0].PickupZone)
}

func TestClean_NormalizesZones(t *testing.T) {
	c, err := New(DefaultBounds, nil)
	require.NoError(t, err)

	out, _, err := c.Clean(&trip.Dataset{Records: []trip.TripRecord{tripOf(10, "161.0", " 0236 ")}})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "161", out.Records[0].PickupZone)
	assert.Equal(t, "236", out.Records[0].DropoffZone)
	assert.Equal(t, 1.5, out.Records[0].TripDistance)
}

func TestClean_Empty(t *testing.T) {
	c, err := New(DefaultBounds, nil)
	require.NoError(t, err)

	out, stats, err := c.Clean(&trip.Dataset{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, Stats{}, stats)
}

func TestClean_NilDataset(t *testing.T) {
	c, err := New(DefaultBounds, nil)
	require.NoError(t, err)

	_, _, err = c.Clean(nil)
	require.Error(t, err)
	assert.True(t, errors.IsDataSourceError(err))
}

func TestClean_CustomBounds(t *testing.T) {
	c, err := New(Bounds{Min: 5, Max: 10}, nil)
	require.NoError(t, err)

	out, stats, err := c.Clean(&trip.Dataset{Records: []trip.TripRecord{
		tripOf(4, "1", "2"), tripOf(5, "1", "2"), tripOf(10, "1", "2"), tripOf(11, "1", "2"),
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
	assert.Equal(t, 2, stats.Removed)
}

func TestClean_LogsStats(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c, err := New(DefaultBounds, zap.New(core).Sugar())
	require.NoError(t, err)

	_, _, err = c.Clean(&trip.Dataset{Records: []trip.TripRecord{tripOf(10, "1", "2"), tripOf(0, "1", "2")}})
	require.NoError(t, err)

	entries := logs.FilterMessage("Trips cleaned").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, 2, fields["total_count"])
	assert.EqualValues(t, 1, fields["count"])
	assert.EqualValues(t, 1, fields["removed"])
}

func TestBoundsValidate(t *testing.T) {
	tests := []struct {
		name    string
		bounds  Bounds
		wantErr bool
	}{
		{"default", DefaultBounds, false},
		{"zero width", Bounds{Min: 5, Max: 5}, false},
		{"zero min", Bounds{Min: 0, Max: 5}, false},
		{"negative min", Bounds{Min: -1, Max: 5}, true},
		{"inverted", Bounds{Min: 10, Max: 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bounds.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := New(Bounds{Min: 10, Max: 1}, nil)
	assert.Error(t, err)
}

func TestNormalizeZone(t *testing.T) {
	tests := map[string]string{
		"161":      "161",
		"161.0":    "161",
		" 0161 ":   "161",
		"\t43\n":   "43",
		"-3":       "-3",
		"12.5":     "12.5",
		"JFK":      "JFK",
		" Queens ": "Queens",
		"":         "",
		"1e2":      "100",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeZone(trip.ZoneID(in)), "input %q", in)
	}
}
