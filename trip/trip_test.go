package trip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2023, 3, 1, 10, 0, 0, 0, time.UTC)
	r := TripRecord{PickupTime: start, DropoffTime: start.Add(15*time.Minute + 12*time.Second)}
	assert.InDelta(t, 15.2, r.DurationMinutes(), 1e-9)

	backwards := TripRecord{PickupTime: start, DropoffTime: start.Add(-time.Minute)}
	assert.Equal(t, -1.0, backwards.DurationMinutes())
}

func TestLenOnNil(t *testing.T) {
	var d *Dataset
	assert.Equal(t, 0, d.Len())

	var p *PreparedDataset
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.Durations())
}

func TestDurations(t *testing.T) {
	p := &PreparedDataset{Records: []PreparedRecord{{Duration: 3}, {Duration: 7.5}}}
	assert.Equal(t, []float64{3, 7.5}, p.Durations())
}
