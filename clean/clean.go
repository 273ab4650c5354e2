// Package clean derives trip durations, drops out-of-range trips and
// normalizes zone identifiers.
package clean

import (
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/sym"
	"github.com/teranos/tripline/trip"
)

// Bounds is the inclusive duration window, in minutes
type Bounds struct {
	Min float64
	Max float64
}

// DefaultBounds keeps trips from 1 to 60 minutes
var DefaultBounds = Bounds{Min: 1, Max: 60}

// Validate rejects negative, non-finite or inverted bounds
func (b Bounds) Validate() error {
	if math.IsNaN(b.Min) || math.IsNaN(b.Max) || math.IsInf(b.Min, 0) || math.IsInf(b.Max, 0) {
		return errors.Newf("duration bounds must be finite, got [%g, %g]", b.Min, b.Max)
	}
	if b.Min < 0 {
		return errors.Newf("minimum duration must be >= 0, got %g", b.Min)
	}
	if b.Max < b.Min {
		return errors.Newf("maximum duration %g is below minimum %g", b.Max, b.Min)
	}
	return nil
}

// Contains reports whether d lies within the bounds, both ends included
func (b Bounds) Contains(d float64) bool {
	return d >= b.Min && d <= b.Max
}

// Stats summarizes one Clean call
type Stats struct {
	Initial  int
	Retained int
	Removed  int
}

// Cleaner filters a Dataset into a PreparedDataset
type Cleaner struct {
	bounds Bounds
	logger *zap.SugaredLogger
}

// New creates a cleaner. Bounds are validated here so Clean never sees bad ones.
func New(bounds Bounds, log *zap.SugaredLogger) (*Cleaner, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	return &Cleaner{bounds: bounds, logger: logger.OrNop(log)}, nil
}

// Clean returns a new PreparedDataset holding the in-range trips, in input order.
// The input dataset is not modified.
func (c *Cleaner) Clean(ds *trip.Dataset) (*trip.PreparedDataset, Stats, error) {
	if ds == nil {
		return nil, Stats{}, errors.NewDataSourceError("clean: dataset is nil")
	}

	out := &trip.PreparedDataset{
		Source:  ds.Source,
		Records: make([]trip.PreparedRecord, 0, len(ds.Records)),
	}
	for _, r := range ds.Records {
		d := r.DurationMinutes()
		if !c.bounds.Contains(d) {
			continue
		}
		out.Records = append(out.Records, trip.PreparedRecord{
			PickupTime:   r.PickupTime,
			DropoffTime:  r.DropoffTime,
			PickupZone:   NormalizeZone(r.PickupZone),
			DropoffZone:  NormalizeZone(r.DropoffZone),
			TripDistance: r.TripDistance,
			Duration:     d,
		})
	}

	stats := Stats{
		Initial:  ds.Len(),
		Retained: out.Len(),
	}
	stats.Removed = stats.Initial - stats.Retained

	c.logger.Infow("Trips cleaned",
		logger.FieldTotalCount, stats.Initial,
		logger.FieldCount, stats.Retained,
		logger.FieldRemoved, stats.Removed,
		logger.FieldSymbol, sym.Clean,
	)

	return out, stats, nil
}

// NormalizeZone trims a zone id and rewrites integer-valued numbers in their
// plain decimal form, so "161", "161.0" and " 0161 " all become "161".
// Anything else is returned trimmed.
func NormalizeZone(z trip.ZoneID) string {
	s := strings.TrimSpace(string(z))
	if s == "" {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}
