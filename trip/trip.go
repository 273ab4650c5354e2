// Package trip holds the records that flow between pipeline stages.
package trip

import "time"

// ZoneID is a taxi zone identifier in the textual form the source held it.
// Parquet sources carry integers, CSV sources may carry "161", "161.0" or " 161 ".
type ZoneID string

// TripRecord is one raw trip as read from the source. Not filtered or normalized.
type TripRecord struct {
	PickupTime   time.Time
	DropoffTime  time.Time
	PickupZone   ZoneID
	DropoffZone  ZoneID
	TripDistance float64 // miles
}

// DurationMinutes returns dropoff minus pickup in fractional minutes
func (r TripRecord) DurationMinutes() float64 {
	return r.DropoffTime.Sub(r.PickupTime).Seconds() / 60
}

// Dataset is the ordered output of the loader
type Dataset struct {
	Source  string
	Records []TripRecord
}

// Len returns the number of records, 0 for a nil dataset
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// PreparedRecord is a cleaned trip: canonical zone strings and a derived duration
type PreparedRecord struct {
	PickupTime   time.Time
	DropoffTime  time.Time
	PickupZone   string
	DropoffZone  string
	TripDistance float64
	Duration     float64 // minutes, within the cleaner's bounds
}

// PreparedDataset is the output of the cleaner and the input of the trainer
type PreparedDataset struct {
	Source  string
	Records []PreparedRecord
}

// Len returns the number of records, 0 for a nil dataset
func (d *PreparedDataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Durations returns the target column in record order
func (d *PreparedDataset) Durations() []float64 {
	out := make([]float64, d.Len())
	if d == nil {
		return out
	}
	for i, r := range d.Records {
		out[i] = r.Duration
	}
	return out
}
