package loader

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/trip"
)

// Timestamp layouts accepted in CSV sources, tried in order
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf("unrecognized timestamp %q", s)
}

func readCSV(path string) ([]trip.TripRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapDataSource(err, "open csv source")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, errors.WithHint(
			errors.NewDataSourceError("%s: empty file", path),
			"the first line must be a header row",
		)
	}
	if err != nil {
		return nil, errors.WrapDataSource(err, "read csv header")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, missingColumnsError(path, missing)
	}

	var records []trip.TripRecord
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.WrapDataSource(err, "read csv row")
		}

		rec, err := parseCSVRow(row, index)
		if err != nil {
			return nil, errors.WrapDataSource(err, path+" line "+strconv.Itoa(line))
		}
		records = append(records, rec)
	}

	return records, nil
}

func parseCSVRow(row []string, index map[string]int) (trip.TripRecord, error) {
	pickup, err := parseTimestamp(row[index[ColPickupTime]])
	if err != nil {
		return trip.TripRecord{}, errors.Wrap(err, ColPickupTime)
	}
	dropoff, err := parseTimestamp(row[index[ColDropoffTime]])
	if err != nil {
		return trip.TripRecord{}, errors.Wrap(err, ColDropoffTime)
	}
	distance, err := strconv.ParseFloat(strings.TrimSpace(row[index[ColDistance]]), 64)
	if err != nil {
		return trip.TripRecord{}, errors.Wrap(err, ColDistance)
	}

	return trip.TripRecord{
		PickupTime:   pickup,
		DropoffTime:  dropoff,
		PickupZone:   trip.ZoneID(row[index[ColPickupZone]]),
		DropoffZone:  trip.ZoneID(row[index[ColDropoffZone]]),
		TripDistance: distance,
	}, nil
}
