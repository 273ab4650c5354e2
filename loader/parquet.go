package loader

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/trip"
)

// parquetBatchSize is the number of rows decoded per Read call
const parquetBatchSize = 4096

// parquetTrip is the projection of the TLC yellow taxi schema the pipeline uses
type parquetTrip struct {
	PickupTime   time.Time `parquet:"tpep_pickup_datetime"`
	DropoffTime  time.Time `parquet:"tpep_dropoff_datetime"`
	TripDistance float64   `parquet:"trip_distance"`
	PULocationID int64     `parquet:"PULocationID"`
	DOLocationID int64     `parquet:"DOLocationID"`
}

func (p parquetTrip) record() trip.TripRecord {
	return trip.TripRecord{
		PickupTime:   p.PickupTime,
		DropoffTime:  p.DropoffTime,
		PickupZone:   trip.ZoneID(strconv.FormatInt(p.PULocationID, 10)),
		DropoffZone:  trip.ZoneID(strconv.FormatInt(p.DOLocationID, 10)),
		TripDistance: p.TripDistance,
	}
}

func readParquet(path string) ([]trip.TripRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapDataSource(err, "open parquet source")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.WrapDataSource(err, "stat parquet source")
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, errors.WithHint(
			errors.WrapDataSource(err, "read parquet footer"),
			"the file may be truncated or not a parquet file",
		)
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := pf.Schema().Lookup(col); !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, missingColumnsError(path, missing)
	}

	reader := parquet.NewGenericReader[parquetTrip](f)
	defer reader.Close()

	records := make([]trip.TripRecord, 0, pf.NumRows())
	batch := make([]parquetTrip, parquetBatchSize)
	for {
		n, err := reader.Read(batch)
		for _, row := range batch[:n] {
			records = append(records, row.record())
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapDataSource(err, "read parquet rows")
		}
	}

	return records, nil
}
