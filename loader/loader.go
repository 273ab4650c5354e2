// Package loader reads raw taxi trip records from parquet or CSV files.
package loader

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/logger"
	"github.com/teranos/tripline/sym"
	"github.com/teranos/tripline/trip"
)

// Source column names, shared by both formats
const (
	ColPickupTime  = "tpep_pickup_datetime"
	ColDropoffTime = "tpep_dropoff_datetime"
	ColDistance    = "trip_distance"
	ColPickupZone  = "PULocationID"
	ColDropoffZone = "DOLocationID"
)

// RequiredColumns lists the columns every source must provide
var RequiredColumns = []string{ColPickupTime, ColDropoffTime, ColDistance, ColPickupZone, ColDropoffZone}

// Supported source formats, selected by file extension
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
)

// Loader reads a Dataset from the first existing candidate path
type Loader struct {
	paths  []string
	logger *zap.SugaredLogger
}

// New creates a loader over candidate paths, tried in order
func New(paths []string, log *zap.SugaredLogger) *Loader {
	return &Loader{
		paths:  paths,
		logger: logger.OrNop(log),
	}
}

// Load resolves the source path and reads every record. No filtering happens here.
func (l *Loader) Load() (*trip.Dataset, error) {
	path, err := ResolvePath(l.paths)
	if err != nil {
		return nil, err
	}

	l.logger.Debugw("Loading trips", logger.FieldPath, path, logger.FieldSymbol, sym.Load)

	ds, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	l.logger.Infow("Trips loaded",
		logger.FieldPath, path,
		logger.FieldCount, ds.Len(),
		logger.FieldSymbol, sym.Load,
	)
	return ds, nil
}

// ResolvePath returns the first candidate that exists on disk
func ResolvePath(paths []string) (string, error) {
	if len(paths) == 0 {
		return "", errors.NewDataSourceError("no source path configured")
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", errors.WithHintf(
		errors.NewDataSourceError("source file not found: %s", paths[0]),
		"tried: %s", strings.Join(paths, ", "),
	)
}

// FormatOf returns the source format for a path, or an error for unknown extensions
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return FormatParquet, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", errors.WithHint(
			errors.NewDataSourceError("unsupported source format: %s", path),
			"use a .parquet or .csv file",
		)
	}
}

// LoadFile reads all records from a single parquet or CSV file
func LoadFile(path string) (*trip.Dataset, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	var records []trip.TripRecord
	switch format {
	case FormatParquet:
		records, err = readParquet(path)
	case FormatCSV:
		records, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}

	return &trip.Dataset{Source: path, Records: records}, nil
}

// missingColumnsError reports the required columns a source lacks
func missingColumnsError(path string, missing []string) error {
	return errors.WithHintf(
		errors.NewDataSourceError("%s: missing required columns %s", path, strings.Join(missing, ", ")),
		"required columns: %s", strings.Join(RequiredColumns, ", "),
	)
}
