package db

import (
	"strings"

	"github.com/teranos/tripline/errors"
)

// ErrDatabaseClosed is returned when the tracking store is used after Close
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed reports whether err means the connection was already closed.
// database/sql returns its own unexported error for this, so the driver message
// is matched as a fallback.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}
