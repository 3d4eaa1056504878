//go:build !cgo_sqlite

package sqlite

import (
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"

	// modernc applies pragmas listed in the DSN to every new connection.
	busyTimeoutParam = "_pragma=busy_timeout(5000)"
)
