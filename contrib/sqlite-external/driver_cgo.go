//go:build cgo_sqlite

package sqliteexternal

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql name mattn/go-sqlite3 registers.
	DriverName = "sqlite3"

	// DriverType identifies the CGO implementation.
	DriverType = "cgo"

	// DriverPackage is the import path of the underlying driver.
	DriverPackage = "github.com/mattn/go-sqlite3"

	// BusyTimeoutParam is the DSN query parameter that makes a locked
	// index wait instead of failing at once. mattn spells pragmas as
	// underscore-prefixed parameters.
	BusyTimeoutParam = "_busy_timeout=5000"
)
