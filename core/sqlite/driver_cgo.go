//go:build cgo_sqlite

package sqlite

import (
	sqliteexternal "github.com/FocuswithJustin/Quill/contrib/sqlite-external"
)

const (
	driverName       = sqliteexternal.DriverName
	driverType       = sqliteexternal.DriverType
	driverPackage    = sqliteexternal.DriverPackage + " (via contrib/sqlite-external)"
	busyTimeoutParam = sqliteexternal.BusyTimeoutParam
)
