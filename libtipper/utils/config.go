package utils

import (
	"os"
	"time"
)

const (
	LogFileName = "tipper.log"

	// DefaultLogLevel is used when neither the command line nor the stored
	// config overrides it.
	DefaultLogLevel = "info"

	// UserFilePerm is the permission applied to every file and directory the
	// application creates under its data directory.
	UserFilePerm = os.FileMode(0700)

	// FormDBName is the storm database holding wizard state, history and
	// app settings when the bdb driver is selected.
	FormDBName = "tipper.db"

	// BadgerDirName is the directory the badger driver writes into.
	BadgerDirName = "formdata"

	// BDBDriver and BadgerDriver are the supported form store drivers.
	BDBDriver    = "bdb"
	BadgerDriver = "badger"

	// BlockLength is the expected time between blocks on the relay chains.
	BlockLength = 6 * time.Second

	// DBLockTimeout bounds the wait for another process holding the
	// database lock.
	DBLockTimeout = time.Second

	// RateRefreshInterval is how often the currency rate is re-polled.
	RateRefreshInterval = 60 * time.Second

	fullDateformat = "2006-01-02 15:04:05"
)

// FormatUTCTime returns the UTC time in a human readable form.
func FormatUTCTime(t time.Time) string {
	return t.UTC().Format(fullDateformat)
}
