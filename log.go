// Copyright (c) 2016, 2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crypto-power/tipwizard/libtipper"
	"github.com/crypto-power/tipwizard/libtipper/devchain"
	"github.com/crypto-power/tipwizard/libtipper/ext"
	"github.com/crypto-power/tipwizard/libtipper/formstore"
	"github.com/crypto-power/tipwizard/libtipper/history"
	"github.com/crypto-power/tipwizard/libtipper/identity"
	"github.com/crypto-power/tipwizard/libtipper/referenda"
	"github.com/crypto-power/tipwizard/libtipper/txprocess"
	libutils "github.com/crypto-power/tipwizard/libtipper/utils"
	"github.com/crypto-power/tipwizard/logger"
	"github.com/crypto-power/tipwizard/ui/api"
	"github.com/crypto-power/tipwizard/ui/notification"
	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

// Write writes the data in p to standard out and the log rotator.
func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator == nil {
		return len(p), nil
	}
	return logRotator.Write(p)
}

// Loggers per subsystem.  A single backend logger is created and all subsytem
// loggers created from it will write to the backend.  When adding new
// subsystems, add the subsystem logger variable here and to the
// subsystemLoggers map.
//
// Loggers can not be used before the log rotator has been initialized with a
// log file.  This must be performed early during application startup by calling
// initLogRotator.
var (
	// backendLog is the logging backend used to create all subsystem loggers.
	backendLog = slog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	log      = backendLog.Logger("TIPW")
	tiprLog  = backendLog.Logger("TIPR")
	extLog   = backendLog.Logger("EXT")
	fstrLog  = backendLog.Logger("FSTR")
	histLog  = backendLog.Logger("HIST")
	txprLog  = backendLog.Logger("TXPR")
	refdLog  = backendLog.Logger("REFD")
	idntLog  = backendLog.Logger("IDNT")
	devcLog  = backendLog.Logger("DEVC")
	apiLog   = backendLog.Logger("API")
	notifLog = backendLog.Logger("UI")
)

// Initialize package-global logger variables.
func init() {
	libtipper.UseLogger(tiprLog)
	ext.UseLogger(extLog)
	formstore.UseLogger(fstrLog)
	history.UseLogger(histLog)
	txprocess.UseLogger(txprLog)
	referenda.UseLogger(refdLog)
	identity.UseLogger(idntLog)
	devchain.UseLogger(devcLog)
	api.UseLogger(apiLog)
	notification.UseLogger(notifLog)

	logger.New(subsystemLoggers)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]slog.Logger{
	"TIPW": log,
	"TIPR": tiprLog,
	"EXT":  extLog,
	"FSTR": fstrLog,
	"HIST": histLog,
	"TXPR": txprLog,
	"REFD": refdLog,
	"IDNT": idntLog,
	"DEVC": devcLog,
	"API":  apiLog,
	"UI":   notifLog,
}

// initLogRotator initializes the logging rotater to write logs to logFile and
// create roll files in the same directory.  It must be called before the
// package-global log rotater variables are used.
func initLogRotator(logDir string, maxRolls int) {
	if logRotator != nil {
		logRotator.Close()
	}

	err := os.MkdirAll(logDir, libutils.UserFilePerm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory: %v\n", err)
		os.Exit(1)
	}

	r, err := rotator.New(filepath.Join(logDir, libutils.LogFileName), 32*1024, false, maxRolls)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}
	logRotator = r
}
