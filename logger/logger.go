package logger

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/decred/slog"
)

type logger struct {
	mtx               sync.RWMutex
	subsystemSLoggers map[string]slog.Logger
}

var instance *logger
var initCtx sync.Once

// New registers the subsystem loggers. Only the first call has any effect.
func New(sLoggers map[string]slog.Logger) *logger {
	initCtx.Do(func() {
		instance = &logger{
			subsystemSLoggers: sLoggers,
		}
	})

	return instance
}

// setLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func (l *logger) setLogLevel(subsystemID string, logLevel string) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()

	// Ignore invalid subsystems.
	subsystem, ok := l.subsystemSLoggers[subsystemID]
	if !ok {
		return
	}

	// Defaults to info if the log level is invalid.
	level, _ := slog.LevelFromString(logLevel)
	subsystem.SetLevel(level)
}

// SetLogLevels sets the log level for all subsystem loggers to the passed
// level.
func SetLogLevels(logLevel string) error {
	if instance == nil {
		return errors.New("cannot set log level on nil logger")
	}

	for _, subsystemID := range SupportedSubsystems() {
		instance.setLogLevel(subsystemID, logLevel)
	}
	return nil
}

// SetLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func SetLogLevel(subsystemID string, logLevel string) {
	if instance == nil {
		return
	}
	instance.setLogLevel(subsystemID, logLevel)
}

// ParseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.  The accepted forms are a single level applied to every subsystem
// or a comma separated list of SUBSYS=level pairs.
func ParseAndSetDebugLevels(debugLevel string) error {
	if instance == nil {
		return errors.New("cannot set log level on nil logger")
	}

	// When the specified string doesn't have any delimiters, treat it as
	// the log level for all subsystems.
	if !strings.Contains(debugLevel, ",") && !strings.Contains(debugLevel, "=") {
		if !validLogLevel(debugLevel) {
			return errors.New("the specified debug level [" + debugLevel + "] is invalid")
		}
		return SetLogLevels(debugLevel)
	}

	// Split the specified string into subsystem/level pairs while detecting
	// issues and update the log levels accordingly.
	for _, logLevelPair := range strings.Split(debugLevel, ",") {
		if !strings.Contains(logLevelPair, "=") {
			return errors.New("the specified debug level contains an invalid subsystem/level pair [" + logLevelPair + "]")
		}

		fields := strings.Split(logLevelPair, "=")
		subsysID, logLevel := fields[0], fields[1]

		if !IsSubsystem(subsysID) {
			return errors.New("the specified subsystem [" + subsysID + "] is invalid -- supported subsystems " +
				strings.Join(SupportedSubsystems(), ", "))
		}

		if !validLogLevel(logLevel) {
			return errors.New("the specified debug level [" + logLevel + "] is invalid")
		}

		SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// IsSubsystem reports whether subsysID names a registered logger.
func IsSubsystem(subsysID string) bool {
	if instance == nil {
		return false
	}
	instance.mtx.RLock()
	defer instance.mtx.RUnlock()
	_, ok := instance.subsystemSLoggers[subsysID]
	return ok
}

// SupportedSubsystems returns a sorted slice of the supported subsystems for
// logging purposes.
func SupportedSubsystems() []string {
	if instance == nil {
		return nil
	}

	instance.mtx.RLock()
	defer instance.mtx.RUnlock()

	subsystems := make([]string, 0, len(instance.subsystemSLoggers))
	for subsysID := range instance.subsystemSLoggers {
		subsystems = append(subsystems, subsysID)
	}

	sort.Strings(subsystems)
	return subsystems
}

func validLogLevel(logLevel string) bool {
	_, ok := slog.LevelFromString(logLevel)
	return ok
}
