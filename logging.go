package wasapi

import (
	"sync"

	"github.com/rs/zerolog"
)

var (
	logMu      sync.RWMutex
	baseLogger = zerolog.Nop()
)

// SetLogger sets the logger used by the package. Lifecycle transitions are logged at debug
// level and every buffer operation at trace level. The default logger discards everything.
// Objects pick up the logger when they are created.
func SetLogger(l zerolog.Logger) {
	logMu.Lock()
	baseLogger = l
	logMu.Unlock()
}

// componentLogger returns a child of the package logger tagged with component.
func componentLogger(component string) zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()

	return baseLogger.With().Str("component", component).Logger()
}
