package log

import "sync"

var (
	providerMu     sync.RWMutex
	globalProvider LoggerProvider
)

// SetProvider replaces the process-wide provider used by GetLogger and
// GetLoggerWithName.
func SetProvider(p LoggerProvider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	globalProvider = p
}

// Provider returns the process-wide provider, creating a zerolog console
// provider at info level on first use.
func Provider() LoggerProvider {
	providerMu.RLock()
	p := globalProvider
	providerMu.RUnlock()
	if p != nil {
		return p
	}

	providerMu.Lock()
	defer providerMu.Unlock()
	if globalProvider == nil {
		globalProvider = NewZerologProvider(LevelInfo)
	}
	return globalProvider
}

// GetLogger returns the default logger of the process-wide provider.
func GetLogger() Logger {
	return Provider().GetLogger()
}

// GetLoggerWithName returns a named logger from the process-wide provider.
func GetLoggerWithName(name string) Logger {
	return Provider().GetLoggerWithName(name)
}
