package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	mu    sync.RWMutex
	sugar *zap.SugaredLogger
	once  sync.Once
)

// Init initializes the global sugared logger based on LOG_LEVEL and redirects
// the standard library logger to zap. It's safe to call multiple times.
func Init() *zap.SugaredLogger {
	once.Do(func() {
		level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
		var logger *zap.Logger
		var err error
		if level == "debug" {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			logger = zap.NewNop()
		}
		// chi's request logger writes through the stdlib logger.
		_ = zap.RedirectStdLog(logger)

		mu.Lock()
		if sugar == nil {
			sugar = logger.Sugar()
		}
		mu.Unlock()
	})

	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Sugar returns the process-wide logger, initializing it on first use.
func Sugar() *zap.SugaredLogger {
	mu.RLock()
	l := sugar
	mu.RUnlock()
	if l != nil {
		return l
	}
	return Init()
}

// Named returns a child logger tagged with the component name.
func Named(component string) *zap.SugaredLogger {
	return Sugar().Named(component)
}

// Replace swaps the global logger and returns a func restoring the previous one.
// Tests use it together with zaptest/observer.
func Replace(l *zap.SugaredLogger) func() {
	Init()

	mu.Lock()
	prev := sugar
	sugar = l
	mu.Unlock()

	return func() {
		mu.Lock()
		sugar = prev
		mu.Unlock()
	}
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Sugar().Sync()
}
