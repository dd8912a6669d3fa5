package mock

import (
	"sync"

	"cosmossdk.io/log"
)

var _ log.Logger = (*MockLogger)(nil)

// MockLogger implements the Logger interface and records every entry.
// It is safe for concurrent use since transport callbacks may log from
// other goroutines.
type MockLogger struct {
	mu *sync.Mutex

	DebugLogs  []LogEntry
	InfoLogs   []LogEntry
	WarnLogs   []LogEntry
	ErrorLogs  []LogEntry
	WithRecord []interface{}
}

// LogEntry is a struct that contains the message and params passed to the logger
type LogEntry struct {
	Message string
	Params  []interface{}
}

// NewMockLogger returns a new MockLogger
func NewMockLogger() *MockLogger {
	return &MockLogger{mu: &sync.Mutex{}}
}

// Debug records a debug entry
func (l *MockLogger) Debug(msg string, params ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.DebugLogs = append(l.DebugLogs, LogEntry{Message: msg, Params: params})
}

// Info records an info entry
func (l *MockLogger) Info(msg string, params ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.InfoLogs = append(l.InfoLogs, LogEntry{Message: msg, Params: params})
}

// Warn records a warn entry
func (l *MockLogger) Warn(msg string, params ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.WarnLogs = append(l.WarnLogs, LogEntry{Message: msg, Params: params})
}

// Error records an error entry
func (l *MockLogger) Error(msg string, params ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ErrorLogs = append(l.ErrorLogs, LogEntry{Message: msg, Params: params})
}

// With records the params and returns the same logger
func (l *MockLogger) With(params ...interface{}) log.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.WithRecord = append(l.WithRecord, params...)
	return l
}

// Impl returns the logger itself
func (l *MockLogger) Impl() interface{} {
	return l
}

// Messages returns the messages logged at info level, in order.
func (l *MockLogger) Messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := make([]string, len(l.InfoLogs))
	for i, entry := range l.InfoLogs {
		msgs[i] = entry.Message
	}
	return msgs
}
