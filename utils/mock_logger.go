package utils

import (
	"fmt"
	"sync"
)

// LogMessage is one record captured by MockLogger.
type LogMessage struct {
	Level   string
	Message string
	Args    []any
}

// MockLogger records messages for assertions in tests.
type MockLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	level    LogLevel
}

func NewMockLogger() *MockLogger {
	return &MockLogger{level: LogLevelDebug}
}

func (m *MockLogger) record(level LogLevel, msg string, args []any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.level >= level {
		m.messages = append(m.messages, LogMessage{Level: level.String(), Message: msg, Args: args})
	}
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.record(LogLevelDebug, msg, keysAndValues)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.record(LogLevelInfo, msg, keysAndValues)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.record(LogLevelWarn, msg, keysAndValues)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.record(LogLevelError, msg, keysAndValues)
}

func (m *MockLogger) SetLevel(level LogLevel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.level = level
}

func (m *MockLogger) Messages() []LogMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]LogMessage(nil), m.messages...)
}

// HasMessage reports whether a message was recorded at the named level
// ("DEBUG", "INFO", "WARN", "ERROR").
func (m *MockLogger) HasMessage(level, text string) bool {
	for _, msg := range m.Messages() {
		if msg.Level == level && msg.Message == text {
			return true
		}
	}
	return false
}

func (m *MockLogger) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

func (m *MockLogger) String() string {
	var out string
	for _, msg := range m.Messages() {
		out += fmt.Sprintf("[%s] %s %v\n", msg.Level, msg.Message, msg.Args)
	}
	return out
}
