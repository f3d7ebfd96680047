package logger

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

const defaultBufferSize = 500

// LogEntry は直近ログの1件分
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Caller    string    `json:"caller,omitempty"`
}

// LogBuffer keeps the most recent entries in a fixed-size ring.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

var logBuffer = NewLogBuffer(defaultBufferSize)

// NewLogBuffer creates a ring buffer holding at most size entries.
func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &LogBuffer{entries: make([]LogEntry, size)}
}

// GetLogBuffer returns the process-wide buffer fed by Init'ed loggers.
func GetLogBuffer() *LogBuffer {
	return logBuffer
}

func captureEntry(e zapcore.Entry) error {
	caller := ""
	if e.Caller.Defined {
		caller = e.Caller.TrimmedPath()
	}
	logBuffer.Add(LogEntry{
		Timestamp: e.Time,
		Level:     e.Level.CapitalString(),
		Message:   e.Message,
		Caller:    caller,
	})
	return nil
}

// Add appends an entry, overwriting the oldest one when the buffer is full.
func (b *LogBuffer) Add(entry LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[b.next] = entry
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// GetRecent returns up to limit entries, oldest first.
func (b *LogBuffer) GetRecent(limit int) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	size := b.next
	start := 0
	if b.full {
		size = len(b.entries)
		start = b.next
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	result := make([]LogEntry, 0, limit)
	for i := size - limit; i < size; i++ {
		result = append(result, b.entries[(start+i)%len(b.entries)])
	}
	return result
}

// ToText renders entries one per line.
func (b *LogBuffer) ToText(limit int) string {
	var sb strings.Builder
	for _, e := range b.GetRecent(limit) {
		fmt.Fprintf(&sb, "%s [%s] %s\n", e.Timestamp.Format(time.RFC3339), e.Level, e.Message)
	}
	return sb.String()
}
