package logging

import (
	"strings"
	"sync"
)

// defaultCaptureLines is how many recent lines each capture keeps.
const defaultCaptureLines = 50

// LogCaptureWriter is a thread-safe writer that keeps the most recent lines.
type LogCaptureWriter struct {
	mu    sync.RWMutex
	lines []string
	limit int
}

// NewLogCaptureWriter creates a capture that keeps at most limit lines.
func NewLogCaptureWriter(limit int) *LogCaptureWriter {
	if limit <= 0 {
		limit = defaultCaptureLines
	}
	return &LogCaptureWriter{limit: limit}
}

// GlobalLogCapture holds recent warnings and errors of the server log.
var GlobalLogCapture = NewLogCaptureWriter(defaultCaptureLines)

// GlobalEventCapture holds recent session events.
var GlobalEventCapture = NewLogCaptureWriter(defaultCaptureLines)

// Write implements io.Writer. Each call is stored as one line.
func (w *LogCaptureWriter) Write(p []byte) (n int, err error) {
	line := strings.TrimRight(string(p), "\r\n")
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, line)
	if len(w.lines) > w.limit {
		w.lines = w.lines[len(w.lines)-w.limit:]
	}
	return len(p), nil
}

// GetLastLine returns the most recent line.
func (w *LogCaptureWriter) GetLastLine() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.lines) == 0 {
		return ""
	}
	return w.lines[len(w.lines)-1]
}

// Lines returns a copy of the captured lines, oldest first.
func (w *LogCaptureWriter) Lines() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.lines...)
}
