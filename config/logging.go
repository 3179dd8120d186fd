package config

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LogWriter is the writer used for application and database logs.
var LogWriter io.Writer = os.Stdout

const (
	appLogName     = "signature-api.log"
	errorLogName   = "signature_form_errors.log"
	successLogName = "signature_form_success.log"
)

// LogFilePath returns the path to the backend log file.
func LogFilePath(dir string) string {
	return filepath.Join(dir, appLogName)
}

// InitLogging prepares the log file and configures the standard logger output.
func InitLogging(dir string) (*os.File, io.Writer) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		log.Printf("Warning: Failed to create logs directory: %v", err)
	}

	logFile, err := os.OpenFile(LogFilePath(dir), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("Warning: Failed to open log file: %v", err)
		LogWriter = os.Stdout
		log.SetOutput(LogWriter)
		return nil, LogWriter
	}

	LogWriter = io.MultiWriter(os.Stdout, logFile)
	log.SetOutput(LogWriter)
	return logFile, LogWriter
}

// EventLogs appends submission outcomes to the error and success log files.
// A nil *EventLogs, or one built with enabled=false, drops every entry.
type EventLogs struct {
	mu      sync.Mutex
	enabled bool
	errors  io.Writer
	success io.Writer
	files   []*os.File
	now     func() time.Time
}

// OpenEventLogs opens the two event log files under dir. A file that cannot
// be opened falls back to LogWriter.
func OpenEventLogs(dir string, enabled bool) *EventLogs {
	logs := &EventLogs{enabled: enabled, errors: LogWriter, success: LogWriter, now: time.Now}
	if !enabled {
		return logs
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		log.Printf("Warning: Failed to create logs directory: %v", err)
		return logs
	}
	if f, err := os.OpenFile(filepath.Join(dir, errorLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		logs.errors = f
		logs.files = append(logs.files, f)
	} else {
		log.Printf("Warning: Failed to open %s: %v", errorLogName, err)
	}
	if f, err := os.OpenFile(filepath.Join(dir, successLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
		logs.success = f
		logs.files = append(logs.files, f)
	} else {
		log.Printf("Warning: Failed to open %s: %v", successLogName, err)
	}
	return logs
}

// NewEventLogs builds EventLogs over arbitrary writers.
func NewEventLogs(errors, success io.Writer) *EventLogs {
	return &EventLogs{enabled: true, errors: errors, success: success, now: time.Now}
}

// EventLogPath maps "errors" or "success" to its file under dir.
func EventLogPath(dir, kind string) (string, bool) {
	switch kind {
	case "errors":
		return filepath.Join(dir, errorLogName), true
	case "success":
		return filepath.Join(dir, successLogName), true
	}
	return "", false
}

// Error records a failure with optional context.
func (l *EventLogs) Error(message string, context map[string]any) {
	if l == nil || !l.enabled {
		return
	}
	l.write(l.errors, message, context)
}

// Success records a completed submission.
func (l *EventLogs) Success(message string) {
	if l == nil || !l.enabled {
		return
	}
	l.write(l.success, message, nil)
}

// Close closes the underlying files.
func (l *EventLogs) Close() {
	if l == nil {
		return
	}
	for _, f := range l.files {
		_ = f.Close()
	}
}

func (l *EventLogs) write(w io.Writer, message string, context map[string]any) {
	entry := l.now().Format("2006-01-02 15:04:05") + " - " + message
	if len(context) > 0 {
		if encoded, err := json.Marshal(context); err == nil {
			entry += " - Context: " + string(encoded)
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	// Logging is best-effort; a failed write is dropped.
	_, _ = io.WriteString(w, entry+"\n")
}
