package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the logging level
type Level int

const (
	TRACE Level = iota
	DEBUG
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	TRACE: "TRACE",
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// MarshalJSON writes the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// Component represents the logging component
type Component string

const (
	ComponentApp      Component = "app"
	ComponentResolver Component = "resolver"
	ComponentPage     Component = "page"
	ComponentCapture  Component = "capture"
	ComponentRetry    Component = "retry"
	ComponentClient   Component = "client"
)

// Components lists every component known to the engine.
var Components = []Component{
	ComponentApp,
	ComponentResolver,
	ComponentPage,
	ComponentCapture,
	ComponentRetry,
	ComponentClient,
}

// Format represents the log output format
type Format int

const (
	FormatText Format = iota
	FormatJSON
	FormatColor
)

// Config holds logger configuration
type Config struct {
	Level      Level
	Format     Format
	Output     io.Writer
	Components map[Component]bool
	ShowCaller bool
	Timestamp  bool
}

// DefaultConfig returns default logger configuration. Only the app component
// is enabled; engine internals stay quiet unless asked for.
func DefaultConfig() *Config {
	components := make(map[Component]bool, len(Components))
	for _, c := range Components {
		components[c] = c == ComponentApp
	}
	return &Config{
		Level:      INFO,
		Format:     FormatText,
		Output:     os.Stderr,
		Components: components,
		ShowCaller: false,
		Timestamp:  false,
	}
}

// Entry represents a single log entry
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     Level                  `json:"level"`
	Component Component              `json:"component"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

// Logger provides structured logging functionality
type Logger struct {
	config *Config
	mu     sync.RWMutex
	// wmu serialises writes to the output.
	wmu sync.Mutex
}

// New creates a new logger instance
func New(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Components == nil {
		config.Components = make(map[Component]bool)
	}
	if config.Output == nil {
		config.Output = os.Stderr
	}
	return &Logger{
		config: config,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(&Config{Level: ERROR + 1, Output: io.Discard})
}

// WithComponent creates a new logger instance for a specific component
func (l *Logger) WithComponent(component Component) *ComponentLogger {
	return &ComponentLogger{
		logger:    l,
		component: component,
	}
}

// SetLevel changes the logging level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Level = level
}

// SetFormat changes the log format
func (l *Logger) SetFormat(format Format) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Format = format
}

// SetOutput changes the log output
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Output = w
}

// EnableComponent enables logging for a specific component
func (l *Logger) EnableComponent(component Component) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Components[component] = true
}

// EnableAll enables every known component.
func (l *Logger) EnableAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range Components {
		l.config.Components[c] = true
	}
}

// DisableComponent disables logging for a specific component
func (l *Logger) DisableComponent(component Component) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Components[component] = false
}

// Enabled reports whether a message at level for component would be written.
func (l *Logger) Enabled(level Level, component Component) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.config.Level && l.config.Components[component]
}

// log writes a log entry
func (l *Logger) log(level Level, component Component, message string, fields map[string]interface{}, skip int) {
	if !l.Enabled(level, component) {
		return
	}

	l.mu.RLock()
	cfg := *l.config
	l.mu.RUnlock()

	entry := Entry{
		Timestamp: time.Now(),
		Level:     level,
		Component: component,
		Message:   message,
		Fields:    fields,
	}

	if cfg.ShowCaller {
		if _, file, line, ok := runtime.Caller(skip); ok {
			entry.Caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}

	var output string
	switch cfg.Format {
	case FormatJSON:
		output = formatJSON(entry)
	case FormatColor:
		output = formatColor(entry, cfg.Timestamp)
	default:
		output = formatText(entry, cfg.Timestamp)
	}

	l.wmu.Lock()
	fmt.Fprintln(cfg.Output, output)
	l.wmu.Unlock()
}

// sortedKeys keeps field order stable between runs.
func sortedKeys(fields map[string]interface{}) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatText formats entry as plain text
func formatText(entry Entry, timestamp bool) string {
	var parts []string

	if timestamp {
		parts = append(parts, entry.Timestamp.Format("2006-01-02 15:04:05"))
	}

	parts = append(parts, fmt.Sprintf("[%s]", entry.Level))
	parts = append(parts, fmt.Sprintf("[%s]", entry.Component))
	parts = append(parts, entry.Message)

	if entry.Caller != "" {
		parts = append(parts, fmt.Sprintf("(%s)", entry.Caller))
	}

	if len(entry.Fields) > 0 {
		var fieldParts []string
		for _, k := range sortedKeys(entry.Fields) {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%v", k, entry.Fields[k]))
		}
		parts = append(parts, strings.Join(fieldParts, " "))
	}

	return strings.Join(parts, " ")
}

// formatJSON formats entry as JSON
func formatJSON(entry Entry) string {
	for k, v := range entry.Fields {
		// error values marshal to {} otherwise
		if err, ok := v.(error); ok {
			entry.Fields[k] = err.Error()
		}
	}
	data, _ := json.Marshal(entry)
	return string(data)
}

// formatColor formats entry with colors
func formatColor(entry Entry, timestamp bool) string {
	var parts []string

	if timestamp {
		parts = append(parts, "\033[90m"+entry.Timestamp.Format("2006-01-02 15:04:05")+"\033[0m")
	}

	parts = append(parts, fmt.Sprintf("%s[%s]\033[0m", levelColor(entry.Level), entry.Level))
	parts = append(parts, fmt.Sprintf("\033[36m[%s]\033[0m", entry.Component))
	parts = append(parts, entry.Message)

	if entry.Caller != "" {
		parts = append(parts, fmt.Sprintf("\033[90m(%s)\033[0m", entry.Caller))
	}

	if len(entry.Fields) > 0 {
		var fieldParts []string
		for _, k := range sortedKeys(entry.Fields) {
			fieldParts = append(fieldParts, fmt.Sprintf("\033[33m%s\033[0m=\033[32m%v\033[0m", k, entry.Fields[k]))
		}
		parts = append(parts, strings.Join(fieldParts, " "))
	}

	return strings.Join(parts, " ")
}

func levelColor(level Level) string {
	switch level {
	case TRACE:
		return "\033[37m"
	case DEBUG:
		return "\033[94m"
	case INFO:
		return "\033[92m"
	case WARN:
		return "\033[93m"
	case ERROR:
		return "\033[91m"
	default:
		return "\033[0m"
	}
}

// ComponentLogger provides component-specific logging
type ComponentLogger struct {
	logger    *Logger
	component Component
	fields    map[string]interface{}
}

// With returns a copy that adds fields to every entry.
func (cl *ComponentLogger) With(fields map[string]interface{}) *ComponentLogger {
	merged := make(map[string]interface{}, len(cl.fields)+len(fields))
	for k, v := range cl.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &ComponentLogger{logger: cl.logger, component: cl.component, fields: merged}
}

// Trace logs a trace message
func (cl *ComponentLogger) Trace(message string, fields ...map[string]interface{}) {
	cl.log(TRACE, message, fields...)
}

// Debug logs a debug message
func (cl *ComponentLogger) Debug(message string, fields ...map[string]interface{}) {
	cl.log(DEBUG, message, fields...)
}

// Info logs an info message
func (cl *ComponentLogger) Info(message string, fields ...map[string]interface{}) {
	cl.log(INFO, message, fields...)
}

// Warn logs a warning message
func (cl *ComponentLogger) Warn(message string, fields ...map[string]interface{}) {
	cl.log(WARN, message, fields...)
}

// Error logs an error message
func (cl *ComponentLogger) Error(message string, fields ...map[string]interface{}) {
	cl.log(ERROR, message, fields...)
}

func (cl *ComponentLogger) log(level Level, message string, fields ...map[string]interface{}) {
	if cl == nil || cl.logger == nil {
		return
	}
	var merged map[string]interface{}
	if len(cl.fields) > 0 || len(fields) > 0 {
		merged = make(map[string]interface{}, len(cl.fields))
		for k, v := range cl.fields {
			merged[k] = v
		}
		for _, f := range fields {
			for k, v := range f {
				merged[k] = v
			}
		}
	}
	// Logger.log <- ComponentLogger.log <- Info/Debug/... <- caller
	cl.logger.log(level, cl.component, message, merged, 3)
}

var (
	globalMu     sync.RWMutex
	globalLogger = New(DefaultConfig())
)

// SetGlobalLogger sets the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// WithComponent returns a component logger from global logger
func WithComponent(component Component) *ComponentLogger {
	return GetGlobalLogger().WithComponent(component)
}
