package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Level = INFO

	logger := New(config)
	compLogger := logger.WithComponent(ComponentApp)

	compLogger.Debug("This should not appear")
	compLogger.Info("This should appear")
	compLogger.Warn("This should appear")
	compLogger.Error("This should appear")

	output := buf.String()
	if strings.Contains(output, "This should not appear") {
		t.Error("DEBUG message should be filtered out")
	}
	if strings.Count(output, "This should appear") != 3 {
		t.Error("INFO/WARN/ERROR messages should appear")
	}
}

func TestLogger_Components(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf

	logger := New(config)
	logger.WithComponent(ComponentApp).Info("App message")
	logger.WithComponent(ComponentCapture).Info("Capture message")

	output := buf.String()
	if !strings.Contains(output, "App message") {
		t.Error("App message should appear")
	}
	if strings.Contains(output, "Capture message") {
		t.Error("Capture component is disabled by default")
	}

	logger.EnableComponent(ComponentCapture)
	logger.WithComponent(ComponentCapture).Info("Capture enabled")
	if !strings.Contains(buf.String(), "[capture] Capture enabled") {
		t.Error("Capture message should appear once enabled")
	}
}

func TestLogger_EnableAll(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf

	logger := New(config)
	logger.EnableAll()
	for _, c := range Components {
		if !logger.Enabled(INFO, c) {
			t.Errorf("Component %s should be enabled", c)
		}
	}
}

func TestLogger_Formats(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.Format = FormatJSON

	logger := New(config)
	compLogger := logger.WithComponent(ComponentApp)

	compLogger.Info("Test message", map[string]interface{}{
		"key":   "value",
		"error": errors.New("boom"),
	})

	output := buf.String()
	if !strings.Contains(output, `"level":"INFO"`) {
		t.Errorf("JSON format should contain level name, got %s", output)
	}
	if !strings.Contains(output, `"component":"app"`) {
		t.Error("JSON format should contain component field")
	}
	if !strings.Contains(output, `"message":"Test message"`) {
		t.Error("JSON format should contain message field")
	}
	if !strings.Contains(output, `"error":"boom"`) {
		t.Errorf("JSON format should render errors as strings, got %s", output)
	}
}

func TestLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf

	logger := New(config)
	compLogger := logger.WithComponent(ComponentApp)

	compLogger.Info("Test message", map[string]interface{}{
		"url":   "https://example.com",
		"count": 42,
	})

	output := buf.String()
	if !strings.Contains(output, "count=42 url=https://example.com") {
		t.Errorf("Fields should be included in sorted order, got %q", output)
	}
}

func TestComponentLogger_With(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf

	base := New(config).WithComponent(ComponentApp)
	run := base.With(map[string]interface{}{"run_id": "abc"})
	run.Info("first", map[string]interface{}{"attempt": 1})
	base.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "attempt=1 run_id=abc") {
		t.Errorf("Expected run fields on first line, got %q", lines[0])
	}
	if strings.Contains(lines[1], "run_id") {
		t.Errorf("With must not leak fields into the parent, got %q", lines[1])
	}
}

func TestLogger_Caller(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf
	config.ShowCaller = true

	logger := New(config)
	logger.WithComponent(ComponentApp).Info("Test message")

	if !strings.Contains(buf.String(), "(logger_test.go:") {
		t.Errorf("Caller information should be included in output, got %q", buf.String())
	}
}

func TestLogger_NilComponentLogger(t *testing.T) {
	var cl *ComponentLogger
	cl.Info("must not panic")
}

func TestDiscard(t *testing.T) {
	l := Discard()
	if l.Enabled(ERROR, ComponentApp) {
		t.Error("Discard logger should not be enabled at any level")
	}
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf

	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	SetGlobalLogger(New(config))
	WithComponent(ComponentApp).Info("Global logger test")

	if !strings.Contains(buf.String(), "Global logger test") {
		t.Error("Global logger should work")
	}
}

func TestLogger_Concurrency(t *testing.T) {
	var buf bytes.Buffer
	config := DefaultConfig()
	config.Output = &buf

	logger := New(config)
	compLogger := logger.WithComponent(ComponentApp)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			compLogger.Info("Concurrent message", map[string]interface{}{
				"goroutine": i,
			})
			done <- true
		}(i)
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 10 {
		t.Errorf("Expected 10 log lines, got %d", len(lines))
	}
}

func TestLogConfig_ToLoggerConfig(t *testing.T) {
	cfg := DefaultLogConfig()
	cfg.Level = "debug"
	cfg.Format = "json"
	cfg.Output = "null"

	lc, err := cfg.ToLoggerConfig()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if lc.Level != DEBUG {
		t.Errorf("Expected DEBUG, got %s", lc.Level)
	}
	if lc.Format != FormatJSON {
		t.Errorf("Expected JSON format, got %d", lc.Format)
	}
	if !lc.Components[ComponentApp] || lc.Components[ComponentRetry] {
		t.Errorf("Unexpected components: %v", lc.Components)
	}

	cfg.Level = "loud"
	if _, err := cfg.ToLoggerConfig(); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestLogConfig_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	cfg := DefaultLogConfig()
	cfg.Output = "file:" + path

	l, err := CreateLoggerFromConfig(cfg)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	l.WithComponent(ComponentApp).Info("to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("Expected message in log file, got %q", string(data))
	}
}

func TestLogConfig_ApplyEnv(t *testing.T) {
	t.Setenv(EnvLevel, "WARN")
	t.Setenv(EnvFormat, "color")
	t.Setenv(EnvTimestamp, "1")
	t.Setenv(EnvComponents, "retry, capture")

	cfg := EnvironmentConfig()
	if cfg.Level != "WARN" || cfg.Format != "color" || !cfg.Timestamp {
		t.Errorf("Environment not applied: %+v", cfg)
	}
	if !cfg.Components["retry"] || !cfg.Components["capture"] || cfg.Components["app"] {
		t.Errorf("Unexpected components: %v", cfg.Components)
	}

	t.Setenv(EnvComponents, "all")
	cfg = EnvironmentConfig()
	for _, c := range Components {
		if !cfg.Components[string(c)] {
			t.Errorf("Component %s should be enabled by 'all'", c)
		}
	}
}

func TestLogConfig_Validate(t *testing.T) {
	cfg := DefaultLogConfig()
	if err := cfg.ValidateConfig(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
	cfg.Output = "syslog"
	if err := cfg.ValidateConfig(); err == nil {
		t.Error("Expected error for unknown output")
	}
	cfg = DefaultLogConfig()
	cfg.Components["transcoder"] = true
	if err := cfg.ValidateConfig(); err == nil {
		t.Error("Expected error for unknown component")
	}
}

func TestLogger_LevelNames(t *testing.T) {
	expected := map[Level]string{
		TRACE: "TRACE",
		DEBUG: "DEBUG",
		INFO:  "INFO",
		WARN:  "WARN",
		ERROR: "ERROR",
	}

	for level, expectedName := range expected {
		if level.String() != expectedName {
			t.Errorf("Level %d should have name %s, got %s", level, expectedName, level.String())
		}
	}
}
