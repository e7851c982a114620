package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by EnvironmentConfig.
const (
	EnvLevel      = "LINKEDIN_DL_LOG_LEVEL"
	EnvFormat     = "LINKEDIN_DL_LOG_FORMAT"
	EnvOutput     = "LINKEDIN_DL_LOG_OUTPUT"
	EnvCaller     = "LINKEDIN_DL_LOG_CALLER"
	EnvTimestamp  = "LINKEDIN_DL_LOG_TIMESTAMP"
	EnvComponents = "LINKEDIN_DL_LOG_COMPONENTS"
)

// LogConfig is the serialisable form of Config, as found in config files
// and the environment.
type LogConfig struct {
	Level      string          `json:"level" yaml:"level"`
	Format     string          `json:"format" yaml:"format"`
	Output     string          `json:"output" yaml:"output"`
	Components map[string]bool `json:"components" yaml:"components"`
	ShowCaller bool            `json:"show_caller" yaml:"show_caller"`
	Timestamp  bool            `json:"timestamp" yaml:"timestamp"`
}

// DefaultLogConfig returns default logging configuration
func DefaultLogConfig() *LogConfig {
	components := make(map[string]bool, len(Components))
	for _, c := range Components {
		components[string(c)] = c == ComponentApp
	}
	return &LogConfig{
		Level:      "INFO",
		Format:     "text",
		Output:     "stderr",
		Components: components,
	}
}

// LoadConfigFromFile loads configuration from a JSON file
func LoadConfigFromFile(filename string) (*LogConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultLogConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}

// ToLoggerConfig converts LogConfig to logger.Config
func (c *LogConfig) ToLoggerConfig() (*Config, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("parse level: %w", err)
	}

	format, err := parseFormat(c.Format)
	if err != nil {
		return nil, fmt.Errorf("parse format: %w", err)
	}

	output, err := parseOutput(c.Output)
	if err != nil {
		return nil, fmt.Errorf("parse output: %w", err)
	}

	components := make(map[Component]bool)
	for name, enabled := range c.Components {
		components[Component(name)] = enabled
	}

	return &Config{
		Level:      level,
		Format:     format,
		Output:     output,
		Components: components,
		ShowCaller: c.ShowCaller,
		Timestamp:  c.Timestamp,
	}, nil
}

func parseLevel(levelStr string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return TRACE, nil
	case "DEBUG":
		return DEBUG, nil
	case "", "INFO":
		return INFO, nil
	case "WARN", "WARNING":
		return WARN, nil
	case "ERROR":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown level: %s", levelStr)
	}
}

func parseFormat(formatStr string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(formatStr)) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "color", "colored":
		return FormatColor, nil
	default:
		return FormatText, fmt.Errorf("unknown format: %s", formatStr)
	}
}

// parseOutput accepts stdout, stderr, null/none, or file:<path>.
func parseOutput(outputStr string) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(outputStr)) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "null", "none":
		return io.Discard, nil
	}
	if strings.HasPrefix(outputStr, "file:") {
		filePath := strings.TrimPrefix(outputStr, "file:")
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		return file, nil
	}
	return nil, fmt.Errorf("unknown output: %s", outputStr)
}

// CreateLoggerFromConfig creates a logger from LogConfig
func CreateLoggerFromConfig(config *LogConfig) (*Logger, error) {
	loggerConfig, err := config.ToLoggerConfig()
	if err != nil {
		return nil, fmt.Errorf("convert config: %w", err)
	}

	return New(loggerConfig), nil
}

// ApplyEnv overrides fields from LINKEDIN_DL_LOG_* environment variables.
func (c *LogConfig) ApplyEnv() {
	if level := os.Getenv(EnvLevel); level != "" {
		c.Level = level
	}
	if format := os.Getenv(EnvFormat); format != "" {
		c.Format = format
	}
	if output := os.Getenv(EnvOutput); output != "" {
		c.Output = output
	}
	if caller := os.Getenv(EnvCaller); caller != "" {
		c.ShowCaller = caller == "true" || caller == "1"
	}
	if timestamp := os.Getenv(EnvTimestamp); timestamp != "" {
		c.Timestamp = timestamp == "true" || timestamp == "1"
	}
	if components := os.Getenv(EnvComponents); components != "" {
		c.Components = make(map[string]bool)
		for _, comp := range strings.Split(components, ",") {
			comp = strings.TrimSpace(comp)
			if comp == "all" {
				for _, known := range Components {
					c.Components[string(known)] = true
				}
				continue
			}
			if comp != "" {
				c.Components[comp] = true
			}
		}
	}
}

// EnvironmentConfig returns the defaults overridden by the environment.
func EnvironmentConfig() *LogConfig {
	config := DefaultLogConfig()
	config.ApplyEnv()
	return config
}

// ValidateConfig validates the configuration without opening outputs.
func (c *LogConfig) ValidateConfig() error {
	if _, err := parseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	if _, err := parseFormat(c.Format); err != nil {
		return fmt.Errorf("invalid format: %w", err)
	}
	out := strings.ToLower(strings.TrimSpace(c.Output))
	switch out {
	case "", "stdout", "stderr", "null", "none":
	default:
		if !strings.HasPrefix(c.Output, "file:") {
			return fmt.Errorf("invalid output: unknown output: %s", c.Output)
		}
	}
	for name := range c.Components {
		if !knownComponent(Component(name)) {
			return fmt.Errorf("invalid component: %s", name)
		}
	}
	return nil
}

func knownComponent(c Component) bool {
	for _, known := range Components {
		if c == known {
			return true
		}
	}
	return false
}
