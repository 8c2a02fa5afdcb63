// Package logger provides the bot's logging system on top of logrus.
// Every entry goes to a coloured console, to log files and, optionally,
// to Discord webhooks.
package logger

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelCritical LogLevel = iota
	LevelError
	LevelWarn
	LevelSuccess
	LevelInfo
	LevelDebug
	LevelSystem
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LevelCritical:
		return "CRITICAL"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelSuccess:
		return "SUCCESS"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelSystem:
		return "SYSTEM"
	default:
		return "UNKNOWN"
	}
}

// Color returns the ANSI color code for the log level
func (l LogLevel) Color() string {
	switch l {
	case LevelCritical:
		return "\033[1;31m" // Bold Red
	case LevelError:
		return "\033[31m"
	case LevelWarn:
		return "\033[33m"
	case LevelSuccess:
		return "\033[32m"
	case LevelInfo:
		return "\033[36m"
	case LevelDebug:
		return "\033[35m"
	case LevelSystem:
		return "\033[34m"
	default:
		return colorReset
	}
}

// DiscordColor returns the Discord embed color for the log level
func (l LogLevel) DiscordColor() int {
	switch l {
	case LevelCritical, LevelError:
		return 0xFF0000
	case LevelWarn:
		return 0xFFFF00
	case LevelSuccess:
		return 0x00FF00
	case LevelInfo:
		return 0x0000FF
	case LevelDebug:
		return 0x800080
	case LevelSystem:
		return 0x808080
	default:
		return 0xFFFFFF
	}
}

// logrusLevel maps the bot level onto the closest logrus level
func (l LogLevel) logrusLevel() logrus.Level {
	switch l {
	case LevelCritical, LevelError:
		return logrus.ErrorLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelDebug:
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel converts a config value such as "info" into a LogLevel
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return LevelCritical, true
	case "error":
		return LevelError, true
	case "warn", "warning":
		return LevelWarn, true
	case "success":
		return LevelSuccess, true
	case "info":
		return LevelInfo, true
	case "debug":
		return LevelDebug, true
	case "system":
		return LevelSystem, true
	}
	return LevelDebug, false
}

const (
	colorReset     = "\033[0m"
	timeFormat     = "2006-01-02 15:04:05"
	fieldLevel     = "level_name"
	fieldPrefix    = "prefix"
	fieldLevelCode = "level_code"
)

// lineFormatter renders entries as "[time] [LEVEL] [prefix]: message"
type lineFormatter struct {
	colors bool
}

// Format implements logrus.Formatter
func (f *lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	level, _ := entry.Data[fieldLevelCode].(LogLevel)
	prefix, _ := entry.Data[fieldPrefix].(string)

	name := level.String()
	if f.colors {
		name = level.Color() + name + colorReset
	}
	line := fmt.Sprintf("[%s] [%s] [%s]: %s\n", entry.Time.Format(timeFormat), name, prefix, entry.Message)
	return []byte(line), nil
}

// errorFileHook copies error entries into error.log
type errorFileHook struct {
	file      *os.File
	formatter logrus.Formatter
}

func (h *errorFileHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.ErrorLevel}
}

func (h *errorFileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.file.Write(line)
	return err
}

// Logger is the main logging structure
type Logger struct {
	console         *logrus.Logger
	file            *logrus.Logger
	errorWebhookURL string
	logsWebhookURL  string
	logFile         *os.File
	errorFile       *os.File
	httpClient      *http.Client
	threshold       LogLevel
	mu              sync.Mutex
}

// logger is the global logger instance
var (
	logger *Logger
	once   sync.Once
)

// Init initializes the global logger instance
func Init(errorWebhook, logsWebhook string) *Logger {
	once.Do(func() {
		logger = NewLogger(errorWebhook, logsWebhook)
	})
	return logger
}

// Get returns the global logger instance
func Get() *Logger {
	once.Do(func() {
		logger = NewLogger("", "")
	})
	return logger
}

// NewLogger creates a new Logger instance
func NewLogger(errorWebhook, logsWebhook string) *Logger {
	l := &Logger{
		console:         logrus.New(),
		file:            logrus.New(),
		errorWebhookURL: errorWebhook,
		logsWebhookURL:  logsWebhook,
		httpClient:      &http.Client{Timeout: 5 * time.Second},
		threshold:       LevelSystem,
	}

	l.console.SetFormatter(&lineFormatter{colors: true})
	l.console.SetOutput(os.Stdout)
	l.console.SetLevel(logrus.DebugLevel)

	plain := &lineFormatter{colors: false}
	l.file.SetFormatter(plain)
	l.file.SetLevel(logrus.DebugLevel)

	logsDir := filepath.Join(".", "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		fmt.Printf("Error creating logs directory: %v\n", err)
	}

	var err error
	l.logFile, err = os.OpenFile(filepath.Join(logsDir, "combined.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Printf("Error opening combined log file: %v\n", err)
		l.file.SetOutput(os.Stderr)
	} else {
		l.file.SetOutput(l.logFile)
	}

	l.errorFile, err = os.OpenFile(filepath.Join(logsDir, "error.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Printf("Error opening error log file: %v\n", err)
	} else {
		l.file.AddHook(&errorFileHook{file: l.errorFile, formatter: plain})
	}

	return l
}

// SetLevel hides console entries less severe than level. SYSTEM entries are
// always printed; files and webhooks still receive everything.
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	l.threshold = level
	l.mu.Unlock()
}

// log is the internal logging function
func (l *Logger) log(level LogLevel, message string, prefix string) {
	fields := logrus.Fields{
		fieldLevelCode: level,
		fieldLevel:     level.String(),
		fieldPrefix:    prefix,
	}

	l.mu.Lock()
	if level <= l.threshold || level == LevelSystem {
		l.console.WithFields(fields).Log(level.logrusLevel(), message)
	}
	l.file.WithFields(fields).Log(level.logrusLevel(), message)
	l.mu.Unlock()

	go l.sendToWebhook(level, message, prefix)
}

// webhookFor picks the webhook a level is delivered to
func (l *Logger) webhookFor(level LogLevel) string {
	if level <= LevelError {
		return l.errorWebhookURL
	}
	return l.logsWebhookURL
}

// sendToWebhook sends the log message to the appropriate Discord webhook
func (l *Logger) sendToWebhook(level LogLevel, message, prefix string) {
	webhookURL := l.webhookFor(level)
	if webhookURL == "" {
		return
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{
			map[string]interface{}{
				"title":       fmt.Sprintf("[%s] %s", level.String(), prefix),
				"description": fmt.Sprintf("```%s```", message),
				"color":       level.DiscordColor(),
				"timestamp":   time.Now().Format(time.RFC3339),
				"footer": map[string]string{
					"text": "🍺 Isekai Tavern | TavernBot Go",
				},
			},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
}

// Close closes the log files
func (l *Logger) Close() {
	if l.logFile != nil {
		l.logFile.Close()
	}
	if l.errorFile != nil {
		l.errorFile.Close()
	}
}

// Critical logs a critical message
func (l *Logger) Critical(message string, prefix string) {
	l.log(LevelCritical, message, prefix)
}

// Error logs an error message
func (l *Logger) Error(message string, prefix string) {
	l.log(LevelError, message, prefix)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, prefix string) {
	l.log(LevelWarn, message, prefix)
}

// Success logs a success message
func (l *Logger) Success(message string, prefix string) {
	l.log(LevelSuccess, message, prefix)
}

// Info logs an info message
func (l *Logger) Info(message string, prefix string) {
	l.log(LevelInfo, message, prefix)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, prefix string) {
	l.log(LevelDebug, message, prefix)
}

// System logs a system message
func (l *Logger) System(message string, prefix string) {
	l.log(LevelSystem, message, prefix)
}

// Package-level helpers

func Critical(message string, prefix string) { Get().Critical(message, prefix) }
func Error(message string, prefix string)    { Get().Error(message, prefix) }
func Warn(message string, prefix string)     { Get().Warn(message, prefix) }
func Success(message string, prefix string)  { Get().Success(message, prefix) }
func Info(message string, prefix string)     { Get().Info(message, prefix) }
func Debug(message string, prefix string)    { Get().Debug(message, prefix) }
func System(message string, prefix string)   { Get().System(message, prefix) }
