package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.New()

func init() {
	env := os.Getenv("ENV")
	logger.Out = output(env)
	logger.Formatter = formatter(os.Getenv("LOG_FORMAT"))
	logger.SetLevel(level(os.Getenv("LOG_LEVEL")))
}

// output prefers stdout; LOG_TO_FILE=true writes to logs/<date><env>.log instead.
func output(env string) io.Writer {
	if os.Getenv("LOG_TO_FILE") != "true" {
		return os.Stdout
	}
	cwd, err := os.Getwd()
	if err != nil {
		log.Warnf("Failed get current working directory: %v, falling back to stdout", err)
		return os.Stdout
	}
	logsDir := filepath.Join(cwd, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		log.Warnf("Failed to create logs directory %s: %v, falling back to stdout", logsDir, err)
		return os.Stdout
	}
	filePath := filepath.Join(logsDir, fmt.Sprintf("%s%s.log", time.Now().Format("2006-01-02"), env))
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		log.Warnf("Failed to open log file %s: %v, falling back to stdout", filePath, err)
		return os.Stdout
	}
	return f
}

func formatter(format string) log.Formatter {
	if strings.EqualFold(format, "text") {
		return &log.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339}
	}
	return &log.JSONFormatter{TimestampFormat: time.RFC3339Nano}
}

func level(s string) log.Level {
	if s == "" {
		return log.DebugLevel
	}
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.DebugLevel
	}
	return lvl
}

// SetOutput redirects log output; tests use it to capture entries.
func SetOutput(w io.Writer) { logger.Out = w }

func GetLogger() *log.Entry {
	function, file, line, _ := runtime.Caller(1)
	functionObject := runtime.FuncForPC(function)
	name := ""
	if functionObject != nil {
		name = functionObject.Name()
	}
	return logger.WithFields(log.Fields{
		"function": name,
		"file":     file,
		"line":     line,
	})
}
