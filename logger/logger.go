// Package logger provides centralized logging for the application.
// File: logger/logger.go
package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// ------------------- global loggers -------------------

// four logger levels accessible throughout the application
var (
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger
	Debug *log.Logger
)

// ------------------- logger initialization -------------------

// InitLogger creates or reinitializes the logging system. It:
// - Ensures the log directory exists (LOG_DIR, default ./logs).
// - Creates a timestamped log file inside it.
// - Writes logs to both the file and stdout.
// - Configures separate loggers (Info, Warn, Error, Debug) with consistent prefixes & flags.
func InitLogger() error {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "./logs"
	}
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return err
	}

	// create a timestamped log file
	logFileName := filepath.Join(logDir, time.Now().Format("2006-01-02_15-04-05")+".log")
	file, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) // #nosec
	if err != nil {
		return err
	}

	// write logs to both stdout and the file
	multiWriter := io.MultiWriter(os.Stdout, file)

	// configure each logger
	Info = log.New(multiWriter, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	Warn = log.New(multiWriter, "WARN: ", log.Ldate|log.Ltime|log.Lshortfile)
	Error = log.New(multiWriter, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	Debug = log.New(multiWriter, "DEBUG: ", log.Ldate|log.Ltime|log.Lshortfile)
	return nil
}

// SetLogLevel adjusts the Debug logger's output depending on environment.
// In production Debug output is discarded entirely; everywhere else it stays on.
func SetLogLevel(env string) {
	if env == "production" {
		Debug.SetOutput(io.Discard)
	}
}

// init attempts to initialize the logger at package load time. If it fails we
// fall back to the standard library logger because our own are not ready yet.
func init() {
	if err := InitLogger(); err != nil {
		log.Fatalf("Failed to initialise custom logger: %v", err)
	}
}
