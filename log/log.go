// Package log routes diagnostics to a daily log file. The terminal belongs to
// the UI, so nothing is ever written to stdout or stderr from here.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yhkl-dev/tunecli/filesystem"
)

// Options configures the log output
type Options struct {
	Write bool
	Dir   string
	Level string
	JSON  bool
}

var logger = newDiscardLogger()

func newDiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Setup points the logger at today's file in opts.Dir. With Write unset all
// entries are discarded.
func Setup(opts Options) error {
	if !opts.Write {
		logger.SetOutput(io.Discard)
		return nil
	}
	if opts.Dir == "" {
		return fmt.Errorf("log directory path is empty")
	}
	if err := filesystem.API().MkdirAll(opts.Dir, os.ModePerm); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	path := filepath.Join(opts.Dir, time.Now().Format("2006-01-02")+".log")
	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return nil
}

// Component returns an entry tagged with the component name
func Component(name string) *logrus.Entry {
	return logger.WithField("component", name)
}

func Error(args ...interface{})                 { logger.Error(args...) }
func Errorf(format string, args ...interface{}) { logger.Errorf(format, args...) }
func Warn(args ...interface{})                  { logger.Warn(args...) }
func Warnf(format string, args ...interface{})  { logger.Warnf(format, args...) }
func Info(args ...interface{})                  { logger.Info(args...) }
func Infof(format string, args ...interface{})  { logger.Infof(format, args...) }
func Debug(args ...interface{})                 { logger.Debug(args...) }
func Debugf(format string, args ...interface{}) { logger.Debugf(format, args...) }
