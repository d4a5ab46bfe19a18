// Package log provides the process-wide zap logger used by the host tooling.
// The ablation core never logs on its own; hosts hand it a logger from here.
package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

var log *zap.SugaredLogger
var baseLogger *zap.Logger

// Init initializes the package-level logger. Debug mode uses zap's
// development config so verbose ablation traces are printed.
func Init(debug bool) error {
	var zapLogger *zap.Logger
	var err error

	if debug {
		zapLogger, err = zap.NewDevelopment(zap.AddCallerSkip(1))
	} else {
		zapLogger, err = zap.NewProduction(zap.AddCallerSkip(1))
	}
	if err != nil {
		return fmt.Errorf("can't initialize zap logger: %v", err)
	}

	baseLogger = zapLogger
	log = zapLogger.Sugar()
	return nil
}

// GetZapLogger returns the base zap logger, for libraries such as GORM that
// want a *zap.Logger or a standard library adapter.
func GetZapLogger() *zap.Logger {
	if baseLogger == nil {
		baseLogger, _ = zap.NewProduction(zap.AddCallerSkip(1))
		log = baseLogger.Sugar()
	}
	return baseLogger
}

// GetSugaredLogger returns a sugared logger without the package caller skip,
// suitable for injecting into engines, sweeps and controllers.
func GetSugaredLogger() *zap.SugaredLogger {
	return GetZapLogger().WithOptions(zap.AddCallerSkip(-1)).Sugar()
}

// Named returns a child of the injected logger for one component.
func Named(name string) *zap.SugaredLogger {
	return GetSugaredLogger().Named(name)
}

// Sync flushes any buffered log entries.
func Sync() {
	if log != nil {
		log.Sync()
	}
}

func Debugf(template string, args ...interface{}) {
	GetZapLogger()
	log.Debugf(template, args...)
}

func Debugw(msg string, keysAndValues ...interface{}) {
	GetZapLogger()
	log.Debugw(msg, keysAndValues...)
}

func Info(args ...interface{}) {
	GetZapLogger()
	log.Info(args...)
}

func Infof(template string, args ...interface{}) {
	GetZapLogger()
	log.Infof(template, args...)
}

func Infow(msg string, keysAndValues ...interface{}) {
	GetZapLogger()
	log.Infow(msg, keysAndValues...)
}

func Warnf(template string, args ...interface{}) {
	GetZapLogger()
	log.Warnf(template, args...)
}

func Warnw(msg string, keysAndValues ...interface{}) {
	GetZapLogger()
	log.Warnw(msg, keysAndValues...)
}

func Errorf(template string, args ...interface{}) {
	GetZapLogger()
	log.Errorf(template, args...)
}

func Errorw(msg string, keysAndValues ...interface{}) {
	GetZapLogger()
	log.Errorw(msg, keysAndValues...)
}

func Fatalf(template string, args ...interface{}) {
	GetZapLogger()
	log.Fatalf(template, args...)
	os.Exit(1)
}
