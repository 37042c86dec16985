package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogAPICall logs a completed Flickr REST call
func LogAPICall(log Logger, method string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"flickr_method": method,
		"status_code":   statusCode,
		"duration_ms":   duration.Milliseconds(),
	}

	switch {
	case statusCode >= 200 && statusCode < 300:
		log.DebugWithFields("flickr call completed", fields)
	case statusCode >= 500 || statusCode == 0:
		log.ErrorWithFields("flickr call failed", fields)
	default:
		log.WarnWithFields("flickr call rejected", fields)
	}
}

// LogDownload logs the outcome of a single image download
func LogDownload(log Logger, url, file string, statusCode int, err error) {
	l := log.WithFields(map[string]interface{}{
		"url":         url,
		"file":        file,
		"status_code": statusCode,
	})

	switch {
	case err != nil:
		l.WithError(err).Warn("download failed")
	case file == "":
		l.Warn("download skipped")
	default:
		l.Debug("download completed")
	}
}

// LogComponentStart logs when a component starts
func LogComponentStart(log Logger, component string, settings map[string]interface{}) {
	l := log.WithField("component", component)
	if len(settings) > 0 {
		l = l.WithFields(settings)
	}
	l.Info("component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(log Logger, component, reason string) {
	log.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("component stopped")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
