// Package logger provides structured logging for flickrpicker.
//
// It wraps zerolog behind a small Logger interface so that components can take
// a logger in their constructor and tests can pass NewNopLogger or a capturing
// NewTestLogger instead.
//
// Basic Usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	logger.Info("pick started")
//	logger.WithField("photo_id", "52841137785").Debug("fetching detail")
//	logger.WithError(err).Warn("search failed")
//
// Components usually derive a child logger once:
//
//	log := logger.GetLogger().WithField("component", "picker")
//	log.InfoWithFields("window sampled", map[string]interface{}{
//	    "min_upload_date": w.Min,
//	    "max_upload_date": w.Max,
//	})
//
// Console output goes to stderr so that stdout stays free for progress and
// command output. When Logging.File is set, entries are also appended to that
// file as JSON lines.
package logger
