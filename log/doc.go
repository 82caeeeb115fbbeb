// Package log provides a small, leveled logging facade for convmem.
//
// Components such as the context-window builder and the conversation manager
// accept a Logger so that callers decide where diagnostics go. Two
// implementations are provided:
//
//   - DefaultLogger writes through the standard library logger with a
//     "[convmem] " prefix.
//   - GologLogger forwards to github.com/kataras/golog.
//
// NoOpLogger discards everything and is what tests usually pass.
//
// # Levels
//
// Levels in increasing severity are LogLevelDebug, LogLevelInfo, LogLevelWarn
// and LogLevelError. LogLevelNone silences a logger. ParseLevel maps the
// log_level value of the YAML config onto these constants:
//
//	level, err := log.ParseLevel(cfg.LogLevel)
//	if err != nil {
//		return err
//	}
//	logger := log.NewGologLoggerWithLevel(level)
//
// # Package-level logger
//
// Debug, Info, Warn and Error log through a process-wide default which can be
// replaced with SetDefaultLogger or SetLogLevel.
package log
