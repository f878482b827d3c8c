// Package logger provides structured logging for procspec using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with the field names used across process launches
// (run id, program, pid, exit code, duration).
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("process")
//	log.Info("process exited", logger.Fields(logger.FieldExitCode, 0))
package logger
