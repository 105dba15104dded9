// Package logger provides structured logging built on zerolog.
//
// It exposes a Logger interface so components can accept an injected logger
// (and tests can substitute a silent one) while still offering a global
// instance for packages that have no natural injection point.
//
// Log output goes to the console by default; configuring a file path in
// config.LoggingConfig tees output to both console and file.
package logger
