// Package pkglog configures structured logging for the application and
// carries the correlation ID through request contexts.
package pkglog
