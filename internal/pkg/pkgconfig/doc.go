// Package pkgconfig abstracts configuration loading behind a small Config
// interface so the rest of the application does not depend on viper directly.
package pkgconfig
