// Package pkguid provides unique identifier generators: UUID strings for
// correlation IDs and blob keys, snowflake numbers for dataset IDs.
package pkguid
