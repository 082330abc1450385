// Package driver provides graph database driver implementations for chrongraph.
//
// This package defines the GraphDriver interface and its two implementations:
// Neo4jDriver, backed by a live Neo4j/Bolt connection, and MemoryDriver, an
// in-process map-backed driver used for tests and single-process deployments
// that don't need persistence.
//
// # Usage
//
// Create a driver using the appropriate constructor:
//
//	// Neo4j
//	driver, err := driver.NewNeo4jDriver(uri, username, password, database)
//
//	// In-memory (no external database required)
//	driver := driver.NewMemoryDriver()
//
// # Thread Safety
//
// All driver implementations are safe for concurrent use from multiple goroutines.
// Database connections are managed internally and pooled where appropriate.
//
// # Type Helpers
//
// The package provides safe type conversion helpers in type_helpers.go for
// converting database results to Go types without panicking on type assertion
// failures.
package driver
