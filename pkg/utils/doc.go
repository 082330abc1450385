// Package utils provides shared utility functions for the chrongraph library.
//
// This package contains helper functions for various operations including:
//   - Date and time utilities (datetime.go)
//   - Data validation functions (validation.go)
//   - Concurrent execution helpers (concurrent.go)
//   - Bulk processing utilities (bulk.go)
//   - General helper functions (helpers.go)
//
// The utilities are designed to support the core graph-ingestion operations: concurrency
// helpers, deduplication, recovery, and vector math used across the pipeline.
package utils
