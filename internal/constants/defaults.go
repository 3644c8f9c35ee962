package constants

import "time"

// Analysis defaults.
const (
	// DefaultMaxFileSize caps the input loaded into memory.
	DefaultMaxFileSize = 512 << 20

	DefaultMaxInstructions = 1 << 20

	DefaultOutputFormat = "json"

	DefaultLogLevel = "info"
)

// Timeouts.
const (
	// DefaultBinwalkTimeout bounds one run of the external carving tool.
	DefaultBinwalkTimeout = 5 * time.Minute

	// DefaultStoreTimeout bounds a single report store query.
	DefaultStoreTimeout = 30 * time.Second
)

// History listing defaults.
const (
	DefaultHistoryLimit = 20
)
