// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	DefaultDir = ".firmscope"

	// ConfigDirEnv overrides the base directory holding DefaultDir.
	ConfigDirEnv = "FIRMSCOPE_CONFIG"

	// DefaultReportPath is where a report is written when no output path is given.
	DefaultReportPath = "report.json"

	// DefaultLogFile is the append-only log next to the working directory.
	DefaultLogFile = "firmscope.log"

	DefaultDatabaseFile = "firmscope.duckdb"
)
