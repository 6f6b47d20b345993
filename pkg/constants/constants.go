// Package constants provides shared constants used throughout the segmaster codebase.
package constants

import "time"

// Timeout constants
const (
	// DefaultHTTPTimeout is the standard timeout for requests to the platform API
	DefaultHTTPTimeout = 30 * time.Second

	// PassTimeout bounds a whole reconciliation pass when run from the command
	PassTimeout = 30 * time.Minute

	// ShutdownTimeout is the grace period given to shutdown after a failed command
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Platform defaults
const (
	// DefaultDataProduct is the data product used when none is configured
	DefaultDataProduct = "default"

	// DefaultReleaseTable is the warehouse table holding released master versions
	DefaultReleaseTable = "LCM_RELEASE"

	// DefaultManifestFile is the release manifest file name inside a data product directory
	DefaultManifestFile = "release.yaml"
)
