// Package build holds build-time metadata injected via -ldflags.
package build

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// ProjectName is used as the env variable prefix and the default config file name.
	ProjectName = "galleria"
)

// MinimumSupportedDatastoreSchemaRevision is the minimum goose schema
// revision the server can run against.
const MinimumSupportedDatastoreSchemaRevision int64 = 1

