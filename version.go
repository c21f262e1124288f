package storesync

// Version information for the storesync client
const (
	// Version is the current client version
	Version = "0.1.0"

	// BuildDate is set during build time
	BuildDate = "development"

	// GitCommit is set during build time
	GitCommit = "unknown"
)
