package state

// Version information for the state module.
const (
	// Version is the current version of the state module.
	Version = "0.2.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "0.2.0"
)
