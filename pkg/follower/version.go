package follower

// Version information for the follower module.
const (
	// Version is the current version of the follower module.
	Version = "0.2.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "0.2.0"
)
