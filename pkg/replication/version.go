package replication

import (
	"github.com/qq511939992/walrepl/pkg/follower"
	"github.com/qq511939992/walrepl/pkg/ledger"
	"github.com/qq511939992/walrepl/pkg/lifecycle"
	"github.com/qq511939992/walrepl/pkg/log"
	"github.com/qq511939992/walrepl/pkg/state"
)

// Version information for the replication module.
const (
	// Version is the current version of the replication module.
	Version = "0.2.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "0.2.0"
)

// ModuleVersions returns the versions of all walrepl modules.
func ModuleVersions() map[string]string {
	return map[string]string{
		"replication": Version,
		"ledger":      ledger.Version,
		"follower":    follower.Version,
		"state":       state.Version,
		"lifecycle":   lifecycle.Version,
		"log":         log.Version,
	}
}
