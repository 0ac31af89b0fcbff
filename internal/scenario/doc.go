// Package scenario drives a replication strategy from a TOML script.
//
// A script is a list of steps, each naming one phase operation or an
// injector command. The runner plays the part of a storage engine: it builds
// frame batches, retries transient injected failures where the protocol
// leaves the phase unchanged, and checks each step's outcome against the
// error the script expects.
package scenario
