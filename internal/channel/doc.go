// Package channel holds the relay's process-wide connection registry.
//
// A Registry admits at most one broadcaster at a time and any number of
// listeners. Broadcast fans a frame out to a snapshot of the listener set,
// isolating per-listener send failures and pruning the failed listeners
// after the pass.
package channel
