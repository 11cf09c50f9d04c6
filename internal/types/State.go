package types

// Snapshotter is implemented by in-process collaborators whose state can be
// checkpointed and rolled back. The vault snapshots every collaborator that
// supports it before an external operation and reverts them all if any step
// fails, so no partial fee transfer, mint or stake is ever observable.
type Snapshotter interface {
	// Snapshot records the current state and returns a handle for RevertTo.
	Snapshot() int
	// RevertTo restores the state recorded at the given handle and discards
	// every snapshot taken after it.
	RevertTo(id int) error
	// Release discards the snapshot at the given handle and every one taken
	// after it, keeping the current state. Completed operations must release
	// their checkpoints or the retained copies accumulate forever.
	Release(id int) error
}
