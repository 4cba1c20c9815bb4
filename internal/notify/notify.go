// Package notify exposes a small, non-blocking view of the kernel file change
// notification facility. A Notifier hands out watch descriptors for paths and
// returns whatever events are pending when Read is called; it never waits for
// new ones.
//
// On Linux the backend is inotify opened with IN_NONBLOCK. Other platforms use
// fsnotify, drained without blocking.
package notify

import (
	"strings"
)

// Op is a set of change flags carried by an Event and used as a subscription mask.
type Op uint32

const (
	// Modify is reported on a file watch when the file content changes.
	Modify Op = 1 << iota
	// Create is reported on a directory watch when an entry is created.
	Create
	// Delete is reported on a directory watch when an entry is unlinked.
	Delete
	// MovedFrom is reported on a directory watch when an entry is renamed away.
	MovedFrom
	// MovedTo is reported on a directory watch when an entry is renamed into place.
	MovedTo
	// Overflow means the kernel queue overflowed and events were dropped.
	Overflow
	// Ignored means the watch was removed, explicitly or because its target vanished.
	Ignored
)

// DirOps is the subscription used for the directory holding a watched file.
const DirOps = Create | Delete | MovedFrom | MovedTo

// FileOps is the subscription used for the watched file itself.
const FileOps = Modify

var opNames = []struct {
	op   Op
	name string
}{
	{Modify, "MODIFY"},
	{Create, "CREATE"},
	{Delete, "DELETE"},
	{MovedFrom, "MOVED_FROM"},
	{MovedTo, "MOVED_TO"},
	{Overflow, "OVERFLOW"},
	{Ignored, "IGNORED"},
}

// Has reports whether all flags in x are set in o.
func (o Op) Has(x Op) bool {
	return x != 0 && o&x == x
}

func (o Op) String() string {
	if o == 0 {
		return "NONE"
	}
	var parts []string
	for _, n := range opNames {
		if o.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "UNKNOWN"
	}
	return strings.Join(parts, "|")
}

// WatchID identifies one subscription on a Notifier.
type WatchID int

// NoWatch is the zero subscription; it never matches an event.
const NoWatch WatchID = -1

// Event is one raw notification record.
type Event struct {
	Watch WatchID
	Op    Op
	// Name is the entry name for directory watches, empty for file watches.
	Name string
}

// Notifier subscribes to paths and drains pending events without blocking.
type Notifier interface {
	// Add subscribes to ops on path and returns the watch descriptor.
	Add(path string, ops Op) (WatchID, error)
	// Remove drops a subscription. Removing a watch the kernel already
	// dropped returns an error the caller may ignore.
	Remove(id WatchID) error
	// Read returns all events pending right now, or nil when there are none.
	Read() ([]Event, error)
	// Close releases the underlying descriptor.
	Close() error
}

// New returns the platform backend.
func New() (Notifier, error) {
	return newBackend()
}
