//go:build !linux

package notify

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/livp123/authguard/pkg/errors"
)

// fsnotifyBackend implements Notifier on top of fsnotify. fsnotify delivers
// through channels fed by its own goroutine; Read empties them without waiting.
type fsnotifyBackend struct {
	watcher *fsnotify.Watcher
	watches map[WatchID]watchEntry
	nextID  WatchID
}

type watchEntry struct {
	path string
	ops  Op
	dir  bool
}

func newBackend() (Notifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.NewNotifierError("fsnotify.NewWatcher", err)
	}
	return &fsnotifyBackend{
		watcher: w,
		watches: make(map[WatchID]watchEntry),
		nextID:  1,
	}, nil
}

func (b *fsnotifyBackend) Add(path string, ops Op) (WatchID, error) {
	path = filepath.Clean(path)
	if err := b.watcher.Add(path); err != nil {
		return NoWatch, errors.NewNotifierError("add "+path, err)
	}
	id := b.nextID
	b.nextID++
	// Directory subscriptions never ask for Modify.
	b.watches[id] = watchEntry{path: path, ops: ops, dir: !ops.Has(Modify)}
	return id, nil
}

func (b *fsnotifyBackend) Remove(id WatchID) error {
	entry, ok := b.watches[id]
	if !ok {
		return nil
	}
	delete(b.watches, id)
	if err := b.watcher.Remove(entry.path); err != nil {
		return errors.NewNotifierError("remove "+entry.path, err)
	}
	return nil
}

func (b *fsnotifyBackend) Read() ([]Event, error) {
	var events []Event
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return events, nil
			}
			events = b.translate(ev, events)
		case err, ok := <-b.watcher.Errors:
			if !ok {
				return events, nil
			}
			if err == fsnotify.ErrEventOverflow {
				events = append(events, Event{Watch: NoWatch, Op: Overflow})
				continue
			}
			return events, errors.NewNotifierError("read", err)
		default:
			return events, nil
		}
	}
}

func (b *fsnotifyBackend) Close() error {
	return b.watcher.Close()
}

func (b *fsnotifyBackend) translate(ev fsnotify.Event, events []Event) []Event {
	op := fromFsnotify(ev.Op)
	if op == 0 {
		return events
	}
	name := filepath.Clean(ev.Name)
	for id, entry := range b.watches {
		switch {
		case entry.dir && filepath.Dir(name) == entry.path:
			if masked := op & entry.ops; masked != 0 {
				events = append(events, Event{Watch: id, Op: masked, Name: filepath.Base(name)})
			}
		case !entry.dir && name == entry.path:
			if masked := op & entry.ops; masked != 0 {
				events = append(events, Event{Watch: id, Op: masked})
			}
		}
	}
	return events
}

func fromFsnotify(op fsnotify.Op) Op {
	var out Op
	if op.Has(fsnotify.Write) {
		out |= Modify
	}
	if op.Has(fsnotify.Create) {
		out |= Create
	}
	if op.Has(fsnotify.Remove) {
		out |= Delete
	}
	if op.Has(fsnotify.Rename) {
		out |= MovedFrom
	}
	return out
}
