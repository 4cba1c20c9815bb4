//go:build linux

package notify

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/livp123/authguard/pkg/errors"
)

// readBufferSize holds many events: each is SizeofInotifyEvent plus up to
// NAME_MAX+1 bytes of name.
const readBufferSize = 64 * (unix.SizeofInotifyEvent + unix.NAME_MAX + 1)

// inotifyBackend implements Notifier on a non-blocking inotify descriptor.
type inotifyBackend struct {
	fd  int
	buf []byte
}

func newBackend() (Notifier, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, errors.NewNotifierError("inotify_init1", err)
	}
	return &inotifyBackend{
		fd:  fd,
		buf: make([]byte, readBufferSize),
	}, nil
}

func (b *inotifyBackend) Add(path string, ops Op) (WatchID, error) {
	wd, err := unix.InotifyAddWatch(b.fd, path, toMask(ops))
	if err != nil {
		return NoWatch, errors.NewNotifierError("inotify_add_watch "+path, err)
	}
	return WatchID(wd), nil
}

func (b *inotifyBackend) Remove(id WatchID) error {
	if id == NoWatch {
		return nil
	}
	//nolint:gosec // G115: wd is always a small non-negative int from inotify
	if _, err := unix.InotifyRmWatch(b.fd, uint32(id)); err != nil {
		return errors.NewNotifierError("inotify_rm_watch", err)
	}
	return nil
}

// Read drains the descriptor until the kernel reports EAGAIN.
func (b *inotifyBackend) Read() ([]Event, error) {
	var events []Event
	for {
		n, err := unix.Read(b.fd, b.buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err == unix.EAGAIN {
				return events, nil
			}
			return events, errors.NewNotifierError("read", err)
		}
		if n < unix.SizeofInotifyEvent {
			return events, nil
		}
		events = parseEvents(b.buf[:n], events)
	}
}

func (b *inotifyBackend) Close() error {
	if b.fd < 0 {
		return nil
	}
	err := unix.Close(b.fd)
	b.fd = -1
	return err
}

// parseEvents decodes the packed inotify_event records in buf.
func parseEvents(buf []byte, events []Event) []Event {
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buf) {
		//nolint:gosec // G103: fixed kernel ABI layout, bounds checked above
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
		offset += unix.SizeofInotifyEvent

		var name string
		if raw.Len > 0 {
			end := offset + int(raw.Len)
			if end > len(buf) {
				break
			}
			nameBytes := buf[offset:end]
			name = string(nameBytes[:clen(nameBytes)])
			offset = end
		}

		events = append(events, Event{
			Watch: WatchID(raw.Wd),
			Op:    fromMask(raw.Mask),
			Name:  name,
		})
	}
	return events
}

func toMask(ops Op) uint32 {
	var mask uint32
	if ops.Has(Modify) {
		mask |= unix.IN_MODIFY
	}
	if ops.Has(Create) {
		mask |= unix.IN_CREATE
	}
	if ops.Has(Delete) {
		mask |= unix.IN_DELETE
	}
	if ops.Has(MovedFrom) {
		mask |= unix.IN_MOVED_FROM
	}
	if ops.Has(MovedTo) {
		mask |= unix.IN_MOVED_TO
	}
	return mask
}

func fromMask(mask uint32) Op {
	var op Op
	if mask&unix.IN_MODIFY != 0 {
		op |= Modify
	}
	if mask&unix.IN_CREATE != 0 {
		op |= Create
	}
	if mask&unix.IN_DELETE != 0 {
		op |= Delete
	}
	if mask&unix.IN_MOVED_FROM != 0 {
		op |= MovedFrom
	}
	if mask&unix.IN_MOVED_TO != 0 {
		op |= MovedTo
	}
	if mask&unix.IN_Q_OVERFLOW != 0 {
		op |= Overflow
	}
	if mask&unix.IN_IGNORED != 0 {
		op |= Ignored
	}
	return op
}

// clen returns the length of a null-terminated byte slice.
func clen(n []byte) int {
	for i := 0; i < len(n); i++ {
		if n[i] == 0 {
			return i
		}
	}
	return len(n)
}
