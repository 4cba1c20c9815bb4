package tailer

import "github.com/livp123/authguard/internal/notify"

// FileAction is the lifecycle change of the watched file derived from one
// raw notification record.
type FileAction int

const (
	// ActionCreated means a file appeared under the watched name.
	ActionCreated FileAction = iota
	// ActionModified means the open file has new content or was truncated.
	ActionModified
	// ActionMoved means the watched name was renamed away.
	ActionMoved
	// ActionDeleted means the watched name was unlinked.
	ActionDeleted
)

func (a FileAction) String() string {
	switch a {
	case ActionCreated:
		return "created"
	case ActionModified:
		return "modified"
	case ActionMoved:
		return "moved"
	case ActionDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ActionFor maps a raw event to a FileAction. Only Modify events on the
// current file watch and directory events naming the watched file count;
// everything else is ignored. A file renamed onto the watched name is
// treated as created.
func ActionFor(ev notify.Event, dirWatch, fileWatch notify.WatchID, filename string) (FileAction, bool) {
	if fileWatch != notify.NoWatch && ev.Watch == fileWatch && ev.Op.Has(notify.Modify) {
		return ActionModified, true
	}
	if ev.Watch != dirWatch || ev.Name != filename {
		return 0, false
	}
	switch {
	case ev.Op.Has(notify.Create), ev.Op.Has(notify.MovedTo):
		return ActionCreated, true
	case ev.Op.Has(notify.MovedFrom):
		return ActionMoved, true
	case ev.Op.Has(notify.Delete):
		return ActionDeleted, true
	}
	return 0, false
}
