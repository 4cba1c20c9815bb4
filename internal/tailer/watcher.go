package tailer

import (
	"os"

	"go.uber.org/zap"

	"github.com/livp123/authguard/internal/metrics"
	"github.com/livp123/authguard/internal/notify"
	"github.com/livp123/authguard/internal/utils/logger"
	"github.com/livp123/authguard/pkg/errors"
)

// State reports whether the watched file is currently open.
type State int

const (
	StateAbsent State = iota
	StatePresent
)

func (s State) String() string {
	if s == StatePresent {
		return "present"
	}
	return "absent"
}

// Watcher keeps a LineReader attached to the watched path across creation,
// truncation, deletion and rename. The parent directory is always watched so
// that a file recreated under the same name is picked up; the file itself is
// watched only while it is open.
type Watcher struct {
	file      WatchedFile
	notifier  notify.Notifier
	dirWatch  notify.WatchID
	fileWatch notify.WatchID
	reader    *LineReader
	log       *zap.SugaredLogger
}

// NewWatcher starts watching path. The directory must exist; the file may
// not. An existing file is read only from its current end. The watcher takes
// ownership of notifier; a nil notifier selects the platform default.
func NewWatcher(path string, notifier notify.Notifier, log *zap.SugaredLogger) (*Watcher, error) {
	log = logger.OrGlobal(log)

	file, err := NewWatchedFile(path)
	if err != nil {
		if notifier != nil {
			_ = notifier.Close()
		}
		return nil, err
	}

	if notifier == nil {
		notifier, err = notify.New()
		if err != nil {
			return nil, err
		}
	}

	dirWatch, err := notifier.Add(file.Directory, notify.DirOps)
	if err != nil {
		_ = notifier.Close()
		return nil, err
	}

	w := &Watcher{
		file:      file,
		notifier:  notifier,
		dirWatch:  dirWatch,
		fileWatch: notify.NoWatch,
		log:       log,
	}

	if err := w.open(); err != nil {
		if errors.Is(err, errors.ErrFileNotFound) {
			log.Infof("File %s does not exist yet, waiting for it to be created", file)
		} else {
			log.Warnf("Unable to open %s, waiting for it to be recreated: %v", file, err)
		}
		return w, nil
	}
	if err := w.reader.SeekToEnd(); err != nil {
		log.Warnf("Unable to seek to the end of %s: %v", file, err)
	}
	log.Infof("Monitoring %s from offset %d", file, w.reader.Offset())
	return w, nil
}

// File returns the watched path.
func (w *Watcher) File() WatchedFile {
	return w.file
}

// State reports whether a reader is attached.
func (w *Watcher) State() State {
	if w.reader != nil {
		return StatePresent
	}
	return StateAbsent
}

// Update processes pending notifications and calls onLine for every new
// complete line. It returns immediately when nothing happened.
func (w *Watcher) Update(onLine func(line string)) {
	events, err := w.notifier.Read()
	if err != nil {
		metrics.NotifierErrors.Inc()
		w.log.Warnf("Failed to read file change events: %v", err)
	}
	if len(events) == 0 {
		return
	}

	modified := false
	for _, ev := range events {
		if ev.Op.Has(notify.Overflow) {
			w.log.Warnf("File change event queue overflowed, resynchronizing %s", w.file)
			w.resync(onLine)
			modified = true
			continue
		}

		action, ok := ActionFor(ev, w.dirWatch, w.fileWatch, w.file.Filename)
		if !ok {
			continue
		}
		metrics.FileActions.WithLabelValues(action.String()).Inc()
		w.log.Debugf("File action %s on %s (%s)", action, w.file, ev.Op)

		switch action {
		case ActionCreated:
			// Events describe history; the path may already name the
			// file we have open.
			if !w.isCurrent() {
				w.reopen(onLine)
			}
			modified = true
		case ActionModified:
			modified = true
		case ActionMoved, ActionDeleted:
			if w.isCurrent() {
				w.log.Debugf("Ignoring stale %s event, %s still names the open file", action, w.file)
				continue
			}
			if w.reader != nil {
				w.log.Infof("File %s was %s, waiting for a new one", w.file, action)
			}
			w.release(onLine)
		}
	}

	if modified && w.reader != nil {
		w.reader.ReadNewLines(onLine)
	}
}

// Close releases the reader and the notifier.
func (w *Watcher) Close() error {
	w.closeReader()
	return w.notifier.Close()
}

// open attaches a reader at offset 0 and subscribes to its modifications.
func (w *Watcher) open() error {
	path := w.file.Path()
	reader, err := OpenReader(path, w.log)
	if err != nil {
		return err
	}
	fileWatch, err := w.notifier.Add(path, notify.FileOps)
	if err != nil {
		_ = reader.Close()
		return err
	}
	w.reader = reader
	w.fileWatch = fileWatch
	metrics.FileOpen.Set(1)
	return nil
}

// reopen replaces any current reader with one on the newly created file.
// The new file is read from its start.
func (w *Watcher) reopen(onLine func(line string)) {
	w.release(onLine)
	if err := w.open(); err != nil {
		w.log.Warnf("File %s was created but could not be opened: %v", w.file, err)
		return
	}
	w.log.Infof("File %s was created, monitoring from the beginning", w.file)
}

// release drains what is left in the old file and detaches from it.
func (w *Watcher) release(onLine func(line string)) {
	if w.reader == nil {
		return
	}
	w.reader.ReadNewLines(onLine)
	w.closeReader()
}

func (w *Watcher) closeReader() {
	if w.fileWatch != notify.NoWatch {
		if err := w.notifier.Remove(w.fileWatch); err != nil {
			w.log.Debugf("Removing file watch on %s: %v", w.file, err)
		}
		w.fileWatch = notify.NoWatch
	}
	if w.reader != nil {
		if err := w.reader.Close(); err != nil {
			w.log.Warnf("Error closing %s: %v", w.file, err)
		}
		w.reader = nil
		metrics.FileOpen.Set(0)
	}
}

// isCurrent reports whether the path still names the open file.
func (w *Watcher) isCurrent() bool {
	if w.reader == nil {
		return false
	}
	current, err := os.Stat(w.file.Path())
	if err != nil {
		return false
	}
	opened, err := w.reader.file.Stat()
	if err != nil {
		return false
	}
	return os.SameFile(opened, current)
}

// resync recovers from lost events by comparing the open handle with what
// the path currently points to.
func (w *Watcher) resync(onLine func(line string)) {
	if w.isCurrent() {
		return
	}
	if _, err := os.Stat(w.file.Path()); err != nil {
		w.release(onLine)
		return
	}
	w.reopen(onLine)
}
