package tailer

import (
	"bytes"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/livp123/authguard/internal/metrics"
	"github.com/livp123/authguard/internal/utils/logger"
	"github.com/livp123/authguard/pkg/errors"
)

const (
	readChunkSize = 32 * 1024

	// MaxLineBytes bounds an unterminated line kept in memory. A partial line
	// that grows past it is dropped.
	MaxLineBytes = 1 << 20
)

// LineReader tails one open file and emits each newline-terminated line once.
// A trailing line without its terminator is held back until it is completed.
type LineReader struct {
	path    string
	file    *os.File
	offset  int64
	chunk   []byte
	pending []byte
	// last is the byte just before offset, used to notice a file that was
	// truncated and rewritten past the old offset between two reads.
	last byte
	// discarding is set while skipping the rest of an oversized line.
	discarding bool
	log        *zap.SugaredLogger
}

// OpenReader opens path for reading at offset 0.
func OpenReader(path string, log *zap.SugaredLogger) (*LineReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewFileError(path, err)
	}
	return &LineReader{
		path:  path,
		file:  file,
		chunk: make([]byte, readChunkSize),
		log:   logger.OrGlobal(log),
	}, nil
}

// SeekToEnd moves the cursor to the current end of file so that existing
// content is never reported.
func (r *LineReader) SeekToEnd() error {
	pos, err := r.file.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	r.offset = pos
	r.pending = r.pending[:0]
	if pos > 0 {
		b := make([]byte, 1)
		if _, err := r.file.ReadAt(b, pos-1); err != nil {
			return err
		}
		r.last = b[0]
	}
	return nil
}

// Offset is the number of bytes consumed from the file, including bytes of
// a held-back partial line.
func (r *LineReader) Offset() int64 {
	return r.offset
}

// ReadNewLines calls onLine for every complete line currently available.
// When nothing is left to read and the file is shorter than the cursor, the
// file was truncated in place; reading restarts from offset 0. A file that
// was truncated and already regrown is caught when the byte before the
// cursor changed.
func (r *LineReader) ReadNewLines(onLine func(line string)) {
	if r.rewritten() && !r.rewind() {
		return
	}
	for {
		n, err := r.file.Read(r.chunk)
		if n > 0 {
			r.offset += int64(n)
			r.last = r.chunk[n-1]
			r.split(r.chunk[:n], onLine)
			continue
		}
		if err != nil && err != io.EOF {
			r.log.Warnf("Error reading %s: %v", r.path, err)
			return
		}
		if !r.truncated() || !r.rewind() {
			return
		}
	}
}

// rewind moves the cursor back to offset 0 and forgets any partial line.
func (r *LineReader) rewind() bool {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		r.log.Warnf("Error resetting position in %s: %v", r.path, err)
		return false
	}
	metrics.Truncations.Inc()
	r.log.Infof("Truncation detected on %s, resetting position from %d to 0", r.path, r.offset)
	r.offset = 0
	r.last = 0
	r.pending = r.pending[:0]
	r.discarding = false
	return true
}

// split emits every terminated line in data, prefixed by pending bytes.
func (r *LineReader) split(data []byte, onLine func(line string)) {
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			r.hold(data)
			return
		}
		if r.discarding {
			r.discarding = false
			data = data[i+1:]
			continue
		}
		var line string
		if len(r.pending) > 0 {
			r.pending = append(r.pending, data[:i]...)
			line = string(trimCR(r.pending))
			r.pending = r.pending[:0]
		} else {
			line = string(trimCR(data[:i]))
		}
		metrics.LinesRead.Inc()
		onLine(line)
		data = data[i+1:]
	}
}

func (r *LineReader) hold(data []byte) {
	if r.discarding {
		return
	}
	if len(r.pending)+len(data) > MaxLineBytes {
		r.log.Warnf("Dropping unterminated line longer than %d bytes in %s", MaxLineBytes, r.path)
		r.pending = r.pending[:0]
		r.discarding = true
		return
	}
	r.pending = append(r.pending, data...)
}

// rewritten reports whether the byte before the cursor is gone or differs
// from the one consumed there.
func (r *LineReader) rewritten() bool {
	if r.offset == 0 {
		return false
	}
	b := r.chunk[:1]
	n, err := r.file.ReadAt(b, r.offset-1)
	if n == 1 {
		return b[0] != r.last
	}
	if err != nil && err != io.EOF {
		r.log.Warnf("Error reading %s: %v", r.path, err)
		return false
	}
	return true
}

func (r *LineReader) truncated() bool {
	info, err := r.file.Stat()
	if err != nil {
		r.log.Warnf("Error getting metadata of %s: %v", r.path, err)
		return false
	}
	return info.Size() < r.offset
}

// Close releases the file handle.
func (r *LineReader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func trimCR(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == '\r' {
		return b[:n-1]
	}
	return b
}
