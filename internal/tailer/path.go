package tailer

import (
	"os"
	"path/filepath"

	"github.com/livp123/authguard/pkg/errors"
)

// WatchedFile is the monitored path split into its canonical directory and
// its file name inside that directory.
type WatchedFile struct {
	Directory string
	Filename  string
}

// NewWatchedFile splits path and canonicalizes the directory. The directory
// must exist; the file itself need not.
func NewWatchedFile(path string) (WatchedFile, error) {
	if path == "" {
		return WatchedFile{}, errors.NewPathError(path, "path is empty")
	}

	filename := filepath.Base(path)
	if filename == "" || filename == "." || filename == ".." || filename == string(filepath.Separator) {
		return WatchedFile{}, errors.NewPathError(path, "file name is empty")
	}
	// "auth.log/" names a directory, not a file.
	if os.IsPathSeparator(path[len(path)-1]) {
		return WatchedFile{}, errors.NewPathError(path, "file name is empty")
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return WatchedFile{}, errors.NewDirectoryError(filepath.Dir(path), err)
	}
	dir, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return WatchedFile{}, errors.NewDirectoryError(abs, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return WatchedFile{}, errors.NewDirectoryError(dir, err)
	}
	if !info.IsDir() {
		return WatchedFile{}, errors.NewPathError(path, "parent is not a directory")
	}

	return WatchedFile{Directory: dir, Filename: filename}, nil
}

// Path joins the canonical directory and the file name.
func (f WatchedFile) Path() string {
	return filepath.Join(f.Directory, f.Filename)
}

func (f WatchedFile) String() string {
	return f.Path()
}
