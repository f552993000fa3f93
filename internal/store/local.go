package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

const partialSuffix = ".part"

// Local stores documents as files in a single directory.
type Local struct {
	fs   afero.Fs
	dir  string
	once sync.Once
	err  error
}

// NewLocal returns a store writing into dir on the operating system's
// filesystem.
func NewLocal(dir string) *Local {
	return NewLocalWithFS(afero.NewOsFs(), dir)
}

// NewLocalWithFS returns a store writing into dir on fs.
func NewLocalWithFS(fs afero.Fs, dir string) *Local {
	return &Local{fs: fs, dir: dir}
}

// Prepare creates the directory once. Later calls return the first result.
func (l *Local) Prepare(_ context.Context) error {
	l.once.Do(func() {
		exists, err := afero.DirExists(l.fs, l.dir)
		if err != nil {
			l.err = fmt.Errorf("stat %s: %w", l.dir, err)
			return
		}
		if exists {
			return
		}
		if err := l.fs.MkdirAll(l.dir, 0o755); err != nil {
			l.err = fmt.Errorf("create %s: %w", l.dir, err)
		}
	})
	return l.err
}

func (l *Local) Exists(_ context.Context, name string) (bool, error) {
	return afero.Exists(l.fs, l.path(name))
}

// Create opens a writer for name. Every writer streams into its own
// temporary "<name>.<random>.part" file, so concurrent writers for the same
// name never share data; the last to commit wins with a whole file.
func (l *Local) Create(_ context.Context, name, _ string) (Writer, error) {
	final := l.path(name)

	f, err := afero.TempFile(l.fs, l.dir, name+".*"+partialSuffix)
	if err != nil {
		return nil, fmt.Errorf("create partial file for %s: %w", final, err)
	}
	partial := f.Name()

	if err := l.fs.Chmod(partial, 0o644); err != nil {
		f.Close()
		l.fs.Remove(partial)
		return nil, fmt.Errorf("chmod %s: %w", partial, err)
	}

	return &localWriter{fs: l.fs, f: f, partial: partial, final: final}, nil
}

func (l *Local) Location() string {
	return l.dir
}

func (l *Local) Close() error {
	return nil
}

func (l *Local) path(name string) string {
	return filepath.Join(l.dir, name)
}

type localWriter struct {
	fs      afero.Fs
	f       afero.File
	partial string
	final   string
	done    bool
}

func (w *localWriter) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWriter) Commit() error {
	if w.done {
		return errors.New("store: writer already finished")
	}
	w.done = true

	if err := w.f.Sync(); err != nil {
		w.f.Close()
		w.fs.Remove(w.partial)
		return fmt.Errorf("sync %s: %w", w.partial, err)
	}
	if err := w.f.Close(); err != nil {
		w.fs.Remove(w.partial)
		return fmt.Errorf("close %s: %w", w.partial, err)
	}
	if err := w.fs.Rename(w.partial, w.final); err != nil {
		w.fs.Remove(w.partial)
		return fmt.Errorf("rename %s: %w", w.partial, err)
	}
	return nil
}

func (w *localWriter) Abort() error {
	if w.done {
		return nil
	}
	w.done = true

	closeErr := w.f.Close()
	if err := w.fs.Remove(w.partial); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", w.partial, err)
	}
	return closeErr
}
