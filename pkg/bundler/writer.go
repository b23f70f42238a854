package bundler

import (
	"archive/zip"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// ArchiveWriter handles the creation of the .zip file with deterministic ordering.
type ArchiveWriter struct {
	files map[string][]byte
	ts    time.Time
}

// NewArchiveWriter creates a new writer instance.
func NewArchiveWriter(ts time.Time) *ArchiveWriter {
	return &ArchiveWriter{
		files: make(map[string][]byte),
		ts:    ts,
	}
}

// AddFile adds a file to be included in the archive.
// path should be relative to the archive root (e.g. "package.xml", "objects/Foo.object").
func (w *ArchiveWriter) AddFile(path string, content []byte) {
	w.files[filepath.ToSlash(path)] = content
}

// WriteToDisk replaces any archive at archivePath with a new one and checks
// that it can be read back. It returns the absolute path and the archive size.
func (w *ArchiveWriter) WriteToDisk(archivePath string) (string, int64, error) {
	absPath, err := filepath.Abs(archivePath)
	if err != nil {
		return "", 0, &PackagingError{Path: archivePath, Err: fmt.Errorf("failed to resolve absolute path: %w", err)}
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", 0, &PackagingError{Path: absPath, Err: fmt.Errorf("failed to create output directory: %w", err)}
	}
	if err := os.Remove(absPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", 0, &PackagingError{Path: absPath, Err: fmt.Errorf("failed to remove previous archive: %w", err)}
	}

	if err := w.write(absPath); err != nil {
		return "", 0, &PackagingError{Path: absPath, Err: err}
	}

	size, err := w.verify(absPath)
	if err != nil {
		return "", 0, &PackagingError{Path: absPath, Err: err}
	}
	return absPath, size, nil
}

func (w *ArchiveWriter) write(absPath string) (err error) {
	f, err := os.Create(absPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close archive file: %w", cerr)
		}
	}()

	zw := zip.NewWriter(f)

	// Sort files by path for deterministic output
	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		header := &zip.FileHeader{
			Name:     p,
			Method:   zip.Deflate,
			Modified: w.ts,
		}
		header.SetMode(0o644)

		entry, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to write header for %s: %w", p, err)
		}
		if _, err := entry.Write(w.files[p]); err != nil {
			return fmt.Errorf("failed to write content for %s: %w", p, err)
		}
	}
	return zw.Close()
}

func (w *ArchiveWriter) verify(absPath string) (int64, error) {
	r, err := zip.OpenReader(absPath)
	if err != nil {
		return 0, fmt.Errorf("archive not readable: %w", err)
	}
	defer r.Close()
	if len(r.File) != len(w.files) {
		return 0, fmt.Errorf("archive has %d entries, want %d", len(r.File), len(w.files))
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return 0, fmt.Errorf("archive missing after write: %w", err)
	}
	return info.Size(), nil
}

// Pack archives every regular file below sourceRoot into archivePath, using
// paths relative to sourceRoot as entry names.
func Pack(sourceRoot, archivePath string, opts ...Option) (string, int64, error) {
	return pack(sourceRoot, archivePath, newConfig(opts))
}

func pack(sourceRoot, archivePath string, cfg *config) (string, int64, error) {
	info, err := os.Stat(sourceRoot)
	if err != nil {
		return "", 0, &PackagingError{Path: sourceRoot, Err: fmt.Errorf("source directory: %w", err)}
	}
	if !info.IsDir() {
		return "", 0, &PackagingError{Path: sourceRoot, Err: errors.New("source is not a directory")}
	}

	// The archive may live inside the tree it packs.
	absArchive, err := filepath.Abs(archivePath)
	if err != nil {
		return "", 0, &PackagingError{Path: archivePath, Err: err}
	}

	writer := NewArchiveWriter(cfg.timestamp)
	count := 0
	err = filepath.WalkDir(sourceRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && abs == absArchive {
			return nil
		}
		rel, err := filepath.Rel(sourceRoot, path)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		writer.AddFile(rel, content)
		count++
		return nil
	})
	if err != nil {
		return "", 0, &PackagingError{Path: sourceRoot, Err: fmt.Errorf("walk: %w", err)}
	}
	if count == 0 {
		return "", 0, &PackagingError{Path: sourceRoot, Err: errors.New("source directory is empty")}
	}

	return writer.WriteToDisk(archivePath)
}
