package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/memdash/internal/apperr"
	"github.com/starford/memdash/internal/models"
)

// Layout names the notes that make up the corpus.
type Layout struct {
	LongTermNote string // e.g. "MEMORY.md"
	DailyDir     string // e.g. "memory"
}

// FS implements Provider backed by the local file system.
type FS struct {
	root   string // absolute path to workspace directory
	layout Layout
	logger *slog.Logger
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string, layout Layout, logger *slog.Logger) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FS{root: abs, layout: layout, logger: logger}, nil
}

// Root returns the absolute workspace root.
func (f *FS) Root() string {
	return f.root
}

// Layout returns the corpus layout.
func (f *FS) Layout() Layout {
	return f.layout
}

// safePath resolves a relative path against the workspace root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("storage: empty path: %w", apperr.ErrInvalidPath)
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s: %w", rel, apperr.ErrInvalidPath)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes workspace root: %s: %w", rel, apperr.ErrInvalidPath)
	}
	return abs, nil
}

// inLayout reports whether rel names the long-term note or a note directly
// inside the daily directory.
func (f *FS) inLayout(rel string) bool {
	rel = path.Clean(filepath.ToSlash(rel))
	return rel == path.Clean(f.layout.LongTermNote) || path.Dir(rel) == path.Clean(f.layout.DailyDir)
}

// List returns metadata for the long-term note (if present) and every .md
// file directly inside the daily directory. Parts of the corpus that cannot
// be read are logged and left out.
func (f *FS) List() ([]models.NoteMetadata, error) {
	var out []models.NoteMetadata

	if m, err := f.stat(f.layout.LongTermNote); err == nil {
		out = append(out, m)
	} else if !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("storage: skipping long-term note", slog.String("path", f.layout.LongTermNote), slog.String("error", err.Error()))
	}

	entries, err := os.ReadDir(filepath.Join(f.root, filepath.FromSlash(f.layout.DailyDir)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("storage: skipping daily dir", slog.String("path", f.layout.DailyDir), slog.String("error", err.Error()))
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		m, err := f.stat(path.Join(f.layout.DailyDir, e.Name()))
		if err != nil {
			f.logger.Warn("storage: stat failed", slog.String("path", e.Name()), slog.String("error", err.Error()))
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *FS) stat(rel string) (models.NoteMetadata, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return models.NoteMetadata{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.NoteMetadata{}, err
	}
	date, daily := models.DailyDate(f.layout.DailyDir, rel)
	return models.NoteMetadata{
		Name:      path.Base(rel),
		Path:      rel,
		IsDaily:   daily,
		Date:      date,
		Size:      info.Size(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Load reads every listed note. A note that cannot be read is logged and
// left out of the snapshot.
func (f *FS) Load(ctx context.Context) ([]models.Note, error) {
	metas, err := f.List()
	if err != nil {
		return nil, err
	}
	notes := make([]models.Note, 0, len(metas))
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := f.Read(m.Path)
		if err != nil {
			f.logger.Warn("storage: skipping unreadable note", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		notes = append(notes, models.Note{NoteMetadata: m, Content: string(data)})
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].Path < notes[j].Path })
	return notes, nil
}

// Read returns the raw bytes of a workspace file.
func (f *FS) Read(rel string) ([]byte, error) {
	abs, err := f.safePath(rel)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("storage: read %s: %w", rel, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("storage: read %s: %w", rel, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
// Only the long-term note and markdown files in the daily dir may be written.
func (f *FS) Write(rel string, content []byte) error {
	if !strings.HasSuffix(rel, ".md") {
		return fmt.Errorf("storage: not a markdown file: %s: %w", rel, apperr.ErrInvalidPath)
	}
	abs, err := f.safePath(rel)
	if err != nil {
		return err
	}
	if !f.inLayout(rel) {
		return fmt.Errorf("storage: outside the corpus layout: %s: %w", rel, apperr.ErrInvalidPath)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".memdash-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
