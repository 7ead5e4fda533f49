package assets

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/cppla/toolshed/common"
)

// Store keeps uploaded originals on the asset filesystem.
// Paths handed out and accepted are relative to the filesystem root, e.g. "uploads/1700000000000-1a2b3c4d.jpg".
type Store struct {
	fs        afero.Fs
	uploadDir string
	now       func() time.Time
}

// NewStore creates a Store writing new uploads under uploadDir.
func NewStore(fs afero.Fs, uploadDir string) *Store {
	return &Store{fs: fs, uploadDir: path.Clean(filepath.ToSlash(uploadDir)), now: time.Now}
}

// NewOsFs returns the production asset filesystem rooted at dir.
func NewOsFs(dir string) afero.Fs {
	return afero.NewBasePathFs(afero.NewOsFs(), dir)
}

// Fs exposes the underlying filesystem so the variant cache can share it.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// HTTP serves the upload directory, originals and variants alike. Directories are not listed.
func (s *Store) HTTP() http.FileSystem {
	return filesOnly{afero.NewHttpFs(s.fs).Dir(s.uploadDir)}
}

type filesOnly struct {
	http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	if st, err := file.Stat(); err != nil || st.IsDir() {
		_ = file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

// UploadDir is the directory, relative to the asset root, that new uploads land in.
func (s *Store) UploadDir() string {
	return s.uploadDir
}

// Save writes r under a fresh name that keeps the extension of originalName and returns its path.
func (s *Store) Save(r io.Reader, originalName string) (string, error) {
	if err := s.fs.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create upload directory: %v", common.ErrFilesystem, err)
	}

	name := s.newName(originalName)
	f, err := s.fs.Create(name)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", common.ErrFilesystem, name, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(name)
		return "", fmt.Errorf("%w: write %s: %v", common.ErrFilesystem, name, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(name)
		return "", fmt.Errorf("%w: close %s: %v", common.ErrFilesystem, name, err)
	}
	return name, nil
}

// Remove deletes a stored file. Removing a missing file is an error wrapping fs.ErrNotExist.
func (s *Store) Remove(p string) error {
	if err := s.fs.Remove(p); err != nil {
		return fmt.Errorf("%w: remove %s: %w", common.ErrFilesystem, p, err)
	}
	return nil
}

// Exists reports whether a file is present at p.
func (s *Store) Exists(p string) (bool, error) {
	ok, err := afero.Exists(s.fs, p)
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", common.ErrFilesystem, p, err)
	}
	return ok, nil
}

func (s *Store) newName(originalName string) string {
	ext := Ext(originalName)
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return path.Join(s.uploadDir, fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), id, ext))
}
