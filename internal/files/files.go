// Package files stores uploaded documents on the local filesystem.
package files

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"association-admin-api/internal/model"
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrNotFound    = errors.New("file not found")
	ErrTooLarge    = errors.New("file too large")
)

var safeExt = regexp.MustCompile(`^\.[a-zA-Z0-9]{1,10}$`)

type Storage struct {
	dir     string
	maxSize int64
}

// New creates dir if needed.
func New(dir string, maxSize int64) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload directory %s: %w", dir, err)
	}
	return &Storage{dir: dir, maxSize: maxSize}, nil
}

func (s *Storage) MaxSize() int64 { return s.maxSize }

// Save writes r under a generated name that keeps the original extension.
// Writes beyond maxSize fail with ErrTooLarge and leave nothing behind.
func (s *Storage) Save(r io.Reader, originalName, contentType string) (*model.File, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !safeExt.MatchString(ext) {
		ext = ""
	}
	name := uuid.New().String() + ext
	path := filepath.Join(s.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	return &model.File{
		Name:         name,
		OriginalName: filepath.Base(originalName),
		Size:         n,
		ContentType:  contentType,
		UploadedAt:   time.Now(),
	}, nil
}

// Open returns the stored file. name must be a bare file name.
func (s *Storage) Open(name string) (*os.File, os.FileInfo, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, nil, ErrInvalidName
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, info, nil
}
