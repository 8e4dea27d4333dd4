// Package media stores uploaded post images on disk under content-derived names.
package media

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/crypto/sha3"
)

// MaxImageSize is the largest upload accepted.
const MaxImageSize = 5 << 20

// PostsDir is the directory, relative to the root, holding post images.
const PostsDir = "posts"

var (
	ErrNotImage = errors.New("upload a valid image: the file is not an image or is corrupted")
	ErrTooLarge = errors.New("image is too large")
)

var imageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/bmp",
	"image/tiff",
}

// Sniff returns the detected extension of an image, or ErrNotImage.
func Sniff(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrNotImage
	}
	mtype := mimetype.Detect(data)
	for _, t := range imageTypes {
		if mtype.Is(t) {
			return mtype.Extension(), nil
		}
	}
	return "", ErrNotImage
}

// FileStore writes images below Root.
type FileStore struct {
	Root string
}

// NewFileStore prepares root for writing.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(root, PostsDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &FileStore{Root: root}, nil
}

// Save validates data and writes it as posts/<sha3-256>.<ext>, returning the
// slash-separated path relative to Root. Identical uploads share one file;
// created is false when the file was already there.
func (s *FileStore) Save(data []byte) (rel string, created bool, err error) {
	if len(data) > MaxImageSize {
		return "", false, ErrTooLarge
	}
	ext, err := Sniff(data)
	if err != nil {
		return "", false, err
	}
	sum := sha3.Sum256(data)
	rel = path.Join(PostsDir, hex.EncodeToString(sum[:])+ext)

	full := filepath.Join(s.Root, filepath.FromSlash(rel))
	if _, err := os.Stat(full); err == nil {
		return rel, false, nil
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write image: %w", err)
	}
	return rel, true, nil
}

// Remove deletes the file at rel. A missing file is not an error.
func (s *FileStore) Remove(rel string) error {
	err := os.Remove(filepath.Join(s.Root, filepath.FromSlash(path.Clean("/"+rel))))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove image: %w", err)
	}
	return nil
}

// Handler serves stored files; mount it under a stripped prefix. Directory
// paths answer 404 instead of a listing.
func (s *FileStore) Handler() http.Handler {
	files := http.FileServer(http.Dir(s.Root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		info, err := os.Stat(filepath.Join(s.Root, filepath.FromSlash(name)))
		if err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
