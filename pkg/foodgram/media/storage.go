package media

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// RecipeImagesDir is where recipe images live, relative to the media root.
const RecipeImagesDir = "recipes/images"

// Storage keeps uploaded files and resolves their public URLs.
type Storage interface {
	// Save stores the upload and returns its path relative to the media root.
	Save(u *Upload) (string, error)
	// Delete removes a stored file; a missing file is not an error.
	Delete(rel string) error
	// URL returns the public path of a stored file, e.g. /media/recipes/images/x.png.
	URL(rel string) string
}

// LocalStorage stores files under a directory on disk.
type LocalStorage struct {
	root      string
	urlPrefix string
}

// NewLocalStorage creates the image directory under root if needed.
func NewLocalStorage(root, urlPrefix string) (*LocalStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("media root cannot be empty")
	}
	if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(RecipeImagesDir)), 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	if urlPrefix == "" {
		urlPrefix = "/media/"
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &LocalStorage{root: root, urlPrefix: urlPrefix}, nil
}

// Save writes the upload as <stem>_<random>.<ext> so names never collide.
func (s *LocalStorage) Save(u *Upload) (string, error) {
	if u == nil || len(u.Data) == 0 {
		return "", fmt.Errorf("image data cannot be empty")
	}
	ext := path.Ext(u.Name)
	stem := strings.TrimSuffix(path.Base(u.Name), ext)
	name := fmt.Sprintf("%s_%s%s", stem, strings.ReplaceAll(uuid.NewString(), "-", "")[:12], ext)
	rel := path.Join(RecipeImagesDir, name)

	if err := os.WriteFile(s.Path(rel), u.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return rel, nil
}

// Delete removes a stored file.
func (s *LocalStorage) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	if err := os.Remove(s.Path(rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

// URL returns the public path for rel.
func (s *LocalStorage) URL(rel string) string {
	if rel == "" {
		return ""
	}
	return s.urlPrefix + rel
}

// Root is the directory files are served from.
func (s *LocalStorage) Root() string {
	return s.root
}

// Path returns the filesystem path for rel. Paths escaping the root are clamped to it.
func (s *LocalStorage) Path(rel string) string {
	clean := path.Clean("/" + rel)
	return filepath.Join(s.root, filepath.FromSlash(clean))
}
