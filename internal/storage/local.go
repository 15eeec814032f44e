package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/metrics"
	"github.com/google/uuid"
)

const recipeImageDir = "recipes"

// LocalImageStore writes images under root and serves them from baseURL
type LocalImageStore struct {
	root    string
	baseURL string
}

// NewLocalImageStore creates the recipes directory under root if needed
func NewLocalImageStore(root, baseURL string) (*LocalImageStore, error) {
	if err := os.MkdirAll(filepath.Join(root, recipeImageDir), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalImageStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Root is the directory served under the media URL
func (s *LocalImageStore) Root() string {
	return s.root
}

func (s *LocalImageStore) Save(ctx context.Context, img *Image) (string, error) {
	name := path.Join(recipeImageDir, uuid.NewString()+img.Extension)
	err := os.WriteFile(filepath.Join(s.root, filepath.FromSlash(name)), img.Data, 0o644)
	metrics.RecordImageOperation("local", "save", err)
	if err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	log.WithField("name", name).Debug("Image saved")
	return s.baseURL + "/" + name, nil
}

func (s *LocalImageStore) Delete(ctx context.Context, ref string) error {
	name, ok := strings.CutPrefix(ref, s.baseURL+"/")
	if !ok || !strings.HasPrefix(name, recipeImageDir+"/") || strings.Contains(name, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(name)))
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	metrics.RecordImageOperation("local", "delete", err)
	return err
}
