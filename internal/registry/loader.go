package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ggufchat/internal/common/fsutil"
	"ggufchat/pkg/types"
)

// Scanner discovers model files in a directory.
type Scanner interface {
	Scan(dir string) ([]types.Model, error)
}

// GGUFScanner lists *.gguf files (case-insensitive) directly under a directory.
type GGUFScanner struct{}

func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{} }

// Scan builds a sorted model list from file names. ID is the file name, Name
// drops the extension, Path is absolute.
func (GGUFScanner) Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !IsModelFile(name) {
			continue
		}
		m := types.Model{
			ID:   name,
			Name: name[:len(name)-len(types.ModelExt)],
			Path: filepath.Join(abs, name),
		}
		if fi, err := e.Info(); err == nil {
			m.SizeBytes = fi.Size()
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// LoadDir scans dir with the default GGUF scanner.
func LoadDir(dir string) ([]types.Model, error) {
	return NewGGUFScanner().Scan(dir)
}

// IsModelFile reports whether name carries the model file extension.
func IsModelFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), types.ModelExt)
}
