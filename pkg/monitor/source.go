package monitor

import (
	"context"
	"fmt"
	"os"

	"github.com/pario-ai/tokopt/pkg/models"
)

// UsageSource supplies the usage mapping for each check.
type UsageSource interface {
	Load(ctx context.Context) (models.Usage, error)
	Name() string
}

// FileSource reads a JSON usage mapping from disk on every Load.
type FileSource struct {
	Path string
}

// Load reads and parses the usage file.
func (f *FileSource) Load(ctx context.Context) (models.Usage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read usage file: %w", err)
	}
	return models.ParseUsage(data)
}

// Name returns the file path.
func (f *FileSource) Name() string {
	return f.Path
}
