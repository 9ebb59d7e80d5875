package archive

import (
	"context"
	"fmt"

	"github.com/newthinker/moverscan/internal/core"
)

// Storage defines the interface for report archive backends
type Storage interface {
	// Write stores data at the given path
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths matching the prefix
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// Config selects and configures a backend.
type Config struct {
	Type string // "localfs" or "s3"
	Path string
	S3   S3Config
}

// Open creates the backend named by cfg.Type.
func Open(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "localfs":
		fs, err := NewLocalFS(cfg.Path)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case "s3":
		s, err := NewS3(cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown archive type %q", cfg.Type))
	}
}
