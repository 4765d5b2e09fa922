package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kartoza/goodspeed/internal/config"
)

// ErrNotFound is returned when an artifact does not exist
var ErrNotFound = errors.New("artifact not found")

// Namespace is a flat, read-only listing of named artifacts
type Namespace interface {
	// List returns artifact names in lexical order.
	List(ctx context.Context) ([]string, error)

	// Exists reports whether the named artifact is present.
	Exists(ctx context.Context, name string) (bool, error)

	// Open returns the artifact content.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Close releases backend resources.
	Close() error

	// String describes the namespace location for logs.
	String() string
}

// New opens the namespace described by cfg
func New(cfg config.StorageConfig) (Namespace, error) {
	switch cfg.Type {
	case config.StorageTypeDir:
		return NewDir(cfg.Dir)
	case config.StorageTypeSQLite:
		return NewSQLite(cfg.Path)
	case config.StorageTypeS3:
		return NewS3(cfg.Region, cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.Prefix)
	case config.StorageTypeOSS:
		return NewOSS(cfg.Endpoint, cfg.AccessKey, cfg.SecretKey, cfg.Bucket, cfg.Prefix)
	}

	return nil, fmt.Errorf("unknown storage type %s", cfg.Type)
}

// ReadAll reads a whole artifact
func ReadAll(ctx context.Context, ns Namespace, name string) ([]byte, error) {
	rc, err := ns.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// validName rejects names that could escape a flat namespace
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	return nil
}
