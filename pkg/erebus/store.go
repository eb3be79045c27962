package erebus

import (
	"context"
	"io"
)

// Store is Erebus: the archive that keeps benchmark reports after the run.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
