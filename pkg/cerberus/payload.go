// Package cerberus resolves the invocation payload from where the operator
// keeps it: inline, a local file, an environment variable or SSM Parameter Store.
package cerberus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrUnsupportedRef is returned by a source that does not handle a reference.
var ErrUnsupportedRef = errors.New("unsupported payload reference")

// PayloadSource resolves payload references to bytes.
type PayloadSource interface {
	Resolve(ctx context.Context, ref string) ([]byte, error)
}

// FileSource reads file://path references.
type FileSource struct{}

func (FileSource) Resolve(ctx context.Context, ref string) ([]byte, error) {
	path, ok := strings.CutPrefix(ref, "file://")
	if !ok {
		return nil, ErrUnsupportedRef
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload file: %w", err)
	}
	return data, nil
}

// EnvSource reads env:VAR_NAME references.
type EnvSource struct{}

func (EnvSource) Resolve(ctx context.Context, ref string) ([]byte, error) {
	key, ok := strings.CutPrefix(ref, "env:")
	if !ok {
		return nil, ErrUnsupportedRef
	}
	val, ok := os.LookupEnv(key)
	if !ok {
		return nil, fmt.Errorf("payload environment variable not found: %s", key)
	}
	return []byte(val), nil
}

// Resolver tries each source in order. A reference no source claims is used
// verbatim as the payload.
type Resolver struct {
	sources []PayloadSource
}

func NewResolver(sources ...PayloadSource) *Resolver {
	return &Resolver{sources: sources}
}

func (r *Resolver) Resolve(ctx context.Context, ref string) ([]byte, error) {
	for _, s := range r.sources {
		data, err := s.Resolve(ctx, ref)
		if errors.Is(err, ErrUnsupportedRef) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return data, nil
	}
	return []byte(ref), nil
}
