package erebus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/tartarus-sandbox/coldstart/pkg/domain"
	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("report not found")

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Archive writes run reports into a Store.
type Archive struct {
	Store  Store
	Format Format
}

func NewArchive(store Store, format Format) *Archive {
	if format == "" {
		format = FormatJSON
	}
	return &Archive{Store: store, Format: format}
}

// Key is runs/<function>/<started>-<id>.<ext>, so a listing sorts by time.
func (a *Archive) Key(run *domain.Run) string {
	return path.Join("runs", run.Function.Name(),
		fmt.Sprintf("%s-%s.%s", run.StartedAt.UTC().Format("20060102T150405Z"), run.ID, a.Format))
}

// Save encodes run and stores it under Key.
func (a *Archive) Save(ctx context.Context, run *domain.Run) error {
	var buf bytes.Buffer
	switch a.Format {
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(run); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	default:
		return fmt.Errorf("unsupported report format %q", a.Format)
	}

	if err := a.Store.Put(ctx, a.Key(run), &buf); err != nil {
		return fmt.Errorf("failed to store report for run %s: %w", run.ID, err)
	}
	return nil
}

// Delete removes the report of run. It reports whether one was stored.
func (a *Archive) Delete(ctx context.Context, run *domain.Run) (bool, error) {
	key := a.Key(run)
	exists, err := a.Store.Exists(ctx, key)
	if err != nil || !exists {
		return false, err
	}
	if err := a.Store.Delete(ctx, key); err != nil {
		return false, fmt.Errorf("failed to delete report for run %s: %w", run.ID, err)
	}
	return true, nil
}

// Load reads a report written by Save. The format follows the key extension.
func (a *Archive) Load(ctx context.Context, key string) (*domain.Run, error) {
	rc, err := a.Store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("report %s: %w", key, ErrNotFound)
		}
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var run domain.Run
	if strings.HasSuffix(key, ".yaml") {
		err = yaml.Unmarshal(data, &run)
	} else {
		err = json.Unmarshal(data, &run)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", key, err)
	}
	return &run, nil
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".yaml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}
