package snapshotters

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/hankgalt/partition-orchestra/pkg/domain"
)

const (
	ERR_SNAPSHOT_NIL_REPORT = "local file snapshotter: report is nil"
	ERR_SNAPSHOT_EMPTY_KEY  = "local file snapshotter: key is required"
)

var (
	ErrSnapshotNilReport = errors.New(ERR_SNAPSHOT_NIL_REPORT)
	ErrSnapshotEmptyKey  = errors.New(ERR_SNAPSHOT_EMPTY_KEY)
)

const LocalFileSnapshotter = "local-file-snapshotter"

type localFileSnapshotter struct {
	path string
}

// Name of the snapshotter.
func (s localFileSnapshotter) Name() string { return LocalFileSnapshotter }

// Close closes the local file snapshotter.
func (s localFileSnapshotter) Close(ctx context.Context) error {
	// No resources to close for local file snapshotter
	return nil
}

// Snapshot writes report as indented JSON to <path>/<key>.json.
func (s localFileSnapshotter) Snapshot(ctx context.Context, key string, report *domain.ExecutionReport) error {
	if report == nil {
		return ErrSnapshotNilReport
	}
	if key == "" {
		return ErrSnapshotEmptyKey
	}

	dir := s.path
	if !filepath.IsAbs(dir) {
		// get current dir path
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		dir = filepath.Join(wd, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	snapshotBytes, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	fp := filepath.Join(dir, key+".json")
	return os.WriteFile(fp, append(snapshotBytes, '\n'), 0o644)
}

type LocalFileSnapshotterConfig struct {
	Path string
}

// Name of the snapshotter.
func (s LocalFileSnapshotterConfig) Name() string { return LocalFileSnapshotter }

func (s LocalFileSnapshotterConfig) BuildSnapshotter(ctx context.Context) (domain.Snapshotter, error) {
	return &localFileSnapshotter{
		path: s.Path,
	}, nil
}
