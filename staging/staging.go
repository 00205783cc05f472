// Package staging uploads named datasets into the remote execution
// environment and produces the code preamble that loads them as variables.
package staging

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/hupe1980/analystloop/logging"
	"github.com/hupe1980/analystloop/sandbox"
	"github.com/hupe1980/analystloop/tabular"
)

// DefaultDataDir is the sandbox directory datasets are staged into.
const DefaultDataDir = "/home/user/data"

// ErrStage classifies any staging failure.
var ErrStage = errors.New("staging failed")

// Error reports the dataset whose upload failed. Staging stops at the first
// failure.
type Error struct {
	Dataset    string
	RemotePath string
	Err        error
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("stage dataset %q to %s: %v", e.Dataset, e.RemotePath, e.Err)
}

// Unwrap returns the underlying upload or encoding error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is ErrStage.
func (e *Error) Is(target error) bool { return target == ErrStage }

// Options configure a Stager.
type Options struct {
	// DataDir is the remote directory; defaults to DefaultDataDir.
	DataDir string
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Stager serializes datasets to CSV and uploads them through a sandbox
// Uploader.
type Stager struct {
	uploader sandbox.Uploader
	opts     Options
}

// New creates a Stager.
func New(uploader sandbox.Uploader, optFns ...func(o *Options)) *Stager {
	opts := Options{
		DataDir: DefaultDataDir,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Stager{uploader: uploader, opts: opts}
}

// RemotePath returns the deterministic sandbox path for a dataset name.
func (s *Stager) RemotePath(name string) string {
	return path.Join(s.opts.DataDir, name+".csv")
}

// Stage uploads every dataset in order and returns the preamble that loads
// them. A later dataset with the same name overwrites the earlier upload and
// variable. An empty input yields an empty preamble and no uploads.
func (s *Stager) Stage(ctx context.Context, datasets []*tabular.Dataset) (string, error) {
	if len(datasets) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString("import pandas as pd\n")

	for _, ds := range datasets {
		remote := s.RemotePath(ds.Name())
		start := time.Now()

		data, err := ds.EncodeCSV()
		if err != nil {
			return "", &Error{Dataset: ds.Name(), RemotePath: remote, Err: err}
		}

		if err := s.uploader.Upload(ctx, data, remote); err != nil {
			s.opts.Logger.Error("staging.upload.failed", "dataset", ds.Name(), "path", remote, "error", err.Error())
			return "", &Error{Dataset: ds.Name(), RemotePath: remote, Err: err}
		}

		s.opts.Logger.Debug("staging.upload.completed",
			"dataset", ds.Name(),
			"path", remote,
			"bytes", len(data),
			"duration_ms", time.Since(start).Milliseconds(),
		)

		fmt.Fprintf(&sb, "%s = pd.read_csv(%q)\n", ds.Name(), remote)
	}

	return sb.String(), nil
}
