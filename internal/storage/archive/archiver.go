package archive

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/metrics"
	"go.uber.org/zap"
)

// Artifact is one named file produced by a run.
type Artifact struct {
	Name string // Relative path inside the run directory, e.g. "trades/SPY_threshold.log"
	Data []byte
}

// Archiver stores run artifacts under runs/YYYY/MM/DD/<run id>/.
type Archiver struct {
	store   Storage
	backend string
	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewArchiver wraps store. backend labels metrics and logs.
func NewArchiver(store Storage, backend string, logger *zap.Logger, reg *metrics.Registry) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{store: store, backend: backend, logger: logger, metrics: reg}
}

// RunPrefix returns the directory holding the artifacts of a run.
func RunPrefix(runID string, at time.Time) string {
	at = at.UTC()
	return path.Join("runs", at.Format("2006"), at.Format("01"), at.Format("02"), runID)
}

// Archive writes every artifact and returns the run prefix.
// Writing stops at the first failure.
func (a *Archiver) Archive(ctx context.Context, runID string, at time.Time, artifacts []Artifact) (string, error) {
	prefix := RunPrefix(runID, at)

	for _, art := range artifacts {
		if err := ctx.Err(); err != nil {
			return prefix, err
		}
		p := path.Join(prefix, art.Name)
		if err := a.store.Write(ctx, p, art.Data); err != nil {
			a.record("failed")
			a.logger.Error("archive write failed",
				zap.String("backend", a.backend),
				zap.String("path", p),
				zap.Error(err),
			)
			return prefix, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("%s: %w", p, err))
		}
	}

	a.record("success")
	a.logger.Info("run archived",
		zap.String("backend", a.backend),
		zap.String("prefix", prefix),
		zap.Int("artifacts", len(artifacts)),
	)
	return prefix, nil
}

// Load reads one artifact of a previously archived run.
func (a *Archiver) Load(ctx context.Context, runID string, at time.Time, name string) ([]byte, error) {
	return a.store.Read(ctx, path.Join(RunPrefix(runID, at), name))
}

func (a *Archiver) record(status string) {
	if a.metrics != nil {
		a.metrics.RecordArchiveWrite(a.backend, status)
	}
}
