package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/newthinker/moverscan/internal/metrics"
)

type failingStorage struct{ Storage }

func (failingStorage) Write(ctx context.Context, path string, data []byte) error {
	return errors.New("disk full")
}

func TestRunPrefix(t *testing.T) {
	at := time.Date(2024, 3, 9, 23, 0, 0, 0, time.FixedZone("EST", -5*3600))
	if got := RunPrefix("abc", at); got != "runs/2024/03/10/abc" {
		t.Errorf("RunPrefix() = %q", got)
	}
}

func TestArchiver_Archive(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	a := NewArchiver(fs, "localfs", nil, metrics.NewRegistry())
	ctx := context.Background()
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	prefix, err := a.Archive(ctx, "run-1", at, []Artifact{
		{Name: "report.json", Data: []byte(`{"ok":true}`)},
		{Name: "trades/SPY_threshold.log", Data: []byte("log")},
	})
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if prefix != "runs/2024/03/01/run-1" {
		t.Errorf("unexpected prefix %q", prefix)
	}

	paths, _ := fs.List(ctx, prefix)
	if len(paths) != 2 {
		t.Errorf("expected 2 artifacts, got %v", paths)
	}

	got, err := a.Load(ctx, "run-1", at, "trades/SPY_threshold.log")
	if err != nil || string(got) != "log" {
		t.Errorf("Load() = %q, %v", got, err)
	}
}

func TestArchiver_WriteFailure(t *testing.T) {
	a := NewArchiver(failingStorage{}, "broken", nil, nil)

	_, err := a.Archive(context.Background(), "run-1", time.Now(), []Artifact{{Name: "report.json"}})
	if !errors.Is(err, core.ErrArchiveFailed) {
		t.Errorf("expected ErrArchiveFailed, got %v", err)
	}
}
