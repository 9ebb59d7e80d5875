package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/moverscan/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	name       string
	batches    [][]core.Signal
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Init(cfg Config) error { return nil }

func (m *mockNotifier) Send(ctx context.Context, signal core.Signal) error {
	return m.SendBatch(ctx, "", []core.Signal{signal})
}

func (m *mockNotifier) SendBatch(ctx context.Context, runID string, signals []core.Signal) error {
	m.batches = append(m.batches, signals)
	if m.shouldFail {
		return errors.New("batch send failed")
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	require.NoError(t, r.Register(mock))

	err := r.Register(mock)
	assert.True(t, errors.Is(err, core.ErrConfigInvalid), "duplicate registration should fail")
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "test"})

	n, err := r.Get("test")
	require.NoError(t, err)
	assert.Equal(t, "test", n.Name())

	_, err = r.Get("nonexistent")
	assert.Error(t, err)
}

func TestRegistry_GetAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockNotifier{name: "b"})
	r.Register(&mockNotifier{name: "a"})

	all := r.GetAll()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Name())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_NotifyAllBatch(t *testing.T) {
	r := NewRegistry()
	ok := &mockNotifier{name: "n1"}
	bad := &mockNotifier{name: "n2", shouldFail: true}
	r.Register(ok)
	r.Register(bad)

	errs := r.NotifyAllBatch(context.Background(), "run-1", []core.Signal{
		{Symbol: "A", Action: core.ActionBuy},
		{Symbol: "B", Action: core.ActionShort},
	})

	require.Len(t, errs, 1)
	assert.Contains(t, errs, "n2")
	require.Len(t, ok.batches, 1)
	assert.Len(t, ok.batches[0], 2)
}
