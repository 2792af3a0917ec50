package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcity/intersection/internal/domain"
)

type stubController struct {
	key  string
	runs int
	mu   sync.Mutex
}

func (s *stubController) Key() string { return s.key }

func (s *stubController) Status() domain.Status {
	return domain.Status{Mode: s.key, Signal: domain.SignalOK}
}

func (s *stubController) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func TestRegistry_FirstRegisteredIsActive(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubController{key: "traffic"}))
	require.NoError(t, r.Register(&stubController{key: "helmet"}))

	assert.Equal(t, "traffic", r.ActiveKey())
	assert.Equal(t, []string{"helmet", "traffic"}, r.Keys())

	active, err := r.Active()
	require.NoError(t, err)
	assert.Equal(t, "traffic", active.Status().Mode)
}

func TestRegistry_SwitchMode(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubController{key: "traffic"}))
	require.NoError(t, r.Register(&stubController{key: "helmet"}))

	require.NoError(t, r.SetActive("helmet"))
	assert.Equal(t, "helmet", r.ActiveKey())

	err := r.SetActive("parking")
	assert.ErrorIs(t, err, ErrUnknownController)
	assert.Equal(t, "helmet", r.ActiveKey(), "invalid mode leaves selection unchanged")
}

func TestRegistry_DuplicateAndUnknown(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&stubController{key: "traffic"}))
	assert.Error(t, r.Register(&stubController{key: "traffic"}))

	_, err := r.Get("helmet")
	assert.ErrorIs(t, err, ErrUnknownController)

	_, err = NewRegistry().Active()
	assert.ErrorIs(t, err, ErrUnknownController)
}

func TestRegistry_StartRunsEveryController(t *testing.T) {
	r := NewRegistry()
	a, b := &stubController{key: "a"}, &stubController{key: "b"}
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))

	var mu sync.Mutex
	exited := map[string]error{}
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx, func(key string, err error) {
		mu.Lock()
		exited[key] = err
		mu.Unlock()
	})
	cancel()
	r.Wait()

	assert.Len(t, exited, 2)
	assert.ErrorIs(t, exited["a"], context.Canceled)
	assert.Equal(t, 1, a.runs)
	assert.Equal(t, 1, b.runs)
}
