package shutdown_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kevin07696/card-gateway/pkg/shutdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestManager_ShutdownOrderAndErrors(t *testing.T) {
	m := shutdown.NewManager(zap.NewNop(), time.Second)
	var order []string
	boom := errors.New("boom")

	m.RegisterNoErr("redis", func() { order = append(order, "redis") })
	m.RegisterCloser("kafka", closerFunc(func() error {
		order = append(order, "kafka")
		return boom
	}))
	m.Register("http", func(ctx context.Context) error {
		order = append(order, "http")
		return nil
	})

	errs := m.Shutdown()

	assert.Equal(t, []string{"http", "kafka", "redis"}, order)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs["kafka"], boom)
}

func TestManager_RegisterWaitTimesOut(t *testing.T) {
	m := shutdown.NewManager(zap.NewNop(), 50*time.Millisecond)
	block := make(chan struct{})
	defer close(block)

	m.RegisterWait("bin corrections", func() { <-block })

	errs := m.Shutdown()

	assert.ErrorIs(t, errs["bin corrections"], context.DeadlineExceeded)
}

func TestManager_RegisterWaitCompletes(t *testing.T) {
	m := shutdown.NewManager(zap.NewNop(), time.Second)
	m.RegisterWait("bin corrections", func() {})

	assert.Empty(t, m.Shutdown())
}

func TestManager_ShutdownRunsOnce(t *testing.T) {
	m := shutdown.NewManager(zap.NewNop(), time.Second)
	calls := 0
	m.RegisterNoErr("rate limiter", func() { calls++ })

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, 1, calls)
}

func TestManager_WaitForShutdownOnCancel(t *testing.T) {
	m := shutdown.NewManager(zap.NewNop(), time.Second)
	stopped := false
	m.RegisterNoErr("http server", func() { stopped = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, m.WaitForShutdown(ctx))
	assert.True(t, stopped)
}
