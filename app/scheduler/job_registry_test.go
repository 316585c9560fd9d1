package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerStub struct {
	mu       sync.Mutex
	executed []uint
	done     chan uint
}

func newRunnerStub() *runnerStub {
	return &runnerStub{done: make(chan uint, 8)}
}

func (r *runnerStub) Execute(ctx context.Context, campaignID uint) error {
	r.mu.Lock()
	r.executed = append(r.executed, campaignID)
	r.mu.Unlock()
	r.done <- campaignID
	return nil
}

func TestJobRegistryRegisterAndCancel(t *testing.T) {
	registry, err := NewJobRegistry(newRunnerStub(), nil)
	require.NoError(t, err)
	defer func() { _ = registry.Shutdown() }()

	require.NoError(t, registry.Register(1, "0 9 * * 1"))
	assert.True(t, registry.Registered(1))
	assert.False(t, registry.Registered(2))

	registry.Cancel(1)
	assert.False(t, registry.Registered(1))

	// cancelling an unknown campaign is harmless
	registry.Cancel(99)
}

func TestJobRegistryRegisterReplacesTimer(t *testing.T) {
	registry, err := NewJobRegistry(newRunnerStub(), nil)
	require.NoError(t, err)
	defer func() { _ = registry.Shutdown() }()

	require.NoError(t, registry.Register(1, "0 9 * * 1"))
	require.NoError(t, registry.Register(1, "0 18 * * 5"))
	assert.True(t, registry.Registered(1))

	registry.Cancel(1)
	assert.False(t, registry.Registered(1))
}

func TestJobRegistryRejectsBadExpressions(t *testing.T) {
	registry, err := NewJobRegistry(newRunnerStub(), nil)
	require.NoError(t, err)
	defer func() { _ = registry.Shutdown() }()

	assert.Error(t, registry.Register(1, ""))
	assert.Error(t, registry.Register(1, "not a cron line"))
	assert.False(t, registry.Registered(1))
}
