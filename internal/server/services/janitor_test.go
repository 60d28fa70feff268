package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/clock"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/revokedtokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPruner struct {
	calls atomic.Int32
	err   error
}

func (p *countingPruner) Prune(context.Context, time.Time) (int64, error) {
	p.calls.Add(1)
	return 0, p.err
}

func TestJanitor_RunOncePrunesExpired(t *testing.T) {
	ctx := context.Background()
	store := revokedtokens.NewMemoryRepository()
	require.NoError(t, store.Revoke(ctx, &models.RevokedToken{TokenID: "short", ExpiresAt: t0.Add(time.Minute), RevokedAt: t0}))
	require.NoError(t, store.Revoke(ctx, &models.RevokedToken{TokenID: "long", ExpiresAt: t0.Add(time.Hour), RevokedAt: t0}))

	c := clock.NewManual(t0.Add(time.Minute))
	j := NewJanitor(store, c, time.Minute, nil)

	removed, err := j.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, store.Len())

	revoked, err := store.IsRevoked(ctx, "long")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestJanitor_RunOnceError(t *testing.T) {
	j := NewJanitor(&countingPruner{err: errBoom{}}, clock.NewManual(t0), time.Minute, nil)

	_, err := j.RunOnce(context.Background())
	assert.ErrorIs(t, err, errBoom{})
}

func TestJanitor_RunTicksUntilCancelled(t *testing.T) {
	p := &countingPruner{err: errBoom{}}
	j := NewJanitor(p, clock.System{}, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestJanitor_DisabledReturnsImmediately(t *testing.T) {
	p := &countingPruner{}
	j := NewJanitor(p, clock.System{}, 0, nil)

	require.NoError(t, j.Run(context.Background()))
	assert.Zero(t, p.calls.Load())
}
