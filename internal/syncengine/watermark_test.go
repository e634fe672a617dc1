package syncengine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func storedMax(ts *time.Time) WatermarkStore {
	return WatermarkStoreFunc(func(ctx context.Context, partition string) (*time.Time, error) {
		return ts, nil
	})
}

func TestResolveEmptyPartitionIsEpoch(t *testing.T) {
	wm, err := Resolver{Store: storedMax(nil)}.Resolve(context.Background(), "org/repo")
	require.NoError(t, err)
	require.True(t, wm.Equal(Epoch))
}

func TestResolveUsesStoredMax(t *testing.T) {
	m := at(800)
	wm, err := Resolver{Store: storedMax(&m)}.Resolve(context.Background(), "org/repo")
	require.NoError(t, err)
	require.True(t, wm.Equal(m))
}

func TestResolveForceResyncTakesPrecedence(t *testing.T) {
	m := at(800)
	later := at(900)
	earlier := at(100)

	wm, err := Resolver{Store: storedMax(&m), ForceResyncFrom: &later}.Resolve(context.Background(), "p")
	require.NoError(t, err)
	require.True(t, wm.Equal(later), "override must win even when later than stored max")

	floor := at(50)
	wm, err = Resolver{Store: storedMax(&m), ForceResyncFrom: &earlier, SyncFrom: &floor}.Resolve(context.Background(), "p")
	require.NoError(t, err)
	require.True(t, wm.Equal(earlier), "override is not clamped by the floor")
}

func TestResolveFloorOnlyWidens(t *testing.T) {
	m := at(800)
	floor := at(300)
	wm, err := Resolver{Store: storedMax(&m), SyncFrom: &floor}.Resolve(context.Background(), "p")
	require.NoError(t, err)
	require.True(t, wm.Equal(floor))

	late := at(1000)
	wm, err = Resolver{Store: storedMax(&m), SyncFrom: &late}.Resolve(context.Background(), "p")
	require.NoError(t, err)
	require.True(t, wm.Equal(m), "a floor later than the stored max must not narrow the window")

	wm, err = Resolver{Store: storedMax(nil), SyncFrom: &late}.Resolve(context.Background(), "p")
	require.NoError(t, err)
	require.True(t, wm.Equal(Epoch))
}

func TestResolveStoreError(t *testing.T) {
	boom := errors.New("db down")
	store := WatermarkStoreFunc(func(ctx context.Context, partition string) (*time.Time, error) {
		return nil, boom
	})
	_, err := Resolver{Store: store}.Resolve(context.Background(), "p")
	require.ErrorIs(t, err, boom)
}
