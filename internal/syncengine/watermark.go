package syncengine

import (
	"context"
	"fmt"
	"time"
)

// Epoch is the watermark of a partition with no stored rows.
var Epoch = time.Unix(0, 0).UTC()

type WatermarkStore interface {
	MaxLastModified(ctx context.Context, partition string) (*time.Time, error)
}

type WatermarkStoreFunc func(ctx context.Context, partition string) (*time.Time, error)

func (f WatermarkStoreFunc) MaxLastModified(ctx context.Context, partition string) (*time.Time, error) {
	return f(ctx, partition)
}

// Resolver computes the resume point of a partition.
//
// ForceResyncFrom replaces the stored watermark outright, even when it is
// later than what is stored. SyncFrom only ever widens the window: the result
// is min(stored, SyncFrom).
type Resolver struct {
	Store           WatermarkStore
	SyncFrom        *time.Time
	ForceResyncFrom *time.Time
}

func (r Resolver) Resolve(ctx context.Context, partition string) (time.Time, error) {
	if r.ForceResyncFrom != nil {
		return r.ForceResyncFrom.UTC(), nil
	}
	watermark := Epoch
	if r.Store != nil {
		stored, err := r.Store.MaxLastModified(ctx, partition)
		if err != nil {
			return time.Time{}, fmt.Errorf("read watermark for %s: %w", partition, err)
		}
		if stored != nil && !stored.IsZero() {
			watermark = stored.UTC()
		}
	}
	if r.SyncFrom != nil && r.SyncFrom.Before(watermark) {
		watermark = r.SyncFrom.UTC()
	}
	return watermark, nil
}
