package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ilaif/athena-cycle/internal/models"
	"github.com/ilaif/athena-cycle/internal/passlock"
	"github.com/ilaif/athena-cycle/internal/repository"
	"github.com/ilaif/athena-cycle/internal/syncengine"
)

const (
	FamilyGitHub = "github"
	FamilyJira   = "jira"
)

// Family is one remote source whose partitions are synced together.
type Family interface {
	Name() string
	Sync(ctx context.Context) (FamilyResult, error)
}

type FamilyResult struct {
	Family     string                  `json:"family"`
	Skipped    bool                    `json:"skipped"`
	Passes     []syncengine.PassResult `json:"passes"`
	Errors     []string                `json:"errors,omitempty"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
}

func (r FamilyResult) Touched() int {
	total := 0
	for _, pass := range r.Passes {
		total += pass.Count()
	}
	return total
}

// PassReport is published after every partition pass.
type PassReport struct {
	Family string                 `json:"family"`
	Pass   syncengine.PassResult `json:"pass"`
	Error  string                 `json:"error,omitempty"`
}

type PassObserver func(report PassReport)

var fallbackLocker = passlock.NewMemoryLocker()

// familyRun holds what every family needs to walk its partitions.
type familyRun[R syncengine.Record] struct {
	family     string
	partitions []string
	pass       *syncengine.Pass[R]
	store      repository.SyncRepository
	locker     passlock.Locker
	observer   PassObserver
	logger     *zap.Logger
}

func lockFamily(ctx context.Context, locker passlock.Locker, family string) (func(), error) {
	if locker == nil {
		locker = fallbackLocker
	}
	release, err := locker.TryLock(ctx, "sync:"+family)
	if errors.Is(err, passlock.ErrHeld) {
		return nil, fmt.Errorf("%w: %s", syncengine.ErrPassInProgress, family)
	}
	if err != nil {
		return nil, fmt.Errorf("acquire %s pass lock: %w", family, err)
	}
	return release, nil
}

// run syncs partitions one after another. A failing partition is recorded
// and does not stop the remaining ones; the joined errors are returned.
func (f familyRun[R]) run(ctx context.Context) (FamilyResult, error) {
	result := FamilyResult{Family: f.family, StartedAt: time.Now().UTC()}
	release, err := lockFamily(ctx, f.locker, f.family)
	if err != nil {
		result.FinishedAt = time.Now().UTC()
		return result, err
	}
	defer release()

	log := f.logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("sync started", zap.String("family", f.family), zap.Int("partitions", len(f.partitions)))

	var errs []error
	for _, partition := range f.partitions {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		pass := *f.pass
		pass.Logger = log.With(zap.String("family", f.family))
		res, err := pass.Run(ctx, partition)
		result.Passes = append(result.Passes, res)
		if err != nil {
			err = fmt.Errorf("%s %s: %w", f.family, partition, err)
			errs = append(errs, err)
			result.Errors = append(result.Errors, err.Error())
			log.Warn("partition sync failed",
				zap.String("family", f.family),
				zap.String("partition", partition),
				zap.Int("chunks", res.Chunks),
				zap.Int("touched", res.Count()),
				zap.Error(err),
			)
		}
		f.recordState(ctx, res, err)
		if f.observer != nil {
			report := PassReport{Family: f.family, Pass: res}
			if err != nil {
				report.Error = err.Error()
			}
			f.observer(report)
		}
	}

	result.FinishedAt = time.Now().UTC()
	log.Info("sync finished",
		zap.String("family", f.family),
		zap.Int("touched", result.Touched()),
		zap.Int("failed", len(errs)),
		zap.Duration("took", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, errors.Join(errs...)
}

func (f familyRun[R]) recordState(ctx context.Context, res syncengine.PassResult, passErr error) {
	if f.store == nil {
		return
	}
	scope := f.family + ":" + res.Partition
	state, err := f.store.GetSyncState(ctx, scope)
	if err != nil || state == nil {
		state = &models.SyncState{Scope: scope}
	}
	now := time.Now().UTC()
	state.Family = f.family
	state.Partition = res.Partition
	state.LastAttemptAt = &now
	if !res.Watermark.IsZero() {
		watermark := res.Watermark
		state.WatermarkTS = &watermark
	}
	if passErr != nil {
		state.LastError = strPtr(passErr.Error())
	} else {
		state.LastSuccessAt = &now
		state.LastError = nil
	}
	state.StatsJSON = mustJSON(map[string]any{
		"pass_id": res.ID,
		"state":   res.State,
		"chunks":  res.Chunks,
		"touched": res.Count(),
	})
	if err := f.store.SaveSyncState(ctx, state); err != nil && f.logger != nil {
		f.logger.Warn("save sync state failed", zap.String("scope", scope), zap.Error(err))
	}
}

func skipped(family string) FamilyResult {
	now := time.Now().UTC()
	return FamilyResult{Family: family, Skipped: true, StartedAt: now, FinishedAt: now}
}
