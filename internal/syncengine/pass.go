package syncengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type WatermarkResolver interface {
	Resolve(ctx context.Context, partition string) (time.Time, error)
}

// SourceFunc opens the newest-first chunk stream of a partition.
type SourceFunc[R any] func(partition string, watermark time.Time) ChunkSource[R]

type PassResult struct {
	ID         string    `json:"id"`
	Partition  string    `json:"partition"`
	Watermark  time.Time `json:"watermark"`
	State      State     `json:"state"`
	Chunks     int       `json:"chunks"`
	Touched    []string  `json:"touched"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r PassResult) Count() int {
	return len(r.Touched)
}

// Pass drives one partition from watermark resolution to a terminal state.
type Pass[R Record] struct {
	Resolver WatermarkResolver
	Source   SourceFunc[R]
	Enricher Enricher[R]
	Writer   Writer[R]
	Logger   *zap.Logger
}

// Run executes a pass. On failure the partial result is returned with the
// error; chunks written before the failure stay committed.
func (p *Pass[R]) Run(ctx context.Context, partition string) (PassResult, error) {
	result := PassResult{
		ID:        uuid.NewString(),
		Partition: partition,
		State:     StateResolving,
		StartedAt: time.Now().UTC(),
	}
	log := p.logger().With(zap.String("partition", partition), zap.String("pass_id", result.ID))

	fail := func(err error) (PassResult, error) {
		result.State = StateFailed
		result.FinishedAt = time.Now().UTC()
		return result, err
	}

	if p.Resolver == nil || p.Source == nil || p.Writer == nil {
		return fail(errors.New("sync pass is not fully configured"))
	}

	watermark, err := p.Resolver.Resolve(ctx, partition)
	if err != nil {
		return fail(err)
	}
	result.Watermark = watermark
	log.Info("watermark resolved", zap.Time("watermark", watermark))

	result.State = StateStreaming
	source := p.Source(partition, watermark)
	seen := map[string]struct{}{}
	for {
		chunk, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			result.State = StateExhausted
			break
		}
		if err != nil {
			return fail(fmt.Errorf("fetch chunk %d: %w", result.Chunks+1, err))
		}

		rows, stop, err := p.Enricher.Run(ctx, chunk, watermark)
		if err != nil {
			return fail(fmt.Errorf("enrich chunk %d: %w", result.Chunks+1, err))
		}
		rows = dropSeen(rows, seen)
		if len(rows) > 0 {
			if err := p.Writer.Write(ctx, partition, rows); err != nil {
				return fail(fmt.Errorf("write chunk %d: %w", result.Chunks+1, err))
			}
		}
		result.Chunks++
		for _, row := range rows {
			result.Touched = append(result.Touched, row.RecordID())
		}
		log.Debug("chunk synced",
			zap.Int("chunk", result.Chunks),
			zap.Int("fetched", len(chunk)),
			zap.Int("written", len(rows)),
		)

		if stop {
			log.Info("reached watermark", zap.Time("watermark", watermark))
			result.State = StateStopped
			break
		}
	}
	result.FinishedAt = time.Now().UTC()
	log.Info("pass finished",
		zap.String("state", string(result.State)),
		zap.Int("chunks", result.Chunks),
		zap.Int("touched", result.Count()),
	)
	return result, nil
}

// dropSeen removes rows already written in this pass or repeated within the
// chunk. Offset paging can return a record twice when it moves between pages
// mid-pass; the first copy is the newest. A batch upsert must not hit the
// same key twice.
func dropSeen[R Record](rows []R, seen map[string]struct{}) []R {
	out := rows[:0:0]
	for _, row := range rows {
		id := row.RecordID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, row)
	}
	return out
}

func (p *Pass[R]) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
