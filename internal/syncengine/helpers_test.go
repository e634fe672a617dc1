package syncengine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type testRecord struct {
	ID      string
	TS      int64
	Title   string
	Derived *time.Time
}

func (r testRecord) RecordID() string        { return r.ID }
func (r testRecord) LastModified() time.Time { return at(r.TS) }

func at(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func rec(ts int64) testRecord {
	return testRecord{ID: "r" + strconv.FormatInt(ts, 10), TS: ts}
}

func recs(ts ...int64) []testRecord {
	out := make([]testRecord, 0, len(ts))
	for _, t := range ts {
		out = append(out, rec(t))
	}
	return out
}

// memTable is an upsert-by-id table with a per-call failure hook.
type memTable struct {
	mu     sync.Mutex
	rows   map[string]testRecord
	calls  int
	failOn int
	// strict rejects a batch that carries the same id twice, as a postgres
	// ON CONFLICT upsert does.
	strict bool
}

func newMemTable() *memTable {
	return &memTable{rows: map[string]testRecord{}}
}

var errWriteFailed = errors.New("write failed")

func (m *memTable) Write(ctx context.Context, partition string, rows []testRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(rows) == 0 {
		return nil
	}
	m.calls++
	if m.failOn > 0 && m.calls == m.failOn {
		return errWriteFailed
	}
	if m.strict {
		ids := map[string]struct{}{}
		for _, row := range rows {
			if _, ok := ids[row.ID]; ok {
				return fmt.Errorf("duplicate key %s in batch", row.ID)
			}
			ids[row.ID] = struct{}{}
		}
	}
	for _, row := range rows {
		m.rows[row.ID] = row
	}
	return nil
}

func (m *memTable) MaxLastModified(ctx context.Context, partition string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var max *time.Time
	for _, row := range m.rows {
		ts := row.LastModified()
		if max == nil || ts.After(*max) {
			max = &ts
		}
	}
	return max, nil
}
