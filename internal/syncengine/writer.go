package syncengine

import "context"

// Writer persists one chunk of rows for a partition. Implementations must
// commit the whole batch atomically and overwrite every non-key column on
// primary-key conflict. An empty batch is a no-op.
type Writer[R any] interface {
	Write(ctx context.Context, partition string, rows []R) error
}

type WriterFunc[R any] func(ctx context.Context, partition string, rows []R) error

func (f WriterFunc[R]) Write(ctx context.Context, partition string, rows []R) error {
	if len(rows) == 0 {
		return nil
	}
	return f(ctx, partition, rows)
}
