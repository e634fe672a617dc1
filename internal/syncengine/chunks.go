package syncengine

import (
	"context"
	"io"
)

const DefaultChunkSize = 50

// PageFunc fetches one remote page starting at cursor ("" for the first
// page). An empty next cursor marks the last page.
type PageFunc[R any] func(ctx context.Context, cursor string) (items []R, next string, err error)

// ChunkSource yields chunks until it returns io.EOF.
type ChunkSource[R any] interface {
	Next(ctx context.Context) ([]R, error)
}

// Chunks re-cuts remote pages into chunks of a fixed size. It fetches lazily,
// only when the buffered items cannot fill the next chunk, and cannot be
// restarted once exhausted. Remote errors are returned as-is.
type Chunks[R any] struct {
	fetch  PageFunc[R]
	size   int
	buf    []R
	cursor string
	done   bool
}

func NewChunks[R any](fetch PageFunc[R], size int) *Chunks[R] {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Chunks[R]{fetch: fetch, size: size}
}

func (c *Chunks[R]) Next(ctx context.Context) ([]R, error) {
	for len(c.buf) < c.size && !c.done {
		items, next, err := c.fetch(ctx, c.cursor)
		if err != nil {
			return nil, err
		}
		c.buf = append(c.buf, items...)
		c.cursor = next
		if next == "" || len(items) == 0 {
			c.done = true
		}
	}
	if len(c.buf) == 0 {
		return nil, io.EOF
	}
	n := c.size
	if n > len(c.buf) {
		n = len(c.buf)
	}
	chunk := make([]R, n)
	copy(chunk, c.buf[:n])
	c.buf = c.buf[n:]
	return chunk, nil
}

// SliceChunks serves pre-built chunks, mostly for tests and replays.
type SliceChunks[R any] struct {
	chunks [][]R
	pos    int
}

func NewSliceChunks[R any](chunks ...[]R) *SliceChunks[R] {
	return &SliceChunks[R]{chunks: chunks}
}

func (s *SliceChunks[R]) Next(ctx context.Context) ([]R, error) {
	if s.pos >= len(s.chunks) {
		return nil, io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}
