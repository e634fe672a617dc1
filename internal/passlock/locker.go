package passlock

import (
	"context"
	"errors"
)

var ErrHeld = errors.New("lock is held")

// Locker hands out exclusive, non-blocking locks keyed by name. TryLock
// returns ErrHeld when another holder owns key.
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), err error)
}
