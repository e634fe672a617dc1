package syncengine

import (
	"errors"
	"time"
)

// Record is the minimum a row must expose to be synchronized.
type Record interface {
	RecordID() string
	LastModified() time.Time
}

var ErrPassInProgress = errors.New("sync pass already in progress")

type State string

const (
	StateResolving State = "resolving"
	StateStreaming State = "streaming"
	StateStopped   State = "stopped"
	StateExhausted State = "exhausted"
	StateFailed    State = "failed"
)

func (s State) Terminal() bool {
	switch s {
	case StateStopped, StateExhausted, StateFailed:
		return true
	default:
		return false
	}
}
