package logger

import (
	"testing"

	"github.com/ilaif/athena-cycle/internal/config"
)

func TestNewFallsBackOnUnknownLevelAndEncoding(t *testing.T) {
	log, err := New(config.LogConfig{Level: "loud", Encoding: "xml"}, "test")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !log.Core().Enabled(0) {
		t.Fatalf("info level should be enabled")
	}
	if log.Core().Enabled(-1) {
		t.Fatalf("debug level should be disabled")
	}
}

func TestNewJSONDebug(t *testing.T) {
	log, err := New(config.LogConfig{Level: "debug", Encoding: "json"}, "")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !log.Core().Enabled(-1) {
		t.Fatalf("debug level should be enabled")
	}
}
