package cronrunner

import (
	"context"
	"testing"
	"time"
)

func TestRunnerRunsJobWithBaseContext(t *testing.T) {
	type ctxKey struct{}
	base := context.WithValue(context.Background(), ctxKey{}, "base")
	r := New(nil, base)

	got := make(chan any, 1)
	if _, err := r.Add("probe", "@every 1s", func(ctx context.Context) {
		select {
		case got <- ctx.Value(ctxKey{}):
		default:
		}
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if r.Entries() != 1 {
		t.Fatalf("entries=%d want 1", r.Entries())
	}
	r.Start()
	defer r.Stop()

	select {
	case v := <-got:
		if v != "base" {
			t.Fatalf("job ctx value=%v want base", v)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}
}

func TestRunnerRejectsBadSpec(t *testing.T) {
	r := New(nil, nil)
	if _, err := r.Add("bad", "not a spec", func(context.Context) {}); err == nil {
		t.Fatalf("expected parse error")
	}
}
