package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const FamilyAll = "all"

var ErrUnknownFamily = errors.New("unknown sync family")

// Runner triggers family syncs for cron and HTTP callers.
type Runner struct {
	Families []Family
	Logger   *zap.Logger
}

func NewRunner(logger *zap.Logger, families ...Family) *Runner {
	return &Runner{Families: families, Logger: logger}
}

// SyncAll runs every family in order. A busy or failing family does not
// prevent the others from running.
func (r *Runner) SyncAll(ctx context.Context) ([]FamilyResult, error) {
	results := make([]FamilyResult, 0, len(r.Families))
	var errs []error
	for _, family := range r.Families {
		res, err := family.Sync(ctx)
		results = append(results, res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

func (r *Runner) SyncFamily(ctx context.Context, name string) ([]FamilyResult, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == FamilyAll {
		return r.SyncAll(ctx)
	}
	for _, family := range r.Families {
		if family.Name() == name {
			res, err := family.Sync(ctx)
			return []FamilyResult{res}, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, name)
}

func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.Families))
	for _, family := range r.Families {
		names = append(names, family.Name())
	}
	return names
}
