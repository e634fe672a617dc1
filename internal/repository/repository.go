package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ilaif/athena-cycle/internal/models"
)

// SyncRepository is the persistence surface of the sync engine: idempotent
// upserts, per-partition watermarks and pass bookkeeping.
type SyncRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	UpsertPullRequestsTx(ctx context.Context, tx *gorm.DB, items []models.PullRequest) error
	UpsertPullRequestReviewsTx(ctx context.Context, tx *gorm.DB, items []models.PullRequestReview) error
	UpsertIssuesTx(ctx context.Context, tx *gorm.DB, items []models.Issue) error

	// MaxPullRequestUpdatedAt returns nil when the repo has no rows yet.
	MaxPullRequestUpdatedAt(ctx context.Context, repo string) (*time.Time, error)
	MaxIssueUpdatedAt(ctx context.Context, projectKey string) (*time.Time, error)

	GetSyncState(ctx context.Context, scope string) (*models.SyncState, error)
	SaveSyncState(ctx context.Context, state *models.SyncState) error
	SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error
	ListSyncStates(ctx context.Context) ([]models.SyncState, error)
}

// QueryRepository backs the read-only HTTP endpoints.
type QueryRepository interface {
	ListPullRequests(ctx context.Context, params ListPullRequestsParams) ([]models.PullRequest, error)
	CountPullRequests(ctx context.Context, params ListPullRequestsParams) (int64, error)
	ListReviewsByPullRequestIDs(ctx context.Context, prIDs []int64) ([]models.PullRequestReview, error)
	ListIssues(ctx context.Context, params ListIssuesParams) ([]models.Issue, error)
	CountIssues(ctx context.Context, params ListIssuesParams) (int64, error)
}

type Repository interface {
	SyncRepository
	QueryRepository
}

type ListPullRequestsParams struct {
	Limit   int
	Offset  int
	Repo    *string
	State   *string
	Author  *string
	Since   *time.Time
	OrderBy string
	Asc     *bool
}

type ListIssuesParams struct {
	Limit      int
	Offset     int
	ProjectKey *string
	Status     *string
	Since      *time.Time
	OrderBy    string
	Asc        *bool
}
