package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ilaif/athena-cycle/internal/models"
	"github.com/ilaif/athena-cycle/internal/repository"
)

const upsertBatchSize = 200

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- upserts ----------------------------------------------------------------

func (s *Store) UpsertPullRequestsTx(ctx context.Context, tx *gorm.DB, items []models.PullRequest) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "pr_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"repo_id",
			"repo",
			"number",
			"username",
			"title",
			"body",
			"state",
			"draft",
			"merged",
			"base_ref",
			"head_ref",
			"labels",
			"requested_reviewers",
			"requested_teams",
			"additions",
			"deletions",
			"changed_files",
			"merged_at",
			"closed_at",
			"created_at",
			"updated_at",
			"last_ready_for_review_at",
			"last_converted_to_draft_at",
			"first_reviewed_at",
			"data",
		}),
	}), items, upsertBatchSize)
}

func (s *Store) UpsertPullRequestReviewsTx(ctx context.Context, tx *gorm.DB, items []models.PullRequestReview) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "review_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"pr_id",
			"repo",
			"username",
			"state",
			"submitted_at",
			"commit_id",
			"body",
			"data",
		}),
	}), items, upsertBatchSize)
}

func (s *Store) UpsertIssuesTx(ctx context.Context, tx *gorm.DB, items []models.Issue) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"key",
			"issue_type",
			"project_key",
			"status",
			"resolution",
			"resolution_date",
			"summary",
			"created",
			"updated",
			"priority",
			"labels",
			"assignee_email",
			"reporter_email",
			"sprint_name",
			"story_points",
			"data",
		}),
	}), items, upsertBatchSize)
}

// --- watermarks -------------------------------------------------------------

func (s *Store) MaxPullRequestUpdatedAt(ctx context.Context, repo string) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var row models.PullRequest
	err := s.db.WithContext(ctx).
		Select("updated_at").
		Where("repo = ?", repo).
		Order("updated_at desc").
		Limit(1).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts := row.UpdatedAt.UTC()
	return &ts, nil
}

func (s *Store) MaxIssueUpdatedAt(ctx context.Context, projectKey string) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var row models.Issue
	err := s.db.WithContext(ctx).
		Select("updated").
		Where("project_key = ?", projectKey).
		Order("updated desc").
		Limit(1).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ts := row.Updated.UTC()
	return &ts, nil
}

// --- sync state -------------------------------------------------------------

func (s *Store) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var state models.SyncState
	err := s.db.WithContext(ctx).First(&state, "scope = ?", scope).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.SaveSyncStateTx(ctx, s.db, state)
}

func (s *Store) SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error {
	if state == nil {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"family",
			"partition",
			"watermark_ts",
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"stats_json",
		}),
	}).Create(state).Error
}

func (s *Store) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var states []models.SyncState
	if err := s.db.WithContext(ctx).Order("scope asc").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

// --- queries ----------------------------------------------------------------

var pullRequestOrderColumns = map[string]struct{}{
	"updated_at": {},
	"created_at": {},
	"merged_at":  {},
	"number":     {},
}

var issueOrderColumns = map[string]struct{}{
	"updated": {},
	"created": {},
	"key":     {},
}

func (s *Store) ListPullRequests(ctx context.Context, params repository.ListPullRequestsParams) ([]models.PullRequest, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.pullRequestQuery(ctx, params)
	query = applyOrder(query, sanitizeOrder(params.OrderBy, pullRequestOrderColumns), params.Asc, "updated_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.PullRequest
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPullRequests(ctx context.Context, params repository.ListPullRequestsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.pullRequestQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) pullRequestQuery(ctx context.Context, params repository.ListPullRequestsParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.PullRequest{})
	if params.Repo != nil && strings.TrimSpace(*params.Repo) != "" {
		query = query.Where("repo = ?", strings.TrimSpace(*params.Repo))
	}
	if params.State != nil && strings.TrimSpace(*params.State) != "" {
		query = query.Where("state = ?", strings.TrimSpace(*params.State))
	}
	if params.Author != nil && strings.TrimSpace(*params.Author) != "" {
		query = query.Where("username = ?", strings.TrimSpace(*params.Author))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("updated_at >= ?", params.Since.UTC())
	}
	return query
}

func (s *Store) ListReviewsByPullRequestIDs(ctx context.Context, prIDs []int64) ([]models.PullRequestReview, error) {
	if s == nil || s.db == nil || len(prIDs) == 0 {
		return nil, nil
	}
	var items []models.PullRequestReview
	err := s.db.WithContext(ctx).
		Where("pr_id IN ?", prIDs).
		Order("pr_id asc").
		Order("submitted_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListIssues(ctx context.Context, params repository.ListIssuesParams) ([]models.Issue, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.issueQuery(ctx, params)
	query = applyOrder(query, sanitizeOrder(params.OrderBy, issueOrderColumns), params.Asc, "updated")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Issue
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountIssues(ctx context.Context, params repository.ListIssuesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	if err := s.issueQuery(ctx, params).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) issueQuery(ctx context.Context, params repository.ListIssuesParams) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.Issue{})
	if params.ProjectKey != nil && strings.TrimSpace(*params.ProjectKey) != "" {
		query = query.Where("project_key = ?", strings.TrimSpace(*params.ProjectKey))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("updated >= ?", params.Since.UTC())
	}
	return query
}

// --- helpers ----------------------------------------------------------------

func sanitizeOrder(orderBy string, allowed map[string]struct{}) string {
	column := strings.ToLower(strings.TrimSpace(orderBy))
	if _, ok := allowed[column]; !ok {
		return ""
	}
	return column
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = upsertBatchSize
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
