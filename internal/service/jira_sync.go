package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ilaif/athena-cycle/internal/client/jira"
	"github.com/ilaif/athena-cycle/internal/models"
	"github.com/ilaif/athena-cycle/internal/passlock"
	"github.com/ilaif/athena-cycle/internal/repository"
	"github.com/ilaif/athena-cycle/internal/syncengine"
)

const defaultJiraPageSize = 50

type JiraAPI interface {
	SearchIssues(ctx context.Context, jql string, fields []string, maxResults int, pageToken string) (*jira.SearchResult, error)
}

// JiraSync mirrors Jira issues per project. Search results already carry every
// field that is stored, so there is no enrichment step.
type JiraSync struct {
	Client          JiraAPI
	Store           repository.SyncRepository
	Locker          passlock.Locker
	Projects        []string
	SyncFrom        *time.Time
	ForceResyncFrom *time.Time
	PageSize        int
	ChunkSize       int
	Fields          IssueFieldIDs
	Observer        PassObserver
	Logger          *zap.Logger
}

func (s *JiraSync) Name() string {
	return FamilyJira
}

func (s *JiraSync) Sync(ctx context.Context) (FamilyResult, error) {
	projects := projectKeys(s.Projects)
	if s.Client == nil {
		s.warn("jira credentials not configured, skipping sync")
		return skipped(FamilyJira), nil
	}
	if len(projects) == 0 {
		s.warn("no jira projects configured, skipping sync")
		return skipped(FamilyJira), nil
	}
	if s.Store == nil {
		return FamilyResult{Family: FamilyJira}, fmt.Errorf("jira sync store is nil")
	}
	return familyRun[models.Issue]{
		family:     FamilyJira,
		partitions: projects,
		pass:       s.pass(),
		store:      s.Store,
		locker:     s.Locker,
		observer:   s.Observer,
		logger:     s.Logger,
	}.run(ctx)
}

func (s *JiraSync) pass() *syncengine.Pass[models.Issue] {
	return &syncengine.Pass[models.Issue]{
		Resolver: syncengine.Resolver{
			Store:           syncengine.WatermarkStoreFunc(s.Store.MaxIssueUpdatedAt),
			SyncFrom:        s.SyncFrom,
			ForceResyncFrom: s.ForceResyncFrom,
		},
		Source:   s.source,
		Enricher: syncengine.Enricher[models.Issue]{},
		Writer:   syncengine.WriterFunc[models.Issue](s.write),
	}
}

func (s *JiraSync) source(project string, _ time.Time) syncengine.ChunkSource[models.Issue] {
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = defaultJiraPageSize
	}
	jql := jira.ProjectJQL(project)
	fields := s.Fields.searchFields()
	return syncengine.NewChunks(func(ctx context.Context, cursor string) ([]models.Issue, string, error) {
		res, err := s.Client.SearchIssues(ctx, jql, fields, pageSize, cursor)
		if err != nil {
			return nil, "", err
		}
		issues := make([]models.Issue, 0, len(res.Issues))
		for _, raw := range res.Issues {
			issue, err := mapIssue(raw, s.Fields)
			if err != nil {
				return nil, "", err
			}
			// Rows are keyed by the partition so the watermark read matches.
			issue.ProjectKey = project
			issues = append(issues, issue)
		}
		return issues, res.NextPageToken, nil
	}, s.ChunkSize)
}

func (s *JiraSync) write(ctx context.Context, _ string, rows []models.Issue) error {
	return s.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Store.UpsertIssuesTx(ctx, tx, rows); err != nil {
			return fmt.Errorf("upsert issues: %w", err)
		}
		return nil
	})
}

// projectKeys upper-cases project keys, the form Jira returns them in.
func projectKeys(items []string) []string {
	return cleanPartitions(lo.Map(items, func(s string, _ int) string {
		return strings.ToUpper(s)
	}))
}

func (s *JiraSync) warn(msg string) {
	if s.Logger != nil {
		s.Logger.Warn(msg)
	}
}
