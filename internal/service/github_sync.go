package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v62/github"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ilaif/athena-cycle/internal/models"
	"github.com/ilaif/athena-cycle/internal/passlock"
	"github.com/ilaif/athena-cycle/internal/repository"
	"github.com/ilaif/athena-cycle/internal/syncengine"
)

// GitHubAPI is the subset of the GitHub client the sync needs.
type GitHubAPI interface {
	ListPullRequests(ctx context.Context, owner, repo string, page int) ([]*gogithub.PullRequest, int, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*gogithub.PullRequest, error)
	ListReviews(ctx context.Context, owner, repo string, number int) ([]*gogithub.PullRequestReview, error)
	ListIssueEvents(ctx context.Context, owner, repo string, number int) ([]*gogithub.IssueEvent, error)
}

// pullRequestRecord carries a pull request with the reviews fetched for it,
// so both land in the same transaction.
type pullRequestRecord struct {
	PR      models.PullRequest
	Reviews []models.PullRequestReview
}

func (r pullRequestRecord) RecordID() string {
	return r.PR.RecordID()
}

func (r pullRequestRecord) LastModified() time.Time {
	return r.PR.UpdatedAt
}

type GitHubSync struct {
	Client          GitHubAPI
	Store           repository.SyncRepository
	Locker          passlock.Locker
	Repositories    []string
	SyncFrom        *time.Time
	ForceResyncFrom *time.Time
	ChunkSize       int
	Concurrency     int
	Observer        PassObserver
	Logger          *zap.Logger
}

func (s *GitHubSync) Name() string {
	return FamilyGitHub
}

func (s *GitHubSync) Sync(ctx context.Context) (FamilyResult, error) {
	repos := cleanPartitions(s.Repositories)
	if s.Client == nil {
		s.warn("github credentials not configured, skipping sync")
		return skipped(FamilyGitHub), nil
	}
	if len(repos) == 0 {
		s.warn("no github repositories configured, skipping sync")
		return skipped(FamilyGitHub), nil
	}
	if s.Store == nil {
		return FamilyResult{Family: FamilyGitHub}, fmt.Errorf("github sync store is nil")
	}
	return familyRun[pullRequestRecord]{
		family:     FamilyGitHub,
		partitions: repos,
		pass:       s.pass(),
		store:      s.Store,
		locker:     s.Locker,
		observer:   s.Observer,
		logger:     s.Logger,
	}.run(ctx)
}

func (s *GitHubSync) pass() *syncengine.Pass[pullRequestRecord] {
	return &syncengine.Pass[pullRequestRecord]{
		Resolver: syncengine.Resolver{
			Store:           syncengine.WatermarkStoreFunc(s.Store.MaxPullRequestUpdatedAt),
			SyncFrom:        s.SyncFrom,
			ForceResyncFrom: s.ForceResyncFrom,
		},
		Source: s.source,
		Enricher: syncengine.Enricher[pullRequestRecord]{
			Enrich:      s.enrich,
			Concurrency: s.Concurrency,
		},
		Writer: syncengine.WriterFunc[pullRequestRecord](s.write),
	}
}

func (s *GitHubSync) source(partition string, _ time.Time) syncengine.ChunkSource[pullRequestRecord] {
	owner, name, err := splitRepository(partition)
	if err != nil {
		return syncengine.NewChunks(func(context.Context, string) ([]pullRequestRecord, string, error) {
			return nil, "", err
		}, s.ChunkSize)
	}
	return syncengine.NewChunks(func(ctx context.Context, cursor string) ([]pullRequestRecord, string, error) {
		page := 1
		if cursor != "" {
			parsed, err := strconv.Atoi(cursor)
			if err != nil {
				return nil, "", fmt.Errorf("invalid page cursor %q: %w", cursor, err)
			}
			page = parsed
		}
		prs, next, err := s.Client.ListPullRequests(ctx, owner, name, page)
		if err != nil {
			return nil, "", err
		}
		records := lo.Map(prs, func(pr *gogithub.PullRequest, _ int) pullRequestRecord {
			return pullRequestRecord{PR: mapPullRequest(partition, pr)}
		})
		if next == 0 {
			return records, "", nil
		}
		return records, strconv.Itoa(next), nil
	}, s.ChunkSize)
}

// enrich loads the detail view (line stats), reviews and timeline events of a
// pull request and derives the review and draft timestamps.
func (s *GitHubSync) enrich(ctx context.Context, rec pullRequestRecord) (pullRequestRecord, error) {
	owner, name, err := splitRepository(rec.PR.Repo)
	if err != nil {
		return rec, err
	}
	number := rec.PR.Number

	detail, err := s.Client.GetPullRequest(ctx, owner, name, number)
	if err != nil {
		return rec, err
	}
	pr := mapPullRequest(rec.PR.Repo, detail)
	if pr.UpdatedAt.Before(rec.PR.UpdatedAt) {
		pr.UpdatedAt = rec.PR.UpdatedAt
	}

	reviews, err := s.Client.ListReviews(ctx, owner, name, number)
	if err != nil {
		return rec, err
	}
	events, err := s.Client.ListIssueEvents(ctx, owner, name, number)
	if err != nil {
		return rec, err
	}

	rec.PR = pr
	rec.Reviews = lo.Map(reviews, func(r *gogithub.PullRequestReview, _ int) models.PullRequestReview {
		return mapReview(pr, r)
	})
	rec.PR.FirstReviewedAt = firstReviewedAt(pr.Username, rec.Reviews)
	rec.PR.LastReadyForReviewAt = lastEventAt(events, eventReadyForReview)
	rec.PR.LastConvertedToDraftAt = lastEventAt(events, eventConvertToDraft)
	return rec, nil
}

func (s *GitHubSync) write(ctx context.Context, _ string, rows []pullRequestRecord) error {
	prs := lo.Map(rows, func(r pullRequestRecord, _ int) models.PullRequest {
		return r.PR
	})
	reviews := lo.FlatMap(rows, func(r pullRequestRecord, _ int) []models.PullRequestReview {
		return r.Reviews
	})
	return s.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Store.UpsertPullRequestsTx(ctx, tx, prs); err != nil {
			return fmt.Errorf("upsert pull requests: %w", err)
		}
		if err := s.Store.UpsertPullRequestReviewsTx(ctx, tx, reviews); err != nil {
			return fmt.Errorf("upsert reviews: %w", err)
		}
		return nil
	})
}

func (s *GitHubSync) warn(msg string) {
	if s.Logger != nil {
		s.Logger.Warn(msg)
	}
}

func splitRepository(full string) (string, string, error) {
	owner, name, ok := strings.Cut(strings.TrimSpace(full), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", full)
	}
	return owner, name, nil
}
