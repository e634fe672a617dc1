package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gogithub "github.com/google/go-github/v62/github"
	"gorm.io/gorm"

	"github.com/ilaif/athena-cycle/internal/client/jira"
	"github.com/ilaif/athena-cycle/internal/models"
)

func at(hour int) time.Time {
	return time.Date(2024, 5, 1, hour, 0, 0, 0, time.UTC)
}

type fakeStore struct {
	mu      sync.Mutex
	prs     map[int64]models.PullRequest
	reviews map[int64]models.PullRequestReview
	issues  map[string]models.Issue
	states  map[string]models.SyncState
	writes  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prs:     map[int64]models.PullRequest{},
		reviews: map[int64]models.PullRequestReview{},
		issues:  map[string]models.Issue{},
		states:  map[string]models.SyncState{},
	}
}

func (s *fakeStore) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	s.writes++
	s.mu.Unlock()
	return fn(nil)
}

func (s *fakeStore) UpsertPullRequestsTx(ctx context.Context, tx *gorm.DB, items []models.PullRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.prs[item.PrID] = item
	}
	return nil
}

func (s *fakeStore) UpsertPullRequestReviewsTx(ctx context.Context, tx *gorm.DB, items []models.PullRequestReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.reviews[item.ReviewID] = item
	}
	return nil
}

func (s *fakeStore) UpsertIssuesTx(ctx context.Context, tx *gorm.DB, items []models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.issues[item.ID] = item
	}
	return nil
}

func (s *fakeStore) MaxPullRequestUpdatedAt(ctx context.Context, repo string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max *time.Time
	for _, pr := range s.prs {
		if pr.Repo != repo {
			continue
		}
		if max == nil || pr.UpdatedAt.After(*max) {
			v := pr.UpdatedAt
			max = &v
		}
	}
	return max, nil
}

func (s *fakeStore) MaxIssueUpdatedAt(ctx context.Context, projectKey string) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var max *time.Time
	for _, issue := range s.issues {
		if issue.ProjectKey != projectKey {
			continue
		}
		if max == nil || issue.Updated.After(*max) {
			v := issue.Updated
			max = &v
		}
	}
	return max, nil
}

func (s *fakeStore) GetSyncState(ctx context.Context, scope string) (*models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[scope]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (s *fakeStore) SaveSyncState(ctx context.Context, state *models.SyncState) error {
	return s.SaveSyncStateTx(ctx, nil, state)
}

func (s *fakeStore) SaveSyncStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Scope] = *state
	return nil
}

func (s *fakeStore) ListSyncStates(ctx context.Context) ([]models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncState, 0, len(s.states))
	for _, state := range s.states {
		out = append(out, state)
	}
	return out, nil
}

var errRemote = errors.New("remote unavailable")

type fakeRepo struct {
	pages   [][]*gogithub.PullRequest
	reviews map[int][]*gogithub.PullRequestReview
	events  map[int][]*gogithub.IssueEvent
	fail    bool
}

// fakeGitHub serves pull requests per "owner/name"; pages are 1-based.
type fakeGitHub struct {
	mu        sync.Mutex
	repos     map[string]*fakeRepo
	pageCalls int
	details   int
}

func (f *fakeGitHub) repo(owner, name string) (*fakeRepo, error) {
	r, ok := f.repos[owner+"/"+name]
	if !ok {
		return nil, fmt.Errorf("repo %s/%s not found", owner, name)
	}
	if r.fail {
		return nil, errRemote
	}
	return r, nil
}

func (f *fakeGitHub) ListPullRequests(ctx context.Context, owner, name string, page int) ([]*gogithub.PullRequest, int, error) {
	f.mu.Lock()
	f.pageCalls++
	f.mu.Unlock()
	r, err := f.repo(owner, name)
	if err != nil {
		return nil, 0, err
	}
	if page < 1 || page > len(r.pages) {
		return nil, 0, nil
	}
	next := 0
	if page < len(r.pages) {
		next = page + 1
	}
	return r.pages[page-1], next, nil
}

func (f *fakeGitHub) GetPullRequest(ctx context.Context, owner, name string, number int) (*gogithub.PullRequest, error) {
	f.mu.Lock()
	f.details++
	f.mu.Unlock()
	r, err := f.repo(owner, name)
	if err != nil {
		return nil, err
	}
	for _, page := range r.pages {
		for _, pr := range page {
			if pr.GetNumber() == number {
				detail := *pr
				detail.Additions = gogithub.Int(number * 10)
				detail.Deletions = gogithub.Int(number)
				detail.ChangedFiles = gogithub.Int(2)
				return &detail, nil
			}
		}
	}
	return nil, fmt.Errorf("pull request %d not found", number)
}

func (f *fakeGitHub) ListReviews(ctx context.Context, owner, name string, number int) ([]*gogithub.PullRequestReview, error) {
	r, err := f.repo(owner, name)
	if err != nil {
		return nil, err
	}
	return r.reviews[number], nil
}

func (f *fakeGitHub) ListIssueEvents(ctx context.Context, owner, name string, number int) ([]*gogithub.IssueEvent, error) {
	r, err := f.repo(owner, name)
	if err != nil {
		return nil, err
	}
	return r.events[number], nil
}

func ghPR(id int64, number int, author string, updated time.Time) *gogithub.PullRequest {
	return &gogithub.PullRequest{
		ID:        gogithub.Int64(id),
		Number:    gogithub.Int(number),
		Title:     gogithub.String(fmt.Sprintf("PR %d", number)),
		State:     gogithub.String("open"),
		User:      &gogithub.User{Login: gogithub.String(author)},
		CreatedAt: &gogithub.Timestamp{Time: at(0)},
		UpdatedAt: &gogithub.Timestamp{Time: updated},
		Base: &gogithub.PullRequestBranch{
			Ref:  gogithub.String("main"),
			Repo: &gogithub.Repository{ID: gogithub.Int64(77)},
		},
		Head:   &gogithub.PullRequestBranch{Ref: gogithub.String(fmt.Sprintf("feature-%d", number))},
		Labels: []*gogithub.Label{{Name: gogithub.String("team-a")}},
	}
}

func ghReview(id int64, user, state string, submitted time.Time) *gogithub.PullRequestReview {
	return &gogithub.PullRequestReview{
		ID:          gogithub.Int64(id),
		User:        &gogithub.User{Login: gogithub.String(user)},
		State:       gogithub.String(state),
		SubmittedAt: &gogithub.Timestamp{Time: submitted},
	}
}

type fakeJira struct {
	pages  [][]jira.Issue
	calls  int
	tokens []string
	err    error
}

func (f *fakeJira) SearchIssues(ctx context.Context, jql string, fields []string, maxResults int, pageToken string) (*jira.SearchResult, error) {
	f.calls++
	f.tokens = append(f.tokens, pageToken)
	if f.err != nil {
		return nil, f.err
	}
	page := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "p%d", &page)
	}
	if page >= len(f.pages) {
		return &jira.SearchResult{}, nil
	}
	res := &jira.SearchResult{Issues: f.pages[page]}
	if page+1 < len(f.pages) {
		res.NextPageToken = fmt.Sprintf("p%d", page+1)
	}
	return res, nil
}
