package service

import (
	"fmt"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v62/github"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ilaif/athena-cycle/internal/client/jira"
	"github.com/ilaif/athena-cycle/internal/models"
)

const (
	reviewStatePending   = "PENDING"
	eventReadyForReview  = "ready_for_review"
	eventConvertToDraft  = "convert_to_draft"
	defaultSprintField   = "customfield_10020"
	defaultStoryPointsID = "customfield_10016"
)

func mapPullRequest(repo string, pr *gogithub.PullRequest) models.PullRequest {
	return models.PullRequest{
		PrID:     pr.GetID(),
		RepoID:   pr.GetBase().GetRepo().GetID(),
		Repo:     repo,
		Number:   pr.GetNumber(),
		Username: pr.GetUser().GetLogin(),
		Title:    pr.GetTitle(),
		Body:     pr.Body,
		State:    pr.GetState(),
		Draft:    pr.GetDraft(),
		Merged:   pr.GetMerged() || pr.MergedAt != nil,
		BaseRef:  pr.GetBase().GetRef(),
		HeadRef:  pr.GetHead().GetRef(),
		Labels: lo.Map(pr.Labels, func(l *gogithub.Label, _ int) string {
			return l.GetName()
		}),
		RequestedReviewers: lo.Map(pr.RequestedReviewers, func(u *gogithub.User, _ int) string {
			return u.GetLogin()
		}),
		RequestedTeams: lo.Map(pr.RequestedTeams, func(t *gogithub.Team, _ int) string {
			return t.GetSlug()
		}),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
		MergedAt:     timestampPtr(pr.MergedAt),
		ClosedAt:     timestampPtr(pr.ClosedAt),
		CreatedAt:    pr.GetCreatedAt().Time.UTC(),
		UpdatedAt:    pr.GetUpdatedAt().Time.UTC(),
		Data:         mustJSON(pr),
	}
}

func mapReview(pr models.PullRequest, review *gogithub.PullRequestReview) models.PullRequestReview {
	return models.PullRequestReview{
		ReviewID:    review.GetID(),
		PrID:        pr.PrID,
		Repo:        pr.Repo,
		Username:    review.GetUser().GetLogin(),
		State:       review.GetState(),
		SubmittedAt: timestampPtr(review.SubmittedAt),
		CommitID:    review.GetCommitID(),
		Body:        review.Body,
		Data:        mustJSON(review),
	}
}

// firstReviewedAt is the earliest submitted review by someone other than the
// author. Pending reviews are drafts and do not count.
func firstReviewedAt(author string, reviews []models.PullRequestReview) *time.Time {
	submitted := lo.Filter(reviews, func(r models.PullRequestReview, _ int) bool {
		return r.SubmittedAt != nil &&
			!strings.EqualFold(r.State, reviewStatePending) &&
			!strings.EqualFold(r.Username, author)
	})
	if len(submitted) == 0 {
		return nil
	}
	first := lo.MinBy(submitted, func(a, b models.PullRequestReview) bool {
		return a.SubmittedAt.Before(*b.SubmittedAt)
	})
	return utcPtr(first.SubmittedAt)
}

// lastEventAt returns when the latest timeline event of the given kind happened.
func lastEventAt(events []*gogithub.IssueEvent, kind string) *time.Time {
	var last *time.Time
	for _, event := range events {
		if event.GetEvent() != kind || event.CreatedAt == nil {
			continue
		}
		at := event.GetCreatedAt().Time.UTC()
		if last == nil || at.After(*last) {
			last = &at
		}
	}
	return last
}

// IssueFieldIDs names the Jira custom fields holding sprint and story points.
type IssueFieldIDs struct {
	Sprint      string
	StoryPoints string
}

func (f IssueFieldIDs) withDefaults() IssueFieldIDs {
	if strings.TrimSpace(f.Sprint) == "" {
		f.Sprint = defaultSprintField
	}
	if strings.TrimSpace(f.StoryPoints) == "" {
		f.StoryPoints = defaultStoryPointsID
	}
	return f
}

func (f IssueFieldIDs) searchFields() []string {
	f = f.withDefaults()
	return []string{
		"summary",
		"issuetype",
		"project",
		"status",
		"resolution",
		"resolutiondate",
		"created",
		"updated",
		"priority",
		"labels",
		"assignee",
		"reporter",
		f.Sprint,
		f.StoryPoints,
	}
}

func mapIssue(issue jira.Issue, ids IssueFieldIDs) (models.Issue, error) {
	ids = ids.withDefaults()
	fields := issue.Fields
	if issue.ID == "" || fields.Updated.IsZero() {
		return models.Issue{}, fmt.Errorf("jira issue %q is missing id or updated", issue.Key)
	}
	out := models.Issue{
		ID:             issue.ID,
		Key:            issue.Key,
		Summary:        fields.Summary,
		ResolutionDate: fields.ResolutionDate.Ptr(),
		Created:        fields.Created.UTC(),
		Updated:        fields.Updated.UTC(),
		Labels:         append([]string{}, fields.Labels...),
		Data:           mustJSON(issue.Raw),
	}
	if fields.IssueType != nil {
		out.IssueType = fields.IssueType.Name
	}
	if fields.Project != nil {
		out.ProjectKey = fields.Project.Key
	}
	if fields.Status != nil {
		out.Status = fields.Status.Name
	}
	if fields.Resolution != nil {
		out.Resolution = strPtr(fields.Resolution.Name)
	}
	if fields.Priority != nil {
		out.Priority = strPtr(fields.Priority.Name)
	}
	if fields.Assignee != nil {
		out.AssigneeEmail = strPtr(fields.Assignee.EmailAddress)
	}
	if fields.Reporter != nil {
		out.ReporterEmail = strPtr(fields.Reporter.EmailAddress)
	}

	var sprints []jira.Sprint
	if ok, err := issue.CustomField(ids.Sprint, &sprints); err != nil {
		return models.Issue{}, err
	} else if ok && len(sprints) > 0 {
		out.SprintName = strPtr(sprints[len(sprints)-1].Name)
	}

	var points decimal.Decimal
	if ok, err := issue.CustomField(ids.StoryPoints, &points); err != nil {
		return models.Issue{}, err
	} else if ok {
		out.StoryPoints = &points
	}
	return out, nil
}

func timestampPtr(ts *gogithub.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	v := ts.Time.UTC()
	return &v
}

// cleanPartitions trims and dedupes partition keys, keeping configured order.
func cleanPartitions(items []string) []string {
	return lo.Uniq(lo.Filter(lo.Map(items, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}), func(s string, _ int) bool {
		return s != ""
	}))
}
