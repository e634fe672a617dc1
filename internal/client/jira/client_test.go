package jira

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const searchPage = `{
  "issues": [
    {
      "id": "10001",
      "key": "CORE-7",
      "fields": {
        "summary": "Fix login",
        "issuetype": {"name": "Bug"},
        "project": {"key": "CORE"},
        "status": {"name": "Done"},
        "resolution": {"name": "Fixed"},
        "resolutiondate": "2024-03-02T09:30:00.000+0000",
        "created": "2024-03-01T08:00:00.000+0200",
        "updated": "2024-03-02T09:30:00.000+0000",
        "priority": {"name": "High"},
        "labels": ["auth"],
        "assignee": null,
        "reporter": {"emailAddress": "rep@example.com"},
        "customfield_10020": [{"id": 1, "name": "Sprint 1"}, {"id": 2, "name": "Sprint 2"}],
        "customfield_10016": 5
      }
    }
  ],
  "nextPageToken": "tok-2",
  "isLast": false
}`

func TestSearchIssuesDecodesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != searchPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "bot@example.com" || pass != "secret" {
			t.Errorf("missing basic auth")
		}
		q := r.URL.Query()
		if q.Get("jql") != `project = "CORE" ORDER BY updated DESC` {
			t.Errorf("unexpected jql %q", q.Get("jql"))
		}
		if q.Get("maxResults") != "50" || q.Get("fields") != "summary,updated" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL+"/", "bot@example.com", "secret")
	res, err := c.SearchIssues(context.Background(), ProjectJQL("CORE"), []string{"summary", "updated"}, 50, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.NextPageToken != "tok-2" || len(res.Issues) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	issue := res.Issues[0]
	if issue.Key != "CORE-7" || issue.Fields.Status.Name != "Done" {
		t.Fatalf("unexpected issue: %+v", issue)
	}
	wantCreated := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	if !issue.Fields.Created.Equal(wantCreated) {
		t.Fatalf("created=%s want %s", issue.Fields.Created, wantCreated)
	}
	if issue.Fields.Assignee != nil {
		t.Fatalf("expected nil assignee")
	}

	var sprints []Sprint
	ok, err := issue.CustomField("customfield_10020", &sprints)
	if err != nil || !ok || len(sprints) != 2 || sprints[1].Name != "Sprint 2" {
		t.Fatalf("sprints=%+v ok=%v err=%v", sprints, ok, err)
	}
	var points float64
	ok, err = issue.CustomField("customfield_10016", &points)
	if err != nil || !ok || points != 5 {
		t.Fatalf("points=%v ok=%v err=%v", points, ok, err)
	}
	ok, _ = issue.CustomField("customfield_missing", &points)
	if ok {
		t.Fatalf("missing field reported present")
	}
	if len(issue.Raw) == 0 {
		t.Fatalf("raw payload not kept")
	}
}

func TestSearchIssuesLastPageClearsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("nextPageToken") != "tok-2" {
			t.Errorf("page token not forwarded")
		}
		_, _ = w.Write([]byte(`{"issues": [], "nextPageToken": "ignored", "isLast": true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "", "")
	res, err := c.SearchIssues(context.Background(), "project = CORE", nil, 0, "tok-2")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.NextPageToken != "" {
		t.Fatalf("expected empty token on last page")
	}
}

func TestSearchIssuesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errorMessages":["nope"]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL, "u", "p")
	_, err := c.SearchIssues(context.Background(), "project = CORE", nil, 10, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("err=%v want APIError 401", err)
	}
}

func TestSearchIssuesRequiresJQL(t *testing.T) {
	c := NewClient(nil, "http://example.invalid", "", "")
	if _, err := c.SearchIssues(context.Background(), " ", nil, 10, ""); err == nil {
		t.Fatalf("expected error for empty jql")
	}
}
