package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const searchPath = "/rest/api/3/search/jql"

type Client struct {
	host       string
	username   string
	apiToken   string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host, username, apiToken string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		host:       strings.TrimRight(host, "/"),
		username:   username,
		apiToken:   apiToken,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" || c.apiToken != "" {
		req.SetBasicAuth(c.username, c.apiToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// SearchIssues runs one page of an enhanced JQL search. An empty
// NextPageToken in the result marks the last page.
func (c *Client) SearchIssues(ctx context.Context, jql string, fields []string, maxResults int, pageToken string) (*SearchResult, error) {
	if strings.TrimSpace(jql) == "" {
		return nil, fmt.Errorf("jql is required")
	}
	query := url.Values{}
	query.Set("jql", jql)
	if maxResults > 0 {
		query.Set("maxResults", strconv.Itoa(maxResults))
	}
	if len(fields) > 0 {
		query.Set("fields", strings.Join(fields, ","))
	}
	if pageToken != "" {
		query.Set("nextPageToken", pageToken)
	}
	body, err := c.doRequest(ctx, searchPath, query)
	if err != nil {
		return nil, err
	}
	var result SearchResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if result.IsLast {
		result.NextPageToken = ""
	}
	return &result, nil
}

// ProjectJQL orders a project's issues most recently updated first.
func ProjectJQL(projectKey string) string {
	return fmt.Sprintf(`project = "%s" ORDER BY updated DESC`, strings.ReplaceAll(projectKey, `"`, `\"`))
}
