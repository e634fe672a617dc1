package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gogithub "github.com/google/go-github/v62/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const perPage = 100

var ErrTokensExhausted = errors.New("all github tokens are rate limited")

type Options struct {
	Tokens  []string
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client wraps go-github with token rotation. One API client is kept per
// token so go-github's own rate limit bookkeeping stays per token.
type Client struct {
	tokens     *TokenManager
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger

	mu   sync.Mutex
	apis map[string]*gogithub.Client
}

func NewClient(opts Options) (*Client, error) {
	if len(opts.Tokens) == 0 {
		return nil, fmt.Errorf("at least one github token is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		tokens:     NewTokenManager(opts.Tokens),
		httpClient: &http.Client{Timeout: timeout},
		logger:     opts.Logger,
		apis:       map[string]*gogithub.Client{},
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		c.baseURL = u
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c, nil
}

func (c *Client) api(token string) *gogithub.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if api, ok := c.apis[token]; ok {
		return api
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	api := gogithub.NewClient(oauth2.NewClient(ctx, ts))
	if c.baseURL != nil {
		api.BaseURL = c.baseURL
	}
	c.apis[token] = api
	return api
}

// call runs fn with the current token and rotates on rate limit errors until
// a call succeeds or every token is limited.
func call[T any](ctx context.Context, c *Client, fn func(api *gogithub.Client) (T, *gogithub.Response, error)) (T, *gogithub.Response, error) {
	for {
		token := c.tokens.Current()
		out, resp, err := fn(c.api(token))
		if err == nil {
			c.tokens.Reset()
			return out, resp, nil
		}
		var zero T
		if !isRateLimited(err) {
			return zero, resp, err
		}
		if ctx.Err() != nil {
			return zero, resp, ctx.Err()
		}
		if !c.tokens.Rotate(token) {
			return zero, resp, fmt.Errorf("%w: %v", ErrTokensExhausted, err)
		}
		c.logger.Warn("github rate limit hit, rotating token", zap.Int("tokens", c.tokens.Len()), zap.Error(err))
	}
}

func isRateLimited(err error) bool {
	var rateErr *gogithub.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	var abuseErr *gogithub.AbuseRateLimitError
	return errors.As(err, &abuseErr)
}

// ListPullRequests fetches one page of pull requests in every state, most
// recently updated first. next is 0 on the last page.
func (c *Client) ListPullRequests(ctx context.Context, owner, repo string, page int) ([]*gogithub.PullRequest, int, error) {
	opt := &gogithub.PullRequestListOptions{
		State:       "all",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gogithub.ListOptions{Page: page, PerPage: perPage},
	}
	prs, resp, err := call(ctx, c, func(api *gogithub.Client) ([]*gogithub.PullRequest, *gogithub.Response, error) {
		return api.PullRequests.List(ctx, owner, repo, opt)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list pull requests %s/%s page %d: %w", owner, repo, page, err)
	}
	return prs, resp.NextPage, nil
}

func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (*gogithub.PullRequest, error) {
	pr, _, err := call(ctx, c, func(api *gogithub.Client) (*gogithub.PullRequest, *gogithub.Response, error) {
		return api.PullRequests.Get(ctx, owner, repo, number)
	})
	if err != nil {
		return nil, fmt.Errorf("get pull request %s/%s#%d: %w", owner, repo, number, err)
	}
	return pr, nil
}

func (c *Client) ListReviews(ctx context.Context, owner, repo string, number int) ([]*gogithub.PullRequestReview, error) {
	var out []*gogithub.PullRequestReview
	opt := &gogithub.ListOptions{PerPage: perPage}
	for {
		reviews, resp, err := call(ctx, c, func(api *gogithub.Client) ([]*gogithub.PullRequestReview, *gogithub.Response, error) {
			return api.PullRequests.ListReviews(ctx, owner, repo, number, opt)
		})
		if err != nil {
			return nil, fmt.Errorf("list reviews %s/%s#%d: %w", owner, repo, number, err)
		}
		out = append(out, reviews...)
		if resp.NextPage == 0 {
			return out, nil
		}
		opt.Page = resp.NextPage
	}
}

func (c *Client) ListIssueEvents(ctx context.Context, owner, repo string, number int) ([]*gogithub.IssueEvent, error) {
	var out []*gogithub.IssueEvent
	opt := &gogithub.ListOptions{PerPage: perPage}
	for {
		events, resp, err := call(ctx, c, func(api *gogithub.Client) ([]*gogithub.IssueEvent, *gogithub.Response, error) {
			return api.Issues.ListIssueEvents(ctx, owner, repo, number, opt)
		})
		if err != nil {
			return nil, fmt.Errorf("list issue events %s/%s#%d: %w", owner, repo, number, err)
		}
		out = append(out, events...)
		if resp.NextPage == 0 {
			return out, nil
		}
		opt.Page = resp.NextPage
	}
}
