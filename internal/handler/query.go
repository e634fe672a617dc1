package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ilaif/athena-cycle/internal/config"
	"github.com/ilaif/athena-cycle/internal/models"
	"github.com/ilaif/athena-cycle/internal/repository"
)

type QueryHandler struct {
	Store  repository.QueryRepository
	Logger *zap.Logger
}

func (h *QueryHandler) Register(r *gin.Engine) {
	group := r.Group("/api")
	group.GET("/pull-requests", h.listPullRequests)
	group.GET("/issues", h.listIssues)
}

type pullRequestView struct {
	models.PullRequest
	Reviews []models.PullRequestReview `json:"reviews,omitempty"`
}

// @Summary List synced pull requests
// @Tags query
// @Param repo query string false "owner/name"
// @Param state query string false "open|closed"
// @Param author query string false "author login"
// @Param since query string false "updated since (YYYY-MM-DD or RFC3339)"
// @Param reviews query bool false "include reviews"
// @Param order_by query string false "updated_at|created_at|merged_at|number"
// @Param asc query bool false "ascending order"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Security BearerAuth
// @Router /api/pull-requests [get]
func (h *QueryHandler) listPullRequests(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	repo := stringQueryPtr(c, "repo")
	if repo != nil {
		if err := config.ValidateRepository(*repo); err != nil {
			Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
	}
	since, err := config.ParseDate(c.Query("since"))
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	params := repository.ListPullRequestsParams{
		Limit:   intQuery(c, "limit", 100),
		Offset:  intQuery(c, "offset", 0),
		Repo:    repo,
		State:   stringQueryPtr(c, "state"),
		Author:  stringQueryPtr(c, "author"),
		Since:   since,
		OrderBy: strings.TrimSpace(c.Query("order_by")),
		Asc:     boolQueryPtr(c, "asc"),
	}
	ctx := c.Request.Context()
	items, err := h.Store.ListPullRequests(ctx, params)
	if err != nil {
		h.warn("list pull requests failed", err)
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Store.CountPullRequests(ctx, params)
	if err != nil {
		h.warn("count pull requests failed", err)
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}

	views := lo.Map(items, func(pr models.PullRequest, _ int) pullRequestView {
		return pullRequestView{PullRequest: pr}
	})
	if include := boolQueryPtr(c, "reviews"); include != nil && *include && len(items) > 0 {
		ids := lo.Map(items, func(pr models.PullRequest, _ int) int64 { return pr.PrID })
		reviews, err := h.Store.ListReviewsByPullRequestIDs(ctx, ids)
		if err != nil {
			h.warn("list reviews failed", err)
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
		byPR := lo.GroupBy(reviews, func(r models.PullRequestReview) int64 { return r.PrID })
		for i := range views {
			views[i].Reviews = byPR[views[i].PrID]
		}
	}
	Ok(c, views, map[string]any{"total": total, "limit": params.Limit, "offset": params.Offset})
}

// @Summary List synced Jira issues
// @Tags query
// @Param project query string false "project key"
// @Param status query string false "status name"
// @Param since query string false "updated since (YYYY-MM-DD or RFC3339)"
// @Param order_by query string false "updated|created|key"
// @Param asc query bool false "ascending order"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Security BearerAuth
// @Router /api/issues [get]
func (h *QueryHandler) listIssues(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	since, err := config.ParseDate(c.Query("since"))
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	params := repository.ListIssuesParams{
		Limit:      intQuery(c, "limit", 100),
		Offset:     intQuery(c, "offset", 0),
		ProjectKey: stringQueryPtr(c, "project"),
		Status:     stringQueryPtr(c, "status"),
		Since:      since,
		OrderBy:    strings.TrimSpace(c.Query("order_by")),
		Asc:        boolQueryPtr(c, "asc"),
	}
	ctx := c.Request.Context()
	items, err := h.Store.ListIssues(ctx, params)
	if err != nil {
		h.warn("list issues failed", err)
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Store.CountIssues(ctx, params)
	if err != nil {
		h.warn("count issues failed", err)
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"total": total, "limit": params.Limit, "offset": params.Offset})
}

func (h *QueryHandler) warn(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Warn(msg, zap.Error(err))
	}
}
