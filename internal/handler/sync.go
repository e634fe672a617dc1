package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ilaif/athena-cycle/internal/repository"
	"github.com/ilaif/athena-cycle/internal/service"
	"github.com/ilaif/athena-cycle/internal/syncengine"
)

type SyncHandler struct {
	Runner *service.Runner
	Store  repository.SyncRepository
	Logger *zap.Logger
}

func (h *SyncHandler) Register(r *gin.Engine) {
	group := r.Group("/api")
	group.POST("/sync", h.runSync)
	group.GET("/sync-state", h.listSyncState)
}

// @Summary Run a sync pass now
// @Tags sync
// @Param family query string false "github|jira|all"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Failure 502 {object} apiResponse
// @Security BearerAuth
// @Router /api/sync [post]
func (h *SyncHandler) runSync(c *gin.Context) {
	if h.Runner == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	family := c.DefaultQuery("family", service.FamilyAll)
	// A started pass runs to completion even if the caller goes away.
	ctx := context.WithoutCancel(c.Request.Context())
	results, err := h.Runner.SyncFamily(ctx, family)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("manual sync failed", zap.String("family", family), zap.Error(err))
		}
		switch {
		case errors.Is(err, service.ErrUnknownFamily):
			Error(c, http.StatusBadRequest, err.Error(), map[string]any{"families": h.Runner.Names()})
		case errors.Is(err, syncengine.ErrPassInProgress):
			Error(c, http.StatusConflict, err.Error(), map[string]any{"results": results})
		default:
			Error(c, http.StatusBadGateway, err.Error(), map[string]any{"results": results})
		}
		return
	}
	touched := 0
	for _, res := range results {
		touched += res.Touched()
	}
	Ok(c, results, map[string]any{"touched": touched})
}

// @Summary List per-partition sync state
// @Tags sync
// @Success 200 {object} apiResponse
// @Security BearerAuth
// @Router /api/sync-state [get]
func (h *SyncHandler) listSyncState(c *gin.Context) {
	if h.Store == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	states, err := h.Store.ListSyncStates(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list sync state failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, states, map[string]any{"total": len(states)})
}
