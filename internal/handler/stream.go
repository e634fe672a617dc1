package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ilaif/athena-cycle/internal/service"
)

const streamBuffer = 16

// StreamHub fans pass reports out to websocket subscribers. Slow subscribers
// drop reports instead of blocking the sync.
type StreamHub struct {
	mu   sync.Mutex
	subs map[chan service.PassReport]struct{}
}

func NewStreamHub() *StreamHub {
	return &StreamHub{subs: map[chan service.PassReport]struct{}{}}
}

// Publish matches service.PassObserver.
func (h *StreamHub) Publish(report service.PassReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- report:
		default:
		}
	}
}

func (h *StreamHub) Subscribe() (<-chan service.PassReport, func()) {
	ch := make(chan service.PassReport, streamBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
		})
	}
}

func (h *StreamHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

type StreamHandler struct {
	Hub    *StreamHub
	Logger *zap.Logger
}

func (h *StreamHandler) Register(r *gin.Engine) {
	r.GET("/api/sync/stream", h.stream)
}

// @Summary Websocket feed of partition pass reports
// @Tags sync
// @Success 101
// @Security BearerAuth
// @Router /api/sync/stream [get]
func (h *StreamHandler) stream(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusInternalServerError, "stream unavailable", nil)
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Debug("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	reports, unsubscribe := h.Hub.Subscribe()
	defer unsubscribe()

	ctx := conn.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case report := <-reports:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, report)
			cancel()
			if err != nil {
				if h.Logger != nil {
					h.Logger.Debug("websocket write failed", zap.Error(err))
				}
				return
			}
		}
	}
}
