package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/CareCall/internal/app"
	"github.com/dkeye/CareCall/internal/core"
	"github.com/dkeye/CareCall/internal/domain"
)

// CallHandlers is the request/response call-management surface.
type CallHandlers struct {
	Orch    *app.Orchestrator
	Records core.CallHistory
	Starts  *StartRateLimiter
}

func currentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get("user")
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok
}

func (h *CallHandlers) Start(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req struct {
		CalleeID string `json:"callee_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.CalleeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "callee_id is required"})
		return
	}
	if h.Starts != nil && !h.Starts.Allow(user.ID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many call attempts"})
		return
	}

	call, err := h.Orch.Start(c.Request.Context(), user, domain.UserID(req.CalleeID))
	if err != nil {
		if errors.Is(err, core.ErrUnknownParticipant) {
			c.JSON(http.StatusNotFound, gin.H{"error": "invalid callee id"})
			return
		}
		log.Error().Err(err).Str("module", "adapters.http").Msg("start call")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start call"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room_id":   call.RoomID,
		"caller_id": call.CallerID,
		"callee_id": call.CalleeID,
		"status":    call.Status,
	})
}

func (h *CallHandlers) History(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	result, err := h.Records.ListForUser(c.Request.Context(), user.ID, page, perPage)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("call history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load call history"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CallHandlers) End(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	roomID := domain.RoomID(c.Param("room_id"))

	if err := h.Orch.Leave(c.Request.Context(), roomID, user.ID); err != nil {
		h.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "status": domain.CallEnded})
}

func (h *CallHandlers) Reject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	roomID := domain.RoomID(c.Param("room_id"))

	if err := h.Orch.Reject(c.Request.Context(), roomID, user.ID); err != nil {
		h.writeLifecycleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID, "status": domain.CallMissed})
}

func (h *CallHandlers) writeLifecycleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "no live session for room"})
	case errors.Is(err, core.ErrNotAParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
	case errors.Is(err, core.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "call is past that state"})
	default:
		log.Error().Err(err).Str("module", "adapters.http").Msg("call lifecycle")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
