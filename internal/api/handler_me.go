package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hostel-allocation-backend/internal/apperr"
	"hostel-allocation-backend/internal/cache"
	"hostel-allocation-backend/internal/model"
)

const (
	defaultNoticeLimit = 50
	maxNoticeLimit     = 200
)

// Me handles GET /api/me.
func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, identity(c))
}

// MyApplications handles GET /api/me/applications. The list is kept in the
// session tier until a transition touches the student or they log out.
func (h *Handler) MyApplications(c *gin.Context) {
	studentID := identity(c).Subject
	key := cache.StudentKey(studentID, "applications")

	apps, err := cache.GetOrSet(c.Request.Context(), h.cache, key, func(context.Context) ([]model.Application, error) {
		return h.engine.StudentApplications(studentID), nil
	}, h.sessionTTL, cache.TierSession)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// MyNotices handles GET /api/me/notices?limit=.
func (h *Handler) MyNotices(c *gin.Context) {
	limit := defaultNoticeLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxNoticeLimit {
			respondError(c, apperr.Validation("limit must be between 1 and %d", maxNoticeLimit))
			return
		}
		limit = n
	}

	notices, err := h.notices.ListNotices(c.Request.Context(), identity(c).Subject, limit)
	if err != nil {
		respondError(c, apperr.Internal("failed to list notices", err))
		return
	}
	c.JSON(http.StatusOK, notices)
}

// Logout handles POST /api/session/logout.
func (h *Handler) Logout(c *gin.Context) {
	h.sessions.Logout(identity(c))
	c.Status(http.StatusNoContent)
}
