package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"hostel-allocation-backend/internal/allocation"
	"hostel-allocation-backend/internal/cache"
	"hostel-allocation-backend/internal/logging"
	"hostel-allocation-backend/internal/model"
	"hostel-allocation-backend/internal/mw"
	"hostel-allocation-backend/internal/session"
	"hostel-allocation-backend/internal/upload"
)

// NoticeLister reads a student's decision notices.
type NoticeLister interface {
	ListNotices(ctx context.Context, studentID string, limit int) ([]model.Notice, error)
}

// Deps are the collaborators handlers reach state through.
type Deps struct {
	Engine   *allocation.Engine
	Notices  NoticeLister
	Sessions *session.Manager
	Uploads  *upload.Encoder
	Cache    *cache.Store
	// SessionTTL bounds how long per-student views stay in the session tier.
	SessionTTL time.Duration
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	engine     *allocation.Engine
	notices    NoticeLister
	sessions   *session.Manager
	uploads    *upload.Encoder
	cache      *cache.Store
	sessionTTL time.Duration
	log        zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	uploads := d.Uploads
	if uploads == nil {
		uploads = upload.NewEncoder(0, "")
	}
	ttl := d.SessionTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Handler{
		engine:     d.Engine,
		notices:    d.Notices,
		sessions:   d.Sessions,
		uploads:    uploads,
		cache:      d.Cache,
		sessionTTL: ttl,
		log:        logging.WithComponent("api"),
	}
}

func respondError(c *gin.Context, err error) {
	mw.Abort(c, err)
}

// identity returns the caller set by mw.Authenticate. Routes without it are misconfigured.
func identity(c *gin.Context) session.Identity {
	id, _ := mw.IdentityFrom(c)
	return id
}
