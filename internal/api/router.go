package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/mw"
	"hostel-allocation-backend/internal/session"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	CORSOrigins []string
	// Limiter is shared so the caller can prune idle clients. Nil builds one from RateLimit/RateBurst.
	Limiter   *mw.ClientRateLimiter
	RateLimit rate.Limit
	RateBurst int
	// RouteCacheTTL is how long public GET responses stay in the ephemeral tier.
	RouteCacheTTL time.Duration
	// MaxUploadBytes bounds multipart request bodies.
	MaxUploadBytes int64
	// ClientIPHeader names the header a fronting proxy puts the client address in.
	ClientIPHeader string
}

func corsConfig(origins []string) cors.Config {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Cache"},
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           12 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(), cors.New(corsConfig(opts.CORSOrigins)))
	if opts.ClientIPHeader != "" {
		r.TrustedPlatform = opts.ClientIPHeader
	}

	if opts.MaxUploadBytes > 0 {
		// Room for several documents plus form fields.
		r.MaxMultipartMemory = 4 * opts.MaxUploadBytes
	}

	limiter := opts.Limiter
	if limiter == nil {
		limit, burst := opts.RateLimit, opts.RateBurst
		if limit <= 0 {
			limit = 10
		}
		if burst <= 0 {
			burst = 20
		}
		limiter = mw.NewClientRateLimiter(limit, burst)
	}
	rateLimiter := mw.RateLimiterWith(limiter)

	ttl := opts.RouteCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	caching := mw.Cache(h.cache, ttl)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	auth := mw.Authenticate(h.sessions)
	students := mw.RequireRole(session.RoleStudent)
	admins := mw.RequireRole(session.RoleAdmin)

	// Public routes are limited per IP, authenticated ones per subject.
	public := r.Group("/api", rateLimiter)
	{
		public.GET("/hostels", caching, h.ListHostels)
		public.GET("/hostels/:hostel_id", caching, h.GetHostel)
		public.GET("/hostels/:hostel_id/rooms", caching, h.ListRooms)
		public.GET("/hostels/:hostel_id/floors", caching, h.ListFloors)
		public.GET("/stats", caching, h.GetStats)
	}

	api := r.Group("/api", auth, rateLimiter)
	{
		api.GET("/applications", admins, h.ListApplications)
		api.POST("/applications", students, h.SubmitApplication)
		api.POST("/applications/:application_id/approve", admins, h.ApproveApplication)
		api.POST("/applications/:application_id/reject", admins, h.RejectApplication)

		api.GET("/rooms/:room_id", admins, h.GetRoom)
		api.PATCH("/rooms/:room_id/status", admins, h.UpdateRoomStatus)
		api.POST("/rooms/:room_id/release", admins, h.ReleaseRoom)

		api.GET("/me", h.Me)
		api.GET("/me/applications", students, h.MyApplications)
		api.GET("/me/notices", students, h.MyNotices)
		api.POST("/session/logout", h.Logout)
	}

	return r
}
