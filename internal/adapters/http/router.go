package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/CareCall/internal/adapters/signal"
	"github.com/dkeye/CareCall/internal/app"
	"github.com/dkeye/CareCall/internal/config"
	"github.com/dkeye/CareCall/internal/core"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// AuthMiddleware resolves the bearer token (or the token query parameter,
// which is all a browser WebSocket client can send) into a user identity
// and refuses the request without one.
func AuthMiddleware(users core.Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
				token = strings.TrimPrefix(h, "Bearer ")
			}
		}
		user, err := users.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set("user", user)
		c.Next()
	}
}

func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	orch *app.Orchestrator,
	relay *app.Relay,
	users core.Directory,
	history core.CallHistory,
) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("CareCallSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctl := &signal.Controller{
		Orch:       orch,
		Relay:      relay,
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
	}
	h := &CallHandlers{
		Orch:    orch,
		Records: history,
		Starts:  NewStartRateLimiter(10, time.Minute),
	}

	api := r.Group("/api")
	api.Use(AuthMiddleware(users))

	api.GET("/ws/signal", func(c *gin.Context) {
		ctl.HandleSignal(ctx, c)
	})

	calls := api.Group("/calls")
	calls.POST("/start", h.Start)
	calls.GET("/history", h.History)
	calls.POST("/:room_id/end", h.End)
	calls.POST("/:room_id/reject", h.Reject)

	return r
}
