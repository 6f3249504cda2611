package http

import (
	"context"

	"github.com/dkeye/talkabout/internal/adapters/signal"
	"github.com/dkeye/talkabout/internal/app/orch"
	"github.com/dkeye/talkabout/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware gives every browser a stable "ct" cookie; its value
// is the session id of the websocket it opens.
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

func signalOptions(cfg *config.Config) signal.Options {
	return signal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.Signal.SendBuffer,
		RateLimit:  rate.Limit(cfg.Signal.RateLimit),
		RateBurst:  cfg.Signal.RateBurst,
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("TalkaboutSession", store))
	r.Use(ClientTokenMiddleware())

	h := &handlers{
		ctx:  ctx,
		orch: o,
		ctrl: signal.NewSignalWSController(o, signalOptions(cfg)),
	}

	r.GET("/healthz", h.health)
	r.GET("/ws/waitroom/:slot", h.waitroom)

	api := r.Group("/api")
	api.GET("/identity", h.getIdentity)
	api.POST("/identity", h.setIdentity)
	api.DELETE("/identity", h.clearIdentity)
	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:slot", h.getRoom)
	api.DELETE("/rooms/:slot", h.evictRoom)
	api.GET("/stats", h.stats)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
