package routes

import (
	"net/http"
	"time"

	"chat-realtime/docs"
	"chat-realtime/internal/api/handlers"
	"chat-realtime/internal/api/middleware"
	"chat-realtime/internal/auth"
	"chat-realtime/internal/metrics"
	"chat-realtime/internal/services"
	"chat-realtime/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies wires the router. RateLimiter may be nil, which disables
// request rate limiting. PresenceMirror may be nil.
type Dependencies struct {
	Hub            *websocket.Hub
	Gate           *auth.Gate
	ChatService    *services.ChatService
	RateLimiter    middleware.RateLimiter
	PresenceMirror handlers.PresenceLookup
	AllowedOrigins []string
}

type Router struct {
	engine          *gin.Engine
	wsHandler       *handlers.WSHandler
	chatHandler     *handlers.ChatHandler
	presenceHandler *handlers.PresenceHandler
	rateLimitMW     *middleware.RateLimitMiddleware
	authMW          *middleware.AuthMiddleware
}

func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.AllowedOrigins))
	engine.Use(middleware.LogApi())
	engine.Use(metrics.GinMiddleware())

	r := &Router{
		engine:          engine,
		wsHandler:       handlers.NewWSHandler(deps.Hub, websocket.NewUpgrader(deps.AllowedOrigins)),
		chatHandler:     handlers.NewChatHandler(deps.ChatService, deps.Hub),
		presenceHandler: handlers.NewPresenceHandler(deps.Hub.Presence(), deps.PresenceMirror),
		authMW:          middleware.NewAuthMiddleware(deps.Gate),
	}
	if deps.RateLimiter != nil {
		r.rateLimitMW = middleware.NewRateLimitMiddleware(deps.RateLimiter)
	}
	return r
}

func (r *Router) limit(requests int, window time.Duration, ws bool) gin.HandlerFunc {
	if r.rateLimitMW == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if ws {
		return r.rateLimitMW.WebSocketRateLimit(requests, window)
	}
	return r.rateLimitMW.RateLimit(requests, window)
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	docs.SwaggerInfo.BasePath = "/api/v1"
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// WebSocket endpoint: authenticate first so a bad token never upgrades
	api.GET("/ws",
		r.authMW.RequireAuth(),
		r.limit(10, time.Minute, true), // 10 handshakes per minute
		r.wsHandler.HandleWebSocket,
	)

	// Authenticated routes
	authed := api.Group("/")
	authed.Use(r.authMW.RequireAuth())
	{
		chats := authed.Group("/chats")
		chats.Use(r.limit(100, time.Minute, false)) // 100 requests per minute
		{
			chats.GET("", r.chatHandler.GetUserChats)
			chats.POST("", r.chatHandler.CreateChat)
			chats.GET("/:id/messages", r.chatHandler.GetChatMessages)
		}

		users := authed.Group("/users")
		users.Use(r.limit(100, time.Minute, false))
		{
			users.GET("/:id/presence", r.presenceHandler.GetUserPresence)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
