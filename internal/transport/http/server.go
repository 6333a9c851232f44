package http

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appsvc "deepchat/internal/app"
	"deepchat/internal/bootstrap"
	"deepchat/internal/cache"
	"deepchat/internal/llm"
	"deepchat/internal/platform/rabbitmq"
	"deepchat/internal/repository"
	"deepchat/internal/transport/http/handler"
	"deepchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.CORS(), middleware.RequestID(), middleware.RequestLog())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)

	gatewayService := appsvc.NewGatewayService(llm.NewClient(), llm.ChatConfig{
		BaseURL:     app.Config.DeepSeek.BaseURL,
		APIKey:      app.Config.DeepSeek.APIKey,
		Model:       app.Config.DeepSeek.Model,
		Temperature: app.Config.DeepSeek.Temperature,
		MaxTokens:   app.Config.DeepSeek.MaxTokens,
	})

	publisher := rabbitmq.NewMirrorPublisher(app.MQConn, app.Config.RabbitMQ.MirrorQueue)
	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	chatService := appsvc.NewChatService(sessionRepo, messageRepo, gatewayService, publisher, historyCache, 0)

	authHandler := handler.NewAuthHandler(authService)
	sessionHandler := handler.NewSessionHandler(chatService)
	gatewayHandler := handler.NewGatewayHandler(gatewayService)
	diagHandler := handler.NewDiagHandler(app.Config.App.Env, func() bool {
		return strings.TrimSpace(app.Config.DeepSeek.APIKey) != ""
	})

	// Public forwarding and diagnostic surface.
	api := router.Group("/api")
	api.POST("/chat", gatewayHandler.Chat)
	api.GET("/test", diagHandler.Get)
	api.POST("/test", diagHandler.Post)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	sessions := v1.Group("/sessions")
	sessions.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	sessions.POST("", sessionHandler.Create)
	sessions.GET("", sessionHandler.List)
	sessions.GET("/:id", sessionHandler.Get)
	sessions.PATCH("/:id/title", sessionHandler.Rename)
	sessions.DELETE("/:id", sessionHandler.Delete)
	sessions.POST("/:id/messages", sessionHandler.SendMessage)
	sessions.GET("/:id/messages", sessionHandler.History)

	return router
}
