package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "notemind/internal/app"
	"notemind/internal/bootstrap"
	"notemind/internal/cache"
	"notemind/internal/platform/rabbitmq"
	"notemind/internal/repository"
	"notemind/internal/transport/http/handler"
	"notemind/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	noteRepo := repository.NewNoteRepository(app.MySQL)
	noteCache := cache.NewNoteCache(app.Redis, time.Duration(app.Config.Redis.NoteListTTLSeconds)*time.Second)
	reconciler := rabbitmq.NewReconcilePublisher(app.MQConn, app.Config.RabbitMQ.ReconcileQueue)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	noteService := appsvc.NewNoteService(noteRepo, app.AI, app.Vectors, reconciler, noteCache)
	chatService := appsvc.NewChatService(
		noteRepo,
		app.AI,
		app.Vectors,
		app.AI,
		app.Config.LLM.MaxContextMessage,
		app.Config.Vector.TopK,
	)

	authHandler := handler.NewAuthHandler(authService)
	noteHandler := handler.NewNoteHandler(noteService)
	chatHandler := handler.NewChatHandler(chatService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	noteGroup := v1.Group("/notes")
	noteGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	noteGroup.GET("", noteHandler.List)
	noteGroup.POST("", noteHandler.Create)
	noteGroup.PUT("", noteHandler.Update)
	noteGroup.DELETE("", noteHandler.Delete)

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	chatGroup.POST("", chatHandler.Ask)

	return router
}
