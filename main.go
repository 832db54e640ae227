package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chat-rooms-service/internal/auth"
	"chat-rooms-service/internal/authz"
	"chat-rooms-service/internal/config"
	"chat-rooms-service/internal/db"
	"chat-rooms-service/internal/events"
	"chat-rooms-service/internal/handlers"
	"chat-rooms-service/internal/middleware"
	"chat-rooms-service/internal/observability"
	"chat-rooms-service/internal/repositories"
	"chat-rooms-service/internal/status"
	"chat-rooms-service/internal/telemetry"
)

const serviceName = "chat-rooms-service"

func main() {
	cfg := config.Load()

	shutdownTracing := observability.InitTracing(context.Background(), serviceName, cfg.OTLPEndpoint)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	publisher := events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "chat.audit.event", serviceName, cfg.Environment)

	userRepo := repositories.NewUserRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	receiptRepo := repositories.NewReceiptRepo(database)

	policy := status.Policy{ReceiptForReactingSender: os.Getenv("RECEIPT_FOR_REACTING_SENDER") == "true"}
	engine := status.NewEngine(roomRepo, messageRepo, receiptRepo, policy)
	guard := authz.NewGuard(roomRepo)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTTL)
	sessions := auth.NewRedisSessionStore(redisClient)

	authHandler := handlers.NewAuthHandler(userRepo, issuer, sessions, cfg.SessionTTL, audit)
	userHandler := handlers.NewUserHandler(userRepo, audit)
	roomHandler := handlers.NewRoomHandler(roomRepo, userRepo, guard, audit)
	messageHandler := handlers.NewMessageHandler(roomRepo, messageRepo, engine, guard, audit)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/login", authHandler.Login)

	authMiddleware := middleware.AuthMiddleware(issuer, sessions)
	authed := router.Group("/", authMiddleware)

	authed.POST("/auth/logout", authHandler.Logout)

	authed.GET("/users", userHandler.ListUsers)
	authed.GET("/users/:user_id", userHandler.GetUser)
	authed.PATCH("/users/:user_id", userHandler.UpdateUser)
	authed.PUT("/users/:user_id/password", userHandler.UpdatePassword)
	authed.PUT("/users/:user_id/profile-image", userHandler.UpdateProfileImage)

	admin := authed.Group("/admin", middleware.AdminOnly())
	admin.PUT("/users/:user_id/activate", userHandler.ActivateUser)
	admin.PUT("/users/:user_id/deactivate", userHandler.DeactivateUser)
	admin.PUT("/users/:user_id/revoke-admin", userHandler.RevokeAdmin)

	authed.POST("/rooms/private", roomHandler.CreatePrivateRoom)
	authed.POST("/rooms/group", roomHandler.CreateGroupRoom)
	authed.GET("/rooms", roomHandler.ListMyRooms)
	authed.GET("/rooms/:room_id", roomHandler.GetRoom)
	authed.PATCH("/rooms/:room_id", roomHandler.UpdateRoom)
	authed.POST("/rooms/:room_id/members", roomHandler.AddMember)
	authed.DELETE("/rooms/:room_id/members/:user_id", roomHandler.RemoveMember)
	authed.PUT("/rooms/:room_id/members/:user_id/role", roomHandler.SetMemberRole)
	authed.PUT("/rooms/:room_id/bookmark", roomHandler.SetFlag(repositories.FlagBookmarked))
	authed.PUT("/rooms/:room_id/pin", roomHandler.SetFlag(repositories.FlagPinned))
	authed.PUT("/rooms/:room_id/archive", roomHandler.SetFlag(repositories.FlagArchived))

	authed.POST("/messages", messageHandler.CreateMessage)
	authed.GET("/rooms/:room_id/messages", messageHandler.ListRoomMessages)
	authed.PUT("/messages/:message_id", messageHandler.UpdateMessage)
	authed.POST("/messages/:message_id/reactions", messageHandler.ReactToMessage)
	authed.DELETE("/messages/:message_id", messageHandler.DeleteMessage)
	authed.GET("/messages/:message_id/receipts", messageHandler.GetReceipts)
	authed.GET("/messages/:message_id/edits", messageHandler.GetEditHistory)
	authed.PUT("/messages/:message_id/bookmark", messageHandler.SetFlag(repositories.MessageFlagBookmarked))
	authed.PUT("/messages/:message_id/archive", messageHandler.SetFlag(repositories.MessageFlagArchived))
	authed.GET("/messages/bookmarked", messageHandler.ListFlagged(repositories.MessageFlagBookmarked))
	authed.GET("/messages/archived", messageHandler.ListFlagged(repositories.MessageFlagArchived))

	authed.POST("/rooms/:room_id/sync/delivered", messageHandler.SyncDelivered)
	authed.POST("/sync/seen", messageHandler.SyncSeen)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
