package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"google.golang.org/api/option"

	"chat-sync-service/internal/config"
	"chat-sync-service/internal/db"
	"chat-sync-service/internal/fanout"
	"chat-sync-service/internal/grpcserver"
	"chat-sync-service/internal/handlers"
	"chat-sync-service/internal/identity"
	"chat-sync-service/internal/media"
	"chat-sync-service/internal/middleware"
	"chat-sync-service/internal/observability"
	"chat-sync-service/internal/push"
	"chat-sync-service/internal/rabbitmq"
	"chat-sync-service/internal/repositories"
	"chat-sync-service/internal/services"
	"chat-sync-service/internal/telemetry"
	"chat-sync-service/internal/treestore"
	"chat-sync-service/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	var app *firebase.App
	if cfg.FirebaseNeeded() {
		app, err = newFirebaseApp(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to init firebase: %v", err)
		}
	}

	store, err := openStore(ctx, cfg, app)
	if err != nil {
		log.Fatalf("failed to open tree store: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	auditEmitter := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment)

	chatRepo := repositories.NewChatRepo(store)
	messageRepo := repositories.NewMessageRepo(store)
	userRepo := repositories.NewUserRepo(store)

	hub := ws.NewHub()
	events := fanout.NewBroadcaster(hub, publisher)

	mediaStore, err := newMediaStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init media store: %v", err)
	}
	notifier, err := newNotifier(ctx, cfg, app)
	if err != nil {
		log.Fatalf("failed to init push: %v", err)
	}

	messageService := services.NewMessageService(store, chatRepo, messageRepo, userRepo, events, notifier, mediaStore)
	chatService := services.NewChatService(store, chatRepo, userRepo, messageService, events, mediaStore)
	userService := services.NewUserService(store, userRepo, chatRepo, mediaStore)
	friendService := services.NewFriendService(store, userRepo)

	if err := services.StartListeners(ctx, store, chatRepo, userRepo, events); err != nil {
		log.Fatalf("failed to start store listeners: %v", err)
	}
	go services.NewReconciler(store, chatRepo, userRepo).Run(ctx, cfg.ReconcileInterval)

	var gateway identity.Gateway
	var authenticator middleware.Authenticator = middleware.HeaderAuthenticator{}
	if cfg.AuthMode == "firebase" {
		authClient, err := app.Auth(ctx)
		if err != nil {
			log.Fatalf("failed to init firebase auth: %v", err)
		}
		fg, err := identity.NewFirebaseGateway(ctx, authClient, cfg.FirebaseAPIKey, cfg.GoogleClientID, newMailer(cfg))
		if err != nil {
			log.Fatalf("failed to init identity gateway: %v", err)
		}
		gateway = fg
		authenticator = middleware.NewTokenAuthenticator(fg)
	} else {
		log.Printf("auth mode %q: trusting X-User-ID, account endpoints disabled", cfg.AuthMode)
	}

	chatHandler := handlers.NewChatHandler(chatService, userService, auditEmitter)
	groupHandler := handlers.NewGroupHandler(chatService, auditEmitter)
	messageHandler := handlers.NewMessageHandler(chatService, messageService)
	userHandler := handlers.NewUserHandler(userService, chatService)
	friendHandler := handlers.NewFriendHandler(friendService)
	wsHandler := ws.NewHandler(hub, authenticator, ws.NewTopicAuthorizer(chatService))

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.RequestIDMiddleware())
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(observability.Handler()))
	router.GET("/ws", wsHandler.Handle)
	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.DebugRoutes)

	api := router.Group("/api")

	if gateway != nil {
		authHandler := handlers.NewAuthHandler(services.NewRegistrationService(gateway, userService), auditEmitter)
		api.POST("/auth/createUser", authHandler.Register)
		api.POST("/auth/verifyUser", authHandler.SendVerification)
		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/google", authHandler.GoogleLogin)
		api.POST("/auth/logout", middleware.AuthMiddleware(authenticator), authHandler.Logout)
	}

	secured := api.Group("", middleware.AuthMiddleware(authenticator))

	secured.GET("/chats", chatHandler.ListChats)
	secured.POST("/chats/create-individual", chatHandler.CreateIndividual)
	secured.GET("/chats/:chatId", chatHandler.GetChat)
	secured.DELETE("/chats/:chatId", chatHandler.DeleteChat)
	secured.POST("/chats/:chatId/hide", chatHandler.HideChat)
	secured.POST("/chats/:chatId/unhide", chatHandler.UnhideChat)
	secured.POST("/chats/:chatId/verify-pin", chatHandler.VerifyPin)

	secured.POST("/groups", groupHandler.CreateGroup)
	secured.DELETE("/groups/:chatId", groupHandler.DeleteGroup)
	secured.PATCH("/chats/:chatId", groupHandler.UpdateGroupInfo)
	secured.PATCH("/chats/:chatId/role", groupHandler.UpdateUserRole)
	secured.DELETE("/chats/:chatId/user/:userId", groupHandler.RemoveUser)
	secured.POST("/chats/:chatId/add-user/:userId", groupHandler.AddUser)

	secured.GET("/chats/:chatId/messages", messageHandler.ListMessages)
	secured.POST("/chats/:chatId/messages", messageHandler.PostMessage)
	secured.GET("/chats/:chatId/messages/:messageId", messageHandler.GetMessage)
	secured.PUT("/chats/:chatId/messages/:messageId", messageHandler.UpdateMessage)
	secured.DELETE("/chats/:chatId/messages/:messageId", messageHandler.DeleteMessage)

	secured.GET("/users", userHandler.ListUsers)
	secured.GET("/users/chatlist", userHandler.ChatList)
	secured.POST("/users/updateProfile", userHandler.UpdateProfile)
	secured.PUT("/users/markChatAsRead/:chatId", userHandler.MarkChatAsRead)
	secured.GET("/users/:uid", userHandler.GetUser)
	secured.PUT("/users/:uid", userHandler.UpsertUser)
	secured.DELETE("/users/:uid", userHandler.DeleteUser)
	secured.PUT("/users/:uid/status", userHandler.UpdateStatus)
	secured.PATCH("/users/:uid/bio", userHandler.UpdateBio)
	secured.PUT("/users/:uid/device-tokens", userHandler.RegisterDeviceToken)
	secured.DELETE("/users/:uid/device-tokens", userHandler.RemoveDeviceToken)

	secured.GET("/friends", friendHandler.ListFriends)
	secured.GET("/friends/requests", friendHandler.ListRequests)
	secured.POST("/friends/request", friendHandler.SendRequest)
	secured.DELETE("/friends/request", friendHandler.Reject)
	secured.POST("/friends/accept", friendHandler.Accept)

	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			log.Fatalf("failed to listen grpc: %v", err)
		}
		health := grpcserver.New()
		health.SetServing(cfg.ServiceName, true)
		go func() {
			if err := health.Serve(ctx, lis); err != nil {
				log.Printf("grpc server error: %v", err)
			}
		}()
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		log.Printf("chat-sync-service listening on :%s (store=%s auth=%s)", cfg.Port, cfg.StoreBackend, cfg.AuthMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGraceTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
}

func newFirebaseApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentials))
	}
	return firebase.NewApp(ctx, &firebase.Config{
		DatabaseURL: cfg.FirebaseDatabaseURL,
		ProjectID:   cfg.FirebaseProjectID,
	}, opts...)
}

// openStore picks the backend and attaches the Redis relay when configured.
func openStore(ctx context.Context, cfg *config.Config, app *firebase.App) (*treestore.Client, error) {
	var backend treestore.Backend
	switch cfg.StoreBackend {
	case "postgres":
		database, err := db.Connect(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		backend = treestore.NewPostgresBackend(database)
	case "firebase":
		client, err := app.Database(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase database: %w", err)
		}
		backend = treestore.NewFirebaseBackend(client)
	default:
		backend = treestore.NewMemoryBackend()
	}

	var opts []treestore.Option
	if cfg.RedisURL != "" {
		relay, err := treestore.NewRedisRelay(ctx, cfg.RedisURL)
		if err != nil {
			log.Printf("treestore relay disabled: %v", err)
		} else {
			opts = append(opts, treestore.WithRelay(relay))
		}
	}

	store := treestore.NewClient(backend, opts...)
	if err := store.Start(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func newMediaStore(ctx context.Context, cfg *config.Config) (media.Store, error) {
	if cfg.S3Bucket == "" {
		return media.PassthroughStore{}, nil
	}
	return media.NewS3Store(ctx, media.S3Config{
		Bucket:          cfg.S3Bucket,
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		PublicBaseURL:   cfg.S3PublicBaseURL,
	})
}

func newNotifier(ctx context.Context, cfg *config.Config, app *firebase.App) (push.Notifier, error) {
	if !cfg.PushEnabled {
		return push.NoopNotifier{}, nil
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return push.NewFCMNotifier(client), nil
}

func newMailer(cfg *config.Config) identity.Mailer {
	switch cfg.EmailProvider {
	case "sendgrid":
		return identity.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName)
	case "smtp":
		return identity.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	}
	return identity.NewLogMailer()
}
