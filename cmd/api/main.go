package main

import (
	"context"
	"log"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"uninest/internal/adapter/api"
	"uninest/internal/adapter/api/handler"
	apimiddleware "uninest/internal/adapter/api/middleware"
	"uninest/internal/adapter/api/router"
	"uninest/internal/adapter/repository"
	"uninest/internal/infrastructure/cache"
	"uninest/internal/infrastructure/eventbus"
	"uninest/internal/infrastructure/firebase"
	"uninest/internal/infrastructure/storage"
	"uninest/internal/infrastructure/websocket"
	"uninest/internal/usecase"
	"uninest/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption
	credentialsPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
		credentialsPath = ""
	} else if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		MaxRetries: 3,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
	}
	defer rdb.Close()

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, credentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer storageClient.Close()

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	listingRepo := repository.NewFirestoreListingRepository(firestoreClient)
	favoriteRepo := repository.NewFirestoreFavoriteRepository(firestoreClient)
	conversationRepo := repository.NewFirestoreConversationRepository(firestoreClient)
	messageRepo := repository.NewFirestoreMessageRepository(firestoreClient)
	statusRepo := repository.NewFirestoreMessageStatusRepository(firestoreClient)

	tokenService := firebase.NewAuthClient(authClient, cfg.FirebaseApiKey)
	listingCache := cache.NewCache(rdb, time.Duration(cfg.ListingCacheTTL)*time.Second)
	publisher := eventbus.NewRedisPublisher(rdb)
	ledger := usecase.NewStatusLedger(statusRepo)

	authUseCase := usecase.NewAuthUseCase(userRepo, tokenService)
	listingUseCase := usecase.NewListingUseCase(listingRepo, userRepo, listingCache, storageClient)
	favoriteUseCase := usecase.NewFavoriteUseCase(favoriteRepo, listingRepo)
	chatUseCase := usecase.NewChatUseCase(conversationRepo, messageRepo, userRepo, listingRepo, ledger, publisher)

	gate := websocket.NewGate(tokenService, userRepo)
	wsManager := websocket.NewManager(conversationRepo, chatUseCase, publisher)
	wsManager.Start(ctx)

	relay := eventbus.NewRelay(rdb, wsManager)
	relay.Start(ctx)

	handler.Setup(authUseCase, listingUseCase, favoriteUseCase, chatUseCase)

	e := echo.New()

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(tokenService)
	wsHandler := handler.NewWebSocketHandler(wsManager, gate)

	router.Setup(e, authMiddleware, wsHandler)

	log.Printf("Starting server on port %s (%s)", cfg.ServerPort, cfg.Environment)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
