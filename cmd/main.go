package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v4"
	"golang.org/x/sync/errgroup"

	"github.com/shoplive/liveroom/internal/config"
	"github.com/shoplive/liveroom/internal/domain"
	"github.com/shoplive/liveroom/internal/events"
	"github.com/shoplive/liveroom/internal/handler"
	"github.com/shoplive/liveroom/internal/hub"
	"github.com/shoplive/liveroom/internal/media"
	"github.com/shoplive/liveroom/internal/presence"
	"github.com/shoplive/liveroom/internal/realtime"
	"github.com/shoplive/liveroom/internal/repository"
	"github.com/shoplive/liveroom/internal/room"
	"github.com/shoplive/liveroom/internal/service"
	"github.com/shoplive/liveroom/pkg/database"
	"github.com/shoplive/liveroom/pkg/jwt"
	pkglog "github.com/shoplive/liveroom/pkg/log"
	"github.com/shoplive/liveroom/pkg/middleware"
	"github.com/shoplive/liveroom/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		pkglog.L().Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "liveroom",
	})
	logger := pkglog.L()

	// Connect to database
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.AutoMigrate(db,
		&domain.SessionModel{},
		&domain.ChatEventModel{},
		&domain.ProductModel{},
		&domain.CartItemModel{},
		&domain.OrderModel{},
		&domain.OrderItemModel{},
		&domain.WalletModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// Repositories
	sessionRepo := repository.NewGormSessionRepository(db)
	chatRepo := repository.NewGormChatRepository(db)
	walletRepo := repository.NewGormWalletRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	productRepo := repository.NewGormProductRepository(db)
	cartRepo := repository.NewGormCartRepository(db)

	// Event bus over Redis
	transport, err := pubsub.NewRedisPubSub(cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer transport.Close()
	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis pubsub connected")

	bus := realtime.NewBus(transport, chatRepo)

	// Settlement event producer
	var producer events.Producer = events.NoopProducer{}
	if cfg.Kafka.Enabled {
		kafkaProducer, err := events.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.GiftTopic)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize kafka producer")
		}
		producer = kafkaProducer
		logger.Info().Str("brokers", cfg.Kafka.Brokers).Msg("kafka producer connected")
	}
	defer producer.Close()

	// Services
	walletService := service.NewWalletService(walletRepo)
	commerceService := service.NewCommerceService(productRepo, cartRepo, orderRepo, walletService, producer)
	giftService := service.NewGiftService(walletService, bus, producer)
	sessionService := service.NewSessionService(sessionRepo, bus)

	// Presence tracker and auction registry
	tracker := presence.NewTracker()
	registry := room.NewRegistry(sessionRepo, walletRepo, bus)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := registry.Resume(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to resume auction controllers")
	}

	// Media manager; sessions are opened per room entry
	iceServers := make([]webrtc.ICEServer, 0, len(cfg.Media.ICEServers))
	for _, url := range cfg.Media.ICEServers {
		iceServers = append(iceServers, webrtc.ICEServer{URLs: []string{url}})
	}
	mediaManager := media.NewManager(iceServers)

	// Websocket hub
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	// Auth
	jwtManager := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	// Handlers
	httpHandler := handler.NewHandler(sessionService, commerceService, walletService, giftService, productRepo, bus, registry, authMiddleware)
	wsHandler := handler.NewWSHandler(wsHub, sessionService, registry, room.Deps{
		Bus:      bus,
		Presence: tracker,
		Gifts:    giftService,
		Commerce: commerceService,
		Wallet:   walletService,
		Media:    mediaManager,
	}, jwtManager, cfg.WebSocket)

	// Router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	httpHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("driver", cfg.Database.Driver).Msg("liveroom starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		tracker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
	logger.Info().Msg("liveroom stopped")
}
