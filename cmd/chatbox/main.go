package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/Tareq-Ghassan/ChatBox-Server/internal/cache"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/config"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/handlers"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/kafka"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/middleware"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/repository"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/routes"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/service"
	"github.com/Tareq-Ghassan/ChatBox-Server/internal/ws"
)

// Server holds every dependency of the chat backend.
type Server struct {
	Cfg       *config.Config
	App       *fiber.App
	Repo      *repository.MongoRepository
	Redis     *cache.Client
	KafkaProd *kafka.Producer
	KafkaCons *kafka.Consumer
	Hub       *ws.Hub

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer builds the server and all dependencies. Errors if a required
// dependency is unreachable.
func NewServer(cfg *config.Config) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	repo, err := repository.NewMongoRepository(cfg)
	if err != nil {
		cancel()
		return nil, err
	}

	redisClient, err := cache.NewRedis(cfg)
	if err != nil {
		cancel()
		return nil, err
	}

	producer := kafka.NewProducer(cfg)
	consumer := kafka.NewConsumer(cfg)
	hub := ws.NewHub()

	chatSvc := service.NewChatService(repo, repo, producer)
	tokenTTL := time.Duration(cfg.JWT.TTLHours) * time.Hour

	authMW := middleware.Authenticated(cfg.JWT.Secret, redisClient, repo)
	limiter := func(c *fiber.Ctx, userID string) bool {
		allowed, err := redisClient.AllowMessage(c.Context(), userID, cfg.Rate.MessagesPerWindow, cfg.RateWindow())
		if err != nil {
			// limiter outage must not take the send path down
			log.Warn().Err(err).Msg("rate limiter unavailable")
			return true
		}
		return allowed
	}

	app := fiber.New(fiber.Config{AppName: "chatbox-server"})
	routes.Register(app, routes.Deps{
		Auth:      handlers.NewAuthHandler(repo, repo, redisClient, cfg.JWT.Secret, tokenTTL),
		Chats:     handlers.NewChatHandler(chatSvc),
		Messages:  handlers.NewMessageHandler(chatSvc, limiter),
		Stories:   handlers.NewStoryHandler(repo),
		Hub:       hub,
		Presence:  redisClient,
		AuthMW:    authMW,
		JWTSecret: cfg.JWT.Secret,
	})

	return &Server{
		Cfg:       cfg,
		App:       app,
		Repo:      repo,
		Redis:     redisClient,
		KafkaProd: producer,
		KafkaCons: consumer,
		Hub:       hub,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// Start runs the event consumer and the HTTP server.
func (s *Server) Start() {
	go s.KafkaCons.Run(s.ctx, s.Hub)

	go func() {
		addr := ":" + s.Cfg.App.PortString()
		log.Info().Str("addr", addr).Msg("starting chatbox-server")
		if err := s.App.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()
}

// Shutdown stops background workers and closes clients in dependency order.
func (s *Server) Shutdown() {
	log.Info().Msg("shutting down chatbox-server...")

	s.cancel()

	if err := s.KafkaCons.Close(); err != nil {
		log.Error().Err(err).Msg("close kafka consumer")
	}
	if err := s.KafkaProd.Close(); err != nil {
		log.Error().Err(err).Msg("close kafka producer")
	}

	s.Hub.Close()

	if err := s.Redis.Close(); err != nil {
		log.Error().Err(err).Msg("close redis")
	}
	if err := s.Repo.Disconnect(context.Background()); err != nil {
		log.Error().Err(err).Msg("disconnect mongo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Cfg.App.ShutdownDuration())
	defer cancel()
	if err := s.App.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown fiber app")
	}

	log.Info().Msg("chatbox-server stopped gracefully")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize server")
	}
	server.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("starting graceful shutdown")

	server.Shutdown()
}
