package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/loopfeed/apiserver/config"
	"github.com/loopfeed/apiserver/internal/cache"
	"github.com/loopfeed/apiserver/internal/db"
	"github.com/loopfeed/apiserver/internal/events"
	"github.com/loopfeed/apiserver/internal/handlers"
	"github.com/loopfeed/apiserver/internal/mq"
	"github.com/loopfeed/apiserver/internal/services"
	"github.com/loopfeed/apiserver/internal/session"
	"github.com/loopfeed/apiserver/internal/storage"
	"github.com/loopfeed/apiserver/internal/store"
)

// Server wraps the HTTP server and router together with the backing
// connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	cache      *cache.Cache
	queue      *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.SessionSecret == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessionCache, err := newCache(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	media, err := newMediaStorage(ctx, cfg)
	if err != nil {
		_ = sessionCache.Close()
		_ = dbConn.Close()
		return nil, err
	}

	queue, err := newQueue(ctx, cfg)
	if err != nil {
		_ = sessionCache.Close()
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	profileRepo := store.NewProfileRepository(dbConn)
	postRepo := store.NewPostRepository(dbConn)
	commentRepo := store.NewCommentRepository(dbConn)

	userService := services.NewUserService(userRepo)
	profileService := services.NewProfileService(profileRepo)
	postService := services.NewPostService(postRepo)
	commentService := services.NewCommentService(commentRepo)

	sessions := session.NewManager(sessionCache)
	publisher := events.NewPublisher(queue)
	authMiddleware := handlers.RequireAuth(cfg.SessionSecret, sessions)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(handlers.RequireTrustedOrigin(cfg.PublicHost))
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, sessions, cfg.SessionSecret)
	})
	router.Route("/posts", func(r chi.Router) {
		handlers.PostRouter(r, postService, commentService, media, publisher, authMiddleware)
	})
	router.Group(func(r chi.Router) {
		handlers.ProfileRouter(r, userService, profileService, postService, media, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		cache:      sessionCache,
		queue:      queue,
	}, nil
}

// newCache selects the session cache backend. An empty REDIS_HOST falls
// back to the in-process cache, which does not survive restarts.
func newCache(ctx context.Context, cfg config.Config) (*cache.Cache, error) {
	if cfg.Redis.Host == "" {
		return cache.New(cache.NewMemoryBackend()), nil
	}
	backend, err := cache.NewRedisBackend(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return cache.New(backend), nil
}

func newMediaStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	var backend storage.ObjectStorage
	switch cfg.Storage.Backend {
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		backend = client
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("connect gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	media := storage.NewStorage(backend)
	if err := media.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return media, nil
}

// newQueue selects the activity event transport. MQ_BACKEND=none
// disables publishing entirely.
func newQueue(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.MQ.Backend {
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return mq.New(client), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.MQ.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.cache != nil {
		_ = s.cache.Close()
	}
	if s.queue != nil {
		_ = s.queue.Close()
	}
	return s.httpServer.Close()
}
