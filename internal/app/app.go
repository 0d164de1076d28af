package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/Evgen-Mutagen/paymybuddy/internal/controller"
	"github.com/Evgen-Mutagen/paymybuddy/internal/core"
	"github.com/Evgen-Mutagen/paymybuddy/internal/metrics"
	"github.com/Evgen-Mutagen/paymybuddy/internal/middlewareinternal"
	"github.com/Evgen-Mutagen/paymybuddy/internal/repository"
	"github.com/Evgen-Mutagen/paymybuddy/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type App struct {
	cfg    *Config
	Router *chi.Mux
	db     *repository.Database
	redis  *redis.Client
	Logger *zap.Logger
	Server *http.Server
}

// Services groups the collaborators the router dispatches to.
type Services struct {
	Auth       core.AuthService
	Users      core.UserService
	Relations  core.RelationGraph
	Settlement core.SettlementEngine
}

func New(cfg *Config, logger *zap.Logger) (*App, error) {
	app := &App{
		cfg:    cfg,
		Logger: logger,
	}

	if err := app.initDB(); err != nil {
		return nil, err
	}

	if cfg.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.Logger.Warn("Redis unreachable, idempotent replay may fail",
				zap.String("addr", cfg.RedisAddr),
				zap.Error(err))
		}
	}

	secret := cfg.JWTSecretKey
	if secret == "" {
		var err error
		if secret, err = randomSecret(); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		app.Logger.Warn("JWT_SECRET_KEY not set, using a random key; tokens will not survive a restart")
	}

	store := repository.NewStore(app.db)
	hasher := service.BcryptHasher{}
	services := Services{
		Auth:       service.NewAuth(store, hasher, service.AuthConfig{SecretKey: secret, TokenTTL: cfg.JWTTTL}, app.Logger),
		Users:      service.NewUsers(store, hasher, app.Logger),
		Relations:  service.NewRelations(store, app.Logger),
		Settlement: service.NewSettlement(store, app.Logger),
	}

	var idem redis.Cmdable
	if app.redis != nil {
		idem = app.redis
	}
	app.Router = NewRouter(cfg, services, idem, app.Logger)
	return app, nil
}

func (a *App) initDB() error {
	dbConfig := repository.DatabaseConfig{
		DSN:            a.cfg.DatabaseURI,
		MigrationsPath: a.cfg.MigrationsPath,
	}

	db, err := repository.NewDatabase(dbConfig)
	if err != nil {
		a.Logger.Error("Database initialization failed",
			zap.String("dsn", a.cfg.MaskDBPassword()),
			zap.Error(err))
		return fmt.Errorf("database initialization failed: %w", err)
	}

	a.db = db
	a.Logger.Info("Database initialized successfully",
		zap.String("dsn", a.cfg.MaskDBPassword()),
		zap.String("migrations_path", a.cfg.MigrationsPath))

	return nil
}

// NewRouter wires the HTTP surface. idem may be nil to disable idempotent
// replay of transfers.
func NewRouter(cfg *Config, services Services, idem redis.Cmdable, logger *zap.Logger) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(metrics.Middleware)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	authController := controller.NewAuthController(services.Auth, cfg.JWTTTL, logger)
	userController := controller.NewUserController(services.Users, logger)
	relationController := controller.NewRelationController(services.Relations, logger)
	transactionController := controller.NewTransactionController(services.Settlement, logger)

	// Public routes
	router.Post("/api/user/register", authController.Register)
	router.Post("/api/user/login", authController.Login)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Protected routes
	router.Group(func(r chi.Router) {
		r.Use(middlewareinternal.JWTAuthMiddleware(services.Auth))

		r.Get("/api/user/profile", userController.GetProfile)
		r.Put("/api/user/profile", userController.UpdateProfile)
		r.Get("/api/relations", relationController.GetRelations)
		r.Post("/api/relations", relationController.AddRelation)
		r.Get("/api/transactions", transactionController.GetTransactions)
		r.With(middlewareinternal.Idempotency(idem)).
			Post("/api/transactions", transactionController.Transfer)
	})

	return router
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	a.Server = &http.Server{
		Addr:              a.cfg.RunAddress,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Starting HTTP server",
			zap.String("address", a.cfg.RunAddress))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		a.close()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.Logger.Info("Shutting down server...")
	err := a.shutdown()
	a.close()
	return err
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.Server.Shutdown(ctx)
}

func (a *App) close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("Redis close error", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Warn("Database close error", zap.Error(err))
		}
	}
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
