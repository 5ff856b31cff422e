package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"equipment-portal/internal/config"
	"equipment-portal/internal/database"
	"equipment-portal/internal/handler"
	"equipment-portal/internal/identity"
	"equipment-portal/internal/router"
	"equipment-portal/internal/session"
	"equipment-portal/internal/submitter"
	"equipment-portal/internal/tokenstore"
	"equipment-portal/internal/web"
)

const (
	tokenNamespace  = "portal"
	cleanupInterval = time.Hour
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	policy, err := session.ParsePolicy(cfg.ApprovalCheckPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse approval check policy: %w", err)
	}

	a := &App{}
	tokens, err := a.tokenBackend(cfg)
	if err != nil {
		return nil, err
	}

	client := identity.NewClient(cfg.IdentityBaseURL, identity.Endpoints{
		TokenCreate:  cfg.IdentityTokenPath,
		TokenRefresh: cfg.IdentityRefreshPath,
		Me:           cfg.IdentityMePath,
		Users:        cfg.IdentityUsersPath,
	}, cfg.IdentityTimeout)
	manager := session.NewManager(client, tokens, policy)

	pages, err := web.Load()
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to load page templates: %w", err)
	}

	dashboardHandler := handler.NewDashboardHandler()
	sessionHandler := handler.NewSessionHandler(manager, tokens, client, submitter.Options{
		InstitutionDomains: cfg.InstitutionDomains,
	})
	pagesHandler := handler.NewPagesHandler(pages, dashboardHandler)

	appRouter := router.New(cfg, router.Handlers{
		Session:   sessionHandler,
		Dashboard: dashboardHandler,
		Pages:     pagesHandler,
	})

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	slog.Info("portal configured",
		"identity", cfg.IdentityBaseURL,
		"token_store", cfg.TokenStore,
		"approval_check_policy", policy.String(),
	)

	return a, nil
}

func (a *App) tokenBackend(cfg *config.Config) (tokenstore.Store, error) {
	switch cfg.TokenStore {
	case config.TokenStorePostgres:
		slog.Info("connecting to PostgreSQL")
		db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}
		slog.Info("database ready")

		a.cleanupFuncs = append(a.cleanupFuncs, db.Close)
		store := tokenstore.NewPostgres(db.Pool, tokenNamespace)
		a.startSweeper(store, cfg.SessionTTL)
		return store, nil
	case config.TokenStoreFile:
		store, err := tokenstore.NewFile(cfg.TokenFile, cfg.TokenPassphrase)
		if err != nil {
			return nil, fmt.Errorf("failed to open token file: %w", err)
		}
		return store, nil
	default:
		store := tokenstore.NewMemory()
		a.startSweeper(store, cfg.SessionTTL)
		return store, nil
	}
}

type staleCleaner interface {
	CleanStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

func (a *App) startSweeper(store staleCleaner, ttl time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	a.cleanupFuncs = append(a.cleanupFuncs, cancel)
	go sweepStaleTokens(ctx, store, ttl, cleanupInterval)
}

func sweepStaleTokens(ctx context.Context, store staleCleaner, ttl time.Duration, interval time.Duration) {
	if ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanStale(ctx, ttl)
			if err != nil {
				slog.Warn("stale token sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("stale session tokens removed", "count", removed)
			}
		}
	}
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := a.server.Shutdown(ctx)
	a.cleanup()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}
