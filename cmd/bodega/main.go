package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/bodega-erp/bodega/cmd/bodega/cli"
	"github.com/bodega-erp/bodega/internal/app"
	"github.com/bodega-erp/bodega/internal/auth"
	"github.com/bodega-erp/bodega/internal/inventory"
	"github.com/bodega-erp/bodega/internal/masterdata/categories"
	"github.com/bodega-erp/bodega/internal/masterdata/products"
	"github.com/bodega-erp/bodega/internal/masterdata/units"
	"github.com/bodega-erp/bodega/internal/observability"
	"github.com/bodega-erp/bodega/internal/platform/cache"
	"github.com/bodega-erp/bodega/internal/platform/db"
	"github.com/bodega-erp/bodega/internal/rbac"
	"github.com/bodega-erp/bodega/internal/shared"
	"github.com/bodega-erp/bodega/internal/users"
	"github.com/bodega-erp/bodega/internal/view"
	"github.com/bodega-erp/bodega/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "assign-role" {
		os.Exit(runAssignRole(ctx, cfg, logger, os.Args[2:]))
	}

	runServer(ctx, stop, cfg, logger)
}

func runAssignRole(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	email, role, err := cli.ParseAssignRoleArgs(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	rbacService := rbac.NewService(rbac.NewRepository(pool))
	assign := cli.NewAssignRoleCLI(auth.NewRepository(pool), rbacService)

	msg, err := assign.Run(ctx, email, role)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println(msg)
	return 0
}

func runServer(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "bodega_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	rbacService := rbac.NewService(rbac.NewRepository(pool))
	if err := rbac.Provision(ctx, rbacService, logger); err != nil {
		logger.Error("provision rbac", slog.Any("error", err))
		os.Exit(1)
	}
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	authService := auth.NewService(auth.NewRepository(pool), rbacService)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	categoryService := categories.NewService(categories.NewRepository(pool))
	categoryHandler := categories.NewHandler(logger, categoryService, templates, csrfManager, sessionManager, rbacMiddleware)

	unitService := units.NewService(units.NewRepository(pool))
	unitHandler := units.NewHandler(logger, unitService, templates, csrfManager, sessionManager, rbacMiddleware)

	inventoryService := inventory.NewService(inventory.NewRepository(pool), auditLogger)

	imageStore := products.NewFilesystemImageStore(cfg.UploadDir)
	productService := products.NewService(products.NewRepository(pool), imageStore)
	productHandler := products.NewHandler(logger, productService, categoryService, unitService,
		recentMovements(inventoryService), templates, csrfManager, sessionManager, rbacMiddleware)

	inventoryHandler := inventory.NewHandler(logger, inventoryService, productService, templates, csrfManager, sessionManager, rbacMiddleware, metrics)

	userService := users.NewService(users.NewRepository(pool), rbacService)
	usersHandler := users.NewHandler(logger, userService, templates, csrfManager, sessionManager, rbacMiddleware)

	rbacHandler := rbac.NewHandler(logger, rbacService, templates, csrfManager, sessionManager, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Templates:        templates,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		AuthHandler:      authHandler,
		RBACHandler:      rbacHandler,
		CategoryHandler:  categoryHandler,
		UnitHandler:      unitHandler,
		ProductHandler:   productHandler,
		InventoryHandler: inventoryHandler,
		UsersHandler:     usersHandler,
		JobHandler:       jobHandler,
		ProductService:   productService,
		CategoryService:  categoryService,
		UserService:      userService,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// recentMovements adapts the inventory service to the shape the product
// detail page expects.
func recentMovements(svc *inventory.Service) products.MovementsFunc {
	return func(ctx context.Context, productID int64, limit int) ([]products.MovementView, error) {
		recent, err := svc.RecentForProduct(ctx, productID, limit)
		if err != nil {
			return nil, err
		}
		views := make([]products.MovementView, 0, len(recent))
		for _, m := range recent {
			views = append(views, products.MovementView{
				Kind:       string(m.Kind),
				Quantity:   m.Quantity,
				RecordedBy: m.RecordedBy,
				CreatedAt:  m.CreatedAt,
			})
		}
		return views, nil
	}
}
