package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bodega-erp/bodega/internal/auth"
	"github.com/bodega-erp/bodega/internal/inventory"
	"github.com/bodega-erp/bodega/internal/masterdata/categories"
	"github.com/bodega-erp/bodega/internal/masterdata/products"
	mdshared "github.com/bodega-erp/bodega/internal/masterdata/shared"
	"github.com/bodega-erp/bodega/internal/masterdata/units"
	"github.com/bodega-erp/bodega/internal/observability"
	"github.com/bodega-erp/bodega/internal/platform/httpx"
	"github.com/bodega-erp/bodega/internal/rbac"
	"github.com/bodega-erp/bodega/internal/shared"
	"github.com/bodega-erp/bodega/internal/users"
	"github.com/bodega-erp/bodega/internal/view"
	"github.com/bodega-erp/bodega/jobs"
	"github.com/bodega-erp/bodega/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler      *auth.Handler
	RBACHandler      *rbac.Handler
	CategoryHandler  *categories.Handler
	UnitHandler      *units.Handler
	ProductHandler   *products.Handler
	InventoryHandler *inventory.Handler
	UsersHandler     *users.Handler
	JobHandler       *jobs.Handler

	// Dashboard data sources.
	ProductService  *products.Service
	CategoryService *categories.Service
	UserService     *users.Service

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Landing page for unauthenticated visitors.
	r.Get("/welcome", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:     "Bodega",
			CSRFToken: csrfToken,
			Flash:     flash,
		}
		if err := params.Templates.Render(w, "pages/landing.html", data); err != nil {
			params.Logger.Error("render landing", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.User() == "" {
			http.Redirect(w, r, "/welcome", http.StatusSeeOther)
			return
		}

		csrfToken, _ := params.CSRFManager.EnsureToken(r.Context(), sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:       "Dashboard",
			CSRFToken:   csrfToken,
			Flash:       flash,
			CurrentPath: r.URL.Path,
			Data:        dashboardData(r, params),
		}
		if err := params.Templates.Render(w, "pages/home.html", data); err != nil {
			params.Logger.Error("render home", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	params.AuthHandler.MountRoutes(r)
	params.CategoryHandler.MountRoutes(r)
	params.UnitHandler.MountRoutes(r)
	params.ProductHandler.MountRoutes(r)
	params.InventoryHandler.MountRoutes(r)
	params.UsersHandler.MountRoutes(r)
	r.Route("/admin", params.RBACHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Uploaded product images live on disk, outside the embedded assets.
	if params.Config != nil && params.Config.UploadDir != "" {
		uploads := http.StripPrefix("/static/uploads/", http.FileServer(http.Dir(params.Config.UploadDir)))
		r.Handle("/static/uploads/*", staticCacheHandler(uploads))
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// dashboardData assembles the counters and low stock list for the home
// page. Failures degrade to zeroes so the dashboard always renders.
func dashboardData(r *http.Request, params RouterParams) map[string]any {
	ctx := r.Context()
	data := map[string]any{
		"ProductCount":  0,
		"CategoryCount": 0,
		"CustomerCount": 0,
		"LowStockCount": 0,
		"LowStock":      []products.Product(nil),
	}

	if params.ProductService != nil {
		if n, err := params.ProductService.CountAll(ctx); err == nil {
			data["ProductCount"] = n
		}
		if low, err := params.ProductService.ListBelowMinimum(ctx); err == nil {
			data["LowStockCount"] = len(low)
			params.Metrics.SetLowStockCount(len(low))
			if len(low) > 5 {
				low = low[:5]
			}
			data["LowStock"] = low
		}
	}
	if params.CategoryService != nil {
		if _, total, err := params.CategoryService.List(ctx, mdshared.ListFilters{Page: 1, Limit: 1}); err == nil {
			data["CategoryCount"] = total
		}
	}
	if params.UserService != nil {
		if _, total, err := params.UserService.ListCustomers(ctx, 1, 1, ""); err == nil {
			data["CustomerCount"] = total
		}
	}
	return data
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
