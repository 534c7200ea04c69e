package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bodega-erp/bodega/internal/masterdata/products"
	mdshared "github.com/bodega-erp/bodega/internal/masterdata/shared"
	"github.com/bodega-erp/bodega/internal/observability"
	"github.com/bodega-erp/bodega/internal/rbac"
	"github.com/bodega-erp/bodega/internal/shared"
	"github.com/bodega-erp/bodega/internal/view"
)

// Handler serves the stock entry and stock exit pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	products  *products.Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	rbac      rbac.Middleware
	metrics   *observability.Metrics
}

func NewHandler(logger *slog.Logger, service *Service, productSvc *products.Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, rbac rbac.Middleware, metrics *observability.Metrics) *Handler {
	return &Handler{logger: logger, service: service, products: productSvc, templates: templates, csrf: csrf, sessions: sessions, rbac: rbac, metrics: metrics}
}

// movementRoutes describes one direction's URLs, guards and templates.
type movementRoutes struct {
	kind         MovementKind
	base         string
	listTemplate string
	formTemplate string
	title        string
	viewPerm     string
	createPerm   string
	editPerm     string
	deletePerm   string
}

func (h *Handler) entryRoutes() movementRoutes {
	return movementRoutes{
		kind:         KindEntry,
		base:         "/stock/entries",
		listTemplate: "pages/stock_entries_list.html",
		formTemplate: "pages/stock_entry_form.html",
		title:        "Stock entries",
		viewPerm:     rbac.PermViewStockEntries,
		createPerm:   rbac.PermCreateStockEntries,
		editPerm:     rbac.PermEditStockEntries,
		deletePerm:   rbac.PermDeleteStockEntries,
	}
}

func (h *Handler) exitRoutes() movementRoutes {
	return movementRoutes{
		kind:         KindExit,
		base:         "/stock/exits",
		listTemplate: "pages/stock_exits_list.html",
		formTemplate: "pages/stock_exit_form.html",
		title:        "Stock exits",
		viewPerm:     rbac.PermViewStockExits,
		createPerm:   rbac.PermCreateStockExits,
		editPerm:     rbac.PermEditStockExits,
		deletePerm:   rbac.PermDeleteStockExits,
	}
}

// MountRoutes registers entry and exit routes with their permission
// guards.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, routes := range []movementRoutes{h.entryRoutes(), h.exitRoutes()} {
		routes := routes
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequirePermission(routes.viewPerm))
			r.Get(routes.base, h.list(routes))
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequirePermission(routes.createPerm))
			r.Get(routes.base+"/new", h.form(routes))
			r.Post(routes.base+"/new", h.create(routes))
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequirePermission(routes.editPerm))
			r.Get(routes.base+"/{id}/edit", h.editForm(routes))
			r.Post(routes.base+"/{id}/edit", h.update(routes))
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequirePermission(routes.deletePerm))
			r.Post(routes.base+"/{id}/delete", h.delete(routes))
		})
	}
}

func (h *Handler) list(routes movementRoutes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		filters := ListFilters{Page: page, Limit: 10}

		var (
			movements []Movement
			total     int
			err       error
		)
		if routes.kind == KindEntry {
			movements, total, err = h.service.ListEntries(r.Context(), filters)
		} else {
			movements, total, err = h.service.ListExits(r.Context(), filters)
		}
		if err != nil {
			h.logger.Error("list movements failed", "error", err, "kind", routes.kind)
			http.Error(w, "Failed to load movements", http.StatusInternalServerError)
			return
		}

		if filters.Page < 1 {
			filters.Page = 1
		}
		h.render(w, r, routes, routes.listTemplate, map[string]any{
			"Movements":  movements,
			"Pagination": shared.NewPagination(filters.Page, filters.Limit, total),
		}, http.StatusOK)
	}
}

func (h *Handler) form(routes movementRoutes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderForm(w, r, routes, Movement{}, map[string]string{}, http.StatusOK)
	}
}

func (h *Handler) create(routes movementRoutes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		productID, _ := strconv.ParseInt(r.PostFormValue("product_id"), 10, 64)
		quantity, _ := strconv.ParseInt(r.PostFormValue("quantity"), 10, 64)
		input := MovementInput{
			ProductID: productID,
			Quantity:  quantity,
			Note:      r.PostFormValue("note"),
			ActorID:   h.currentUserID(r),
		}

		if _, err := h.service.Create(r.Context(), routes.kind, input); err != nil {
			h.logger.Error("create movement failed", "error", err, "kind", routes.kind)
			movement := Movement{Kind: routes.kind, ProductID: productID, Quantity: quantity, Note: input.Note}
			h.renderForm(w, r, routes, movement, map[string]string{"quantity": movementErrorMessage(err)}, http.StatusBadRequest)
			return
		}

		h.metrics.CountStockMovement(string(routes.kind))
		h.redirectWithFlash(w, r, routes.base, "success", routes.title+": movement recorded")
	}
}

func (h *Handler) editForm(routes movementRoutes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid movement ID", http.StatusBadRequest)
			return
		}

		movement, err := h.service.Get(r.Context(), routes.kind, id)
		if err != nil {
			h.logger.Error("get movement failed", "error", err, "id", id)
			http.Error(w, "Movement not found", http.StatusNotFound)
			return
		}

		h.renderForm(w, r, routes, movement, map[string]string{}, http.StatusOK)
	}
}

func (h *Handler) update(routes movementRoutes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid movement ID", http.StatusBadRequest)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}

		productID, _ := strconv.ParseInt(r.PostFormValue("product_id"), 10, 64)
		quantity, _ := strconv.ParseInt(r.PostFormValue("quantity"), 10, 64)
		input := MovementInput{
			ProductID: productID,
			Quantity:  quantity,
			Note:      r.PostFormValue("note"),
			ActorID:   h.currentUserID(r),
		}

		if _, err := h.service.Update(r.Context(), routes.kind, id, input); err != nil {
			h.logger.Error("update movement failed", "error", err, "id", id)
			movement, getErr := h.service.Get(r.Context(), routes.kind, id)
			if getErr != nil {
				http.Error(w, "Movement not found", http.StatusNotFound)
				return
			}
			movement.ProductID = productID
			movement.Quantity = quantity
			movement.Note = input.Note
			h.renderForm(w, r, routes, movement, map[string]string{"quantity": movementErrorMessage(err)}, http.StatusBadRequest)
			return
		}

		h.redirectWithFlash(w, r, routes.base, "success", "Movement updated successfully")
	}
}

func (h *Handler) delete(routes movementRoutes) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "Invalid movement ID", http.StatusBadRequest)
			return
		}

		if err := h.service.Delete(r.Context(), routes.kind, id, h.currentUserID(r)); err != nil {
			h.logger.Error("delete movement failed", "error", err, "id", id)
			h.redirectWithFlash(w, r, routes.base, "error", movementErrorMessage(err))
			return
		}

		h.redirectWithFlash(w, r, routes.base, "success", "Movement deleted successfully")
	}
}

func (h *Handler) currentUserID(r *http.Request) int64 {
	id, _ := h.rbac.CurrentUserID(r)
	return id
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, routes movementRoutes, movement Movement, errs map[string]string, status int) {
	productList, _, err := h.products.List(r.Context(), mdshared.ListFilters{Page: 1, Limit: 500})
	if err != nil {
		h.logger.Error("load products for movement form", "error", err)
	}

	h.render(w, r, routes, routes.formTemplate, map[string]any{
		"Movement": movement,
		"Products": productList,
		"Errors":   errs,
	}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, routes movementRoutes, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       routes.title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", "error", err, "template", template)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// movementErrorMessage renders inventory errors for the page without
// leaking internals.
func movementErrorMessage(err error) string {
	if ise, ok := IsInsufficientStock(err); ok {
		return "Not enough stock: only " + strconv.FormatInt(ise.Current, 10) + " available."
	}
	switch err {
	case ErrInvalidQuantity:
		return "Quantity must be a positive number."
	case ErrMovementNotFound:
		return "The movement no longer exists."
	case ErrProductNotFound:
		return "Select a valid product."
	}
	return shared.UserSafeMessage(err)
}
