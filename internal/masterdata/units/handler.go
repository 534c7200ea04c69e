package units

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bodega-erp/bodega/internal/masterdata/shared"
	"github.com/bodega-erp/bodega/internal/rbac"
	internalShared "github.com/bodega-erp/bodega/internal/shared"
	"github.com/bodega-erp/bodega/internal/view"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *internalShared.CSRFManager
	sessions  *internalShared.SessionManager
	rbac      rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *internalShared.CSRFManager, sessions *internalShared.SessionManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, sessions: sessions, rbac: rbac}
}

// MountRoutes registers unit routes with their permission guards.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermViewUnits))
		r.Get("/units", h.List)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermCreateUnits))
		r.Get("/units/new", h.Form)
		r.Post("/units/new", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermEditUnits))
		r.Get("/units/{id}/edit", h.EditForm)
		r.Post("/units/{id}/edit", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermDeleteUnits))
		r.Post("/units/{id}/delete", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	filters := shared.ListFilters{Page: page, Limit: shared.DefaultLimit}.Normalize()

	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list units failed", "error", err)
		http.Error(w, "Failed to load units", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "pages/units_list.html", map[string]any{
		"Units":      list,
		"Pagination": internalShared.NewPagination(filters.Page, filters.Limit, total),
	}, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/unit_form.html", map[string]any{
		"Errors": map[string]string{},
		"Unit":   Unit{},
	}, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	unit := Unit{
		Name:         r.PostFormValue("name"),
		Abbreviation: r.PostFormValue("abbreviation"),
	}

	if _, err := h.service.Create(r.Context(), unit); err != nil {
		h.logger.Error("create unit failed", "error", err)
		h.render(w, r, "pages/unit_form.html", map[string]any{
			"Errors": map[string]string{"general": internalShared.UserSafeMessage(err)},
			"Unit":   unit,
		}, http.StatusBadRequest)
		return
	}

	h.redirectWithFlash(w, r, "/units", "success", "Unit created successfully")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid unit ID", http.StatusBadRequest)
		return
	}

	unit, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get unit failed", "error", err, "id", id)
		http.Error(w, "Unit not found", http.StatusNotFound)
		return
	}

	h.render(w, r, "pages/unit_form.html", map[string]any{
		"Errors": map[string]string{},
		"Unit":   unit,
	}, http.StatusOK)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid unit ID", http.StatusBadRequest)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	unit := Unit{
		ID:           id,
		Name:         r.PostFormValue("name"),
		Abbreviation: r.PostFormValue("abbreviation"),
	}

	if err := h.service.Update(r.Context(), id, unit); err != nil {
		h.logger.Error("update unit failed", "error", err, "id", id)
		h.render(w, r, "pages/unit_form.html", map[string]any{
			"Errors": map[string]string{"general": internalShared.UserSafeMessage(err)},
			"Unit":   unit,
		}, http.StatusBadRequest)
		return
	}

	h.redirectWithFlash(w, r, "/units", "success", "Unit updated successfully")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid unit ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete unit failed", "error", err, "id", id)
		h.redirectWithFlash(w, r, "/units", "error", internalShared.UserSafeMessage(err))
		return
	}

	h.redirectWithFlash(w, r, "/units", "success", "Unit deleted successfully")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := internalShared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *internalShared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Units",
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
	if sess := internalShared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(internalShared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
