package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bodega-erp/bodega/internal/rbac"
	"github.com/bodega-erp/bodega/internal/shared"
	"github.com/bodega-erp/bodega/internal/view"
)

// Handler serves the user directory and customer directory pages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	sessions  *shared.SessionManager
	rbac      rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, sessions *shared.SessionManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, sessions: sessions, rbac: rbac}
}

// MountRoutes registers user and customer routes with their guards.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermViewUsers))
		r.Get("/admin/users", h.ListUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermManageRoles))
		r.Get("/admin/users/{id}/roles", h.RolesForm)
		r.Post("/admin/users/{id}/roles", h.SyncRoles)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermViewClients))
		r.Get("/customers", h.ListCustomers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermCreateClients))
		r.Get("/customers/new", h.CustomerForm)
		r.Post("/customers/new", h.CreateCustomer)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermEditClients))
		r.Get("/customers/{id}/edit", h.EditCustomerForm)
		r.Post("/customers/{id}/edit", h.UpdateCustomer)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermDeleteClients))
		r.Post("/customers/{id}/delete", h.DeleteCustomer)
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	list, total, err := h.service.ListUsers(r.Context(), page, 10)
	if err != nil {
		h.logger.Error("list users failed", "error", err)
		http.Error(w, "Failed to load users", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "Users", "pages/users_list.html", map[string]any{
		"Users":      list,
		"Pagination": shared.NewPagination(page, 10, total),
	}, http.StatusOK)
}

func (h *Handler) RolesForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	roles, err := h.service.AvailableRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	held := make(map[string]bool, len(user.Roles))
	for _, name := range user.Roles {
		held[name] = true
	}

	h.render(w, r, "Users", "pages/user_roles_form.html", map[string]any{
		"User":   user,
		"Roles":  roles,
		"Held":   held,
		"Errors": map[string]string{},
	}, http.StatusOK)
}

func (h *Handler) SyncRoles(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	var roleIDs []int64
	for _, raw := range r.PostForm["roles"] {
		roleID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		roleIDs = append(roleIDs, roleID)
	}

	if err := h.service.SyncRoles(r.Context(), id, roleIDs); err != nil {
		h.logger.Error("sync user roles failed", "error", err, "user_id", id)
		h.redirectWithFlash(w, r, "/admin/users", "error", shared.UserSafeMessage(err))
		return
	}

	h.redirectWithFlash(w, r, "/admin/users", "success", "Roles updated successfully")
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	search := r.URL.Query().Get("q")

	list, total, err := h.service.ListCustomers(r.Context(), page, 10, search)
	if err != nil {
		h.logger.Error("list customers failed", "error", err)
		http.Error(w, "Failed to load customers", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "Customers", "pages/customers_list.html", map[string]any{
		"Customers":  list,
		"Query":      search,
		"Pagination": shared.NewPagination(page, 10, total),
	}, http.StatusOK)
}

func (h *Handler) CustomerForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "Customers", "pages/customer_form.html", map[string]any{
		"Errors":   map[string]string{},
		"Customer": Customer{},
	}, http.StatusOK)
}

func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	input := customerInputFromForm(r)
	if _, err := h.service.CreateCustomer(r.Context(), input); err != nil {
		h.logger.Error("create customer failed", "error", err)
		h.render(w, r, "Customers", "pages/customer_form.html", map[string]any{
			"Errors":   map[string]string{"general": shared.UserSafeMessage(err)},
			"Customer": Customer{Name: input.Name, Surname: input.Surname, Email: input.Email, Phone: input.Phone, Address: input.Address},
		}, http.StatusBadRequest)
		return
	}

	h.redirectWithFlash(w, r, "/customers", "success", "Customer created successfully")
}

func (h *Handler) EditCustomerForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid customer ID", http.StatusBadRequest)
		return
	}

	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		http.Error(w, "Customer not found", http.StatusNotFound)
		return
	}

	h.render(w, r, "Customers", "pages/customer_form.html", map[string]any{
		"Errors":   map[string]string{},
		"Customer": customer,
	}, http.StatusOK)
}

func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid customer ID", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	input := customerInputFromForm(r)
	if err := h.service.UpdateCustomer(r.Context(), id, input); err != nil {
		h.logger.Error("update customer failed", "error", err, "id", id)
		h.render(w, r, "Customers", "pages/customer_form.html", map[string]any{
			"Errors":   map[string]string{"general": shared.UserSafeMessage(err)},
			"Customer": Customer{ID: id, Name: input.Name, Surname: input.Surname, Email: input.Email, Phone: input.Phone, Address: input.Address},
		}, http.StatusBadRequest)
		return
	}

	h.redirectWithFlash(w, r, "/customers", "success", "Customer updated successfully")
}

func (h *Handler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid customer ID", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteCustomer(r.Context(), id); err != nil {
		h.logger.Error("delete customer failed", "error", err, "id", id)
		h.redirectWithFlash(w, r, "/customers", "error", shared.UserSafeMessage(err))
		return
	}

	h.redirectWithFlash(w, r, "/customers", "success", "Customer deleted successfully")
}

func customerInputFromForm(r *http.Request) CustomerInput {
	return CustomerInput{
		Name:     r.PostFormValue("name"),
		Surname:  r.PostFormValue("surname"),
		Email:    r.PostFormValue("email"),
		Phone:    r.PostFormValue("phone"),
		Address:  r.PostFormValue("address"),
		Password: r.PostFormValue("password"),
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, title, template string, data map[string]any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
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
