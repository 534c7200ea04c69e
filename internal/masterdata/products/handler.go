package products

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/bodega-erp/bodega/internal/masterdata/categories"
	"github.com/bodega-erp/bodega/internal/masterdata/shared"
	"github.com/bodega-erp/bodega/internal/masterdata/units"
	"github.com/bodega-erp/bodega/internal/rbac"
	internalShared "github.com/bodega-erp/bodega/internal/shared"
	"github.com/bodega-erp/bodega/internal/view"
)

const maxImageSize = 5 << 20

// MovementView is a single stock movement line shown on the product
// detail page.
type MovementView struct {
	Kind       string
	Quantity   int64
	RecordedBy string
	CreatedAt  time.Time
}

// MovementsFunc loads recent stock movements for a product.
type MovementsFunc func(ctx context.Context, productID int64, limit int) ([]MovementView, error)

type Handler struct {
	logger     *slog.Logger
	service    *Service
	categories *categories.Service
	units      *units.Service
	movements  MovementsFunc
	templates  *view.Engine
	csrf       *internalShared.CSRFManager
	sessions   *internalShared.SessionManager
	rbac       rbac.Middleware
	validator  *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service, categorySvc *categories.Service, unitSvc *units.Service, movements MovementsFunc, templates *view.Engine, csrf *internalShared.CSRFManager, sessions *internalShared.SessionManager, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		categories: categorySvc,
		units:      unitSvc,
		movements:  movements,
		templates:  templates,
		csrf:       csrf,
		sessions:   sessions,
		rbac:       rbac,
		validator:  validator.New(),
	}
}

// MountRoutes registers product routes with their permission guards.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermViewProducts))
		r.Get("/products", h.List)
		r.Get("/products/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermCreateProducts))
		r.Get("/products/new", h.Form)
		r.Post("/products/new", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermEditProducts))
		r.Get("/products/{id}/edit", h.EditForm)
		r.Post("/products/{id}/edit", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.PermDeleteProducts))
		r.Post("/products/{id}/delete", h.Delete)
	})
}

type productForm struct {
	Code       string `validate:"required,max=50"`
	Name       string `validate:"required,max=150"`
	CategoryID int64  `validate:"required,gt=0"`
	UnitID     int64  `validate:"required,gt=0"`
	UnitPrice  string `validate:"required"`
	MinStock   int64  `validate:"gte=0"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	filters := shared.ListFilters{
		Page:   page,
		Limit:  shared.DefaultLimit,
		Search: r.URL.Query().Get("q"),
	}.Normalize()

	list, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products failed", "error", err)
		http.Error(w, "Failed to load products", http.StatusInternalServerError)
		return
	}

	h.render(w, r, "pages/products_list.html", map[string]any{
		"Products":   list,
		"Query":      filters.Search,
		"Pagination": internalShared.NewPagination(filters.Page, filters.Limit, total),
	}, http.StatusOK)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get product failed", "error", err, "id", id)
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	var movements []MovementView
	if h.movements != nil {
		movements, err = h.movements(r.Context(), id, 10)
		if err != nil {
			h.logger.Warn("load product movements failed", "error", err, "id", id)
		}
	}

	h.render(w, r, "pages/product_detail.html", map[string]any{
		"Product":   product,
		"Movements": movements,
	}, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, Product{}, map[string]string{}, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	product, upload, errs := h.parseForm(r)
	if len(errs) > 0 {
		h.renderForm(w, r, product, errs, http.StatusBadRequest)
		return
	}

	if _, err := h.service.Create(r.Context(), product, upload); err != nil {
		h.logger.Error("create product failed", "error", err)
		h.renderForm(w, r, product, map[string]string{"general": internalShared.UserSafeMessage(err)}, http.StatusBadRequest)
		return
	}

	h.redirectWithFlash(w, r, "/products", "success", "Product created successfully")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("get product failed", "error", err, "id", id)
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}

	h.renderForm(w, r, product, map[string]string{}, http.StatusOK)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	product, upload, errs := h.parseForm(r)
	product.ID = id
	if len(errs) > 0 {
		h.renderForm(w, r, product, errs, http.StatusBadRequest)
		return
	}

	if err := h.service.Update(r.Context(), id, product, upload); err != nil {
		h.logger.Error("update product failed", "error", err, "id", id)
		h.renderForm(w, r, product, map[string]string{"general": internalShared.UserSafeMessage(err)}, http.StatusBadRequest)
		return
	}

	h.redirectWithFlash(w, r, "/products", "success", "Product updated successfully")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete product failed", "error", err, "id", id)
		h.redirectWithFlash(w, r, "/products", "error", internalShared.UserSafeMessage(err))
		return
	}

	h.redirectWithFlash(w, r, "/products", "success", "Product deleted successfully")
}

func (h *Handler) parseForm(r *http.Request) (Product, *Upload, map[string]string) {
	errs := make(map[string]string)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		errs["general"] = "Could not read the submitted form."
		return Product{}, nil, errs
	}

	categoryID, _ := strconv.ParseInt(r.PostFormValue("category_id"), 10, 64)
	unitID, _ := strconv.ParseInt(r.PostFormValue("unit_id"), 10, 64)
	minStock, _ := strconv.ParseInt(r.PostFormValue("min_stock"), 10, 64)

	form := productForm{
		Code:       r.PostFormValue("code"),
		Name:       r.PostFormValue("name"),
		CategoryID: categoryID,
		UnitID:     unitID,
		UnitPrice:  r.PostFormValue("unit_price"),
		MinStock:   minStock,
	}
	if err := h.validator.Struct(form); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			errs[formFieldName(fieldErr.Field())] = "This field is invalid."
		}
	}

	price, err := decimal.NewFromString(form.UnitPrice)
	if err != nil {
		errs["unit_price"] = "Unit price must be a number."
		price = decimal.Zero
	} else if price.IsNegative() {
		errs["unit_price"] = "Unit price cannot be negative."
	}

	product := Product{
		Code:        form.Code,
		Name:        form.Name,
		Description: r.PostFormValue("description"),
		CategoryID:  form.CategoryID,
		UnitID:      form.UnitID,
		UnitPrice:   price,
		MinStock:    form.MinStock,
	}

	var upload *Upload
	if file, header, err := r.FormFile("image"); err == nil {
		upload = &Upload{Filename: header.Filename, Content: file}
	}

	if len(errs) == 0 {
		return product, upload, nil
	}
	return product, upload, errs
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, product Product, errs map[string]string, status int) {
	categoryList, _, err := h.categories.List(r.Context(), shared.ListFilters{Page: 1, Limit: 500})
	if err != nil {
		h.logger.Error("load categories for product form", "error", err)
	}
	unitList, _, err := h.units.List(r.Context(), shared.ListFilters{Page: 1, Limit: 500})
	if err != nil {
		h.logger.Error("load units for product form", "error", err)
	}

	h.render(w, r, "pages/product_form.html", map[string]any{
		"Errors":     errs,
		"Product":    product,
		"Categories": categoryList,
		"Units":      unitList,
	}, status)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data map[string]any, status int) {
	sess := internalShared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *internalShared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Products",
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

func formFieldName(field string) string {
	switch field {
	case "Code":
		return "code"
	case "Name":
		return "name"
	case "CategoryID":
		return "category_id"
	case "UnitID":
		return "unit_id"
	case "UnitPrice":
		return "unit_price"
	case "MinStock":
		return "min_stock"
	default:
		return "general"
	}
}
