package clients

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clientdesk/clientdesk/internal/rbac"
	"github.com/clientdesk/clientdesk/internal/shared"
	"github.com/clientdesk/clientdesk/internal/view"
)

// Handler manages client console endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      *rbac.Middleware
	validate  *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac *rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		rbac:      rbac,
		validate:  validator.New(),
	}
}

// MountRoutes registers client routes. The console gate already ran;
// these groups add per-action grant checks.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityClient, rbac.ActionView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityClient, rbac.ActionAdd))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityClient, rbac.ActionChange))
		r.Get("/{id}", h.showEditForm)
		r.Post("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityClient, rbac.ActionDelete))
		r.Post("/{id}/delete", h.delete)
	})
}

type clientForm struct {
	Name          string `validate:"required,max=255"`
	Email         string `validate:"omitempty,email"`
	ContactNumber string `validate:"max=20"`
	CompanyURL    string `validate:"omitempty,url"`
	IsActive      bool
}

type formErrors map[string]string

type listPageData struct {
	Clients []Client
	Query   string
}

type formPageData struct {
	Client Client
	Action string
	Errors formErrors
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	records, err := h.service.List(r.Context(), query)
	if err != nil {
		h.logger.Error("list clients", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/clients_list.html", listPageData{Clients: records, Query: query}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	data := formPageData{Client: Client{IsActive: true}, Action: "/admin/clients/", Errors: formErrors{}}
	h.render(w, r, "pages/clients_form.html", data, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	form, formErrs := h.parseForm(r)
	client := Client{
		Name:          form.Name,
		Email:         form.Email,
		ContactNumber: form.ContactNumber,
		CompanyURL:    form.CompanyURL,
		IsActive:      form.IsActive,
	}
	if len(formErrs) == 0 {
		if _, err := h.service.Create(r.Context(), client); err != nil {
			h.logger.Error("create client", slog.Any("error", err))
			formErrs["general"] = "Could not save the client."
		} else {
			h.redirectWithFlash(w, r, "/admin/clients/", "success", "Client added.")
			return
		}
	}
	data := formPageData{Client: client, Action: "/admin/clients/", Errors: formErrs}
	h.render(w, r, "pages/clients_form.html", data, http.StatusOK)
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	client, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.notFoundOrError(w, err, "load client")
		return
	}
	data := formPageData{Client: client, Action: "/admin/clients/" + strconv.FormatInt(id, 10), Errors: formErrors{}}
	h.render(w, r, "pages/clients_form.html", data, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	form, formErrs := h.parseForm(r)
	client := Client{
		ID:            id,
		Name:          form.Name,
		Email:         form.Email,
		ContactNumber: form.ContactNumber,
		CompanyURL:    form.CompanyURL,
		IsActive:      form.IsActive,
	}
	if len(formErrs) == 0 {
		if _, err := h.service.Update(r.Context(), client); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			h.logger.Error("update client", slog.Any("error", err))
			formErrs["general"] = "Could not save the client."
		} else {
			h.redirectWithFlash(w, r, "/admin/clients/", "success", "Client updated.")
			return
		}
	}
	data := formPageData{Client: client, Action: "/admin/clients/" + strconv.FormatInt(id, 10), Errors: formErrs}
	h.render(w, r, "pages/clients_form.html", data, http.StatusOK)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("delete client", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.redirectWithFlash(w, r, "/admin/clients/", "success", "Client deleted.")
}

func (h *Handler) parseForm(r *http.Request) (clientForm, formErrors) {
	errs := formErrors{}
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Invalid form submission."
		return clientForm{}, errs
	}
	form := clientForm{
		Name:          r.PostFormValue("name"),
		Email:         r.PostFormValue("email"),
		ContactNumber: r.PostFormValue("contact_number"),
		CompanyURL:    r.PostFormValue("company_url"),
		IsActive:      r.PostFormValue("is_active") != "",
	}
	if err := h.validate.Struct(form); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fieldErr := range fieldErrors {
				errs[fieldErr.Field()] = "Enter a valid value."
			}
		} else {
			errs["general"] = "Invalid form submission."
		}
	}
	return form, errs
}

func (h *Handler) notFoundOrError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, shared.ErrNotFound) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	h.logger.Error(msg, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Clients", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}
