package requesttypes

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clientdesk/clientdesk/internal/rbac"
	"github.com/clientdesk/clientdesk/internal/shared"
	"github.com/clientdesk/clientdesk/internal/view"
)

// Handler manages request type console endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      *rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac *rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountRoutes registers request type routes with per-action grant checks.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityRequestType, rbac.ActionView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityRequestType, rbac.ActionAdd))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityRequestType, rbac.ActionChange))
		r.Get("/{id}", h.showEditForm)
		r.Post("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityRequestType, rbac.ActionDelete))
		r.Post("/{id}/delete", h.delete)
	})
}

type formErrors map[string]string

type listPageData struct {
	RequestTypes []RequestType
	Query        string
}

type formPageData struct {
	RequestType RequestType
	Action      string
	Errors      formErrors
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	records, err := h.service.List(r.Context(), query)
	if err != nil {
		h.logger.Error("list request types", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/requesttypes_list.html", listPageData{RequestTypes: records, Query: query}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	data := formPageData{Action: "/admin/request-types/", Errors: formErrors{}}
	h.render(w, r, "pages/requesttypes_form.html", data, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	rt, formErrs := parseForm(r)
	if len(formErrs) == 0 {
		if _, err := h.service.Create(r.Context(), rt); err != nil {
			h.logger.Error("create request type", slog.Any("error", err))
			formErrs["general"] = "Could not save the request type."
		} else {
			h.redirectWithFlash(w, r, "/admin/request-types/", "success", "Request type added.")
			return
		}
	}
	data := formPageData{RequestType: rt, Action: "/admin/request-types/", Errors: formErrs}
	h.render(w, r, "pages/requesttypes_form.html", data, http.StatusOK)
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rt, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("load request type", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	data := formPageData{RequestType: rt, Action: "/admin/request-types/" + strconv.FormatInt(id, 10), Errors: formErrors{}}
	h.render(w, r, "pages/requesttypes_form.html", data, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rt, formErrs := parseForm(r)
	rt.ID = id
	if len(formErrs) == 0 {
		if _, err := h.service.Update(r.Context(), rt); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			h.logger.Error("update request type", slog.Any("error", err))
			formErrs["general"] = "Could not save the request type."
		} else {
			h.redirectWithFlash(w, r, "/admin/request-types/", "success", "Request type updated.")
			return
		}
	}
	data := formPageData{RequestType: rt, Action: "/admin/request-types/" + strconv.FormatInt(id, 10), Errors: formErrs}
	h.render(w, r, "pages/requesttypes_form.html", data, http.StatusOK)
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
		h.logger.Error("delete request type", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.redirectWithFlash(w, r, "/admin/request-types/", "success", "Request type deleted.")
}

func parseForm(r *http.Request) (RequestType, formErrors) {
	errs := formErrors{}
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Invalid form submission."
		return RequestType{}, errs
	}
	rt := RequestType{
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
	}
	if rt.Name == "" {
		errs["Name"] = "Enter a name."
	}
	return rt, errs
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Request Types", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
