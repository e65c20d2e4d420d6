package requests

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clientdesk/clientdesk/internal/clients"
	"github.com/clientdesk/clientdesk/internal/rbac"
	"github.com/clientdesk/clientdesk/internal/requesttypes"
	"github.com/clientdesk/clientdesk/internal/shared"
	"github.com/clientdesk/clientdesk/internal/view"
)

// Handler manages client request console endpoints.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	clientsSvc *clients.Service
	typesSvc   *requesttypes.Service
	templates  *view.Engine
	csrf       *shared.CSRFManager
	rbac       *rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, clientsSvc *clients.Service, typesSvc *requesttypes.Service, templates *view.Engine, csrf *shared.CSRFManager, rbac *rbac.Middleware) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		clientsSvc: clientsSvc,
		typesSvc:   typesSvc,
		templates:  templates,
		csrf:       csrf,
		rbac:       rbac,
	}
}

// MountRoutes registers client request routes with per-action grant checks.
// The bulk status action requires the change grant, same as editing a
// single record.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityClientRequest, rbac.ActionView))
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityClientRequest, rbac.ActionAdd))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityClientRequest, rbac.ActionChange))
		r.Get("/{id}", h.showEditForm)
		r.Post("/{id}", h.update)
		r.Post("/bulk-status", h.bulkStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(rbac.EntityClientRequest, rbac.ActionDelete))
		r.Post("/{id}/delete", h.delete)
	})
}

type formErrors map[string]string

type listPageData struct {
	Requests     []ClientRequest
	Query        string
	StatusFilter string
	Statuses     []string
}

type formPageData struct {
	Request      ClientRequest
	Clients      []clients.Client
	RequestTypes []requesttypes.RequestType
	Statuses     []string
	Action       string
	Errors       formErrors
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	status := r.URL.Query().Get("status")
	records, err := h.service.List(r.Context(), query, status)
	if err != nil {
		h.logger.Error("list requests", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	data := listPageData{Requests: records, Query: query, StatusFilter: status, Statuses: Statuses()}
	h.render(w, r, "pages/requests_list.html", data, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	data, err := h.formData(r, ClientRequest{Status: StatusPending}, "/admin/requests/")
	if err != nil {
		h.logger.Error("load request form", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/requests_form.html", data, http.StatusOK)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	req, formErrs := parseForm(r)
	if len(formErrs) == 0 {
		if _, err := h.service.Create(r.Context(), req); err != nil {
			h.logger.Error("create request", slog.Any("error", err))
			formErrs["general"] = "Could not save the client request."
		} else {
			h.redirectWithFlash(w, r, "/admin/requests/", "success", "Client request added.")
			return
		}
	}
	data, err := h.formData(r, req, "/admin/requests/")
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	data.Errors = formErrs
	h.render(w, r, "pages/requests_form.html", data, http.StatusOK)
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("load request", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	data, err := h.formData(r, req, "/admin/requests/"+strconv.FormatInt(id, 10))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/requests_form.html", data, http.StatusOK)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	req, formErrs := parseForm(r)
	req.ID = id
	if len(formErrs) == 0 {
		if _, err := h.service.Update(r.Context(), req); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			h.logger.Error("update request", slog.Any("error", err))
			formErrs["general"] = "Could not save the client request."
		} else {
			h.redirectWithFlash(w, r, "/admin/requests/", "success", "Client request updated.")
			return
		}
	}
	data, err := h.formData(r, req, "/admin/requests/"+strconv.FormatInt(id, 10))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	data.Errors = formErrs
	h.render(w, r, "pages/requests_form.html", data, http.StatusOK)
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
		h.logger.Error("delete request", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.redirectWithFlash(w, r, "/admin/requests/", "success", "Client request deleted.")
}

func (h *Handler) bulkStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	status := r.PostFormValue("status")
	var ids []int64
	for _, raw := range r.PostForm["ids"] {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}
	count, err := h.service.ApplyStatus(r.Context(), ids, status)
	if err != nil {
		if errors.Is(err, ErrUnknownStatus) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		h.logger.Error("bulk status", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/requests/", "error", "Could not update the selected requests.")
		return
	}
	h.redirectWithFlash(w, r, "/admin/requests/", "success",
		fmt.Sprintf("%d requests marked as %s.", count, status))
}

func (h *Handler) formData(r *http.Request, req ClientRequest, action string) (formPageData, error) {
	clientList, err := h.clientsSvc.List(r.Context(), "")
	if err != nil {
		return formPageData{}, err
	}
	typeList, err := h.typesSvc.List(r.Context(), "")
	if err != nil {
		return formPageData{}, err
	}
	return formPageData{
		Request:      req,
		Clients:      clientList,
		RequestTypes: typeList,
		Statuses:     Statuses(),
		Action:       action,
		Errors:       formErrors{},
	}, nil
}

func parseForm(r *http.Request) (ClientRequest, formErrors) {
	errs := formErrors{}
	if err := r.ParseForm(); err != nil {
		errs["general"] = "Invalid form submission."
		return ClientRequest{}, errs
	}
	clientID, err := strconv.ParseInt(r.PostFormValue("client_id"), 10, 64)
	if err != nil {
		errs["general"] = "Select a client."
	}
	typeID, err := strconv.ParseInt(r.PostFormValue("request_type_id"), 10, 64)
	if err != nil {
		errs["general"] = "Select a request type."
	}
	req := ClientRequest{
		ClientID:      clientID,
		RequestTypeID: typeID,
		Description:   r.PostFormValue("description"),
		Status:        r.PostFormValue("status"),
	}
	if req.Status != "" && !ValidStatus(req.Status) {
		errs["general"] = "Select a valid status."
	}
	return req, errs
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: "Client Requests", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
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
