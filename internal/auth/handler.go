package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/clientdesk/clientdesk/internal/shared"
	"github.com/clientdesk/clientdesk/internal/view"
)

// ConsoleIndexPath is the administrative console landing page. Every staff
// identity lands here after login; there is no separate plain-user surface.
const ConsoleIndexPath = "/admin/"

// AccountDisabledPath is where rejected non-staff logins are sent.
const AccountDisabledPath = "/account-disabled"

const genericLoginError = "Incorrect username or password."

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the root router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Get(AccountDisabledPath, h.showAccountDisabled)
}

type loginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
	Next     string
}

type loginPageData struct {
	Form   loginForm
	Errors map[string]string
}

type registerForm struct {
	Username        string `validate:"required,max=150"`
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=12"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

type registerPageData struct {
	Form   registerForm
	Errors map[string]string
}

// redirectAuthenticated sends already-authenticated sessions to the console
// index. Login, registration and home must never re-render for them.
func (h *Handler) redirectAuthenticated(w http.ResponseWriter, r *http.Request) bool {
	sess := shared.SessionFromContext(r.Context())
	if sess.Authenticated() {
		http.Redirect(w, r, ConsoleIndexPath, http.StatusFound)
		return true
	}
	return false
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if h.redirectAuthenticated(w, r) {
		return
	}
	data := loginPageData{Form: loginForm{Next: r.URL.Query().Get("next")}}
	h.render(w, r, "pages/login.html", "Log in", data, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if h.redirectAuthenticated(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Next:     r.PostFormValue("next"),
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		formErrors["general"] = genericLoginError
	}

	if len(formErrors) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Username, form.Password)
		if err != nil {
			// One message for unknown user, wrong password and
			// disabled account alike.
			formErrors["general"] = genericLoginError
		} else if shared.Decide(true, user.IsStaff) != shared.AccessAllowed {
			// Verified but not staff: the session is revoked before
			// the response goes out, never left live.
			h.sessionManager.Destroy(sess)
			http.Redirect(w, r, AccountDisabledPath, http.StatusFound)
			return
		} else {
			if sess == nil {
				h.logger.Error("session missing during login")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			sess.SetUser(strconv.FormatInt(user.ID, 10))
			sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "You have successfully logged in."})
			expiresAt := time.Now().Add(h.sessionManager.TTL())
			if err := h.service.RegisterSession(r.Context(), sess.ID, user.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
				h.logger.Warn("register session", slog.Any("error", err))
			}
			http.Redirect(w, r, successURL(form.Next), http.StatusFound)
			return
		}
	}

	data := loginPageData{Form: loginForm{Username: form.Username, Next: form.Next}, Errors: formErrors}
	h.render(w, r, "pages/login.html", "Log in", data, http.StatusOK)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	if h.redirectAuthenticated(w, r) {
		return
	}
	h.render(w, r, "pages/register.html", "Register", registerPageData{}, http.StatusOK)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if h.redirectAuthenticated(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	form := registerForm{
		Username:        strings.TrimSpace(r.PostFormValue("username")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fieldErr := range fieldErrors {
				formErrors[fieldErr.Field()] = registrationMessage(fieldErr)
			}
		} else {
			formErrors["general"] = "Registration failed."
		}
	}

	if len(formErrors) == 0 {
		_, err := h.service.Register(r.Context(), RegisterInput{
			Username: form.Username,
			Email:    form.Email,
			Password: form.Password,
		})
		switch {
		case errors.Is(err, ErrUsernameTaken):
			formErrors["Username"] = "A user with that username already exists."
		case err != nil:
			h.logger.Error("register user", slog.Any("error", err))
			formErrors["general"] = "Registration failed."
		default:
			if sess := shared.SessionFromContext(r.Context()); sess != nil {
				sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "You have successfully Registered."})
			}
			// Same page again with an empty form.
			h.render(w, r, "pages/register.html", "Register", registerPageData{}, http.StatusOK)
			return
		}
	}

	data := registerPageData{Form: form, Errors: formErrors}
	h.render(w, r, "pages/register.html", "Register", data, http.StatusOK)
}

func (h *Handler) showAccountDisabled(w http.ResponseWriter, r *http.Request) {
	if h.redirectAuthenticated(w, r) {
		return
	}
	h.render(w, r, "pages/account-disabled.html", "Account disabled", nil, http.StatusOK)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
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
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
	}
}

func registrationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Field() {
	case "Password":
		if fieldErr.Tag() == "min" {
			return "Password must be at least 12 characters."
		}
		return "Enter a secure password."
	case "PasswordConfirm":
		return "Passwords do not match"
	case "Email":
		return "Enter a valid email address."
	default:
		return "This field is required."
	}
}

// successURL honors a requested next-path only when it points back into the
// console; everything else lands on the console index.
func successURL(next string) string {
	if next == "/admin" || strings.HasPrefix(next, ConsoleIndexPath) {
		return next
	}
	return ConsoleIndexPath
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleRegisterForTest exposes the POST handler for tests.
func (h *Handler) HandleRegisterForTest(w http.ResponseWriter, r *http.Request) {
	h.handleRegister(w, r)
}

// ShowRegisterForTest exposes the GET handler for tests.
func (h *Handler) ShowRegisterForTest(w http.ResponseWriter, r *http.Request) {
	h.showRegister(w, r)
}

// ShowAccountDisabledForTest exposes the GET handler for tests.
func (h *Handler) ShowAccountDisabledForTest(w http.ResponseWriter, r *http.Request) {
	h.showAccountDisabled(w, r)
}

// HandleLogoutForTest exposes the POST handler for tests.
func (h *Handler) HandleLogoutForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogout(w, r)
}
