package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clientdesk/clientdesk/internal/auth"
	"github.com/clientdesk/clientdesk/internal/shared"
	"github.com/clientdesk/clientdesk/internal/view"
)

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := auth.NewHandler(logger, auth.NewService(repo), templates, sessionManager, csrfManager)
	return handler, sessionManager
}

func sessionRequest(t *testing.T, sm *shared.SessionManager, method, target string, form url.Values) (*http.Request, *shared.Session) {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestLoginPage(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{})

	req, _ := sessionRequest(t, sm, http.MethodGet, "/login", nil)
	res := httptest.NewRecorder()
	handler.ShowLoginForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "<form") {
		t.Fatalf("expected login form in body")
	}
}

func TestLoginWrongPasswordGenericMessage(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{
		"alice": {ID: 1, Username: "alice", PasswordHash: hashFor(t, "correct-horse"), IsActive: true, IsStaff: true},
	}}
	handler, sm := newAuthHandler(t, repo)

	form := url.Values{}
	form.Set("username", "alice")
	form.Set("password", "wrong")
	req, _ := sessionRequest(t, sm, http.MethodPost, "/login", form)
	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected form re-render with 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Incorrect username or password.") {
		t.Fatalf("expected generic failure message in body")
	}
}

func TestLoginUnknownUserSameMessage(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{})

	form := url.Values{}
	form.Set("username", "ghost")
	form.Set("password", "whatever")
	req, _ := sessionRequest(t, sm, http.MethodPost, "/login", form)
	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "Incorrect username or password.") {
		t.Fatalf("unknown user must get the same message as wrong password")
	}
}

func TestLoginNonStaffRevokedAndRedirected(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{
		"plain": {ID: 3, Username: "plain", PasswordHash: hashFor(t, "valid-password1"), IsActive: true, IsStaff: false},
	}}
	handler, sm := newAuthHandler(t, repo)

	form := url.Values{}
	form.Set("username", "plain")
	form.Set("password", "valid-password1")
	req, sess := sessionRequest(t, sm, http.MethodPost, "/login", form)
	res := httptest.NewRecorder()
	handler.HandleLoginForTest(res, req)

	if res.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != auth.AccountDisabledPath {
		t.Fatalf("expected redirect to %s, got %q", auth.AccountDisabledPath, loc)
	}
	if !sess.Destroyed() {
		t.Fatalf("non-staff login must revoke the session")
	}
	if sess.Authenticated() {
		t.Fatalf("revoked session must not stay authenticated")
	}
}

func TestLoginStaffRedirectsToConsole(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{
		"staff": {ID: 4, Username: "staff", PasswordHash: hashFor(t, "valid-password1"), IsActive: true, IsStaff: true},
	}}
	handler, sm := newAuthHandler(t, repo)

	cases := []struct {
		next string
		want string
	}{
		{"", "/admin/"},
		{"/admin/clients/", "/admin/clients/"},
		{"https://evil.example/", "/admin/"},
		{"/profile", "/admin/"},
	}

	for _, tc := range cases {
		form := url.Values{}
		form.Set("username", "staff")
		form.Set("password", "valid-password1")
		form.Set("next", tc.next)
		req, sess := sessionRequest(t, sm, http.MethodPost, "/login", form)
		res := httptest.NewRecorder()
		handler.HandleLoginForTest(res, req)

		if res.Code != http.StatusFound {
			t.Fatalf("next=%q: expected 302, got %d", tc.next, res.Code)
		}
		if loc := res.Header().Get("Location"); loc != tc.want {
			t.Fatalf("next=%q: expected redirect to %q, got %q", tc.next, tc.want, loc)
		}
		if sess.User() != "4" {
			t.Fatalf("next=%q: expected session bound to user 4, got %q", tc.next, sess.User())
		}
	}
}

func TestAuthenticatedSurfacesRedirectToConsole(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{})

	cases := []struct {
		name   string
		target string
		serve  func(http.ResponseWriter, *http.Request)
	}{
		{"login", "/login", handler.ShowLoginForTest},
		{"register", "/register", handler.ShowRegisterForTest},
		{"account disabled", auth.AccountDisabledPath, handler.ShowAccountDisabledForTest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, sess := sessionRequest(t, sm, http.MethodGet, tc.target, nil)
			sess.SetUser("4")
			res := httptest.NewRecorder()
			tc.serve(res, req)

			if res.Code != http.StatusFound {
				t.Fatalf("expected 302 for live session, got %d", res.Code)
			}
			if loc := res.Header().Get("Location"); loc != auth.ConsoleIndexPath {
				t.Fatalf("expected redirect to console index, got %q", loc)
			}
		})
	}
}

func TestRegisterPasswordRules(t *testing.T) {
	handler, sm := newAuthHandler(t, &stubRepo{users: map[string]*auth.User{}})

	form := url.Values{}
	form.Set("username", "newstaff")
	form.Set("email", "newstaff@clientdesk.local")
	form.Set("password", "short")
	form.Set("password_confirm", "short")
	req, _ := sessionRequest(t, sm, http.MethodPost, "/register", form)
	res := httptest.NewRecorder()
	handler.HandleRegisterForTest(res, req)

	if !strings.Contains(res.Body.String(), "Password must be at least 12 characters.") {
		t.Fatalf("expected minimum length message")
	}

	form.Set("password", "long-enough-password")
	form.Set("password_confirm", "different-password12")
	req, _ = sessionRequest(t, sm, http.MethodPost, "/register", form)
	res = httptest.NewRecorder()
	handler.HandleRegisterForTest(res, req)

	if !strings.Contains(res.Body.String(), "Passwords do not match") {
		t.Fatalf("expected mismatch message")
	}
}

func TestRegisterSuccess(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{}}
	handler, sm := newAuthHandler(t, repo)

	form := url.Values{}
	form.Set("username", "newstaff")
	form.Set("email", "newstaff@clientdesk.local")
	form.Set("password", "long-enough-password")
	form.Set("password_confirm", "long-enough-password")
	req, _ := sessionRequest(t, sm, http.MethodPost, "/register", form)
	res := httptest.NewRecorder()
	handler.HandleRegisterForTest(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "You have successfully Registered.") {
		t.Fatalf("expected registration flash in body")
	}
	if repo.created == nil || !repo.created.IsStaff {
		t.Fatalf("registration must create a staff account")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{
		"newstaff": {ID: 1, Username: "newstaff"},
	}}
	handler, sm := newAuthHandler(t, repo)

	form := url.Values{}
	form.Set("username", "newstaff")
	form.Set("email", "other@clientdesk.local")
	form.Set("password", "long-enough-password")
	form.Set("password_confirm", "long-enough-password")
	req, _ := sessionRequest(t, sm, http.MethodPost, "/register", form)
	res := httptest.NewRecorder()
	handler.HandleRegisterForTest(res, req)

	if !strings.Contains(res.Body.String(), "A user with that username already exists.") {
		t.Fatalf("expected duplicate username message")
	}
}
