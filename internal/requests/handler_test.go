package requests_test

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

	"github.com/go-chi/chi/v5"

	"github.com/clientdesk/clientdesk/internal/rbac"
	"github.com/clientdesk/clientdesk/internal/requests"
	"github.com/clientdesk/clientdesk/internal/shared"
	"github.com/clientdesk/clientdesk/internal/view"
)

type superuserSource struct{}

func (superuserSource) IdentityByID(ctx context.Context, id int64) (rbac.Identity, error) {
	return rbac.Identity{ID: id, IsStaff: true, IsSuperuser: true}, nil
}

func newRequestsRouter(t *testing.T, repo *fakeRepo) chi.Router {
	t.Helper()
	templates, err := view.NewEngine()
	if err != nil {
		t.Fatalf("templates: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := &rbac.Middleware{Identities: superuserSource{}, Logger: logger}
	handler := requests.NewHandler(logger, requests.NewService(repo), nil, nil, templates, shared.NewCSRFManager("csrfsecret"), gate)

	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func authedForm(t *testing.T, target string, form url.Values) (*http.Request, *shared.Session) {
	t.Helper()
	sm := shared.NewSessionManager(nil, "test_session", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("9")
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestBulkStatusEndpoint(t *testing.T) {
	repo := seededRepo()
	router := newRequestsRouter(t, repo)

	form := url.Values{}
	form.Set("status", requests.StatusCompleted)
	form.Add("ids", "1")
	form.Add("ids", "2")
	req, sess := authedForm(t, "/bulk-status", form)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	if loc := res.Header().Get("Location"); loc != "/admin/requests/" {
		t.Fatalf("expected redirect to list, got %q", loc)
	}
	flash := sess.PopFlash()
	if flash == nil || flash.Message != "2 requests marked as Completed." {
		t.Fatalf("unexpected flash: %+v", flash)
	}
	if repo.records[1].Status != requests.StatusCompleted || repo.records[2].Status != requests.StatusCompleted {
		t.Fatalf("selected records must transition")
	}
	if repo.records[3].Status != requests.StatusInProgress {
		t.Fatalf("unselected record must not change")
	}
}

func TestBulkStatusRejectsUnknownStatus(t *testing.T) {
	repo := seededRepo()
	router := newRequestsRouter(t, repo)

	form := url.Values{}
	form.Set("status", "Archived")
	form.Add("ids", "1")
	req, _ := authedForm(t, "/bulk-status", form)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	if repo.bulkCalls != 0 {
		t.Fatalf("store must not be touched for invalid status")
	}
}

func TestBulkStatusEmptySelection(t *testing.T) {
	repo := seededRepo()
	router := newRequestsRouter(t, repo)

	form := url.Values{}
	form.Set("status", requests.StatusPending)
	req, sess := authedForm(t, "/bulk-status", form)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", res.Code)
	}
	flash := sess.PopFlash()
	if flash == nil || flash.Message != "0 requests marked as Pending." {
		t.Fatalf("unexpected flash: %+v", flash)
	}
}
