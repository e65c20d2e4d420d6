package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clientdesk/clientdesk/internal/shared"
)

func newManager(t *testing.T) (*shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", time.Hour, false), mr
}

func TestSessionAuthenticatedStates(t *testing.T) {
	sm, _ := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if sess.Authenticated() {
		t.Fatalf("fresh session must be anonymous")
	}

	sess.SetUser("42")
	if !sess.Authenticated() {
		t.Fatalf("session with user ID must be authenticated")
	}

	sm.Destroy(sess)
	if sess.Authenticated() {
		t.Fatalf("revoked session must not report authenticated")
	}
	if !sess.Destroyed() {
		t.Fatalf("expected destroyed flag")
	}
}

func TestCommitPersistsAndReloads(t *testing.T) {
	sm, _ := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("42")
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "hello"})

	res := httptest.NewRecorder()
	if err := sm.Commit(context.Background(), res, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: sess.ID})
	reloaded, err := sm.Load(context.Background(), next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.User() != "42" {
		t.Fatalf("expected user 42, got %q", reloaded.User())
	}
	flash := reloaded.PopFlash()
	if flash == nil || flash.Message != "hello" {
		t.Fatalf("expected flash to survive the round trip")
	}
}

func TestCommitDestroyedSessionRemovesStoreEntryAndCookie(t *testing.T) {
	sm, mr := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser("42")
	res := httptest.NewRecorder()
	if err := sm.Commit(context.Background(), res, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if !mr.Exists("clientdesk:session:" + sess.ID) {
		t.Fatalf("expected session in store before revocation")
	}

	sm.Destroy(sess)
	res = httptest.NewRecorder()
	if err := sm.Commit(context.Background(), res, req, sess); err != nil {
		t.Fatalf("commit destroyed: %v", err)
	}

	if mr.Exists("clientdesk:session:" + sess.ID) {
		t.Fatalf("destroyed session must be deleted from the store")
	}
	var expired bool
	for _, cookie := range res.Result().Cookies() {
		if cookie.Name == sm.CookieName() && cookie.MaxAge < 0 {
			expired = true
		}
	}
	if !expired {
		t.Fatalf("destroyed session must expire its cookie")
	}
}

func TestCSRFTokenRoundTrip(t *testing.T) {
	sm, _ := newManager(t)
	csrf := shared.NewCSRFManager("csrfsecret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}

	token, err := csrf.EnsureToken(context.Background(), sess)
	if err != nil {
		t.Fatalf("ensure token: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if err := csrf.VerifyToken(context.Background(), sess, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := csrf.VerifyToken(context.Background(), sess, "forged"); err == nil {
		t.Fatalf("expected forged token to fail")
	}
}
