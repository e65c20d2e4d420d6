package rbac

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/clientdesk/clientdesk/internal/shared"
)

// IdentitySource resolves the identity behind a session user ID.
type IdentitySource interface {
	IdentityByID(ctx context.Context, id int64) (Identity, error)
}

// Middleware wires the console access gate for HTTP handlers.
type Middleware struct {
	Service    *Service
	Identities IdentitySource
	Logger     *slog.Logger

	flight singleflight.Group
}

// Guard enforces staff-only access on the wrapped views. Unauthenticated
// requests redirect to the login surface carrying the original path;
// authenticated non-staff sessions receive 403. Unless cacheable, every
// response is marked uncacheable before the view runs.
func (m *Middleware) Guard(cacheable bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cacheable {
				setNoCache(w)
			}
			identity, ok := m.currentIdentity(r)
			switch shared.Decide(ok, identity.IsStaff) {
			case shared.AccessUnauthenticated:
				redirectToLogin(w, r)
			case shared.AccessForbidden:
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequirePermission ensures the current user holds the (entity, action)
// grant. Superusers pass unconditionally. Assumes Guard already ran, so a
// missing identity is answered with 403 rather than a redirect.
func (m *Middleware) RequirePermission(entity Entity, action Action) func(http.Handler) http.Handler {
	codename := Codename(action, entity)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := m.currentIdentity(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if identity.IsSuperuser {
				next.ServeHTTP(w, r)
				return
			}
			granted, err := m.effectivePermissions(r.Context(), identity.ID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac permission lookup", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			for _, p := range granted {
				if p == codename {
					next.ServeHTTP(w, r)
					return
				}
			}
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		})
	}
}

// RequireSuperuser restricts the wrapped views to superuser identities.
func (m *Middleware) RequireSuperuser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := m.currentIdentity(r)
			if !ok || !identity.IsSuperuser {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) currentIdentity(r *http.Request) (Identity, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || !sess.Authenticated() {
		return Identity{}, false
	}
	raw := strings.TrimSpace(sess.User())
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return Identity{}, false
	}
	identity, err := m.Identities.IdentityByID(r.Context(), id)
	if err != nil {
		// A session pointing at a deleted account is treated as
		// unauthenticated, not as a server failure.
		return Identity{}, false
	}
	return identity, true
}

// effectivePermissions collapses concurrent lookups for the same user into
// one store round trip. The shared call runs on a detached context so a
// cancelled request cannot fail the lookup for the callers collapsed onto it.
func (m *Middleware) effectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	lookupCtx := context.WithoutCancel(ctx)
	v, err, _ := m.flight.Do(strconv.FormatInt(userID, 10), func() (any, error) {
		return m.Service.EffectivePermissions(lookupCtx, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := "/login"
	if path := r.URL.RequestURI(); path != "" && path != "/" {
		target += "?next=" + url.QueryEscape(path)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func setNoCache(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}
