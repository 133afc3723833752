package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Keys are the accepted API keys. Public keys may read runs; admin keys may
// also start them. With no keys at all the API is open (local use).
type Keys struct {
	Public []string
	Admin  []string
}

type role int

const (
	roleNone role = iota
	rolePublic
	roleAdmin
)

func (k Keys) open() bool { return len(k.Public) == 0 && len(k.Admin) == 0 }

// roleOf resolves the presented key. Every configured key is compared so
// timing does not reveal which one matched.
func (k Keys) roleOf(given string) role {
	if given == "" {
		return roleNone
	}
	got := roleNone
	for _, key := range k.Public {
		if subtle.ConstantTimeCompare([]byte(key), []byte(given)) == 1 && got == roleNone {
			got = rolePublic
		}
	}
	for _, key := range k.Admin {
		if subtle.ConstantTimeCompare([]byte(key), []byte(given)) == 1 {
			got = roleAdmin
		}
	}
	return got
}

// presentedKey reads "Authorization: Bearer <key>" or "X-API-Key".
func presentedKey(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RequireAny lets through any known key.
func RequireAny(keys Keys) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if keys.open() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keys.roleOf(presentedKey(r)) == roleNone {
				deny(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin only lets through admin keys. Without admin keys configured
// every request passes.
func RequireAdmin(keys Keys) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys.Admin) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keys.roleOf(presentedKey(r)) != roleAdmin {
				deny(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
