package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/okian/tally/internal/domain/model"
)

// Resolver produces the authenticated caller for a request. How the
// identity was established (sessions, tokens, an auth proxy) is outside
// this service; the zero Caller means the request is unauthenticated.
type Resolver interface {
	Resolve(r *http.Request) model.Caller
}

// Trusted headers set by an authenticating front proxy.
const (
	HeaderUserEmail = "X-User-Email"
	HeaderUserRoles = "X-User-Roles"
)

// HeaderResolver trusts identity headers injected by the edge. Only
// deployable behind a proxy that strips client-supplied copies.
type HeaderResolver struct{}

// Resolve implements Resolver.
func (HeaderResolver) Resolve(r *http.Request) model.Caller {
	email := strings.TrimSpace(r.Header.Get(HeaderUserEmail))
	if email == "" {
		return model.Caller{}
	}
	var roles []string
	for _, role := range strings.Split(r.Header.Get(HeaderUserRoles), ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return model.Caller{Email: email, Roles: roles}
}

type callerKey struct{}

// WithIdentity resolves the caller once and stores it on the request
// context for the wrapped handler.
func WithIdentity(res Resolver, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := res.Resolve(r)
		ctx := context.WithValue(r.Context(), callerKey{}, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// CallerFrom returns the caller resolved for this request, or the zero
// (unauthenticated) Caller.
func CallerFrom(ctx context.Context) model.Caller {
	caller, _ := ctx.Value(callerKey{}).(model.Caller)
	return caller
}
