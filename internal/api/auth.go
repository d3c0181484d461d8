package api

import (
	"net/http"
	"strings"

	"arena/internal/domain"
)

const adminTokenHeader = "X-Admin-Token"

// AdminAuth guards admin endpoints with tokens issued by the admin login.
type AdminAuth struct {
	admin    domain.AdminService
	required bool
}

func NewAdminAuth(admin domain.AdminService, required bool) *AdminAuth {
	return &AdminAuth{admin: admin, required: required}
}

func (a *AdminAuth) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.required {
			next(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing admin token")
			return
		}
		if !a.admin.ValidateToken(token) {
			writeError(w, http.StatusUnauthorized, "invalid or expired admin token")
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(adminTokenHeader))
}
