// internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const EmpresaKey contextKey = "empresa"

func JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := ValidateToken(tokenStr)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), EmpresaKey, claims.Empresa)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetEmpresa extracts the authenticated empresa from context
func GetEmpresa(r *http.Request) string {
	if val := r.Context().Value(EmpresaKey); val != nil {
		return val.(string)
	}
	return ""
}
