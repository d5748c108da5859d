package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

// TokenValidator はアクセストークン検証の抽象です。
type TokenValidator interface {
	Validate(tokenString string) (*Claims, error)
}

type principalKey struct{}

// Principal は認証済みアカウントの識別情報です。
type Principal struct {
	AccountID string
	Email     string
}

// PrincipalFromContext はコンテキストから認証済みアカウントを取り出します。
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(*Principal)
	return principal, ok
}

// RequireAuth は Bearer トークンを検証するミドルウェアです。検証に
// 成功したリクエストのコンテキストに Principal を載せます。
func RequireAuth(validator TokenValidator, logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeUnauthorized(w)
				return
			}

			claims, err := validator.Validate(strings.TrimSpace(token))
			if err != nil {
				logger.WithFields(logrus.Fields{
					"path":  r.URL.Path,
					"error": err,
				}).Warn("rejected request with invalid token")
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), principalKey{}, &Principal{
				AccountID: claims.AccountID,
				Email:     claims.Email,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
}
