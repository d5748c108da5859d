package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ogurasousui/habilitation-registry/internal/platform/auth"
	"github.com/sirupsen/logrus"
)

// RouterDeps はルーター構築に必要なハンドラ群です。
type RouterDeps struct {
	Employees     *EmployeeHandler
	Hierarchy     *HierarchyHandler
	Habilitations *HabilitationHandler
	Importer      *ImportHandler
	Auth          *AuthHandler
	Tokens        auth.TokenValidator
	Logger        *logrus.Logger
}

// NewRouter は API ルートを構築します。認証エンドポイントと疎通確認以外は
// すべて Bearer トークンを要求します。
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.Auth.Register)
			r.Post("/login", deps.Auth.Login)
			r.Post("/refresh", deps.Auth.Refresh)
			r.Post("/logout", deps.Auth.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(deps.Tokens, deps.Logger))

			r.Get("/divisions", deps.Hierarchy.ListDivisions)
			r.Get("/divisions/{divisionID}/services", deps.Hierarchy.ListServices)
			r.Get("/services/{serviceID}/sections", deps.Hierarchy.ListSections)
			r.Get("/sections/{sectionID}/equipes", deps.Hierarchy.ListEquipes)

			r.Get("/employees", deps.Employees.List)
			r.Post("/employees", deps.Employees.Upsert)
			r.Get("/employees/{employeeID}", deps.Employees.Get)
			r.Delete("/employees/{employeeID}", deps.Employees.Delete)

			r.Post("/employees/{employeeID}/habilitations", deps.Habilitations.Create)
			r.Get("/habilitations/expired", deps.Habilitations.ListExpired)
			r.Put("/habilitations/{habilitationID}", deps.Habilitations.Renew)
			r.Delete("/habilitations/{habilitationID}", deps.Habilitations.Delete)

			r.Post("/import-employees", deps.Importer.Import)
		})
	})

	return r
}

// requestLogger はリクエスト毎にメソッド・パス・ステータス・所要時間を
// 記録します。
func requestLogger(logger *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			}).Info("handled request")
		})
	}
}
