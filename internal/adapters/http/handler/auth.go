package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ogurasousui/habilitation-registry/internal/platform/auth"
	"github.com/sirupsen/logrus"
)

// Authenticator は認証ユースケースの抽象です。
type Authenticator interface {
	Register(ctx context.Context, email, password string) (*auth.Account, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Refresh(ctx context.Context, tokenString string) (*auth.Session, error)
}

// AuthHandler は認証 API のハンドラです。
type AuthHandler struct {
	authenticator Authenticator
	logger        *logrus.Logger
}

// NewAuthHandler は AuthHandler を生成します。
func NewAuthHandler(authenticator Authenticator, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{authenticator: authenticator, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionPayload struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Email     string    `json:"email"`
}

// Register は POST /api/auth/register を処理します。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_argument", Detail: "malformed JSON body"})
		return
	}

	account, err := h.authenticator.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": account.ID, "email": account.Email})
}

// Login は POST /api/auth/login を処理します。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid_argument", Detail: "malformed JSON body"})
		return
	}

	session, err := h.authenticator.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionPayload{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Email:     session.Account.Email,
	})
}

// Refresh は POST /api/auth/refresh を処理します。Authorization ヘッダーの
// 有効なトークンと引き換えに新しいトークンを発行します。
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		writeError(w, h.logger, auth.ErrInvalidToken)
		return
	}

	session, err := h.authenticator.Refresh(r.Context(), strings.TrimSpace(token))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionPayload{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Email:     session.Account.Email,
	})
}

// Logout は POST /api/auth/logout を処理します。トークンは失効管理して
// いないため、クライアント側での破棄を前提に 204 を返します。
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
