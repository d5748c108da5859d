package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// Session は認証成功時に発行されるアクセストークンです。
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *Account
}

// Authenticator はアカウント登録・ログイン・トークン再発行を提供します。
type Authenticator struct {
	accounts Repository
	tokens   *TokenService
	clock    Clock
}

// NewAuthenticator は Authenticator を生成します。
func NewAuthenticator(accounts Repository, tokens *TokenService, clock Clock) *Authenticator {
	if clock == nil {
		clock = realClock{}
	}
	return &Authenticator{accounts: accounts, tokens: tokens, clock: clock}
}

// Register はアカウントを新規登録します。
func (a *Authenticator) Register(ctx context.Context, email, password string) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return a.accounts.Create(ctx, &Account{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    a.clock.Now(),
	})
}

// Login は資格情報を検証しアクセストークンを発行します。アカウントの
// 有無とパスワード不一致は区別せず ErrInvalidCredentials を返します。
func (a *Authenticator) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	account, err := a.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return a.issue(account)
}

// Refresh は有効なトークンと引き換えに新しいトークンを発行します。
func (a *Authenticator) Refresh(ctx context.Context, tokenString string) (*Session, error) {
	claims, err := a.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	account, err := a.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return a.issue(account)
}

func (a *Authenticator) issue(account *Account) (*Session, error) {
	token, expiresAt, err := a.tokens.Issue(account, a.clock.Now())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}
