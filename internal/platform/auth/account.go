package auth

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInvalidEmail       = errors.New("auth: invalid email")
	ErrInvalidPassword    = errors.New("auth: invalid password")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrAccountNotFound    = errors.New("auth: account not found")
	ErrEmailAlreadyExists = errors.New("auth: email already exists")
)

// Account は API 利用者のアカウントです。パスワードは bcrypt ハッシュのみ
// 保持します。
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository はアカウント永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, a *Account) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
}
