package habilitation

import (
	"context"
	"time"
)

// Repository は Habilitation 永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, h *Habilitation) (*Habilitation, error)
	Update(ctx context.Context, h *Habilitation) (*Habilitation, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Habilitation, error)
	FindByEmployeeAndFamily(ctx context.Context, employeeID string, family Family) (*Habilitation, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]*Habilitation, error)
	ListByEmployeeIDs(ctx context.Context, employeeIDs []string) (map[string][]*Habilitation, error)
	ListExpired(ctx context.Context, asOf time.Time) ([]*ExpiredEntry, error)
}
